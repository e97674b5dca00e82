package domain

import (
	"strings"
	"time"
)

// CompletionStatus is a terminal, non-stage classification of a project. A
// non-empty completion overrides normal stage membership on the board.
type CompletionStatus string

const (
	CompletionNone    CompletionStatus = ""
	CompletionSuccess CompletionStatus = "success"
	CompletionFailure CompletionStatus = "failure"
)

// ParseCompletionStatus parses input into a normalized form.
func ParseCompletionStatus(raw string) (CompletionStatus, error) {
	switch CompletionStatus(strings.TrimSpace(strings.ToLower(raw))) {
	case CompletionNone:
		return CompletionNone, nil
	case CompletionSuccess:
		return CompletionSuccess, nil
	case CompletionFailure:
		return CompletionFailure, nil
	default:
		return CompletionNone, ErrInvalidCompletion
	}
}

// Project represents one client engagement moving through a project type's
// workflow.
type Project struct {
	ID            string
	ProjectTypeID string
	Name          string
	ClientName    string
	CurrentStatus string
	Completion    CompletionStatus
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProjectInput holds input values for NewProject.
type ProjectInput struct {
	ID            string
	ProjectTypeID string
	Name          string
	ClientName    string
	CurrentStatus string
	Completion    CompletionStatus
	Notes         string
}

// NewProject constructs a new value for this package.
func NewProject(in ProjectInput, now time.Time) (Project, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectTypeID = strings.TrimSpace(in.ProjectTypeID)
	in.Name = strings.TrimSpace(in.Name)
	in.CurrentStatus = strings.TrimSpace(in.CurrentStatus)
	if in.ID == "" {
		return Project{}, ErrInvalidID
	}
	if in.ProjectTypeID == "" {
		return Project{}, ErrInvalidID
	}
	if in.Name == "" {
		return Project{}, ErrInvalidName
	}
	if in.CurrentStatus == "" {
		return Project{}, ErrInvalidStageName
	}
	switch in.Completion {
	case CompletionNone, CompletionSuccess, CompletionFailure:
	default:
		return Project{}, ErrInvalidCompletion
	}

	return Project{
		ID:            in.ID,
		ProjectTypeID: in.ProjectTypeID,
		Name:          in.Name,
		ClientName:    strings.TrimSpace(in.ClientName),
		CurrentStatus: in.CurrentStatus,
		Completion:    in.Completion,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

// ReadOnly reports whether the project is locked out of drag operations.
func (p Project) ReadOnly() bool {
	return p.Completion != CompletionNone
}

// SetStatus moves the project to a new workflow stage.
func (p *Project) SetStatus(stage string, now time.Time) error {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ErrInvalidStageName
	}
	if p.ReadOnly() {
		return ErrProjectCompleted
	}
	p.CurrentStatus = stage
	p.UpdatedAt = now.UTC()
	return nil
}

// Complete marks the project terminally successful or unsuccessful.
func (p *Project) Complete(status CompletionStatus, now time.Time) error {
	switch status {
	case CompletionSuccess, CompletionFailure:
	default:
		return ErrInvalidCompletion
	}
	p.Completion = status
	p.UpdatedAt = now.UTC()
	return nil
}

// Reopen clears a terminal completion so the project is draggable again.
func (p *Project) Reopen(now time.Time) {
	p.Completion = CompletionNone
	p.UpdatedAt = now.UTC()
}

// AppendNote appends one note line to the project's running notes.
func (p *Project) AppendNote(note string, now time.Time) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if p.Notes == "" {
		p.Notes = note
	} else {
		p.Notes += "\n" + note
	}
	p.UpdatedAt = now.UTC()
}
