package domain

import (
	"strings"
	"time"
)

// ProjectType represents one workflow family (e.g. "Year End Accounts").
type ProjectType struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProjectType constructs a new value for this package.
func NewProjectType(id, name string, now time.Time) (ProjectType, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return ProjectType{}, ErrInvalidID
	}
	if name == "" {
		return ProjectType{}, ErrInvalidName
	}
	return ProjectType{
		ID:        id,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// StageDefinition describes one server-defined workflow stage of a project type.
type StageDefinition struct {
	Name         string
	Order        int
	Color        string
	AssignedRole string
}

// NewStageDefinition constructs a new value for this package.
func NewStageDefinition(name string, order int, color, assignedRole string) (StageDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return StageDefinition{}, ErrInvalidStageName
	}
	if order < 0 {
		return StageDefinition{}, ErrInvalidStageOrder
	}
	return StageDefinition{
		Name:         name,
		Order:        order,
		Color:        strings.TrimSpace(color),
		AssignedRole: strings.TrimSpace(assignedRole),
	}, nil
}

// ValidReason is one server-supplied justification a user picks to complete an
// allowed bulk stage change.
type ValidReason struct {
	ID     string
	Reason string
}

// EligibilityResult is the authoritative server answer for one bulk-move
// eligibility check. Exactly one of ValidReasons/Restrictions is meaningful,
// keyed by Eligible.
type EligibilityResult struct {
	Eligible     bool
	ValidReasons []ValidReason
	Restrictions []string
}
