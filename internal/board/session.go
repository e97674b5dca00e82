package board

import "github.com/rivergate/tally/internal/domain"

// SessionState tracks the drag gesture lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateDragging
	StateResolved
)

// DropKind classifies the decision produced by one drop.
type DropKind int

const (
	// DropRejected is a structural rejection: read-only destination, unknown
	// target, or no session. Silent no-op, never an error.
	DropRejected DropKind = iota
	// DropNoop is a same-stage single move; nothing to do.
	DropNoop
	// DropSingle requests the single-item status-change dialog.
	DropSingle
	// DropBulk hands the carried selection to the bulk-move validator.
	DropBulk
)

// DropDecision is the outcome of resolving one drop gesture.
type DropDecision struct {
	Kind        DropKind
	TargetStage string
	ProjectID   string
	Carried     []string
}

// Session is the per-gesture drag state: the grabbed project, whether the
// gesture carries the whole selection, and the column currently hovered for
// visual feedback. Created on drag start, reset on drag end.
type Session struct {
	state    SessionState
	activeID string
	bulk     bool
	carried  []string
	hovered  string
}

// NewSession constructs an idle session.
func NewSession() *Session {
	return &Session{}
}

// State returns the current gesture state.
func (s *Session) State() SessionState {
	return s.state
}

// Dragging reports whether a gesture is in flight.
func (s *Session) Dragging() bool {
	return s.state == StateDragging
}

// ActiveID returns the project being physically dragged.
func (s *Session) ActiveID() string {
	return s.activeID
}

// Bulk reports whether the gesture carries the whole selection.
func (s *Session) Bulk() bool {
	return s.bulk
}

// HoveredColumn returns the column currently under the drag, if any.
func (s *Session) HoveredColumn() string {
	return s.hovered
}

// Start begins a gesture over the grabbed project. Completed projects are
// read-only and never enter the dragging state. When the grabbed project is
// part of a multi-item selection the entire selection is carried; otherwise
// the selection is cleared and the gesture is single-item.
func (s *Session) Start(project domain.Project, sel *Selection) error {
	if s.state != StateIdle {
		return nil
	}
	if project.ReadOnly() {
		return domain.ErrProjectCompleted
	}

	s.activeID = project.ID
	if sel != nil && sel.IsBulkCandidate(project.ID) {
		s.bulk = true
		s.carried = sel.IDs()
	} else {
		if sel != nil {
			sel.Clear()
		}
		s.bulk = false
		s.carried = []string{project.ID}
	}
	s.state = StateDragging
	s.hovered = ""
	return nil
}

// Hover records the column under the pointer from the resolver's ranked
// candidates. Only column candidates update the highlight; it is visual
// feedback only and never used for legality.
func (s *Session) Hover(candidates []DropTarget) {
	if s.state != StateDragging {
		return
	}
	if len(candidates) == 0 {
		s.hovered = ""
		return
	}
	if candidates[0].Kind() == TargetColumn {
		s.hovered = candidates[0].Column()
	}
}

// Drop resolves the gesture against a drop target. Column targets name the
// stage directly; card targets infer the card's column. Drops onto the
// synthetic completed columns are rejected outright.
func (s *Session) Drop(target DropTarget, ok bool, catalog []Stage, projects []domain.Project) DropDecision {
	if s.state != StateDragging {
		return DropDecision{Kind: DropRejected}
	}
	s.state = StateResolved

	if !ok {
		return DropDecision{Kind: DropRejected}
	}

	targetStage := target.Column()
	if target.Kind() == TargetCard {
		under, found := projectByID(projects, target.ProjectID())
		if !found {
			return DropDecision{Kind: DropRejected}
		}
		targetStage = BucketName(under)
	}

	stage, found := StageByName(catalog, targetStage)
	if !found || stage.ReadOnly() {
		return DropDecision{Kind: DropRejected}
	}

	if s.bulk {
		carried := liveIDs(s.carried, projects)
		if len(carried) == 0 {
			return DropDecision{Kind: DropRejected}
		}
		return DropDecision{Kind: DropBulk, TargetStage: targetStage, Carried: carried}
	}

	active, found := projectByID(projects, s.activeID)
	if !found {
		return DropDecision{Kind: DropRejected}
	}
	if active.CurrentStatus == targetStage {
		return DropDecision{Kind: DropNoop}
	}
	return DropDecision{Kind: DropSingle, TargetStage: targetStage, ProjectID: active.ID}
}

// End resets the session to idle. The hovered-column highlight is always
// cleared, whatever the drop outcome was.
func (s *Session) End() {
	*s = Session{}
}

// projectByID finds one project in the live list.
func projectByID(projects []domain.Project, id string) (domain.Project, bool) {
	for _, project := range projects {
		if project.ID == id {
			return project, true
		}
	}
	return domain.Project{}, false
}

// liveIDs filters carried IDs against the live project list, preserving the
// list's order.
func liveIDs(ids []string, projects []domain.Project) []string {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]string, 0, len(wanted))
	for _, project := range projects {
		if _, ok := wanted[project.ID]; ok {
			out = append(out, project.ID)
		}
	}
	return out
}
