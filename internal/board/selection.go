package board

import (
	"strings"

	"github.com/rivergate/tally/internal/domain"
)

// Selection tracks explicitly user-selected project IDs, independent of drag
// state. Membership survives board reloads; stale IDs are tolerated and only
// filtered against the live project list at the moment of use.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection constructs an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: map[string]struct{}{}}
}

// Toggle adds or removes one project ID and reports whether it is now selected.
func (s *Selection) Toggle(projectID string) bool {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return false
	}
	if s.ids == nil {
		s.ids = map[string]struct{}{}
	}
	if _, ok := s.ids[projectID]; ok {
		delete(s.ids, projectID)
		return false
	}
	s.ids[projectID] = struct{}{}
	return true
}

// Clear empties the selection and returns the previous count.
func (s *Selection) Clear() int {
	count := len(s.ids)
	if count == 0 {
		return 0
	}
	s.ids = map[string]struct{}{}
	return count
}

// Has reports whether one project ID is selected.
func (s *Selection) Has(projectID string) bool {
	_, ok := s.ids[strings.TrimSpace(projectID)]
	return ok
}

// Size returns the number of selected IDs, stale or not.
func (s *Selection) Size() int {
	return len(s.ids)
}

// IsBulkCandidate reports whether grabbing the given project starts a bulk
// move: the project is selected and at least one other project is too.
func (s *Selection) IsBulkCandidate(projectID string) bool {
	return s.Has(projectID) && len(s.ids) > 1
}

// IDs returns the selected IDs in unspecified order.
func (s *Selection) IDs() []string {
	if len(s.ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// LiveProjects resolves the selection against the live project list, dropping
// stale IDs without mutating the selection itself. Output order follows the
// input list.
func (s *Selection) LiveProjects(projects []domain.Project) []domain.Project {
	if len(s.ids) == 0 {
		return nil
	}
	out := make([]domain.Project, 0, len(s.ids))
	for _, project := range projects {
		if _, ok := s.ids[project.ID]; ok {
			out = append(out, project)
		}
	}
	return out
}
