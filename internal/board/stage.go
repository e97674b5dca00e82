// Package board implements the kanban interaction core: the stage catalog,
// project grouping, multi-select state, drop-target collision resolution, the
// per-gesture drag session, and the bulk-move validator.
package board

import (
	"sort"
	"strings"

	"github.com/rivergate/tally/internal/domain"
)

// SyntheticKind identifies one of the two client-injected completed columns.
type SyntheticKind int

const (
	SyntheticSuccess SyntheticKind = iota
	SyntheticFailure
)

// SuccessColumnName and FailureColumnName are the display names of the two
// synthetic completed columns.
const (
	SuccessColumnName = "Completed - Success"
	FailureColumnName = "Completed - Unsuccessful"
)

// stageKind discriminates the Stage variant.
type stageKind int

const (
	stageReal stageKind = iota
	stageSynthetic
)

// Stage is one board column: either a real server-defined workflow stage or a
// synthetic completed column injected client-side. Completion is represented
// structurally, never as a draggable stage.
type Stage struct {
	kind      stageKind
	def       domain.StageDefinition
	synthetic SyntheticKind
	order     int
}

// RealStage wraps one server stage definition.
func RealStage(def domain.StageDefinition) Stage {
	return Stage{kind: stageReal, def: def, order: def.Order}
}

// SyntheticStage builds one of the two completed columns at the given order.
func SyntheticStage(kind SyntheticKind, order int) Stage {
	return Stage{kind: stageSynthetic, synthetic: kind, order: order}
}

// Name returns the column display name.
func (s Stage) Name() string {
	if s.kind == stageSynthetic {
		if s.synthetic == SyntheticFailure {
			return FailureColumnName
		}
		return SuccessColumnName
	}
	return s.def.Name
}

// Order returns the column sort position.
func (s Stage) Order() int {
	return s.order
}

// Color returns the configured stage color; synthetic columns have none.
func (s Stage) Color() string {
	if s.kind == stageSynthetic {
		return ""
	}
	return s.def.Color
}

// AssignedRole returns the role owning the stage; synthetic columns have none.
func (s Stage) AssignedRole() string {
	if s.kind == stageSynthetic {
		return ""
	}
	return s.def.AssignedRole
}

// Synthetic reports whether the stage is a client-injected completed column.
func (s Stage) Synthetic() bool {
	return s.kind == stageSynthetic
}

// ReadOnly reports whether the column rejects drops. Only the synthetic
// completed columns are read-only destinations.
func (s Stage) ReadOnly() bool {
	return s.kind == stageSynthetic
}

// BuildCatalog derives the ordered visible columns from a raw stage list.
// Server-side "completed" stage definitions are dropped: completion is carried
// by the project's completion status, not by stage membership. The two
// synthetic completed columns are always appended, ordered after every real
// stage.
func BuildCatalog(defs []domain.StageDefinition) []Stage {
	real := make([]Stage, 0, len(defs))
	maxOrder := 0
	for _, def := range defs {
		if strings.Contains(strings.ToLower(def.Name), "completed") {
			continue
		}
		stage := RealStage(def)
		real = append(real, stage)
		if stage.Order() > maxOrder {
			maxOrder = stage.Order()
		}
	}
	sort.SliceStable(real, func(i, j int) bool {
		return real[i].Order() < real[j].Order()
	})

	out := make([]Stage, 0, len(real)+2)
	out = append(out, real...)
	out = append(out, SyntheticStage(SyntheticSuccess, maxOrder+1))
	out = append(out, SyntheticStage(SyntheticFailure, maxOrder+2))
	return out
}

// StageByName finds one catalog column by display name.
func StageByName(catalog []Stage, name string) (Stage, bool) {
	for _, stage := range catalog {
		if stage.Name() == name {
			return stage, true
		}
	}
	return Stage{}, false
}
