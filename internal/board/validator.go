package board

import (
	"sort"

	"github.com/rivergate/tally/internal/domain"
)

// OutcomeKind classifies a bulk-move validation outcome.
type OutcomeKind int

const (
	// OutcomeConflict means the carried projects sit in different columns.
	OutcomeConflict OutcomeKind = iota
	// OutcomeNoop means every carried project is already in the target stage.
	OutcomeNoop
	// OutcomePending means the local checks passed and a remote eligibility
	// call is required before anything can move.
	OutcomePending
	// OutcomeEligible means the remote check approved the move.
	OutcomeEligible
	// OutcomeIneligible means the remote check blocked the move.
	OutcomeIneligible
	// OutcomeBusy means a remote check is already in flight and the new
	// validation was refused rather than queued behind it.
	OutcomeBusy
)

// BulkMoveOutcome is the result of validating one bulk move, local or remote.
type BulkMoveOutcome struct {
	Kind         OutcomeKind
	TargetStage  string
	Stages       []string
	ValidReasons []domain.ValidReason
	Restrictions []string
}

// Validator runs the bulk-move checks in order: same-origin, then noop, then
// the remote eligibility call. It also tags each remote call with a
// generation so a response landing after a newer gesture is discarded instead
// of opening a dialog for stale data.
type Validator struct {
	gen  uint64
	busy bool
}

// NewValidator constructs an idle validator.
func NewValidator() *Validator {
	return &Validator{}
}

// PreCheck runs the synchronous checks that never touch the network. The
// carried projects must already be filtered to the live list. While a remote
// call is in flight PreCheck refuses new validations outright.
func (v *Validator) PreCheck(projects []domain.Project, targetStage string) BulkMoveOutcome {
	if v.busy {
		return BulkMoveOutcome{Kind: OutcomeBusy, TargetStage: targetStage}
	}
	stages := distinctStages(projects)
	if len(stages) > 1 {
		return BulkMoveOutcome{Kind: OutcomeConflict, TargetStage: targetStage, Stages: stages}
	}
	if len(stages) == 1 && stages[0] == targetStage {
		return BulkMoveOutcome{Kind: OutcomeNoop, TargetStage: targetStage}
	}
	return BulkMoveOutcome{Kind: OutcomePending, TargetStage: targetStage}
}

// Begin marks the start of a remote eligibility call and returns its
// generation tag.
func (v *Validator) Begin() uint64 {
	v.gen++
	v.busy = true
	return v.gen
}

// Accept reports whether a response with the given generation is still
// current. Accepting clears the busy state; stale responses leave it alone.
func (v *Validator) Accept(gen uint64) bool {
	if !v.busy || gen != v.gen {
		return false
	}
	v.busy = false
	return true
}

// Cancel abandons any in-flight call, so a late response can never be
// accepted.
func (v *Validator) Cancel() {
	if v.busy {
		v.busy = false
		v.gen++
	}
}

// Busy reports whether a remote call is in flight.
func (v *Validator) Busy() bool {
	return v.busy
}

// OutcomeFromResult maps a remote eligibility result onto an outcome.
func OutcomeFromResult(targetStage string, result domain.EligibilityResult) BulkMoveOutcome {
	if result.Eligible {
		return BulkMoveOutcome{
			Kind:         OutcomeEligible,
			TargetStage:  targetStage,
			ValidReasons: result.ValidReasons,
		}
	}
	return BulkMoveOutcome{
		Kind:         OutcomeIneligible,
		TargetStage:  targetStage,
		Restrictions: result.Restrictions,
	}
}

// distinctStages collects the sorted set of columns the projects occupy.
func distinctStages(projects []domain.Project) []string {
	seen := make(map[string]struct{}, 2)
	for _, project := range projects {
		seen[BucketName(project)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
