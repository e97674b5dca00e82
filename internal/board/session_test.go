package board

import (
	"errors"
	"testing"

	"github.com/rivergate/tally/internal/domain"
)

func testCatalog() []Stage {
	return BuildCatalog([]domain.StageDefinition{
		def("Intake", 1),
		def("Review", 2),
		def("Filing", 3),
	})
}

func TestStartRejectsCompletedProject(t *testing.T) {
	session := NewSession()
	err := session.Start(completedProj("a", "Review", domain.CompletionSuccess), NewSelection())
	if !errors.Is(err, domain.ErrProjectCompleted) {
		t.Fatalf("err = %v, want ErrProjectCompleted", err)
	}
	if session.Dragging() {
		t.Error("session entered dragging state for a read-only project")
	}
}

func TestStartBulkCarriesSelection(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("a")
	sel.Toggle("b")

	session := NewSession()
	if err := session.Start(proj("a", "Intake"), sel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !session.Bulk() {
		t.Error("grabbing a selected project with company should be bulk")
	}
	if sel.Size() != 2 {
		t.Errorf("selection size = %d, want 2 (preserved through drag start)", sel.Size())
	}
}

func TestStartSingleClearsSelection(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("b")
	sel.Toggle("c")

	session := NewSession()
	if err := session.Start(proj("a", "Intake"), sel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.Bulk() {
		t.Error("grabbing an unselected project must not be bulk")
	}
	if sel.Size() != 0 {
		t.Errorf("selection size = %d, want 0", sel.Size())
	}
}

func TestStartSoleSelectedProjectIsSingle(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("a")

	session := NewSession()
	if err := session.Start(proj("a", "Intake"), sel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.Bulk() {
		t.Error("a one-item selection never escalates to bulk")
	}
}

func TestHoverTracksColumnCandidatesOnly(t *testing.T) {
	session := NewSession()
	if err := session.Start(proj("a", "Intake"), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	session.Hover([]DropTarget{ColumnTarget("Review")})
	if session.HoveredColumn() != "Review" {
		t.Errorf("hovered = %q, want Review", session.HoveredColumn())
	}
	session.Hover([]DropTarget{CardTarget("p-9")})
	if session.HoveredColumn() != "Review" {
		t.Errorf("card candidate changed the highlight to %q", session.HoveredColumn())
	}
	session.Hover(nil)
	if session.HoveredColumn() != "" {
		t.Errorf("hovered = %q after leaving all droppables, want empty", session.HoveredColumn())
	}
}

func TestDropSingleOntoNewStage(t *testing.T) {
	projects := []domain.Project{proj("a", "Intake")}
	session := NewSession()
	if err := session.Start(projects[0], nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	decision := session.Drop(ColumnTarget("Review"), true, testCatalog(), projects)
	if decision.Kind != DropSingle {
		t.Fatalf("kind = %v, want DropSingle", decision.Kind)
	}
	if decision.TargetStage != "Review" || decision.ProjectID != "a" {
		t.Errorf("decision = %+v", decision)
	}
	if session.State() != StateResolved {
		t.Errorf("state = %v, want StateResolved", session.State())
	}
}

func TestDropSameStageIsNoop(t *testing.T) {
	projects := []domain.Project{proj("a", "Intake")}
	session := NewSession()
	if err := session.Start(projects[0], nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	decision := session.Drop(ColumnTarget("Intake"), true, testCatalog(), projects)
	if decision.Kind != DropNoop {
		t.Fatalf("kind = %v, want DropNoop", decision.Kind)
	}
}

func TestDropOntoSyntheticColumnRejected(t *testing.T) {
	projects := []domain.Project{proj("a", "Intake")}
	session := NewSession()
	if err := session.Start(projects[0], nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	decision := session.Drop(ColumnTarget(SuccessColumnName), true, testCatalog(), projects)
	if decision.Kind != DropRejected {
		t.Fatalf("kind = %v, want DropRejected", decision.Kind)
	}
}

func TestDropOnCardInfersItsColumn(t *testing.T) {
	projects := []domain.Project{proj("a", "Intake"), proj("b", "Review")}
	session := NewSession()
	if err := session.Start(projects[0], nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	decision := session.Drop(CardTarget("b"), true, testCatalog(), projects)
	if decision.Kind != DropSingle || decision.TargetStage != "Review" {
		t.Fatalf("decision = %+v, want single move to Review", decision)
	}
}

func TestDropOnCompletedCardRejected(t *testing.T) {
	projects := []domain.Project{
		proj("a", "Intake"),
		completedProj("b", "Review", domain.CompletionSuccess),
	}
	session := NewSession()
	if err := session.Start(projects[0], nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The completed card sits in a synthetic column, which rejects drops.
	decision := session.Drop(CardTarget("b"), true, testCatalog(), projects)
	if decision.Kind != DropRejected {
		t.Fatalf("kind = %v, want DropRejected", decision.Kind)
	}
}

func TestDropWithoutTargetRejected(t *testing.T) {
	projects := []domain.Project{proj("a", "Intake")}
	session := NewSession()
	if err := session.Start(projects[0], nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	decision := session.Drop(DropTarget{}, false, testCatalog(), projects)
	if decision.Kind != DropRejected {
		t.Fatalf("kind = %v, want DropRejected", decision.Kind)
	}
}

func TestDropBulkCarriesLiveSelection(t *testing.T) {
	projects := []domain.Project{proj("a", "Intake"), proj("b", "Intake")}
	sel := NewSelection()
	sel.Toggle("a")
	sel.Toggle("b")
	sel.Toggle("stale")

	session := NewSession()
	if err := session.Start(projects[0], sel); err != nil {
		t.Fatalf("Start: %v", err)
	}

	decision := session.Drop(ColumnTarget("Review"), true, testCatalog(), projects)
	if decision.Kind != DropBulk {
		t.Fatalf("kind = %v, want DropBulk", decision.Kind)
	}
	if len(decision.Carried) != 2 {
		t.Fatalf("carried %d IDs, want 2 live ones", len(decision.Carried))
	}
	if decision.Carried[0] != "a" || decision.Carried[1] != "b" {
		t.Errorf("carried = %v", decision.Carried)
	}
}

func TestEndResetsSession(t *testing.T) {
	session := NewSession()
	if err := session.Start(proj("a", "Intake"), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	session.Hover([]DropTarget{ColumnTarget("Review")})

	session.End()
	if session.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", session.State())
	}
	if session.HoveredColumn() != "" {
		t.Errorf("hovered = %q, want empty", session.HoveredColumn())
	}
	if session.Dragging() {
		t.Error("session still dragging after End")
	}
}
