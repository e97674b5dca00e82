package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rivergate/tally/internal/app"
	"github.com/rivergate/tally/internal/board"
	"github.com/rivergate/tally/internal/domain"
)

type fakeService struct {
	types    []domain.ProjectType
	stages   map[string][]domain.StageDefinition
	projects map[string][]domain.Project

	eligibility      domain.EligibilityResult
	eligibilityErr   error
	eligibilityCalls int
	lastEligibleIDs  []string

	lastBulk     app.BulkChangeStatusInput
	lastMoveID   string
	lastMoveTo   string
	lastComplete domain.CompletionStatus
	lastNote     string

	err error
}

func newFakeService(types []domain.ProjectType, stages map[string][]domain.StageDefinition, projects map[string][]domain.Project) *fakeService {
	return &fakeService{types: types, stages: stages, projects: projects}
}

func (f *fakeService) ListProjectTypes(context.Context) ([]domain.ProjectType, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ProjectType, len(f.types))
	copy(out, f.types)
	return out, nil
}

func (f *fakeService) ListStages(_ context.Context, projectTypeID string) ([]domain.StageDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stages[projectTypeID], nil
}

func (f *fakeService) ListProjects(_ context.Context, projectTypeID string) ([]domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Project, len(f.projects[projectTypeID]))
	copy(out, f.projects[projectTypeID])
	return out, nil
}

func (f *fakeService) ChangeProjectStatus(_ context.Context, projectID, stage string) (domain.Project, error) {
	f.lastMoveID = projectID
	f.lastMoveTo = stage
	for typeID := range f.projects {
		for idx := range f.projects[typeID] {
			if f.projects[typeID][idx].ID == projectID {
				f.projects[typeID][idx].CurrentStatus = stage
				return f.projects[typeID][idx], nil
			}
		}
	}
	return domain.Project{}, app.ErrNotFound
}

func (f *fakeService) BulkChangeStatus(_ context.Context, in app.BulkChangeStatusInput) ([]domain.Project, error) {
	f.lastBulk = in
	moved := make([]domain.Project, 0, len(in.ProjectIDs))
	for typeID := range f.projects {
		for idx := range f.projects[typeID] {
			for _, id := range in.ProjectIDs {
				if f.projects[typeID][idx].ID == id {
					f.projects[typeID][idx].CurrentStatus = in.TargetStage
					moved = append(moved, f.projects[typeID][idx])
				}
			}
		}
	}
	return moved, nil
}

func (f *fakeService) CheckBulkEligibility(_ context.Context, ids []string, _ string) (domain.EligibilityResult, error) {
	f.eligibilityCalls++
	f.lastEligibleIDs = ids
	if f.eligibilityErr != nil {
		return domain.EligibilityResult{}, f.eligibilityErr
	}
	return f.eligibility, nil
}

func (f *fakeService) CompleteProject(_ context.Context, projectID string, status domain.CompletionStatus, _ string) (domain.Project, error) {
	f.lastComplete = status
	for typeID := range f.projects {
		for idx := range f.projects[typeID] {
			if f.projects[typeID][idx].ID == projectID {
				f.projects[typeID][idx].Completion = status
				return f.projects[typeID][idx], nil
			}
		}
	}
	return domain.Project{}, app.ErrNotFound
}

func (f *fakeService) ReopenProject(_ context.Context, projectID string) (domain.Project, error) {
	for typeID := range f.projects {
		for idx := range f.projects[typeID] {
			if f.projects[typeID][idx].ID == projectID {
				f.projects[typeID][idx].Completion = domain.CompletionNone
				return f.projects[typeID][idx], nil
			}
		}
	}
	return domain.Project{}, app.ErrNotFound
}

func (f *fakeService) AppendProjectNote(_ context.Context, projectID, note string) (domain.Project, error) {
	f.lastNote = note
	for typeID := range f.projects {
		for idx := range f.projects[typeID] {
			if f.projects[typeID][idx].ID == projectID {
				f.projects[typeID][idx].Notes += note
				return f.projects[typeID][idx], nil
			}
		}
	}
	return domain.Project{}, app.ErrNotFound
}

func testBoardService(t *testing.T, projects ...domain.Project) *fakeService {
	t.Helper()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	projectType, err := domain.NewProjectType("pt-1", "Year End Accounts", now)
	if err != nil {
		t.Fatalf("new project type: %v", err)
	}
	stages := []domain.StageDefinition{
		{Name: "Awaiting Records", Order: 1, Color: "#fab387", AssignedRole: "Bookkeeper"},
		{Name: "In Progress", Order: 2, Color: "#89b4fa", AssignedRole: "Bookkeeper"},
	}
	return newFakeService(
		[]domain.ProjectType{projectType},
		map[string][]domain.StageDefinition{projectType.ID: stages},
		map[string][]domain.Project{projectType.ID: projects},
	)
}

func boardProject(t *testing.T, id, name, stage string) domain.Project {
	t.Helper()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	project, err := domain.NewProject(domain.ProjectInput{
		ID:            id,
		ProjectTypeID: "pt-1",
		Name:          name,
		ClientName:    name + " Ltd",
		CurrentStatus: stage,
	}, now)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	return project
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 140, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func TestModelLoadsBoard(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "In Progress"),
	)
	m := loadReadyModel(t, NewModel(svc))

	if len(m.catalog) != 4 {
		t.Fatalf("expected 2 real + 2 synthetic columns, got %d", len(m.catalog))
	}
	if m.catalog[2].Name() != board.SuccessColumnName || m.catalog[3].Name() != board.FailureColumnName {
		t.Fatalf("synthetic columns misplaced: %q %q", m.catalog[2].Name(), m.catalog[3].Name())
	}
	if got := len(m.cardsInColumn(0)); got != 1 {
		t.Fatalf("expected one card in first column, got %d", got)
	}
	if m.status != "ready" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestModelQuitKey(t *testing.T) {
	m := NewModel(testBoardService(t))
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
}

func TestModelMultiSelectToggle(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	if m.selection.Size() != 1 || !m.selection.Has("p1") {
		t.Fatalf("expected p1 selected, got %v", m.selection.IDs())
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))
	if m.selection.Size() != 2 {
		t.Fatalf("expected 2 selected, got %d", m.selection.Size())
	}
	m = applyMsg(t, m, keyRune('v'))
	if m.selection.Size() != 1 {
		t.Fatalf("expected toggle off, got %d", m.selection.Size())
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.selection.Size() != 0 {
		t.Fatalf("expected escape to clear selection, got %d", m.selection.Size())
	}
}

func TestModelCompletedCardsCannotBeSelected(t *testing.T) {
	completed := boardProject(t, "p1", "Filed Away", "In Progress")
	completed.Completion = domain.CompletionSuccess
	svc := testBoardService(t, completed)
	m := loadReadyModel(t, NewModel(svc))

	// Completed cards live in the synthetic success column.
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('l'))
	if m.selectedColumn != 2 {
		t.Fatalf("expected cursor on synthetic column, got %d", m.selectedColumn)
	}
	m = applyMsg(t, m, keyRune('v'))
	if m.selection.Size() != 0 {
		t.Fatalf("completed project was selected: %v", m.selection.IDs())
	}
	if !strings.Contains(m.status, "cannot be selected") {
		t.Fatalf("status = %q", m.status)
	}

	m = applyMsg(t, m, keyRune('['))
	if m.mode != modeNone {
		t.Fatalf("expected no dialog for read-only move, got %v", m.mode)
	}
	if !strings.Contains(m.status, "read-only") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestModelKeyboardMoveOpensConfirmAndMoves(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(']'))
	if m.mode != modeConfirmMove {
		t.Fatalf("expected confirm dialog, got mode %v (status %q)", m.mode, m.status)
	}
	if m.pending.targetStage != "In Progress" || m.pending.projectID != "p1" {
		t.Fatalf("pending move = %+v", m.pending)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.lastMoveID != "p1" || svc.lastMoveTo != "In Progress" {
		t.Fatalf("service saw move %q -> %q", svc.lastMoveID, svc.lastMoveTo)
	}
	if m.mode != modeNone {
		t.Fatalf("expected dialog closed, got %v", m.mode)
	}
	if got := len(m.cardsInColumn(1)); got != 1 {
		t.Fatalf("expected card in second column after reload, got %d", got)
	}
}

func TestModelKeyboardMoveCancel(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(']'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("expected dialog closed, got %v", m.mode)
	}
	if svc.lastMoveID != "" {
		t.Fatalf("unexpected move %q", svc.lastMoveID)
	}
}

func TestModelKeyboardMoveSkipsSyntheticColumns(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "In Progress"))
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('l'))
	if m.selectedColumn != 1 {
		t.Fatalf("expected cursor on second column, got %d", m.selectedColumn)
	}
	m = applyMsg(t, m, keyRune(']'))
	if m.mode != modeNone {
		t.Fatalf("expected no dialog, got %v", m.mode)
	}
	if !strings.Contains(m.status, "no column") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestModelBulkMoveEligiblePicksReason(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	svc.eligibility = domain.EligibilityResult{
		Eligible: true,
		ValidReasons: []domain.ValidReason{
			{ID: "vr-1", Reason: "Records received"},
			{ID: "vr-2", Reason: "Client approved"},
		},
	}
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune(']'))

	if svc.eligibilityCalls != 1 {
		t.Fatalf("eligibility calls = %d", svc.eligibilityCalls)
	}
	if len(svc.lastEligibleIDs) != 2 {
		t.Fatalf("eligibility ids = %v", svc.lastEligibleIDs)
	}
	if m.mode != modeBulkReasons {
		t.Fatalf("expected reasons dialog, got %v (status %q)", m.mode, m.status)
	}

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.lastBulk.Reason != "Client approved" || svc.lastBulk.TargetStage != "In Progress" {
		t.Fatalf("bulk input = %+v", svc.lastBulk)
	}
	if len(svc.lastBulk.ProjectIDs) != 2 {
		t.Fatalf("bulk ids = %v", svc.lastBulk.ProjectIDs)
	}
	if m.selection.Size() != 0 {
		t.Fatalf("expected selection cleared after bulk move, got %d", m.selection.Size())
	}
	if got := len(m.cardsInColumn(1)); got != 2 {
		t.Fatalf("expected both cards moved, got %d", got)
	}
}

func TestModelBulkMoveIneligibleShowsRestrictions(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	svc.eligibility = domain.EligibilityResult{
		Eligible:     false,
		Restrictions: []string{"Manager signoff outstanding"},
	}
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune(']'))

	if m.mode != modeBulkRestricted {
		t.Fatalf("expected restriction dialog, got %v", m.mode)
	}
	if len(m.bulkOutcome.Restrictions) != 1 {
		t.Fatalf("restrictions = %v", m.bulkOutcome.Restrictions)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeNone {
		t.Fatalf("expected dialog dismissed, got %v", m.mode)
	}
	if svc.lastBulk.TargetStage != "" {
		t.Fatal("no bulk move should have been issued")
	}
	if m.selection.Size() != 2 || !m.selection.Has("p1") || !m.selection.Has("p2") {
		t.Fatalf("expected selection preserved after dismissal, got %d", m.selection.Size())
	}
}

func TestModelBulkMoveConflictSkipsRemoteCall(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "In Progress"),
	)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('['))

	if m.mode != modeBulkConflict {
		t.Fatalf("expected conflict dialog, got %v (status %q)", m.mode, m.status)
	}
	if svc.eligibilityCalls != 0 {
		t.Fatalf("conflict must not reach the server, calls = %d", svc.eligibilityCalls)
	}
	if len(m.bulkOutcome.Stages) != 2 {
		t.Fatalf("conflict stages = %v", m.bulkOutcome.Stages)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeNone {
		t.Fatalf("expected dialog dismissed, got %v", m.mode)
	}
	if m.selection.Size() != 2 || !m.selection.Has("p1") || !m.selection.Has("p2") {
		t.Fatalf("expected selection preserved after dismissal, got %d", m.selection.Size())
	}
}

func TestModelStaleEligibilityResponseDiscarded(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	svc.eligibility = domain.EligibilityResult{Eligible: true}
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))

	// Raw Update so the eligibility cmd is held instead of executed.
	updated, cmd := m.Update(keyRune(']'))
	m = updated.(Model)
	if cmd == nil || !m.validator.Busy() {
		t.Fatal("expected in-flight eligibility call")
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.validator.Busy() {
		t.Fatal("expected escape to cancel the in-flight call")
	}
	if !strings.Contains(m.status, "cancelled") {
		t.Fatalf("status = %q", m.status)
	}

	// The response lands after cancellation and must not open a dialog.
	m = applyMsg(t, m, cmd())
	if m.mode != modeNone {
		t.Fatalf("stale response opened dialog %v", m.mode)
	}
}

func TestModelEligibilityResponseKeepsOpenDialog(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	svc.eligibility = domain.EligibilityResult{Eligible: true}
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))

	// Raw Update so the eligibility cmd is held instead of executed.
	updated, cmd := m.Update(keyRune(']'))
	m = updated.(Model)
	if cmd == nil || !m.validator.Busy() {
		t.Fatal("expected in-flight eligibility call")
	}

	// Open another dialog while the call is in flight.
	m = applyMsg(t, m, keyRune('c'))
	if m.mode != modeConfirmComplete {
		t.Fatalf("expected completion dialog, got %v", m.mode)
	}

	// The response lands while that dialog is open and must not replace it.
	m = applyMsg(t, m, cmd())
	if m.mode != modeConfirmComplete {
		t.Fatalf("eligibility response replaced the open dialog with %v", m.mode)
	}
	if m.validator.Busy() {
		t.Fatal("expected the landed response to settle the validator")
	}
}

func TestModelBusyValidatorRefusesNewGestures(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	svc.eligibility = domain.EligibilityResult{Eligible: true}
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))

	// Raw Update so the eligibility cmd is held instead of executed.
	updated, cmd := m.Update(keyRune(']'))
	m = updated.(Model)
	if cmd == nil || !m.validator.Busy() {
		t.Fatal("expected in-flight eligibility call")
	}

	updated, second := m.Update(keyRune(']'))
	m = updated.(Model)
	if second != nil {
		t.Fatal("expected no second eligibility call while busy")
	}
	if !strings.Contains(m.status, "in progress") {
		t.Fatalf("status = %q", m.status)
	}

	cardY := m.boardTop() + 2
	m = applyMsg(t, m, tea.MouseClickMsg{X: 4, Y: cardY, Button: tea.MouseLeft})
	if m.pressedID != "" {
		t.Fatalf("expected no drag arming while busy, pressedID = %q", m.pressedID)
	}

	m = applyMsg(t, m, cmd())
	if m.mode != modeBulkReasons {
		t.Fatalf("expected reasons dialog once the call lands, got %v", m.mode)
	}
}

func TestModelEligibilityUnavailableStatus(t *testing.T) {
	svc := testBoardService(t,
		boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"),
		boardProject(t, "p2", "Mill Lane", "Awaiting Records"),
	)
	svc.eligibilityErr = app.ErrCheckerUnavailable
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, keyRune(']'))

	if m.mode != modeNone {
		t.Fatalf("expected no dialog, got %v", m.mode)
	}
	if !strings.Contains(m.status, "not configured") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestModelMouseDragSingleCard(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	stride := m.columnStride()
	cardY := m.boardTop() + 2

	m = applyMsg(t, m, tea.MouseClickMsg{X: 4, Y: cardY, Button: tea.MouseLeft})
	if m.pressedID != "p1" {
		t.Fatalf("expected press to arm drag, pressedID = %q", m.pressedID)
	}

	m = applyMsg(t, m, tea.MouseMotionMsg{X: stride + 4, Y: cardY, Button: tea.MouseLeft})
	if !m.session.Dragging() {
		t.Fatal("expected drag in flight after motion")
	}
	if m.session.HoveredColumn() != "In Progress" {
		t.Fatalf("hovered = %q", m.session.HoveredColumn())
	}

	m = applyMsg(t, m, tea.MouseReleaseMsg{X: stride + 4, Y: cardY, Button: tea.MouseLeft})
	if m.mode != modeConfirmMove {
		t.Fatalf("expected confirm dialog, got %v (status %q)", m.mode, m.status)
	}
	if m.pending.targetStage != "In Progress" {
		t.Fatalf("pending = %+v", m.pending)
	}
	if m.session.Dragging() {
		t.Fatal("expected session reset after drop")
	}
}

func TestModelMouseDragSameColumnIsNoop(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	cardY := m.boardTop() + 2
	m = applyMsg(t, m, tea.MouseClickMsg{X: 4, Y: cardY, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseMotionMsg{X: 6, Y: cardY + 3, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: 6, Y: cardY + 3, Button: tea.MouseLeft})

	if m.mode != modeNone {
		t.Fatalf("noop drop opened dialog %v", m.mode)
	}
	if !strings.Contains(m.status, "already") {
		t.Fatalf("status = %q", m.status)
	}
	if svc.lastMoveID != "" {
		t.Fatalf("unexpected move %q", svc.lastMoveID)
	}
}

func TestModelRightClickTogglesSelection(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	cardY := m.boardTop() + 2
	m = applyMsg(t, m, tea.MouseClickMsg{X: 4, Y: cardY, Button: tea.MouseRight})
	if !m.selection.Has("p1") {
		t.Fatalf("expected right-click selection, got %v", m.selection.IDs())
	}
	m = applyMsg(t, m, tea.MouseClickMsg{X: 4, Y: cardY, Button: tea.MouseRight})
	if m.selection.Size() != 0 {
		t.Fatalf("expected toggle off, got %d", m.selection.Size())
	}
}

func TestModelCompleteAndReopen(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('c'))
	if m.mode != modeConfirmComplete {
		t.Fatalf("expected completion dialog, got %v", m.mode)
	}
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.lastComplete != domain.CompletionFailure {
		t.Fatalf("completion = %q", svc.lastComplete)
	}
	if got := len(m.cardsInColumn(3)); got != 1 {
		t.Fatalf("expected card in failure column, got %d", got)
	}

	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('l'))
	if m.selectedColumn != 3 {
		t.Fatalf("expected cursor on failure column, got %d", m.selectedColumn)
	}
	m = applyMsg(t, m, keyRune('u'))
	if got := len(m.cardsInColumn(0)); got != 1 {
		t.Fatalf("expected reopened card back in first column, got %d", got)
	}
}

func TestModelAddNote(t *testing.T) {
	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeAddNote {
		t.Fatalf("expected note mode, got %v", m.mode)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if !strings.Contains(m.status, "note required") {
		t.Fatalf("status = %q", m.status)
	}

	m.noteInput.SetValue("Chased missing bank statements")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.lastNote != "Chased missing bank statements" {
		t.Fatalf("note = %q", svc.lastNote)
	}
	if m.mode != modeNone {
		t.Fatalf("expected note mode closed, got %v", m.mode)
	}
}

func TestModelViewStates(t *testing.T) {
	m := NewModel(testBoardService(t))
	v := m.View()
	if v.MouseMode != tea.MouseModeCellMotion {
		t.Fatal("expected mouse mode enabled on loading view")
	}

	svc := testBoardService(t, boardProject(t, "p1", "Harbour Accounts", "Awaiting Records"))
	m = loadReadyModel(t, NewModel(svc))
	rendered := m.renderColumns(
		lipgloss.Color("62"), lipgloss.Color("241"), lipgloss.Color("239"),
	)
	if !strings.Contains(rendered, "Awaiting Records") || !strings.Contains(rendered, "Harbour Accounts") {
		t.Fatal("expected board render to include stage and card names")
	}
	if !strings.Contains(rendered, board.SuccessColumnName) {
		t.Fatal("expected synthetic success column in render")
	}

	m.err = context.DeadlineExceeded
	v = m.View()
	if v.MouseMode != tea.MouseModeCellMotion {
		t.Fatal("expected error view with mouse mode")
	}
}
