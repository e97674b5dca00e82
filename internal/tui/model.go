package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/rivergate/tally/internal/app"
	"github.com/rivergate/tally/internal/board"
	"github.com/rivergate/tally/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	ListProjectTypes(context.Context) ([]domain.ProjectType, error)
	ListStages(context.Context, string) ([]domain.StageDefinition, error)
	ListProjects(context.Context, string) ([]domain.Project, error)
	ChangeProjectStatus(context.Context, string, string) (domain.Project, error)
	BulkChangeStatus(context.Context, app.BulkChangeStatusInput) ([]domain.Project, error)
	CheckBulkEligibility(context.Context, []string, string) (domain.EligibilityResult, error)
	CompleteProject(context.Context, string, domain.CompletionStatus, string) (domain.Project, error)
	ReopenProject(context.Context, string) (domain.Project, error)
	AppendProjectNote(context.Context, string, string) (domain.Project, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults. At most one dialog
// is open at a time; the mode field is the single source of truth for that.
const (
	modeNone inputMode = iota
	modeConfirmMove
	modeBulkConflict
	modeBulkRestricted
	modeBulkReasons
	modeConfirmComplete
	modeNotes
	modeAddNote
	modeTypePicker
)

// pendingMove carries one single-card move awaiting dialog confirmation.
type pendingMove struct {
	projectID   string
	projectName string
	fromStage   string
	targetStage string
}

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	showClientNames bool
	showStageRoles  bool

	projectTypes []domain.ProjectType
	selectedType int
	stages       []domain.StageDefinition
	catalog      []board.Stage
	projects     []domain.Project
	buckets      map[string][]domain.Project

	selectedColumn int
	selectedCard   int

	selection *board.Selection
	session   *board.Session
	validator *board.Validator
	resolver  board.Resolver

	pointer   board.Point
	pressedID string
	pressedAt board.Point

	mode            inputMode
	pending         pendingMove
	bulkOutcome     board.BulkMoveOutcome
	bulkIDs         []string
	reasonIndex     int
	completionIdx   int
	typePickerIdx   int
	dialogProjectID string
	noteInput       textinput.Model
	notesMD         *notesRenderer

	pendingTypeID string
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	types        []domain.ProjectType
	selectedType int
	stages       []domain.StageDefinition
	projects     []domain.Project
	err          error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err         error
	status      string
	reload      bool
	clearSelect bool
}

// eligibilityMsg carries one remote eligibility answer, tagged with the
// validator generation it was requested under.
type eligibilityMsg struct {
	gen         uint64
	targetStage string
	ids         []string
	result      domain.EligibilityResult
	err         error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	noteInput := textinput.New()
	noteInput.Prompt = "note: "
	noteInput.Placeholder = "recorded on the project"
	noteInput.CharLimit = 240
	m := Model{
		svc:             svc,
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		showClientNames: true,
		selection:       board.NewSelection(),
		session:         board.NewSession(),
		validator:       board.NewValidator(),
		resolver:        board.NewColumnPriorityResolver(),
		noteInput:       noteInput,
		notesMD:         &notesRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.projectTypes = msg.types
		m.selectedType = msg.selectedType
		m.stages = msg.stages
		m.projects = msg.projects
		m.catalog = board.BuildCatalog(msg.stages)
		m.buckets = board.GroupProjects(msg.projects)
		m.pendingTypeID = ""
		m.clampSelections()
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.clearSelect {
			m.selection.Clear()
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case eligibilityMsg:
		return m.handleEligibility(msg)

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleDialogKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// handleEligibility applies one remote eligibility answer. Answers from an
// abandoned gesture carry a stale generation and are dropped without opening
// any dialog. An answer landing while another dialog is open settles the
// validator but never replaces that dialog.
func (m Model) handleEligibility(msg eligibilityMsg) (tea.Model, tea.Cmd) {
	if !m.validator.Accept(msg.gen) {
		return m, nil
	}
	if m.mode != modeNone {
		return m, nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, app.ErrCheckerUnavailable) {
			m.status = "eligibility service not configured"
		} else {
			m.status = "eligibility check failed: " + msg.err.Error()
		}
		return m, nil
	}
	outcome := board.OutcomeFromResult(msg.targetStage, msg.result)
	m.bulkOutcome = outcome
	m.bulkIDs = msg.ids
	if outcome.Kind == board.OutcomeEligible {
		m.mode = modeBulkReasons
		m.reasonIndex = 0
		m.status = "choose a reason"
	} else {
		m.mode = modeBulkRestricted
		m.status = "move not allowed"
	}
	return m, nil
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
			return m, nil
		}
		if m.validator.Busy() {
			m.validator.Cancel()
			m.status = "eligibility check cancelled"
			return m, nil
		}
		if m.session.Dragging() {
			m.session.End()
			m.pressedID = ""
			m.status = "drag cancelled"
			return m, nil
		}
		if count := m.selection.Clear(); count > 0 {
			m.status = fmt.Sprintf("cleared %d selected cards", count)
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedCard = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.catalog)-1 {
			m.selectedColumn++
			m.selectedCard = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		cards := m.cardsInColumn(m.selectedColumn)
		if len(cards) > 0 && m.selectedCard < len(cards)-1 {
			m.selectedCard++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedCard > 0 {
			m.selectedCard--
		}
		return m, nil
	case key.Matches(msg, m.keys.multiSelect):
		project, ok := m.selectedProject()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		if project.ReadOnly() {
			m.status = "completed projects cannot be selected"
			return m, nil
		}
		if m.selection.Toggle(project.ID) {
			m.status = fmt.Sprintf("selected %q (%d total)", truncate(project.Name, 28), m.selection.Size())
		} else {
			m.status = fmt.Sprintf("unselected %q (%d total)", truncate(project.Name, 28), m.selection.Size())
		}
		return m, nil
	case key.Matches(msg, m.keys.moveCardLeft):
		return m.moveSelectedCard(-1)
	case key.Matches(msg, m.keys.moveCardRight):
		return m.moveSelectedCard(1)
	case key.Matches(msg, m.keys.complete):
		project, ok := m.selectedProject()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		if project.ReadOnly() {
			m.status = "project already completed"
			return m, nil
		}
		m.help.ShowAll = false
		m.dialogProjectID = project.ID
		m.completionIdx = 0
		m.mode = modeConfirmComplete
		m.status = "complete project"
		return m, nil
	case key.Matches(msg, m.keys.reopen):
		project, ok := m.selectedProject()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		if !project.ReadOnly() {
			m.status = "project is not completed"
			return m, nil
		}
		return m, m.reopenCmd(project.ID)
	case key.Matches(msg, m.keys.notes):
		project, ok := m.selectedProject()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.help.ShowAll = false
		m.dialogProjectID = project.ID
		m.mode = modeNotes
		m.status = "notes"
		return m, nil
	case key.Matches(msg, m.keys.addNote):
		project, ok := m.selectedProject()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.help.ShowAll = false
		m.dialogProjectID = project.ID
		m.noteInput.SetValue("")
		m.mode = modeAddNote
		m.status = "add note"
		return m, m.noteInput.Focus()
	case key.Matches(msg, m.keys.yank):
		project, ok := m.selectedProject()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		if err := clipboard.WriteAll(project.ID); err != nil {
			m.status = "clipboard unavailable"
			return m, nil
		}
		m.status = fmt.Sprintf("copied id of %q", truncate(project.Name, 28))
		return m, nil
	case key.Matches(msg, m.keys.types):
		if len(m.projectTypes) < 2 {
			m.status = "only one project type"
			return m, nil
		}
		m.help.ShowAll = false
		m.typePickerIdx = m.selectedType
		m.mode = modeTypePicker
		m.status = "choose project type"
		return m, nil
	case key.Matches(msg, m.keys.toggleClients):
		m.showClientNames = !m.showClientNames
		if m.showClientNames {
			m.status = "showing client names"
		} else {
			m.status = "hiding client names"
		}
		return m, nil
	default:
		return m, nil
	}
}

// handleDialogKey handles dialog key.
func (m Model) handleDialogKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeAddNote {
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.noteInput.Blur()
			m.status = "note cancelled"
			return m, nil
		case "enter":
			note := strings.TrimSpace(m.noteInput.Value())
			if note == "" {
				m.status = "note required"
				return m, nil
			}
			projectID := m.dialogProjectID
			m.mode = modeNone
			m.noteInput.Blur()
			return m, m.appendNoteCmd(projectID, note)
		}
		var cmd tea.Cmd
		m.noteInput, cmd = m.noteInput.Update(msg)
		return m, cmd
	}

	switch m.mode {
	case modeConfirmMove:
		switch msg.String() {
		case "enter", "y":
			move := m.pending
			m.mode = modeNone
			return m, m.changeStatusCmd(move.projectID, move.targetStage)
		case "esc", "n":
			m.mode = modeNone
			m.status = "move cancelled"
		}
		return m, nil

	case modeBulkConflict, modeBulkRestricted:
		switch msg.String() {
		case "enter", "esc", "q":
			m.mode = modeNone
			m.status = "ready"
		}
		return m, nil

	case modeBulkReasons:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.status = "bulk move cancelled"
		case "j", "down":
			if m.reasonIndex < len(m.bulkOutcome.ValidReasons)-1 {
				m.reasonIndex++
			}
		case "k", "up":
			if m.reasonIndex > 0 {
				m.reasonIndex--
			}
		case "enter":
			reason := ""
			if len(m.bulkOutcome.ValidReasons) > 0 {
				idx := clamp(m.reasonIndex, 0, len(m.bulkOutcome.ValidReasons)-1)
				reason = m.bulkOutcome.ValidReasons[idx].Reason
			}
			ids := m.bulkIDs
			stage := m.bulkOutcome.TargetStage
			m.mode = modeNone
			return m, m.bulkMoveCmd(ids, stage, reason)
		}
		return m, nil

	case modeConfirmComplete:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.status = "completion cancelled"
		case "h", "left", "l", "right", "tab":
			m.completionIdx = 1 - m.completionIdx
		case "enter":
			status := domain.CompletionSuccess
			if m.completionIdx == 1 {
				status = domain.CompletionFailure
			}
			projectID := m.dialogProjectID
			m.mode = modeNone
			return m, m.completeCmd(projectID, status)
		}
		return m, nil

	case modeNotes:
		switch msg.String() {
		case "enter", "esc", "q", "i":
			m.mode = modeNone
			m.status = "ready"
		}
		return m, nil

	case modeTypePicker:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.status = "ready"
		case "j", "down":
			if m.typePickerIdx < len(m.projectTypes)-1 {
				m.typePickerIdx++
			}
		case "k", "up":
			if m.typePickerIdx > 0 {
				m.typePickerIdx--
			}
		case "enter":
			idx := clamp(m.typePickerIdx, 0, len(m.projectTypes)-1)
			m.pendingTypeID = m.projectTypes[idx].ID
			m.mode = modeNone
			m.status = "loading " + m.projectTypes[idx].Name
			return m, m.loadData
		}
		return m, nil

	default:
		return m, nil
	}
}

// handleMouseWheel handles mouse wheel.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	cards := m.cardsInColumn(m.selectedColumn)
	if len(cards) == 0 {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selectedCard > 0 {
			m.selectedCard--
		}
	case tea.MouseWheelDown:
		if m.selectedCard < len(cards)-1 {
			m.selectedCard++
		}
	}
	return m, nil
}

// handleMouseClick handles mouse click. A left press selects the card under
// the pointer and arms a potential drag; the drag itself only starts on the
// first motion event. A right press toggles multi-select membership.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	if len(m.catalog) == 0 {
		return m, nil
	}

	pt := board.Point{X: msg.X, Y: msg.Y}
	colIdx := m.columnIndexAt(msg.X)
	if colIdx >= 0 {
		m.selectedColumn = colIdx
		m.selectedCard = 0
	}
	cardIdx := m.cardIndexAt(colIdx, msg.Y)
	if cardIdx >= 0 {
		m.selectedCard = cardIdx
	}
	m.clampSelections()

	project, onCard := m.projectAt(colIdx, cardIdx)
	switch msg.Button {
	case tea.MouseLeft:
		m.pressedID = ""
		if onCard && !project.ReadOnly() && !m.validator.Busy() {
			m.pressedID = project.ID
			m.pressedAt = pt
		}
	case tea.MouseRight:
		if !onCard {
			return m, nil
		}
		if project.ReadOnly() {
			m.status = "completed projects cannot be selected"
			return m, nil
		}
		if m.selection.Toggle(project.ID) {
			m.status = fmt.Sprintf("selected %q (%d total)", truncate(project.Name, 28), m.selection.Size())
		} else {
			m.status = fmt.Sprintf("unselected %q (%d total)", truncate(project.Name, 28), m.selection.Size())
		}
	}
	return m, nil
}

// handleMouseMotion handles mouse motion during a pressed gesture.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	pt := board.Point{X: msg.X, Y: msg.Y}
	m.pointer = pt

	if !m.session.Dragging() {
		if m.pressedID == "" || pt == m.pressedAt {
			return m, nil
		}
		if m.validator.Busy() {
			m.pressedID = ""
			return m, nil
		}
		project, ok := m.projectByID(m.pressedID)
		if !ok {
			m.pressedID = ""
			return m, nil
		}
		if err := m.session.Start(project, m.selection); err != nil {
			m.pressedID = ""
			m.status = "completed projects are read-only"
			return m, nil
		}
		if m.session.Bulk() {
			m.status = fmt.Sprintf("dragging %d cards", m.selection.Size())
		} else {
			m.status = fmt.Sprintf("dragging %q", truncate(project.Name, 28))
		}
	}

	m.session.Hover(m.resolver.Resolve(m.activeRect(), &pt, m.droppables()))
	return m, nil
}

// handleMouseRelease handles mouse release, resolving any in-flight drag.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	m.pressedID = ""
	if !m.session.Dragging() {
		return m, nil
	}
	pt := board.Point{X: msg.X, Y: msg.Y}
	m.pointer = pt
	candidates := m.resolver.Resolve(m.activeRect(), &pt, m.droppables())
	return m.resolveDrop(candidates)
}

// moveSelectedCard moves the selected card one column left or right by running
// the same gesture pipeline as a mouse drag, without a pointer position.
func (m Model) moveSelectedCard(delta int) (tea.Model, tea.Cmd) {
	if m.validator.Busy() {
		m.status = "eligibility check in progress"
		return m, nil
	}
	project, ok := m.selectedProject()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	targetIdx := -1
	for idx := m.selectedColumn + delta; idx >= 0 && idx < len(m.catalog); idx += delta {
		if !m.catalog[idx].ReadOnly() {
			targetIdx = idx
			break
		}
	}
	if targetIdx < 0 {
		m.status = "no column in that direction"
		return m, nil
	}
	if err := m.session.Start(project, m.selection); err != nil {
		m.status = "completed projects are read-only"
		return m, nil
	}
	candidates := m.resolver.Resolve(m.columnRect(targetIdx), nil, m.columnDroppables())
	return m.resolveDrop(candidates)
}

// resolveDrop turns ranked drop candidates into a decision and routes it: a
// silent rejection or noop, the single-move confirmation dialog, or the bulk
// validation pipeline (same-origin, then noop, then the remote eligibility
// call).
func (m Model) resolveDrop(candidates []board.DropTarget) (tea.Model, tea.Cmd) {
	var target board.DropTarget
	ok := len(candidates) > 0
	if ok {
		target = candidates[0]
	}
	decision := m.session.Drop(target, ok, m.catalog, m.projects)
	m.session.End()

	switch decision.Kind {
	case board.DropRejected:
		m.status = "move cancelled"
	case board.DropNoop:
		m.status = "card is already there"
	case board.DropSingle:
		project, found := m.projectByID(decision.ProjectID)
		if !found {
			m.status = "move cancelled"
			return m, nil
		}
		m.pending = pendingMove{
			projectID:   project.ID,
			projectName: project.Name,
			fromStage:   board.BucketName(project),
			targetStage: decision.TargetStage,
		}
		m.mode = modeConfirmMove
		m.status = "confirm move"
	case board.DropBulk:
		carried := m.projectsByIDs(decision.Carried)
		outcome := m.validator.PreCheck(carried, decision.TargetStage)
		switch outcome.Kind {
		case board.OutcomeConflict:
			m.bulkOutcome = outcome
			m.mode = modeBulkConflict
			m.status = "selection spans multiple columns"
		case board.OutcomeNoop:
			m.status = "selection is already in " + decision.TargetStage
		case board.OutcomeBusy:
			m.status = "eligibility check in progress"
		case board.OutcomePending:
			gen := m.validator.Begin()
			m.bulkIDs = decision.Carried
			m.status = "checking eligibility..."
			return m, m.eligibilityCmd(gen, decision.Carried, decision.TargetStage)
		}
	}
	return m, nil
}

// loadData loads project types, then the stage list and projects of the
// active type.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	types, err := m.svc.ListProjectTypes(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	if len(types) == 0 {
		return loadedMsg{}
	}

	wantID := m.pendingTypeID
	if wantID == "" && len(m.projectTypes) > 0 {
		idx := clamp(m.selectedType, 0, len(m.projectTypes)-1)
		wantID = m.projectTypes[idx].ID
	}
	selected := 0
	for idx, projectType := range types {
		if projectType.ID == wantID {
			selected = idx
			break
		}
	}

	stages, err := m.svc.ListStages(ctx, types[selected].ID)
	if err != nil {
		return loadedMsg{err: err}
	}
	projects, err := m.svc.ListProjects(ctx, types[selected].ID)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{types: types, selectedType: selected, stages: stages, projects: projects}
}

// eligibilityCmd asks the remote checker whether the carried projects may move.
func (m Model) eligibilityCmd(gen uint64, ids []string, targetStage string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		result, err := svc.CheckBulkEligibility(context.Background(), ids, targetStage)
		return eligibilityMsg{gen: gen, targetStage: targetStage, ids: ids, result: result, err: err}
	}
}

// changeStatusCmd moves one project to a new stage.
func (m Model) changeStatusCmd(projectID, stage string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		project, err := svc.ChangeProjectStatus(context.Background(), projectID, stage)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status: fmt.Sprintf("moved %q to %s", truncate(project.Name, 28), stage),
			reload: true,
		}
	}
}

// bulkMoveCmd moves the carried projects, recording the chosen reason.
func (m Model) bulkMoveCmd(ids []string, stage, reason string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		moved, err := svc.BulkChangeStatus(context.Background(), app.BulkChangeStatusInput{
			ProjectIDs:  ids,
			TargetStage: stage,
			Reason:      reason,
		})
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:      fmt.Sprintf("moved %d cards to %s", len(moved), stage),
			reload:      true,
			clearSelect: true,
		}
	}
}

// completeCmd marks one project terminally successful or unsuccessful.
func (m Model) completeCmd(projectID string, status domain.CompletionStatus) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		project, err := svc.CompleteProject(context.Background(), projectID, status, "")
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status: fmt.Sprintf("completed %q", truncate(project.Name, 28)),
			reload: true,
		}
	}
}

// reopenCmd clears a terminal completion.
func (m Model) reopenCmd(projectID string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		project, err := svc.ReopenProject(context.Background(), projectID)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status: fmt.Sprintf("reopened %q", truncate(project.Name, 28)),
			reload: true,
		}
	}
}

// appendNoteCmd records one note line on a project.
func (m Model) appendNoteCmd(projectID, note string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		_, err := svc.AppendProjectNote(context.Background(), projectID, note)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "note added", reload: true}
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	if len(m.projectTypes) == 0 {
		sections := []string{
			titleStyle.Render("tally"),
			"",
			"No project types yet.",
			"Run `tally import` or start the server to seed one.",
			"Press q to quit.",
		}
		if strings.TrimSpace(m.status) != "" && m.status != "ready" {
			sections = append(sections, "", statusStyle.Render(m.status))
		}
		v := tea.NewView(strings.Join(sections, "\n"))
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	projectType := m.projectTypes[clamp(m.selectedType, 0, len(m.projectTypes)-1)]
	header := titleStyle.Render("tally") + "  " + projectType.Name
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if count := m.selection.Size(); count > 0 {
		header += statusStyle.Render(fmt.Sprintf("  selected: %d", count))
	}
	if m.session.Dragging() {
		header += statusStyle.Render("  dragging")
	}
	if m.validator.Busy() {
		header += statusStyle.Render("  checking eligibility…")
	}

	tabs := m.renderTypeTabs(accent, dim)
	boardView := m.renderColumns(accent, muted, dim)

	sections := []string{header}
	if tabs != "" {
		sections = append(sections, tabs)
	}
	sections = append(sections, "", boardView)

	statusLine := statusStyle.Render(m.status)
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	sections = append(sections, statusLine, helpLine)

	fullContent := strings.Join(sections, "\n")
	if m.height > 0 {
		fullContent = fitLines(fullContent, m.height)
	}

	if overlay := m.renderModeOverlay(accent, muted, dim, m.width-8); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	v := tea.NewView(fullContent)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderTypeTabs renders the project-type tab strip when several types exist.
func (m Model) renderTypeTabs(accent, dim color.Color) string {
	if len(m.projectTypes) < 2 {
		return ""
	}
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	inactiveStyle := lipgloss.NewStyle().Foreground(dim)
	tabs := make([]string, 0, len(m.projectTypes))
	for idx, projectType := range m.projectTypes {
		label := truncate(projectType.Name, 22)
		if idx == m.selectedType {
			tabs = append(tabs, activeStyle.Render("["+label+"]"))
		} else {
			tabs = append(tabs, inactiveStyle.Render(" "+label+" "))
		}
	}
	return strings.Join(tabs, " ")
}

// renderColumns renders the catalog columns side by side. The column hovered
// by an in-flight drag gets a highlighted border; the synthetic completed
// columns render dimmed.
func (m Model) renderColumns(accent, muted, dim color.Color) string {
	colWidth := m.columnWidthFor(m.width)
	colHeight := m.columnHeight()
	hovered := m.session.HoveredColumn()

	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)
	hoverStyle := baseColStyle.BorderForeground(lipgloss.Color("212"))
	selColStyle := baseColStyle.BorderForeground(accent)

	emptyStyle := lipgloss.NewStyle().Foreground(dim)
	roleStyle := lipgloss.NewStyle().Foreground(muted)
	completedStyle := lipgloss.NewStyle().Foreground(dim)
	selectedCardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	selectedMultiCardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Underline(true)
	multiCardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237")).Bold(true)
	clientStyle := lipgloss.NewStyle().Foreground(muted)
	draggedStyle := lipgloss.NewStyle().Foreground(muted).Faint(true)

	columnViews := make([]string, 0, len(m.catalog))
	for colIdx, stage := range m.catalog {
		cards := m.cardsInColumn(colIdx)

		titleColor := accent
		if c := stage.Color(); c != "" {
			titleColor = lipgloss.Color(c)
		}
		if stage.Synthetic() {
			titleColor = muted
		}
		colTitle := lipgloss.NewStyle().Bold(true).Foreground(titleColor)

		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", stage.Name(), len(cards)))}
		if m.showStageRoles && stage.AssignedRole() != "" {
			lines = append(lines, roleStyle.Render(stage.AssignedRole()))
		}
		lines = append(lines, "")

		if len(cards) == 0 {
			lines = append(lines, emptyStyle.Render("(empty)"))
		}
		for cardIdx, project := range cards {
			selected := colIdx == m.selectedColumn && cardIdx == m.selectedCard
			multi := m.selection.Has(project.ID)
			dragged := m.session.Dragging() && m.session.ActiveID() == project.ID

			prefix := "   "
			switch {
			case selected && multi:
				prefix = "│* "
			case selected:
				prefix = "│  "
			case multi:
				prefix = " * "
			}
			title := prefix + truncate(project.Name, max(1, colWidth-8))
			switch {
			case project.ReadOnly():
				title = completedStyle.Render(title)
			case dragged:
				title = draggedStyle.Render(title)
			case selected && multi:
				title = selectedMultiCardStyle.Render(title)
			case selected:
				title = selectedCardStyle.Render(title)
			case multi:
				title = multiCardStyle.Render(title)
			}
			lines = append(lines, title)

			if m.showClientNames {
				client := project.ClientName
				if client == "" {
					client = "—"
				}
				lines = append(lines, clientStyle.Render("   "+truncate(client, max(1, colWidth-8))))
			}
		}

		body := fitLines(strings.Join(lines, "\n"), colHeight)
		style := baseColStyle
		switch {
		case m.session.Dragging() && stage.Name() == hovered:
			style = hoverStyle
		case colIdx == m.selectedColumn:
			style = selColStyle
		}
		columnViews = append(columnViews, style.Render(body))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

// renderModeOverlay renders the active dialog, if any, or the busy indicator
// while a remote eligibility call is in flight.
func (m Model) renderModeOverlay(accent, muted, dim color.Color, maxWidth int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		boxStyle = boxStyle.Width(clamp(maxWidth, 36, 72))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	warnStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	switch m.mode {
	case modeConfirmMove:
		lines := []string{
			titleStyle.Render("Change Status"),
			truncate(m.pending.projectName, 48),
			hintStyle.Render(m.pending.fromStage + " → " + m.pending.targetStage),
			"",
			hintStyle.Render("enter confirm • esc cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeBulkConflict:
		lines := []string{
			titleStyle.Render("Selection Spans Columns"),
			"Bulk moves need every selected card in one column.",
			"",
		}
		for _, stage := range m.bulkOutcome.Stages {
			lines = append(lines, warnStyle.Render("• "+stage))
		}
		lines = append(lines, "", hintStyle.Render("enter/esc dismiss"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeBulkRestricted:
		lines := []string{
			titleStyle.Render("Move Not Allowed"),
			fmt.Sprintf("The server blocked moving %d cards to %s.", len(m.bulkIDs), m.bulkOutcome.TargetStage),
			"",
		}
		if len(m.bulkOutcome.Restrictions) == 0 {
			lines = append(lines, warnStyle.Render("• no reason given"))
		}
		for _, restriction := range m.bulkOutcome.Restrictions {
			lines = append(lines, warnStyle.Render("• "+truncate(restriction, 56)))
		}
		lines = append(lines, "", hintStyle.Render("enter/esc dismiss"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeBulkReasons:
		lines := []string{
			titleStyle.Render("Choose a Reason"),
			fmt.Sprintf("Moving %d cards to %s.", len(m.bulkIDs), m.bulkOutcome.TargetStage),
			"",
		}
		if len(m.bulkOutcome.ValidReasons) == 0 {
			lines = append(lines, hintStyle.Render("(no reason required)"))
		}
		for idx, reason := range m.bulkOutcome.ValidReasons {
			prefix := "  "
			if idx == clamp(m.reasonIndex, 0, len(m.bulkOutcome.ValidReasons)-1) {
				prefix = "│ "
			}
			lines = append(lines, prefix+truncate(reason.Reason, 54))
		}
		lines = append(lines, "", hintStyle.Render("j/k choose • enter confirm • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeConfirmComplete:
		project, _ := m.projectByID(m.dialogProjectID)
		success := "  Success  "
		failure := "  Unsuccessful  "
		choiceStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237"))
		if m.completionIdx == 0 {
			success = choiceStyle.Render(success)
		} else {
			failure = choiceStyle.Render(failure)
		}
		lines := []string{
			titleStyle.Render("Complete Project"),
			truncate(project.Name, 48),
			"",
			success + "  " + failure,
			"",
			hintStyle.Render("h/l choose • enter confirm • esc cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeNotes:
		project, ok := m.projectByID(m.dialogProjectID)
		if !ok {
			return ""
		}
		lines := []string{titleStyle.Render("Notes — " + truncate(project.Name, 40)), ""}
		if strings.TrimSpace(project.Notes) == "" {
			lines = append(lines, hintStyle.Render("(no notes yet)"))
		} else {
			lines = append(lines, m.notesMD.render(project.Notes, clamp(maxWidth-4, minNotesWrap, 68)))
		}
		lines = append(lines, "", hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeAddNote:
		project, _ := m.projectByID(m.dialogProjectID)
		lines := []string{
			titleStyle.Render("Add Note — " + truncate(project.Name, 40)),
			m.noteInput.View(),
			"",
			hintStyle.Render("enter save • esc cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeTypePicker:
		lines := []string{titleStyle.Render("Project Types"), ""}
		for idx, projectType := range m.projectTypes {
			prefix := "  "
			if idx == clamp(m.typePickerIdx, 0, len(m.projectTypes)-1) {
				prefix = "│ "
			}
			lines = append(lines, prefix+truncate(projectType.Name, 40))
		}
		lines = append(lines, "", hintStyle.Render("j/k choose • enter open • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))
	}

	if m.validator.Busy() {
		lines := []string{
			titleStyle.Render("Checking Eligibility"),
			hintStyle.Render("asking the practice-management server…"),
			"",
			hintStyle.Render("esc cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))
	}
	return ""
}

// modeLabel returns the short header badge for the active mode.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeConfirmMove:
		return "confirm"
	case modeBulkConflict:
		return "conflict"
	case modeBulkRestricted:
		return "restricted"
	case modeBulkReasons:
		return "reasons"
	case modeConfirmComplete:
		return "complete"
	case modeNotes:
		return "notes"
	case modeAddNote:
		return "note"
	case modeTypePicker:
		return "types"
	default:
		if m.session.Dragging() {
			return "drag"
		}
		return "board"
	}
}

// cardsInColumn returns the projects bucketed into one catalog column.
func (m Model) cardsInColumn(colIdx int) []domain.Project {
	if colIdx < 0 || colIdx >= len(m.catalog) {
		return nil
	}
	return m.buckets[m.catalog[colIdx].Name()]
}

// selectedProject returns the card under the keyboard cursor.
func (m Model) selectedProject() (domain.Project, bool) {
	cards := m.cardsInColumn(m.selectedColumn)
	if len(cards) == 0 {
		return domain.Project{}, false
	}
	return cards[clamp(m.selectedCard, 0, len(cards)-1)], true
}

// projectAt returns the card at one column/card position.
func (m Model) projectAt(colIdx, cardIdx int) (domain.Project, bool) {
	cards := m.cardsInColumn(colIdx)
	if cardIdx < 0 || cardIdx >= len(cards) {
		return domain.Project{}, false
	}
	return cards[cardIdx], true
}

// projectByID finds one loaded project.
func (m Model) projectByID(projectID string) (domain.Project, bool) {
	for _, project := range m.projects {
		if project.ID == projectID {
			return project, true
		}
	}
	return domain.Project{}, false
}

// projectsByIDs resolves IDs against the loaded projects, preserving board
// order.
func (m Model) projectsByIDs(ids []string) []domain.Project {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]domain.Project, 0, len(wanted))
	for _, project := range m.projects {
		if _, ok := wanted[project.ID]; ok {
			out = append(out, project)
		}
	}
	return out
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if len(m.catalog) == 0 {
		m.selectedColumn = 0
		m.selectedCard = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.catalog)-1)
	cards := m.cardsInColumn(m.selectedColumn)
	if len(cards) == 0 {
		m.selectedCard = 0
		return
	}
	m.selectedCard = clamp(m.selectedCard, 0, len(cards)-1)
}

// droppables builds the registered drop areas from the current layout:
// one per column plus one per card.
func (m Model) droppables() []board.Droppable {
	out := make([]board.Droppable, 0, len(m.catalog)*4)
	for colIdx, stage := range m.catalog {
		out = append(out, board.Droppable{
			Target: board.ColumnTarget(stage.Name()),
			Bounds: m.columnRect(colIdx),
		})
		for cardIdx, project := range m.cardsInColumn(colIdx) {
			out = append(out, board.Droppable{
				Target: board.CardTarget(project.ID),
				Bounds: m.cardRect(colIdx, cardIdx),
			})
		}
	}
	return out
}

// columnDroppables builds drop areas for columns only, used by keyboard moves.
func (m Model) columnDroppables() []board.Droppable {
	out := make([]board.Droppable, 0, len(m.catalog))
	for colIdx, stage := range m.catalog {
		out = append(out, board.Droppable{
			Target: board.ColumnTarget(stage.Name()),
			Bounds: m.columnRect(colIdx),
		})
	}
	return out
}

// activeRect is the dragged item's current footprint for intersection
// fallback.
func (m Model) activeRect() board.Rect {
	return board.Rect{X: m.pointer.X, Y: m.pointer.Y, W: 1, H: 1}
}

// columnStride is the horizontal cell distance between column origins.
func (m Model) columnStride() int {
	// border (2) + horizontal padding (4) + margin-right (1)
	return m.columnWidthFor(m.width) + 7
}

// columnIndexAt maps an x coordinate onto a catalog column.
func (m Model) columnIndexAt(x int) int {
	stride := m.columnStride()
	if stride <= 0 || len(m.catalog) == 0 || x < 0 {
		return -1
	}
	idx := x / stride
	if idx >= len(m.catalog) {
		return -1
	}
	return idx
}

// columnRect returns one column's drop bounds.
func (m Model) columnRect(colIdx int) board.Rect {
	stride := m.columnStride()
	return board.Rect{
		X: colIdx * stride,
		Y: m.boardTop(),
		W: stride - 1,
		H: m.columnHeight(),
	}
}

// cardRect returns one card's drop bounds inside its column.
func (m Model) cardRect(colIdx, cardIdx int) board.Rect {
	col := m.columnRect(colIdx)
	h := m.cardHeight()
	return board.Rect{
		X: col.X + 3,
		Y: col.Y + 2 + cardIdx*h,
		W: max(1, col.W-6),
		H: h,
	}
}

// cardIndexAt maps a y coordinate onto a card index within one column.
func (m Model) cardIndexAt(colIdx, y int) int {
	if colIdx < 0 {
		return -1
	}
	rel := y - m.boardTop() - 2
	if rel < 0 {
		return -1
	}
	idx := rel / m.cardHeight()
	if idx >= len(m.cardsInColumn(colIdx)) {
		return -1
	}
	return idx
}

// cardHeight is the number of rendered rows per card.
func (m Model) cardHeight() int {
	if m.showClientNames {
		return 2
	}
	return 1
}

// columnWidthFor returns column width for.
func (m Model) columnWidthFor(boardWidth int) int {
	if len(m.catalog) == 0 {
		return 24
	}
	w := 28
	if boardWidth > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (4), margin-right (1)
		const colOverhead = 7
		usable := boardWidth - len(m.catalog)*colOverhead
		candidate := usable / len(m.catalog)
		if candidate > 0 {
			w = candidate
		}
	}
	if w < 18 {
		return 18
	}
	if w > 42 {
		return 42
	}
	return w
}

// columnHeight returns column height.
func (m Model) columnHeight() int {
	headerLines := 3
	if len(m.projectTypes) > 1 {
		headerLines++
	}
	footerLines := 4
	h := m.height - headerLines - footerLines
	if h < 12 {
		return 12
	}
	return h
}

// boardTop handles board top.
func (m Model) boardTop() int {
	// header + optional tabs + spacer
	top := 3
	if len(m.projectTypes) > 1 {
		top++
	}
	return top
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit <= 1 {
		return string(rs[:limit])
	}
	return string(rs[:limit-1]) + "…"
}
