package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rivergate/tally/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultProjectTypeName string
	StageTemplates         []domain.StageDefinition
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service represents service data used by this package.
type Service struct {
	repo            Repository
	checker         EligibilityChecker
	idGen           IDGenerator
	clock           Clock
	defaultTypeName string
	stageTemplates  []domain.StageDefinition
}

// NewService constructs a new value for this package.
func NewService(repo Repository, checker EligibilityChecker, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.DefaultProjectTypeName == "" {
		cfg.DefaultProjectTypeName = "Year End Accounts"
	}
	templates := cfg.StageTemplates
	if len(templates) == 0 {
		templates = defaultStageTemplates()
	}

	return &Service{
		repo:            repo,
		checker:         checker,
		idGen:           idGen,
		clock:           clock,
		defaultTypeName: cfg.DefaultProjectTypeName,
		stageTemplates:  templates,
	}
}

// EnsureDefaultProjectType ensures at least one project type exists.
func (s *Service) EnsureDefaultProjectType(ctx context.Context) (domain.ProjectType, error) {
	types, err := s.repo.ListProjectTypes(ctx)
	if err != nil {
		return domain.ProjectType{}, err
	}
	if len(types) > 0 {
		return types[0], nil
	}
	return s.CreateProjectType(ctx, s.defaultTypeName, s.stageTemplates)
}

// CreateProjectType creates project type with its workflow stages.
func (s *Service) CreateProjectType(ctx context.Context, name string, stages []domain.StageDefinition) (domain.ProjectType, error) {
	projectType, err := domain.NewProjectType(s.idGen(), name, s.clock())
	if err != nil {
		return domain.ProjectType{}, err
	}
	sanitized, err := sanitizeStages(stages)
	if err != nil {
		return domain.ProjectType{}, err
	}
	if err := s.repo.CreateProjectType(ctx, projectType); err != nil {
		return domain.ProjectType{}, err
	}
	if err := s.repo.ReplaceStages(ctx, projectType.ID, sanitized); err != nil {
		return domain.ProjectType{}, err
	}
	return projectType, nil
}

// RenameProjectType renames project type.
func (s *Service) RenameProjectType(ctx context.Context, projectTypeID, name string) (domain.ProjectType, error) {
	projectType, err := s.repo.GetProjectType(ctx, projectTypeID)
	if err != nil {
		return domain.ProjectType{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ProjectType{}, domain.ErrInvalidName
	}
	projectType.Name = name
	projectType.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateProjectType(ctx, projectType); err != nil {
		return domain.ProjectType{}, err
	}
	return projectType, nil
}

// ListProjectTypes lists project types.
func (s *Service) ListProjectTypes(ctx context.Context) ([]domain.ProjectType, error) {
	types, err := s.repo.ListProjectTypes(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(types, func(a, b domain.ProjectType) int {
		return strings.Compare(a.Name, b.Name)
	})
	return types, nil
}

// ReplaceStages replaces the workflow stages of a project type.
func (s *Service) ReplaceStages(ctx context.Context, projectTypeID string, stages []domain.StageDefinition) error {
	if _, err := s.repo.GetProjectType(ctx, projectTypeID); err != nil {
		return err
	}
	sanitized, err := sanitizeStages(stages)
	if err != nil {
		return err
	}
	return s.repo.ReplaceStages(ctx, projectTypeID, sanitized)
}

// ListStages lists the workflow stages of a project type in display order.
func (s *Service) ListStages(ctx context.Context, projectTypeID string) ([]domain.StageDefinition, error) {
	stages, err := s.repo.ListStages(ctx, projectTypeID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(stages, func(a, b domain.StageDefinition) int {
		return a.Order - b.Order
	})
	return stages, nil
}

// CreateProjectInput holds input values for create project operations.
type CreateProjectInput struct {
	ProjectTypeID string
	Name          string
	ClientName    string
	Stage         string
	Notes         string
}

// CreateProject creates project. An empty stage defaults to the project
// type's first workflow stage.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (domain.Project, error) {
	stages, err := s.ListStages(ctx, in.ProjectTypeID)
	if err != nil {
		return domain.Project{}, err
	}
	stage := strings.TrimSpace(in.Stage)
	if stage == "" {
		if len(stages) == 0 {
			return domain.Project{}, ErrUnknownStage
		}
		stage = stages[0].Name
	} else if !stageKnown(stages, stage) {
		return domain.Project{}, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	project, err := domain.NewProject(domain.ProjectInput{
		ID:            s.idGen(),
		ProjectTypeID: in.ProjectTypeID,
		Name:          in.Name,
		ClientName:    in.ClientName,
		CurrentStatus: stage,
		Notes:         in.Notes,
	}, s.clock())
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.repo.GetProject(ctx, projectID)
}

// ListProjects lists the projects of a project type.
func (s *Service) ListProjects(ctx context.Context, projectTypeID string) ([]domain.Project, error) {
	projects, err := s.repo.ListProjects(ctx, projectTypeID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(projects, func(a, b domain.Project) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return projects, nil
}

// ChangeProjectStatus moves one project to a new workflow stage.
func (s *Service) ChangeProjectStatus(ctx context.Context, projectID, stage string) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	stages, err := s.ListStages(ctx, project.ProjectTypeID)
	if err != nil {
		return domain.Project{}, err
	}
	stage = strings.TrimSpace(stage)
	if !stageKnown(stages, stage) {
		return domain.Project{}, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if err := project.SetStatus(stage, s.clock()); err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// BulkChangeStatusInput holds input values for bulk status change operations.
type BulkChangeStatusInput struct {
	ProjectIDs  []string
	TargetStage string
	Reason      string
}

// BulkChangeStatus moves every listed project to the target stage. The
// projects must all sit in the same stage; a reason, when given, is appended
// to each project's notes. The batch is persisted in one repository write, so
// either every project moves or none does.
func (s *Service) BulkChangeStatus(ctx context.Context, in BulkChangeStatusInput) ([]domain.Project, error) {
	if len(in.ProjectIDs) == 0 {
		return nil, ErrEmptySelection
	}
	projects, err := s.loadProjects(ctx, in.ProjectIDs)
	if err != nil {
		return nil, err
	}
	if _, err := sharedStage(projects); err != nil {
		return nil, err
	}

	stage := strings.TrimSpace(in.TargetStage)
	now := s.clock()
	out := make([]domain.Project, 0, len(projects))
	for _, project := range projects {
		if err := project.SetStatus(stage, now); err != nil {
			return nil, err
		}
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			project.AppendNote(reason, now)
		}
		out = append(out, project)
	}
	if err := s.repo.UpdateProjects(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckBulkEligibility asks the remote authority whether the listed projects
// may move to the target stage. The projects must share their current stage.
func (s *Service) CheckBulkEligibility(ctx context.Context, projectIDs []string, targetStage string) (domain.EligibilityResult, error) {
	if s.checker == nil {
		return domain.EligibilityResult{}, ErrCheckerUnavailable
	}
	if len(projectIDs) == 0 {
		return domain.EligibilityResult{}, ErrEmptySelection
	}
	projects, err := s.loadProjects(ctx, projectIDs)
	if err != nil {
		return domain.EligibilityResult{}, err
	}
	fromStage, err := sharedStage(projects)
	if err != nil {
		return domain.EligibilityResult{}, err
	}
	return s.checker.CheckBulkEligibility(ctx, EligibilityRequest{
		ProjectTypeID: projects[0].ProjectTypeID,
		ProjectIDs:    projectIDs,
		FromStage:     fromStage,
		ToStage:       strings.TrimSpace(targetStage),
	})
}

// CompleteProject marks one project terminally successful or unsuccessful.
func (s *Service) CompleteProject(ctx context.Context, projectID string, status domain.CompletionStatus, note string) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	now := s.clock()
	if err := project.Complete(status, now); err != nil {
		return domain.Project{}, err
	}
	project.AppendNote(note, now)
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// ReopenProject clears a terminal completion.
func (s *Service) ReopenProject(ctx context.Context, projectID string) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	project.Reopen(s.clock())
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// AppendProjectNote appends one note line to a project.
func (s *Service) AppendProjectNote(ctx context.Context, projectID, note string) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	project.AppendNote(note, s.clock())
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// DeleteProject deletes project.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	return s.repo.DeleteProject(ctx, projectID)
}

// loadProjects fetches each listed project, preserving input order.
func (s *Service) loadProjects(ctx context.Context, ids []string) ([]domain.Project, error) {
	out := make([]domain.Project, 0, len(ids))
	for _, id := range ids {
		project, err := s.repo.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, nil
}

// sharedStage returns the single stage every project occupies, rejecting
// completed projects and mixed-stage groups.
func sharedStage(projects []domain.Project) (string, error) {
	stage := ""
	for _, project := range projects {
		if project.ReadOnly() {
			return "", domain.ErrProjectCompleted
		}
		if stage == "" {
			stage = project.CurrentStatus
			continue
		}
		if project.CurrentStatus != stage {
			return "", ErrStageConflict
		}
	}
	return stage, nil
}

// stageKnown handles stage known.
func stageKnown(stages []domain.StageDefinition, name string) bool {
	for _, stage := range stages {
		if stage.Name == name {
			return true
		}
	}
	return false
}

// sanitizeStages handles sanitize stages.
func sanitizeStages(in []domain.StageDefinition) ([]domain.StageDefinition, error) {
	out := make([]domain.StageDefinition, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		stage, err := domain.NewStageDefinition(raw.Name, raw.Order, raw.Color, raw.AssignedRole)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(stage.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, stage)
	}
	slices.SortStableFunc(out, func(a, b domain.StageDefinition) int {
		return a.Order - b.Order
	})
	return out, nil
}

// defaultStageTemplates returns default stage templates.
func defaultStageTemplates() []domain.StageDefinition {
	return []domain.StageDefinition{
		{Name: "Awaiting Records", Order: 1, Color: "#fab387", AssignedRole: "Bookkeeper"},
		{Name: "In Progress", Order: 2, Color: "#89b4fa", AssignedRole: "Bookkeeper"},
		{Name: "Manager Review", Order: 3, Color: "#cba6f7", AssignedRole: "Manager"},
		{Name: "Filed", Order: 4, Color: "#a6e3a1", AssignedRole: "Partner"},
	}
}
