package app

import (
	"context"

	"github.com/rivergate/tally/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateProjectType(context.Context, domain.ProjectType) error
	UpdateProjectType(context.Context, domain.ProjectType) error
	GetProjectType(context.Context, string) (domain.ProjectType, error)
	ListProjectTypes(context.Context) ([]domain.ProjectType, error)
	ReplaceStages(context.Context, string, []domain.StageDefinition) error
	ListStages(context.Context, string) ([]domain.StageDefinition, error)

	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project) error
	UpdateProjects(context.Context, []domain.Project) error
	GetProject(context.Context, string) (domain.Project, error)
	ListProjects(context.Context, string) ([]domain.Project, error)
	DeleteProject(context.Context, string) error
}

// EligibilityRequest describes one bulk stage change submitted to the remote
// eligibility check. The project IDs are guaranteed to share FromStage and
// belong to ProjectTypeID's workflow.
type EligibilityRequest struct {
	ProjectTypeID string
	ProjectIDs    []string
	FromStage     string
	ToStage       string
}

// EligibilityChecker is the remote authority deciding whether a bulk stage
// change may proceed.
type EligibilityChecker interface {
	CheckBulkEligibility(context.Context, EligibilityRequest) (domain.EligibilityResult, error)
}
