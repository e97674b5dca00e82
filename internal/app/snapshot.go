package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rivergate/tally/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "tally.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version      string                `json:"version"`
	ExportedAt   time.Time             `json:"exported_at"`
	ProjectTypes []SnapshotProjectType `json:"project_types"`
	Stages       []SnapshotStage       `json:"stages"`
	Projects     []SnapshotProject     `json:"projects"`
}

// SnapshotProjectType represents snapshot project type data used by this package.
type SnapshotProjectType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotStage represents snapshot stage data used by this package.
type SnapshotStage struct {
	ProjectTypeID string `json:"project_type_id"`
	Name          string `json:"name"`
	Order         int    `json:"order"`
	Color         string `json:"color,omitempty"`
	AssignedRole  string `json:"assigned_role,omitempty"`
}

// SnapshotProject represents snapshot project data used by this package.
type SnapshotProject struct {
	ID            string    `json:"id"`
	ProjectTypeID string    `json:"project_type_id"`
	Name          string    `json:"name"`
	ClientName    string    `json:"client_name,omitempty"`
	CurrentStatus string    `json:"current_status"`
	Completion    string    `json:"completion,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	types, err := s.repo.ListProjectTypes(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Version:      SnapshotVersion,
		ExportedAt:   s.clock().UTC(),
		ProjectTypes: make([]SnapshotProjectType, 0, len(types)),
		Stages:       make([]SnapshotStage, 0),
		Projects:     make([]SnapshotProject, 0),
	}
	for _, projectType := range types {
		snap.ProjectTypes = append(snap.ProjectTypes, SnapshotProjectType{
			ID:        projectType.ID,
			Name:      projectType.Name,
			CreatedAt: projectType.CreatedAt.UTC(),
			UpdatedAt: projectType.UpdatedAt.UTC(),
		})

		stages, listErr := s.repo.ListStages(ctx, projectType.ID)
		if listErr != nil {
			return Snapshot{}, listErr
		}
		for _, stage := range stages {
			snap.Stages = append(snap.Stages, SnapshotStage{
				ProjectTypeID: projectType.ID,
				Name:          stage.Name,
				Order:         stage.Order,
				Color:         stage.Color,
				AssignedRole:  stage.AssignedRole,
			})
		}

		projects, listErr := s.repo.ListProjects(ctx, projectType.ID)
		if listErr != nil {
			return Snapshot{}, listErr
		}
		for _, project := range projects {
			snap.Projects = append(snap.Projects, SnapshotProject{
				ID:            project.ID,
				ProjectTypeID: project.ProjectTypeID,
				Name:          project.Name,
				ClientName:    project.ClientName,
				CurrentStatus: project.CurrentStatus,
				Completion:    string(project.Completion),
				Notes:         project.Notes,
				CreatedAt:     project.CreatedAt.UTC(),
				UpdatedAt:     project.UpdatedAt.UTC(),
			})
		}
	}

	snap.sort()
	return snap, nil
}

// ImportSnapshot handles import snapshot.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	stagesByType := map[string][]domain.StageDefinition{}
	for _, stage := range snap.Stages {
		def, err := domain.NewStageDefinition(stage.Name, stage.Order, stage.Color, stage.AssignedRole)
		if err != nil {
			return err
		}
		stagesByType[stage.ProjectTypeID] = append(stagesByType[stage.ProjectTypeID], def)
	}

	for _, projectType := range snap.ProjectTypes {
		if err := s.upsertProjectType(ctx, domain.ProjectType{
			ID:        strings.TrimSpace(projectType.ID),
			Name:      strings.TrimSpace(projectType.Name),
			CreatedAt: projectType.CreatedAt.UTC(),
			UpdatedAt: projectType.UpdatedAt.UTC(),
		}); err != nil {
			return err
		}
		if err := s.repo.ReplaceStages(ctx, projectType.ID, stagesByType[projectType.ID]); err != nil {
			return err
		}
	}

	for _, project := range snap.Projects {
		completion, err := domain.ParseCompletionStatus(project.Completion)
		if err != nil {
			return err
		}
		if err := s.upsertProject(ctx, domain.Project{
			ID:            strings.TrimSpace(project.ID),
			ProjectTypeID: strings.TrimSpace(project.ProjectTypeID),
			Name:          strings.TrimSpace(project.Name),
			ClientName:    strings.TrimSpace(project.ClientName),
			CurrentStatus: strings.TrimSpace(project.CurrentStatus),
			Completion:    completion,
			Notes:         project.Notes,
			CreatedAt:     project.CreatedAt.UTC(),
			UpdatedAt:     project.UpdatedAt.UTC(),
		}); err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	typeIDs := map[string]struct{}{}
	for i, projectType := range s.ProjectTypes {
		if strings.TrimSpace(projectType.ID) == "" {
			return fmt.Errorf("project_types[%d].id is required", i)
		}
		if strings.TrimSpace(projectType.Name) == "" {
			return fmt.Errorf("project_types[%d].name is required", i)
		}
		if projectType.CreatedAt.IsZero() || projectType.UpdatedAt.IsZero() {
			return fmt.Errorf("project_types[%d] timestamps are required", i)
		}
		if _, exists := typeIDs[projectType.ID]; exists {
			return fmt.Errorf("duplicate project type id: %q", projectType.ID)
		}
		typeIDs[projectType.ID] = struct{}{}
	}

	stageKeys := map[string]struct{}{}
	for i, stage := range s.Stages {
		if strings.TrimSpace(stage.Name) == "" {
			return fmt.Errorf("stages[%d].name is required", i)
		}
		if stage.Order < 0 {
			return fmt.Errorf("stages[%d].order must be >= 0", i)
		}
		if _, ok := typeIDs[stage.ProjectTypeID]; !ok {
			return fmt.Errorf("stages[%d] references unknown project_type_id %q", i, stage.ProjectTypeID)
		}
		key := stage.ProjectTypeID + "|" + strings.ToLower(strings.TrimSpace(stage.Name))
		if _, exists := stageKeys[key]; exists {
			return fmt.Errorf("duplicate stage name %q for project type %q", stage.Name, stage.ProjectTypeID)
		}
		stageKeys[key] = struct{}{}
	}

	projectIDs := map[string]struct{}{}
	for i, project := range s.Projects {
		if strings.TrimSpace(project.ID) == "" {
			return fmt.Errorf("projects[%d].id is required", i)
		}
		if strings.TrimSpace(project.Name) == "" {
			return fmt.Errorf("projects[%d].name is required", i)
		}
		if strings.TrimSpace(project.CurrentStatus) == "" {
			return fmt.Errorf("projects[%d].current_status is required", i)
		}
		if _, ok := typeIDs[project.ProjectTypeID]; !ok {
			return fmt.Errorf("projects[%d] references unknown project_type_id %q", i, project.ProjectTypeID)
		}
		if project.CreatedAt.IsZero() || project.UpdatedAt.IsZero() {
			return fmt.Errorf("projects[%d] timestamps are required", i)
		}
		if _, err := domain.ParseCompletionStatus(project.Completion); err != nil {
			return fmt.Errorf("projects[%d].completion invalid: %q", i, project.Completion)
		}
		if _, exists := projectIDs[project.ID]; exists {
			return fmt.Errorf("duplicate project id: %q", project.ID)
		}
		projectIDs[project.ID] = struct{}{}
	}

	return nil
}

// upsertProjectType handles upsert project type.
func (s *Service) upsertProjectType(ctx context.Context, projectType domain.ProjectType) error {
	if _, err := s.repo.GetProjectType(ctx, projectType.ID); err == nil {
		return s.repo.UpdateProjectType(ctx, projectType)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateProjectType(ctx, projectType)
}

// upsertProject handles upsert project.
func (s *Service) upsertProject(ctx context.Context, project domain.Project) error {
	if _, err := s.repo.GetProject(ctx, project.ID); err == nil {
		return s.repo.UpdateProject(ctx, project)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateProject(ctx, project)
}

// sort handles sort.
func (s *Snapshot) sort() {
	sort.Slice(s.ProjectTypes, func(i, j int) bool {
		return s.ProjectTypes[i].ID < s.ProjectTypes[j].ID
	})
	sort.Slice(s.Stages, func(i, j int) bool {
		a := s.Stages[i]
		b := s.Stages[j]
		if a.ProjectTypeID == b.ProjectTypeID {
			if a.Order == b.Order {
				return a.Name < b.Name
			}
			return a.Order < b.Order
		}
		return a.ProjectTypeID < b.ProjectTypeID
	})
	sort.Slice(s.Projects, func(i, j int) bool {
		a := s.Projects[i]
		b := s.Projects[j]
		if a.ProjectTypeID == b.ProjectTypeID {
			return a.ID < b.ID
		}
		return a.ProjectTypeID < b.ProjectTypeID
	})
}
