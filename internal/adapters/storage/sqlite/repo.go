// Package sqlite persists the practice board in a local sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rivergate/tally/internal/app"
	"github.com/rivergate/tally/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS project_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stages (
			project_type_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			assigned_role TEXT NOT NULL DEFAULT '',
			PRIMARY KEY(project_type_id, name),
			FOREIGN KEY(project_type_id) REFERENCES project_types(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			project_type_id TEXT NOT NULL,
			name TEXT NOT NULL,
			client_name TEXT NOT NULL DEFAULT '',
			current_status TEXT NOT NULL,
			completion TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(project_type_id) REFERENCES project_types(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stages_type_position ON stages(project_type_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_type_status ON projects(project_type_id, current_status);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateProjectType creates project type.
func (r *Repository) CreateProjectType(ctx context.Context, t domain.ProjectType) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_types(id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, t.ID, t.Name, ts(t.CreatedAt), ts(t.UpdatedAt))
	return err
}

// UpdateProjectType updates state for the requested operation.
func (r *Repository) UpdateProjectType(ctx context.Context, t domain.ProjectType) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE project_types
		SET name = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, ts(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetProjectType returns project type.
func (r *Repository) GetProjectType(ctx context.Context, id string) (domain.ProjectType, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM project_types
		WHERE id = ?
	`, id)

	var (
		t          domain.ProjectType
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&t.ID, &t.Name, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProjectType{}, app.ErrNotFound
		}
		return domain.ProjectType{}, err
	}
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

// ListProjectTypes lists project types.
func (r *Repository) ListProjectTypes(ctx context.Context) ([]domain.ProjectType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM project_types
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ProjectType{}
	for rows.Next() {
		var (
			t          domain.ProjectType
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&t.ID, &t.Name, &createdRaw, &updatedRaw); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTS(createdRaw)
		t.UpdatedAt = parseTS(updatedRaw)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceStages replaces the stage rows of one project type atomically.
func (r *Repository) ReplaceStages(ctx context.Context, projectTypeID string, stages []domain.StageDefinition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM stages WHERE project_type_id = ?`, projectTypeID); err != nil {
		return err
	}
	for _, stage := range stages {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO stages(project_type_id, name, position, color, assigned_role)
			VALUES (?, ?, ?, ?, ?)
		`, projectTypeID, stage.Name, stage.Order, stage.Color, stage.AssignedRole); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListStages lists the stage rows of one project type.
func (r *Repository) ListStages(ctx context.Context, projectTypeID string) ([]domain.StageDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, position, color, assigned_role
		FROM stages
		WHERE project_type_id = ?
		ORDER BY position ASC
	`, projectTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StageDefinition{}
	for rows.Next() {
		var stage domain.StageDefinition
		if err := rows.Scan(&stage.Name, &stage.Order, &stage.Color, &stage.AssignedRole); err != nil {
			return nil, err
		}
		out = append(out, stage)
	}
	return out, rows.Err()
}

// CreateProject creates project.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects(id, project_type_id, name, client_name, current_status, completion, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ProjectTypeID, p.Name, p.ClientName, p.CurrentStatus, string(p.Completion), p.Notes, ts(p.CreatedAt), ts(p.UpdatedAt))
	return err
}

// UpdateProject updates state for the requested operation.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, client_name = ?, current_status = ?, completion = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.ClientName, p.CurrentStatus, string(p.Completion), p.Notes, ts(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// UpdateProjects applies a batch of project updates in one transaction. Any
// failure, including a project that no longer exists, rolls the whole batch
// back.
func (r *Repository) UpdateProjects(ctx context.Context, projects []domain.Project) error {
	if len(projects) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, p := range projects {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE projects
			SET name = ?, client_name = ?, current_status = ?, completion = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`, p.Name, p.ClientName, p.CurrentStatus, string(p.Completion), p.Notes, ts(p.UpdatedAt), p.ID)
		if err != nil {
			return err
		}
		if err = translateNoRows(res); err != nil {
			return fmt.Errorf("project %q: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_type_id, name, client_name, current_status, completion, notes, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Project{}, app.ErrNotFound
		}
		return domain.Project{}, err
	}
	return p, nil
}

// ListProjects lists the projects of one project type.
func (r *Repository) ListProjects(ctx context.Context, projectTypeID string) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_type_id, name, client_name, current_status, completion, notes, created_at, updated_at
		FROM projects
		WHERE project_type_id = ?
		ORDER BY created_at ASC, id ASC
	`, projectTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject deletes project.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProject scans one project row.
func scanProject(row rowScanner) (domain.Project, error) {
	var (
		p             domain.Project
		completionRaw string
		createdRaw    string
		updatedRaw    string
	)
	if err := row.Scan(&p.ID, &p.ProjectTypeID, &p.Name, &p.ClientName, &p.CurrentStatus, &completionRaw, &p.Notes, &createdRaw, &updatedRaw); err != nil {
		return domain.Project{}, err
	}
	completion, err := domain.ParseCompletionStatus(completionRaw)
	if err != nil {
		return domain.Project{}, fmt.Errorf("decode project completion %q: %w", completionRaw, err)
	}
	p.Completion = completion
	p.CreatedAt = parseTS(createdRaw)
	p.UpdatedAt = parseTS(updatedRaw)
	return p, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
