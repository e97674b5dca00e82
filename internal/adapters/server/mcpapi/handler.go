// Package mcpapi provides a stateless MCP streamable-HTTP adapter for the
// practice board.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rivergate/tally/internal/app"
	"github.com/rivergate/tally/internal/board"
	"github.com/rivergate/tally/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// BoardService is the app surface the MCP tools call into.
type BoardService interface {
	ListProjectTypes(context.Context) ([]domain.ProjectType, error)
	ListStages(context.Context, string) ([]domain.StageDefinition, error)
	ListProjects(context.Context, string) ([]domain.Project, error)
	ChangeProjectStatus(context.Context, string, string) (domain.Project, error)
	BulkChangeStatus(context.Context, app.BulkChangeStatusInput) ([]domain.Project, error)
	CheckBulkEligibility(context.Context, []string, string) (domain.EligibilityResult, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, svc BoardService) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardStateTool(mcpSrv, svc)
	registerChangeStatusTool(mcpSrv, svc)
	registerBulkTools(mcpSrv, svc)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "tally"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// boardColumn is one rendered column in a board_state result.
type boardColumn struct {
	Name      string           `json:"name"`
	Synthetic bool             `json:"synthetic"`
	ReadOnly  bool             `json:"read_only"`
	Projects  []boardStateItem `json:"projects"`
}

// boardStateItem is one project row in a board_state result.
type boardStateItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClientName string `json:"client_name,omitempty"`
	Completion string `json:"completion,omitempty"`
}

// registerBoardStateTool registers the `tally.board_state` tool.
func registerBoardStateTool(srv *mcpserver.MCPServer, svc BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tally.board_state",
			mcp.WithDescription("Return the kanban columns and project cards for one project type."),
			mcp.WithString("project_type_id", mcp.Description("Project type identifier (defaults to the first project type)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectTypeID := req.GetString("project_type_id", "")
			if projectTypeID == "" {
				types, err := svc.ListProjectTypes(ctx)
				if err != nil {
					return toolResultFromError(err), nil
				}
				if len(types) == 0 {
					return mcp.NewToolResultError("not_found: no project types configured"), nil
				}
				projectTypeID = types[0].ID
			}

			stages, err := svc.ListStages(ctx, projectTypeID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			projects, err := svc.ListProjects(ctx, projectTypeID)
			if err != nil {
				return toolResultFromError(err), nil
			}

			catalog := board.BuildCatalog(stages)
			buckets := board.GroupProjects(projects)
			columns := make([]boardColumn, 0, len(catalog))
			for _, stage := range catalog {
				column := boardColumn{
					Name:      stage.Name(),
					Synthetic: stage.Synthetic(),
					ReadOnly:  stage.ReadOnly(),
					Projects:  []boardStateItem{},
				}
				for _, project := range buckets[stage.Name()] {
					column.Projects = append(column.Projects, boardStateItem{
						ID:         project.ID,
						Name:       project.Name,
						ClientName: project.ClientName,
						Completion: string(project.Completion),
					})
				}
				columns = append(columns, column)
			}

			result, err := mcp.NewToolResultJSON(map[string]any{
				"project_type_id": projectTypeID,
				"columns":         columns,
			})
			if err != nil {
				return nil, fmt.Errorf("encode board_state result: %w", err)
			}
			return result, nil
		},
	)
}

// registerChangeStatusTool registers the `tally.change_status` tool.
func registerChangeStatusTool(srv *mcpserver.MCPServer, svc BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tally.change_status",
			mcp.WithDescription("Move one project to a new workflow stage."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithString("stage", mcp.Required(), mcp.Description("Target stage name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			stage, err := req.RequireString("stage")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			project, err := svc.ChangeProjectStatus(ctx, projectID, stage)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"id":             project.ID,
				"current_status": project.CurrentStatus,
			})
			if err != nil {
				return nil, fmt.Errorf("encode change_status result: %w", err)
			}
			return result, nil
		},
	)
}

// registerBulkTools registers bulk eligibility and bulk move tools.
func registerBulkTools(srv *mcpserver.MCPServer, svc BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tally.check_bulk_eligibility",
			mcp.WithDescription("Ask the practice-management server whether a bulk stage change is allowed."),
			mcp.WithArray("project_ids", mcp.Required(), mcp.Description("Project identifiers sharing one stage")),
			mcp.WithString("target_stage", mcp.Required(), mcp.Description("Target stage name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			targetStage, err := req.RequireString("target_stage")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			projectIDs := req.GetStringSlice("project_ids", nil)
			eligibility, err := svc.CheckBulkEligibility(ctx, projectIDs, targetStage)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(eligibility)
			if err != nil {
				return nil, fmt.Errorf("encode check_bulk_eligibility result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tally.bulk_change_status",
			mcp.WithDescription("Move several same-stage projects to a target stage, recording a reason."),
			mcp.WithArray("project_ids", mcp.Required(), mcp.Description("Project identifiers sharing one stage")),
			mcp.WithString("target_stage", mcp.Required(), mcp.Description("Target stage name")),
			mcp.WithString("reason", mcp.Description("Reason recorded on each moved project")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			targetStage, err := req.RequireString("target_stage")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			moved, err := svc.BulkChangeStatus(ctx, app.BulkChangeStatusInput{
				ProjectIDs:  req.GetStringSlice("project_ids", nil),
				TargetStage: targetStage,
				Reason:      req.GetString("reason", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			ids := make([]string, 0, len(moved))
			for _, project := range moved {
				ids = append(ids, project.ID)
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"moved":        ids,
				"target_stage": targetStage,
			})
			if err != nil {
				return nil, fmt.Errorf("encode bulk_change_status result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, app.ErrUnknownStage),
		errors.Is(err, app.ErrStageConflict),
		errors.Is(err, app.ErrEmptySelection):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, domain.ErrProjectCompleted):
		return mcp.NewToolResultError("project_completed: " + err.Error())
	case errors.Is(err, app.ErrCheckerUnavailable):
		return mcp.NewToolResultError("unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
