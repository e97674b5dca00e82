package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rivergate/tally/internal/adapters/eligibility"
	"github.com/rivergate/tally/internal/adapters/server"
	"github.com/rivergate/tally/internal/adapters/storage/sqlite"
	"github.com/rivergate/tally/internal/app"
	"github.com/rivergate/tally/internal/config"
	"github.com/rivergate/tally/internal/domain"
	"github.com/rivergate/tally/internal/platform"
	"github.com/rivergate/tally/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// rootOptions holds persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// main handles main.
func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute builds the command tree and runs the requested command flow.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := &rootOptions{appName: "tally"}
	if envApp := strings.TrimSpace(os.Getenv("TALLY_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TALLY_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:           "tally",
		Short:         "Stage board for accounting practice workflows",
		Long:          "tally renders workflow projects as a drag-and-drop stage board and exposes the same operations over MCP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), opts, stderr)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	root.AddCommand(
		newPathsCmd(opts, stdout),
		newAddCmd(opts, stdout, stderr),
		newExportCmd(opts, stdout, stderr),
		newImportCmd(opts, stderr),
		newServeCmd(opts, stderr),
	)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// resolveConfig layers flags, environment overrides, and the TOML file into one config.
func resolveConfig(opts *rootOptions) (config.Config, platform.Paths, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return config.Config{}, platform.Paths{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TALLY_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TALLY_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return config.Config{}, platform.Paths{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	return cfg, paths, nil
}

// runtime bundles the opened repository, service, and logger for one command run.
type runtime struct {
	cfg    config.Config
	repo   *sqlite.Repository
	svc    *app.Service
	logger *runtimeLogger
}

// openRuntime opens storage and wires the application service from resolved config.
func openRuntime(opts *rootOptions, stderr io.Writer, muteConsole bool) (*runtime, error) {
	cfg, paths, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if muteConsole {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the board is active.
		logger.SetConsoleEnabled(false)
	}
	logger.Debug("runtime paths resolved", "config_path", paths.ConfigPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			closeLogger(logger, stderr)
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		closeLogger(logger, stderr)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}

	var checker app.EligibilityChecker
	if base := strings.TrimSpace(cfg.Eligibility.BaseURL); base != "" {
		timeout := time.Duration(cfg.Eligibility.TimeoutSeconds) * time.Second
		client, err := eligibility.NewClient(base, timeout)
		if err != nil {
			logger.Error("eligibility client setup failed", "base_url", base, "err", err)
			_ = repo.Close()
			closeLogger(logger, stderr)
			return nil, fmt.Errorf("configure eligibility client: %w", err)
		}
		checker = client
		logger.Info("eligibility checker configured", "base_url", base, "timeout_seconds", cfg.Eligibility.TimeoutSeconds)
	} else {
		logger.Debug("eligibility base_url not set, bulk moves resolve without remote checks")
	}

	svc := app.NewService(repo, checker, uuid.NewString, nil, app.ServiceConfig{
		DefaultProjectTypeName: cfg.Board.DefaultTypeName,
	})
	logger.Debug("application service initialized", "default_type_name", cfg.Board.DefaultTypeName)

	return &runtime{cfg: cfg, repo: repo, svc: svc, logger: logger}, nil
}

// Close releases the repository and log sinks.
func (r *runtime) Close(stderr io.Writer) {
	if r == nil {
		return
	}
	if r.repo != nil {
		if err := r.repo.Close(); err != nil {
			r.logger.Warn("sqlite close failed", "db_path", r.cfg.Database.Path, "err", err)
		}
	}
	closeLogger(r.logger, stderr)
}

// closeLogger closes log sinks, reporting failures only when the console is live.
func closeLogger(logger *runtimeLogger, stderr io.Writer) {
	if err := logger.Close(); err != nil && logger.shouldLogToSink(logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// runBoard launches the interactive stage board.
func runBoard(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	rt, err := openRuntime(opts, stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close(stderr)

	if _, err := rt.svc.EnsureDefaultProjectType(ctx); err != nil {
		rt.logger.Error("default project type bootstrap failed", "err", err)
		return fmt.Errorf("ensure default project type: %w", err)
	}

	m := tui.NewModel(
		rt.svc,
		tui.WithBoardConfig(rt.cfg.Board),
		tui.WithKeyConfig(rt.cfg.Keys),
	)
	rt.logger.Info("starting board program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("board program terminated with error", "err", err)
		return fmt.Errorf("run board program: %w", err)
	}
	rt.logger.Info("command flow complete", "command", "board")
	return nil
}

// newPathsCmd reports the resolved config and data locations.
func newPathsCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

// newAddCmd creates one project from the command line.
func newAddCmd(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		name       string
		clientName string
		stage      string
		typeName   string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project without opening the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer rt.Close(stderr)

			if _, err := rt.svc.EnsureDefaultProjectType(ctx); err != nil {
				return fmt.Errorf("ensure default project type: %w", err)
			}
			projectType, err := resolveProjectType(ctx, rt.svc, typeName)
			if err != nil {
				return err
			}
			project, err := rt.svc.CreateProject(ctx, app.CreateProjectInput{
				ProjectTypeID: projectType.ID,
				Name:          name,
				ClientName:    clientName,
				Stage:         stage,
			})
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}
			rt.logger.Info("project created", "project_id", project.ID, "stage", project.CurrentStatus)
			_, _ = fmt.Fprintf(stdout, "created %s (%s) in %q\n", project.Name, project.ID, project.CurrentStatus)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&clientName, "client", "", "client name")
	cmd.Flags().StringVar(&stage, "stage", "", "initial workflow stage (defaults to the first stage)")
	cmd.Flags().StringVar(&typeName, "type", "", "project type name (defaults to the configured default type)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// resolveProjectType finds a project type by name, defaulting to the first type.
func resolveProjectType(ctx context.Context, svc *app.Service, typeName string) (domain.ProjectType, error) {
	types, err := svc.ListProjectTypes(ctx)
	if err != nil {
		return domain.ProjectType{}, fmt.Errorf("list project types: %w", err)
	}
	if len(types) == 0 {
		return domain.ProjectType{}, fmt.Errorf("no project types available")
	}
	wanted := strings.TrimSpace(typeName)
	if wanted == "" {
		return types[0], nil
	}
	for _, candidate := range types {
		if strings.EqualFold(candidate.Name, wanted) {
			return candidate, nil
		}
	}
	return domain.ProjectType{}, fmt.Errorf("unknown project type %q", typeName)
}

// newExportCmd writes a snapshot of the board as JSON.
func newExportCmd(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export project types, stages, and projects as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer rt.Close(stderr)

			snap, err := rt.svc.ExportSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			encoded, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot json: %w", err)
			}
			encoded = append(encoded, '\n')

			if outPath == "-" {
				if _, err := stdout.Write(encoded); err != nil {
					return fmt.Errorf("write snapshot to stdout: %w", err)
				}
				return nil
			}
			if dir := filepath.Dir(outPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			rt.logger.Info("snapshot exported", "out", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newImportCmd loads a snapshot JSON file into the board.
func newImportCmd(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a snapshot JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("decode snapshot json: %w", err)
			}

			rt, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer rt.Close(stderr)

			if err := rt.svc.ImportSnapshot(cmd.Context(), snap); err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			rt.logger.Info("snapshot imported", "in", inPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

// newServeCmd runs the MCP server over HTTP until interrupted.
func newServeCmd(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		bind     string
		endpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board tools over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer rt.Close(stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := rt.svc.EnsureDefaultProjectType(ctx); err != nil {
				return fmt.Errorf("ensure default project type: %w", err)
			}
			rt.logger.Info("command flow start", "command", "serve", "bind", bind, "endpoint", endpoint)
			if err := server.Run(ctx, server.Config{
				HTTPBind:      bind,
				MCPEndpoint:   endpoint,
				ServerName:    opts.appName,
				ServerVersion: version,
			}, rt.svc); err != nil {
				rt.logger.Error("serve terminated with error", "err", err)
				return fmt.Errorf("run mcp server: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "HTTP bind address (default 127.0.0.1:8484)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "MCP endpoint path (default /mcp)")
	return cmd
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, cfg config.LoggingConfig) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})

	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	devLogPath := strings.TrimSpace(cfg.DevFile)
	if devLogPath == "" {
		return logger, nil
	}
	if !filepath.IsAbs(devLogPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working dir: %w", err)
		}
		devLogPath = filepath.Join(cwd, devLogPath)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// Keep file output parseable and unstyled while preserving styled console logs.
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil || sink == nil {
		return false
	}
	if sink == l.consoleSink && !l.consoleEnabled {
		return false
	}
	return true
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Debug(msg, keyvals...)
	}
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Info(msg, keyvals...)
	}
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Warn(msg, keyvals...)
	}
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Error(msg, keyvals...)
	}
}
