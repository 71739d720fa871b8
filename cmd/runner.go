package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/duskview/aidj/internal/repositories"
	"github.com/duskview/aidj/internal/services"
	"github.com/duskview/aidj/internal/session"
	"github.com/duskview/aidj/internal/shared"
	"github.com/duskview/aidj/internal/transport"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	api        *services.BackendService
	orch       *session.Orchestrator
	reconciler *session.Reconciler
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	API        *services.BackendService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewBackendService(
			opts.Config.Backend.BaseURL,
			opts.Config.Credentials.Spotify.AccessToken,
			opts.HTTPClient,
			opts.Config.Backend.RequestsPerMin,
		)
	}

	reconciler := session.NewReconciler(opts.API, opts.Logger)
	primary := transport.NewWebSocketDialer(opts.Config.Backend.BaseURL, opts.Logger)
	fallback := transport.NewSSEDialer(opts.Config.Backend.BaseURL, opts.HTTPClient, opts.Logger)
	orch := session.NewOrchestrator(opts.API, primary, fallback, reconciler, opts.Logger)

	return &Runner{
		config:     opts.Config,
		api:        opts.API,
		orch:       orch,
		reconciler: reconciler,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, mixCommand, bookmarkCommand, fadeCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, e.g. to redirect logs to a file
// while a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openDatabase lazily opens the local SQLite database and runs migrations.
// The handle is reused for the rest of the process.
func (r *Runner) openDatabase() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// ensureCredential loads the stored generation credential into the API
// client when the config did not carry one.
func (r *Runner) ensureCredential() error {
	if r.api.Authenticated() {
		return nil
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	token, err := repositories.NewAppStateRepository(db).Get(repositories.StateKeyCredential)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: run 'aidj auth login' first", shared.ErrMissingCredentials)
	}

	r.api.SetCredential(token)
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
