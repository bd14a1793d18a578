package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/windsync/internal/services"
	"github.com/desertthunder/windsync/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// Test seams. When set they replace the real Drive and Photos
	// clients for every command that needs one.
	source services.Source
	dest   services.Destination
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Source      services.Source
	Destination services.Destination
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

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		source:     opts.Source,
		dest:       opts.Destination,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, cacheCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// tokenSource builds the shared OAuth token source from config. All
// Drive and Photos clients created in one command share it, so a token
// refresh happens once per expiry rather than once per worker.
func (r *Runner) tokenSource() (*services.TokenSource, error) {
	google := r.config.Credentials.Google
	if google.ClientID == "" || google.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client credentials missing from config", shared.ErrNotAuthenticated)
	}
	return services.NewTokenSource(services.NewConfig(google), google.TokenPath)
}

// sourceFactory returns a constructor handing each caller its own
// Drive client. The test seam overrides it with a shared double.
func (r *Runner) sourceFactory(tokens *services.TokenSource) func() services.Source {
	if r.source != nil {
		return func() services.Source { return r.source }
	}
	return func() services.Source { return services.NewDriveService(tokens, r.httpClient) }
}

func (r *Runner) destFactory(tokens *services.TokenSource) func() services.Destination {
	if r.dest != nil {
		return func() services.Destination { return r.dest }
	}
	return func() services.Destination { return services.NewPhotosService(tokens, r.httpClient) }
}

// openDatabase opens the history database and applies migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
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
