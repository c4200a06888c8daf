package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartwatch/internal/auth"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/desertthunder/chartwatch/internal/services"
	"github.com/desertthunder/chartwatch/internal/shared"
	"github.com/desertthunder/chartwatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	catalog services.Catalog
	charts  services.Charts
	tokens  services.TokenSource
	db      *sql.DB
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner. Nil fields
// are built from the configuration on first use.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	Charts  services.Charts
	Tokens  services.TokenSource
	DB      *sql.DB
	Logger  *log.Logger
	Output  io.Writer
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
		config:  opts.Config,
		catalog: opts.Catalog,
		charts:  opts.Charts,
		tokens:  opts.Tokens,
		db:      opts.DB,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, lookupCommand, hitsCommand, watchCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig replaces the runner's configuration from the path given on the
// command line when the file exists.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	path := cmd.String("config")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", path, "error", err)
		return
	}
	r.config = config
}

// database returns the injected connection or opens one from configuration.
// The caller owns closing connections this method opens.
func (r *Runner) database() (*sql.DB, bool, error) {
	if r.db != nil {
		return r.db, false, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return db, true, nil
}

// tokenManager builds the OAuth token manager over the configured cache path.
func (r *Runner) tokenManager() *auth.TokenManager {
	store := auth.NewFileStore(r.config.Auth.TokenCache)
	client := &http.Client{Timeout: r.config.API.Timeout()}
	return auth.NewTokenManager(r.config.Auth, store, client, r.logger)
}

// clients returns the catalog and charts clients, building a distributor API
// service when none were injected.
func (r *Runner) clients() (services.Catalog, services.Charts) {
	if r.catalog != nil && r.charts != nil {
		return r.catalog, r.charts
	}

	tokens := r.tokens
	if tokens == nil {
		tokens = r.tokenManager()
	}

	svc := services.NewZvonkoService(r.config.API, tokens, r.logger)
	if r.catalog == nil {
		r.catalog = svc
	}
	if r.charts == nil {
		r.charts = svc
	}

	return r.catalog, r.charts
}

// engine wires the reconciliation engine over the given database.
func (r *Runner) engine(db *sql.DB) (*tasks.Engine, *repositories.CheckRepository) {
	catalog, charts := r.clients()
	repo := repositories.NewCheckRepository(db)
	return tasks.NewEngine(catalog, charts, repo, r.logger), repo
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

func writeJSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
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
