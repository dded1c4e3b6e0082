package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/locks"
	"github.com/desertthunder/plmirror/internal/repositories"
	"github.com/desertthunder/plmirror/internal/sanitize"
	"github.com/desertthunder/plmirror/internal/shared"
	"github.com/desertthunder/plmirror/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage is opened lazily by the commands that need it.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	engine     *tasks.PlaylistEngine
	closers    []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// When Store is set the engine is built over it immediately and no database is opened.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Store      repositories.Store
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}

	if opts.Store != nil {
		if r.config == nil {
			r.config = shared.DefaultConfig()
		}
		r.engine = tasks.NewPlaylistEngine(opts.Store, r.engineOpts(nil))
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, playlistsCommand, tracksCommand, syncCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, applies PLMIRROR_* overrides and validates it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config != nil {
		return ctx, nil
	}
	return ctx, r.loadConfig(cmd.String("config"))
}

// After releases storage and lock connections opened by the command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases everything opened by [Runner.open] in reverse order.
//
// An engine built over those connections is dropped with them.
func (r *Runner) Close() error {
	if len(r.closers) == 0 {
		return nil
	}
	r.engine = nil

	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) loadConfig(path string) error {
	config := shared.DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err = shared.LoadConfig(path); err != nil {
				return err
			}
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	if err := shared.ApplyEnv(config); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	level, err := shared.ParseLogLevel(config.Log.Level)
	if err != nil {
		return err
	}
	shared.SetLogLevel(r.logger, level)

	r.config = config
	r.configPath = path
	return nil
}

func (r *Runner) engineOpts(locker locks.Locker) tasks.EngineOpts {
	return tasks.EngineOpts{
		Logger: r.logger,
		Locker: locker,
		Sanitize: &sanitize.Policy{
			OnImport: r.config.Sync.SanitizeOnImport,
			OnSync:   r.config.Sync.SanitizeOnSync,
		},
		Ownership: tasks.OwnershipFor(r.config.Sync.StrictOwnership),
	}
}

// open connects to the configured database, migrates it, and builds the engine.
func (r *Runner) open(ctx context.Context) error {
	if r.engine != nil {
		return nil
	}
	if r.config == nil {
		if err := r.loadConfig(r.configPath); err != nil {
			return err
		}
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	locker, err := r.newLocker(ctx)
	if err != nil {
		return err
	}

	r.engine = tasks.NewPlaylistEngine(repositories.NewSQLiteStore(db), r.engineOpts(locker))
	return nil
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	cfg := r.config.Database

	db, err := shared.NewDatabaseWithTimeout(cfg.Path, cfg.BusyTimeoutMS)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if !shared.IsMemoryPath(cfg.Path) {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.closers = append(r.closers, db.Close)
	return db, nil
}

func (r *Runner) newLocker(ctx context.Context) (locks.Locker, error) {
	if r.config.Locks.Backend != "redis" {
		return locks.NewKeyedMutex(), nil
	}

	ttl, err := r.config.Locks.TTLDuration()
	if err != nil {
		return nil, err
	}
	client, err := locks.DialRedis(ctx, r.config.Locks.RedisAddr)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, client.Close)

	r.logger.Debug("using redis playlist locks", "addr", r.config.Locks.RedisAddr, "ttl", ttl)
	return locks.NewRedisLocker(client, ttl, r.logger), nil
}

// readJSON decodes a JSON document from path, or from the runner's input when path is "-".
func (r *Runner) readJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r.input)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s is not valid JSON: %v", shared.ErrInvalidInput, path, err)
	}
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// printProgress writes progress updates until the channel is closed, then closes done.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		switch update.Phase {
		case tasks.LoadPlaylists, tasks.ImportComplete:
			r.writePlain("📥 %s\n", update.Message)
		default:
			r.writePlain("   %s\n", update.Message)
		}
	}
}
