// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/melonpatch/melonpatch/internal/config"
	"github.com/melonpatch/melonpatch/internal/logging"
	"github.com/melonpatch/melonpatch/internal/metrics"
	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/lifecycle"
	"github.com/melonpatch/melonpatch/pkg/mods"
	"github.com/melonpatch/melonpatch/pkg/validate"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: all Cobra command handlers receive an App reference and reach
	// configuration, HTTP and time through it.
	App struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		Clock      mods.Clock
		stdout     io.Writer
		stderr     io.Writer
		flags      rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		Clock      mods.Clock
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlags holds the persistent flags shared by every command.
	rootFlags struct {
		verbose    bool
		configPath string
		rootDir    string
		game       string
	}

	// session is the per-invocation state every command handler works with.
	session struct {
		cfg     *config.Config
		root    layout.GameRoot
		logger  *log.Logger
		metrics metrics.Metrics
		prom    *metrics.Prom
		stdout  io.Writer
		stderr  io.Writer
		verbose bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}

	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		Clock:      deps.Clock,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// loadOptions converts the persistent flags into config loading options.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath}
}

// newSession loads the configuration and resolves the target game root.
// --root and --game take precedence over root_dir and default_game.
func (a *App) newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, err
	}
	if a.flags.rootDir != "" {
		cfg.RootDir = a.flags.rootDir
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if a.flags.verbose && level > log.DebugLevel {
		level = log.DebugLevel
	}

	root, err := cfg.GameRoot(layout.PackageID(a.flags.game))
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		root:    root,
		logger:  logging.New(cmd.ErrOrStderr(), level, config.AppName),
		metrics: metrics.Noop{},
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
		verbose: a.flags.verbose,
	}
	if cfg.Metrics.Textfile != "" {
		s.prom = metrics.NewProm()
		s.metrics = s.prom
	}
	return s, nil
}

// run executes fn inside a session, records the operation and reports any
// error in the CLI's format.
func (a *App) run(cmd *cobra.Command, op string, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := a.newSession(ctx, cmd)
	if err != nil {
		return a.fail(cmd, err)
	}

	start := time.Now()
	err = fn(ctx, s)
	s.metrics.ObserveOperation(op, err, time.Since(start))
	if s.prom != nil {
		if werr := s.prom.WriteTextfile(s.cfg.Metrics.Textfile); werr != nil {
			s.logger.Warn("failed to write metrics textfile", "path", s.cfg.Metrics.Textfile, "err", werr)
		}
	}

	if err != nil {
		return a.fail(cmd, err)
	}
	return nil
}

// fail renders err to stderr and converts it into an ExitError. Errors that
// already are ExitErrors without a cause were reported by the handler.
func (a *App) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return exitErr
	}

	renderError(cmd.ErrOrStderr(), err, a.flags.verbose)
	return &ExitError{Code: ExitFailure, Err: err}
}

func (s *session) lifecycle() *lifecycle.Lifecycle {
	return lifecycle.New(s.logger)
}

func (s *session) validator() *validate.Validator {
	return validate.New(s.cfg.Requirements(), validate.WithLifecycle(s.lifecycle()), validate.WithLogger(s.logger))
}

func (s *session) modManager(clock mods.Clock) *mods.Manager {
	opts := []mods.Option{mods.WithLogger(s.logger)}
	if clock != nil {
		opts = append(opts, mods.WithClock(clock))
	}
	return mods.NewManager(s.root, opts...)
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.stdout, format, args...)
}

func (s *session) println(args ...any) {
	fmt.Fprintln(s.stdout, args...)
}
