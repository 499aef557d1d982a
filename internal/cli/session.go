package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/config"
	"github.com/roach88/tasksync/internal/engine"
	"github.com/roach88/tasksync/internal/registry"
)

// session is the per-invocation state shared by the registry commands.
type session struct {
	cfg    *config.Config
	store  registry.Store
	logger *slog.Logger
	opts   []engine.Option
	out    *OutputFormatter
}

// openSession loads configuration, installs the logger and opens the
// registry store. On failure the error has already been reported.
func openSession(rootOpts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := rootOpts.formatter(cmd)

	cfg, err := loadConfig(rootOpts)
	if err != nil {
		out.Error("CONFIG_ERROR", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		out.Error("CONFIG_ERROR", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	engineOpts = append(engineOpts, engine.WithLogger(logger))
	if rootOpts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(rootOpts.IDs))
	}
	if rootOpts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(rootOpts.Clock))
	}

	st := rootOpts.Store
	if st == nil {
		st, err = cfg.OpenStore()
		if err != nil {
			out.Error("REGISTRY_ERROR", err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "failed to open registry", err)
		}
		logger.Debug("registry opened", "backend", cfg.Registry.Backend, "path", cfg.Registry.Path)
	}

	return &session{cfg: cfg, store: st, logger: logger, opts: engineOpts, out: out}, nil
}

func loadConfig(rootOpts *RootOptions) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigFile: rootOpts.ConfigFile,
		HomeDir:    rootOpts.HomeDir,
		WorkDir:    rootOpts.WorkDir,
		Overrides:  rootOpts.overrides(),
	})
}

// run executes fn as one registry transaction and reports its error.
func (s *session) run(ctx context.Context, fn func(*engine.Engine) error) error {
	if err := engine.Run(ctx, s.store, fn, s.opts...); err != nil {
		return s.fail(err)
	}
	return nil
}

// close releases stores that hold resources. Injected stores belong to
// the caller.
func (s *session) close(rootOpts *RootOptions) {
	if rootOpts.Store != nil {
		return
	}
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn("failed to close registry", "error", err)
		}
	}
}

// fail reports err through the formatter and maps it to an exit code.
func (s *session) fail(err error) error {
	return reportError(s.out, err)
}

func reportError(out *OutputFormatter, err error) error {
	var engErr *engine.EngineError
	var valErr *registry.ValidationError
	switch {
	case errors.As(err, &engErr):
		out.Error(string(engErr.Code), engErr.Error(), engineDetails(engErr))
		switch engErr.Code {
		case engine.ErrCodeParseFailed, engine.ErrCodeLinkConflict:
			return WrapExitError(ExitFailure, string(engErr.Code), err)
		default:
			return WrapExitError(ExitCommandError, string(engErr.Code), err)
		}
	case errors.As(err, &valErr):
		out.Error("INVALID_REGISTRY", valErr.Error(), valErr.Issues)
		return WrapExitError(ExitFailure, "invalid registry", err)
	case errors.Is(err, registry.ErrUnsupportedVersion):
		out.Error("INVALID_REGISTRY", err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid registry", err)
	default:
		out.Error("REGISTRY_ERROR", err.Error(), nil)
		return WrapExitError(ExitFailure, "registry operation failed", err)
	}
}

func engineDetails(e *engine.EngineError) any {
	d := map[string]string{}
	if e.Artifact.Type != "" {
		d["artifact"] = e.Artifact.String()
	}
	if e.EntryID != "" {
		d["entryId"] = e.EntryID
	}
	if len(d) == 0 {
		return nil
	}
	return d
}
