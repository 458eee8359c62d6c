package cli

import (
	"context"
	"strings"

	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/engine"
	"github.com/roach88/livestore/internal/tasks"
)

// loadConfig reads --config, or returns the bundled task schema.
func loadConfig(opts *RootOptions) (*config.Config, bool, error) {
	if opts.Config == "" {
		return config.Default(), true, nil
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// openEngine builds an engine from the global flags. The bundled schema
// carries its own migrations.
func openEngine(ctx context.Context, opts *RootOptions, extra ...engine.Option) (*engine.Engine, error) {
	cfg, bundled, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	var engOpts []engine.Option
	if bundled {
		engOpts = append(engOpts, engine.WithMigrations(tasks.Migrations, tasks.MigrationsDir))
	}
	if opts.Database != "" {
		engOpts = append(engOpts, engine.WithDatabase(opts.Database))
	}
	eng, err := engine.New(ctx, cfg, append(engOpts, extra...)...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open engine", err)
	}
	return eng, nil
}

// parseAssignments turns key=value arguments into a map. The literal null
// stands for SQL NULL.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, NewExitError(ExitCommandError, "expected key=value, got "+arg)
		}
		if val == "null" {
			out[key] = nil
			continue
		}
		out[key] = val
	}
	return out, nil
}
