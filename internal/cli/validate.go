package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/route"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Tables int    `json:"tables,omitempty"`
	Routes int    `json:"routes,omitempty"`
	Field  string `json:"field,omitempty"`
	Pos    string `json:"pos,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file without opening a database",
		Long: `Validate a YAML or CUE config: schema, pool and watch settings, and
that every route pattern compiles against its table.

Example:
  livestore validate ./store.yaml
  livestore validate ./store.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	formatter.VerboseLog("validating %s", path)

	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	var schema *config.Schema
	if err == nil {
		schema, err = cfg.Schema()
	}
	var routes []*route.Route
	if err == nil {
		routes, err = cfg.RegisterRoutes(route.NewRegistry(), schema)
	}
	if err != nil {
		return outputValidateError(formatter, err)
	}

	result := ValidationResult{Valid: true, Tables: len(schema.Tables()), Routes: len(routes)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ %s is valid (%d tables, %d routes)", path, result.Tables, result.Routes))
}

func outputValidateError(f *OutputFormatter, err error) error {
	result := ValidationResult{}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		result.Field = cfgErr.Field
		result.Pos = cfgErr.Pos
	}
	if outErr := f.Error("INVALID_CONFIG", err.Error(), result); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, "validation failed", err)
}
