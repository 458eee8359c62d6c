package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/livestore/internal/engine"
	"github.com/roach88/livestore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against a fresh store",
		Long: `Run YAML scenarios, each against its own in-memory store.

Every scenario's flow is traced with the notifications it caused and
compared with golden/<name>.golden next to the scenario, when present.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  livestore test ./scenarios
  livestore test ./scenarios --filter "task-*"
  livestore test ./scenarios --update
  livestore test ./scenarios --config ./store.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Config != "" {
		if _, _, err := loadConfig(opts.RootOptions); err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	f := opts.formatter(cmd)
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		f.VerboseLog("running %s", scenarioFile)
		r := runScenario(cmd.Context(), scenarioFile, opts)
		if f.Format != "json" {
			printScenario(f, r)
		}
		result.Scenarios = append(result.Scenarios, r)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return reportTests(f, result)
}

// findScenarioFiles lists the .yaml and .yml files under dir whose base
// name matches filter, skipping golden directories.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && d.Name() == "golden":
			return filepath.SkipDir
		case d.IsDir():
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file and checks it against its golden
// trace.
func runScenario(ctx context.Context, scenarioFile string, opts *TestOptions) ScenarioResult {
	if ctx == nil {
		ctx = context.Background()
	}
	name := filepath.Base(scenarioFile)
	fail := func(format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	name = scenario.Name

	result, err := executeScenario(ctx, scenario, opts)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	trace, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return fail("failed to marshal trace: %v", err)
	}
	goldenPath := goldenFilePath(scenarioFile)

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, trace, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(bytes.TrimSpace(golden), bytes.TrimSpace(trace)) {
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		return fail("failed to read golden file: %v", err)
	}

	return ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}
}

// executeScenario runs against the bundled schema, or against an in-memory
// store built from --config.
func executeScenario(ctx context.Context, scenario *harness.Scenario, opts *TestOptions) (*harness.Result, error) {
	if opts.Config == "" {
		return harness.Run(ctx, scenario)
	}
	memOpts := *opts.RootOptions
	memOpts.Database = ""
	eng, err := openEngine(ctx, &memOpts, engine.WithDatabase(":memory:"))
	if err != nil {
		return nil, err
	}
	defer eng.Close()
	return harness.RunOn(ctx, eng, scenario)
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func printScenario(f *OutputFormatter, r ScenarioResult) {
	w := f.Writer
	if r.Pass {
		fmt.Fprintf(w, "✓ %s\n", r.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", r.Name)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// reportTests writes the summary and turns failures into ExitFailure.
func reportTests(f *OutputFormatter, result TestResult) error {
	var failed error
	if result.Failed > 0 {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if f.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if failed != nil {
			response.Status = "error"
			response.Error = &CLIError{Code: "TEST_FAILED", Message: failed.Error()}
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failed
	}

	if result.Total == 0 {
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}
	fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failed == nil {
		fmt.Fprintln(f.Writer, "✓ All scenarios passed")
	}
	return failed
}
