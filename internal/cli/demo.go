package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/spf13/cobra"

	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/engine"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/tasks"
	"github.com/roach88/livestore/internal/value"
	"github.com/roach88/livestore/internal/watch"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Tasks   int
	Timeout time.Duration
}

// DemoDelivery is one result a demo watch received.
type DemoDelivery struct {
	Step string           `json:"step"`
	Rows []map[string]any `json:"rows"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Watch /tasks on an in-memory store while writing to it",
		Long: `Open the bundled task schema in memory, watch /tasks and print every
result the watch receives while tasks are inserted, finished and deleted.

Example:
  livestore demo
  livestore demo --tasks 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Tasks, "tasks", 3, "number of tasks to insert")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "how long to wait for each result")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := engine.New(ctx, config.Default(),
		engine.WithDatabase(":memory:"),
		engine.WithMigrations(tasks.Migrations, tasks.MigrationsDir))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open engine", err)
	}
	defer eng.Close()

	f := opts.formatter(cmd)
	schema := eng.Schema()
	results := make(chan []value.Row, 16)
	sub, err := watch.Watch(eng.Watch(), "/tasks", plan.Rows(schema.Columns("task")...), func(rows []value.Row) {
		results <- rows
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to watch /tasks", err)
	}
	defer sub.Cancel()

	var deliveries []DemoDelivery
	await := func(step string) error {
		select {
		case rows := <-results:
			d := DemoDelivery{Step: step, Rows: make([]map[string]any, len(rows))}
			for i, row := range rows {
				d.Rows[i] = schema.Plain("task", row)
			}
			deliveries = append(deliveries, d)
			if f.Format != "json" {
				fmt.Fprintf(f.Writer, "-- %s: %d task(s)\n", step, len(rows))
				return f.Records(d.Rows)
			}
			return nil
		case <-time.After(opts.Timeout):
			return NewExitError(ExitFailure, fmt.Sprintf("no result after %s", step))
		}
	}

	if err := await("initial"); err != nil {
		return err
	}

	var ids []route.Identifier
	for i := 0; i < opts.Tasks; i++ {
		row, err := schema.Row("task", map[string]any{"title": faker.Sentence()})
		if err != nil {
			return WrapExitError(ExitFailure, "invalid demo row", err)
		}
		id, _, err := eng.Resolver().Insert(ctx, "/tasks", plan.Values(row))
		if err != nil {
			return WrapExitError(ExitFailure, "insert failed", err)
		}
		ids = append(ids, id)
		if err := await("insert " + string(id)); err != nil {
			return err
		}
	}

	if len(ids) > 0 {
		first := ids[0]
		done, err := schema.Row("task", map[string]any{"finished": true})
		if err != nil {
			return WrapExitError(ExitFailure, "invalid demo row", err)
		}
		if _, _, err := eng.Resolver().Update(ctx, first, plan.Values(done), nil); err != nil {
			return WrapExitError(ExitFailure, "update failed", err)
		}
		if err := await("finish " + string(first)); err != nil {
			return err
		}

		last := ids[len(ids)-1]
		if _, _, err := eng.Resolver().Delete(ctx, last, nil); err != nil {
			return WrapExitError(ExitFailure, "delete failed", err)
		}
		if err := await("delete " + string(last)); err != nil {
			return err
		}
	}

	if f.Format == "json" {
		return f.Success(deliveries)
	}
	return nil
}
