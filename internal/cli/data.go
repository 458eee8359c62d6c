package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/resolver"
	"github.com/roach88/livestore/internal/route"
)

// RouteInfo describes a registered route in command output.
type RouteInfo struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Table   string `json:"table"`
}

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List registered routes",
		Long: `List the routes of the configured schema, in registration order.

Example:
  livestore routes
  livestore routes --config ./store.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer eng.Close()

			routes := eng.Routes().Routes()
			out := make([]RouteInfo, len(routes))
			for i, rt := range routes {
				out[i] = RouteInfo{Name: rt.Name(), Pattern: rt.Pattern(), Table: rt.Table()}
			}
			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(out)
			}
			for _, ri := range out {
				fmt.Fprintf(f.Writer, "%-16s %-28s %s\n", ri.Name, ri.Pattern, ri.Table)
			}
			return nil
		},
	}
}

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Where  []string
	Limit  int
	Offset int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <identifier>",
		Short: "Read the rows an identifier resolves to",
		Long: `Resolve an identifier against the routes and print its rows.

Example:
  livestore query /tasks
  livestore query /tasks --where finished=true --limit 10
  livestore query /tasks/3/notes --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, route.Identifier(args[0]).Normalize(), cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "column=value filter (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "maximum number of rows")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")

	return cmd
}

func runQuery(opts *QueryOptions, id route.Identifier, cmd *cobra.Command) error {
	ctx := cmd.Context()
	eng, err := openEngine(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	f := opts.formatter(cmd)
	table, err := eng.TableOf(id)
	if err != nil {
		_ = f.ReportError(err)
		return wrapResolveError("query failed", err)
	}
	eq, err := parseAssignments(opts.Where)
	if err != nil {
		return err
	}
	where, err := eng.Schema().Where(table, eq)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	queryOpts := []resolver.QueryOption{resolver.Where(where)}
	if opts.Limit >= 0 {
		queryOpts = append(queryOpts, resolver.Limit(opts.Limit))
	}
	if opts.Offset > 0 {
		queryOpts = append(queryOpts, resolver.Offset(opts.Offset))
	}
	records, err := eng.Records(ctx, id, queryOpts...)
	if err != nil {
		_ = f.ReportError(err)
		return wrapResolveError("query failed", err)
	}
	f.VerboseLog("%s: %d row(s) from %s", id, len(records), table)
	return f.Records(records)
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <identifier> <column=value>...",
		Short: "Insert a row through a route",
		Long: `Insert a row. Path arguments of the identifier and route defaults fill
the columns not given on the command line.

Example:
  livestore insert /tasks title="buy milk"
  livestore insert /tasks/3/notes body=urgent`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := route.Identifier(args[0]).Normalize()
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			eng, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer eng.Close()

			f := rootOpts.formatter(cmd)
			table, err := eng.TableOf(id)
			if err != nil {
				_ = f.ReportError(err)
				return wrapResolveError("insert failed", err)
			}
			row, err := eng.Schema().Row(table, values)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid values", err)
			}
			newID, ok, err := eng.Resolver().Insert(ctx, id, plan.Values(row))
			if err != nil {
				_ = f.ReportError(err)
				return wrapResolveError("insert failed", err)
			}
			if !ok {
				return f.Success(map[string]any{"inserted": false})
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"inserted": true, "identifier": string(newID)})
			}
			return f.Success(string(newID))
		},
	}
}

// MutateOptions holds flags for the update and delete commands.
type MutateOptions struct {
	*RootOptions
	Where []string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <identifier> <column=value>...",
		Short: "Update the rows an identifier resolves to",
		Long: `Update rows and print how many changed.

Example:
  livestore update /tasks/3 finished=true
  livestore update /tasks finished=true --where title=chores`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := route.Identifier(args[0]).Normalize()
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			eq, err := parseAssignments(opts.Where)
			if err != nil {
				return err
			}
			eng, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer eng.Close()

			f := rootOpts.formatter(cmd)
			table, err := eng.TableOf(id)
			if err != nil {
				_ = f.ReportError(err)
				return wrapResolveError("update failed", err)
			}
			schema := eng.Schema()
			row, err := schema.Row(table, values)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid values", err)
			}
			where, err := schema.Where(table, eq)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}
			n, _, err := eng.Resolver().Update(ctx, id, plan.Values(row), where)
			if err != nil {
				_ = f.ReportError(err)
				return wrapResolveError("update failed", err)
			}
			return reportCount(f, n)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "column=value filter (repeatable)")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <identifier>",
		Short: "Delete the rows an identifier resolves to",
		Long: `Delete rows and print how many were removed.

Example:
  livestore delete /tasks/3
  livestore delete /tasks --where finished=true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := route.Identifier(args[0]).Normalize()
			eq, err := parseAssignments(opts.Where)
			if err != nil {
				return err
			}
			eng, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer eng.Close()

			f := rootOpts.formatter(cmd)
			table, err := eng.TableOf(id)
			if err != nil {
				_ = f.ReportError(err)
				return wrapResolveError("delete failed", err)
			}
			where, err := eng.Schema().Where(table, eq)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}
			n, _, err := eng.Resolver().Delete(ctx, id, where)
			if err != nil {
				_ = f.ReportError(err)
				return wrapResolveError("delete failed", err)
			}
			return reportCount(f, n)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "column=value filter (repeatable)")
	return cmd
}

func reportCount(f *OutputFormatter, n int64) error {
	if f.Format == "json" {
		return f.Success(map[string]any{"count": n})
	}
	return f.Success(fmt.Sprintf("%d row(s)", n))
}
