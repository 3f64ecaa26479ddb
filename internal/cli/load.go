package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/eventdoc/internal/eventstore"
	"github.com/roach88/eventdoc/internal/ir"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	MinVersion int64
	Where      []string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <stream>",
		Short: "Load a stream's events in version order",
		Long: `Load the events of a stream in ascending version order.

--where takes metadata.<key>==<value> or version>=<n> and may be repeated;
all expressions must hold. Values are JSON literals when they parse as one
and strings otherwise, so metadata.tag==person and metadata.attempt==2 differ
in type. A stream that was never written loads as empty.

Examples:
  eventdoc load user_stream --dir ./event_store
  eventdoc load user_stream --min-version 2 --where metadata.tag==person
  eventdoc load user_stream --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, cmd, ir.StreamName(args[0]))
		},
	}

	cmd.Flags().Int64Var(&opts.MinVersion, "min-version", 0, "only events with version >= N (0 means no bound)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter expression (repeatable)")

	return cmd
}

func runLoad(opts *LoadOptions, cmd *cobra.Command, name ir.StreamName) error {
	where, err := parseWhere(opts.Where, true, false)
	if err != nil {
		return whereError(err)
	}
	minVersion := max(opts.MinVersion, where.MinVersion)

	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if where.Unsatisfiable {
		return opts.formatter(cmd).Success(EventsResult{Stream: string(name), Events: []EventView{}})
	}

	msgs, err := st.LoadEvents(cmd.Context(), name, eventstore.LoadOptions{
		Metadata:   where.Metadata,
		MinVersion: minVersion,
	})
	if err != nil {
		return WrapStoreError("failed to load events", err)
	}

	result, err := newEventsResult(name, msgs)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render events", err)
	}
	return opts.formatter(cmd).Success(result)
}

// whereError keeps query validation failures as store failures and reports
// everything else as a usage error.
func whereError(err error) error {
	if ir.KindOf(err) != "" {
		return WrapStoreError("invalid --where", err)
	}
	return WrapExitError(ExitCommandError, "invalid --where", err)
}
