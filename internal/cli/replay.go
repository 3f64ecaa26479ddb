package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdoc/internal/eventstore"
	"github.com/roach88/eventdoc/internal/ir"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Since string // RFC 3339
	Where []string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <stream>",
		Short: "Replay a stream's events in creation order",
		Long: `Replay the events of a stream ordered by created_at and then version.

Events of different aggregates in the same stream interleave by creation
time. --since keeps events created at or after the given RFC 3339 time,
compared in UTC. --where takes metadata.<key>==<value> or
created_at>=<timestamp> and may be repeated.

Examples:
  eventdoc replay user_stream --dir ./event_store
  eventdoc replay user_stream --since 2016-05-01T12:00:00Z --where metadata.tag==person`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, ir.StreamName(args[0]))
		},
	}

	cmd.Flags().StringVar(&opts.Since, "since", "", "only events created at or after this RFC 3339 time")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter expression (repeatable)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command, name ir.StreamName) error {
	where, err := parseWhere(opts.Where, false, true)
	if err != nil {
		return whereError(err)
	}

	since := where.Since
	if opts.Since != "" {
		ts, err := time.Parse(time.RFC3339Nano, opts.Since)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --since", err)
		}
		if ts.After(since) {
			since = ts
		}
	}

	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if where.Unsatisfiable {
		return opts.formatter(cmd).Success(EventsResult{Stream: string(name), Events: []EventView{}})
	}

	msgs, err := st.Replay(cmd.Context(), name, eventstore.ReplayOptions{
		Since:    since,
		Metadata: where.Metadata,
	})
	if err != nil {
		return WrapStoreError("failed to replay events", err)
	}

	result, err := newEventsResult(name, msgs)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render events", err)
	}
	return opts.formatter(cmd).Success(result)
}
