package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// StreamsResult is the output of streams.
type StreamsResult struct {
	Streams []string `json:"streams"`
}

func (r StreamsResult) String() string {
	if len(r.Streams) == 0 {
		return "No streams found.\n"
	}
	return strings.Join(r.Streams, "\n") + "\n"
}

// NewStreamsCommand creates the streams command.
func NewStreamsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streams",
		Short: "List the streams that have a namespace",
		Long: `List the streams that have a namespace under the root directory for the
configured backend, sorted by name.

Examples:
  eventdoc streams --dir ./event_store
  eventdoc streams --dir ./event_store --backend bolt --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreams(rootOpts, cmd)
		},
	}

	return cmd
}

func runStreams(opts *RootOptions, cmd *cobra.Command) error {
	arena, err := opts.openArena()
	if err != nil {
		return err
	}
	defer arena.Close()

	names, err := arena.Streams()
	if err != nil {
		return WrapStoreError("failed to list streams", err)
	}

	result := StreamsResult{Streams: make([]string, 0, len(names))}
	for _, n := range names {
		result.Streams = append(result.Streams, string(n))
	}
	return opts.formatter(cmd).Success(result)
}
