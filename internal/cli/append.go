package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/message"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions

	// now stamps events without created_at.
	now func() time.Time
}

// AppendResult is the output of append.
type AppendResult struct {
	Stream   string `json:"stream"`
	Appended int    `json:"appended"`
}

func (r AppendResult) String() string {
	return fmt.Sprintf("Appended %d event(s) to %s\n", r.Appended, r.Stream)
}

// messageInput is one element of the append input array.
type messageInput struct {
	UUID        string    `json:"uuid"`
	MessageName string    `json:"message_name"`
	Version     int64     `json:"version"`
	Payload     ir.Object `json:"payload"`
	Metadata    ir.Object `json:"metadata"`
	CreatedAt   string    `json:"created_at"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts, now: time.Now}

	cmd := &cobra.Command{
		Use:   "append <stream> [file|-]",
		Short: "Append events to a stream",
		Long: `Append events to a stream, creating its namespace on first use.

The input is a JSON array of message data read from file, or from stdin when
the file is "-" or omitted:

  [{"message_name": "UserCreated", "version": 1,
    "payload": {"name": "Max"}, "metadata": {"tag": "person"},
    "uuid": "...", "created_at": "2016-05-01T12:00:00Z"}]

uuid defaults to a random UUID and created_at (RFC 3339) to the current
time. Events are appended in order; events before a failing one stay
appended.

Exit codes:
  0 - All events appended
  1 - An event was rejected or could not be stored
  2 - Command error (unreadable input, bad configuration, etc.)

Examples:
  eventdoc append user_stream events.json --dir ./event_store
  cat events.json | eventdoc append user_stream --config eventdoc.yaml`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 2 {
				src = args[1]
			}
			return runAppend(opts, cmd, ir.StreamName(args[0]), src)
		},
	}

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command, name ir.StreamName, src string) error {
	if err := name.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid stream name", err)
	}

	raw, err := readInput(cmd, src)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	msgs, err := decodeMessages(raw, opts.now)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input", err)
	}
	opts.formatter(cmd).VerboseLog("Read %d message(s) from %s", len(msgs), src)

	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.AppendTo(cmd.Context(), name, slices.Values(msgs)); err != nil {
		return WrapStoreError("failed to append events", err)
	}

	return opts.formatter(cmd).Success(AppendResult{Stream: string(name), Appended: len(msgs)})
}

func readInput(cmd *cobra.Command, src string) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(src)
}

// decodeMessages decodes the append input. Payload and metadata keep JSON
// integers as int64 and reject fractional numbers.
func decodeMessages(raw []byte, now func() time.Time) ([]ir.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var inputs []messageInput
	if err := dec.Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode message array: %w", err)
	}

	msgs := make([]ir.Message, 0, len(inputs))
	for i, in := range inputs {
		createdAt := now()
		if in.CreatedAt != "" {
			ts, err := time.Parse(time.RFC3339Nano, in.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("[%d] created_at: %w", i, err)
			}
			createdAt = ts
		}
		id := in.UUID
		if id == "" {
			id = uuid.NewString()
		}
		msgs = append(msgs, message.FromData(ir.MessageData{
			UUID:        id,
			MessageName: in.MessageName,
			Version:     in.Version,
			Payload:     in.Payload.ToGo(),
			Metadata:    in.Metadata.ToGo(),
			CreatedAt:   createdAt,
		}))
	}
	return msgs, nil
}
