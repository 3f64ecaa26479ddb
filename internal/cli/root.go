package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdoc/internal/config"
	"github.com/roach88/eventdoc/internal/docstore"
	"github.com/roach88/eventdoc/internal/eventstore"
	"github.com/roach88/eventdoc/internal/telemetry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Dir        string
	Backend    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eventdoc CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventdoc",
		Short: "eventdoc - document-backed event streams",
		Long: `An event store that keeps one document namespace per stream.

Events are appended to <dir>/<stream>.sqlite (or .bolt) and read back by
version, by metadata or in creation order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "root directory of the stream namespaces (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "namespace backend: sqlite|bolt (overrides config)")

	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewStreamsCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported through an OutputFormatter, on stdout in json mode and on
// stderr in text mode.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	// cobra argument and flag errors carry no exit code
	code := ExitCommandError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}

	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	f.Error(ErrorCode(err), err.Error(), nil)
	return code
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns the OutputFormatter for cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig resolves the configuration from --config, then applies --dir
// and --backend, then checks the root directory.
func (o *RootOptions) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.Load(o.ConfigPath)
		if err == nil {
			cfg, err = cfg.WithOverrides(o.Dir, o.Backend)
		}
	} else {
		cfg, err = config.FromValues(o.Dir, o.Backend, "")
	}
	if err != nil {
		return config.Config{}, WrapStoreError("failed to load configuration", err)
	}
	if err := cfg.Check(); err != nil {
		return config.Config{}, WrapStoreError("invalid configuration", err)
	}
	return cfg, nil
}

// logger returns a text logger on cmd's stderr. --verbose lowers the level
// to debug.
func (o *RootOptions) logger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	level := cfg.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openStore opens the traced event store described by the global flags.
func (o *RootOptions) openStore(cmd *cobra.Command) (eventstore.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	es, err := eventstore.Open(cfg, eventstore.WithLogger(o.logger(cmd, cfg)))
	if err != nil {
		return nil, WrapStoreError("failed to open event store", err)
	}
	st, err := telemetry.NewTracingStore(es)
	if err != nil {
		es.Close()
		return nil, WrapStoreError("failed to open event store", err)
	}
	return st, nil
}

// openArena opens the namespace arena described by the global flags.
func (o *RootOptions) openArena() (*docstore.Arena, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	arena, err := docstore.NewArena(cfg.Dir, cfg.Backend)
	if err != nil {
		return nil, WrapStoreError("failed to open store root", err)
	}
	return arena, nil
}
