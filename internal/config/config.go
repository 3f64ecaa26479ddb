// Package config loads and checks the store configuration.
//
// A configuration file is YAML (.yaml, .yml) or CUE (.cue). Either form is
// unified with the embedded #Config schema, which fills defaults and rejects
// unknown fields, and then checked against the filesystem. Every failure is
// a ConfigurationError.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/eventdoc/internal/docstore"
	"github.com/roach88/eventdoc/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Config is a validated store configuration.
type Config struct {
	// Dir is the root directory of the stream namespaces.
	Dir string

	// Backend selects the namespace storage engine.
	Backend docstore.Backend

	// LogLevel is the minimum level of the CLI logger.
	LogLevel slog.Level
}

// fileConfig mirrors #Config. Tags are read by cue.Value.Decode.
type fileConfig struct {
	Dir      string `json:"dir"`
	Backend  string `json:"backend"`
	LogLevel string `json:"log_level"`
}

// Load reads the file at path and validates it against the schema. A
// relative dir is resolved against the file's directory. The filesystem is
// not checked; see Config.Check.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, configError("failed to read config file: %w", err)
	}

	cctx := cuecontext.New()
	var value cue.Value
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		value = cctx.CompileBytes(data, cue.Filename(path))
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, configError("failed to parse YAML: %w", err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		value = cctx.Encode(raw)
	default:
		return Config{}, configError("unsupported config file extension %q (want .yaml, .yml or .cue)", ext)
	}
	if err := value.Err(); err != nil {
		return Config{}, configError("failed to build config: %w", err)
	}

	cfg, err := decode(cctx, value)
	if err != nil {
		return Config{}, err
	}
	if !filepath.IsAbs(cfg.Dir) {
		cfg.Dir = filepath.Join(filepath.Dir(path), cfg.Dir)
	}
	return cfg, nil
}

// FromValues builds a Config from plain values, applying schema defaults
// to empty backend and logLevel.
func FromValues(dir, backend, logLevel string) (Config, error) {
	raw := map[string]any{"dir": dir}
	if backend != "" {
		raw["backend"] = backend
	}
	if logLevel != "" {
		raw["log_level"] = logLevel
	}
	cctx := cuecontext.New()
	return decode(cctx, cctx.Encode(raw))
}

// WithOverrides returns a copy of c with non-empty dir and backend applied,
// revalidated against the schema.
func (c Config) WithOverrides(dir, backend string) (Config, error) {
	if dir == "" {
		dir = c.Dir
	}
	if backend == "" {
		backend = string(c.Backend)
	}
	return FromValues(dir, backend, levelName(c.LogLevel))
}

func decode(cctx *cue.Context, value cue.Value) (Config, error) {
	schema := cctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, configError("failed to compile schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, configError("invalid config: %w", err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return Config{}, configError("failed to decode config: %w", err)
	}

	backend, err := docstore.ParseBackend(fc.Backend)
	if err != nil {
		return Config{}, configError("%w", err)
	}
	level, err := ParseLogLevel(fc.LogLevel)
	if err != nil {
		return Config{}, configError("%w", err)
	}
	return Config{Dir: fc.Dir, Backend: backend, LogLevel: level}, nil
}

// Check verifies that Dir exists, is a directory and is writable.
func (c Config) Check() error {
	if err := docstore.CheckRoot(c.Dir); err != nil {
		return configError("%w", err)
	}

	probe, err := os.CreateTemp(c.Dir, ".eventdoc-probe-*")
	if err != nil {
		return configError("root directory %q is not writable: %w", c.Dir, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return configError("root directory %q: remove probe: %w", c.Dir, err)
	}
	return nil
}

// ParseLogLevel resolves debug, info, warn or error. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func levelName(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

func configError(format string, args ...any) error {
	return ir.NewError(ir.KindConfiguration, "config", "", format, args...)
}
