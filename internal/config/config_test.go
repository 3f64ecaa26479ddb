package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdoc/internal/docstore"
	"github.com/roach88/eventdoc/internal/ir"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "eventdoc.yaml", "dir: ./event_store\nbackend: bolt\nlog_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "event_store"), cfg.Dir, "relative dir resolves against the file")
	assert.Equal(t, docstore.BackendBolt, cfg.Backend)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "eventdoc.yml", "dir: /var/lib/events\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/events", cfg.Dir)
	assert.Equal(t, docstore.BackendSQLite, cfg.Backend)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "eventdoc.cue", `
dir:     "/srv/events"
backend: "bolt"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/events", cfg.Dir)
	assert.Equal(t, docstore.BackendBolt, cfg.Backend)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"missing dir", "a.yaml", "backend: sqlite\n"},
		{"empty dir", "b.yaml", "dir: \"\"\n"},
		{"empty file", "c.yaml", ""},
		{"unknown backend", "d.yaml", "dir: /x\nbackend: postgres\n"},
		{"unknown level", "e.yaml", "dir: /x\nlog_level: trace\n"},
		{"unknown field", "f.yaml", "dir: /x\nroot: /y\n"},
		{"bad yaml", "g.yaml", "dir: [\n"},
		{"bad cue", "h.cue", "dir: \n"},
		{"wrong type", "i.yaml", "dir: 42\n"},
		{"unknown extension", "j.toml", "dir = \"/x\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ir.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ir.ErrConfiguration)
}

func TestFromValues(t *testing.T) {
	cfg, err := FromValues("/data", "", "")
	require.NoError(t, err)
	assert.Equal(t, Config{Dir: "/data", Backend: docstore.BackendSQLite, LogLevel: slog.LevelInfo}, cfg)

	_, err = FromValues("", "", "")
	assert.ErrorIs(t, err, ir.ErrConfiguration)
}

func TestWithOverrides(t *testing.T) {
	base := Config{Dir: "/data", Backend: docstore.BackendSQLite, LogLevel: slog.LevelWarn}

	got, err := base.WithOverrides("/other", "bolt")
	require.NoError(t, err)
	assert.Equal(t, Config{Dir: "/other", Backend: docstore.BackendBolt, LogLevel: slog.LevelWarn}, got)

	got, err = base.WithOverrides("", "")
	require.NoError(t, err)
	assert.Equal(t, base, got)

	_, err = base.WithOverrides("", "leveldb")
	assert.ErrorIs(t, err, ir.ErrConfiguration)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, Config{Dir: dir}.Check())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")
}

func TestCheck_Failures(t *testing.T) {
	parent := t.TempDir()
	file := writeFile(t, parent, "plain", "")

	for name, dir := range map[string]string{
		"missing": filepath.Join(parent, "missing"),
		"file":    file,
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			err := Config{Dir: dir}.Check()
			assert.ErrorIs(t, err, ir.ErrConfiguration)
		})
	}

	_, err := os.Stat(filepath.Join(parent, "missing"))
	assert.True(t, os.IsNotExist(err), "check must not create the root")
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
