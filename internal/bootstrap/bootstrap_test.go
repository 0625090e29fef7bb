package bootstrap

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isseis/go-ti-runner/internal/config"
	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCapabilities struct {
	interactive bool
}

func (s stubCapabilities) IsInteractive() bool             { return s.interactive }
func (s stubCapabilities) AcceptsInput() bool              { return s.interactive }
func (s stubCapabilities) SupportsColor() bool             { return false }
func (s stubCapabilities) HasExplicitUserPreference() bool { return false }

func stubHost(t *testing.T, info *host.InfoStat, err error) {
	t.Helper()
	orig := hostInfo
	hostInfo = func() (*host.InfoStat, error) { return info, err }
	t.Cleanup(func() { hostInfo = orig })
}

func stubHostname(t *testing.T, name string, err error) {
	t.Helper()
	orig := osHostname
	osHostname = func() (string, error) { return name, err }
	t.Cleanup(func() { osHostname = orig })
}

func TestCollectHostFacts(t *testing.T) {
	t.Run("from host info", func(t *testing.T) {
		stubHost(t, &host.InfoStat{
			Hostname:        "build01",
			Platform:        "Microsoft Windows Server 2022 Datacenter",
			PlatformVersion: "10.0.20348",
			KernelVersion:   "10.0.20348 Build 20348",
		}, nil)

		facts := CollectHostFacts()
		assert.Equal(t, "build01", facts.Hostname)
		assert.Equal(t, "Microsoft Windows Server 2022 Datacenter", facts.Platform)
		assert.Equal(t, "10.0.20348", facts.PlatformVersion)
	})

	t.Run("falls back when host info fails", func(t *testing.T) {
		stubHost(t, nil, errors.New("wmi unavailable"))
		stubHostname(t, "fallback", nil)

		facts := CollectHostFacts()
		assert.Equal(t, "fallback", facts.Hostname)
		assert.NotEmpty(t, facts.Platform)
	})

	t.Run("unknown host", func(t *testing.T) {
		stubHost(t, nil, errors.New("wmi unavailable"))
		stubHostname(t, "", errors.New("no name"))

		assert.Equal(t, UnknownHostFallback, CollectHostFacts().Hostname)
	})
}

func TestNewLogger_NonInteractive(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l, err := NewLogger(LoggerConfig{
		Level:             slog.LevelInfo,
		RunID:             "run-1",
		Capabilities:      stubCapabilities{},
		ConsoleWriter:     &stdout,
		InteractiveWriter: &stderr,
	})
	require.NoError(t, err)
	defer l.Close()

	l.Logger.Debug("hidden")
	l.Logger.Info("Elevated process started", "pid", 42)

	assert.Contains(t, stdout.String(), "msg=\"Elevated process started\" pid=42")
	assert.NotContains(t, stdout.String(), "hidden")
	assert.Empty(t, stderr.String())
	assert.Empty(t, l.LogPath)
}

func TestNewLogger_Interactive(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l, err := NewLogger(LoggerConfig{
		Level:             slog.LevelInfo,
		Capabilities:      stubCapabilities{interactive: true},
		ConsoleWriter:     &stdout,
		InteractiveWriter: &stderr,
	})
	require.NoError(t, err)
	defer l.Close()

	l.Logger.Info("Elevated process started", "pid", 42)

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "[+] Elevated process started")
}

func TestNewLogger_JSONFile(t *testing.T) {
	stubHost(t, &host.InfoStat{Hostname: "build01", Platform: "windows", KernelVersion: "10.0"}, nil)
	dir := t.TempDir()
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	l, err := NewLogger(LoggerConfig{
		Level:         slog.LevelInfo,
		LogDir:        dir,
		RunID:         "run-42",
		Capabilities:  stubCapabilities{},
		ConsoleWriter: &bytes.Buffer{},
		Now:           func() time.Time { return at },
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "build01_20260304T050607Z_run-42.json"), l.LogPath)

	l.Logger.Warn("Caller is not an elevated administrator")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(l.LogPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "build01", entry["hostname"])
	assert.EqualValues(t, schemaVersion, entry["schema_version"])
	osGroup, ok := entry["os"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "windows", osGroup["platform"])
}

func TestNewLogger_InvalidLogDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewLogger(LoggerConfig{LogDir: file, Capabilities: stubCapabilities{}})
	assert.ErrorContains(t, err, "invalid log directory")
}

func TestSetupLoggerWithConfig_WrapsFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := SetupLoggerWithConfig(LoggerConfig{LogDir: file, RunID: "r", Capabilities: stubCapabilities{}})
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeLogFileOpen, preErr.Type)
	assert.Equal(t, "r", preErr.RunID)
}

func TestSetupLoggerWithConfig_SetsDefault(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	var stdout bytes.Buffer
	l, err := SetupLoggerWithConfig(LoggerConfig{
		Level:         slog.LevelInfo,
		Capabilities:  stubCapabilities{},
		ConsoleWriter: &stdout,
	})
	require.NoError(t, err)
	defer l.Close()

	slog.Info("via default")
	assert.Contains(t, stdout.String(), "via default")
}

type stubSource struct {
	cfg  *config.Config
	path string
	err  error
}

func (s stubSource) Load() (*config.Config, string, error) { return s.cfg, s.path, s.err }

func TestLoadConfig(t *testing.T) {
	cfg, path, err := LoadConfig(stubSource{cfg: config.Default(), path: "tirun.toml"}, "r")
	require.NoError(t, err)
	assert.Equal(t, "tirun.toml", path)
	assert.Equal(t, config.Default(), cfg)

	_, _, err = LoadConfig(stubSource{err: config.ErrInvalidLogLevel}, "r")
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeConfigParsing, preErr.Type)
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestLoggerConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Dir = "logs"
	cfg.Console.ForceNonInteractive = true
	cfg.Console.DisableColor = true

	lc := LoggerConfigFrom(cfg, "r")
	assert.Equal(t, slog.LevelWarn, lc.Level)
	assert.Equal(t, "logs", lc.LogDir)
	assert.Equal(t, "r", lc.RunID)
	assert.True(t, lc.Console.ForceNonInteractive)
	assert.True(t, lc.Console.DisableColor)
	assert.False(t, lc.Console.ForceInteractive)
}

func TestNewLogger_RedactsSensitiveKeys(t *testing.T) {
	var stdout bytes.Buffer
	l, err := NewLogger(LoggerConfig{
		Level:         slog.LevelInfo,
		Capabilities:  stubCapabilities{},
		ConsoleWriter: &stdout,
	})
	require.NoError(t, err)
	defer l.Close()

	l.Logger.Info("Minted", "token", 0x1234)
	assert.Contains(t, stdout.String(), "token="+logging.RedactedPlaceholder)
	assert.NotContains(t, stdout.String(), "4660")
}
