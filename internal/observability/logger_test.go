package observability

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/JordanDalton/mechanical-turk/internal/config"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}

	for name, expected := range testCases {
		assert.Equal(t, expected, ParseLevel(name).Level(), "level %q", name)
	}
}

func TestSetupLoggerJSONToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, err := setupLogger(config.LogConfig{Level: "info", Format: "json", Outputs: []string{"stdout"}}, &stdout, &stderr)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Empty(t, stderr.String())
}

func TestSetupLoggerDefaultsToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, err := setupLogger(config.LogConfig{}, &stdout, &stderr)
	require.NoError(t, err)

	logger.Info("to stderr")
	assert.Contains(t, stderr.String(), "to stderr")
	assert.Empty(t, stdout.String())
}

func TestSetupLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mturk.log")
	logger, err := setupLogger(config.LogConfig{Format: "json", Outputs: []string{path}}, nil, nil)
	require.NoError(t, err)

	logger.Info("to file")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestSetupLoggerRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotating.log")
	cfg := config.LogConfig{
		Outputs:  []string{path},
		Rotation: config.RotationConfig{Enable: true, MaxSizeMB: 1},
	}
	logger, err := setupLogger(cfg, nil, nil)
	require.NoError(t, err)

	logger.Info("rotated")
	assert.FileExists(t, path)
}
