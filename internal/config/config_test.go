package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shodgson/eddytor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"GO_ENV", "LOG_LEVEL", "LOG_FILE_PATH",
	"EDDYTOR_CODE_LANGUAGE", "EDDYTOR_HIGHLIGHT_TTL", "EDDYTOR_CHECKING_DELAY",
}

// unsetEnv clears the configuration variables for the test, and restores
// them after it.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func missing(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaults(t *testing.T) {
	unsetEnv(t)
	cfg, err := config.Load(missing(t))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "", cfg.App.LogFilePath)
	assert.Equal(t, "", cfg.Editor.CodeLanguage)
	assert.Equal(t, 10*time.Minute, cfg.Editor.HighlightTTL)
	assert.Equal(t, 300*time.Millisecond, cfg.Editor.CheckingDelay)
	assert.False(t, cfg.IsProduction())
}

func TestEnvironment(t *testing.T) {
	unsetEnv(t)
	t.Setenv("GO_ENV", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("EDDYTOR_CODE_LANGUAGE", "Python")
	t.Setenv("EDDYTOR_HIGHLIGHT_TTL", "1m")
	t.Setenv("EDDYTOR_CHECKING_DELAY", "0s")

	cfg, err := config.Load(missing(t))
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "python", cfg.Editor.CodeLanguage)
	assert.Equal(t, time.Minute, cfg.Editor.HighlightTTL)
	assert.Equal(t, time.Duration(0), cfg.Editor.CheckingDelay)
}

func TestEnvFile(t *testing.T) {
	unsetEnv(t)
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("LOG_LEVEL=warn\nLOG_FILE_PATH=eddytor.log\nEDDYTOR_CODE_LANGUAGE=sql\n"), 0o600))
	t.Setenv("EDDYTOR_CODE_LANGUAGE", "json")

	cfg, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "eddytor.log", cfg.App.LogFilePath)
	// The environment wins over the file.
	assert.Equal(t, "json", cfg.Editor.CodeLanguage)
}

func TestInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"GO_ENV":                 "staging",
		"LOG_LEVEL":              "verbose",
		"EDDYTOR_CODE_LANGUAGE":  "cobol",
		"EDDYTOR_HIGHLIGHT_TTL":  "10ms",
		"EDDYTOR_CHECKING_DELAY": "1h",
	} {
		t.Run(key, func(t *testing.T) {
			unsetEnv(t)
			t.Setenv(key, value)
			_, err := config.Load(missing(t))
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestUnparsableDurationFallsBack(t *testing.T) {
	unsetEnv(t)
	t.Setenv("EDDYTOR_HIGHLIGHT_TTL", "soon")
	cfg, err := config.Load(missing(t))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Editor.HighlightTTL)
}
