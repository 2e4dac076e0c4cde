package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets environment variables for a test and returns a cleanup
// function that restores the previous values.
func setupEnv(t *testing.T, envVars map[string]string) func() {
	originalValues := make(map[string]string)
	for name := range envVars {
		originalValues[name] = os.Getenv(name)
	}

	for name, value := range envVars {
		err := os.Setenv(name, value)
		require.NoError(t, err, "Failed to set environment variable %s", name)
	}

	return func() {
		for name, value := range originalValues {
			if value == "" {
				os.Unsetenv(name)
			} else {
				os.Setenv(name, value)
			}
		}
	}
}

// TestLoadDefaults verifies that Load returns the documented defaults
// when no config file or environment overrides are present.
func TestLoadDefaults(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"CARDSPLIT_BACKEND_PROVIDER":       "",
		"CARDSPLIT_SPLIT_MAX_ANSWER_CHARS": "",
	})
	defer cleanup()

	cfg, err := Load("")

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg, "Load() should return a non-nil config")
	assert.Equal(t, "info", cfg.Log.Level, "Default log level should be 'info'")
	assert.Equal(t, "Front", cfg.Split.QuestionField)
	assert.Equal(t, "Back", cfg.Split.AnswerField)
	assert.Equal(t, 220, cfg.Split.MaxAnswerChars)
	assert.Equal(t, 5, cfg.Split.MaxCards)
	assert.Equal(t, "SplitFromLong", cfg.Split.NewNoteTag)
	assert.Equal(t, "LongAnswerSplitSource", cfg.Split.SourceNoteTag)
	assert.Equal(t, "openai", cfg.Backend.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Backend.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Backend.OpenAI.APIKeyEnv)
	assert.Equal(t, 0.2, cfg.Backend.Temperature)
	assert.Equal(t, 500, cfg.Backend.MaxOutputTokens)
	assert.Equal(t, time.Minute, cfg.Backend.RequestTimeout)
	assert.Equal(t, 1, cfg.Runner.Workers)
}

// TestLoadFromEnv verifies that environment variables with the CARDSPLIT_
// prefix override defaults.
func TestLoadFromEnv(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"CARDSPLIT_LOG_LEVEL":               "debug",
		"CARDSPLIT_BACKEND_PROVIDER":        "gemini",
		"CARDSPLIT_SPLIT_MAX_CARDS":         "3",
		"CARDSPLIT_BACKEND_REQUEST_TIMEOUT": "30s",
		"CARDSPLIT_RUNNER_WORKERS":          "4",
	})
	defer cleanup()

	cfg, err := Load("")

	require.NoError(t, err, "Load() should not return an error with valid environment variables")
	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "gemini", cfg.Backend.Provider)
	assert.Equal(t, 3, cfg.Split.MaxCards)
	assert.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, 4, cfg.Runner.Workers)
}

// TestLoadFromFile verifies that an explicit config file is read and that
// environment variables still take precedence over it.
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardsplit.yaml")
	content := []byte("split:\n  max_cards: 7\n  output_language: Japanese\nbackend:\n  provider: gemini\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cleanup := setupEnv(t, map[string]string{
		"CARDSPLIT_BACKEND_PROVIDER": "openai",
	})
	defer cleanup()

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Split.MaxCards, "file value should override default")
	assert.Equal(t, "Japanese", cfg.Split.OutputLanguage)
	assert.Equal(t, "openai", cfg.Backend.Provider, "environment should override file")
}

// TestLoadMissingFile verifies that an explicitly named but absent config
// file is an error rather than silently ignored.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "Load() should fail when the named config file does not exist")
}

// TestLoadValidation verifies that invalid values are rejected with an
// error that names the offending field.
func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"CARDSPLIT_LOG_LEVEL": "verbose"}},
		{"bad provider", map[string]string{"CARDSPLIT_BACKEND_PROVIDER": "anthropic"}},
		{"zero max cards", map[string]string{"CARDSPLIT_SPLIT_MAX_CARDS": "0"}},
		{"too many workers", map[string]string{"CARDSPLIT_RUNNER_WORKERS": "99"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cleanup := setupEnv(t, tc.env)
			defer cleanup()

			_, err := Load("")
			require.Error(t, err, "Load() should reject invalid configuration")
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestProviderSettings(t *testing.T) {
	b := BackendConfig{
		Provider: "gemini",
		OpenAI:   ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:   ProviderConfig{Model: "gemini-2.5-flash"},
	}

	assert.Equal(t, "gemini-2.5-flash", b.ProviderSettings().Model)

	b.Provider = "openai"
	assert.Equal(t, "gpt-4o-mini", b.ProviderSettings().Model)
}
