package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// CARDSPLIT_BACKEND_PROVIDER=gemini overrides backend.provider.
const envPrefix = "CARDSPLIT"

// Load reads configuration from an optional config file and the
// environment. Defaults are applied first, then values from the file at
// path (when non-empty; a missing explicit file is an error), then
// environment variables with the CARDSPLIT_ prefix. The resulting struct
// is validated before being returned.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers a default for every known key. Registering each
// key is also what makes AutomaticEnv pick it up for nested structures.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("collection.path", "collection.db")
	v.SetDefault("collection.default_deck", "Default")

	v.SetDefault("split.question_field", "Front")
	v.SetDefault("split.answer_field", "Back")
	v.SetDefault("split.max_answer_chars", 220)
	v.SetDefault("split.output_language", "English")
	v.SetDefault("split.max_cards", 5)
	v.SetDefault("split.new_note_tag", "SplitFromLong")
	v.SetDefault("split.source_note_tag", "LongAnswerSplitSource")
	v.SetDefault("split.prompt_template_path", "")

	v.SetDefault("backend.provider", "openai")
	v.SetDefault("backend.temperature", 0.2)
	v.SetDefault("backend.max_output_tokens", 500)
	v.SetDefault("backend.request_timeout", time.Minute)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.retry_base_delay", 2*time.Second)

	v.SetDefault("backend.openai.model", "gpt-4o-mini")
	v.SetDefault("backend.openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("backend.openai.api_base", "https://api.openai.com/v1/chat/completions")

	v.SetDefault("backend.gemini.model", "gemini-2.5-flash")
	v.SetDefault("backend.gemini.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("backend.gemini.api_base", "https://generativelanguage.googleapis.com")

	v.SetDefault("runner.workers", 1)
}

// validate runs struct-tag validation and converts the first failure into
// a readable error naming the offending key.
func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return fmt.Errorf("invalid configuration: field %s failed rule %q", first.Namespace(), first.Tag())
	}

	return fmt.Errorf("invalid configuration: %w", err)
}

// ProviderSettings returns the per-provider settings selected by
// backend.provider.
func (b BackendConfig) ProviderSettings() ProviderConfig {
	if b.Provider == "gemini" {
		return b.Gemini
	}
	return b.OpenAI
}
