package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log        LogConfig        `mapstructure:"log"        validate:"required"`
	Collection CollectionConfig `mapstructure:"collection" validate:"required"`
	Split      SplitConfig      `mapstructure:"split"      validate:"required"`
	Backend    BackendConfig    `mapstructure:"backend"    validate:"required"`
	Runner     RunnerConfig     `mapstructure:"runner"     validate:"required"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// CollectionConfig locates the note collection and names the deck that
// receives derived notes when a source note has no deck of its own.
type CollectionConfig struct {
	Path        string `mapstructure:"path"         validate:"required"`
	DefaultDeck string `mapstructure:"default_deck" validate:"required"`
}

// SplitConfig controls candidate selection and how split results are
// written back: which fields hold question and answer, the length
// threshold, the output constraints sent to the model, and the marker
// tags that make the pipeline idempotent.
type SplitConfig struct {
	QuestionField      string `mapstructure:"question_field"       validate:"required"`
	AnswerField        string `mapstructure:"answer_field"         validate:"required"`
	MaxAnswerChars     int    `mapstructure:"max_answer_chars"     validate:"required,gt=0"`
	OutputLanguage     string `mapstructure:"output_language"      validate:"required"`
	MaxCards           int    `mapstructure:"max_cards"            validate:"required,gt=0,lte=50"`
	NewNoteTag         string `mapstructure:"new_note_tag"         validate:"required"`
	SourceNoteTag      string `mapstructure:"source_note_tag"      validate:"required"`
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
}

// BackendConfig selects and tunes the generation backend.
type BackendConfig struct {
	Provider        string         `mapstructure:"provider"          validate:"required,oneof=openai gemini"`
	Temperature     float64        `mapstructure:"temperature"       validate:"gte=0,lte=2"`
	MaxOutputTokens int            `mapstructure:"max_output_tokens" validate:"required,gt=0"`
	RequestTimeout  time.Duration  `mapstructure:"request_timeout"   validate:"required"`
	MaxRetries      int            `mapstructure:"max_retries"       validate:"gte=0,lte=10"`
	RetryBaseDelay  time.Duration  `mapstructure:"retry_base_delay"  validate:"required"`
	OpenAI          ProviderConfig `mapstructure:"openai"            validate:"required"`
	Gemini          ProviderConfig `mapstructure:"gemini"            validate:"required"`
}

// ProviderConfig carries the per-provider settings: which model to ask
// for, which environment variable holds the API key, and where to send
// requests. The key itself is never stored in configuration.
type ProviderConfig struct {
	Model     string `mapstructure:"model"       validate:"required"`
	APIKeyEnv string `mapstructure:"api_key_env" validate:"required"`
	APIBase   string `mapstructure:"api_base"    validate:"required,url"`
}

// RunnerConfig contains batch execution settings.
type RunnerConfig struct {
	Workers int `mapstructure:"workers" validate:"required,gt=0,lte=16"`
}
