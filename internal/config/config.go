package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Generation providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port string `validate:"required,numeric"`

	// Optional bearer token guarding /api.
	TutorAPIKey string

	// Generation
	GenerationProvider string        `validate:"oneof=gemini openai anthropic"`
	GoogleAPIKey       string        `validate:"required_if=GenerationProvider gemini"`
	GeminiModel        string        `validate:"required"`
	GeminiBaseURL      string        `validate:"required,url"`
	OpenAIAPIKey       string        `validate:"required_if=GenerationProvider openai"`
	OpenAIModel        string        `validate:"required"`
	OpenAIBaseURL      string        `validate:"omitempty,url"`
	AnthropicAPIKey    string        `validate:"required_if=GenerationProvider anthropic"`
	AnthropicModel     string        `validate:"required"`
	GenerationTimeout  time.Duration `validate:"gt=0"`

	// Speech synthesis
	ElevenLabsAPIKey          string        `validate:"required"`
	ElevenLabsVoiceID         string        `validate:"required"`
	ElevenLabsModel           string        `validate:"required"`
	ElevenLabsBaseURL         string        `validate:"required,url"`
	ElevenLabsOutputFormat    string        `validate:"required"`
	ElevenLabsStability       float64       `validate:"gte=0,lte=1"`
	ElevenLabsSimilarityBoost float64       `validate:"gte=0,lte=1"`
	SynthesisTimeout          time.Duration `validate:"gt=0"`

	// Prompt assembly
	MaxCorpusChars      int `validate:"gt=0"`
	MaxHistoryTurns     int `validate:"gte=0"`
	AudioIncludeHistory bool
	TutorPersona        string

	// Sessions
	SessionTTL time.Duration `validate:"gt=0"`

	// Upload limits
	MaxUploadBytes int64 `validate:"gt=0"`
	MaxAudioBytes  int64 `validate:"gt=0"`

	// Turns per minute across the server; 0 disables the limiter.
	TurnRatePerMinute int `validate:"gte=0"`

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel      string `validate:"oneof=debug info warn error"`
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win over it.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		TutorAPIKey: os.Getenv("TUTOR_API_KEY"),

		GenerationProvider: strings.ToLower(envOr("GENERATION_PROVIDER", ProviderGemini)),
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:        envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:      envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        envOr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GenerationTimeout:  envDuration("GENERATION_TIMEOUT", 90*time.Second),

		ElevenLabsAPIKey:          os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID:         os.Getenv("ELEVENLABS_VOICE_ID"),
		ElevenLabsModel:           envOr("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		ElevenLabsBaseURL:         envOr("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsOutputFormat:    envOr("ELEVENLABS_OUTPUT_FORMAT", "mp3_44100_128"),
		ElevenLabsStability:       envFloat("ELEVENLABS_STABILITY", 0.5),
		ElevenLabsSimilarityBoost: envFloat("ELEVENLABS_SIMILARITY_BOOST", 0.75),
		SynthesisTimeout:          envDuration("SYNTHESIS_TIMEOUT", 60*time.Second),

		MaxCorpusChars:      envInt("MAX_CORPUS_CHARS", 50000),
		MaxHistoryTurns:     envInt("MAX_HISTORY_TURNS", 0),
		AudioIncludeHistory: envBool("AUDIO_INCLUDE_HISTORY", false),
		TutorPersona:        os.Getenv("TUTOR_PERSONA"),

		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxAudioBytes:  envInt64("MAX_AUDIO_BYTES", 20971520),  // 20MB

		TurnRatePerMinute: envInt("TURN_RATE_PER_MINUTE", 30),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", false),

		LogLevel:      strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 30),
	}

	if cfg.MaxCorpusChars <= 0 {
		cfg.MaxCorpusChars = 50000
	}
	if cfg.MaxHistoryTurns < 0 {
		cfg.MaxHistoryTurns = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 20971520
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 90 * time.Second
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 60 * time.Second
	}

	return cfg
}

var envNames = map[string]string{
	"Port":                      "PORT",
	"GenerationProvider":        "GENERATION_PROVIDER",
	"GoogleAPIKey":              "GOOGLE_API_KEY",
	"GeminiModel":               "GEMINI_MODEL",
	"GeminiBaseURL":             "GEMINI_BASE_URL",
	"OpenAIAPIKey":              "OPENAI_API_KEY",
	"OpenAIModel":               "OPENAI_MODEL",
	"OpenAIBaseURL":             "OPENAI_BASE_URL",
	"AnthropicAPIKey":           "ANTHROPIC_API_KEY",
	"AnthropicModel":            "ANTHROPIC_MODEL",
	"GenerationTimeout":         "GENERATION_TIMEOUT",
	"ElevenLabsAPIKey":          "ELEVENLABS_API_KEY",
	"ElevenLabsVoiceID":         "ELEVENLABS_VOICE_ID",
	"ElevenLabsModel":           "ELEVENLABS_MODEL",
	"ElevenLabsBaseURL":         "ELEVENLABS_BASE_URL",
	"ElevenLabsOutputFormat":    "ELEVENLABS_OUTPUT_FORMAT",
	"ElevenLabsStability":       "ELEVENLABS_STABILITY",
	"ElevenLabsSimilarityBoost": "ELEVENLABS_SIMILARITY_BOOST",
	"SynthesisTimeout":          "SYNTHESIS_TIMEOUT",
	"MaxCorpusChars":            "MAX_CORPUS_CHARS",
	"MaxHistoryTurns":           "MAX_HISTORY_TURNS",
	"SessionTTL":                "SESSION_TTL",
	"MaxUploadBytes":            "MAX_UPLOAD_BYTES",
	"MaxAudioBytes":             "MAX_AUDIO_BYTES",
	"TurnRatePerMinute":         "TURN_RATE_PER_MINUTE",
	"LogLevel":                  "LOG_LEVEL",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every problem with the configuration. Any error here is
// fatal at startup.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name, ok := envNames[fe.Field()]
	if !ok {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL", name)
	default:
		return fmt.Sprintf("%s is invalid (%s %s)", name, fe.Tag(), fe.Param())
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
