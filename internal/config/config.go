// Package config provides configuration loading for medtriage.
//
// Configuration is assembled from hardcoded defaults, an optional YAML file and
// environment variable overrides (see LoadWithFile).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Risk classification strategies accepted by RiskConfig.Strategy.
const (
	StrategyLexical   = "lexical"
	StrategySentiment = "sentiment"
)

// maxRetryDelay bounds the pause before the single scheduling retry.
const maxRetryDelay = 30 * time.Second

// Config holds the complete medtriage configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Corpus        CorpusConfig        `koanf:"corpus"`
	Vocabulary    VocabularyConfig    `koanf:"vocabulary"`
	Risk          RiskConfig          `koanf:"risk"`
	Sentiment     SentimentConfig     `koanf:"sentiment"`
	Pipeline      PipelineConfig      `koanf:"pipeline"`
	Scheduling    SchedulingConfig    `koanf:"scheduling"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CorpusConfig describes the conversation CSV source.
type CorpusConfig struct {
	Path       string `koanf:"path"`
	MaxRows    int    `koanf:"max_rows"`
	TextColumn string `koanf:"text_column"`
	IDColumn   string `koanf:"id_column"`
	Watch      bool   `koanf:"watch"`
}

// VocabularyConfig overrides the built-in term lists. Empty lists keep the defaults.
type VocabularyConfig struct {
	Symptoms []string             `koanf:"symptoms"`
	Diseases []string             `koanf:"diseases"`
	Genders  []GenderMarkerConfig `koanf:"genders"`
}

// GenderMarkerConfig maps a marker term to a gender tag. Order matters: the
// first marker found in a conversation wins.
type GenderMarkerConfig struct {
	Term   string `koanf:"term"`
	Gender string `koanf:"gender"`
}

// RiskConfig selects and tunes the risk classifier.
type RiskConfig struct {
	Strategy      string   `koanf:"strategy"`
	HighTerms     []string `koanf:"high_terms"`
	ModerateTerms []string `koanf:"moderate_terms"`
}

// SentimentConfig configures the external sentiment model endpoint.
type SentimentConfig struct {
	BaseURL    string        `koanf:"base_url"`
	APIKey     Secret        `koanf:"api_key"`
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  float64       `koanf:"rate_limit"` // requests per second
	Burst      int           `koanf:"burst"`
	MaxRetries int           `koanf:"max_retries"`
}

// PipelineConfig bounds the analysis fan-out.
type PipelineConfig struct {
	Workers              int `koanf:"workers"`
	SentimentConcurrency int `koanf:"sentiment_concurrency"`
}

// SchedulingConfig configures follow-up booking against Google Calendar.
type SchedulingConfig struct {
	Enabled          bool          `koanf:"enabled"`
	ClientSecretPath string        `koanf:"client_secret_path"`
	TokenPath        string        `koanf:"token_path"`
	CalendarID       string        `koanf:"calendar_id"`
	Endpoint         string        `koanf:"endpoint"`
	RedirectPort     int           `koanf:"redirect_port"`
	RetryDelay       time.Duration `koanf:"retry_delay"`
	CallTimeout      time.Duration `koanf:"call_timeout"`
	MaxConcurrent    int           `koanf:"max_concurrent"`
	RateLimit        float64       `koanf:"rate_limit"`
}

// ObservabilityConfig holds logging and OpenTelemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPProtocol    string `koanf:"otlp_protocol"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Corpus: CorpusConfig{
			Path:       "convdata.csv",
			MaxRows:    3000,
			TextColumn: "conversation",
			IDColumn:   "id",
		},
		Risk: RiskConfig{
			Strategy: StrategyLexical,
		},
		Sentiment: SentimentConfig{
			Timeout:    30 * time.Second,
			RateLimit:  5,
			Burst:      5,
			MaxRetries: 2,
		},
		Pipeline: PipelineConfig{
			Workers:              8,
			SentimentConcurrency: 4,
		},
		Scheduling: SchedulingConfig{
			ClientSecretPath: "~/.config/medtriage/credentials.json",
			TokenPath:        "~/.config/medtriage/token.json",
			CalendarID:       "primary",
			RetryDelay:       2 * time.Second,
			CallTimeout:      30 * time.Second,
			MaxConcurrent:    4,
			RateLimit:        5,
		},
		Observability: ObservabilityConfig{
			ServiceName:  "medtriage",
			OTLPEndpoint: "localhost:4317",
			OTLPProtocol: "grpc",
			LogLevel:     "info",
			LogFormat:    "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Corpus.MaxRows < 1 {
		return fmt.Errorf("corpus.max_rows must be positive, got %d", c.Corpus.MaxRows)
	}
	if strings.TrimSpace(c.Corpus.TextColumn) == "" {
		return errors.New("corpus.text_column is required")
	}

	for i, g := range c.Vocabulary.Genders {
		if strings.TrimSpace(g.Term) == "" || strings.TrimSpace(g.Gender) == "" {
			return fmt.Errorf("vocabulary.genders[%d]: term and gender are required", i)
		}
	}

	switch c.Risk.Strategy {
	case StrategyLexical:
	case StrategySentiment:
		if c.Sentiment.BaseURL == "" {
			return errors.New("sentiment.base_url is required for the sentiment strategy")
		}
	default:
		return fmt.Errorf("risk.strategy must be %q or %q, got %q", StrategyLexical, StrategySentiment, c.Risk.Strategy)
	}

	if c.Sentiment.RateLimit <= 0 || c.Sentiment.Burst < 1 {
		return errors.New("sentiment rate_limit and burst must be positive")
	}
	if c.Sentiment.MaxRetries < 0 {
		return fmt.Errorf("sentiment.max_retries must be >= 0, got %d", c.Sentiment.MaxRetries)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.SentimentConcurrency < 1 {
		return fmt.Errorf("pipeline.sentiment_concurrency must be >= 1, got %d", c.Pipeline.SentimentConcurrency)
	}

	if c.Scheduling.RetryDelay < 0 || c.Scheduling.RetryDelay > maxRetryDelay {
		return fmt.Errorf("scheduling.retry_delay must be between 0 and %s, got %s", maxRetryDelay, c.Scheduling.RetryDelay)
	}
	if c.Scheduling.CallTimeout <= 0 {
		return errors.New("scheduling.call_timeout must be positive")
	}
	if c.Scheduling.MaxConcurrent < 1 {
		return fmt.Errorf("scheduling.max_concurrent must be >= 1, got %d", c.Scheduling.MaxConcurrent)
	}
	if c.Scheduling.Enabled && c.Scheduling.TokenPath == "" {
		return errors.New("scheduling.token_path is required when scheduling is enabled")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("observability.log_format must be 'json' or 'console', got %q", c.Observability.LogFormat)
	}

	return nil
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
