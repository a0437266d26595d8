package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton so init-order-sensitive packages can reach configuration
// without plumbing it through every constructor.
var globalConfig *Config

// Config holds all environment backed configuration for the server.
type Config struct {
	// HTTP Server
	HTTPPort  int `env:"HTTP_PORT" envDefault:"8080"`
	PprofPort int `env:"PPROF_PORT" envDefault:"6060"`

	// Persistence
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// Default model configuration, used only until the user saves settings.
	DefaultModels  []string `env:"DEFAULT_MODELS" envSeparator:"," envDefault:"gpt-3.5,qwen-max,qwen-turbo"`
	DefaultBaseURL string   `env:"DEFAULT_BASE_URL"`
	DefaultAPIKey  string   `env:"DEFAULT_API_KEY"`
	DefaultLayout  int      `env:"DEFAULT_LAYOUT" envDefault:"3"`

	// Optional YAML bootstrap file for model settings; overrides the
	// DEFAULT_* values when present.
	ModelBootstrapFile string `env:"MODEL_BOOTSTRAP_FILE"`

	// Adapter
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"120s"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"modelarena"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"modelarena"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	models := make([]string, 0, len(cfg.DefaultModels))
	for _, m := range cfg.DefaultModels {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	cfg.DefaultModels = models

	if cfg.ModelBootstrapFile != "" {
		bootstrap, err := LoadModelBootstrap(cfg.ModelBootstrapFile)
		if err != nil {
			return nil, fmt.Errorf("load model bootstrap: %w", err)
		}
		bootstrap.ApplyTo(cfg)
	}

	globalConfig = cfg
	return cfg, nil
}

// GetGlobal returns the configuration loaded by Load, or nil before it ran.
func GetGlobal() *Config {
	return globalConfig
}
