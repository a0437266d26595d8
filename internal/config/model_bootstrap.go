package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelBootstrap describes the initial model settings read from a yaml file.
// It mirrors the settings the user can later edit at runtime.
type ModelBootstrap struct {
	Models  []string `yaml:"models"`
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Layout  int      `yaml:"layout"`
}

// LoadModelBootstrap parses the yaml file at the provided path.
func LoadModelBootstrap(path string) (*ModelBootstrap, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model bootstrap path is empty")
	}

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read model bootstrap %q: %w", cleanPath, err)
	}

	var bootstrap ModelBootstrap
	if err := yaml.Unmarshal(data, &bootstrap); err != nil {
		return nil, fmt.Errorf("parse model bootstrap %q: %w", cleanPath, err)
	}

	models := make([]string, 0, len(bootstrap.Models))
	for _, m := range bootstrap.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	bootstrap.Models = models

	return &bootstrap, nil
}

// ApplyTo overrides the DEFAULT_* env values with the bootstrap file contents.
func (b *ModelBootstrap) ApplyTo(cfg *Config) {
	if b == nil {
		return
	}
	if len(b.Models) > 0 {
		cfg.DefaultModels = b.Models
	}
	if strings.TrimSpace(b.BaseURL) != "" {
		cfg.DefaultBaseURL = b.BaseURL
	}
	if strings.TrimSpace(b.APIKey) != "" {
		cfg.DefaultAPIKey = b.APIKey
	}
	if b.Layout > 0 {
		cfg.DefaultLayout = b.Layout
	}
}
