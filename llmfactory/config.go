// Package llmfactory builds chat models from configuration.
package llmfactory

import (
	"github.com/effective-security/x/configloader"
	"github.com/molefas/trikbridge/llms"
)

type Config struct {
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
}

// ProviderConfig describes one configured LLM provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	// Provider is one of OPENAI, ANTHROPIC, OLLAMA.
	Provider     llms.ProviderType `json:"provider" yaml:"provider"`
	Token        string            `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel string            `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	// BaseURL overrides the provider endpoint. Required for OLLAMA,
	// e.g. "http://localhost:11434/v1".
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
