package llmfactory

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/molefas/trikbridge/llms"
	"github.com/molefas/trikbridge/llms/anthropic"
	"github.com/molefas/trikbridge/llms/openai"
)

var logger = xlog.NewPackageLogger("github.com/molefas/trikbridge", "llmfactory")

type Factory interface {
	DefaultModel() (llms.Model, error)
	ModelByProvider(provider llms.ProviderType) (llms.Model, error)
	ModelByName(name string) (llms.Model, error)
}

// Load returns a factory from a config file location.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	byProvider map[llms.ProviderType]llms.Model
	byName     map[string]llms.Model
	lock       sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	return &factory{
		cfg:        cfg,
		byProvider: make(map[llms.ProviderType]llms.Model),
		byName:     make(map[string]llms.Model),
	}
}

// NewLLM builds a model from a single provider config.
func NewLLM(cfg *ProviderConfig) (llms.Model, error) {
	switch llms.ProviderType(strings.ToUpper(string(cfg.Provider))) {
	case llms.ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.Token != "" {
			opts = append(opts, anthropic.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		opts = append(opts, anthropic.WithModel(cfg.DefaultModel))
		return anthropic.New(opts...)
	case llms.ProviderOpenAI:
		var opts []openai.Option
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		opts = append(opts, openai.WithModel(cfg.DefaultModel))
		return openai.New(opts...)
	case llms.ProviderOllama:
		if cfg.BaseURL == "" {
			return nil, errors.New("base_url is required for the OLLAMA provider")
		}
		return openai.New(
			openai.WithModel(cfg.DefaultModel),
			openai.WithToken(cfg.Token),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithProviderType(llms.ProviderOllama),
		)
	default:
		return nil, errors.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// DefaultModel returns the model of the first configured provider.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	return f.ModelByName(f.cfg.Providers[0].Name)
}

func (f *factory) ModelByProvider(provider llms.ProviderType) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byProvider[provider]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.Provider == provider {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"provider", cfg.Provider,
				"model", cfg.DefaultModel,
				"name", cfg.Name)

			f.byProvider[provider] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", provider)
}

func (f *factory) ModelByName(name string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byName[name]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.Name == name {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"provider", cfg.Provider,
				"model", cfg.DefaultModel,
				"name", cfg.Name)

			f.byName[name] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for name: %s", name)
}
