package openai

import (
	"github.com/molefas/trikbridge/llms"
	"github.com/molefas/trikbridge/llms/openai/internal/openaiclient"
)

type options struct {
	model        string
	token        string
	baseURL      string
	httpClient   openaiclient.Doer
	providerType llms.ProviderType
}

// Option is an option for the OpenAI LLM.
type Option func(*options)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithBaseURL points the client at a compatible server, e.g.
// "http://localhost:11434/v1" for Ollama.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(hc openaiclient.Doer) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithProviderType overrides the reported provider type, e.g.
// llms.ProviderOllama when talking to a local server.
func WithProviderType(pt llms.ProviderType) Option {
	return func(o *options) {
		o.providerType = pt
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		providerType: llms.ProviderOpenAI,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
