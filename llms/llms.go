package llms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the type of provider.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAnthropic is the type of provider.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderOllama is the type of provider. Ollama exposes an
	// OpenAI-compatible API, so it shares the OpenAI wire client.
	ProviderOllama ProviderType = "OLLAMA"
)

// Model is an interface chat models implement.
type Model interface {
	// GetName returns the model name.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages. The response either carries final text or a list of tool
	// calls the model wants executed.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAnthropic: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderOllama: CapabilityText |
		CapabilityFunctionCalling |
		CapabilitySystemPrompt,
}

// Supports reports whether the provider advertises the given capability.
func (pt ProviderType) Supports(c Capability) bool {
	return providerCapabilities[pt]&c == c
}

func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}
