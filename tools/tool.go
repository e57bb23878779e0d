// Package tools defines the tool abstraction the conversation agent
// binds to a language model.
package tools

import (
	"context"

	"github.com/invopop/jsonschema"
)

// ITool is a tool for the llm agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the JSON schema of the tool input, to be used in the prompt.
	Parameters() *jsonschema.Schema

	// Call executes the tool with the given JSON input and returns the result.
	Call(context.Context, string) (string, error)
}

// MapTools indexes tools by name.
func MapTools(list ...ITool) map[string]ITool {
	if len(list) == 0 {
		return nil
	}
	m := make(map[string]ITool, len(list))
	for _, t := range list {
		m[t.Name()] = t
	}
	return m
}
