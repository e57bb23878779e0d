// Package openai implements llms.Model over the OpenAI
// chat-completions API. Setting a base URL points it at any compatible
// server, including a local Ollama instance.
package openai

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/molefas/trikbridge/llms"
	"github.com/molefas/trikbridge/llms/openai/internal/openaiclient"
)

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleTool      = "tool"
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = openaiclient.ErrEmptyResponse

// LLM is an OpenAI-compatible chat model.
type LLM struct {
	client       *openaiclient.Client
	providerType llms.ProviderType
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)
	if o.providerType == llms.ProviderOpenAI && o.token == "" {
		return nil, errors.New("missing OpenAI API token")
	}
	return &LLM{
		client:       openaiclient.New(o.model, o.token, o.baseURL, o.httpClient),
		providerType: o.providerType,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.client.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.providerType
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs := make([]openaiclient.ChatMessage, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openaiclient.ChatMessage{
				Role:    RoleSystem,
				Content: llms.TextContentOf(mc),
			})
		case llms.RoleHuman:
			chatMsgs = append(chatMsgs, openaiclient.ChatMessage{
				Role:    RoleUser,
				Content: llms.TextContentOf(mc),
			})
		case llms.RoleAI:
			msg := openaiclient.ChatMessage{
				Role:    RoleAssistant,
				Content: llms.TextContentOf(mc),
			}
			for _, part := range mc.Parts {
				if tc, ok := part.(llms.ToolCall); ok && tc.FunctionCall != nil {
					msg.ToolCalls = append(msg.ToolCalls, openaiclient.ToolCall{
						ID:   tc.ID,
						Type: tc.Type,
						Function: openaiclient.FunctionCall{
							Name:      tc.FunctionCall.Name,
							Arguments: tc.FunctionCall.Arguments,
						},
					})
				}
			}
			chatMsgs = append(chatMsgs, msg)
		case llms.RoleTool:
			// one tool message per response part
			for _, part := range mc.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.Errorf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, part)
				}
				chatMsgs = append(chatMsgs, openaiclient.ChatMessage{
					Role:       RoleTool,
					Name:       resp.Name,
					Content:    resp.Content,
					ToolCallID: resp.ToolCallID,
				})
			}
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "%v", mc.Role)
		}
	}

	req := &openaiclient.ChatRequest{
		Model:       opts.Model,
		Messages:    chatMsgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	}
	for _, tool := range opts.Tools {
		if tool.Function == nil {
			continue
		}
		req.Tools = append(req.Tools, openaiclient.Tool{
			Type: "function",
			Function: &openaiclient.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: fmt.Sprint(c.FinishReason),
			GenerationInfo: map[string]any{
				"CompletionTokens": result.Usage.CompletionTokens,
				"PromptTokens":     result.Usage.PromptTokens,
				"TotalTokens":      result.Usage.TotalTokens,
			},
		}
		for _, tool := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tool.ID,
				Type: tool.Type,
				FunctionCall: &llms.FunctionCall{
					Name:      tool.Function.Name,
					Arguments: tool.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}
