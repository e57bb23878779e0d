package conversation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/molefas/trikbridge/conversation"
	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays scripted responses and records every request.
type fakeModel struct {
	responses []*llms.ContentResponse
	requests  [][]llms.Message
	err       error
}

func (m *fakeModel) GetName() string                        { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType     { return llms.ProviderOpenAI }
func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.requests = append(m.requests, messages)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return textResponse("Done."), nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason: "tool_calls",
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
		}},
	}
}

// hubServer serves a single "search:list" tool and scripted execute
// responses.
func hubServer(t *testing.T, execute func(map[string]any) map[string]any, content map[string]map[string]any) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tools", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tools": []map[string]any{
				{
					"name":        "search:list",
					"description": "List articles",
					"inputSchema": json.RawMessage(`{
						"type": "object",
						"properties": {"query": {"type": "string"}},
						"required": ["query"]
					}`),
				},
			},
		})
	})
	mux.HandleFunc("POST /api/v1/execute", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(execute(req))
	})
	mux.HandleFunc("GET /api/v1/content/{ref}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.PathValue("ref")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "content not found"})
			return
		}
		delete(content, r.PathValue("ref"))
		_ = json.NewEncoder(w).Encode(map[string]any{"content": body})
	})
	return httptest.NewServer(mux)
}

func TestChatPlainText(t *testing.T) {
	srv := hubServer(t, nil, nil)
	defer srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("Hello!")}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res := agent.Chat(context.Background(), conversation.Input{Text: "Hi"})
	require.NotNil(t, res)
	assert.Equal(t, "Hello!", res.Response)
	assert.NotEmpty(t, res.ConversationID)

	// the model saw the system instruction first, then the user turn
	require.Len(t, model.requests, 1)
	sent := model.requests[0]
	require.Len(t, sent, 2)
	assert.Equal(t, llms.RoleSystem, sent[0].Role)
	assert.Equal(t, conversation.SystemPrompt, llms.TextContentOf(sent[0]))
	assert.Equal(t, llms.RoleHuman, sent[1].Role)
}

func TestChatHistoryCarriesAcrossTurns(t *testing.T) {
	srv := hubServer(t, nil, nil)
	defer srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{
		textResponse("First reply"),
		textResponse("Second reply"),
	}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res1 := agent.Chat(context.Background(), conversation.Input{Text: "first"})
	res2 := agent.Chat(context.Background(), conversation.Input{
		ConversationID: res1.ConversationID,
		Text:           "second",
	})
	assert.Equal(t, res1.ConversationID, res2.ConversationID)

	// second call sees system + first turn + new user message
	require.Len(t, model.requests, 2)
	sent := model.requests[1]
	require.Len(t, sent, 4)
	assert.Equal(t, llms.RoleSystem, sent[0].Role)
	assert.Equal(t, "first", llms.TextContentOf(sent[1]))
	assert.Equal(t, "First reply", llms.TextContentOf(sent[2]))
	assert.Equal(t, "second", llms.TextContentOf(sent[3]))

	// the system prompt is prepended per call, never duplicated
	for _, msg := range sent[1:] {
		assert.NotEqual(t, llms.RoleSystem, msg.Role)
	}
}

func TestChatToolLoop(t *testing.T) {
	srv := hubServer(t, func(req map[string]any) map[string]any {
		assert.Equal(t, "search:list", req["tool"])
		input := req["input"].(map[string]any)
		assert.Equal(t, "go", input["query"])
		return map[string]any{"responseMode": "template", "response": "3 articles found"}
	}, nil)
	defer srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "search__list", `{"query":"go"}`),
		textResponse("I found 3 articles."),
	}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res := agent.Chat(context.Background(), conversation.Input{Text: "find go articles"})
	assert.Equal(t, "I found 3 articles.", res.Response)

	// second model call sees the tool call and its result in history
	require.Len(t, model.requests, 2)
	sent := model.requests[1]
	require.Len(t, sent, 4)
	assert.Equal(t, llms.RoleAI, sent[2].Role)
	require.Equal(t, llms.RoleTool, sent[3].Role)
	toolResp := sent[3].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_1", toolResp.ToolCallID)
	assert.JSONEq(t, `{"success":true,"response":"3 articles found"}`, toolResp.Content)
}

func TestChatPassthroughPriority(t *testing.T) {
	srv := hubServer(t, func(req map[string]any) map[string]any {
		return map[string]any{
			"responseMode":   "passthrough",
			"userContentRef": "ref-1",
		}
	}, map[string]map[string]any{
		"ref-1": {
			"content":     "# Full Article\n\nBody text.",
			"contentType": "text/markdown",
		},
	})
	defer srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "search__list", `{"query":"go"}`),
		textResponse("Content delivered directly to user"),
		textResponse("Nothing pending now."),
	}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res := agent.Chat(context.Background(), conversation.Input{Text: "show me the article"})
	// passthrough content leads and the boilerplate acknowledgement is
	// dropped
	assert.Equal(t, "# Full Article\n\nBody text.", res.Response)

	// the pending slot is cleared for the next turn
	res2 := agent.Chat(context.Background(), conversation.Input{
		ConversationID: res.ConversationID,
		Text:           "anything else?",
	})
	assert.Equal(t, "Nothing pending now.", res2.Response)
}

func TestChatPassthroughWithSupplementaryText(t *testing.T) {
	srv := hubServer(t, func(req map[string]any) map[string]any {
		return map[string]any{
			"responseMode":   "passthrough",
			"userContentRef": "ref-1",
		}
	}, map[string]map[string]any{
		"ref-1": {"content": "list of items", "contentType": "text/plain"},
	})
	defer srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "search__list", `{"query":"go"}`),
		textResponse("Here you go."),
	}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res := agent.Chat(context.Background(), conversation.Input{Text: "show the list"})
	assert.Equal(t, "list of items\nHere you go.", res.Response)
}

func TestChatFallbackResponse(t *testing.T) {
	srv := hubServer(t, nil, nil)
	defer srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("")}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res := agent.Chat(context.Background(), conversation.Input{Text: "hi"})
	assert.Equal(t, conversation.FallbackResponse, res.Response)
}

func TestChatModelFailure(t *testing.T) {
	srv := hubServer(t, nil, nil)
	defer srv.Close()

	model := &fakeModel{err: errors.New("model unavailable")}
	agent := conversation.New(model, hubclient.New(srv.URL))

	res := agent.Chat(context.Background(), conversation.Input{Text: "hi"})
	require.NotNil(t, res)
	assert.Contains(t, res.Response, "Error processing request")
	assert.Contains(t, res.Response, "model unavailable")
}

func TestChatWithoutServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("Still here.")}}
	agent := conversation.New(model, hubclient.New(srv.URL))

	// empty catalog, plain conversation still works
	res := agent.Chat(context.Background(), conversation.Input{Text: "hi"})
	assert.Equal(t, "Still here.", res.Response)
	assert.Zero(t, agent.ToolCount())
}

func TestChatToolCallLimit(t *testing.T) {
	srv := hubServer(t, func(req map[string]any) map[string]any {
		return map[string]any{"responseMode": "template", "response": "ok"}
	}, nil)
	defer srv.Close()

	// the model keeps asking for tools forever
	var responses []*llms.ContentResponse
	for i := 0; i < 20; i++ {
		responses = append(responses, toolCallResponse("", "search__list", `{"query":"go"}`))
	}
	model := &fakeModel{responses: responses}
	agent := conversation.New(model, hubclient.New(srv.URL), conversation.WithMaxToolCalls(3))

	res := agent.Chat(context.Background(), conversation.Input{Text: "loop"})
	assert.Contains(t, res.Response, "Error processing request")
	assert.Contains(t, res.Response, "tool call limit")
}

func TestReloadTools(t *testing.T) {
	srv := hubServer(t, nil, nil)
	defer srv.Close()

	agent := conversation.New(&fakeModel{}, hubclient.New(srv.URL))
	assert.Equal(t, conversation.StateUninitialized, agent.State())

	agent.Init(context.Background())
	assert.Equal(t, conversation.StateReady, agent.State())
	assert.Equal(t, 1, agent.ToolCount())

	count := agent.ReloadTools(context.Background())
	assert.Equal(t, 1, count)
}
