package triktools_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/molefas/trikbridge/chatmodel"
	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/schema"
	"github.com/molefas/trikbridge/triktools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executeReq struct {
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input"`
	SessionID string         `json:"sessionId"`
}

// hubStub is a scriptable TrikHub server for invoker tests.
type hubStub struct {
	t        *testing.T
	execute  func(executeReq) map[string]any
	content  map[string]map[string]any
	requests []executeReq
	fetched  atomic.Int32
}

func (h *hubStub) serve() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/execute", func(w http.ResponseWriter, r *http.Request) {
		var req executeReq
		require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
		h.requests = append(h.requests, req)
		_ = json.NewEncoder(w).Encode(h.execute(req))
	})
	mux.HandleFunc("GET /api/v1/content/{ref}", func(w http.ResponseWriter, r *http.Request) {
		h.fetched.Add(1)
		ref := r.PathValue("ref")
		body, ok := h.content[ref]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "content not found"})
			return
		}
		// one-time delivery
		delete(h.content, ref)
		_ = json.NewEncoder(w).Encode(map[string]any{"content": body})
	})
	return httptest.NewServer(mux)
}

func newTool(client *hubclient.Client, remoteName, rawSchema string, sessions *triktools.Sessions, onPassthrough triktools.PassthroughFunc) *triktools.TrikTool {
	js, err := schema.Parse([]byte(rawSchema))
	if err != nil {
		js = nil
	}
	var spec *schema.ArgSpec
	if js != nil {
		spec = schema.FromJSONSchema(js)
	}
	return triktools.NewTrikTool(client, remoteName, "test tool", js, spec, sessions, onPassthrough)
}

func TestTrikToolTemplateMode(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		return map[string]any{"responseMode": "template", "response": "3 articles found"}
	}}
	srv := stub.serve()
	defer srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:list", searchSchema, nil, nil)
	out, err := tool.Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"response":"3 articles found"}`, out)
}

func TestTrikToolServerError(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		return map[string]any{"error": "article not found"}
	}}
	srv := stub.serve()
	defer srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:get", searchSchema, nil, nil)
	out, err := tool.Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"article not found"}`, out)
}

func TestTrikToolInvalidArguments(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		t.Fatal("server must not be called for invalid arguments")
		return nil
	}}
	srv := stub.serve()
	defer srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:list", searchSchema, nil, nil)

	// required "query" missing
	out, err := tool.Call(context.Background(), `{"limit":3}`)
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["success"])
	assert.Contains(t, res["error"], "query")
	assert.Empty(t, stub.requests)
}

func TestTrikToolConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:list", searchSchema, nil, nil)
	out, err := tool.Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["success"])
	assert.NotEmpty(t, res["error"])
}

func TestTrikToolSessionContinuity(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		return map[string]any{
			"sessionId":    "sess-1",
			"responseMode": "template",
			"response":     "ok",
		}
	}}
	srv := stub.serve()
	defer srv.Close()

	client := hubclient.New(srv.URL)
	sessions := triktools.NewSessions()
	list := newTool(client, "search:list", searchSchema, sessions, nil)
	get := newTool(client, "search:get", searchSchema, sessions, nil)
	other := newTool(client, "weather:now", searchSchema, sessions, nil)

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("conv1"))
	_, err := list.Call(ctx, `{"query":"go"}`)
	require.NoError(t, err)
	// sibling tool in the same trik reuses the token
	_, err = get.Call(ctx, `{"query":"go"}`)
	require.NoError(t, err)
	// tool in another trik starts fresh
	_, err = other.Call(ctx, `{"query":"go"}`)
	require.NoError(t, err)

	// another conversation does not see the first one's token
	otherCtx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("conv2"))
	_, err = get.Call(otherCtx, `{"query":"go"}`)
	require.NoError(t, err)

	require.Len(t, stub.requests, 4)
	assert.Empty(t, stub.requests[0].SessionID)
	assert.Equal(t, "sess-1", stub.requests[1].SessionID)
	assert.Empty(t, stub.requests[2].SessionID)
	assert.Empty(t, stub.requests[3].SessionID)
	assert.Equal(t, 3, sessions.Len())
}

func TestTrikToolPassthrough(t *testing.T) {
	stub := &hubStub{
		t: t,
		execute: func(req executeReq) map[string]any {
			return map[string]any{
				"responseMode":   "passthrough",
				"userContentRef": "ref-42",
			}
		},
		content: map[string]map[string]any{
			"ref-42": {
				"content":     "# Article\n\nFull text here.",
				"contentType": "text/markdown",
				"metadata":    map[string]any{"title": "Article"},
			},
		},
	}
	srv := stub.serve()
	defer srv.Close()

	var delivered []triktools.PassthroughContent
	tool := newTool(hubclient.New(srv.URL), "search:get", searchSchema, nil, func(_ context.Context, pc triktools.PassthroughContent) {
		delivered = append(delivered, pc)
	})

	out, err := tool.Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)
	// the agent only sees the acknowledgement, never the payload
	assert.JSONEq(t, `{"success":true,"delivered":"Content delivered directly to user"}`, out)
	assert.NotContains(t, out, "Full text")

	require.Len(t, delivered, 1)
	assert.Equal(t, "text/markdown", delivered[0].ContentType)
	assert.Equal(t, "# Article\n\nFull text here.", delivered[0].Content)
	assert.Equal(t, int32(1), stub.fetched.Load())
}

func TestTrikToolPassthroughFetchFailure(t *testing.T) {
	stub := &hubStub{
		t: t,
		execute: func(req executeReq) map[string]any {
			return map[string]any{
				"responseMode":   "passthrough",
				"userContentRef": "gone",
			}
		},
	}
	srv := stub.serve()
	defer srv.Close()

	var delivered int
	tool := newTool(hubclient.New(srv.URL), "search:get", searchSchema, nil, func(context.Context, triktools.PassthroughContent) {
		delivered++
	})

	// the acknowledgement is returned even when the content is lost
	out, err := tool.Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"delivered":"Content delivered directly to user"}`, out)
	assert.Zero(t, delivered)
}

func TestTrikToolRawFallback(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		return map[string]any{"responseMode": "stream", "chunks": []any{"a", "b"}}
	}}
	srv := stub.serve()
	defer srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:list", searchSchema, nil, nil)
	out, err := tool.Call(context.Background(), `{"query":"go"}`)
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "stream", res["responseMode"])
	assert.Equal(t, []any{"a", "b"}, res["chunks"])
}

func TestTrikToolNormalizesBeforeSend(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		return map[string]any{"responseMode": "template", "response": "ok"}
	}}
	srv := stub.serve()
	defer srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:list", searchSchema, nil, nil)
	_, err := tool.Call(context.Background(), `{"query":"go","tags":"news","limit":null}`)
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	sent := stub.requests[0].Input
	assert.Equal(t, []any{"news"}, sent["tags"])
	_, hasLimit := sent["limit"]
	assert.False(t, hasLimit)
}

func TestTrikToolFencedJSONInput(t *testing.T) {
	stub := &hubStub{t: t, execute: func(req executeReq) map[string]any {
		return map[string]any{"responseMode": "template", "response": "ok"}
	}}
	srv := stub.serve()
	defer srv.Close()

	tool := newTool(hubclient.New(srv.URL), "search:list", searchSchema, nil, nil)
	_, err := tool.Call(context.Background(), "```json\n{\"query\":\"go\"}\n```")
	require.NoError(t, err)
	require.Len(t, stub.requests, 1)
	assert.Equal(t, "go", stub.requests[0].Input["query"])
}
