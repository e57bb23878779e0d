// Package triktools builds locally callable, type-checked tools from
// the tool definitions a TrikHub server publishes, and executes calls
// against it.
package triktools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/llmutils"
	schemabridge "github.com/molefas/trikbridge/schema"
	"github.com/molefas/trikbridge/tools"
)

var logger = xlog.NewPackageLogger("github.com/molefas/trikbridge", "triktools")

// PassthroughContent is content delivered directly to the user,
// bypassing the model's narration.
type PassthroughContent struct {
	ContentType string
	Content     string
	Metadata    map[string]any
}

// PassthroughFunc receives passthrough content as it is fetched. The
// context carries the conversation the content belongs to.
type PassthroughFunc func(ctx context.Context, content PassthroughContent)

// DeliveredMessage is the acknowledgement returned to the agent when a
// passthrough payload was routed to the user. The agent never sees the
// payload itself.
const DeliveredMessage = "Content delivered directly to user"

// TrikTool is one remote tool bound as a locally callable tool.
type TrikTool struct {
	client        *hubclient.Client
	remoteName    string
	localName     string
	description   string
	trikID        string
	inputSchema   *jsonschema.Schema
	argSpec       *schemabridge.ArgSpec
	sessions      *Sessions
	onPassthrough PassthroughFunc
}

var _ tools.ITool = (*TrikTool)(nil)

// NewTrikTool binds a single remote tool. The trik id is the text
// before the first ':' of the remote name; a name without ':' is its
// own trik id. argSpec may be nil, in which case arguments pass through
// unvalidated.
func NewTrikTool(
	client *hubclient.Client,
	remoteName, description string,
	inputSchema *jsonschema.Schema,
	argSpec *schemabridge.ArgSpec,
	sessions *Sessions,
	onPassthrough PassthroughFunc,
) *TrikTool {
	trikID := remoteName
	if idx := strings.Index(remoteName, ":"); idx >= 0 {
		trikID = remoteName[:idx]
	}
	if inputSchema == nil {
		inputSchema = &jsonschema.Schema{Type: "object"}
	}
	if sessions == nil {
		sessions = NewSessions()
	}
	return &TrikTool{
		client:        client,
		remoteName:    remoteName,
		localName:     ToLocalName(remoteName),
		description:   values.StringsCoalesce(description, "No description"),
		trikID:        trikID,
		inputSchema:   inputSchema,
		argSpec:       argSpec,
		sessions:      sessions,
		onPassthrough: onPassthrough,
	}
}

// Name returns the identifier-safe local name.
func (t *TrikTool) Name() string {
	return t.localName
}

// RemoteName returns the original "trikId:actionName" name.
func (t *TrikTool) RemoteName() string {
	return t.remoteName
}

// TrikID returns the trik this tool belongs to.
func (t *TrikTool) TrikID() string {
	return t.trikID
}

func (t *TrikTool) Description() string {
	return t.description
}

func (t *TrikTool) Parameters() *jsonschema.Schema {
	return t.inputSchema
}

type outcome struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Response  string `json:"response,omitempty"`
	Delivered string `json:"delivered,omitempty"`
}

func failure(msg string) string {
	return llmutils.ToJSON(outcome{Success: false, Error: msg})
}

// Call executes the tool against the TrikHub server. Failures of any
// kind are folded into a structured outcome string; Call never returns
// an error for a failing remote call, so one bad tool cannot abort the
// agent loop.
func (t *TrikTool) Call(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &args); err != nil {
			return failure("invalid JSON arguments: " + err.Error()), nil
		}
	}

	normalized := NormalizeInput(args, t.inputSchema)

	if t.argSpec != nil {
		bound, err := t.argSpec.Bind(normalized)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"tool", t.remoteName,
				"status", "invalid_arguments",
				"err", err.Error(),
			)
			return failure(err.Error()), nil
		}
		normalized = bound
	}

	sessionID := t.sessions.Get(ctx, t.trikID)
	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", t.remoteName,
		"input", llmutils.ToJSON(normalized),
		"session", sessionID,
	)

	result, err := t.client.Execute(ctx, t.remoteName, normalized, sessionID)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"tool", t.remoteName,
			"status", "execute_failed",
			"err", err.Error(),
		)
		return failure(err.Error()), nil
	}

	// the session token is shared with every tool in the same trik
	if result.SessionID != "" {
		t.sessions.Set(ctx, t.trikID, result.SessionID)
	}

	if result.Error != "" {
		logger.ContextKV(ctx, xlog.WARNING,
			"tool", t.remoteName,
			"status", "server_error",
			"err", result.Error,
		)
		return failure(result.Error), nil
	}

	switch result.ResponseMode {
	case "passthrough":
		return t.deliverPassthrough(ctx, result), nil
	case "template":
		return llmutils.ToJSON(outcome{Success: true, Response: result.Response}), nil
	}

	// forward-compatible fallback: hand back the raw response
	return llmutils.ToJSON(result.Raw), nil
}

// deliverPassthrough resolves the referenced content and routes it to
// the user. The fetch is one-time: the server deletes the content after
// it is read, so a failed fetch means the content is lost, not retried.
// The agent only ever receives the terse acknowledgement.
func (t *TrikTool) deliverPassthrough(ctx context.Context, result *hubclient.ExecuteResult) string {
	if result.UserContentRef != "" {
		content, err := t.client.GetContent(ctx, result.UserContentRef)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"tool", t.remoteName,
				"status", "content_fetch_failed",
				"ref", result.UserContentRef,
				"err", err.Error(),
			)
		} else if t.onPassthrough != nil {
			t.onPassthrough(ctx, PassthroughContent{
				ContentType: values.StringsCoalesce(content.ContentType, result.ContentType, "text/plain"),
				Content:     content.Content,
				Metadata:    content.Metadata,
			})
			logger.ContextKV(ctx, xlog.DEBUG,
				"tool", t.remoteName,
				"status", "delivered_passthrough",
				"content_type", content.ContentType,
				"size", len(content.Content),
			)
		}
	}
	return llmutils.ToJSON(outcome{Success: true, Delivered: DeliveredMessage})
}
