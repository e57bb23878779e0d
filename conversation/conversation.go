// Package conversation drives a turn from user input to final
// response: it binds the TrikHub tool catalog to a language model,
// alternates between asking the model and running requested tools, and
// assembles the reply with passthrough content taking priority over the
// model's narration.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/molefas/trikbridge/chatmodel"
	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/llms"
	"github.com/molefas/trikbridge/store"
	"github.com/molefas/trikbridge/tools"
	"github.com/molefas/trikbridge/triktools"
)

var logger = xlog.NewPackageLogger("github.com/molefas/trikbridge", "conversation")

// SystemPrompt is prepended to every model call. It is not stored in
// conversation history.
const SystemPrompt = `You are a helpful AI assistant with access to various tools.

IMPORTANT RULES for TrikHub Tools:

1. **Template Mode Tools** (like "search"): These return a text response like "I found 3 articles".
   - Just relay this response to the user and STOP
   - Do NOT automatically call other tools to show more details
   - Wait for the user to ask for more information

2. **Passthrough Mode Tools** (like "list", "details"): These deliver content directly to the user.
   - Only call these when the user explicitly asks (e.g., "show me the list", "tell me about the first one")
   - When they return "Content delivered directly to user", just acknowledge briefly
   - Do NOT repeat or summarize the content

3. **One tool at a time**: After a tool succeeds, return the response to the user.
   Do not chain multiple tool calls unless the user explicitly asks for multiple things.

4. **General**: Be concise. If a tool returns an error, explain briefly what went wrong.

Available tools will be shown in your tool list.`

// FallbackResponse is returned when a turn produces no other output.
const FallbackResponse = "Done."

// NoResponseMessage is the boilerplate some models emit for an empty
// turn.
const NoResponseMessage = "I processed your request but have no response."

// skipResponses are model acknowledgements that add nothing for the
// user and are dropped from the assembled reply.
var skipResponses = map[string]bool{
	triktools.DeliveredMessage: true,
	NoResponseMessage:          true,
}

// DefaultMaxToolCalls bounds tool executions within one turn.
const DefaultMaxToolCalls = 10

// State of the per-turn machine.
type State int

const (
	// StateUninitialized means no tool catalog is loaded yet.
	StateUninitialized State = iota
	// StateReady means the catalog is bound and no turn is running.
	StateReady
	// StateAgent means the turn is waiting on the language model.
	StateAgent
	// StateTools means the turn is executing requested tool calls.
	StateTools
	// StateDone means the turn has assembled its final reply.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateReady:
		return "READY"
	case StateAgent:
		return "AGENT"
	case StateTools:
		return "TOOLS"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Input is one user turn.
type Input struct {
	// ConversationID continues an existing conversation; empty starts a
	// new one.
	ConversationID string
	Text           string
}

// Result is the outcome of one turn.
type Result struct {
	ConversationID string
	Response       string
}

// Agent is the conversation orchestrator. One Agent serves many
// conversations; per-conversation state (history, session tokens,
// pending passthrough content) is keyed by conversation ID.
type Agent struct {
	llm    llms.Model
	client *hubclient.Client
	store  store.MessageStore

	maxToolCalls int

	mu          sync.Mutex
	catalog     *triktools.Catalog
	toolsByName map[string]tools.ITool
	toolDefs    []llms.Tool
	pending     map[string]*triktools.PassthroughContent
}

// Option configures an Agent.
type Option func(*Agent)

// WithStore sets the conversation history store. Defaults to the
// in-memory store.
func WithStore(s store.MessageStore) Option {
	return func(a *Agent) {
		a.store = s
	}
}

// WithMaxToolCalls bounds tool executions within one turn.
func WithMaxToolCalls(n int) Option {
	return func(a *Agent) {
		a.maxToolCalls = n
	}
}

// New returns an Agent bound to the given model and TrikHub client. The
// tool catalog is loaded lazily on the first turn; call Init to load it
// eagerly.
func New(llm llms.Model, client *hubclient.Client, opts ...Option) *Agent {
	a := &Agent{
		llm:          llm,
		client:       client,
		store:        store.NewMemoryStore(),
		maxToolCalls: DefaultMaxToolCalls,
		pending:      make(map[string]*triktools.PassthroughContent),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State reports whether the catalog is loaded.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.catalog == nil {
		return StateUninitialized
	}
	return StateReady
}

// Init loads the tool catalog eagerly. A failure here is logged and
// swallowed; the catalog load is retried lazily on the first turn.
func (a *Agent) Init(ctx context.Context) {
	cat := a.ensureInitialized(ctx)
	if len(cat.Tools) == 0 {
		logger.ContextKV(ctx, xlog.WARNING, "status", "no_tools_loaded")
	}
}

// ToolCount returns the number of bound tools, zero before the catalog
// is loaded.
func (a *Agent) ToolCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.catalog == nil {
		return 0
	}
	return len(a.catalog.Tools)
}

// ReloadTools drops the current catalog and loads a fresh one from the
// server. It returns the number of tools loaded.
func (a *Agent) ReloadTools(ctx context.Context) int {
	a.mu.Lock()
	a.catalog = nil
	a.toolsByName = nil
	a.toolDefs = nil
	a.mu.Unlock()

	cat := a.ensureInitialized(ctx)
	logger.ContextKV(ctx, xlog.DEBUG, "status", "tools_reloaded", "count", len(cat.Tools))
	return len(cat.Tools)
}

// ensureInitialized loads the catalog if needed. A failed load degrades
// to an empty catalog inside the loader, so the agent stays usable for
// plain conversation.
func (a *Agent) ensureInitialized(ctx context.Context) *triktools.Catalog {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.catalog != nil {
		return a.catalog
	}

	cat := triktools.Load(ctx, a.client, a.storePassthrough)
	defs := make([]llms.Tool, 0, len(cat.Tools))
	for _, tool := range cat.Tools {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}

	a.catalog = cat
	a.toolsByName = tools.MapTools(cat.Tools...)
	a.toolDefs = defs
	return cat
}

func (a *Agent) storePassthrough(ctx context.Context, content triktools.PassthroughContent) {
	convID := chatmodel.GetConversationID(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[convID] = &content
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "passthrough_pending",
		"conversation", convID,
		"content_type", content.ContentType,
	)
}

// takePassthrough returns and clears the pending passthrough content
// for the conversation.
func (a *Agent) takePassthrough(convID string) *triktools.PassthroughContent {
	a.mu.Lock()
	defer a.mu.Unlock()
	content := a.pending[convID]
	delete(a.pending, convID)
	return content
}

// Chat runs one turn. Faults never escape: any error along the way is
// logged and converted into a user-visible error message, so the caller
// always receives a Result.
func (a *Agent) Chat(ctx context.Context, input Input) *Result {
	convID := values.StringsCoalesce(input.ConversationID, chatmodel.NewConversationID())
	ctx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(convID))

	response, err := a.runTurn(ctx, convID, input.Text)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "turn_failed",
			"conversation", convID,
			"err", err.Error(),
		)
		response = fmt.Sprintf("Error processing request: %s", err.Error())
	}

	return &Result{
		ConversationID: convID,
		Response:       response,
	}
}

// runTurn drives the AGENT/TOOLS state machine for one user turn and
// returns the assembled reply.
func (a *Agent) runTurn(ctx context.Context, convID, text string) (string, error) {
	a.ensureInitialized(ctx)

	a.mu.Lock()
	toolsByName := a.toolsByName
	toolDefs := a.toolDefs
	a.mu.Unlock()

	history := a.store.Messages(ctx, convID)
	userMsg := llms.MessageFromTextParts(llms.RoleHuman, text)
	history = append(history, userMsg)
	turnMsgs := []llms.Message{userMsg}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "turn_started",
		"conversation", convID,
		"history", len(history),
	)

	var callOpts []llms.CallOption
	if len(toolDefs) > 0 {
		if !a.llm.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
			return "", errors.Newf("model %s does not support tool calling", a.llm.GetName())
		}
		callOpts = append(callOpts, llms.WithTools(toolDefs))
	}

	var agentText string
	executed := 0
	state := StateAgent

	for state != StateDone {
		// the system instruction leads every model call but is never
		// persisted
		messages := make([]llms.Message, 0, len(history)+1)
		messages = append(messages, llms.MessageFromTextParts(llms.RoleSystem, SystemPrompt))
		messages = append(messages, history...)

		resp, err := a.llm.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("model returned no choices")
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			agentText = choice.Content
			state = StateDone
			continue
		}

		state = StateTools
		if executed+len(choice.ToolCalls) > a.maxToolCalls {
			return "", errors.Newf("tool call limit exceeded (%d)", a.maxToolCalls)
		}

		calls := make([]llms.ToolCall, 0, len(choice.ToolCalls))
		for i, call := range choice.ToolCalls {
			if call.ID == "" {
				call.ID = fmt.Sprintf("%s_%d", call.FunctionCall.Name, i)
			}
			call.Type = values.StringsCoalesce(call.Type, "function")
			calls = append(calls, call)
		}
		callMsg := llms.MessageFromToolCalls(llms.RoleAI, calls...)
		history = append(history, callMsg)
		turnMsgs = append(turnMsgs, callMsg)

		// requested calls run one after another, never in parallel
		for _, call := range calls {
			executed++
			result := a.executeTool(ctx, toolsByName, call)
			resultMsg := llms.MessageFromToolResponse(llms.RoleTool, result)
			history = append(history, resultMsg)
			turnMsgs = append(turnMsgs, resultMsg)
		}
		state = StateAgent
	}

	if agentText != "" {
		aiMsg := llms.MessageFromTextParts(llms.RoleAI, agentText)
		turnMsgs = append(turnMsgs, aiMsg)
	}

	if err := a.store.Add(ctx, convID, turnMsgs...); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "history_persist_failed",
			"conversation", convID,
			"err", err.Error(),
		)
	}

	return a.assembleReply(ctx, convID, agentText), nil
}

func (a *Agent) executeTool(ctx context.Context, toolsByName map[string]tools.ITool, call llms.ToolCall) llms.ToolCallResponse {
	name := call.FunctionCall.Name
	tool := toolsByName[name]
	if tool == nil {
		available := make([]string, 0, len(toolsByName))
		for n := range toolsByName {
			available = append(available, n)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool", name,
		)
		return llms.ToolCallResponse{
			ToolCallID: call.ID,
			Name:       name,
			Content:    fmt.Sprintf("Tool `%s` not found. Available tools: %s", name, strings.Join(available, ", ")),
		}
	}

	// TrikTool folds execution failures into its outcome string; an
	// error here is unexpected and still must not abort the turn
	content, err := tool.Call(ctx, call.FunctionCall.Arguments)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "tool_call_failed",
			"tool", name,
			"err", err.Error(),
		)
		content = fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return llms.ToolCallResponse{
		ToolCallID: call.ID,
		Name:       name,
		Content:    content,
	}
}

// assembleReply builds the final response. Pending passthrough content
// is emitted first and its slot cleared; the model's text follows only
// when it says something beyond a boilerplate acknowledgement.
func (a *Agent) assembleReply(ctx context.Context, convID, agentText string) string {
	var parts []string

	if content := a.takePassthrough(convID); content != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "passthrough_delivered",
			"conversation", convID,
			"content_type", content.ContentType,
			"size", len(content.Content),
		)
		parts = append(parts, content.Content)
	}

	if agentText != "" && !skipResponses[agentText] {
		if len(parts) > 0 {
			parts = append(parts, "\n"+agentText)
		} else {
			parts = append(parts, agentText)
		}
	}

	if len(parts) == 0 {
		return FallbackResponse
	}
	return strings.Join(parts, "")
}
