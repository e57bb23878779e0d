// Package hubclient is the HTTP client for a TrikHub tool server.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/molefas/trikbridge", "hubclient")

var (
	// ErrConnection is returned when the server cannot be reached.
	ErrConnection = errors.New("failed to connect to TrikHub server")
	// ErrAuth is returned on 401/403 responses.
	ErrAuth = errors.New("authentication failed")
	// ErrProtocol is returned for any other non-2xx response or a
	// malformed body.
	ErrProtocol = errors.New("TrikHub request failed")
)

// API endpoints.
const (
	apiHealth       = "/api/v1/health"
	apiTools        = "/api/v1/tools"
	apiExecute      = "/api/v1/execute"
	apiContent      = "/api/v1/content"
	apiTriks        = "/api/v1/triks"
	apiTriksInstall = "/api/v1/triks/install"
	apiTriksReload  = "/api/v1/triks/reload"
)

const defaultTimeout = 30 * time.Second

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the TrikHub server API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient Doer
}

// Option is an option for the TrikHub client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(hc Doer) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuthToken sets the bearer token attached to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// New returns a new TrikHub client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToolDefinition is a remote tool description as published by the server.
type ToolDefinition struct {
	// Name is the remote name, in "trikId:actionName" format.
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// TrikInfo describes one installed trik, a named group of tools sharing
// a session-continuity scope.
type TrikInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}

// ExecuteResult is the server response to a tool execution.
type ExecuteResult struct {
	SessionID      string `json:"sessionId"`
	Error          string `json:"error"`
	ResponseMode   string `json:"responseMode"`
	Response       string `json:"response"`
	UserContentRef string `json:"userContentRef"`
	ContentType    string `json:"contentType"`

	// Raw is the full decoded body, kept for forward-compatible
	// response shapes the typed fields do not cover.
	Raw map[string]any `json:"-"`
}

// Content is a passthrough payload fetched from the content endpoint.
type Content struct {
	Content     string         `json:"content"`
	ContentType string         `json:"contentType"`
	Metadata    map[string]any `json:"metadata"`
}

func (c *Client) request(ctx context.Context, method, endpoint string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithMessagef(ErrConnection, "%s", err.Error())
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, errors.WithStack(ErrAuth)
	case http.StatusForbidden:
		return nil, errors.WithMessage(ErrAuth, "access forbidden")
	}

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithMessagef(ErrProtocol, "failed to read response: %s", err.Error())
	}

	var data map[string]any
	if err := json.Unmarshal(bs, &data); err != nil {
		if resp.StatusCode >= 400 {
			return nil, errors.WithMessagef(ErrProtocol, "HTTP %d", resp.StatusCode)
		}
		return nil, errors.WithMessagef(ErrProtocol, "malformed response body: %s", err.Error())
	}

	if resp.StatusCode >= 400 {
		logger.ContextKV(ctx, xlog.DEBUG,
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
		if msg, ok := data["error"].(string); ok && msg != "" {
			return nil, errors.WithMessagef(ErrProtocol, "%s", msg)
		}
		return nil, errors.WithMessagef(ErrProtocol, "HTTP %d", resp.StatusCode)
	}

	return data, nil
}

// Health checks whether the TrikHub server is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.request(ctx, http.MethodGet, apiHealth, nil)
	return err
}

// GetTools fetches the available tool definitions.
func (c *Client) GetTools(ctx context.Context) ([]ToolDefinition, error) {
	data, err := c.request(ctx, http.MethodGet, apiTools, nil)
	if err != nil {
		return nil, err
	}
	return decodeField[[]ToolDefinition](data, "tools")
}

// GetTriks fetches the trik listing from the tools endpoint.
func (c *Client) GetTriks(ctx context.Context) ([]TrikInfo, error) {
	data, err := c.request(ctx, http.MethodGet, apiTools, nil)
	if err != nil {
		return nil, err
	}
	return decodeField[[]TrikInfo](data, "triks")
}

// Execute runs a trik tool. The tool name is in "trikId:actionName"
// format; sessionID is optional and enables multi-turn server state.
func (c *Client) Execute(ctx context.Context, tool string, input map[string]any, sessionID string) (*ExecuteResult, error) {
	payload := map[string]any{
		"tool":  tool,
		"input": input,
	}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}

	data, err := c.request(ctx, http.MethodPost, apiExecute, payload)
	if err != nil {
		return nil, err
	}

	res, err := decodeAs[ExecuteResult](data)
	if err != nil {
		return nil, err
	}
	res.Raw = data
	return res, nil
}

// GetContent fetches a passthrough payload by reference. Delivery is
// one-time: the server deletes the content after this fetch, so a retry
// will not recover it.
func (c *Client) GetContent(ctx context.Context, ref string) (*Content, error) {
	data, err := c.request(ctx, http.MethodGet, apiContent+"/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	content, err := decodeField[Content](data, "content")
	if err != nil {
		return nil, err
	}
	if content.Content == "" && content.ContentType == "" {
		return nil, errors.WithMessagef(ErrProtocol, "no content for ref %s", ref)
	}
	return &content, nil
}

// ListInstalledTriks lists all installed triks.
func (c *Client) ListInstalledTriks(ctx context.Context) ([]TrikInfo, error) {
	data, err := c.request(ctx, http.MethodGet, apiTriks, nil)
	if err != nil {
		return nil, err
	}
	return decodeField[[]TrikInfo](data, "triks")
}

// InstallTrik installs a trik package from the registry, e.g.
// "@molefas/trik-article-search".
func (c *Client) InstallTrik(ctx context.Context, pkg string) (map[string]any, error) {
	return c.request(ctx, http.MethodPost, apiTriksInstall, map[string]any{"package": pkg})
}

// UninstallTrik removes an installed trik by name.
func (c *Client) UninstallTrik(ctx context.Context, name string) (map[string]any, error) {
	// escape for a path parameter; trik names may carry @ and /
	escaped := strings.NewReplacer("@", "%40", "/", "%2F").Replace(name)
	return c.request(ctx, http.MethodDelete, apiTriks+"/"+escaped, nil)
}

// ReloadTriks reloads all triks on the server.
func (c *Client) ReloadTriks(ctx context.Context) (map[string]any, error) {
	return c.request(ctx, http.MethodPost, apiTriksReload, nil)
}

func decodeAs[T any](data map[string]any) (*T, error) {
	bs, err := json.Marshal(data)
	if err != nil {
		return nil, errors.WithMessagef(ErrProtocol, "%s", err.Error())
	}
	var out T
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, errors.WithMessagef(ErrProtocol, "unexpected response shape: %s", err.Error())
	}
	return &out, nil
}

func decodeField[T any](data map[string]any, field string) (T, error) {
	var out T
	val, ok := data[field]
	if !ok {
		return out, nil
	}
	bs, err := json.Marshal(val)
	if err != nil {
		return out, errors.WithMessagef(ErrProtocol, "%s", err.Error())
	}
	if err := json.Unmarshal(bs, &out); err != nil {
		return out, errors.WithMessagef(ErrProtocol, "unexpected %q shape: %s", field, err.Error())
	}
	return out, nil
}
