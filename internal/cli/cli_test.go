package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubStub(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	mux.HandleFunc("GET /api/v1/tools", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tools": []map[string]any{
				{"name": "search:list", "description": "List articles"},
			},
		})
	})
	mux.HandleFunc("POST /api/v1/execute", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responseMode": "template",
			"response":     "done",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCommand(t *testing.T, args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestHealthCommand(t *testing.T) {
	srv := hubStub(t)
	viper.Set("hub.url", srv.URL)

	out, err := runCommand(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestToolsCommand(t *testing.T) {
	srv := hubStub(t)
	viper.Set("hub.url", srv.URL)

	out, err := runCommand(t, "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "search__list")
	assert.Contains(t, out, "search:list")
	assert.Contains(t, out, "List articles")
}

func TestExecuteCommand(t *testing.T) {
	srv := hubStub(t)
	viper.Set("hub.url", srv.URL)

	out, err := runCommand(t, "execute", "search:list", `{"query":"go"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "done")
}

func TestExecuteCommandRejectsBadJSON(t *testing.T) {
	srv := hubStub(t)
	viper.Set("hub.url", srv.URL)

	_, err := runCommand(t, "execute", "search:list", "{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON input")
}
