package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computeuse/backend/internal/infrastructure/resilience"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		MaxRetries:    0,
		PromptCaching: true,
	}, nil, nil)
}

func cannedResponse() string {
	return `{
		"id": "msg_01",
		"model": "claude-3-5-sonnet-20241022",
		"role": "assistant",
		"content": [
			{"type": "text", "text": "listing files"},
			{"type": "tool_use", "id": "toolu_01", "name": "bash", "input": {"command": "ls"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`
}

func TestClientMessages(t *testing.T) {
	var gotHeaders http.Header
	var gotBody Request

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cannedResponse()))
	})

	resp, err := client.Messages(context.Background(), &Request{
		Model:     "claude-3-5-sonnet-20241022",
		MaxTokens: 1024,
		Messages:  []Message{UserText("list the files")},
		Tools: []ToolParam{{
			Name:        "bash",
			InputSchema: map[string]interface{}{"type": "object"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))
	assert.Equal(t, "prompt-caching-2024-07-31", gotHeaders.Get("anthropic-beta"))
	assert.Equal(t, "claude-3-5-sonnet-20241022", gotBody.Model)
	require.Len(t, gotBody.Tools, 1)
	assert.Equal(t, "bash", gotBody.Tools[0].Name)

	assert.Equal(t, StopToolUse, resp.StopReason)
	assert.Equal(t, "listing files", resp.TextContent())
	require.Len(t, resp.ToolUses(), 1)
	assert.Equal(t, "ls", resp.ToolUses()[0].Input["command"])
	assert.Equal(t, 10, resp.Usage.InputTokens)
}

func TestClientAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "max_tokens required"}}`))
	})

	_, err := client.Messages(context.Background(), &Request{Model: "claude-3-5-sonnet-20241022"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
	assert.Contains(t, apiErr.Message, "max_tokens")
}

func TestClientMissingAPIKey(t *testing.T) {
	client := NewClient(Config{}, nil, nil)

	_, err := client.Messages(context.Background(), &Request{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := &Request{Model: "claude-3-5-sonnet-20241022", MaxTokens: 16}

	for i := 0; i < 6; i++ {
		_, err := client.Messages(context.Background(), req)
		require.Error(t, err)
	}

	assert.Equal(t, resilience.StateOpen, client.BreakerState())

	_, err := client.Messages(context.Background(), req)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
