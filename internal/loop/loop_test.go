package loop

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/tools"
	"github.com/computeuse/backend/internal/types"
)

// scriptedClient replays canned responses and snapshots each request as it
// looked at call time.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*llm.Response
	requests  []*llm.Request
	err       error
}

func (s *scriptedClient) Messages(_ context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	s.requests = append(s.requests, cloneRequest(req))
	if len(s.requests) > len(s.responses) {
		return nil, errors.New("scripted client: out of responses")
	}
	return s.responses[len(s.requests)-1], nil
}

func (s *scriptedClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// cloneRequest deep-copies via JSON so later in-place cache marker updates
// do not rewrite history.
func cloneRequest(req *llm.Request) *llm.Request {
	raw, err := json.Marshal(req)
	if err != nil {
		panic(err)
	}
	var out llm.Request
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

type stubTool struct {
	mu     sync.Mutex
	inputs []map[string]interface{}
	run    func(input map[string]interface{}) (*types.ToolResult, error)
}

func (s *stubTool) Name() string        { return "bash" }
func (s *stubTool) Description() string { return "run a command" }

func (s *stubTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}

func (s *stubTool) Call(_ context.Context, input map[string]interface{}) (*types.ToolResult, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()

	if s.run == nil {
		return &types.ToolResult{Output: "ok"}, nil
	}
	return s.run(input)
}

func (s *stubTool) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: text}},
		StopReason: llm.StopEndTurn,
	}
}

func toolUseResponse(text, id, command string) *llm.Response {
	var blocks []llm.ContentBlock
	if text != "" {
		blocks = append(blocks, llm.ContentBlock{Type: llm.BlockText, Text: text})
	}
	blocks = append(blocks, llm.ContentBlock{
		Type:  llm.BlockToolUse,
		ID:    id,
		Name:  "bash",
		Input: map[string]interface{}{"command": command},
	})
	return &llm.Response{Content: blocks, StopReason: llm.StopToolUse}
}

func newTestLoop(client ModelClient, tool tools.Tool, cfg Config) *Loop {
	return New(cfg, client, tools.NewCollection(tool), logging.NewNop(), nil)
}

func drainEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out draining events")
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestLoopCompletesOnMarker(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("Let me list the files.", "toolu_01", "ls"),
		textResponse("TASK COMPLETED: one file found"),
	}}
	tool := &stubTool{run: func(map[string]interface{}) (*types.ToolResult, error) {
		return &types.ToolResult{Output: "file.txt"}, nil
	}}

	l := newTestLoop(client, tool, Config{MaxOperations: 5})
	events, history := l.RunTask(context.Background(), "list the files")

	got := drainEvents(t, events)
	assert.Equal(t, []EventKind{EventText, EventToolUse, EventToolResult, EventText, EventDone}, kinds(got))
	assert.Equal(t, OutcomeCompleted, got[len(got)-1].Text)
	assert.Equal(t, "```\nfile.txt\n```", got[2].Text)

	final := history()
	require.Len(t, final, 4)
	assert.Equal(t, llm.RoleUser, final[0].Role)
	assert.Equal(t, llm.RoleAssistant, final[1].Role)
	assert.Equal(t, llm.RoleUser, final[2].Role)
	assert.Equal(t, llm.RoleAssistant, final[3].Role)

	// The tool result turn answers the tool_use id with fenced output.
	require.Len(t, final[2].Content, 1)
	block := final[2].Content[0]
	assert.Equal(t, llm.BlockToolResult, block.Type)
	assert.Equal(t, "toolu_01", block.ToolUseID)
	assert.False(t, block.IsError)
	require.Len(t, block.Content, 1)
	assert.Equal(t, "```\nfile.txt\n```", block.Content[0].Text)

	// Both calls advertised the tool list and the capability prompt.
	require.Equal(t, 2, client.calls())
	req := client.requests[0]
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "bash", req.Tools[0].Name)
	require.NotEmpty(t, req.System)
	assert.Contains(t, req.System[0].Text, "TASK COMPLETED:")
}

func TestLoopEndsWhenNoToolUsed(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		textResponse("Nothing to do here."),
	}}

	l := newTestLoop(client, &stubTool{}, Config{})
	events, history := l.RunTask(context.Background(), "do nothing")

	got := drainEvents(t, events)
	assert.Equal(t, []EventKind{EventText, EventDone}, kinds(got))
	assert.Equal(t, OutcomeEnded, got[1].Text)
	assert.Equal(t, 1, client.calls())

	final := history()
	require.Len(t, final, 2)
	assert.Equal(t, llm.RoleAssistant, final[1].Role)
}

func TestLoopStopsAtOperationBudget(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("", "toolu_01", "sleep 1"),
		toolUseResponse("", "toolu_02", "sleep 1"),
		toolUseResponse("", "toolu_03", "sleep 1"),
	}}
	tool := &stubTool{}

	l := newTestLoop(client, tool, Config{MaxOperations: 2})
	events, _ := l.RunTask(context.Background(), "stall forever")

	got := drainEvents(t, events)
	assert.Equal(t, []EventKind{
		EventToolUse, EventToolResult,
		EventToolUse, EventToolResult,
		EventSystem, EventDone,
	}, kinds(got))
	assert.Equal(t, OutcomeLimit, got[len(got)-1].Text)
	assert.Equal(t, 2, client.calls())
	assert.Equal(t, 2, tool.callCount())
}

func TestLoopReportsToolErrorToModel(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("", "toolu_01", ""),
		textResponse("TASK FAILED: no command to run"),
	}}
	tool := &stubTool{run: func(map[string]interface{}) (*types.ToolResult, error) {
		return nil, types.NewToolError("no command provided.")
	}}

	l := newTestLoop(client, tool, Config{})
	events, history := l.RunTask(context.Background(), "run nothing")

	got := drainEvents(t, events)
	assert.Equal(t, OutcomeFailed, got[len(got)-1].Text)

	final := history()
	block := final[2].Content[0]
	assert.True(t, block.IsError)
	require.Len(t, block.Content, 1)
	assert.Equal(t, "no command provided.", block.Content[0].Text)
}

func TestLoopAPIErrorEndsRun(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}

	l := newTestLoop(client, &stubTool{}, Config{})
	events, history := l.RunTask(context.Background(), "anything")

	got := drainEvents(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventError, got[0].Kind)
	assert.Contains(t, got[0].Text, "API Error:")
	assert.Contains(t, got[0].Text, "connection refused")
	assert.Equal(t, EventDone, got[1].Kind)
	assert.Equal(t, OutcomeError, got[1].Text)

	// History keeps only the seed turn.
	assert.Len(t, history(), 1)
}

func TestLoopMarkerSkipsLaterBlocks(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{
			Content: []llm.ContentBlock{
				{Type: llm.BlockText, Text: "TASK COMPLETED: already done"},
				{Type: llm.BlockToolUse, ID: "toolu_01", Name: "bash", Input: map[string]interface{}{"command": "ls"}},
			},
			StopReason: llm.StopToolUse,
		},
	}}
	tool := &stubTool{}

	l := newTestLoop(client, tool, Config{})
	events, history := l.RunTask(context.Background(), "noop")

	got := drainEvents(t, events)
	assert.Equal(t, []EventKind{EventText, EventDone}, kinds(got))
	assert.Equal(t, 0, tool.callCount())

	// The assistant turn keeps only the blocks before the marker.
	final := history()
	require.Len(t, final, 2)
	require.Len(t, final[1].Content, 1)
	assert.Equal(t, llm.BlockText, final[1].Content[0].Type)
}

func TestLoopPromptCaching(t *testing.T) {
	t.Run("marks system block and recent user turns", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.Response{
			textResponse("TASK COMPLETED: trivially"),
		}}

		l := newTestLoop(client, &stubTool{}, Config{PromptCaching: true})
		events, _ := l.RunTask(context.Background(), "anything")
		drainEvents(t, events)

		req := client.requests[0]
		require.NotEmpty(t, req.System)
		require.NotNil(t, req.System[0].CacheControl)
		assert.Equal(t, "ephemeral", req.System[0].CacheControl.Type)

		require.Len(t, req.Messages, 1)
		content := req.Messages[0].Content
		require.NotNil(t, content[len(content)-1].CacheControl)
	})

	t.Run("off by default leaves requests unmarked", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.Response{
			textResponse("TASK COMPLETED: trivially"),
		}}

		l := newTestLoop(client, &stubTool{}, Config{})
		events, _ := l.RunTask(context.Background(), "anything")
		drainEvents(t, events)

		req := client.requests[0]
		require.NotEmpty(t, req.System)
		assert.Nil(t, req.System[0].CacheControl)
		assert.Nil(t, req.Messages[0].Content[0].CacheControl)
	})
}
