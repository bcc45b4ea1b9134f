package loop

import "github.com/computeuse/backend/internal/types"

// EventKind discriminates the events a run emits.
type EventKind string

const (
	// EventText is a text block from the model.
	EventText EventKind = "text"
	// EventToolUse announces a tool invocation the model requested.
	EventToolUse EventKind = "tool_use"
	// EventToolResult carries the outcome of a tool invocation.
	EventToolResult EventKind = "tool_result"
	// EventSystem is a note from the loop itself, not from the model.
	EventSystem EventKind = "system"
	// EventError reports a fault that ended the run.
	EventError EventKind = "error"
	// EventDone closes a run and names its outcome.
	EventDone EventKind = "done"
)

// Run outcomes, reported on the final EventDone and in metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeLimit     = "limit"
	OutcomeEnded     = "ended"
	OutcomeError     = "error"
	OutcomeCanceled  = "canceled"
)

// Event is one step of a run as seen by a consumer draining the channel.
type Event struct {
	Kind EventKind `json:"kind"`

	// Text holds model text, the formatted tool output, a system note, an
	// error message, or the outcome for EventDone.
	Text string `json:"text,omitempty"`

	// Tool invocation fields, set on EventToolUse and EventToolResult.
	ToolID string                 `json:"tool_id,omitempty"`
	Tool   string                 `json:"tool,omitempty"`
	Input  map[string]interface{} `json:"input,omitempty"`

	// Result is the raw tool result, set on EventToolResult.
	Result *types.ToolResult `json:"result,omitempty"`
}
