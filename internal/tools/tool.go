package tools

import (
	"context"

	"github.com/computeuse/backend/internal/types"
)

// Tool is a callable capability surfaced to the model. Implementations
// describe themselves with a JSON schema and execute input decoded from the
// model's tool_use blocks.
type Tool interface {
	// Name returns the identifier the model uses to select the tool.
	Name() string
	// Description tells the model what the tool does and when to use it.
	Description() string
	// InputSchema returns the JSON schema for the tool's input object.
	InputSchema() map[string]interface{}
	// Call executes the tool. A *types.ToolError return means the input was
	// unusable and the message should be reported back to the model; any
	// other error is a fault in the tool itself.
	Call(ctx context.Context, input map[string]interface{}) (*types.ToolResult, error)
}
