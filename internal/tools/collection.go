package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/types"
)

// Collection is an ordered set of tools dispatched by name.
type Collection struct {
	order  []Tool
	byName map[string]Tool
}

// NewCollection builds a collection from the given tools. Registration order
// is preserved in Params so the model sees a stable tool list; a duplicate
// name keeps the first registration.
func NewCollection(tools ...Tool) *Collection {
	c := &Collection{byName: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if _, ok := c.byName[tool.Name()]; ok {
			continue
		}
		c.byName[tool.Name()] = tool
		c.order = append(c.order, tool)
	}
	return c
}

// Get returns the tool registered under name.
func (c *Collection) Get(name string) (Tool, bool) {
	tool, ok := c.byName[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.order))
	for _, tool := range c.order {
		names = append(names, tool.Name())
	}
	return names
}

// Params returns the wire-ready tool list for a Messages request.
func (c *Collection) Params() []llm.ToolParam {
	params := make([]llm.ToolParam, 0, len(c.order))
	for _, tool := range c.order {
		params = append(params, llm.ToolParam{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return params
}

// Run dispatches a tool_use block to the named tool. Unknown names and
// tool-raised ToolErrors come back as failure results rather than errors, so
// the caller always has something to report to the model. A non-nil error
// means the tool itself faulted and the run cannot continue.
func (c *Collection) Run(ctx context.Context, name string, input map[string]interface{}) (*types.ToolResult, error) {
	tool, ok := c.byName[name]
	if !ok {
		return &types.ToolResult{Error: fmt.Sprintf("Tool %s is invalid", name)}, nil
	}

	result, err := tool.Call(ctx, input)
	if err != nil {
		var toolErr *types.ToolError
		if errors.As(err, &toolErr) {
			return &types.ToolResult{Error: toolErr.Message}, nil
		}
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	if result == nil {
		result = &types.ToolResult{}
	}
	return result, nil
}
