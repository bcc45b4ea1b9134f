package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResultIsZero(t *testing.T) {
	tests := []struct {
		name   string
		result ToolResult
		want   bool
	}{
		{"empty", ToolResult{}, true},
		{"output only", ToolResult{Output: "hello"}, false},
		{"error only", ToolResult{Error: "boom"}, false},
		{"system only", ToolResult{System: "tool has been restarted."}, false},
		{"all set", ToolResult{Output: "a", Error: "b", System: "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.IsZero())
		})
	}
}

func TestToolResultCombine(t *testing.T) {
	t.Run("concatenates output and error", func(t *testing.T) {
		a := ToolResult{Output: "foo", Error: "oops"}
		b := ToolResult{Output: "bar", Error: "!"}

		combined, err := a.Combine(b)
		require.NoError(t, err)
		assert.Equal(t, "foobar", combined.Output)
		assert.Equal(t, "oops!", combined.Error)
		assert.Empty(t, combined.System)
	})

	t.Run("preserves the only system message", func(t *testing.T) {
		a := ToolResult{Output: "x"}
		b := ToolResult{System: "tool must be restarted"}

		combined, err := a.Combine(b)
		require.NoError(t, err)
		assert.Equal(t, "tool must be restarted", combined.System)

		combined, err = b.Combine(a)
		require.NoError(t, err)
		assert.Equal(t, "tool must be restarted", combined.System)
	})

	t.Run("collapses equal system messages", func(t *testing.T) {
		a := ToolResult{System: "tool must be restarted"}
		b := ToolResult{Output: "y", System: "tool must be restarted"}

		combined, err := a.Combine(b)
		require.NoError(t, err)
		assert.Equal(t, "tool must be restarted", combined.System)
		assert.Equal(t, "y", combined.Output)
	})

	t.Run("rejects conflicting system messages", func(t *testing.T) {
		a := ToolResult{System: "tool must be restarted"}
		b := ToolResult{System: "tool has been restarted."}

		_, err := a.Combine(b)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCombine)
	})

	t.Run("does not mutate the operands", func(t *testing.T) {
		a := ToolResult{Output: "foo"}
		b := ToolResult{Output: "bar"}

		_, err := a.Combine(b)
		require.NoError(t, err)
		assert.Equal(t, "foo", a.Output)
		assert.Equal(t, "bar", b.Output)
	})
}

func TestToolResultWithSystem(t *testing.T) {
	orig := ToolResult{Output: "data"}
	annotated := orig.WithSystem("note")

	assert.Equal(t, "note", annotated.System)
	assert.Equal(t, "data", annotated.Output)
	assert.Empty(t, orig.System)
}

func TestToolError(t *testing.T) {
	t.Run("carries the message verbatim", func(t *testing.T) {
		err := NewToolError("no command provided.")
		assert.Equal(t, "no command provided.", err.Error())
	})

	t.Run("formats arguments", func(t *testing.T) {
		err := NewToolError("timed out: bash has not returned in %.1f seconds and must be restarted", 120.0)
		assert.Equal(t, "timed out: bash has not returned in 120.0 seconds and must be restarted", err.Error())
	})

	t.Run("detected through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("invoke: %w", NewToolError("session has not started."))
		assert.True(t, IsToolError(wrapped))
		assert.False(t, IsToolError(errors.New("plain")))
	})
}
