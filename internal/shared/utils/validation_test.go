package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     int
		max     int
		req     bool
		wantErr string
	}{
		{"ok", "hello", 1, 10, true, ""},
		{"required missing", "", 1, 10, true, "is required"},
		{"optional empty", "", 1, 10, false, ""},
		{"too short", "a", 2, 10, true, "at least 2"},
		{"too long", "abcdef", 1, 3, true, "not exceed 3"},
		{"null byte", "a\x00b", 1, 10, true, "invalid characters"},
		{"runes not bytes", "héllo", 1, 5, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString(tt.value, "field", tt.min, tt.max, tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("client_abc-123", "client_id", true))
	assert.NoError(t, ValidateID("", "client_id", false))

	err := ValidateID("has.dots", "client_id", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid characters")

	assert.Error(t, ValidateID("has space", "client_id", true))
	assert.Error(t, ValidateID("", "client_id", true))
}

func TestValidateToolID(t *testing.T) {
	assert.NoError(t, ValidateToolID("bash", "tool_id", true))
	assert.NoError(t, ValidateToolID("terminal.open", "tool_id", true))

	err := ValidateToolID("no spaces", "tool_id", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid characters")

	assert.Error(t, ValidateToolID(strings.Repeat("x", MaxIDLength+1), "tool_id", true))
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("compute", true))
	assert.NoError(t, ValidateCategory("pty-sessions", true))
	assert.NoError(t, ValidateCategory("", false))

	err := ValidateCategory("Not A Category", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lowercase")
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage("list the files in /tmp"))

	assert.Error(t, ValidateMessage(""))

	padded := strings.Repeat(" ", 64) + "hi"
	err := ValidateMessage(padded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whitespace")
}

func TestValidateJSONDepth(t *testing.T) {
	flat := map[string]interface{}{"command": "echo hi", "restart": false}
	assert.NoError(t, ValidateJSONDepth(flat, 5))

	nested := interface{}(map[string]interface{}{"v": "leaf"})
	for i := 0; i < 10; i++ {
		nested = map[string]interface{}{"next": nested}
	}
	assert.NoError(t, ValidateJSONDepth(nested, 20))

	err := ValidateJSONDepth(nested, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting depth")

	inArray := []interface{}{[]interface{}{[]interface{}{"deep"}}}
	assert.Error(t, ValidateJSONDepth(inArray, 2))
}
