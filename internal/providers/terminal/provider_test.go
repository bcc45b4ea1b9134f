package terminal

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/types"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p := NewProvider(Config{}, logging.NewNop(), nil)
	t.Cleanup(p.Close)
	return p
}

func TestProviderDefinition(t *testing.T) {
	p := newTestProvider(t)
	def := p.Definition()

	assert.Equal(t, "terminal", def.ID)
	assert.Equal(t, types.CategoryTerminal, def.Category)
	assert.Contains(t, def.Capabilities, "pty")
	assert.Contains(t, def.Capabilities, "resize")

	var ids []string
	for _, tool := range def.Tools {
		ids = append(ids, tool.ID)
	}
	assert.ElementsMatch(t, []string{
		"terminal.open",
		"terminal.write",
		"terminal.read",
		"terminal.resize",
		"terminal.close",
		"terminal.list",
	}, ids)
}

func TestProviderUnknownTool(t *testing.T) {
	p := newTestProvider(t)

	for _, toolID := range []string{"terminal", "terminal.spawn"} {
		res, err := p.Execute(context.Background(), toolID, nil, nil)
		require.NoError(t, err)
		require.False(t, res.Success)
		require.NotNil(t, res.Error)
		assert.Equal(t, "unknown tool: "+toolID, *res.Error)
	}
}

func TestProviderValidation(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		name    string
		toolID  string
		params  map[string]interface{}
		wantErr string
	}{
		{"write without session", "terminal.write", map[string]interface{}{"input": "x"}, "session_id is required"},
		{"write without input", "terminal.write", map[string]interface{}{"session_id": "term_x"}, "input is required"},
		{"read without session", "terminal.read", nil, "session_id is required"},
		{"resize without dimensions", "terminal.resize", map[string]interface{}{"session_id": "term_x"}, "cols and rows are required"},
		{"close without session", "terminal.close", nil, "session_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Execute(context.Background(), tt.toolID, tt.params, nil)
			require.NoError(t, err)
			require.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantErr, *res.Error)
		})
	}
}

// waitForProviderOutput polls terminal.read until want shows up, checking the
// base64 mirror against the raw output on every drain.
func waitForProviderOutput(t *testing.T, p *Provider, sessionID, want string) {
	t.Helper()

	var combined strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, err := p.Execute(context.Background(), "terminal.read", map[string]interface{}{"session_id": sessionID}, nil)
		require.NoError(t, err)
		require.True(t, res.Success)

		output, ok := res.Data["output"].(string)
		require.True(t, ok)
		decoded, err := base64.StdEncoding.DecodeString(res.Data["output_base64"].(string))
		require.NoError(t, err)
		require.Equal(t, output, string(decoded))
		require.Equal(t, len(output), res.Data["length"])

		combined.WriteString(output)
		if strings.Contains(combined.String(), want) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("output never contained %q, got %q", want, combined.String())
}

func TestProviderLifecycle(t *testing.T) {
	requirePTY(t)
	p := newTestProvider(t)
	ctx := context.Background()

	res, err := p.Execute(ctx, "terminal.open", map[string]interface{}{
		"working_dir": "/tmp",
		"cols":        float64(120),
		"rows":        float64(32),
		"env":         map[string]interface{}{"PTY_PROVIDER_PROBE": "provider-probe"},
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)

	sessionID, ok := res.Data["id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(sessionID, "term_"))
	assert.Equal(t, 120, res.Data["cols"])
	assert.Equal(t, 32, res.Data["rows"])

	res, err = p.Execute(ctx, "terminal.list", nil, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data["count"])

	input := "echo $PTY_PROVIDER_PROBE\n"
	res, err = p.Execute(ctx, "terminal.write", map[string]interface{}{
		"session_id": sessionID,
		"input":      input,
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, len(input), res.Data["written"])

	waitForProviderOutput(t, p, sessionID, "provider-probe")

	res, err = p.Execute(ctx, "terminal.resize", map[string]interface{}{
		"session_id": sessionID,
		"cols":       float64(90),
		"rows":       float64(28),
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 90, res.Data["cols"])

	res, err = p.Execute(ctx, "terminal.close", map[string]interface{}{"session_id": sessionID}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, sessionID, res.Data["closed"])

	res, err = p.Execute(ctx, "terminal.list", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data["count"])
}
