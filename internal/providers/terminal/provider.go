package terminal

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/types"
)

// Provider exposes raw PTY sessions as a registry service. It is the escape
// hatch for full-screen and interactive programs that a framed command
// session cannot host.
type Provider struct {
	manager *Manager
}

// NewProvider creates the terminal provider. Logger and metrics may be nil.
func NewProvider(cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Provider {
	return &Provider{manager: NewManager(cfg, log, metrics)}
}

// Manager returns the underlying session manager.
func (p *Provider) Manager() *Manager {
	return p.manager
}

// Close terminates every open session.
func (p *Provider) Close() {
	p.manager.CloseAll()
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive PTY sessions for full-screen and interactive programs",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"ansi",
			"sessions",
			"resize",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to the requested operation. Validation and session faults
// come back as failed results rather than errors.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.open":
		return p.open(params)
	case "terminal.write":
		return p.write(params)
	case "terminal.read":
		return p.read(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.close":
		return p.close(params)
	case "terminal.list":
		return p.list()
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID)), nil
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.open",
			Name:        "Open Terminal",
			Description: "Open a new interactive PTY session",
			Parameters: []types.Parameter{
				{Name: "shell", Type: "string", Description: "Shell to run. Defaults to /bin/bash", Required: false},
				{Name: "working_dir", Type: "string", Description: "Initial working directory. Defaults to the user's home", Required: false},
				{Name: "cols", Type: "number", Description: "Terminal width in columns. Defaults to 80", Required: false},
				{Name: "rows", Type: "number", Description: "Terminal height in rows. Defaults to 24", Required: false},
				{Name: "env", Type: "object", Description: "Extra environment variables", Required: false},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input to a PTY session",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
				{Name: "input", Type: "string", Description: "Bytes to send, control sequences included", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.read",
			Name:        "Read from Terminal",
			Description: "Drain buffered output from a PTY session",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "output_data",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change PTY dimensions",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.close",
			Name:        "Close Terminal",
			Description: "Terminate a PTY session",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.list",
			Name:        "List Terminals",
			Description: "List tracked PTY sessions, live and exited",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
	}
}

func (p *Provider) open(params map[string]interface{}) (*types.Result, error) {
	shell, _ := params["shell"].(string)
	workingDir, _ := params["working_dir"].(string)
	cols := intParam(params, "cols", 0)
	rows := intParam(params, "rows", 0)

	env := make(map[string]string)
	if envMap, ok := params["env"].(map[string]interface{}); ok {
		for k, v := range envMap {
			if str, ok := v.(string); ok {
				env[k] = str
			}
		}
	}

	info, err := p.manager.Open(shell, workingDir, cols, rows, env)
	if err != nil {
		return failure(err.Error()), nil
	}

	return success(infoData(*info)), nil
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return failure("session_id is required"), nil
	}

	input, ok := params["input"].(string)
	if !ok {
		return failure("input is required"), nil
	}

	if err := p.manager.Write(sessionID, []byte(input)); err != nil {
		return failure(err.Error()), nil
	}

	return success(map[string]interface{}{"written": len(input)}), nil
}

func (p *Provider) read(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return failure("session_id is required"), nil
	}

	output, err := p.manager.Read(sessionID)
	if err != nil {
		return failure(err.Error()), nil
	}

	// Base64 alongside the raw text so binary-heavy output survives JSON
	return success(map[string]interface{}{
		"output":        string(output),
		"output_base64": base64.StdEncoding.EncodeToString(output),
		"length":        len(output),
	}), nil
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return failure("session_id is required"), nil
	}

	cols := intParam(params, "cols", 0)
	rows := intParam(params, "rows", 0)
	if cols <= 0 || rows <= 0 {
		return failure("cols and rows are required"), nil
	}

	if err := p.manager.Resize(sessionID, cols, rows); err != nil {
		return failure(err.Error()), nil
	}

	return success(map[string]interface{}{"cols": cols, "rows": rows}), nil
}

func (p *Provider) close(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return failure("session_id is required"), nil
	}

	if err := p.manager.Close(sessionID); err != nil {
		return failure(err.Error()), nil
	}

	return success(map[string]interface{}{"closed": sessionID}), nil
}

func (p *Provider) list() (*types.Result, error) {
	sessions := p.manager.List()

	items := make([]map[string]interface{}, 0, len(sessions))
	for _, info := range sessions {
		items = append(items, infoData(info))
	}

	return success(map[string]interface{}{
		"sessions": items,
		"count":    len(items),
	}), nil
}

func infoData(info SessionInfo) map[string]interface{} {
	return map[string]interface{}{
		"id":          info.ID,
		"shell":       info.Shell,
		"working_dir": info.WorkingDir,
		"cols":        info.Cols,
		"rows":        info.Rows,
		"started_at":  info.StartedAt,
		"active":      info.Active,
	}
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func success(data map[string]interface{}) *types.Result {
	return &types.Result{Success: true, Data: data}
}

func failure(msg string) *types.Result {
	return &types.Result{Success: false, Error: &msg}
}
