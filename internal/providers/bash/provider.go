package bash

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/types"
	"go.uber.org/zap"
)

// Provider exposes one persistent bash session as the "bash" tool. The
// session starts lazily on first use; a restart request tears it down and
// replaces it, which is also the only way out of a poisoned session.
type Provider struct {
	cfg     Config
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	session *Session
}

// NewProvider creates a bash provider. Metrics may be nil.
func NewProvider(cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Provider {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Provider{cfg: cfg, log: log, metrics: metrics}
}

// Definition returns the static capability descriptor for the bash service.
// It never consults session state, so the same descriptor is returned
// before, during, and after any session's lifetime.
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "bash",
		Name:         "bash",
		Description:  "Run commands in a persistent interactive bash session",
		Category:     types.CategoryCompute,
		Capabilities: []string{"execute", "restart", "persistent_state"},
		Tools: []types.Tool{
			{
				ID:          "bash",
				Name:        "bash",
				Description: "Execute a shell command in the persistent session, or restart it",
				Parameters: []types.Parameter{
					{Name: "command", Type: "string", Description: "The shell command to run", Required: true},
					{Name: "restart", Type: "boolean", Description: "Discard the current session and start a fresh one", Required: false},
				},
				Returns: "output, error, and system fields",
			},
		},
	}
}

// Execute adapts Invoke to the service registry surface. Protocol
// violations come back as failed results rather than transport errors.
// The service publishes a single tool, so both "bash" and "bash.bash"
// address it.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	if toolID != "bash" && toolID != "bash.bash" {
		return failure(fmt.Sprintf("unknown tool: %s", toolID)), nil
	}

	command, _ := params["command"].(string)
	restart, _ := params["restart"].(bool)

	result, err := p.Invoke(ctx, command, restart)
	if err != nil {
		return failure(err.Error()), nil
	}

	return success(map[string]interface{}{
		"output": result.Output,
		"error":  result.Error,
		"system": result.System,
	}), nil
}

// Invoke is the tool's callable surface. A restart request replaces the
// session and reports it; otherwise a session is started lazily and the
// command runs through it. A call carrying neither a restart nor a
// non-empty command violates the protocol.
func (p *Provider) Invoke(ctx context.Context, command string, restart bool) (*types.ToolResult, error) {
	if restart {
		return p.restart()
	}

	session, err := p.ensureSession()
	if err != nil {
		return nil, err
	}

	if command == "" {
		return nil, types.NewToolError("no command provided.")
	}

	start := time.Now()
	result, err := session.Run(ctx, command)
	p.record(session, result, err, time.Since(start))
	return result, err
}

func (p *Provider) restart() (*types.ToolResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		if err := p.session.Stop(); err != nil && !types.IsToolError(err) {
			p.log.Warn("failed to stop session during restart", zap.Error(err))
		}
	}

	session := NewSession(p.cfg)
	if err := session.Start(); err != nil {
		p.session = nil
		return nil, err
	}
	p.session = session

	p.log.Info("bash session restarted", zap.Int("pid", session.PID()))
	if p.metrics != nil {
		p.metrics.RecordSessionRestart()
	}

	return &types.ToolResult{System: "tool has been restarted."}, nil
}

func (p *Provider) ensureSession() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		session := NewSession(p.cfg)
		if err := session.Start(); err != nil {
			return nil, err
		}
		p.session = session
		p.log.Info("bash session started",
			zap.String("shell", session.cfg.Shell),
			zap.Int("pid", session.PID()))
	}

	return p.session, nil
}

func (p *Provider) record(session *Session, result *types.ToolResult, err error, elapsed time.Duration) {
	if err != nil && session.State() == StatePoisoned {
		p.log.Warn("bash command timed out", zap.Duration("elapsed", elapsed))
		if p.metrics != nil {
			p.metrics.RecordCommandTimeout()
		}
	}

	if p.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.System != "":
		status = "dead"
	}
	p.metrics.RecordCommand(status, elapsed)
}

// SessionState reports the live session's state, or false when no session
// has been started yet.
func (p *Provider) SessionState() (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return StateFresh, false
	}
	return p.session.State(), true
}

// Close stops the live session, if any. Safe to call more than once.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}

	err := p.session.Stop()
	p.session = nil
	if err != nil && !types.IsToolError(err) {
		return err
	}
	return nil
}

// Name implements the tool interface consumed by the agent loop.
func (p *Provider) Name() string {
	return "bash"
}

// Description implements the tool interface consumed by the agent loop.
func (p *Provider) Description() string {
	return "Run commands in a persistent bash session. State (working directory, environment, background jobs) carries over between calls. Pass restart=true to recover a dead or hung session."
}

// InputSchema returns the JSON-schema view of the tool's parameters.
func (p *Provider) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to run",
			},
			"restart": map[string]interface{}{
				"type":        "boolean",
				"description": "Discard the current session and start a fresh one",
			},
		},
		"required": []string{"command"},
	}
}

// Call implements the tool interface consumed by the agent loop.
func (p *Provider) Call(ctx context.Context, input map[string]interface{}) (*types.ToolResult, error) {
	command, _ := input["command"].(string)
	restart, _ := input["restart"].(bool)
	return p.Invoke(ctx, command, restart)
}

func success(data map[string]interface{}) *types.Result {
	return &types.Result{Success: true, Data: data}
}

func failure(message string) *types.Result {
	return &types.Result{Success: false, Error: &message}
}
