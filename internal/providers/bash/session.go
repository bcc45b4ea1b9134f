package bash

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/computeuse/backend/internal/types"
)

// State tracks where a session is in its lifecycle
type State int

const (
	// StateFresh means the subprocess has not been started yet
	StateFresh State = iota
	// StateRunning means the subprocess is live and accepting commands
	StateRunning
	// StatePoisoned means a command timed out; the session must be replaced
	StatePoisoned
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateRunning:
		return "running"
	case StatePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// Config controls how a session frames and bounds commands
type Config struct {
	Shell          string
	CommandTimeout time.Duration
	PollInterval   time.Duration
	Marker         string
}

// DefaultConfig returns the stock session configuration
func DefaultConfig() Config {
	return Config{
		Shell:          "/bin/bash",
		CommandTimeout: 120 * time.Second,
		PollInterval:   200 * time.Millisecond,
		Marker:         "<<exit>>",
	}
}

// Session owns one interactive shell subprocess. Each command is framed by
// echoing a completion marker after it; stdout and stderr accumulate in
// session-owned buffers that are cleared after every command, so consecutive
// commands never see each other's output.
type Session struct {
	cfg Config

	stdoutBuf *streamBuffer
	stderrBuf *streamBuffer

	runMu sync.Mutex // serializes Run: one framed command at a time

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	exited   bool
	exitCode int
}

// NewSession builds a session around cfg, filling defaults for zero fields
func NewSession(cfg Config) *Session {
	def := DefaultConfig()
	if cfg.Shell == "" {
		cfg.Shell = def.Shell
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Marker == "" {
		cfg.Marker = def.Marker
	}

	return &Session{
		cfg:       cfg,
		stdoutBuf: &streamBuffer{},
		stderrBuf: &streamBuffer{},
	}
}

// Start spawns the shell subprocess in its own process group, with stdin,
// stdout, and stderr connected as pipes. Starting an already-started
// session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFresh {
		return nil
	}

	cmd := exec.Command(s.cfg.Shell)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = s.stdoutBuf
	cmd.Stderr = s.stderrBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.cfg.Shell, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.state = StateRunning

	go s.monitor()

	return nil
}

// monitor records the exit status once the subprocess terminates. Wait also
// flushes the stdout/stderr copiers, so an observed exit implies the
// buffers hold everything the process ever wrote.
func (s *Session) monitor() {
	err := s.cmd.Wait()

	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	s.mu.Lock()
	s.exited = true
	s.exitCode = code
	s.mu.Unlock()
}

// Stop terminates the subprocess by delivering SIGTERM to its process
// group, so commands the shell spawned go down with it. Stopping a session
// that never started is a protocol violation; stopping one whose process
// already exited is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFresh {
		return types.NewToolError("Session has not started.")
	}
	if s.exited {
		return nil
	}

	if err := syscall.Kill(-s.cmd.Process.Pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process group: %w", err)
	}
	return nil
}

// Run executes one command through the marker protocol. The marker is
// echoed after the command's statement list, so it appears on stdout only
// once the foreground job has finished; Run polls the stdout buffer for it
// rather than blocking on end-of-stream, since the shell never closes its
// output. On the happy path the result carries output and error text with
// one trailing newline stripped from each, and both buffers are cleared.
//
// A command that outlives CommandTimeout poisons the session: the timeout
// error is sticky and every later Run fails fast with it until the session
// is replaced. Context cancellation mid-command poisons as well, because
// the marker protocol cannot be resumed once abandoned. A subprocess that
// has exited is not an error: Run reports it as a result whose system
// message asks for a restart.
func (s *Session) Run(ctx context.Context, command string) (*types.ToolResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	switch {
	case s.state == StateFresh:
		s.mu.Unlock()
		return nil, types.NewToolError("Session has not started.")
	case s.exited:
		code := s.exitCode
		s.mu.Unlock()
		return exitedResult(code), nil
	case s.state == StatePoisoned:
		s.mu.Unlock()
		return nil, s.timeoutError()
	}
	stdin := s.stdin
	s.mu.Unlock()

	framed := command + "; echo '" + s.cfg.Marker + "'\n"
	if _, err := io.WriteString(stdin, framed); err != nil {
		if exited, code := s.Exited(); exited {
			return exitedResult(code), nil
		}
		return nil, fmt.Errorf("failed to write command: %w", err)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.cfg.CommandTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			// Once the exit flag is up the buffers are final, so a single
			// marker scan after it is authoritative.
			exited, code := s.Exited()
			if output, ok := s.cutAtMarker(); ok {
				errText := trimNewline(s.stderrBuf.String())
				s.stdoutBuf.Reset()
				s.stderrBuf.Reset()
				return &types.ToolResult{Output: output, Error: errText}, nil
			}
			if exited {
				// A dead shell can never echo the marker
				s.stdoutBuf.Reset()
				s.stderrBuf.Reset()
				return exitedResult(code), nil
			}
		case <-deadline.C:
			s.poison()
			return nil, s.timeoutError()
		case <-ctx.Done():
			s.poison()
			return nil, types.NewToolError("interrupted: bash was abandoned mid-command and must be restarted")
		}
	}
}

// cutAtMarker scans the stdout buffer for the completion marker. On a hit
// it returns everything strictly before the marker with one trailing
// newline stripped; the marker and anything after it is discarded.
func (s *Session) cutAtMarker() (string, bool) {
	text := s.stdoutBuf.String()
	i := strings.Index(text, s.cfg.Marker)
	if i < 0 {
		return "", false
	}
	return trimNewline(text[:i]), true
}

// State returns the session's lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Exited reports whether the subprocess has terminated, and with which code
func (s *Session) Exited() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited, s.exitCode
}

// PID returns the subprocess pid, or 0 before Start
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

func (s *Session) poison() {
	s.mu.Lock()
	s.state = StatePoisoned
	s.mu.Unlock()
}

func (s *Session) timeoutError() *types.ToolError {
	return types.NewToolError(
		"timed out: bash has not returned in %.1f seconds and must be restarted",
		s.cfg.CommandTimeout.Seconds(),
	)
}

func exitedResult(code int) *types.ToolResult {
	return &types.ToolResult{
		System: "tool must be restarted",
		Error:  fmt.Sprintf("bash has exited with returncode %d", code),
	}
}

// trimNewline strips exactly one trailing newline if present
func trimNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
