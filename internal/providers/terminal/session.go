package terminal

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/shared/id"
)

// Config bounds the session manager.
type Config struct {
	// Shell is the fallback when an open request names none.
	Shell string
	// WorkingDir is the fallback initial directory.
	WorkingDir string
	// MaxSessions caps concurrently open PTYs.
	MaxSessions int
	// BufferSize is the per-session scrollback capacity in bytes.
	BufferSize int
}

// DefaultConfig returns the stock manager configuration.
func DefaultConfig() Config {
	return Config{
		Shell:       "/bin/bash",
		MaxSessions: 8,
		BufferSize:  1 << 20,
	}
}

// Session is one live PTY and the shell running inside it.
type Session struct {
	ID         string
	Shell      string
	WorkingDir string
	Cols       int
	Rows       int
	StartedAt  time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	output *Buffer

	mu     sync.RWMutex
	closed bool
}

// SessionInfo is the public representation of a session.
type SessionInfo struct {
	ID         string    `json:"id"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	Active     bool      `json:"active"`
}

func (s *Session) info() SessionInfo {
	s.mu.RLock()
	active := !s.closed
	s.mu.RUnlock()

	return SessionInfo{
		ID:         s.ID,
		Shell:      s.Shell,
		WorkingDir: s.WorkingDir,
		Cols:       s.Cols,
		Rows:       s.Rows,
		StartedAt:  s.StartedAt,
		Active:     active,
	}
}

// Manager owns the PTY sessions.
type Manager struct {
	cfg     Config
	log     *logging.Logger
	metrics *monitoring.Metrics

	sessions sync.Map // session id -> *Session
	active   atomic.Int32
}

// NewManager creates a session manager. Logger and metrics may be nil.
func NewManager(cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Manager {
	def := DefaultConfig()
	if cfg.Shell == "" {
		cfg.Shell = def.Shell
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if log == nil {
		log = logging.NewDefault()
	}

	return &Manager{
		cfg:     cfg,
		log:     log.Component("terminal"),
		metrics: metrics,
	}
}

// Open starts a new PTY session running the given shell.
func (m *Manager) Open(shell, workingDir string, cols, rows int, env map[string]string) (*SessionInfo, error) {
	if n := m.active.Add(1); int(n) > m.cfg.MaxSessions {
		m.active.Add(-1)
		return nil, fmt.Errorf("session limit reached: %d sessions open", m.cfg.MaxSessions)
	}

	if shell == "" {
		shell = m.cfg.Shell
	}
	if workingDir == "" {
		workingDir = m.cfg.WorkingDir
	}
	if workingDir == "" {
		workingDir = os.Getenv("HOME")
	}
	if workingDir == "" {
		workingDir = "/tmp"
	}
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	sessionID := id.NewTerminalID().String()

	cmd := exec.Command(shell)
	cmd.Dir = workingDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		m.active.Add(-1)
		return nil, fmt.Errorf("start pty: %w", err)
	}

	session := &Session{
		ID:         sessionID,
		Shell:      shell,
		WorkingDir: workingDir,
		Cols:       cols,
		Rows:       rows,
		StartedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		output:     NewBuffer(m.cfg.BufferSize),
	}

	m.sessions.Store(sessionID, session)
	m.setGauge()

	go m.readOutput(session)
	go m.reap(session)

	m.log.Info("terminal opened",
		zap.String("session_id", sessionID),
		zap.String("shell", shell),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
	)

	info := session.info()
	return &info, nil
}

// readOutput drains the PTY into the session's scrollback buffer.
func (m *Manager) readOutput(session *Session) {
	buf := make([]byte, 4096)
	for {
		n, err := session.ptmx.Read(buf)
		if n > 0 {
			session.output.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				m.log.Debug("pty read ended",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// reap waits for the shell to exit, finalizes the session, and releases its
// slot. Runs exactly once per session.
func (m *Manager) reap(session *Session) {
	session.cmd.Wait()

	session.mu.Lock()
	wasClosed := session.closed
	session.closed = true
	session.mu.Unlock()

	session.ptmx.Close()

	m.active.Add(-1)
	m.setGauge()

	if !wasClosed {
		m.log.Info("terminal exited", zap.String("session_id", session.ID))
	}
}

// Write sends input bytes to a session.
func (m *Manager) Write(sessionID string, input []byte) error {
	session, err := m.get(sessionID)
	if err != nil {
		return err
	}

	session.mu.RLock()
	closed := session.closed
	session.mu.RUnlock()

	if closed {
		return fmt.Errorf("session is closed: %s", sessionID)
	}

	_, err = session.ptmx.Write(input)
	return err
}

// Read drains the session's buffered output.
func (m *Manager) Read(sessionID string) ([]byte, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return session.output.ReadAll(), nil
}

// Resize changes the terminal dimensions.
func (m *Manager) Resize(sessionID string, cols, rows int) error {
	session, err := m.get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.closed {
		return fmt.Errorf("session is closed: %s", sessionID)
	}

	session.Cols = cols
	session.Rows = rows

	return pty.Setsize(session.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Close terminates a session and stops tracking it. Closing a session whose
// shell already exited just drops it from the list.
func (m *Manager) Close(sessionID string) error {
	session, err := m.get(sessionID)
	if err != nil {
		return err
	}

	m.sessions.Delete(sessionID)

	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return nil
	}
	session.closed = true
	session.mu.Unlock()

	if session.cmd.Process != nil {
		session.cmd.Process.Kill()
	}
	session.ptmx.Close()

	m.log.Info("terminal closed", zap.String("session_id", sessionID))
	return nil
}

// CloseAll terminates every tracked session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.sessions.Range(func(key, _ interface{}) bool {
		m.Close(key.(string))
		return true
	})
}

// List returns every tracked session, oldest first.
func (m *Manager) List() []SessionInfo {
	var sessions []SessionInfo
	m.sessions.Range(func(_, value interface{}) bool {
		sessions = append(sessions, value.(*Session).info())
		return true
	})

	// ULIDs sort by creation time
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// ActiveCount reports how many sessions hold a live shell.
func (m *Manager) ActiveCount() int {
	return int(m.active.Load())
}

func (m *Manager) get(sessionID string) (*Session, error) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return value.(*Session), nil
}

func (m *Manager) setGauge() {
	if m.metrics != nil {
		m.metrics.SetTerminalSessions(int(m.active.Load()))
	}
}
