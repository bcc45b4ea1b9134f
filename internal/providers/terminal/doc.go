// Package terminal provides interactive PTY sessions as a registry service.
//
// The framed command session can only host programs that write a complete
// response and return; this provider is the escape hatch for everything else:
// editors, pagers, REPLs, and other full-screen or interactive programs.
//
// Features:
//   - PTY support for full terminal emulation
//   - Multiple concurrent sessions with a configurable cap
//   - ANSI escape sequence passthrough
//   - Terminal resizing
//   - Ring-buffered scrollback drained on read
//   - Environment variable and working directory control
//
// Architecture:
//   - Each session spawns a shell on its own pseudo-terminal
//   - A reader goroutine drains the PTY into the scrollback buffer
//   - A reaper goroutine waits on the shell and releases the session slot
//   - Sessions are identified by prefixed ULIDs (term_*)
//
// Example Usage:
//
//	// Open a session
//	terminal.open(shell: "/bin/bash", cols: 120, rows: 40)
//	// → Returns session_info with id "term_..."
//
//	// Drive it
//	terminal.write(session_id: "term_...", input: "top\n")
//	terminal.read(session_id: "term_...")
//	terminal.resize(session_id: "term_...", cols: 80, rows: 24)
//
//	// Tear it down
//	terminal.close(session_id: "term_...")
//
// Tools:
//   - terminal.open: Open a new PTY session
//   - terminal.write: Send input to a session
//   - terminal.read: Drain buffered output from a session
//   - terminal.resize: Change PTY dimensions
//   - terminal.close: Terminate a session
//   - terminal.list: List tracked sessions
package terminal
