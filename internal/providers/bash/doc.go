// Package bash provides a persistent shell session exposed as a single
// agent-callable tool.
//
// Unlike a raw terminal, this provider frames every command with a
// completion marker so callers get one discrete result per command instead
// of an unstructured byte stream. The shell process stays alive between
// calls, so working directory, environment variables, and background jobs
// carry over from one command to the next.
//
// Features:
//   - One long-lived bash subprocess per session, pipes for all three streams
//   - Marker-echo framing: completion detected without closing the stream
//   - Separate stdout/stderr capture, cleared between commands
//   - Sticky timeout: a hung command poisons the session until restart
//   - Process-group signaling so child processes go down with the shell
//   - Lazy start and explicit restart through the tool surface
//
// Architecture:
//   - Session owns the subprocess; exec's copiers feed two owned buffers
//   - A monitor goroutine records the exit code the moment the shell dies
//   - Run polls the stdout buffer for the echoed marker at a fixed interval
//   - Provider holds at most one Session and maps outcomes onto tool results
//
// Example Usage:
//
//	p := bash.NewProvider(bash.DefaultConfig(), logger, metrics)
//	result, err := p.Invoke(ctx, "echo hello", false)
//	// → result.Output == "hello"
//
//	result, _ = p.Invoke(ctx, "", true)
//	// → result.System == "tool has been restarted."
//
// Tools:
//   - bash: execute a command in the persistent session, or restart it
package bash
