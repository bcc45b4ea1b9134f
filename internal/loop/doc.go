// Package loop implements the agentic sampling loop between the model and
// the tool set.
//
// A run seeds the conversation with a task, calls the Messages API, executes
// the tool_use blocks the model returns, and feeds tool_result blocks back
// as the next user turn. The run ends when the model emits a completion
// marker (TASK COMPLETED / TASK FAILED / OPERATION LIMIT REACHED), stops
// requesting tools, or exhausts its operation budget. Progress is delivered
// on a buffered event channel closed at the end of the run.
package loop
