// Package main implements the compute command line client.
//
// It runs a single task through the agent loop against a local bash
// session and prints the transcript to stdout: model text, the commands
// the model runs, and their output. The process exit code reports the
// run outcome (0 on completion, 1 on failure, 2 on usage errors).
//
// Usage:
//
//	compute "install ripgrep and search the tree for BUG markers"
//	compute -model claude-3-5-haiku-20241022 -max-ops 20 "build the project"
//	compute -timeout 2m -quiet "cat /etc/os-release"
//
// Configuration comes from the same environment variables as the server
// (ANTHROPIC_API_KEY is required); flags override individual values.
package main
