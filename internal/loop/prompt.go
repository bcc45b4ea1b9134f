package loop

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

const systemPromptFormat = `<SYSTEM_CAPABILITY>
* You are utilizing a %s machine with %s architecture and bash command execution capabilities
* You can execute any valid bash command but do not install packages
* When using commands that are expected to output very large quantities of text, redirect into a tmp file
* The current date is %s
</SYSTEM_CAPABILITY>

<IMPORTANT>
* Only execute valid bash commands
* For each task, you must either:
  1. Complete the requested goal and indicate success with "TASK COMPLETED: [brief explanation of what was accomplished]"
  2. Determine the goal cannot be achieved and indicate failure with "TASK FAILED: [explanation of why it cannot be done]"
* You have a maximum of %d operations to complete each task
* Each command execution counts as one operation
* If you reach the operation limit without completing the task, respond with "OPERATION LIMIT REACHED: [current status and what remains to be done]"
</IMPORTANT>`

// SystemPrompt builds the capability prompt for a run with the given
// operation budget.
func SystemPrompt(maxOperations int) string {
	date := time.Now().Format("Monday, January 2, 2006")
	return fmt.Sprintf(systemPromptFormat, runtime.GOOS, runtime.GOARCH, date, maxOperations)
}

var completionMarkers = []struct {
	marker  string
	outcome string
}{
	{"task completed:", OutcomeCompleted},
	{"task failed:", OutcomeFailed},
	{"operation limit reached:", OutcomeLimit},
}

// CompletionOutcome scans model text for a terminal status marker and
// returns the outcome it names. The check is case-insensitive.
func CompletionOutcome(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range completionMarkers {
		if strings.Contains(lower, m.marker) {
			return m.outcome, true
		}
	}
	return "", false
}
