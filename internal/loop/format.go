package loop

import "github.com/computeuse/backend/internal/types"

// FormatResult renders a tool result the way it is reported back to the
// model: command output fenced in backticks, errors plain, and any system
// note in a leading <s> tag. A result with neither output nor error
// renders empty even when a system note is present.
func FormatResult(result types.ToolResult) string {
	body := formatBody(result)
	if body == "" {
		return ""
	}
	if result.System != "" {
		return "<s>" + result.System + "</s>\n\n" + body
	}
	return body
}

func formatBody(result types.ToolResult) string {
	switch {
	case result.Output != "" && result.Error != "":
		return "```\n" + result.Output + "\n```\n" + result.Error
	case result.Error != "":
		return result.Error
	case result.Output != "":
		return "```\n" + result.Output + "\n```"
	default:
		return ""
	}
}
