// Package tools defines the Tool interface the agent loop executes against
// and a Collection that dispatches model tool_use blocks by name.
//
// A Collection folds recoverable failures (unknown tool names, ToolError
// returns) into failure ToolResults so the loop can always hand the model a
// tool_result block instead of aborting the conversation.
package tools
