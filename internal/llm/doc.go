// Package llm provides the Anthropic Messages API client and wire types.
//
// The client layers transport concerns the same way as the rest of the
// backend's outbound HTTP: a retryable transport under resty, a token
// bucket rate limiter in front of every call, and a circuit breaker so a
// failing upstream trips fast instead of queueing work.
//
// Wire types cover the tool-use conversation shape: text, tool_use, and
// tool_result content blocks, tool declarations with JSON-schema inputs,
// and optional ephemeral cache_control breakpoints for prompt caching.
//
// Example Usage:
//
//	client := llm.NewClient(llm.Config{APIKey: key}, logger, metrics)
//	resp, err := client.Messages(ctx, &llm.Request{
//		Model:     "claude-3-5-sonnet-20241022",
//		MaxTokens: 1024,
//		Messages:  []llm.Message{llm.UserText("ls the current directory")},
//		Tools:     tools,
//	})
package llm
