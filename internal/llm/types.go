package llm

// Message roles and content block types for the Anthropic Messages API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Stop reasons the API reports on a completed response.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// CacheControl marks a content block as a prompt-cache breakpoint.
type CacheControl struct {
	Type string `json:"type"`
}

// EphemeralCache returns the standard ephemeral cache marker.
func EphemeralCache() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// ContentBlock is one element of a message's content list. The Type field
// decides which of the remaining fields are meaningful.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use fields
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`

	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// Message is one conversational turn.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ToolParam declares one callable tool to the model.
type ToolParam struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Request is the Messages API request body.
type Request struct {
	Model         string         `json:"model"`
	MaxTokens     int            `json:"max_tokens"`
	System        []ContentBlock `json:"system,omitempty"`
	Messages      []Message      `json:"messages"`
	Tools         []ToolParam    `json:"tools,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitempty"`
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// Response is the Messages API response body.
type Response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// TextBlock builds a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolResultBlock builds a tool_result block answering the tool_use with the
// given id. Empty content is legal and omitted from the wire form.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	block := ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		IsError:   isError,
	}
	if content != "" {
		block.Content = []ContentBlock{TextBlock(content)}
	}
	return block
}

// UserMessage builds a user turn from blocks.
func UserMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// UserText builds a user turn holding a single text block.
func UserText(text string) Message {
	return UserMessage(TextBlock(text))
}

// AssistantMessage builds an assistant turn from blocks.
func AssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// MarkCacheBreakpoints sets ephemeral cache markers on the last n user
// turns, and clears the first stale marker found beyond them so the set of
// breakpoints stays bounded as the conversation grows.
func MarkCacheBreakpoints(messages []Message, n int) {
	remaining := n
	for i := len(messages) - 1; i >= 0; i-- {
		msg := &messages[i]
		if msg.Role != RoleUser || len(msg.Content) == 0 {
			continue
		}
		last := &msg.Content[len(msg.Content)-1]
		if remaining > 0 {
			remaining--
			last.CacheControl = EphemeralCache()
		} else {
			last.CacheControl = nil
			break
		}
	}
}

// TextContent concatenates every text block in a response's content.
func (r *Response) TextContent() string {
	var out string
	for _, block := range r.Content {
		if block.Type == BlockText {
			out += block.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks in a response's content.
func (r *Response) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range r.Content {
		if block.Type == BlockToolUse {
			uses = append(uses, block)
		}
	}
	return uses
}
