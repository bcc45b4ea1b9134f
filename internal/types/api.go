package types

// ChatRequest represents a chat task request
type ChatRequest struct {
	Message      string `json:"message" binding:"required"`
	Model        string `json:"model,omitempty"`
	TitleRequest bool   `json:"title_request,omitempty"`
}

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID   string                 `json:"tool_id" binding:"required"`
	Params   map[string]interface{} `json:"params" binding:"required"`
	ClientID *string                `json:"client_id,omitempty"`
}

// DiscoverRequest represents a service discovery query
type DiscoverRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit,omitempty"`
}

// WSMessage represents an inbound WebSocket message
type WSMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}
