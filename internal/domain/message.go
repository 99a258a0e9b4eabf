package domain

// Message roles stored in conversation checkpoints.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
	RoleTool  = "tool"
)

// StoredMessage is a serialized chat message entry.
type StoredMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []StoredToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

// StoredToolCall is a tool invocation requested by the model.
type StoredToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
