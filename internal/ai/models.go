package ai

// ToolParam describes one string parameter of a tool.
type ToolParam struct {
	Name        string
	Description string
	// Enum restricts accepted values when non-empty.
	Enum     []string
	Required bool
}

// ToolSpec is the provider-neutral declaration of a callable capability.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
}

// ToolCall is a structured request the model issued mid-generation.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult answers one ToolCall. Response must only hold JSON-compatible values
// (string, float64, bool, nil, []any, map[string]any).
type ToolResult struct {
	Name     string
	Response map[string]any
}

// Turn is a single model reply: either tool calls to satisfy, or terminal text.
type Turn struct {
	Text      string
	ToolCalls []ToolCall
}

// Terminal reports whether the model finished without requesting tools.
func (t *Turn) Terminal() bool {
	return len(t.ToolCalls) == 0
}
