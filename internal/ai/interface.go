package ai

import (
	"context"
)

// LLMProvider defines the contract for interacting with AI models.
// This interface allows for swapping different AI providers (Gemini, OpenAI, etc.) in the future.
type LLMProvider interface {
	// StartConversation opens a multi-turn exchange in which the model may call the given tools.
	// The returned Conversation is not safe for concurrent use; open one per request.
	StartConversation(tools []ToolSpec) Conversation

	// GenerateJSON issues a single tool-free request and returns the raw JSON text of the reply.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Conversation is one model session. Send starts it; SendToolResults answers the tool
// calls of the previous Turn. Each call blocks until the model yields its next Turn.
type Conversation interface {
	Send(ctx context.Context, prompt string) (*Turn, error)
	SendToolResults(ctx context.Context, results []ToolResult) (*Turn, error)
}
