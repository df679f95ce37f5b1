package intake

import (
	"context"
	"encoding/json"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the provider-neutral message representation, including
// system instructions.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports provider token accounting when available.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// ResponseSchema requests structured (JSON) output from the provider. Raw
// holds a JSON Schema document; providers that cannot honor it fall back to
// plain JSON mode and the caller's tolerant parser.
type ResponseSchema struct {
	Name string
	Raw  json.RawMessage
}

// LLMRequest is a single completion request carrying the full ordered
// transcript plus system instructions.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	Schema      *ResponseSchema
}

// LLMResponse is the provider's final answer. Streaming providers
// concatenate fragments in arrival order before returning. ThreadID is the
// provider-side correlation token, when one is returned.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
	ThreadID   string
}

// LLMClient is the conversation provider collaborator.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
