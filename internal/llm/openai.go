package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message passed through the gateway.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the transport-level model collaborator.  *openai.Client
// satisfies it; tests substitute a stub.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient constructs the OpenAI-backed transport.  A missing API key
// is a configuration error and fails fast here rather than on the first
// call.
func NewOpenAIClient(apiKey string) (*openai.Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return openai.NewClient(apiKey), nil
}

// toOpenAI converts gateway messages to the go-openai message type.
func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
