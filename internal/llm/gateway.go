// Package llm drives the request/response cycle against the hosted model.
// The primary path requests a response constrained to exactly two string
// fields; a secondary utility does loosely-structured JSON extraction with a
// bounded retry budget.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"psychsession/pkg"
)

// maxJSONRetries is the number of additional attempts the JSON-retry utility
// makes after the first parse failure, for 6 model calls in total.
const maxJSONRetries = 5

// DefaultTemplateModel is used by prompt templates that do not name a model.
const DefaultTemplateModel = "gpt-4o-mini"

// StructuredResult is the two-field structured reply plus token accounting.
type StructuredResult struct {
	Response             string
	PsychiatristThoughts string
	Usage                pkg.UsageStats
}

// TextResult is a free-form completion plus token accounting.
type TextResult struct {
	Text  string
	Usage pkg.UsageStats
}

// PromptTemplate is a caller-supplied system prompt addressed by integer id.
type PromptTemplate struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// JSONResult is the parsed output of the JSON-retry utility.
type JSONResult struct {
	Output map[string]any
	Usage  pkg.UsageStats
	Model  string
}

// structuredReply mirrors the JSON schema the model is constrained to.
type structuredReply struct {
	Response             string `json:"response"`
	PsychiatristThoughts string `json:"psychiatrist_thoughts"`
}

var structuredSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"response": {
			Type:        jsonschema.String,
			Description: "What the therapist says directly to the patient",
		},
		"psychiatrist_thoughts": {
			Type:        jsonschema.String,
			Description: "Internal clinical observations the patient does not see",
		},
	},
	Required:             []string{"response", "psychiatrist_thoughts"},
	AdditionalProperties: false,
}

// Gateway issues completion requests against a Completer.
type Gateway struct {
	client Completer
	logger *slog.Logger
}

// NewGateway wraps a transport-level client.
func NewGateway(client Completer, logger *slog.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

// CompleteStructured sends the full message history and requests a reply
// constrained to exactly two string fields.  Transport errors are propagated
// unretried; refusals surface as ErrModelRefusal.
func (g *Gateway) CompleteStructured(ctx context.Context, model string, messages []Message) (*StructuredResult, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyRequest
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAI(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "psychologist_response",
				Schema: &structuredSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("structured completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("structured completion: empty choice list")
	}
	choice := resp.Choices[0].Message
	if choice.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrModelRefusal, choice.Refusal)
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(choice.Content), &reply); err != nil {
		return nil, fmt.Errorf("decode structured reply: %w", err)
	}

	return &StructuredResult{
		Response:             reply.Response,
		PsychiatristThoughts: reply.PsychiatristThoughts,
		Usage:                usageOf(resp),
	}, nil
}

// GenerateText sends the message history and returns the free-form reply.
func (g *Gateway) GenerateText(ctx context.Context, model string, messages []Message) (*TextResult, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyRequest
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAI(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("text completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("text completion: empty choice list")
	}

	return &TextResult{
		Text:  resp.Choices[0].Message.Content,
		Usage: usageOf(resp),
	}, nil
}

// CompleteJSONWithRetry looks up a prompt template by id, asks the model for
// JSON and parses the fence-stripped reply.  A parse failure triggers a full
// fresh model call, up to 6 attempts in total; transport errors abort
// immediately.
func (g *Gateway) CompleteJSONWithRetry(ctx context.Context, message string, promptID int, templates []PromptTemplate) (*JSONResult, error) {
	var tpl *PromptTemplate
	for i := range templates {
		if templates[i].ID == promptID {
			tpl = &templates[i]
			break
		}
	}
	if tpl == nil {
		return nil, fmt.Errorf("%w: id %d", ErrTemplateNotFound, promptID)
	}

	model := tpl.Model
	if model == "" {
		model = DefaultTemplateModel
	}
	messages := []Message{
		{Role: "system", Content: tpl.Message},
		{Role: "user", Content: message},
	}

	for attempt := 0; attempt <= maxJSONRetries; attempt++ {
		res, err := g.GenerateText(ctx, model, messages)
		if err != nil {
			return nil, err
		}
		if res.Text == "" {
			return nil, fmt.Errorf("json completion: no text in response")
		}

		cleaned := strings.ReplaceAll(res.Text, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")

		var output map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &output); err == nil {
			return &JSONResult{Output: output, Usage: res.Usage, Model: model}, nil
		}
		if g.logger != nil {
			g.logger.Warn("retrying JSON completion", "prompt_id", promptID, "attempt", attempt+1)
		}
	}
	return nil, ErrRetryExhausted
}

func usageOf(resp openai.ChatCompletionResponse) pkg.UsageStats {
	return pkg.UsageStats{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
}
