package llm

import "errors"

var (
	// ErrMissingAPIKey means no OpenAI credential was configured.  Detected
	// at client construction, never recovered.
	ErrMissingAPIKey = errors.New("openai api key not configured")
	// ErrEmptyRequest is returned when a completion is requested with no
	// messages.
	ErrEmptyRequest = errors.New("no messages provided")
	// ErrModelRefusal means the model declined the structured contract
	// instead of answering.  Not retried.
	ErrModelRefusal = errors.New("model refused to respond")
	// ErrTemplateNotFound means the requested prompt template id is absent
	// from the caller-supplied list.
	ErrTemplateNotFound = errors.New("prompt template not found")
	// ErrRetryExhausted is returned by the JSON-retry utility after every
	// attempt produced unparsable output.
	ErrRetryExhausted = errors.New("exceeded retry attempts for JSON response")
)
