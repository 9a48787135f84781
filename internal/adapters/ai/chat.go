package ai

import "context"

// ChatProvider is the contract each backend adapter must satisfy.
type ChatProvider interface {
	Name() ProviderName

	// Chat sends a chat completion request and blocks until the full
	// response arrives or ctx is done.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Model            string
	Messages         []Message
	MaxTokens        int
	Temperature      float64
	TopP             float64
	Stop             []string
	FrequencyPenalty float64
	PresencePenalty  float64
	Stream           bool
}

// Message represents a single message in the conversation.
// Content carries plain text; Parts carries typed multimodal content.
// When Parts is non-empty it takes precedence over Content on the wire.
type Message struct {
	Role    MessageRole
	Content string
	Parts   []ContentPart
}

// HasImage reports whether any content part references an image.
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == ContentTypeImageURL {
			return true
		}
	}
	return false
}

// Text returns the textual content of the message, flattening parts.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == ContentTypeText {
			out += p.Text
		}
	}
	return out
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ContentPart is a typed piece of message content.
type ContentPart struct {
	Type     ContentType
	Text     string
	ImageURL string
}

// ContentType discriminates content parts.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImageURL ContentType = "image_url"
)

// ChatResponse represents the response from a chat completion.
type ChatResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason FinishReason
	Usage        Usage
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonError  FinishReason = "error"
)

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
