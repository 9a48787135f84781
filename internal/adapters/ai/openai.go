package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"foreman/pkg/errors"
)

// Ensure Client implements ChatProvider
var _ ChatProvider = (*Client)(nil)

// Client speaks the OpenAI-compatible chat completions protocol.
// All supported providers (OpenAI, DeepSeek, Groq, Ollama) expose the same
// wire format, so a single client parameterized by base URL covers them.
type Client struct {
	name        ProviderName
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter RateLimiter
}

// NewClient creates a chat client for one provider endpoint.
// Request deadlines are controlled by the caller through ctx, so the
// underlying http.Client carries no timeout of its own.
func NewClient(name ProviderName, baseURL string, apiKey string, limiter RateLimiter) *Client {
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}

	return &Client{
		name:        name,
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{},
		rateLimiter: limiter,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() ProviderName {
	return c.name
}

// Chat sends a chat completion request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{
			Provider: c.name,
			Limit:    c.rateLimiter.Limit(),
			Err:      err,
		}
	}

	wireReq := openAIRequest{
		Model:            req.Model,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		Stop:             req.Stop,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stream:           req.Stream,
	}

	for _, msg := range req.Messages {
		wireReq.Messages = append(wireReq.Messages, encodeMessage(msg))
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(errors.ErrTimeout, "%s request deadline exceeded", c.name)
		}
		return nil, errors.Wrapf(err, "send %s request", c.name)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(errors.ErrTimeout, "%s response deadline exceeded", c.name)
		}
		return nil, errors.Wrapf(err, "read %s response", c.name)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		detail := string(respBody)
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			detail = errResp.Error.Type + " - " + errResp.Error.Message
		}
		return nil, &APIError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Detail:     detail,
		}
	}

	var wireResp openAIResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s response", c.name)
	}

	chatResp := &ChatResponse{
		ID:    wireResp.ID,
		Model: wireResp.Model,
		Usage: Usage{
			PromptTokens:     wireResp.Usage.PromptTokens,
			CompletionTokens: wireResp.Usage.CompletionTokens,
			TotalTokens:      wireResp.Usage.TotalTokens,
		},
	}

	if len(wireResp.Choices) > 0 {
		chatResp.Content = wireResp.Choices[0].Message.Content
		chatResp.FinishReason = FinishReason(wireResp.Choices[0].FinishReason)
	}

	return chatResp, nil
}

// encodeMessage converts a message to wire format. Plain-text messages stay
// strings; messages with parts become typed content arrays.
func encodeMessage(msg Message) openAIMessage {
	wire := openAIMessage{Role: string(msg.Role)}

	if len(msg.Parts) == 0 {
		wire.Content = msg.Content
		return wire
	}

	parts := make([]openAIContentPart, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case ContentTypeImageURL:
			parts = append(parts, openAIContentPart{
				Type:     "image_url",
				ImageURL: &openAIImageURL{URL: p.ImageURL},
			})
		default:
			parts = append(parts, openAIContentPart{
				Type: "text",
				Text: p.Text,
			})
		}
	}
	wire.Content = parts

	return wire
}

// Wire types

type openAIRequest struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      float64         `json:"temperature,omitempty"`
	TopP             float64         `json:"top_p,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	FrequencyPenalty float64         `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64         `json:"presence_penalty,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
