// Package llm defines the LLM collaborator contract (§6.1): chat and embed
// operations, plus the strict-JSON planning contract the agent loop parses
// plans out of.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
)

// Role is a chat message's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects plain text vs strict JSON output.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// ChatOptions configures a single chat call.
type ChatOptions struct {
	Model          string
	Temperature    float64
	ResponseFormat ResponseFormat
}

// Client is the external LLM collaborator contract (§6.1): two operations,
// chat and embed.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HTTPClient is an OpenAI-compatible chat-completions client, suitable for
// any provider exposing that wire shape (the local model-runner and
// OpenAI itself both do). There is no LLM SDK among the dependencies this
// module draws from, so this talks over stdlib net/http directly rather
// than adopting an unrelated ecosystem library.
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	HTTP       *http.Client
}

// NewHTTPClient builds a client with a sensible request timeout default,
// overridable via the internal/config Defaults.LLMChatTimeout value passed
// by the caller.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat posts messages to the chat-completions endpoint and returns the
// first choice's content.
func (c *HTTPClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	reqBody := chatRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}
	if opts.ResponseFormat == ResponseFormatJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", agenterrors.InvalidInput("chat request is not serializable: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", agenterrors.Timeout("llm chat")
		}
		return "", agenterrors.AdapterUnavailable("llm", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 500 {
		return "", agenterrors.AdapterUnavailable("llm", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
	if resp.StatusCode >= 400 {
		return "", agenterrors.InvalidInput(fmt.Sprintf("llm rejected request: status %d: %s", resp.StatusCode, body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", agenterrors.InvalidInput("llm returned malformed response: " + err.Error())
	}
	if len(parsed.Choices) == 0 {
		return "", agenterrors.InvalidInput("llm returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed posts text to the embeddings endpoint and returns its vector.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float64, error) {
	raw, err := json.Marshal(embedRequest{Model: "text-embedding", Input: text})
	if err != nil {
		return nil, agenterrors.InvalidInput("embed request is not serializable: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embeddings", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, agenterrors.Timeout("llm embed")
		}
		return nil, agenterrors.AdapterUnavailable("llm", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, agenterrors.AdapterUnavailable("llm", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, agenterrors.InvalidInput("embed returned malformed response: " + err.Error())
	}
	if len(parsed.Data) == 0 {
		return nil, agenterrors.InvalidInput("embed returned no vectors")
	}

	return parsed.Data[0].Embedding, nil
}
