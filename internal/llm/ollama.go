package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOllamaBaseURL is the default Ollama API endpoint.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultModel answers in Korean well enough for campus notices.
	DefaultModel = "qwen2.5:7b"

	// DefaultTemperature keeps answers close to the retrieved documents.
	DefaultTemperature = 0.3

	// DefaultKeepAlive keeps the model loaded between questions.
	DefaultKeepAlive = 10 * time.Minute
)

// OllamaClient talks to Ollama's chat endpoint without streaming. Every call is one
// system message plus one user message; the engine keeps no conversation state.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	model      string
	keepAlive  time.Duration
}

// OllamaOption is a functional option for configuring OllamaClient.
type OllamaOption func(*OllamaClient)

// WithBaseURL sets a custom base URL for the Ollama API.
func WithBaseURL(url string) OllamaOption {
	return func(c *OllamaClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(c *OllamaClient) {
		c.httpClient = client
	}
}

// WithModel sets the model used when GenerateOptions.Model is empty.
func WithModel(model string) OllamaOption {
	return func(c *OllamaClient) {
		c.model = model
	}
}

// WithKeepAlive sets how long Ollama keeps the model loaded after a call; zero unloads it.
func WithKeepAlive(d time.Duration) OllamaOption {
	return func(c *OllamaClient) {
		c.keepAlive = d
	}
}

// NewOllamaClient creates a new Ollama client with the given options.
func NewOllamaClient(opts ...OllamaOption) *OllamaClient {
	c := &OllamaClient{
		baseURL:    DefaultOllamaBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		model:      DefaultModel,
		keepAlive:  DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float32  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model      string      `json:"model"`
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
}

// Ollama reports failures as {"error": "..."}
type errorResponse struct {
	Error string `json:"error"`
}

// Generate sends one chat turn and returns the trimmed assistant message.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	body, err := json.Marshal(c.buildChat(prompt, opts))
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, msg)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return strings.TrimSpace(result.Message.Content), nil
}

func (c *OllamaClient) buildChat(prompt string, opts GenerateOptions) chatRequest {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	req := chatRequest{Model: model}
	if opts.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})
	if c.keepAlive > 0 {
		req.KeepAlive = c.keepAlive.String()
	}
	if opts.Temperature > 0 || opts.MaxTokens > 0 || len(opts.Stop) > 0 {
		req.Options = &chatOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			Stop:        opts.Stop,
		}
	}
	return req
}

// Ensure OllamaClient implements LLM interface.
var _ LLM = (*OllamaClient)(nil)
