package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tactician/internal/models"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "llama-3.1-8b-instant"

	groqAnalysisTemperature = 0.3
	groqAnalysisMaxTokens   = 2000
	groqChatTemperature     = 0.7
	groqChatMaxTokens       = 1000
)

type GroqConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// GroqClient talks to the Groq OpenAI-compatible chat completions API.
// It is the primary analysis provider.
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewGroqClient(cfg GroqConfig) *GroqClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = groqDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = groqDefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &GroqClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.HTTPClient,
	}
}

func (c *GroqClient) Name() string { return "groq" }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type groqStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *GroqClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := groqRequest{
		Model: c.model,
		Messages: []groqMessage{
			{Role: "system", Content: "You are an expert Evony TKR battle analyst."},
			{Role: "user", Content: prompt},
		},
		Temperature: groqAnalysisTemperature,
		MaxTokens:   groqAnalysisMaxTokens,
	}

	resp, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	var parsed groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: KindTransient, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: KindEmpty, Err: fmt.Errorf("no choices in response")}
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamChat opens an SSE stream. Fragments are emitted in arrival
// order; closing the returned stream cancels the HTTP request.
func (c *GroqClient) StreamChat(ctx context.Context, history []models.ChatMessage, message, contextBlock string) (*Stream, error) {
	messages := make([]groqMessage, 0, len(history)+3)
	messages = append(messages, groqMessage{Role: "system", Content: chatSystemPrompt})
	if contextBlock != "" {
		messages = append(messages, groqMessage{Role: "system", Content: contextBlock})
	}
	for _, m := range history {
		messages = append(messages, groqMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, groqMessage{Role: "user", Content: message})

	req := groqRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: groqChatTemperature,
		MaxTokens:   groqChatMaxTokens,
		Stream:      true,
	}

	streamCtx, cancel := context.WithCancel(ctx)

	resp, err := c.post(streamCtx, req)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := c.checkStatus(resp); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	stream := NewStream(cancel)
	go c.consumeSSE(resp.Body, stream)
	return stream, nil
}

func (c *GroqClient) consumeSSE(body io.ReadCloser, stream *Stream) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			stream.End()
			return
		}

		var chunk groqStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if !stream.Emit(delta) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		stream.Fail(&ProviderError{Provider: c.Name(), Kind: KindTransient, Err: err})
		return
	}
	stream.End()
}

func (c *GroqClient) post(ctx context.Context, body groqRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Kind: KindTransient, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Kind: KindTransient, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Kind: KindTransient, Err: err}
	}
	return resp, nil
}

func (c *GroqClient) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	kind := KindTransient
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindAuthFailure
	case http.StatusTooManyRequests:
		kind = KindQuotaExceeded
	}
	return &ProviderError{Provider: c.Name(), Kind: kind, Err: err}
}
