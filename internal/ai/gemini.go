package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"tactician/internal/models"
)

const (
	geminiModel       = "gemini-1.5-flash"
	geminiTemperature = 0.3
)

// GeminiClient is the fallback provider. Unlike Groq it can analyze raw
// screenshot bytes directly, so the orchestrator reaches it through the
// VisionProvider path when OCR text is unreliable.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(geminiModel)
	model.SetTemperature(geminiTemperature)

	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Close() error { return g.client.Close() }

func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", g.wrapError(err)
	}
	return g.responseText(resp)
}

func (g *GeminiClient) CompleteVision(ctx context.Context, prompt string, images [][]byte) (string, error) {
	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData(imageFormat(img), img))
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", g.wrapError(err)
	}
	return g.responseText(resp)
}

func (g *GeminiClient) StreamChat(ctx context.Context, history []models.ChatMessage, message, contextBlock string) (*Stream, error) {
	cs := g.model.StartChat()
	cs.History = make([]*genai.Content, 0, len(history)+1)
	if contextBlock != "" {
		cs.History = append(cs.History, &genai.Content{
			Role:  "user",
			Parts: []genai.Part{genai.Text("Context for this conversation:\n" + contextBlock)},
		})
	}
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	streamCtx, cancel := context.WithCancel(ctx)
	iter := cs.SendMessageStream(streamCtx, genai.Text(message))

	stream := NewStream(cancel)
	go func() {
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				stream.End()
				return
			}
			if err != nil {
				stream.Fail(g.wrapError(err))
				return
			}
			text := candidateText(resp)
			if text == "" {
				continue
			}
			if !stream.Emit(text) {
				return
			}
		}
	}()
	return stream, nil
}

func (g *GeminiClient) responseText(resp *genai.GenerateContentResponse) (string, error) {
	text := candidateText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: g.Name(), Kind: KindEmpty, Err: fmt.Errorf("empty response from model")}
	}
	return text, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// The genai SDK surfaces googleapi errors as opaque strings, so the
// kind is classified by substring.
func (g *GeminiClient) wrapError(err error) error {
	msg := strings.ToLower(err.Error())
	kind := KindTransient
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "429") || strings.Contains(msg, "resource exhausted"):
		kind = KindQuotaExceeded
	case strings.Contains(msg, "api key") || strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "permission"):
		kind = KindAuthFailure
	}
	return &ProviderError{Provider: g.Name(), Kind: kind, Err: err}
}

func imageFormat(data []byte) string {
	if strings.Contains(http.DetectContentType(data), "png") {
		return "png"
	}
	return "jpeg"
}
