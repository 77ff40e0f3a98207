package ocr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tactician/internal/models"
)

const (
	geminiOCRModel = "gemini-1.5-flash"

	// Gemini does not report a recognition confidence; a fixed nominal
	// value keeps the result shape uniform across engines.
	geminiNominalConfidence = 85
)

const geminiOCRPrompt = `Transcribe ALL text visible in this game battle report screenshot.
Preserve the layout line by line. Output plain text only, no commentary,
no markdown. Pay special attention to troop counts, tier levels (T1-T17)
and win/loss outcomes.`

// GeminiEngine performs recognition through Gemini vision. Client
// construction is deferred to Init, which the adapter guards.
type GeminiEngine struct {
	apiKey string

	mu     sync.Mutex
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiEngine(apiKey string) *GeminiEngine {
	return &GeminiEngine{apiKey: apiKey}
}

func (e *GeminiEngine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return err
	}

	model := client.GenerativeModel(geminiOCRModel)
	model.SetTemperature(0)

	e.client = client
	e.model = model
	return nil
}

func (e *GeminiEngine) Recognize(ctx context.Context, image []byte) (models.OCRResult, error) {
	e.mu.Lock()
	model := e.model
	e.mu.Unlock()
	if model == nil {
		return models.OCRResult{}, errors.New("engine not initialized")
	}

	format := "jpeg"
	if strings.Contains(http.DetectContentType(image), "png") {
		format = "png"
	}

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, image),
		genai.Text(geminiOCRPrompt),
	)
	if err != nil {
		return models.OCRResult{}, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.OCRResult{}, nil
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return models.OCRResult{Text: b.String(), Confidence: geminiNominalConfidence}, nil
}

func (e *GeminiEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	e.model = nil
	return err
}
