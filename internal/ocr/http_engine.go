package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tactician/internal/models"
)

// Recognition settings tuned for game screenshots: uniform text block,
// restricted character set.
const (
	ocrLanguage      = "eng"
	ocrCharWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz:,.-/%()[] "
	ocrPageSegMode   = 6
)

type HTTPEngineConfig struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPEngine talks to a remote Tesseract-style recognition service.
type HTTPEngine struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPEngine(cfg HTTPEngineConfig) *HTTPEngine {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPEngine{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   cfg.HTTPClient,
	}
}

type recognizeRequest struct {
	Image                   string `json:"image"`
	Language                string `json:"language"`
	CharWhitelist           string `json:"char_whitelist,omitempty"`
	PageSegMode             int    `json:"page_seg_mode,omitempty"`
	PreserveInterwordSpaces bool   `json:"preserve_interword_spaces,omitempty"`
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Init health-checks the service so a misconfigured endpoint fails
// before the first screenshot arrives.
func (e *HTTPEngine) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ocr service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ocr service health check failed with status %d", resp.StatusCode)
	}
	return nil
}

func (e *HTTPEngine) Recognize(ctx context.Context, image []byte) (models.OCRResult, error) {
	payload, err := json.Marshal(recognizeRequest{
		Image:                   base64.StdEncoding.EncodeToString(image),
		Language:                ocrLanguage,
		CharWhitelist:           ocrCharWhitelist,
		PageSegMode:             ocrPageSegMode,
		PreserveInterwordSpaces: true,
	})
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/recognize", bytes.NewReader(payload))
	if err != nil {
		return models.OCRResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return models.OCRResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return models.OCRResult{}, fmt.Errorf("ocr service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.OCRResult{}, fmt.Errorf("decode response: %w", err)
	}
	return models.OCRResult{Text: parsed.Text, Confidence: parsed.Confidence}, nil
}

func (e *HTTPEngine) Close() error { return nil }

func (e *HTTPEngine) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}
