package ai

import (
	"context"

	"tactician/internal/models"
)

// Provider is one AI text-generation backend. The orchestrator holds an
// ordered list of providers and walks it until one succeeds.
type Provider interface {
	Name() string

	// Complete sends a single analysis prompt and returns the full
	// reply text. Failures are reported as *ProviderError.
	Complete(ctx context.Context, prompt string) (string, error)

	// StreamChat opens a streaming reply to message given the prior
	// history and an optional context block. Fragments arrive in
	// emission order; closing the stream cancels the underlying call.
	StreamChat(ctx context.Context, history []models.ChatMessage, message, contextBlock string) (*Stream, error)
}

// VisionProvider is implemented by providers that can analyze raw
// images directly instead of OCR text. The fallback path uses this when
// available; it is a legitimate alternate route, not an error path.
type VisionProvider interface {
	Provider
	CompleteVision(ctx context.Context, prompt string, images [][]byte) (string, error)
}
