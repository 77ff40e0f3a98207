package application

import (
	"errors"
	"fmt"

	"tactician/internal/ai"
)

var (
	// ErrEmptyExtraction means OCR produced nothing usable across all
	// images. Raised before any AI call so an empty input never burns a
	// paid completion.
	ErrEmptyExtraction = errors.New("no text could be extracted from any of the images")

	// ErrNoProviders means not a single AI backend is configured.
	ErrNoProviders = errors.New("no AI provider is configured")
)

// AnalysisError is raised once, after the whole provider chain has been
// exhausted. It keeps every attempt's error; the last one drives the
// user-facing message.
type AnalysisError struct {
	Attempts []error
}

func (e *AnalysisError) Error() string {
	if len(e.Attempts) == 0 {
		return "analysis failed"
	}
	return fmt.Sprintf("analysis failed after %d provider attempt(s): %v",
		len(e.Attempts), e.Attempts[len(e.Attempts)-1])
}

func (e *AnalysisError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1]
}

// UserMessage maps an analysis failure to the remediation the player
// can actually act on: retake photos, wait or fix configuration, or
// simply retry.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyExtraction):
		return "No text could be read from your images. Try clearer screenshots of the battle report."
	case errors.Is(err, ErrNoProviders):
		return "The AI backend is not configured. Check the provider API keys."
	case errors.Is(err, ai.ErrEmptyReply):
		return "The AI's reply could not be understood. Please try again."
	}

	var provErr *ai.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case ai.KindQuotaExceeded:
			return "The AI service quota is exhausted. Please wait a bit and try again."
		case ai.KindAuthFailure:
			return "The AI service rejected the configured credentials. Check the API keys."
		}
		return "The AI could not be reached. Please try again."
	}

	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return "The AI could not be reached. Please try again."
	}
	return err.Error()
}
