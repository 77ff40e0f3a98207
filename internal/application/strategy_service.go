package application

import (
	"context"
	"errors"
	"fmt"

	"tactician/internal/ai"
	"tactician/internal/models"
	"tactician/internal/scraper"
)

type StrategyService struct {
	providers []ai.Provider
	fetcher   ContentFetcher
	logger    Logger
}

func NewStrategyService(providers []ai.Provider, fetcher ContentFetcher, logger Logger) *StrategyService {
	return &StrategyService{providers: providers, fetcher: fetcher, logger: logger}
}

type StrategyAnswer struct {
	Response string                 `json:"response"`
	Source   *models.ScrapedContent `json:"source,omitempty"`
}

// Search answers a strategy question, optionally grounded in a scraped
// reference page. A rejected source (allowlist) is a hard error; any
// other scraping failure degrades to an ungrounded answer.
func (s *StrategyService) Search(ctx context.Context, query, sourceURL string) (*StrategyAnswer, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	var content *models.ScrapedContent
	if sourceURL != "" && s.fetcher != nil {
		fetched, err := s.fetcher.Fetch(ctx, sourceURL)
		switch {
		case errors.Is(err, scraper.ErrHostNotAllowed):
			return nil, fmt.Errorf("untrusted source: %w", err)
		case err != nil:
			s.logger.Warn("scraping failed, answering without reference", "url", sourceURL, "error", err.Error())
		default:
			content = fetched
		}
	}

	prompt := ai.BuildStrategyPrompt(query, content)

	var attempts []error
	for _, provider := range s.providers {
		reply, err := provider.Complete(ctx, prompt)
		if err == nil {
			return &StrategyAnswer{Response: reply, Source: content}, nil
		}
		s.logger.Warn("strategy provider failed", "provider", provider.Name(), "error", err.Error())
		attempts = append(attempts, err)
	}
	return nil, &AnalysisError{Attempts: attempts}
}
