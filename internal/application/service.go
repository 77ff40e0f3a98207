package application

import (
	"context"

	"tactician/internal/ai"
	"tactician/internal/models"
	"tactician/internal/repository"
)

// Logger is the slog-style message-plus-attributes surface the
// services log through.
type Logger interface {
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// OCRAdapter is the consumer-side view of the recognition adapter.
type OCRAdapter interface {
	Init(ctx context.Context) error
	RecognizeText(ctx context.Context, image []byte) (models.OCRResult, error)
	Close() error
}

// ContentFetcher retrieves strategy pages from allowlisted sources.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*models.ScrapedContent, error)
}

type Service struct {
	Analyzer *AnalyzerService
	Chat     *ChatService
	Strategy *StrategyService
	History  *HistoryService
}

// NewService wires the application services. history may be nil when no
// database is configured; persistence and historical context are then
// skipped (they are best-effort side channels either way).
func NewService(ocrAdapter OCRAdapter, providers []ai.Provider, history repository.BattleHistory, fetcher ContentFetcher, logger Logger) *Service {
	return &Service{
		Analyzer: NewAnalyzerService(ocrAdapter, providers, history, logger),
		Chat:     NewChatService(providers, history, logger),
		Strategy: NewStrategyService(providers, fetcher, logger),
		History:  NewHistoryService(history, logger),
	}
}
