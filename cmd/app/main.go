package main

import (
	"context"
	"embed"
	"errors"
	"time"

	"tactician/internal/ai"
	"tactician/internal/application"
	deliveryhttp "tactician/internal/delivery/http"
	"tactician/internal/ocr"
	"tactician/internal/repository"
	"tactician/internal/scraper"
	"tactician/pkg/config"
	"tactician/pkg/logger"
	"tactician/pkg/services"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var errNoOCR = errors.New("no OCR backend configured, set OCR_ENDPOINT or GEMINI_API_KEY")

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}

	log := logger.NewLogger(&logger.Config{Level: cfg.LogLevel})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var history repository.BattleHistory
	if cfg.Repo.Host != "" {
		db, err := repository.NewPostgresDB(&cfg.Repo)
		if err != nil {
			log.Error("failed to init db", "error", err.Error())
			return
		}
		defer db.Close()

		log.Info("running migrations")
		if err := repository.RunMigrations(db, migrationFS); err != nil {
			log.Error("failed to run migrations", "error", err.Error())
			return
		}
		log.Info("migrations applied")

		history = repository.NewRepository(db)
	} else {
		log.Warn("no database configured, battle history disabled")
	}

	engine, err := buildOCREngine(&cfg)
	if err != nil {
		log.Error("failed to init ocr", "error", err.Error())
		return
	}
	ocrAdapter := ocr.NewAdapter(engine, ocr.AdapterConfig{
		Timeout:    ocr.DefaultTimeout,
		Preprocess: true,
	})
	defer ocrAdapter.Close()

	providers, cleanup, err := buildProviders(ctx, &cfg)
	if err != nil {
		log.Error("failed to init ai providers", "error", err.Error())
		return
	}
	defer cleanup()
	if len(providers) == 0 {
		log.Error("no AI provider configured, set GROQ_API_KEY or GEMINI_API_KEY")
		return
	}

	fetcher := scraper.New(scraper.Config{
		AllowedHosts: cfg.AllowedSources,
		MinInterval:  2 * time.Second,
		CacheTTL:     24 * time.Hour,
	})

	app := application.NewService(ocrAdapter, providers, history, fetcher, log)

	manager := services.NewManager(log)
	manager.AddService(deliveryhttp.NewServer(cfg.HTTPAddr, app, log))

	if err := manager.Run(ctx); err != nil {
		log.Error("services failed", "error", err.Error())
		return
	}
	log.Info("stopped")
}

// buildOCREngine prefers a dedicated recognition service and falls back
// to Gemini vision transcription when only a Gemini key is present.
func buildOCREngine(cfg *config.Config) (ocr.Engine, error) {
	if cfg.OCREndpoint != "" {
		return ocr.NewHTTPEngine(ocr.HTTPEngineConfig{
			Endpoint: cfg.OCREndpoint,
			APIKey:   cfg.OCRAPIKey,
		}), nil
	}
	if cfg.GeminiKey != "" {
		return ocr.NewGeminiEngine(cfg.GeminiKey), nil
	}
	return nil, errNoOCR
}

// buildProviders assembles the fallback chain: Groq first (fast, cheap),
// Gemini second (accepts raw screenshots when extraction came up short).
func buildProviders(ctx context.Context, cfg *config.Config) ([]ai.Provider, func(), error) {
	var providers []ai.Provider
	cleanup := func() {}

	if cfg.GroqKey != "" {
		providers = append(providers, ai.NewGroqClient(ai.GroqConfig{APIKey: cfg.GroqKey}))
	}
	if cfg.GeminiKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiKey)
		if err != nil {
			return nil, cleanup, err
		}
		providers = append(providers, gemini)
		cleanup = func() { gemini.Close() }
	}
	return providers, cleanup, nil
}
