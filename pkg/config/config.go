package config

import (
	"tactician/internal/repository"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Repo repository.Config `envPrefix:"REPO_"`

	GroqKey   string `env:"GROQ_API_KEY" envDefault:""`
	GeminiKey string `env:"GEMINI_API_KEY" envDefault:""`

	// OCREndpoint points at a remote recognition service. When empty
	// and a Gemini key is present, recognition falls back to Gemini
	// vision.
	OCREndpoint string `env:"OCR_ENDPOINT" envDefault:""`
	OCRAPIKey   string `env:"OCR_API_KEY" envDefault:""`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOGGER_LEVEL" envDefault:"debug"`

	AllowedSources []string `env:"ALLOWED_SOURCES" envSeparator:"," envDefault:"evonyguidewiki.com,gamerempire.net,mrguider.org,pockettactics.com"`
}

func ReadEnvConfig(cfg *Config) error {
	return env.Parse(cfg)
}
