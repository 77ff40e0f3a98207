package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tactician/internal/models"
)

const DefaultTimeout = 30 * time.Second

type AdapterConfig struct {
	// Timeout bounds a single Recognize call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Preprocess downscales and recompresses images before recognition.
	Preprocess bool
}

// Adapter owns the engine handle. Init is idempotent: concurrent
// callers observe one underlying initialization, not N engine startups.
type Adapter struct {
	engine  Engine
	timeout time.Duration
	prep    bool

	initGroup singleflight.Group

	mu          sync.Mutex
	initialized bool
	closed      bool
}

func NewAdapter(engine Engine, cfg AdapterConfig) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{
		engine:  engine,
		timeout: cfg.Timeout,
		prep:    cfg.Preprocess,
	}
}

func (a *Adapter) Init(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return &Error{Kind: KindEngineUnavailable, Err: errors.New("adapter is closed")}
	}
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	// singleflight collapses concurrent callers onto one in-flight
	// engine startup; latecomers await the same result.
	_, err, _ := a.initGroup.Do("init", func() (interface{}, error) {
		if err := a.engine.Init(ctx); err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.initialized = true
		a.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return &Error{Kind: KindEngineUnavailable, Err: err}
	}
	return nil
}

// RecognizeText runs OCR over one image, bounded by the adapter
// timeout. Retry and continue-on-error policy belongs to the caller.
func (a *Adapter) RecognizeText(ctx context.Context, image []byte) (models.OCRResult, error) {
	if err := a.Init(ctx); err != nil {
		return models.OCRResult{}, err
	}

	if a.prep {
		if normalized, err := normalizeImage(image); err == nil {
			image = normalized
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.engine.Recognize(ctx, image)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.OCRResult{}, &Error{Kind: KindTimeout, Err: err}
		}
		var ocrErr *Error
		if errors.As(err, &ocrErr) {
			return models.OCRResult{}, err
		}
		return models.OCRResult{}, &Error{Kind: KindEngineUnavailable, Err: err}
	}

	if strings.TrimSpace(res.Text) == "" {
		return models.OCRResult{}, &Error{Kind: KindEmptyResult, Err: errors.New("engine returned no text")}
	}
	return res, nil
}

// Close releases the engine. Safe to call without a prior Init and
// safe to call twice.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if !a.initialized {
		return nil
	}
	return a.engine.Close()
}
