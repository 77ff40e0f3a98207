// Package ocr converts battle report screenshots into text. The
// recognition engine behind it is pluggable; engines are expensive to
// spin up, so the adapter guards a single initialization shared by all
// concurrent callers.
package ocr

import (
	"context"
	"fmt"

	"tactician/internal/models"
)

// Engine is one recognition backend. Init may be slow; Recognize must
// honor ctx cancellation; Close releases engine resources.
type Engine interface {
	Init(ctx context.Context) error
	Recognize(ctx context.Context, image []byte) (models.OCRResult, error)
	Close() error
}

type ErrorKind int

const (
	KindEngineUnavailable ErrorKind = iota
	KindTimeout
	KindEmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindEmptyResult:
		return "empty result"
	default:
		return "engine unavailable"
	}
}

// Error is a per-image recognition failure. The orchestrator converts
// it into a placeholder for that image; it never aborts the batch.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ocr %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ocr %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }
