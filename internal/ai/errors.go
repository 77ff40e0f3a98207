package ai

import (
	"errors"
	"fmt"
)

// ErrEmptyReply is returned by the parser when the provider reply
// contains nothing usable. An empty AI reply must surface as an error,
// never as a blank result.
var ErrEmptyReply = errors.New("ai returned an empty reply")

type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindAuthFailure
	KindQuotaExceeded
	KindEmpty
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthFailure:
		return "auth failure"
	case KindQuotaExceeded:
		return "quota exceeded"
	case KindEmpty:
		return "empty response"
	default:
		return "transient"
	}
}

// ProviderError describes a failed attempt against a single provider.
// The orchestrator uses it to drive the fallback decision; the kind is
// mapped to a user-facing remediation hint (cooldown, config, retry).
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }
