package ai

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrStreamClosed is returned by Recv after the consumer has closed the
// stream.
var ErrStreamClosed = errors.New("stream closed by consumer")

type fragment struct {
	text string
	err  error
}

// Stream is a finite, forward-only sequence of text fragments. The
// consumer calls Recv until io.EOF; Close cancels the underlying
// request and releases the connection, so abandoning a reply mid-flight
// does not leak. A Stream is not restartable.
type Stream struct {
	ch     chan fragment
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

// NewStream returns a stream whose producer side is fed with Emit, End
// and Fail. cancel, if non-nil, is invoked when the consumer closes the
// stream early.
func NewStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		ch:     make(chan fragment),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Recv blocks for the next fragment. It returns io.EOF once the
// producer has finished, the producer's error if it failed, or
// ErrStreamClosed after Close.
func (s *Stream) Recv() (string, error) {
	select {
	case f, ok := <-s.ch:
		if !ok {
			return "", io.EOF
		}
		if f.err != nil {
			return "", f.err
		}
		return f.text, nil
	case <-s.done:
		return "", ErrStreamClosed
	}
}

// Close stops consumption and cancels the producer. Safe to call more
// than once and concurrently with Recv.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Emit delivers one fragment to the consumer. It reports false when the
// consumer has gone away, at which point the producer should stop.
func (s *Stream) Emit(text string) bool {
	select {
	case s.ch <- fragment{text: text}:
		return true
	case <-s.done:
		return false
	}
}

// End marks successful completion. The producer must not Emit afterward.
func (s *Stream) End() {
	close(s.ch)
}

// Fail delivers a terminal error and ends the stream.
func (s *Stream) Fail(err error) {
	select {
	case s.ch <- fragment{err: err}:
	case <-s.done:
	}
	close(s.ch)
}
