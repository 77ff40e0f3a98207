package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tactician/internal/models"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGroqClient(GroqConfig{APIKey: "test-key", BaseURL: srv.URL})
}

func TestGroqComplete(t *testing.T) {
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"### ENEMY_INTEL\nintel"}}]}`)
	})

	text, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "### ENEMY_INTEL\nintel" {
		t.Errorf("Complete() = %q", text)
	}
}

func TestGroqCompleteErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuthFailure},
		{http.StatusForbidden, KindAuthFailure},
		{http.StatusTooManyRequests, KindQuotaExceeded},
		{http.StatusInternalServerError, KindTransient},
	}

	for _, tt := range tests {
		c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		})

		_, err := c.Complete(context.Background(), "prompt")
		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("status %d: error = %v, want *ProviderError", tt.status, err)
		}
		if provErr.Kind != tt.want {
			t.Errorf("status %d: kind = %v, want %v", tt.status, provErr.Kind, tt.want)
		}
		if provErr.Provider != "groq" {
			t.Errorf("provider = %q", provErr.Provider)
		}
	}
}

func TestGroqCompleteEmptyChoices(t *testing.T) {
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})

	_, err := c.Complete(context.Background(), "prompt")
	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Kind != KindEmpty {
		t.Fatalf("error = %v, want empty-kind provider error", err)
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

func TestGroqStreamChatDeliversFragmentsInOrder(t *testing.T) {
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("p"))
		io.WriteString(w, sseChunk("o"))
		io.WriteString(w, sseChunk("ng"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	history := []models.ChatMessage{{Role: models.RoleUser, Content: "earlier"}}
	stream, err := c.StreamChat(context.Background(), history, "ping", "ctx")
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		got = append(got, frag)
	}

	want := []string{"p", "o", "ng"}
	if len(got) != len(want) {
		t.Fatalf("fragments = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fragments = %v, want %v", got, want)
		}
	}
}

func TestGroqStreamChatCloseStopsConsumption(t *testing.T) {
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("first"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Block until the client cancels the request.
		<-r.Context().Done()
	})

	stream, err := c.StreamChat(context.Background(), nil, "hello", "")
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	frag, err := stream.Recv()
	if err != nil || frag != "first" {
		t.Fatalf("Recv() = %q, %v", frag, err)
	}

	stream.Close()
	if _, err := stream.Recv(); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("Recv() after Close error = %v, want ErrStreamClosed", err)
	}
}

func TestGroqStreamChatOpenFailure(t *testing.T) {
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})

	_, err := c.StreamChat(context.Background(), nil, "hello", "")
	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Kind != KindQuotaExceeded {
		t.Fatalf("error = %v, want quota provider error", err)
	}
}
