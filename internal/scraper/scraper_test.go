package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingTransport struct {
	calls     int32
	responses map[string]string // URL path -> body
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&t.calls, 1)

	body, ok := t.responses[req.URL.Path]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("not found")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

const samplePage = `<html><head><title>Evony Layering</title></head><body>
<article>
<h1>Evony Layering</h1>
<p>Layering protects your top tier troops from direct contact. This article explains the mechanics in detail so that beginners can follow along with concrete march setups and numbers.</p>
<p>A second paragraph with additional tactical depth and plenty of words describing how wall generals, embassy capacity and troop tiers interact during sieges.</p>
<ul>
<li>Always send one thousand of every lower tier as a shield layer.</li>
<li>Ok.</li>
<li>Keep your siege machines behind a thick ground buffer to maximize damage output.</li>
</ul>
</article></body></html>`

func newTestScraper(transport *countingTransport) *Scraper {
	return New(Config{
		AllowedHosts: []string{"evonyguidewiki.com"},
		MinInterval:  time.Millisecond,
		HTTPClient:   &http.Client{Transport: transport},
	})
}

func TestRejectsNonAllowlistedHostBeforeNetwork(t *testing.T) {
	transport := &countingTransport{}
	s := newTestScraper(transport)

	_, err := s.Fetch(context.Background(), "https://evil.example.com/guide")
	if !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("error = %v, want ErrHostNotAllowed", err)
	}
	if atomic.LoadInt32(&transport.calls) != 0 {
		t.Errorf("transport saw %d calls, want 0", transport.calls)
	}
}

func TestFetchExtractsContent(t *testing.T) {
	transport := &countingTransport{responses: map[string]string{
		"/robots.txt": "User-agent: *\nAllow: /",
		"/layering":   samplePage,
	}}
	s := newTestScraper(transport)

	content, err := s.Fetch(context.Background(), "https://evonyguidewiki.com/layering")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !strings.Contains(content.Title, "Evony Layering") {
		t.Errorf("Title = %q", content.Title)
	}
	if !strings.Contains(content.Content, "Layering protects") {
		t.Errorf("Content = %q", content.Content)
	}
	if len(content.Tips) != 2 {
		t.Fatalf("Tips = %v, want the two long list items", content.Tips)
	}
	if !strings.Contains(content.Tips[0], "shield layer") {
		t.Errorf("Tips[0] = %q", content.Tips[0])
	}
}

func TestRobotsDisallowBlocksFetch(t *testing.T) {
	transport := &countingTransport{responses: map[string]string{
		"/robots.txt": "User-agent: *\nDisallow: /",
		"/layering":   samplePage,
	}}
	s := newTestScraper(transport)

	_, err := s.Fetch(context.Background(), "https://evonyguidewiki.com/layering")
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Fatalf("error = %v, want ErrRobotsDisallowed", err)
	}
}

func TestRobotsFetchFailureCountsAsAllowed(t *testing.T) {
	// No robots.txt entry: transport answers 404, which is advisory-allowed.
	transport := &countingTransport{responses: map[string]string{
		"/layering": samplePage,
	}}
	s := newTestScraper(transport)

	if _, err := s.Fetch(context.Background(), "https://evonyguidewiki.com/layering"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
}

func TestSecondFetchIsServedFromCache(t *testing.T) {
	transport := &countingTransport{responses: map[string]string{
		"/robots.txt": "User-agent: *\nAllow: /",
		"/layering":   samplePage,
	}}
	s := newTestScraper(transport)

	if _, err := s.Fetch(context.Background(), "https://evonyguidewiki.com/layering"); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := atomic.LoadInt32(&transport.calls)

	if _, err := s.Fetch(context.Background(), "https://evonyguidewiki.com/layering"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&transport.calls); got != callsAfterFirst {
		t.Errorf("second fetch hit the network: %d calls, want %d", got, callsAfterFirst)
	}
}
