// Package scraper fetches strategy pages from a fixed set of trusted
// sites. Non-allowlisted hosts are rejected before any network call; a
// robots.txt advisory check and a fixed minimum interval between
// fetches keep the crawler polite; successful results are cached.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"tactician/internal/models"
	"tactician/pkg/cache"
)

const (
	defaultMinInterval = 2 * time.Second
	defaultCacheTTL    = 24 * time.Hour
	defaultUserAgent   = "EvonyTacticianBot/1.0"

	maxContentBytes = 5000
	maxTips         = 15
	minTipLength    = 20
	maxTipLength    = 500
	maxBodyBytes    = 2 << 20
)

var (
	ErrHostNotAllowed   = errors.New("source host is not on the allowlist")
	ErrRobotsDisallowed = errors.New("fetch blocked by robots.txt")
)

type Config struct {
	AllowedHosts []string
	MinInterval  time.Duration
	CacheTTL     time.Duration
	UserAgent    string
	HTTPClient   *http.Client
}

type Scraper struct {
	allowed   []string
	limiter   *rate.Limiter
	cache     *cache.Cache
	ttl       time.Duration
	userAgent string
	client    *http.Client
}

func New(cfg Config) *Scraper {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{
		allowed:   cfg.AllowedHosts,
		limiter:   rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cache:     cache.New(cache.DefaultMaxSize),
		ttl:       cfg.CacheTTL,
		userAgent: cfg.UserAgent,
		client:    cfg.HTTPClient,
	}
}

// Fetch retrieves and extracts one strategy page.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*models.ScrapedContent, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", rawURL)
	}

	if !s.hostAllowed(parsed.Host) {
		return nil, ErrHostNotAllowed
	}

	cacheKey := "scrape:" + rawURL
	if cached, ok := s.cache.Get(cacheKey, s.ttl); ok {
		content := cached.(models.ScrapedContent)
		return &content, nil
	}

	if !s.robotsAllow(ctx, parsed) {
		return nil, ErrRobotsDisallowed
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	content, err := extractContent(body, parsed)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}

	s.cache.Set(cacheKey, *content)
	return content, nil
}

func (s *Scraper) hostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range s.allowed {
		if strings.Contains(host, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

// robotsAllow is advisory: any failure fetching or reading robots.txt
// counts as allowed. The check itself is the original's naive global
// disallow scan.
func (s *Scraper) robotsAllow(ctx context.Context, page *url.URL) bool {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", page.Scheme, page.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return true
	}
	return !strings.Contains(strings.ToLower(string(body)), "disallow: /")
}

var (
	listItemRe   = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

func extractContent(body io.Reader, pageURL *url.URL) (*models.ScrapedContent, error) {
	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Evony Strategy"
	}

	text := whitespaceRe.ReplaceAllString(strings.TrimSpace(article.TextContent), " ")
	if len(text) > maxContentBytes {
		text = text[:maxContentBytes]
	}

	var tips []string
	for _, m := range listItemRe.FindAllStringSubmatch(article.Content, -1) {
		tip := strings.TrimSpace(whitespaceRe.ReplaceAllString(tagRe.ReplaceAllString(m[1], " "), " "))
		if len(tip) > minTipLength && len(tip) < maxTipLength {
			tips = append(tips, tip)
		}
		if len(tips) == maxTips {
			break
		}
	}

	return &models.ScrapedContent{
		Title:   title,
		Content: text,
		Tips:    tips,
		URL:     pageURL.String(),
	}, nil
}
