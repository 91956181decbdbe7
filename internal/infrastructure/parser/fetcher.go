package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"SentimentVision/internal/config"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// Page is a fetched document.
type Page struct {
	URL  string
	Body []byte
}

// PoliteFetcher performs GET requests with a per-host delay, retries and a fixed User-Agent.
type PoliteFetcher struct {
	client     *http.Client
	userAgent  string
	delay      time.Duration
	retries    int
	retryDelay time.Duration
	maxBytes   int64
	logger     *slog.Logger

	mu   sync.Mutex
	next map[string]time.Time
}

// NewPoliteFetcher builds a fetcher from configuration. A nil client gets one with the request timeout.
func NewPoliteFetcher(cfg config.FetchingConfig, maxBytes int, client *http.Client, logger *slog.Logger) *PoliteFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PoliteFetcher{
		client:     client,
		userAgent:  cfg.UserAgent,
		delay:      cfg.PerDomainDelay,
		retries:    cfg.RetryAttempts,
		retryDelay: cfg.RetryDelay,
		maxBytes:   int64(maxBytes),
		logger:     logger,
		next:       make(map[string]time.Time),
	}
}

// Get downloads rawURL, retrying failed attempts after the retry delay.
func (f *PoliteFetcher) Get(ctx context.Context, rawURL string) (Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.logger.Debug("retrying request", "url", rawURL, "attempt", attempt, "error", lastErr)
			if err := sleep(ctx, f.retryDelay); err != nil {
				return Page{}, err
			}
		}
		if err := f.waitTurn(ctx, parsed.Host); err != nil {
			return Page{}, err
		}
		page, err := f.do(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
	}
	return Page{}, lastErr
}

func (f *PoliteFetcher) do(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return Page{}, &StatusError{URL: rawURL, Status: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return Page{URL: resp.Request.URL.String(), Body: data}, nil
}

// waitTurn reserves the next request slot for host and sleeps until it arrives.
func (f *PoliteFetcher) waitTurn(ctx context.Context, host string) error {
	if f.delay <= 0 {
		return nil
	}
	f.mu.Lock()
	now := time.Now()
	slot := f.next[host]
	if slot.Before(now) {
		slot = now
	}
	f.next[host] = slot.Add(f.delay)
	f.mu.Unlock()

	return sleep(ctx, time.Until(slot))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
