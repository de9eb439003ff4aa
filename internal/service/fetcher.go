package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/recipebox/internal/domain"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (compatible; RecipeBot/1.0)"
	pageAcceptHeader    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultPageTimeout  = 15 * time.Second
	defaultImageTimeout = 10 * time.Second
)

// PageFetcher retrieves the HTML of a source page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// FetcherConfig holds configuration for the page fetcher.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

// HTTPFetcher fetches pages over HTTP with a hard per-request deadline.
type HTTPFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewHTTPFetcher creates a page fetcher.
func NewHTTPFetcher(cfg *FetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	client := newHTTPClient(cfg.UserAgent, timeout)
	client.SetHeader("Accept", pageAcceptHeader)
	return &HTTPFetcher{client: client, maxBytes: cfg.MaxBytes}
}

func newHTTPClient(userAgent string, timeout time.Duration) *resty.Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return client
}

// FetchPage returns the body of url as text.
// Network and timeout failures yield a *domain.FetchError with StatusCode 0;
// non-2xx responses carry the status code.
func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	body, err := get(ctx, f.client, url, f.maxBytes)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func get(ctx context.Context, client *resty.Client, url string, maxBytes int64) ([]byte, error) {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &domain.FetchError{URL: url, StatusCode: resp.StatusCode()}
	}
	body := resp.Body()
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("response exceeds %d bytes", maxBytes)}
	}
	return body, nil
}
