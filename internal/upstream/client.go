// Package upstream is the HTTP client of the fraud analytics service.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/logging"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 16 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds every call. Defaults to 5s.
	Timeout time.Duration
	// RatePerSecond enables a token-bucket limiter when positive.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Response is a successful upstream answer. Body is passed on unchanged.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Client calls the analytics service. It keeps no per-request state and is
// safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("upstream: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("upstream: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream: unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		base:    base,
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.base.String() }

// TopFraudRings calls GET /api/top-fraud-rings.
func (c *Client) TopFraudRings(ctx context.Context) (Response, error) {
	return c.do(ctx, "top fraud rings", http.MethodGet, "/api/top-fraud-rings", nil)
}

// Search calls POST /api/search with the merchant id.
func (c *Client) Search(ctx context.Context, merchantID string) (Response, error) {
	payload, err := json.Marshal(map[string]string{"merchant_id": merchantID})
	if err != nil {
		return Response{}, fmt.Errorf("encode search request: %w", err)
	}
	return c.do(ctx, "search", http.MethodPost, "/api/search", payload)
}

// MerchantDetails calls GET /api/merchant/{id}.
func (c *Client) MerchantDetails(ctx context.Context, merchantID string) (Response, error) {
	return c.do(ctx, "merchant details", http.MethodGet, "/api/merchant/"+url.PathEscape(merchantID), nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) (Response, error) {
	target := c.base.String() + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, &UnavailableError{Op: op, URL: target, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Response{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream call failed", "op", op, "url", target, "error", err)
		return Response{}, &UnavailableError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, &UnavailableError{Op: op, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("upstream call",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &ApplicationError{Op: op, Status: resp.StatusCode, Body: raw}
	}
	if !json.Valid(raw) {
		return Response{}, &UnavailableError{Op: op, URL: target, Err: ErrInvalidResponse}
	}
	return Response{Status: resp.StatusCode, Body: json.RawMessage(raw)}, nil
}

// DecodeTopRings decodes a top-rings body.
func DecodeTopRings(body []byte) (domain.TopRingsResponse, error) {
	var out domain.TopRingsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode top rings: %w", err)
	}
	return out, nil
}

// DecodeMerchantDetails decodes a merchant-details or search body.
func DecodeMerchantDetails(body []byte) (domain.MerchantDetails, error) {
	var out domain.MerchantDetails
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode merchant details: %w", err)
	}
	return out, nil
}
