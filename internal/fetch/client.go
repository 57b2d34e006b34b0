// Package fetch is the HTTP side of the client: page fragments, overlay
// content, the sitemap document and tracking beacons all go through one
// Client bound to the content server.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// Config configures the client.
type Config struct {
	BaseURL   string        // Content server root, e.g. http://localhost:3000.
	Timeout   time.Duration // Upper bound per request. Default: 5s.
	MaxBytes  int64         // Max response body size. Default: 4MB.
	UserAgent string
	// Raw disables fragment sanitizing.
	Raw bool
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 4 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "edetail/1.0"
	}
}

// Client performs requests against the content server.
type Client struct {
	client *http.Client
	config Config
	base   *url.URL
	policy *bluemonday.Policy
}

// New creates a Client. The base URL must be absolute.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q is not absolute", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id", "class").Globally()

	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		base:   base,
		policy: policy,
	}, nil
}

// Resolve returns the absolute URL for a reference relative to the base.
func (c *Client) Resolve(ref string) string {
	u, err := url.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return c.base.String() + ref
	}
	return c.base.ResolveReference(u).String()
}

func (c *Client) get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Resolve(ref), nil)
	if err != nil {
		return nil, &model.TransportError{Ref: ref, Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.TransportError{Ref: ref, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBytes))
	if err != nil {
		return nil, &model.TransportError{Ref: ref, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Fetch returns the fragment behind ref, sanitized unless Raw is set.
func (c *Client) Fetch(ctx context.Context, ref string) (string, error) {
	body, err := c.get(ctx, ref)
	if err != nil {
		return "", err
	}
	if c.config.Raw {
		return string(body), nil
	}
	return c.policy.Sanitize(string(body)), nil
}

// Document fetches and decodes the sitemap document.
func (c *Client) Document(ctx context.Context, path string) (*sitemap.Document, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := sitemap.Parse(body)
	if err != nil {
		return nil, &model.ConfigurationError{Reason: "decode " + path, Err: err}
	}
	return doc, nil
}

// PostJSON sends in as JSON and decodes the response into out, if non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Resolve(path), bytes.NewReader(payload))
	if err != nil {
		return &model.TransportError{Ref: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return &model.TransportError{Ref: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBytes))
	if err != nil {
		return &model.TransportError{Ref: path, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.TransportError{Ref: path, Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
