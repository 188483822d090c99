// Package gemini is a minimal client for the Generative Language API,
// covering the single text-in/text-out call the address resolver needs.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/votelens/netalink/record"
)

const (
	// DefaultModel matches the free-tier flash model the enrichment was
	// tuned against.
	DefaultModel = "gemini-3-flash-preview"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxResponseSize = 1 << 20 // 1MB
)

// Client calls the generateContent endpoint. It implements
// resolve.CompletionProvider.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	baseURL    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	httpClient *http.Client
	logger     *slog.Logger
	model      string
	baseURL    string
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the API base URL, which tests point at a local
// fixture server.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// New creates a client. The key comes from the GEMINI_API_KEY env var in
// the CLI; it is never logged.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key required")
	}
	cfg := &config{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		model:      DefaultModel,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		httpClient: cfg.httpClient,
		logger:     cfg.logger,
		apiKey:     apiKey,
		model:      cfg.model,
		baseURL:    cfg.baseURL,
	}, nil
}

// Request/response shapes for generateContent, limited to the fields we
// send and read.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Complete sends prompt to the model and returns the concatenated text of
// the first candidate. The request asks for a JSON response body at
// temperature zero; deterministic output keeps the resolver's parse
// fallback rare. It implements resolve.CompletionProvider.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	text, err := retry.DoWithData(
		func() (string, error) { return c.generate(ctx, u, body) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.MaxJitter(time.Second),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, record.ErrRateLimited)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.DebugContext(ctx, "retrying completion", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", c.model, err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, u string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post generateContent: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: HTTP 429", record.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("generateContent: HTTP %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", record.ErrEmptyResponse
	}

	var out string
	for _, p := range gr.Candidates[0].Content.Parts {
		out += p.Text
	}
	if out == "" {
		return "", record.ErrEmptyResponse
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
