package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.boostr.cl"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
	userAgent    = "chileapi/1.0 (+https://github.com/geocoder89/chileapi)"
)

// Observer records call latency per resource. *observability.Prom satisfies it.
type Observer interface {
	ObserveUpstream(resource, outcome string, d time.Duration)
}

type userAgentRoundTripper struct {
	wrapped   http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.userAgent)
	clone.Header.Set("Accept", "application/json")
	return rt.wrapped.RoundTrip(clone)
}

type Client struct {
	baseURL  string
	timeout  time.Duration
	http     *http.Client
	observer Observer
	breaker  *Breaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithBreaker fails calls fast while b is open.
func WithBreaker(b *Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &userAgentRoundTripper{
		wrapped:   otelhttp.NewTransport(base),
		userAgent: userAgent,
	}

	return c
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetJSON fetches path under the base URL, unwraps the {status, message,
// data} envelope and decodes data into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) (err error) {
	url := c.baseURL + path
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(resourceOf(path), outcomeOf(err), time.Since(start))
		}
	}()

	if c.breaker != nil {
		if !c.breaker.allow() {
			return &UpstreamError{URL: url, Message: "circuit open", Err: ErrCircuitOpen}
		}
		defer func() { c.breaker.after(err) }()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return &TimeoutError{URL: url, After: c.timeout}
		}
		return &UpstreamError{URL: url, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return &TimeoutError{URL: url, After: c.timeout}
		}
		return &UpstreamError{URL: url, StatusCode: resp.StatusCode, Message: "read body failed", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{URL: url, StatusCode: resp.StatusCode, Message: statusMessage(resp, body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return schemaErr(path, "invalid json: %v", err)
	}
	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = "status " + env.Status
		}
		return &UpstreamError{URL: url, StatusCode: resp.StatusCode, Message: msg}
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return schemaErr(path, "missing data")
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return schemaErr(path, "decode data: %v", err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func statusMessage(resp *http.Response, body []byte) string {
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		return env.Message
	}
	return http.StatusText(resp.StatusCode)
}

func outcomeOf(err error) string {
	var te *TimeoutError
	var ue *UpstreamError
	var se *SchemaError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &te):
		return "timeout"
	case errors.As(err, &ue):
		return "upstream_error"
	case errors.As(err, &se):
		return "schema_error"
	default:
		return "error"
	}
}

// resourceOf keeps label cardinality bounded: "/weather/SCEL.json" -> "weather".
func resourceOf(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(p, "/."); i >= 0 {
		p = p[:i]
	}
	if p == "economy" {
		return "indicators"
	}
	return p
}
