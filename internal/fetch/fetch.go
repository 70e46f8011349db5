// Package fetch issues single upstream HTTP requests and classifies their
// outcome. It is stateless: deciding what to do about a failed proxy is the
// caller's job, which keeps retry policy out of the transport layer.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/stayradar/stayradar/internal/proxy"
)

// DefaultTimeout bounds every upstream request.
const DefaultTimeout = 30 * time.Second

// Kind classifies a fetch outcome.
type Kind int

const (
	// KindSuccess means a 2xx response whose body was read completely.
	KindSuccess Kind = iota
	// KindRetryable means a network-layer failure (timeout, connection
	// reset, proxy error). Worth one retry over a different path.
	KindRetryable
	// KindFatal means the server answered with a non-2xx status. The
	// request shape itself is probably wrong; retrying is pointless.
	KindFatal
)

// Outcome is the tagged result of one request.
type Outcome struct {
	Kind       Kind
	Body       string
	StatusCode int
	Err        error
}

// Executor issues requests with per-request proxy selection.
type Executor struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewExecutor(timeout time.Duration, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		timeout: timeout,
		logger:  logger.With("component", "fetch"),
	}
}

// Do performs one GET against rawURL with the given query parameters and
// headers, optionally through a proxy endpoint.
func (e *Executor) Do(ctx context.Context, rawURL string, params url.Values, hdrs map[string]string, ep *proxy.Endpoint) Outcome {
	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Kind: KindFatal, Err: fmt.Errorf("build request: %w", err)}
	}
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}

	client, err := e.client(ep)
	if err != nil {
		// A proxy URL that does not parse is configuration, not network.
		return Outcome{Kind: KindFatal, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		e.logger.Warn("request failed", "url", rawURL, "proxy", proxyLabel(ep), "error", err)
		return Outcome{Kind: KindRetryable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Warn("reading response body failed", "url", rawURL, "error", err)
		return Outcome{Kind: KindRetryable, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{
			Kind:       KindFatal,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return Outcome{Kind: KindSuccess, Body: string(body), StatusCode: resp.StatusCode}
}

func (e *Executor) client(ep *proxy.Endpoint) (*http.Client, error) {
	transport := &http.Transport{}
	if ep != nil {
		proxyURL, err := url.Parse(ep.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url for %s: %w", ep.Host(), err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Timeout: e.timeout, Transport: transport}, nil
}

func proxyLabel(ep *proxy.Endpoint) string {
	if ep == nil {
		return "direct"
	}
	return ep.Host() + ":" + ep.Port()
}
