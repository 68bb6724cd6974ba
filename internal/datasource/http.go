package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPDataSource talks GraphQL-over-HTTP (JSON POST) to one subgraph.
type HTTPDataSource struct {
	url    string
	client *http.Client
	opt    httpOptions
}

type httpOptions struct {
	Headers        http.Header
	Timeout        time.Duration
	ForwardHeaders []string
	MaxBodyBytes   int64
	client         *http.Client
}

type HTTPOption func(*httpOptions)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(o *httpOptions) { o.client = c }
}

// WithHeader sets a static header on every outgoing request.
func WithHeader(name, value string) HTTPOption {
	return func(o *httpOptions) { o.Headers.Set(name, value) }
}

// WithTimeout bounds each subgraph call. 0 means no per-call deadline beyond
// the caller's context.
func WithTimeout(d time.Duration) HTTPOption {
	return func(o *httpOptions) { o.Timeout = d }
}

// WithForwardHeaders lists client request headers to propagate downstream.
func WithForwardHeaders(names ...string) HTTPOption {
	return func(o *httpOptions) { o.ForwardHeaders = append(o.ForwardHeaders, names...) }
}

// WithMaxBodyBytes limits the size of subgraph response bodies. 0 means
// unlimited.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(o *httpOptions) { o.MaxBodyBytes = n }
}

// NewHTTP creates a data source posting to url. The default client carries
// otelhttp instrumentation so subgraph calls show up as client spans.
func NewHTTP(url string, opts ...HTTPOption) *HTTPDataSource {
	o := httpOptions{Headers: http.Header{}, Timeout: 30 * time.Second}
	for _, f := range opts {
		f(&o)
	}
	client := o.client
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPDataSource{url: url, client: client, opt: o}
}

type httpRequestBody struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Process implements SubgraphDataSource.
func (s *HTTPDataSource) Process(ctx context.Context, opts *ProcessOptions) (*Response, error) {
	if s.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opt.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(httpRequestBody{
		Query:         opts.Request.Query,
		OperationName: opts.Request.OperationName,
		Variables:     opts.Request.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("datasource: encode request: %w", err)
	}

	url := s.url
	method := http.MethodPost
	if h := opts.Request.HTTP; h != nil {
		if h.URL != "" {
			url = h.URL
		}
		if h.Method != "" {
			method = h.Method
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("datasource: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, values := range s.opt.Headers {
		req.Header[name] = append([]string(nil), values...)
	}
	for _, name := range s.opt.ForwardHeaders {
		for _, v := range opts.IncomingHeaders.Values(name) {
			req.Header.Add(name, v)
		}
	}
	if h := opts.Request.HTTP; h != nil {
		for name, values := range h.Headers {
			req.Header[name] = append([]string(nil), values...)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datasource: %w", err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if s.opt.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, s.opt.MaxBodyBytes)
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("datasource: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("datasource: unexpected status %d from %s", resp.StatusCode, url)
	}

	var out Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("datasource: decode response: %w", err)
	}
	return &out, nil
}
