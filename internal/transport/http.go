package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is used when a Request does not specify one
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is read
const maxBodySize = 8 << 20

// Request describes a single HTTP exchange
type Request struct {
	Method  string
	URL     string            // Absolute URL; may already carry a query string
	Query   map[string]string // Merged into the URL's query
	Headers map[string]string
	Form    map[string]string // Sent url-encoded when non-nil
	Timeout time.Duration
}

// Response is the raw outcome of a completed exchange
type Response struct {
	StatusCode int
	Body       []byte
}

// Doer performs HTTP requests.
// Implementations return an error only when no response was obtained.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPDoer implements Doer on top of net/http
type HTTPDoer struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewHTTPDoer creates a Doer backed by a fresh http.Client.
// The client itself has no timeout; each Request carries its own.
func NewHTTPDoer() *HTTPDoer {
	return &HTTPDoer{HTTPClient: &http.Client{}}
}

// Do performs the request and reads the full response body
func (d *HTTPDoer) Do(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := d.build(ctx, req)
	if err != nil {
		return nil, err
	}

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// build converts a Request into an *http.Request bound to ctx
func (d *HTTPDoer) build(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := BuildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Form != nil {
		form := url.Values{}
		for k, v := range req.Form {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}

	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	httpReq.Header.Set("Accept", "application/json, text/javascript, */*")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// BuildURL merges query parameters into rawURL, keeping any query it already has
func BuildURL(rawURL string, query map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if len(query) == 0 {
		return u.String(), nil
	}

	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
