package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pixil98/go-gamesync/internal/dispatch"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 20
	DefaultRateBurst = 40

	maxResponseBytes = 32 << 20
	defaultUserAgent = "go-gamesync/1"
)

// Request describes one outbound call.
type Request struct {
	Method string
	Path   string
	// Body is JSON encoded unless it is already []byte or json.RawMessage.
	Body  any
	Token string

	// RawBody and ContentType bypass JSON encoding (multipart uploads).
	RawBody     io.Reader
	ContentType string
	Accept      string

	// Timeout overrides the client default when non-zero.
	Timeout time.Duration
}

// Client issues authenticated requests against the game backend. It holds no
// per-call state; every call builds and discards its own request.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	poster    dispatch.Poster
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
}

func NewClient(baseURL string, poster dispatch.Poster, opts ...ClientOpt) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url host is required")
	}
	if poster == nil {
		return nil, fmt.Errorf("poster is required")
	}

	c := &Client{
		baseURL:   parsed,
		http:      &http.Client{},
		poster:    poster,
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		userAgent: defaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Timeout returns the default per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// endpoint appends path to the base URL, keeping any prefix the base carries.
func (c *Client) endpoint(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("path must be relative to the base url")
	}

	u := *c.baseURL
	u.Path = joinPath(c.baseURL.Path, ref.Path)
	u.RawPath = joinPath(c.baseURL.EscapedPath(), ref.EscapedPath())
	u.RawQuery = ref.RawQuery
	u.Fragment = ""
	return &u, nil
}

func joinPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Do performs the request synchronously and classifies the outcome. It never
// returns an error; failures are described by the Result.
func (c *Client) Do(ctx context.Context, req Request) Result {
	if c.limiter != nil && !c.limiter.Allow() {
		slog.WarnContext(ctx, "request throttled", "method", req.Method, "path", req.Path)
		return Result{Kind: KindRateLimited, Detail: ClientRateLimitedMessage}
	}

	endpoint, err := c.endpoint(req.Path)
	if err != nil {
		return Result{Kind: KindTransport, Detail: fmt.Sprintf("Network error: invalid path %q: %v", req.Path, err)}
	}

	body, contentType, err := req.encode()
	if err != nil {
		return Result{Kind: KindTransport, Detail: fmt.Sprintf("Network error: encoding body: %v", err)}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, endpoint.String(), body)
	if err != nil {
		return Result{Kind: KindTransport, Detail: fmt.Sprintf("Network error: %v", err)}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", uuid.New().String())
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return networkFailure(err, timeout)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return networkFailure(err, timeout)
	}

	return classify(resp.StatusCode, data)
}

func classify(status int, body []byte) Result {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return Result{Success: true, StatusCode: status, Body: body}
	case status == http.StatusTooManyRequests:
		return Result{StatusCode: status, Body: body, Kind: KindRateLimited, Detail: RateLimitedMessage}
	default:
		return Result{StatusCode: status, Body: body, Kind: KindProtocol}
	}
}

func networkFailure(err error, timeout time.Duration) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Kind: KindTransport, Detail: fmt.Sprintf("Request timed out after %s", timeout)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Result{Kind: KindTransport, Detail: fmt.Sprintf("Request timed out after %s", timeout)}
	}
	return Result{Kind: KindTransport, Detail: fmt.Sprintf("Network error: %v", err)}
}

func (r Request) encode() (io.Reader, string, error) {
	if r.RawBody != nil {
		return r.RawBody, r.ContentType, nil
	}
	if r.Body == nil {
		return nil, "", nil
	}

	contentType := r.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	switch b := r.Body.(type) {
	case []byte:
		return bytes.NewReader(b), contentType, nil
	case json.RawMessage:
		return bytes.NewReader(b), contentType, nil
	case string:
		return strings.NewReader(b), contentType, nil
	}

	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), contentType, nil
}
