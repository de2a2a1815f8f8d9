package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every request. Requests are never retried.
const DefaultTimeout = 10 * time.Second

// Credentials is the persisted session the client reads the bearer token
// from and wipes on a 401.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Client is the single gateway to the REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *metrics

	unauthorized atomic.Pointer[func()]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.Named("apiclient")
		}
	}
}

// WithRegisterer exports request metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		creds:      creds,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized registers fn to run after a 401 has wiped the session, so
// whoever owns the signed-in state can drop it too. A later call replaces fn.
func (c *Client) OnUnauthorized(fn func()) {
	if fn == nil {
		c.unauthorized.Store(nil)
		return
	}
	c.unauthorized.Store(&fn)
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("failed to decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type request struct {
	query  url.Values
	header http.Header
}

// RequestOption adjusts one request.
type RequestOption func(*request)

// WithQuery adds query parameters.
func WithQuery(q url.Values) RequestOption {
	return func(r *request) {
		for k, vs := range q {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// WithParam adds a single query parameter.
func WithParam(key, value string) RequestOption {
	return func(r *request) { r.query.Set(key, value) }
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *request) { r.header.Set(key, value) }
}

// Send issues method against path (relative to the base URL). body may be
// nil, a *Multipart, or any JSON-encodable value. Every failure is an *APIError.
func (c *Client) Send(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	start := time.Now()
	resp, err := c.send(ctx, method, path, body, opts...)
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	c.metrics.observe(method, outcome, time.Since(start))
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
	} else {
		c.logger.Debug("request completed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.Status),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	r := request{query: url.Values{}, header: http.Header{}}
	for _, opt := range opts {
		opt(&r)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(ctx, err)
		}
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, &APIError{Kind: KindValidation, Message: "invalid request body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "invalid request", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			c.logger.Warn("failed to read session token", zap.Error(err))
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
	}

	apiErr := errorFromBody(resp.StatusCode, raw)
	if apiErr.Kind == KindUnauthorized {
		c.expire(ctx)
	}
	return nil, apiErr
}

func (c *Client) expire(ctx context.Context) {
	if c.creds != nil {
		// the session is dead either way; keep clearing even if the caller gave up
		if err := c.creds.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("failed to clear session after 401", zap.Error(err))
		}
	}
	if fn := c.unauthorized.Load(); fn != nil {
		(*fn)()
	}
}

func transportError(ctx context.Context, err error) *APIError {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return &APIError{Kind: KindCanceled, Err: err}
	}
	return &APIError{Kind: KindNetwork, Err: err}
}

// errorFromBody builds an APIError from a non-2xx reply, pulling the
// message from "message" or "error" and field messages from "errors".
func errorFromBody(status int, raw []byte) *APIError {
	apiErr := &APIError{Kind: kindForStatus(status), Status: status}

	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			apiErr.Message = text
		}
		return apiErr
	}

	apiErr.Message = payload.Message
	if apiErr.Message == "" && len(payload.Error) > 0 {
		var s string
		if json.Unmarshal(payload.Error, &s) == nil {
			apiErr.Message = s
		} else {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &nested) == nil {
				apiErr.Message = nested.Message
			}
		}
	}
	var first string
	apiErr.Fields, first = fieldErrors(payload.Errors)
	if apiErr.Message == "" {
		apiErr.Message = first
	}
	apiErr.Err = fmt.Errorf("request failed with status %d", status)
	return apiErr
}

// fieldErrors also returns the first message in server order.
func fieldErrors(raw json.RawMessage) (map[string]string, string) {
	if len(raw) == 0 {
		return nil, ""
	}
	var list []struct {
		Path    string `json:"path"`
		Param   string `json:"param"`
		Field   string `json:"field"`
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string]string, len(list))
		var first string
		for _, e := range list {
			name := firstNonEmpty(e.Path, e.Param, e.Field)
			msg := firstNonEmpty(e.Msg, e.Message)
			if first == "" {
				first = msg
			}
			if name != "" {
				out[name] = msg
			}
		}
		return out, first
	}
	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		return byField, ""
	}
	return nil, ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
