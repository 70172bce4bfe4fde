package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/token/refresh"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderRequestID = "X-Request-ID"

	defaultUserAgent = "beetrack-client/1.0"
	defaultTimeout   = 30 * time.Second
)

// Refresher is the single-flight refresh entry point the 401 interceptor
// uses. Requests rejected during one flight are replayed in the order they
// joined it.
type Refresher interface {
	Join(ctx context.Context) (*refresh.Turn, error)
}

// Client is the HTTP transport for the BeeTrack API. It owns the one mutable
// bearer token applied to every outgoing request.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	logger     zerolog.Logger

	mu          sync.RWMutex
	bearer      string
	coordinator Refresher
}

type Option func(*Client)

// WithHTTPClient uses a copy of hc. A cookie jar is added when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.httpClient = &clone
		}
	}
}

// WithTimeout bounds every request. It wins over the timeout of a client
// given with WithHTTPClient, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithCoordinator(r Refresher) Option {
	return func(c *Client) {
		c.coordinator = r
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("[transport.New] parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[transport.New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		tracer:     otel.Tracer("github.com/jrsteele09/beetrack-client/transport"),
		propagator: otel.GetTextMapPropagator(),
		logger:     log.Logger.With().Str("component", "transport").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}

	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("[transport.New] cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// SetCoordinator attaches the refresh coordinator once it exists. The
// coordinator needs the client to refresh, so it is wired after New.
func (c *Client) SetCoordinator(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coordinator = r
}

// SetBearer replaces the token sent on every authorized request. An empty
// token removes the Authorization header.
func (c *Client) SetBearer(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = accessToken
}

func (c *Client) Bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

// SetRefreshCredential seeds the cookie jar with the backend's refresh
// cookie, e.g. after restoring a remembered login. An empty value removes it.
func (c *Client) SetRefreshCredential(refreshToken string) {
	cookie := &http.Cookie{Name: routes.RefreshCookieName, Value: refreshToken, Path: "/"}
	if refreshToken == "" {
		cookie.MaxAge = -1
	}
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{cookie})
}

// RefreshCredential returns the refresh cookie the jar would send, if any
func (c *Client) RefreshCredential() string {
	u := c.resolve(routes.UsersRefreshToken, nil)
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == routes.RefreshCookieName {
			return cookie.Value
		}
	}
	return ""
}

// RefreshToken mints a new access token from the refresh cookie. It is
// never intercepted: a 401 here is final.
func (c *Client) RefreshToken(ctx context.Context) (token.Pair, error) {
	var pair token.Pair
	err := c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        routes.UsersRefreshToken,
		SkipRefresh: true,
	}, &pair)
	if err != nil {
		return token.Pair{}, err
	}
	return pair, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Query: query}, out)
}

// PostForm sends form as application/x-www-form-urlencoded
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Form: form}, out)
}

// GetBlob downloads a binary response
func (c *Client) GetBlob(ctx context.Context, path string, query url.Values) (*Blob, error) {
	var blob Blob
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

// Do sends req and decodes the response into out: JSON by default, raw bytes
// when out is a *Blob, discarded when out is nil.
//
// An authorized request answered with 401 waits for the single in-flight
// refresh and is replayed once with the new token. Replays of requests that
// joined the same refresh run one after another in the order they joined. If
// the replay is also rejected, that second error is returned as is.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	err := c.dispatch(ctx, req, out)
	if err == nil || !req.refreshable() || !errors.Is(err, errors.ErrUnauthorized) {
		return err
	}

	c.mu.RLock()
	coordinator := c.coordinator
	c.mu.RUnlock()
	if coordinator == nil {
		return err
	}

	turn, refreshErr := coordinator.Join(ctx)
	if refreshErr != nil {
		return errors.Join(err, refreshErr)
	}
	defer turn.Done()
	if waitErr := turn.Wait(ctx); waitErr != nil {
		return errors.Join(err, waitErr)
	}

	c.logger.Debug().Str("method", req.Method).Str("path", req.Path).Msg("replaying request after refresh")
	return c.dispatch(ctx, req.replay(turn.Token), out)
}

func (c *Client) dispatch(ctx context.Context, req *Request, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.Bool("beetrack.retried", req.retried),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return err
	}
	requestID := httpReq.Header.Get(HeaderRequestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("[Client.Do] %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("[Client.Do] read %s %s: %w", req.Method, req.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:    resp.StatusCode,
			Detail:    parseDetail(body),
			Method:    req.Method,
			Path:      req.Path,
			RequestID: requestID,
		}
	}

	return decode(resp, body, out)
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("[Client.Do] encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path, req.Query).String(), body)
	if err != nil {
		return nil, fmt.Errorf("[Client.Do] build %s %s: %w", req.Method, req.Path, err)
	}

	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json, */*")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(HeaderRequestID, uuid.NewString())

	if !req.SkipAuth {
		accessToken := req.bearer
		if accessToken == "" {
			accessToken = c.Bearer()
		}
		if accessToken != "" {
			token.Bearer(accessToken, "", "").SetAuthHeader(httpReq)
		}
	}

	c.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

func (c *Client) resolve(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

func decode(resp *http.Response, body []byte, out any) error {
	switch target := out.(type) {
	case nil:
		return nil
	case *Blob:
		target.Data = body
		target.ContentType = resp.Header.Get("Content-Type")
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
			target.Filename = params["filename"]
		}
		return nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("[Client.Do] decode %s: %w", resp.Request.URL.Path, err)
	}
	return nil
}
