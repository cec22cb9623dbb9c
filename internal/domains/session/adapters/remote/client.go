package remote

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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20

	breakerFailureThreshold = 5
	breakerDelay            = 30 * time.Second
)

// Client talks to the Agenda backend. It also owns the default Authorization
// header attached to every outbound request.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
	breaker circuitbreaker.CircuitBreaker[any]

	mu            sync.RWMutex
	authorization string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is used as is.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithCircuitBreaker replaces the default breaker guarding backend calls.
func WithCircuitBreaker(cb circuitbreaker.CircuitBreaker[any]) Option {
	return func(cl *Client) {
		if cb != nil {
			cl.breaker = cb
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient builds a client for baseURL, e.g. http://localhost:8000/api/.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	c.breaker = c.newBreaker()
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// newBreaker opens after consecutive transport failures or 5xx answers and
// lets a trial request through after breakerDelay. 4xx answers count as
// successes.
func (c *Client) newBreaker() circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.Builder[any]().
		WithFailureThreshold(breakerFailureThreshold).
		WithDelay(breakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			c.logger.Warn("agenda api circuit breaker state changed",
				slog.String("from", e.OldState.String()),
				slog.String("to", e.NewState.String()))
		}).
		Build()
}

// SetAuthorization sets the header value sent with every request.
func (c *Client) SetAuthorization(value string) {
	c.mu.Lock()
	c.authorization = value
	c.mu.Unlock()
}

func (c *Client) ClearAuthorization() {
	c.mu.Lock()
	c.authorization = ""
	c.mu.Unlock()
}

// Authorization returns the current default header value.
func (c *Client) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization
}

type tokenResponse struct {
	Access       string `json:"access"`
	Refresh      string `json:"refresh"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Exchange posts the credentials to user/token/.
func (c *Client) Exchange(ctx context.Context, creds ports.Credentials) (ports.TokenPair, error) {
	resp, err := c.do(ctx, http.MethodPost, "user/token/", creds)
	if err != nil {
		return ports.TokenPair{}, fmt.Errorf("%w: %w", ports.ErrExchangeUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		drain(resp.Body)
		return ports.TokenPair{}, fmt.Errorf("%w: status %d", ports.ErrCredentialsRejected, resp.StatusCode)
	default:
		drain(resp.Body)
		return ports.TokenPair{}, fmt.Errorf("%w: status %d", ports.ErrExchangeUnavailable, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return ports.TokenPair{}, fmt.Errorf("%w: decode token response: %v", ports.ErrMalformedToken, err)
	}
	pair := ports.TokenPair{Access: body.Access, Refresh: body.Refresh}
	if pair.Access == "" {
		pair.Access = body.AccessToken
	}
	if pair.Refresh == "" {
		pair.Refresh = body.RefreshToken
	}
	if strings.TrimSpace(pair.Access) == "" {
		return ports.TokenPair{}, fmt.Errorf("%w: response carries no access token", ports.ErrMalformedToken)
	}
	return pair, nil
}

type profileResponse struct {
	ID      any    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Manager bool   `json:"manager"`
	Photo   string `json:"photo"`
}

// UpdateProfile sends PUT user/{id}/. A 400 answer becomes a *ports.ValidationError.
func (c *Client) UpdateProfile(ctx context.Context, userID string, changes ports.ProfileChanges) (domain.UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserProfile{}, domain.ErrEmptyUserID
	}
	resp, err := c.do(ctx, http.MethodPut, "user/"+url.PathEscape(userID)+"/", changes)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return domain.UserProfile{}, decodeValidation(resp.Body)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return domain.UserProfile{}, fmt.Errorf("update profile: unexpected status %d", resp.StatusCode)
	}

	var body profileResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return domain.UserProfile{}, fmt.Errorf("decode profile response: %w", err)
	}
	return domain.UserProfile{
		ID:      formatID(body.ID),
		Name:    body.Name,
		Email:   body.Email,
		Manager: body.Manager,
		Photo:   body.Photo,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := c.Authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if !c.breaker.TryAcquirePermit() {
		return nil, fmt.Errorf("agenda api unavailable: %w", circuitbreaker.ErrOpen)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordTransportError(ctx, err)
		c.logger.LogAttrs(ctx, slog.LevelWarn, "agenda api request failed",
			slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordError(fmt.Errorf("status %d", resp.StatusCode))
	} else {
		c.breaker.RecordSuccess()
	}
	return resp, nil
}

// recordTransportError counts err against the breaker unless the caller gave
// up on the request. A cancelled half-open trial still has to hand its permit
// back, and the backend has not proven healthy, so it reopens the breaker.
func (c *Client) recordTransportError(ctx context.Context, err error) {
	cancelled := ctx.Err() != nil || errors.Is(err, context.Canceled)
	if cancelled && !c.breaker.IsHalfOpen() {
		return
	}
	c.breaker.RecordError(err)
}

// decodeValidation accepts {"field": ["msg", ...]} and tolerates plain string
// values. Anything else is reported under "detail".
func decodeValidation(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read validation response: %w", err)
	}
	fields := map[string][]string{}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fields["detail"] = []string{strings.TrimSpace(string(raw))}
		return &ports.ValidationError{Fields: fields}
	}
	for key, value := range decoded {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[key] = []string{single}
			continue
		}
		fields[key] = []string{string(value)}
	}
	return &ports.ValidationError{Fields: fields}
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxBodyBytes))
}

var (
	_ ports.CredentialExchanger = (*Client)(nil)
	_ ports.ProfileUpdater      = (*Client)(nil)
	_ ports.HeaderSink          = (*Client)(nil)
)
