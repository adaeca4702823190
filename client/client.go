// Package client executes rate-limited, backoff-aware http requests
// against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/pacer/breaker"
	"github.com/adamwoolhether/pacer/limiter"
)

// Client wraps the std-lib *http.Client with an adaptive rate
// limiter and, optionally, a circuit breaker. Before every outbound
// request it consults the breaker and acquires a limiter token; after
// every response it feeds the outcome back so the send rate tracks
// what the upstream actually tolerates.
type Client struct {
	name     string
	tenantID string

	c       *http.Client
	logger  *slog.Logger
	limiter *limiter.Limiter
	breaker *breaker.Breaker
	metrics MetricsFunc
	tracer  trace.Tracer

	backoffCodes map[int]struct{}
	retryBudget  int
}

// Build constructs a Client for the named integration. A limiter is
// required, supplied either ready-made via [WithLimiter] or as tuning
// numbers via [WithRateConfig]. Everything else defaults sensibly: a
// fresh *http.Client, slog.Default, status 429 as the only backoff
// signal, a retry budget of 20, no breaker, no-op tracing.
func Build(name string, optFns ...Option) (*Client, error) {
	client := &Client{
		name:         name,
		c:            &http.Client{},
		logger:       slog.Default(),
		tracer:       noop.NewTracerProvider().Tracer(""),
		backoffCodes: map[int]struct{}{http.StatusTooManyRequests: {}},
		retryBudget:  defaultRetryBudget,
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	switch {
	case opts.limiter != nil:
		client.limiter = opts.limiter
	case opts.rateCfg != nil:
		l, err := limiter.New(*opts.rateCfg, limiter.WithLogFunc(func() *slog.Logger { return client.logger }))
		if err != nil {
			return nil, fmt.Errorf("configuring limiter: %w", err)
		}
		client.limiter = l
	default:
		return nil, ErrLimiterRequired
	}

	switch {
	case opts.breaker != nil:
		client.breaker = opts.breaker
	case opts.breakerCfg != nil:
		b, err := breaker.New(name, *opts.breakerCfg, breaker.WithLogFunc(func() *slog.Logger { return client.logger }))
		if err != nil {
			return nil, fmt.Errorf("configuring breaker: %w", err)
		}
		client.breaker = b
	}

	if opts.tenantID != "" {
		client.tenantID = opts.tenantID
	}

	if opts.metrics != nil {
		client.metrics = opts.metrics
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if len(opts.backoffCodes) > 0 {
		set := make(map[int]struct{}, len(opts.backoffCodes))
		for _, code := range opts.backoffCodes {
			set[code] = struct{}{}
		}
		client.backoffCodes = set
	}

	if opts.retryBudget != nil {
		client.retryBudget = *opts.retryBudget
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := newThrottleRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring fixed throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Limiter exposes the client's limiter, mainly so callers can read
// [limiter.Limiter.Snapshot] for their own retry-budget decisions.
func (c *Client) Limiter() *limiter.Limiter {
	return c.limiter
}

// Breaker exposes the client's breaker; nil if none was configured.
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}

// Do fires the request and writes the response to the given dest object,
// if any, pacing and adapting around backoff signals:
//
//   - If a breaker is configured and open, Do fails immediately with
//     an [*breaker.OpenError]; neither the limiter nor the transport
//     is touched.
//   - A limiter token is acquired before each attempt, blocking as
//     needed.
//   - A response whose status is a configured backoff code feeds
//     [limiter.Limiter.OnBackoff] (with the parsed Retry-After hint
//     for 429s) and the attempt is retried, up to the retry budget.
//   - Any other status feeds [limiter.Limiter.OnSuccess], then is
//     checked against expCode as usual.
//
// One structured [Event] is logged, and handed to the metrics
// callback if set, per attempt.
func (c *Client) Do(req *http.Request, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return err
		}
	}

	doFunc := func(resp *http.Response) error {
		if settings.responseBody != nil {
			d := json.NewDecoder(resp.Body)

			if settings.useJSONNum {
				d.UseNumber()
			}

			if err := d.Decode(settings.responseBody); err != nil {
				return fmt.Errorf("decoding body: %w", err)
			}
		}

		return nil
	}

	return c.exec(req, expCode, doFunc)
}

// exec runs the breaker/limiter/retry orchestration around the
// request and applies the injected function on a response with the
// expected status code.
func (c *Client) exec(req *http.Request, expCode int, fn execFn) error {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return fmt.Errorf("exec rejected: %w", err)
		}
	}

	ctx, span := c.tracer.Start(req.Context(), "pacer.client.exec",
		trace.WithAttributes(
			attribute.String("integration", c.name),
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.URL.Path),
		),
	)
	defer span.End()

	err := c.execAttempts(ctx, req, expCode, fn)

	if c.breaker != nil {
		c.breaker.Record(err == nil)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (c *Client) execAttempts(ctx context.Context, req *http.Request, expCode int, fn execFn) error {
	var retries int

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return fmt.Errorf("exec acquire: %w", err)
		}

		start := time.Now()

		resp, err := c.c.Do(c.attemptRequest(ctx, req))
		elapsed := time.Since(start)
		if err != nil {
			c.emit(req, attempt, elapsed, 0, false, err)
			return fmt.Errorf("exec http do: %w", err)
		}

		if _, backoff := c.backoffCodes[resp.StatusCode]; backoff {
			var hint time.Duration
			if resp.StatusCode == http.StatusTooManyRequests {
				hint = retryAfterHint(resp)
			}
			drainBody(resp, c.logger)

			c.limiter.OnBackoff(hint)
			c.emit(req, attempt, elapsed, resp.StatusCode, true, nil)

			retries++
			if retries > c.retryBudget {
				return fmt.Errorf("%w (%d) for %s", ErrRetryBudgetExceeded, c.retryBudget, req.URL)
			}

			continue
		}

		c.limiter.OnSuccess()

		err = c.finish(resp, expCode, fn)
		c.emit(req, attempt, elapsed, resp.StatusCode, false, err)

		return err
	}
}

// attemptRequest clones the original request for one attempt,
// rewinding the body where possible so a retried POST re-sends its
// payload.
func (c *Client) attemptRequest(ctx context.Context, req *http.Request) *http.Request {
	cpy := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err == nil {
			cpy.Body = body
		}
	}

	return cpy
}

// finish validates the expected status code and runs the injected
// function on the response.
func (c *Client) finish(resp *http.Response, expCode int, fn execFn) (err error) {
	discardBody := true
	defer func() {
		if discardBody {
			if _, cErr := io.Copy(io.Discard, resp.Body); cErr != nil {
				c.logger.Error("failed to discard unused body", "error", cErr)
			}
		}
		if cErr := resp.Body.Close(); cErr != nil {
			c.logger.Error("failed to close response body", "error", cErr)
		}
	}()

	if resp.StatusCode != expCode {
		b, rErr := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if rErr != nil {
			b = []byte("unable to read body")
		}

		return &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        ErrUnexpectedStatusCode,
		}
	}

	if fErr := fn(resp); fErr != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", fErr)
	}

	return nil
}

// emit logs one attempt's outcome and hands it to the metrics
// callback. A panic in the callback is recovered and logged so
// user-supplied metrics code can never abort an otherwise-successful
// call.
func (c *Client) emit(req *http.Request, attempt int, elapsed time.Duration, status int, backoff bool, err error) {
	evt := Event{
		CallID:      uuid.New().String(),
		Integration: c.name,
		TenantID:    c.tenantID,
		Method:      req.Method,
		Path:        req.URL.Path,
		Attempt:     attempt,
		Elapsed:     elapsed,
		StatusCode:  status,
		Backoff:     backoff,
		Rate:        c.limiter.Snapshot(),
	}
	if err != nil {
		evt.Err = err.Error()
	}

	args := []any{
		"call_id", evt.CallID,
		"integration", evt.Integration,
		"method", evt.Method,
		"path", evt.Path,
		"attempt", evt.Attempt,
		"elapsed", evt.Elapsed.String(),
		"status_code", evt.StatusCode,
		"rate", evt.Rate.Rate,
		"tokens", evt.Rate.Tokens,
	}
	if evt.TenantID != "" {
		args = append(args, "tenant_id", evt.TenantID)
	}
	if evt.Err != "" {
		args = append(args, "error", evt.Err)
	}

	switch {
	case err == nil && !backoff:
		c.logger.Info("api request", args...)
	default:
		c.logger.Warn("api request", args...)
	}

	if c.metrics == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("metrics callback panicked", "integration", c.name, "panic", r)
		}
	}()

	c.metrics(evt)
}

// retryAfterHint parses a Retry-After header as delay seconds, with
// an HTTP-date fallback. Zero means no usable hint.
func retryAfterHint(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}

	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}

	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}

func drainBody(resp *http.Response, logger *slog.Logger) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Error("failed to discard backoff body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		logger.Error("failed to close backoff body", "error", err)
	}
}

// Request instantiates an *http.Request with the provided information.
// It's just a convenience method that wraps the public Request func.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, opts...)
}

// URL creates a url.URL for use in Request.
// It's just a convenience method that wraps the public URL func.
func (c *Client) URL(scheme, host, path string, opts ...URLOption) *url.URL {
	return URL(scheme, host, path, opts...)
}

// Request instantiates an *http.Request with the provided information.
// Content-Type defaults to `application/json` if unspecified via WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return nil, err
		}
	}

	var payload bytes.Buffer
	if settings.body != nil {
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), &payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	var contentType string
	if settings.contentType == nil {
		contentType = "application/json"
	} else {
		contentType = *settings.contentType
	}

	req.Header.Set("Content-Type", contentType)
	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// URL creates a url.URL for use in Request.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	if settings.queryStrings != nil {
		queryParams := url.Values{}
		for k, v := range settings.queryStrings {
			queryParams.Add(k, v)
		}

		endpoint.RawQuery = queryParams.Encode()
	}

	return &endpoint
}
