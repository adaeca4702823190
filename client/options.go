package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/pacer/breaker"
	"github.com/adamwoolhether/pacer/limiter"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

type options struct {
	client    *http.Client
	rt        http.RoundTripper
	timeout   *time.Duration
	userAgent string
	throttle  *throttleConfig
	logger    *slog.Logger

	limiter    *limiter.Limiter
	rateCfg    *limiter.Config
	breaker    *breaker.Breaker
	breakerCfg *breaker.Config

	tenantID     string
	metrics      MetricsFunc
	tracer       trace.Tracer
	backoffCodes []int
	retryBudget  *int
}

// WithClient replaces the default [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithLimiter injects a ready-made adaptive limiter; useful when the
// caller shares one limiter across clients for the same upstream or
// wants a custom clock.
func WithLimiter(l *limiter.Limiter) Option {
	return func(c *options) error {
		if l == nil {
			return errors.New("limiter must not be nil")
		}
		c.limiter = l
		return nil
	}
}

// WithRateConfig builds the client's adaptive limiter from the given
// tuning numbers.
func WithRateConfig(cfg limiter.Config) Option {
	return func(c *options) error {
		c.rateCfg = &cfg
		return nil
	}
}

// WithBreaker injects a ready-made circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *options) error {
		if b == nil {
			return errors.New("breaker must not be nil")
		}
		c.breaker = b
		return nil
	}
}

// WithBreakerConfig builds a circuit breaker for the client from the
// given thresholds. Without this (or [WithBreaker]) the client runs
// unguarded.
func WithBreakerConfig(cfg breaker.Config) Option {
	return func(c *options) error {
		c.breakerCfg = &cfg
		return nil
	}
}

// WithTenantID attaches a tenant identifier to every log record and
// metrics [Event], for callers multiplexing API usage across tenants.
func WithTenantID(id string) Option {
	return func(c *options) error {
		c.tenantID = id
		return nil
	}
}

// WithMetrics registers a callback receiving one [Event] per call attempt.
func WithMetrics(fn MetricsFunc) Option {
	return func(c *options) error {
		if fn == nil {
			return errors.New("metrics func must not be nil")
		}
		c.metrics = fn
		return nil
	}
}

// WithTracer enables otel spans around each [Client.Do] call.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithBackoffStatusCodes replaces the set of HTTP status codes
// treated as throttling signals. Default: 429 only.
func WithBackoffStatusCodes(statusCodes ...int) Option {
	return func(c *options) error {
		if len(statusCodes) == 0 {
			return errors.New("at least one backoff status code is required")
		}
		c.backoffCodes = statusCodes
		return nil
	}
}

// WithRetryBudget caps how many backoff responses a single [Client.Do]
// call absorbs before failing with [ErrRetryBudgetExceeded]. Default 20.
func WithRetryBudget(n int) Option {
	return func(c *options) error {
		if n < 0 {
			return errors.New("retry budget must not be negative")
		}
		c.retryBudget = &n
		return nil
	}
}

// WithFixedThrottle wraps the transport in a static token-bucket rate
// limit, a hard ceiling under the adaptive limiter for upstreams with
// a known absolute cap.
func WithFixedThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
		}
		c.throttle = &throttleConfig{RPS: rps, Burst: burst}
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	responseBody any
	useJSONNum   bool
}

// WithDestination decodes the HTTP response body into bodyTemplate.
// bodyTemplate must be a pointer.
func WithDestination[T any](bodyTemplate *T) DoOption {
	return func(opts *doOpts) error {
		opts.responseBody = bodyTemplate

		return nil
	}
}

// WithJSONNumb tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumb() DoOption {
	return func(opts *doOpts) error {
		opts.useJSONNum = true

		return nil
	}
}

// RequestOption is a functional option for [Request].
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	body        any
	contentType *string
	cookies     []*http.Cookie
	headers     map[string][]string
}

// WithPayload sets the JSON-encoded request body.
func WithPayload(body any) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = body

		return nil
	}
}

// WithContentType overrides the default "application/json" Content-Type header.
func WithContentType(contentType string) RequestOption {
	return func(opts *requestOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}

		opts.contentType = &contentType

		return nil
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers map[string][]string) RequestOption {
	return func(opts *requestOpts) error {
		opts.headers = headers

		return nil
	}
}

// WithCookies attaches the given cookies to the outgoing request.
func WithCookies(cookies ...*http.Cookie) RequestOption {
	return func(opts *requestOpts) error {
		opts.cookies = cookies

		return nil
	}
}

// URLOption is a functional option for [URL].
type URLOption func(options *urlOpts)

type urlOpts struct {
	queryStrings map[string]string
	port         *int
}

// WithQueryStrings appends query parameters to the URL.
func WithQueryStrings(queryKV map[string]string) URLOption {
	return func(opts *urlOpts) {
		opts.queryStrings = queryKV
	}
}

// WithPort sets the port number on the URL's host.
func WithPort(port int) URLOption {
	return func(opts *urlOpts) {
		opts.port = &port
	}
}
