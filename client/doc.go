// Package client provides an HTTP client that paces outbound
// requests with an adaptive AIMD rate limiter, honors Retry-After
// driven backoff, and optionally fails fast behind a circuit breaker.
//
// # Building a Client
//
// Use [Build] to create a [Client] for a named integration with
// functional options:
//
//	c, err := client.Build("notion",
//		client.WithRateConfig(limiter.Config{InitialRate: 2.0, MaxRate: 3.5}),
//		client.WithBreakerConfig(breaker.Config{FailureThreshold: 5}),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// Construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.notion.com", "/v1/search")
//	req, err := client.Request(ctx, u, http.MethodPost, client.WithPayload(query))
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// Do blocks until the limiter permits the request. Throttling
// responses (429 by default; see [WithBackoffStatusCodes]) shrink the
// send rate and are retried within the retry budget; successful ones
// grow it. While the circuit is open, Do fails immediately with a
// [breaker.OpenError] without touching the network.
//
// # Observability
//
// Each attempt emits a structured log record and, when [WithMetrics]
// is set, an [Event] for the caller's monitoring stack. [WithTracer]
// adds an otel span per call.
package client
