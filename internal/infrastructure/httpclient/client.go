// Package httpclient is the instrumented JSON transport shared by the downstream
// service adapters. It records external_* metrics, opens a client span per call
// and injects W3C trace headers.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxBodyBytes     = 1 << 20
	tracerName       = "minishop.downstream"
	headerRequestID  = "X-Request-ID"
	DefaultTimeout   = 10 * time.Second
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeTransport = "transport_error"
)

// Response is a fully read downstream answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Decode unmarshals the body with json.Number preserved for exact money parsing.
func (r *Response) Decode(dst any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	return dec.Decode(dst)
}

// StatusError describes a non-2xx answer. Adapters wrap it in their domain sentinel.
type StatusError struct {
	Peer       string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Peer, e.Endpoint, e.StatusCode, e.Body)
}

// Client calls one peer service rooted at a base URL.
type Client struct {
	peer    string
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	log     observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// New returns a Client for peer. A nil httpClient gets DefaultTimeout.
func New(peer, baseURL string, httpClient *http.Client, tel observability.Observability) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if tel == nil {
		tel = observability.Nop()
	}
	return &Client{
		peer:         peer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         httpClient,
		tracer:       otel.Tracer(tracerName),
		log:          tel.Logger().With(observability.F("component", "http_client"), observability.F("peer", peer)),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Peer is the low-cardinality name used in metrics and spans.
func (c *Client) Peer() string { return c.peer }

// Do sends body (when non-nil) as JSON. endpoint is a route template such as
// "GET /product/{id}" used for labels; path is the concrete path. Only transport
// failures return an error; status handling is left to the caller.
func (c *Client) Do(ctx context.Context, method, endpoint, path string, body any) (_ *Response, err error) {
	ctx, span := c.tracer.Start(ctx, c.peer+" "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", c.peer),
			attribute.String("http.method", method),
			attribute.String("http.route", endpoint),
		),
	)
	start := time.Now()
	outcome := outcomeSuccess
	var resp *Response

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else if resp != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			if !resp.OK() {
				span.SetStatus(codes.Error, strconv.Itoa(resp.StatusCode))
			}
		}
		span.End()

		c.extCounter.Add(1,
			observability.L("peer", c.peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(lat,
			observability.L("peer", c.peer),
			observability.L("endpoint", endpoint),
		)

		logger := logctx.FromOr(ctx, c.log).With(observability.F("peer", c.peer))
		fields := []observability.Field{
			observability.F("endpoint", endpoint),
			observability.F("outcome", outcome),
			observability.F("latency_seconds", lat),
		}
		if resp != nil {
			fields = append(fields, observability.F("status_code", resp.StatusCode))
		}
		if err != nil {
			fields = append(fields, observability.Err(err))
			logger.Warn("downstream_call_failed", fields...)
			return
		}
		logger.Debug("downstream_call_done", fields...)
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			outcome = outcomeError
			return nil, fmt.Errorf("%s: encode request: %w", c.peer, marshalErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		outcome = outcomeError
		return nil, fmt.Errorf("%s: build request: %w", c.peer, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid, ok := logctx.RequestID(ctx); ok {
		req.Header.Set(headerRequestID, rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	httpResp, err := c.http.Do(req)
	if err != nil {
		outcome = outcomeTransport
		return nil, fmt.Errorf("%s: %s: %w", c.peer, endpoint, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		outcome = outcomeTransport
		return nil, fmt.Errorf("%s: %s: read body: %w", c.peer, endpoint, err)
	}

	resp = &Response{StatusCode: httpResp.StatusCode, Body: raw}
	if !resp.OK() {
		outcome = outcomeError
	}
	return resp, nil
}

// StatusErr builds the StatusError for resp, truncating the body for logs.
func (c *Client) StatusErr(endpoint string, resp *Response) *StatusError {
	body := string(resp.Body)
	if len(body) > 256 {
		body = body[:256]
	}
	return &StatusError{Peer: c.peer, Endpoint: endpoint, StatusCode: resp.StatusCode, Body: body}
}
