package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/application/failure"
	apporder "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/order"
	domainOrder "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// OrderPlacer runs one order placement saga.
type OrderPlacer = application.UseCase[apporder.PlaceOrderInput, *apporder.PlaceOrderResult]

type Handler struct {
	placer   OrderPlacer
	limiter  *rate.Limiter
	validate *validator.Validate
	log      observability.Logger
	tel      observability.Observability
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	maxBodyBytes         = 1 << 20
)

type Option func(*Handler)

// WithRateLimit caps POST /orders. A nil limiter disables the check.
func WithRateLimit(l *rate.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

func NewHandler(placer OrderPlacer, logger observability.Logger, tel observability.Observability, opts ...Option) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = tel.Logger()
	}
	h := &Handler{
		placer:   placer,
		validate: newValidator(),
		log:      baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → ObservabilityMiddleware (request logger) → Access log → HTTP metrics → Handler
	h.muxHandle(mux, http.MethodPost, "/orders", h.withRateLimit(h.handlePlaceOrder))
	h.muxHandle(mux, http.MethodGet, "/orders/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}

		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), method+" "+route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				func(r *http.Request) string {
					return r.Header.Get(headerTenantID)
				},
				h.tel,
			)(
				h.withAccessLog(
					h.withHTTPMetrics(handler),
				),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type orderLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type paymentInfoRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	Currency        string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type placeOrderRequest struct {
	Items       []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	PaymentInfo paymentInfoRequest `json:"payment_info"`
}

type summaryResponse struct {
	OrderID        string             `json:"orderId"`
	Status         domainOrder.Status `json:"status"`
	TotalAmount    json.Number        `json:"totalAmount"`
	DiscountAmount json.Number        `json:"discountAmount"`
	FinalAmount    json.Number        `json:"finalAmount"`
	Message        string             `json:"message"`
}

type placeOrderResponse struct {
	Order        json.RawMessage `json:"order"`
	ClientSecret string          `json:"clientSecret"`
	Summary      summaryResponse `json:"summary"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind,omitempty"`
	Products []string `json:"products,omitempty"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, failure.NewValidation(fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeFailure(w, failure.NewValidation(describeValidation(err)))
		return
	}

	lines := make([]domainOrder.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		// validated above
		id, _ := uuid.Parse(it.ProductID)
		lines = append(lines, domainOrder.CartLine{ProductID: id, Quantity: it.Quantity})
	}

	rid, _ := logctx.RequestID(r.Context())
	result, err := h.placer.Execute(r.Context(), apporder.PlaceOrderInput{
		RequestID:       rid,
		Lines:           lines,
		PaymentMethodID: req.PaymentInfo.PaymentMethodID,
		Currency:        req.PaymentInfo.Currency,
	})
	if err != nil {
		if failure.KindOf(err) == failure.Unknown {
			logctx.FromOr(r.Context(), h.log).Error("place_order_unclassified", observability.Err(err))
		}
		writeFailure(w, err)
		return
	}

	s := result.Summary
	writeJSON(w, http.StatusOK, placeOrderResponse{
		Order:        result.OrderRecord,
		ClientSecret: result.ClientSecret,
		Summary: summaryResponse{
			OrderID:        s.OrderID,
			Status:         s.Status,
			TotalAmount:    json.Number(s.TotalAmount.StringFixed(2)),
			DiscountAmount: json.Number(s.DiscountAmount.StringFixed(2)),
			FinalAmount:    json.Number(s.FinalAmount.StringFixed(2)),
			Message:        s.Message,
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}

func (h *Handler) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next(w, r)
	}
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("minishop.orchestrator.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	requests := h.tel.Metrics().Counter(observability.MHTTPRequests)
	duration := h.tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		route := routeFromContext(r.Context())
		status := strconv.Itoa(lrw.status)
		requests.Add(1, observability.L("method", r.Method), observability.L("route", route), observability.L("status", status))
		duration.Observe(time.Since(start).Seconds(), observability.L("method", r.Method), observability.L("route", route), observability.L("status", status))
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "placeOrderRequest.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s", field, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeFailure maps a classified saga failure onto a status code and error body.
func writeFailure(w http.ResponseWriter, err error) {
	fe, ok := failure.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	body := errorResponse{Error: fe.Error(), Kind: string(fe.Kind)}
	for _, p := range fe.Products {
		body.Products = append(body.Products, p.String())
	}
	writeJSON(w, statusFor(fe.Kind), body)
}

func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.Validation,
		failure.StockInsufficient,
		failure.InventoryContract,
		failure.PromotionContract:
		return http.StatusBadRequest
	case failure.PaymentDeclined:
		return http.StatusPaymentRequired
	case failure.InventoryUnavailable,
		failure.PromotionUnavailable,
		failure.PaymentUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
