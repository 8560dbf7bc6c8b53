package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appInventory "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/inventory"
	appOrder "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/order"
	appPayment "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/payment"
	appPromotion "github.com/Zhima-Mochi/minishop-orchestrator/internal/application/promotion"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/config"
	domoutbox "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/broker/kafkasink"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/broker/rabbitsink"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/inventoryhttp"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/paymenthttp"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/promotionhttp"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-orchestrator/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-orchestrator/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	oteltrace.InstallPropagator()
	registry := prometrics.New(prometheus.DefaultRegisterer, "", "")
	counters, histograms := prometrics.Instruments(registry, observability.Counters, observability.Histograms)
	tel := telemetry.New(oteltrace.New(cfg.ServiceName), zaplogger.New(baseLogger), counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Downstream collaborators
	client := &http.Client{Timeout: cfg.DownstreamTimeout}
	catalog := inventoryhttp.New(httpclient.New(inventoryhttp.Peer, cfg.InventoryURL, client, tel))
	quoter := promotionhttp.New(httpclient.New(promotionhttp.Peer, cfg.PromotionsURL, client, tel))
	processor := paymenthttp.New(httpclient.New(paymenthttp.Peer, cfg.PaymentURL, client, tel))

	// In-process bus carrying saga outcome events to the worker
	bus := outbox.NewBus(tel)
	bus.Start(context.Background())

	sink, err := newSink(ctx, cfg, tel)
	if err != nil {
		systemLogger.Fatal("event_sink_init_failed", zap.String("sink", cfg.EventSink), zap.Error(err))
	}
	workerpresentation.NewSagaEventWorker(bus, sink, tel).Start()

	var quoteOpts []appPromotion.Option
	if cfg.PromotionsEvaluationTime != nil {
		quoteOpts = append(quoteOpts, appPromotion.WithEvaluationTime(*cfg.PromotionsEvaluationTime))
	}
	placeOrder := appOrder.NewPlaceOrderUseCase(appOrder.Stages{
		Stock:   appInventory.NewVerifyStockUseCase(catalog, tel),
		Quote:   appPromotion.NewQuoteDiscountUseCase(quoter, tel, quoteOpts...),
		Capture: appPayment.NewCapturePaymentUseCase(processor, tel),
		Commit:  appInventory.NewCommitStockUseCase(catalog, tel),
	}, bus, tel)

	var handlerOpts []httppresentation.Option
	if cfg.RateLimitRPS > 0 {
		handlerOpts = append(handlerOpts, httppresentation.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)))
	}
	handler := httppresentation.NewHandler(placeOrder, nil, tel, handlerOpts...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("inventory_url", cfg.InventoryURL),
			zap.String("promotions_url", cfg.PromotionsURL),
			zap.String("payment_url", cfg.PaymentURL),
			zap.String("event_sink", cfg.EventSink),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}

	// drain queued saga events before closing the sink they forward to
	bus.Stop(shutdownCtx)
	if sink != nil {
		if err := sink.Close(); err != nil {
			systemLogger.Warn("event_sink_close_error", zap.Error(err))
		}
	}
}

func newSink(ctx context.Context, cfg *config.Config, tel observability.Observability) (domoutbox.Sink, error) {
	switch cfg.EventSink {
	case config.SinkKafka:
		return kafkasink.New(kafkasink.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, tel)
	case config.SinkRabbitMQ:
		return rabbitsink.Dial(ctx, rabbitsink.Config{URL: cfg.RabbitURL, Exchange: cfg.RabbitExchange}, tel)
	default:
		return nil, nil
	}
}
