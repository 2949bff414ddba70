package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-assistant/internal/api/router"
	"github.com/wolfman30/appointment-assistant/internal/app/bootstrap"
	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/availability"
	appconfig "github.com/wolfman30/appointment-assistant/internal/config"
	"github.com/wolfman30/appointment-assistant/internal/conversation"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
	httpmiddleware "github.com/wolfman30/appointment-assistant/internal/http/middleware"
	"github.com/wolfman30/appointment-assistant/internal/notify"
	"github.com/wolfman30/appointment-assistant/internal/observability/metrics"
	"github.com/wolfman30/appointment-assistant/internal/scheduling"
	"github.com/wolfman30/appointment-assistant/internal/webchat"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting appointment assistant",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	app.scanner.Start(ctx)

	// No read/write timeouts: they would carry over to hijacked web chat sockets.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	app.Close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// app holds the wired services and the resources to release on shutdown.
type app struct {
	handler    http.Handler
	engine     *scheduling.Engine
	dispatcher *notify.Dispatcher
	scanner    *notify.ReminderScanner
	webChat    *webchat.Handler
	redis      *redis.Client
	closeLLM   func() error
	logger     *logging.Logger
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	loc := bootstrap.LoadLocation(cfg, logger)
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	directory, err := bootstrap.LoadDirectory(ctx, cfg, redisClient, logger)
	if err != nil {
		closeRedis(redisClient)
		return nil, fmt.Errorf("load doctors: %w", err)
	}

	metricsHandler, schedulingMetrics := setupMetrics()

	store := appointments.NewStore()
	engine := scheduling.NewEngine(store, directory, availability.NewValidator(), logger).
		WithMetrics(schedulingMetrics).
		WithLocation(loc)

	sender, provider, err := bootstrap.BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		closeRedis(redisClient)
		return nil, fmt.Errorf("email: %w", err)
	}
	dispatcher := notify.NewDispatcher(sender, notify.DispatcherConfig{
		Location: loc,
		Timeout:  cfg.NotifyTimeout,
		Links:    notify.Links{CancelURL: cfg.CancelURL, RescheduleURL: cfg.RescheduleURL},
	}, logger).WithMetrics(schedulingMetrics)
	if dispatcher.Enabled() {
		engine.WithNotifier(dispatcher)
	}
	logger.Info("email notifications configured", "provider", provider, "enabled", dispatcher.Enabled())

	scanner := notify.NewReminderScanner(store, dispatcher, logger).
		WithInterval(cfg.ReminderScanInterval).
		WithTolerance(cfg.ReminderWindowTolerance).
		WithMetrics(schedulingMetrics)

	classifier, closeLLM, err := bootstrap.BuildClassifier(ctx, cfg, loc, logger)
	if err != nil {
		closeRedis(redisClient)
		return nil, fmt.Errorf("classifier: %w", err)
	}

	transcripts := conversation.NewTranscriptStore(redisClient)
	orchestrator := conversation.NewOrchestrator(classifier, engine, directory, logger).
		WithTranscripts(transcripts).
		WithMetrics(schedulingMetrics).
		WithLocation(loc)

	webChat := webchat.NewHandler(orchestrator, transcripts, logger)
	routerCfg := &router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(orchestrator, logger),
		WebChat:             webChat,
		DoctorsHandler:      doctors.NewHandler(directory, logger),
		SchedulingHandler:   scheduling.NewHandler(engine, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatLimiter:         httpmiddleware.NewRateLimiter(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst),
	}
	if redisClient != nil {
		routerCfg.Ready = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	return &app{
		handler:    router.New(routerCfg),
		engine:     engine,
		dispatcher: dispatcher,
		scanner:    scanner,
		webChat:    webChat,
		redis:      redisClient,
		closeLLM:   closeLLM,
		logger:     logger,
	}, nil
}

// Close drops web chat sockets, stops background work and releases clients.
// Pending emails are flushed before Redis is closed.
func (a *app) Close() {
	a.webChat.Shutdown()
	a.scanner.Stop()
	a.dispatcher.Wait()
	if a.closeLLM != nil {
		if err := a.closeLLM(); err != nil {
			a.logger.Warn("failed to close llm client", "error", err)
		}
	}
	closeRedis(a.redis)
}

func setupMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewSchedulingMetrics(reg)
}

func closeRedis(client *redis.Client) {
	if client != nil {
		_ = client.Close()
	}
}
