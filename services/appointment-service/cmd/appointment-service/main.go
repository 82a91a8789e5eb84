package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nayeem-hasan/apptbook/libs/config"
	"github.com/nayeem-hasan/apptbook/libs/db"
	"github.com/nayeem-hasan/apptbook/libs/httpx"
	"github.com/nayeem-hasan/apptbook/libs/kafkax"
	otelx "github.com/nayeem-hasan/apptbook/libs/otel"
	"github.com/nayeem-hasan/apptbook/libs/runtime"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/booking"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/handlers"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/outbox"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/schedule"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/storage"
)

func main() {
	config.LoadDotEnv()

	service := config.String("SERVICE_NAME", "appointment-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	schedCfg, err := schedule.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid scheduling configuration", "err", err)
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	outboxRepo := outbox.NewRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	userRepo := storage.NewUserRepository(pool)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	svc := booking.NewService(schedCfg, apptRepo, userRepo, logger, booking.Options{
		RevalidateOnUpdate: config.Bool("REVALIDATE_ON_UPDATE", true),
	})
	apptHandler := handlers.NewAppointmentHandler(svc, schedCfg, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMux(readyChecks...)
	mux.HandleFunc("POST /api/v1/appointments", apptHandler.Create)
	mux.HandleFunc("GET /api/v1/appointments", apptHandler.List)
	mux.HandleFunc("GET /api/v1/appointments/{id}", apptHandler.Get)
	mux.HandleFunc("PUT /api/v1/appointments/{id}", apptHandler.Update)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", apptHandler.Delete)
	mux.HandleFunc("GET /api/v1/slots", apptHandler.Slots)

	limiter := buildRateLimiter(logger)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(strings.Split(config.String("ALLOWED_ORIGINS", ""), ",")),
		limiter,
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "appointment")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// buildRateLimiter prefers the Redis-backed limiter when REDIS_ADDR is set so
// replicas share one window; otherwise an in-process limiter covers a single
// instance.
func buildRateLimiter(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewRateLimiter(limit, time.Minute).Middleware()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	rl := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "apptbook")
	return rl.Middleware(logger, true)
}
