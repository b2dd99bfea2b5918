package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/odyssey-erp/pressroom/internal/app"
	"github.com/odyssey-erp/pressroom/internal/audit"
	audithttp "github.com/odyssey-erp/pressroom/internal/audit/http"
	"github.com/odyssey-erp/pressroom/internal/auth"
	"github.com/odyssey-erp/pressroom/internal/bookings"
	"github.com/odyssey-erp/pressroom/internal/calendar"
	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/observability"
	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/payments"
	"github.com/odyssey-erp/pressroom/internal/platform/cache"
	"github.com/odyssey-erp/pressroom/internal/platform/db"
	"github.com/odyssey-erp/pressroom/internal/proofs"
	"github.com/odyssey-erp/pressroom/internal/quotes"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	"github.com/odyssey-erp/pressroom/internal/shared"
	"github.com/odyssey-erp/pressroom/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.Postgres("pressroom"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Availability degrades to direct computation without Redis.
	var availabilityCache *calendar.Cache
	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, availability cache disabled", slog.Any("error", err))
	} else {
		availabilityCache = calendar.NewCache(redisClient, cfg.AvailabilityCacheTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Error("init token verifier", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	redisOpts := cfg.AsynqRedis()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	dispatcher := events.NewDispatcher(events.NewQueuePublisher(jobClient), logger, metrics.Registerer())

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	ordersService := orders.NewService(orders.NewRepository(dbpool), dispatcher, auditLogger, logger)

	quotesRepo := quotes.NewRepository(dbpool)
	quotesService := quotes.NewService(quotesRepo, quotes.Pricing{
		TaxRate:    cfg.TaxRate,
		DepositPct: cfg.DepositPct,
	}, dispatcher, auditLogger, logger)

	proofsService := proofs.NewService(proofs.NewRepository(dbpool), dispatcher, logger)

	calendarService := calendar.NewService(calendar.NewRepository(dbpool), availabilityCache, calendar.Options{
		Location:     cfg.Location(),
		MaxRangeDays: cfg.CalendarMaxRangeDays,
		Logger:       logger,
	})

	bookingsService := bookings.NewService(bookings.NewRepository(dbpool), quotesRepo, calendarService,
		cfg.EmergencySurchargePct, dispatcher, logger)

	paymentsService := payments.NewService(payments.NewRepository(dbpool), payments.StubGateway{}, dispatcher, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Verifier:        verifier,
		RBACMiddleware:  rbacMiddleware,
		Metrics:         metrics,
		QuotesHandler:   quotes.NewHandler(logger, quotesService, rbacMiddleware),
		OrdersHandler:   orders.NewHandler(logger, ordersService, rbacMiddleware),
		ProofsHandler:   proofs.NewHandler(logger, proofsService, rbacMiddleware),
		CalendarHandler: calendar.NewHandler(logger, calendarService, rbacMiddleware),
		BookingsHandler: bookings.NewHandler(logger, bookingsService, rbacMiddleware),
		PaymentsHandler: payments.NewHandler(logger, paymentsService, rbacMiddleware, idempotencyStore),
		JobHandler:      jobs.NewHandler(inspector, logger),
		AuditHandler:    audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
