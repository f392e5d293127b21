package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meditrack/meditrack-backend/internal/auth/jwt"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/consumers"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/events"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/fees"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/handler"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/repository"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("pharmacy-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("pharmacy-service", cfg.Server.Environment)
	log.Info().Msg("starting Pharmacy Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	// Events are optional; without a broker the publisher is nil and every publish is a no-op.
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.PharmacyEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewPharmacyEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("RabbitMQ disabled, domain events will not be published")
	}

	m := metrics.New(cfg.Metrics.Namespace)

	if rmq != nil {
		lowStock, err := consumers.NewLowStockConsumer(rmq, m, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create low stock consumer")
		}
		if err := lowStock.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start low stock consumer")
		}
	}
	tokens := jwt.NewManager(&cfg.JWT)
	tx := repository.NewTxRunner(db)
	calc := fees.New(cfg.Fees.Partner, cfg.Fees.PerUnit)

	usageService := service.NewUsageService(tx, calc, publisher, m, log)
	stockService := service.NewStockService(tx, publisher, m, log)
	reportService := service.NewReportService(tx, log)
	userService := service.NewUserService(tx, cfg.Auth.SuperAdminEmail, cfg.Auth.BcryptCost, log)
	authService := service.NewAuthService(tx, tokens, log)
	auditService := service.NewAuditService(tx)

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService, log),
		Medication: handler.NewMedicationHandler(stockService, log),
		Usage:      handler.NewUsageHandler(usageService, log),
		Report:     handler.NewReportHandler(reportService, log),
		User:       handler.NewUserHandler(userService, log),
		Audit:      handler.NewAuditHandler(auditService),
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	if cfg.Metrics.Enabled {
		r.Use(m.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  "pharmacy-service",
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", m.Handler())
	}

	handler.Routes(r, handlers, handler.NewAuthenticator(tokens, log))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
