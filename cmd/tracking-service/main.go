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
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/consumers"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/events"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/handler"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/repository"
	"github.com/pharmtrace/pharmtrace-backend/internal/tracking/service"
	"github.com/pharmtrace/pharmtrace-backend/pkg/authz"
	"github.com/pharmtrace/pharmtrace-backend/pkg/config"
	"github.com/pharmtrace/pharmtrace-backend/pkg/database"
	"github.com/pharmtrace/pharmtrace-backend/pkg/httputil"
	"github.com/pharmtrace/pharmtrace-backend/pkg/logger"
	"github.com/pharmtrace/pharmtrace-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("tracking-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("tracking-service", cfg.Server.Environment)
	log.Info().Msg("starting Tracking Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	pub, err := messaging.NewPublisher(rmq, messaging.ExchangeTrackingEvents, "tracking-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	publisher := events.NewPublisher(pub, log)

	// Initialize repositories
	labelRepo := repository.NewLabelRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	qualityRepo := repository.NewQualityRepository(db)
	projectionRepo := repository.NewProjectionRepository(db)

	// Initialize services
	resolver := service.NewResolver(projectionRepo, labelRepo, movementRepo, qualityRepo, log)
	movementService := service.NewMovementService(
		labelRepo, movementRepo, qualityRepo, locationRepo, projectionRepo,
		resolver, publisher, &cfg.Tracking, log,
	)
	queryService := service.NewQueryService(
		resolver, labelRepo, movementRepo, qualityRepo, locationRepo,
		&cfg.Tracking, log,
	)
	qualityService := service.NewQualityService(labelRepo, qualityRepo, publisher, log)

	// Initialize handlers
	movementHandler := handler.NewMovementHandler(movementService, log)
	stockHandler := handler.NewStockHandler(queryService, log)
	labelHandler := handler.NewLabelHandler(queryService, log)
	locationHandler := handler.NewLocationHandler(queryService, log)
	qualityHandler := handler.NewQualityHandler(qualityService, log)

	// Operator token verification
	tokenManager := authz.NewManager(&cfg.Auth)

	// Start label event consumer
	labelConsumer, err := consumers.NewLabelEventConsumer(rmq, labelRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create label event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := labelConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start label event consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "tracking-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/tracking", func(r chi.Router) {
		r.Use(authz.Middleware(tokenManager))

		// Label routes
		r.Route("/labels/{id}", func(r chi.Router) {
			r.Get("/", labelHandler.Get)
			r.Get("/movements", labelHandler.Movements)
			r.Get("/quality", labelHandler.QualityHistory)
			r.Post("/quality", qualityHandler.SetStatus)

			// Scan operations
			r.Post("/putaway", movementHandler.PutAway)
			r.Post("/pick", movementHandler.Pick)
			r.Post("/transfer", movementHandler.Transfer)
			r.Post("/moveout", movementHandler.MoveOut)
		})

		// Location routes
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.List)
			r.Get("/{code}", locationHandler.Get)
			r.Get("/{code}/stock", stockHandler.AtLocation)
		})

		// Global stock
		r.Get("/stock", stockHandler.Global)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
