package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ticketbox/ticketbox-api/internal/config"
	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/credit"
	"github.com/ticketbox/ticketbox-api/internal/domain/payment"
	"github.com/ticketbox/ticketbox-api/internal/domain/purchase"
	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
	"github.com/ticketbox/ticketbox-api/internal/domain/user"
	"github.com/ticketbox/ticketbox-api/internal/middleware"
	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
	"github.com/ticketbox/ticketbox-api/internal/pkg/email"
	"github.com/ticketbox/ticketbox-api/internal/pkg/idempotency"
	"github.com/ticketbox/ticketbox-api/internal/pkg/jwt"
	"github.com/ticketbox/ticketbox-api/internal/pkg/logger"
	"github.com/ticketbox/ticketbox-api/internal/pkg/metrics"
	"github.com/ticketbox/ticketbox-api/internal/pkg/qrcode"
	pkgresponse "github.com/ticketbox/ticketbox-api/internal/pkg/response"
	"github.com/ticketbox/ticketbox-api/migrations"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Ticketbox API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		if err := migrations.Up(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	txManager := database.NewTxManager(db, cfg.PurchaseTimeout)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	cardRepo := card.NewRepository(db)
	ticketRepo := ticket.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	purchaseRepo := purchase.NewRepository(db)
	creditRepo := credit.NewRepository(db)

	// ---------- Services ----------
	creditService := credit.NewService(creditRepo, txManager)

	if cfg.SendGridAPIKey == "" {
		log.Warn().Msg("SENDGRID_API_KEY not set, ticket emails will fail and be logged")
	}
	emailService := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		BaseURL:   cfg.SendGridBaseURL,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}, email.Options{Attempts: cfg.EmailRetryAttempts})

	purchaseService := purchase.NewService(purchase.Deps{
		Tx:              txManager,
		Inventory:       ticket.NewInventoryLedger(ticketRepo),
		Resolver:        purchase.NewResolver(cardRepo, creditService),
		Issuer:          ticket.NewIssuer(ticketRepo, qrcode.NewEncoder(256)),
		Aggregator:      purchase.NewAggregator(purchaseRepo),
		Payments:        paymentRepo,
		Cards:           cardRepo,
		Purchases:       purchaseRepo,
		Tickets:         ticketRepo,
		Users:           userRepo,
		Notifier:        emailService,
		Metrics:         metrics.NewPurchase(prometheus.DefaultRegisterer),
		DefaultCurrency: cfg.DefaultCurrency,
	})

	// Replay stays off without Redis; the payments unique key still guards retries
	var replay purchase.ReplayStore
	if redis != nil {
		replay = idempotency.NewStore(redis, cfg.IdempotencyTTL)
	}

	r := newRouter(cfg, middleware.Auth(jwtService), apiRoutes{
		Payments:    purchase.NewHandler(purchaseService, replay),
		Credits:     credit.NewHandler(creditService),
		TicketTypes: ticket.NewHandler(ticketRepo),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let queued ticket emails finish before the pools close
	purchaseService.Wait()

	log.Info().Msg("Server exited properly")
}

// mountable is implemented by every domain handler.
type mountable interface {
	Routes(authMiddleware func(http.Handler) http.Handler) chi.Router
}

// apiRoutes are the handlers mounted under /api/v1.
type apiRoutes struct {
	Payments    mountable
	Credits     mountable
	TicketTypes mountable
}

func newRouter(cfg *config.Config, authMiddleware func(http.Handler) http.Handler, api apiRoutes) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/payments", api.Payments.Routes(authMiddleware))
		r.Mount("/credits", api.Credits.Routes(authMiddleware))
		r.Mount("/ticket-types", api.TicketTypes.Routes(authMiddleware))
	})

	return r
}
