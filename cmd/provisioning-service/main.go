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

	"github.com/blunari/blunari-backend/internal/auth/jwt"
	authmw "github.com/blunari/blunari-backend/internal/auth/middleware"
	"github.com/blunari/blunari-backend/internal/provisioning/events"
	"github.com/blunari/blunari-backend/internal/provisioning/handler"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/internal/provisioning/service"
	"github.com/blunari/blunari-backend/pkg/config"
	"github.com/blunari/blunari-backend/pkg/database"
	"github.com/blunari/blunari-backend/pkg/httputil"
	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("provisioning-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("provisioning-service", cfg.Server.Environment)
	log.Info().Msg("starting Provisioning Service")

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

	publisher, err := events.NewTenantEventPublisher(rmq, "provisioning-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize components
	jwtManager := jwt.NewManager(&cfg.JWT)

	employeeRepo := repository.NewEmployeeRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	recoveryRepo := repository.NewRecoveryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	jobRepo := repository.NewJobRepository(db)

	guard := service.NewGuard(employeeRepo, auditRepo, log)
	provisioningService := service.NewProvisioningService(db, tenantRepo, accountRepo, jobRepo, auditRepo, publisher, &cfg.Provisioning, log)
	recoveryService := service.NewRecoveryService(db, tenantRepo, accountRepo, recoveryRepo, auditRepo, publisher, &cfg.Recovery, log)
	directoryService := service.NewDirectoryService(tenantRepo, auditRepo, log)

	h := handler.NewHandler(guard, provisioningService, recoveryService, directoryService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// CORS - the admin dashboard is the only browser caller
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			if origin == "https://admin.blunari.app" {
				return true
			}
			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "provisioning-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Recovery redemption is public: the owner following the link has no
	// session yet.
	r.Post("/api/v1/recover", h.Redeem)

	// Admin routes
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(authmw.Authenticate(jwtManager))

		r.Group(func(r chi.Router) {
			r.Use(httputil.Timeout(cfg.Provisioning.RequestTimeout))
			r.Post("/provision", h.Provision)
		})

		r.Post("/tenant-owner-credentials", h.Credentials)
		r.Get("/tenants", h.ListTenants)
		r.Get("/tenants/{id}", h.GetTenant)
		r.Put("/tenants/{id}/status", h.SetTenantStatus)
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

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
