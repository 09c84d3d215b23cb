package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alertx/alertx/internal/handler"
	"github.com/alertx/alertx/internal/infrastructure/classifier"
	"github.com/alertx/alertx/internal/infrastructure/logger"
	"github.com/alertx/alertx/internal/infrastructure/mailer"
	"github.com/alertx/alertx/internal/infrastructure/mongodb"
	"github.com/alertx/alertx/internal/infrastructure/redis"
	"github.com/alertx/alertx/internal/infrastructure/storage"
	"github.com/alertx/alertx/internal/live"
	"github.com/alertx/alertx/internal/observability/metrics"
	"github.com/alertx/alertx/internal/observability/tracing"
	"github.com/alertx/alertx/internal/repository"
	"github.com/alertx/alertx/internal/security/audit"
	"github.com/alertx/alertx/internal/security/auth"
	"github.com/alertx/alertx/internal/security/middleware"
	"github.com/alertx/alertx/internal/security/ratelimit"
	"github.com/alertx/alertx/internal/service"
	"github.com/alertx/alertx/internal/worker"
	"github.com/alertx/alertx/pkg/config"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting AlertX server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, "alertx", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to MongoDB
	db, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		log.Error("failed to connect to MongoDB", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Warn("index creation incomplete", slog.String("error", err.Error()))
	}

	// 5. Initialize collaborator adapters
	store, err := storage.NewS3Storage(ctx, storage.Config{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		PublicURL: cfg.StoragePublicURL,
	}, log)
	if err != nil {
		log.Error("failed to initialize object storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mlClient := classifier.NewHTTPClient(cfg.ClassifierURL, cfg.ClassifierTimeout, log)

	mail := mailer.NewSMTPMailer(mailer.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPass,
		From:        cfg.MailFrom,
		FrontendURL: cfg.FrontendURL,
	}, log)

	// 6. Initialize repositories
	reportRepo := repository.NewMongoReportRepository(db, log)
	userRepo := repository.NewMongoUserRepository(db, log)
	adminRepo := repository.NewMongoAdminRepository(db, log)

	// 7. Live-update hub, with Redis fan-out when configured
	hub := live.NewHub(log)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()

		bridge := live.NewRedisBridge(redisClient, hub, log)
		go bridge.Run(ctx)
	}

	// 8. Initialize services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "alertx", cfg.TokenTTL)
	reportService := service.NewReportService(reportRepo, store, mlClient, hub, log)
	authService := service.NewAuthService(userRepo, mail, tokenManager, log)
	adminService := service.NewAdminService(adminRepo, tokenManager, log)

	// 9. Initialize handlers
	reportHandler := handler.NewReportHandler(reportService, log)
	authHandler := handler.NewAuthHandler(authService, log)
	adminHandler := handler.NewAdminHandler(adminService, log)
	liveHandler := handler.NewLiveHandler(hub, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(db)

	// 9a. Security components
	rateLimiter := ratelimit.NewLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	auditLogger := audit.NewLogger(log)
	auditTrail := audit.Middleware(auditLogger)
	requireAuth := middleware.RequireAuth(tokenManager, log)
	limitAuth := middleware.RateLimit(rateLimiter, log, cfg.TrustProxyHeaders)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/report", reportHandler.Submit)
	mux.HandleFunc("GET /api/reports", reportHandler.List)
	mux.Handle("PUT /api/report/{id}", requireAuth(auditTrail(http.HandlerFunc(reportHandler.UpdateStatus))))
	mux.Handle("DELETE /api/report/{id}", requireAuth(auditTrail(http.HandlerFunc(reportHandler.Delete))))
	mux.Handle("GET /ws/updates", liveHandler)

	mux.Handle("POST /api/auth/register", limitAuth(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limitAuth(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /api/auth/verify-email", authHandler.VerifyEmail)

	mux.Handle("POST /api/admin/register", limitAuth(http.HandlerFunc(adminHandler.Register)))
	mux.Handle("POST /api/admin/login", limitAuth(http.HandlerFunc(adminHandler.Login)))
	mux.Handle("GET /api/admin/list", requireAuth(http.HandlerFunc(adminHandler.List)))
	mux.Handle("GET /api/admin/{email}", requireAuth(http.HandlerFunc(adminHandler.GetByEmail)))
	mux.Handle("PUT /api/admin/{id}", requireAuth(http.HandlerFunc(adminHandler.Update)))
	mux.Handle("DELETE /api/admin/{id}", requireAuth(http.HandlerFunc(adminHandler.Delete)))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler.Liveness)
	mux.HandleFunc("/readyz", healthHandler.Readiness)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> CORS -> mux. The audit
	// trail sits inside requireAuth on the mutation routes so it sees the
	// authenticated actor.
	rootHandler := otelhttp.NewHandler(
		withRequestID(
			metrics.HTTPMetricsMiddleware(handlerWithCORS),
			log,
		),
		"alertx.http",
	)

	// 11. Start stats worker in background
	statsWorker := worker.NewStatsWorker(
		reportRepo,
		log,
		time.Duration(cfg.StatsIntervalMinutes)*time.Minute,
	)
	go statsWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("classifier", cfg.ClassifierURL),
		slog.String("bucket", cfg.StorageBucket),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	hub.Close()
	cancel() // Stop stats worker and relay
	rateLimiter.Stop()

	if err := db.Close(shutdownCtx); err != nil {
		log.Error("mongodb disconnect error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
