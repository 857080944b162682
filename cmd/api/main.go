package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/background"
	"github.com/BradenHooton/gatehouse/internal/config"
	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	middlewareCustom "github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/BradenHooton/gatehouse/internal/routes"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := database.Migrate(migrateCtx, db.Pool); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	linkedAccountRepo := repositories.NewLinkedAccountRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	activityLogRepo := repositories.NewActivityLogRepository(db)

	// Two durable limiters over the same attempt store, keyed differently
	ipLimiter := services.NewRateLimitService(attemptRepo, services.RateLimitConfig{
		MaxAttempts:   cfg.RateLimit.IPMaxAttempts,
		Window:        cfg.RateLimit.IPWindow,
		BlockDuration: cfg.RateLimit.IPBlockDuration,
	}, "ip", logger)
	emailLimiter := services.NewRateLimitService(attemptRepo, services.RateLimitConfig{
		MaxAttempts:   cfg.RateLimit.EmailMaxAttempts,
		Window:        cfg.RateLimit.EmailWindow,
		BlockDuration: cfg.RateLimit.EmailBlockDuration,
	}, "email", logger)

	emailService, err := services.NewAWSSESEmailService(cfg.Email.SESRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	otpService := services.NewOTPService(db, otpRepo, emailService, logger, cfg.OTP.Expiry, cfg.OTP.ResendCooldown)
	activityService := services.NewActivityService(activityLogRepo, logger)
	credentialService := services.NewCredentialService(userRepo, linkedAccountRepo, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 100,
	})

	signinService := services.NewSignInService(
		ipLimiter, emailLimiter, credentialService, activityService, timingDelay, logger)
	accountService := services.NewAccountService(userRepo, otpService, activityService, logger)

	// Session layer
	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.Expiry)
	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Session.CookieDomain,
		Secure:   cfg.Session.CookieSecure,
		SameSite: "lax",
	}

	googleVerifier := auth.NewGoogleVerifier(cfg.Google.ClientID)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Background maintenance
	reaper := background.NewReaper(ipLimiter, otpService, logger, cfg.Cron.ReapInterval)

	// Handlers
	authHandler := handlers.NewAuthHandler(signinService, googleVerifier, sessions, cookieConfig, ipConfig)
	accountHandler := handlers.NewAccountHandler(accountService, ipConfig)
	activityHandler := handlers.NewActivityHandler(activityService)
	maintenanceHandler := handlers.NewMaintenanceHandler(reaper, cfg.Cron.Secret)
	healthHandler := handlers.NewHealthHandler(db)

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, accountHandler, activityHandler, maintenanceHandler, healthHandler, sessions)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()

	go reaper.Start(reaperCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	reaperCancel()
	reaper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
