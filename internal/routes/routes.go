package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	activityHandler *handlers.ActivityHandler,
	maintenanceHandler *handlers.MaintenanceHandler,
	healthHandler *handlers.HealthHandler,
	sessions *auth.SessionManager,
) {
	// Coarse per-IP ceiling on the public auth surface. The durable attempt
	// limiter inside the sign-in service is the actual gate.
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.Get("/health", healthHandler.Health)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))

		r.Post("/auth/register", accountHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/google", authHandler.Google)
		r.Post("/auth/otp/request", accountHandler.RequestOTP)
		r.Post("/auth/otp/verify", accountHandler.VerifyOTP)
		r.Post("/auth/password/reset", accountHandler.ResetPassword)
	})

	// Protected routes - session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/activity", activityHandler.GetActivity)
	})

	// Shared-secret authenticated, for an external scheduler
	router.Post("/internal/reap", maintenanceHandler.Reap)
}
