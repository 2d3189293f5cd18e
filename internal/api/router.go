package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/OsianJL/questions-app/internal/api/middleware"
	"github.com/OsianJL/questions-app/internal/auth"
	"github.com/OsianJL/questions-app/internal/config"
	"github.com/OsianJL/questions-app/internal/handlers"
	"github.com/OsianJL/questions-app/internal/store"
)

const maxBodyBytes = 32 * 1024

// NewRouter creates and configures the HTTP router.
// redisStore may be nil, which disables rate limiting and login throttling.
func NewRouter(logger zerolog.Logger, ds store.DataStore, redisStore *store.RedisStore, tokens *auth.TokenService, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	authMW := middleware.NewAuthMiddleware(tokens)

	var throttle handlers.LoginThrottle
	if redisStore != nil {
		throttle = redisStore
		limiter := middleware.NewRateLimiter(redisStore, logger, middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
			Identify:         authMW.UserID,
		})
		r.Use(limiter.Middleware)
	} else {
		logger.Warn().Msg("redis not configured, rate limiting disabled")
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(ds, throttle, tokens, logger, cfg.PublicURL)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/confirm/{token}", h.ConfirmEmail)
	r.Post("/reset_password", h.RequestPasswordReset)
	r.Post("/reset_password/confirm/{token}", h.ResetPassword)

	// Authenticated routes (require a bearer access token)
	r.Group(func(r chi.Router) {
		r.Use(authMW.RequireAuth)

		r.Get("/protected", h.Protected)

		r.Post("/profile", h.CreateProfile)
		r.Get("/profile/{user_id}", h.GetProfile)
		r.Patch("/profile/{user_id}", h.UpdateProfile)
		r.Delete("/profile/{user_id}", h.DeleteProfile)

		r.Post("/message", h.CreateMessage)
		r.Get("/message", h.ListMessages)
		r.Get("/message/{id}", h.GetMessage)
		r.Patch("/message/{id}", h.ReplyToMessage)
		r.Delete("/message/{id}", h.DeleteMessage)

		r.Get("/chats", h.ListChats)
		r.Post("/chat", h.InitiateChat)
		r.Get("/chat/{id}", h.GetChatMessages)
		r.Post("/chat/{id}", h.SendChatMessage)
	})

	return r
}
