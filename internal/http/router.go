// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/config"
	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/http/handlers"
	"github.com/hajeen-app/go-care-backend/internal/http/middleware"
	"github.com/hajeen-app/go-care-backend/internal/push"
	"github.com/hajeen-app/go-care-backend/internal/services"
	"github.com/hajeen-app/go-care-backend/internal/sms"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under /api/v*. The constructed quota service is
// returned so the caller can hand it to the job scheduler.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, gateway sms.Gateway, pusher push.Sender, cfg config.Config) *services.QuotaService {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (OTP codes travel in bodies,
	//    which are never logged; tokens in headers are masked here)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/providers
	notifySvc := &services.NotifyService{DB: db, Pusher: pusher}
	quotaSvc := &services.QuotaService{DB: db, Notifier: notifySvc}
	dispatchSvc := &services.DispatchService{
		DB:          db,
		Quota:       quotaSvc,
		Notifier:    notifySvc,
		Gateway:     gateway,
		SenderLabel: cfg.SMS.Sender,
	}
	authSvc := &services.AuthService{
		DB:          db,
		Quota:       quotaSvc,
		Gateway:     gateway,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL:    cfg.Auth.TokenTTL,
		SenderLabel: cfg.SMS.Sender,
	}
	phraseSvc := &services.PhraseService{DB: db}

	h := handlers.New(db, authSvc, dispatchSvc, quotaSvc, phraseSvc)

	parser := middleware.TokenParserFunc(func(raw string) (middleware.Identity, error) {
		claims, err := authSvc.ParseToken(raw)
		if err != nil {
			return middleware.Identity{}, err
		}
		return middleware.Identity{UserID: claims.Subject, Role: claims.Role}, nil
	})

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Authentication (public)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/verify-otp", h.VerifyOTP)

		// Device events (public; devices identify by registration id)
		api.POST("/device/messages", h.PostDeviceMessage)

		// Phrase catalog (public read for device pickers)
		api.GET("/phrases", h.ListPhrases)

		// Guardian surface
		guardian := api.Group("/guardian", middleware.RequireAuth(parser, domain.RoleGuardian))
		{
			guardian.GET("/messages", h.GetMessageFeed)
			guardian.POST("/messages/seen", h.MarkMessagesSeen)
			guardian.GET("/quota", h.GetQuota)
			guardian.POST("/dependents", h.CreateDependent)
			guardian.GET("/dependents", h.ListDependents)
			guardian.PUT("/dependents/:id/device", h.BindDevice)
			guardian.GET("/phrases", h.ListSelections)
			guardian.PUT("/phrases", h.SelectPhrases)
		}

		// Any authenticated user
		authed := api.Group("", middleware.RequireAuth(parser))
		{
			authed.GET("/notifications", h.ListNotifications)
			authed.PUT("/notifications/:id/read", h.MarkNotificationRead)
			authed.POST("/devices", h.RegisterDevice)
		}

		// Admin surface
		admin := api.Group("/admin", middleware.RequireAuth(parser, domain.RoleAdmin))
		{
			admin.POST("/phrases", h.CreatePhrase)
			admin.POST("/quota-config", h.CreateQuotaConfig)
			admin.PUT("/quota-config", h.UpdateQuotaConfig)
		}
	}

	return quotaSvc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
