// Package httpapi wires the HTTP transport (Gin) to the delivery services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging, panic recovery, metrics, CORS, and rate
// limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/config"
	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/http/handlers"
	"github.com/avennor/go-collab-backend/internal/http/middleware"
	"github.com/avennor/go-collab-backend/internal/jobs"
	"github.com/avennor/go-collab-backend/internal/realtime"
	"github.com/avennor/go-collab-backend/internal/repo"
	"github.com/avennor/go-collab-backend/internal/services"
)

// messageRepoShim adapts the repository free functions to the
// services.MessageRepo interface. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type messageRepoShim struct{}

// CreateMessage proxies repo.CreateMessage.
func (messageRepoShim) CreateMessage(ctx context.Context, tx *gorm.DB, m *domain.Message) error {
	return repo.CreateMessage(ctx, tx, m)
}

// FindByIdempotencyKey proxies repo.FindByIdempotencyKey.
func (messageRepoShim) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string, senderID int64) (*domain.Message, error) {
	return repo.FindByIdempotencyKey(ctx, db, key, senderID)
}

// InTransaction proxies repo.InTransaction.
func (messageRepoShim) InTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return repo.InTransaction(ctx, db, fn)
}

// MarkDelivered proxies repo.MarkDelivered.
func (messageRepoShim) MarkDelivered(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.MarkDelivered(ctx, db, id)
}

// userDirectoryShim adapts the identity lookups to services.UserDirectory.
type userDirectoryShim struct{}

// UserExists proxies repo.UserExists.
func (userDirectoryShim) UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	return repo.UserExists(ctx, db, id)
}

// UserDisplayName proxies repo.UserDisplayName.
func (userDirectoryShim) UserDisplayName(ctx context.Context, db *gorm.DB, id int64) (string, error) {
	return repo.UserDisplayName(ctx, db, id)
}

// notificationRepoShim adapts the notification persistence functions to
// services.NotificationRepo.
type notificationRepoShim struct{}

// CreateNotification proxies repo.CreateNotification.
func (notificationRepoShim) CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return repo.CreateNotification(ctx, db, n)
}

// ListPendingNotifications proxies repo.ListPendingNotifications.
func (notificationRepoShim) ListPendingNotifications(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Notification, error) {
	return repo.ListPendingNotifications(ctx, db, userID)
}

// MarkNotificationRead proxies repo.MarkNotificationRead.
func (notificationRepoShim) MarkNotificationRead(ctx context.Context, db *gorm.DB, id uint, userID int64) error {
	return repo.MarkNotificationRead(ctx, db, id, userID)
}

// Deps carries the constructed collaborators the router mounts.
type Deps struct {
	DB        *gorm.DB
	Registry  *realtime.Registry
	Notifier  *services.NotificationService
	Messages  *services.MessageService
	Scheduler *services.SchedulerService
}

// BuildServices constructs the service layer over db, the realtime
// components, and the job store, wiring the repo shims.
func BuildServices(db *gorm.DB, reg *realtime.Registry, bc *realtime.Broadcaster, store *jobs.Store, cfg config.Config) Deps {
	notifier := &services.NotificationService{
		DB:       db,
		Repo:     notificationRepoShim{},
		Presence: reg,
		Sender:   bc,
		Messages: messageRepoShim{},
	}
	messages := &services.MessageService{
		DB:              db,
		Repo:            messageRepoShim{},
		Users:           userDirectoryShim{},
		Delivery:        notifier,
		MaxContentRunes: cfg.MaxContentRunes,
	}
	scheduler := &services.SchedulerService{Store: store}
	return Deps{DB: db, Registry: reg, Notifier: notifier, Messages: messages, Scheduler: scheduler}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability, rate limiting, CORS, health and metrics endpoints,
// the websocket attach endpoint, and the versioned public API.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (allow all when no origins configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", handlers.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Websocket attach
	ws := handlers.NewWSHandler(deps.Registry, cfg.WS)
	r.GET("/ws", ws.Attach)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	h := handlers.NewAPI(deps.Messages, deps.Notifier, deps.Scheduler)
	{
		api.POST("/messages", h.CreateMessage)
		api.GET("/notifications", h.ListNotifications)
		api.PUT("/notifications/:id/read", h.ReadNotification)
		api.POST("/notifications/schedule", h.ScheduleNotification)
		api.GET("/notifications/scheduled", h.ListScheduledNotifications)
		api.DELETE("/notifications/scheduled/:id", h.CancelScheduledNotification)
	}
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap error on body reads.
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
