// Package httpapi wires the HTTP transport (Gin) to the campaign services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Middleware order:
//   - tracing and correlation first so every log line carries a request id
//   - logging before recovery so panics are logged with context
//   - idempotency before the rate limiter so replays are never throttled
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/event-campaigns/docs"
	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/config"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/http/handlers"
	"github.com/tbourn/event-campaigns/internal/http/middleware"
	"github.com/tbourn/event-campaigns/internal/repo"
	"github.com/tbourn/event-campaigns/internal/services"
	"github.com/tbourn/event-campaigns/internal/transport"
)

// idempotencyPendingTTL bounds how long a request that died mid-flight keeps
// its Idempotency-Key blocked.
const idempotencyPendingTTL = 2 * time.Minute

// scheduleRepoShim adapts the repository free functions to the
// services.ScheduleRepo interface expected by the ScheduleService.
type scheduleRepoShim struct{}

// GetEvent proxies repo.GetEvent.
func (scheduleRepoShim) GetEvent(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Event, error) {
	return repo.GetEvent(ctx, db, id, ownerID)
}

// GetSchedule proxies repo.GetSchedule.
func (scheduleRepoShim) GetSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (*domain.Schedule, error) {
	return repo.GetSchedule(ctx, db, eventID, kind)
}

// ListSchedules proxies repo.ListSchedules.
func (scheduleRepoShim) ListSchedules(ctx context.Context, db *gorm.DB, eventID string) ([]domain.Schedule, error) {
	return repo.ListSchedules(ctx, db, eventID)
}

// UpsertSchedule proxies repo.UpsertSchedule.
func (scheduleRepoShim) UpsertSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error) {
	return repo.UpsertSchedule(ctx, db, eventID, kind, sendAt, auto)
}

// DisarmSchedule proxies repo.DisarmSchedule.
func (scheduleRepoShim) DisarmSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (int64, error) {
	return repo.DisarmSchedule(ctx, db, eventID, kind)
}

// Services are the application services behind the API. The binary also
// drives Scheduler from its own ticker.
type Services struct {
	Schedules  *services.ScheduleService
	Dispatch   *services.DispatchService
	Deliveries *services.DeliveryLogService
	Events     *services.EventService
	Credits    *services.CreditService
	Scheduler  *services.SchedulerService
}

// NewServices builds the services over db, sending through sender.
func NewServices(db *gorm.DB, sender transport.Sender, cfg config.Config) *Services {
	sched := services.NewScheduleService(db, scheduleRepoShim{})
	sched.SendHour = cfg.Campaign.DefaultSendHour

	credits := &services.CreditService{DB: db}
	deliveries := &services.DeliveryLogService{DB: db}
	dispatcher := &services.DispatchService{
		DB:          db,
		Sender:      sender,
		Composer:    campaign.NewComposer(cfg.Campaign.RSVPBaseURL),
		Credits:     credits,
		Deliveries:  deliveries,
		Concurrency: cfg.Campaign.DispatchConcurrency,
	}
	return &Services{
		Schedules:  sched,
		Dispatch:   dispatcher,
		Deliveries: deliveries,
		Events:     &services.EventService{DB: db},
		Credits:    credits,
		Scheduler: &services.SchedulerService{
			DB:         db,
			Dispatcher: dispatcher,
			BatchLimit: cfg.Campaign.SchedulerBatchLimit,
		},
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the campaign API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID and caller account
//  3. RedactingLogger (access log) and request-scoped Logger
//  4. Recovery
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Idempotency (replays stored dispatch results)
//  8. Rate limiter on writes, per account or IP
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc *Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	r.Use(middleware.RequestID())
	r.Use(middleware.Account())

	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))
	r.Use(middleware.Logger())

	r.Use(middleware.Recovery())

	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Store: func(ctx context.Context, account, scope, key string, status int, body []byte) error {
				return repo.CompleteIdempotency(ctx, db, account, scope, key, status, body, cfg.IdempotencyTTL)
			},
			Reserve: func(ctx context.Context, account, scope, key string) (bool, error) {
				err := repo.ReserveIdempotency(ctx, db, account, scope, key, idempotencyPendingTTL)
				if errors.Is(err, repo.ErrDuplicate) {
					return false, nil
				}
				return err == nil, err
			},
			Release: func(ctx context.Context, account, scope, key string) error {
				return repo.ReleaseIdempotency(ctx, db, account, scope, key)
			},
		},
		func(ctx context.Context, account, scope, key string, now time.Time) (*middleware.StoredResponse, error) {
			rec, err := repo.GetIdempotency(ctx, db, account, scope, key, now)
			if err != nil || rec == nil {
				return nil, err
			}
			return &middleware.StoredResponse{Status: rec.Status, Body: rec.Body, Pending: rec.Pending()}, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAccountOrIP()).WritesOnly()
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderAccountID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header (probes, curl).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
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
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	apiBase := cfg.APIBasePath
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:         cfg.Security.EnableHSTS,
		HSTSMaxAge:         cfg.Security.HSTSMaxAge,
		// Balances and dispatch results must never come from a cache.
		NoStorePrefixes:    []string{joinPath(apiBase, "/dispatch"), joinPath(apiBase, "/accounts"), joinPath(apiBase, "/scheduler")},
		RevalidatePrefixes: []string{joinPath(apiBase, "/delivery-log"), joinPath(apiBase, "/schedules")},
		EnablePolicy:       true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Services{
		Schedules:  svc.Schedules,
		Dispatch:   svc.Dispatch,
		Deliveries: svc.Deliveries,
		Events:     svc.Events,
		Credits:    svc.Credits,
		Scheduler:  svc.Scheduler,
	})

	api := groupWithPrefix(r, apiBase)
	{
		// Schedules
		api.GET("/schedules", h.ListSchedules)
		api.POST("/schedules", h.UpsertSchedule)
		api.PATCH("/schedules", h.PatchSchedule)
		api.DELETE("/schedules", h.DisarmSchedule)

		// Dispatch
		api.POST("/dispatch", h.Dispatch)
		api.GET("/audience", h.PreviewAudience)
		api.GET("/delivery-log", h.ListDeliveryLog)

		// Events and billing
		api.POST("/events/:id/cancel", h.CancelEvent)
		api.GET("/accounts/:id/credit", h.GetCredit)
		api.POST("/accounts/:id/credit", h.AdjustCredit)

		// External timer hook
		api.POST("/scheduler/run", h.RunScheduler)
	}
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

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
