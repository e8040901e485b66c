package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"event-scheduler-backend/config"
	"event-scheduler-backend/internal/mw"
	"event-scheduler-backend/internal/schedule"
	"event-scheduler-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, svc *schedule.Service, s store.Store, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	handler := NewHandler(svc, s, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	api := r.Group("/api")
	api.Use(rateLimiter)
	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		api.Use(mw.Cache(cache.New(ttl, 2*ttl), ttl))
	}
	{
		api.GET("/stats", handler.GetStats)

		api.GET("/events", handler.ListEvents)
		api.POST("/events", handler.CreateEvent)
		api.GET("/events/:id", handler.GetEvent)
		api.PUT("/events/:id", handler.UpdateEvent)
		api.DELETE("/events/:id", handler.DeleteEvent)
		api.GET("/events/:id/allocations", handler.EventAllocations)
		api.POST("/events/:id/allocations", handler.Allocate)

		api.GET("/resources", handler.ListResources)
		api.POST("/resources", handler.CreateResource)
		api.GET("/resources/:id", handler.GetResource)
		api.PUT("/resources/:id", handler.UpdateResource)
		api.DELETE("/resources/:id", handler.DeleteResource)
		api.GET("/resources/:id/allocations", handler.ResourceAllocations)
		api.GET("/resources/:id/calendar.ics", handler.ResourceCalendarFeed)

		api.GET("/allocations", handler.ListAllocations)
		api.DELETE("/allocations/:id", handler.DeleteAllocation)

		api.GET("/conflicts", handler.ListConflicts)
		api.GET("/conflicts/check", handler.CheckConflict)
		api.GET("/schedule/overview", handler.ScheduleOverview)

		api.GET("/reports/utilization", handler.UtilizationReport)
		api.GET("/reports/conflicts", handler.ConflictsReport)
		api.GET("/calendar.ics", handler.CalendarFeed)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

// corsConfig allows any origin when none are configured.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", mw.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Content-Disposition", mw.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
