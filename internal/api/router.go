package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/mw"
	"queuetimer-backend/internal/timer"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(h.log), gin.Recovery())

	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", mw.UserHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader)

	tokenTTL := time.Duration(cfg.Auth.CacheTTLSeconds) * time.Second
	tokens := cache.New(tokenTTL, 2*tokenTTL)
	auth := mw.Auth(h.users, tokens, tokenTTL, h.clock, h.log)

	responseTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(responseTTL, 2*responseTTL), responseTTL)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/test", h.Ping)
		api.POST("/users/new", h.NewUser)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		owned := api.Group("", auth, caching)

		assignments := owned.Group("/assignments")
		assignments.POST("", h.CreateAssignment)
		assignments.GET("", h.ListAssignments)
		assignments.GET("/:id", h.GetAssignment)
		assignments.PUT("/:id", h.UpdateAssignment)
		assignments.DELETE("/:id", h.DeleteAssignment)
		assignments.POST("/:id/start", h.Transition(timer.ActionStart))
		assignments.POST("/:id/pause", h.Transition(timer.ActionPause))
		assignments.POST("/:id/resume", h.Transition(timer.ActionResume))
		assignments.POST("/:id/complete", h.Transition(timer.ActionComplete))

		owned.GET("/subscriptions", h.GetSubscription)
		owned.PUT("/subscriptions", h.PutSubscription)
		owned.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
