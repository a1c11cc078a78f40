package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
	"queuetimer-backend/internal/timer"
)

// respondError maps domain errors onto status codes. Server-side faults
// never leak their details to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		verr *service.ValidationError
		terr *timer.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrEndpointInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &terr):
		c.JSON(http.StatusConflict, gin.H{"error": terr.Error(), "flag": terr.Flag})
	case errors.Is(err, store.ErrConflict):
		h.log.Warn("Persistence conflict", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "internal error", "retryable": true})
	default:
		h.log.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
