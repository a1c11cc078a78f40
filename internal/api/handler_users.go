package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type newUserRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

// Ping confirms the API is reachable.
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "You are now connected to the QueueTimer API"})
}

// NewUser issues an anonymous user token bound to the client's timezone.
func (h *Handler) NewUser(c *gin.Context) {
	var req newUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Timezone)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": u.Token})
}
