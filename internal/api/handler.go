package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	assignments *service.AssignmentService
	users       *service.UserService
	store       store.Store
	webpush     *webpush.Options
	clock       clock.Clock
	log         *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	assignments *service.AssignmentService,
	users *service.UserService,
	s store.Store,
	webpushOptions *webpush.Options,
	c clock.Clock,
	log *zap.Logger,
) *Handler {
	return &Handler{
		assignments: assignments,
		users:       users,
		store:       s,
		webpush:     webpushOptions,
		clock:       c,
		log:         log,
	}
}
