package mw

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

// UserHeader carries the anonymous user token.
const UserHeader = "X-User-ID"

const userKey = "queuetimer.user"

// Authenticator resolves a token to its owner.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.PublicUser, error)
}

// Auth resolves the X-User-ID header and stores the user in the context.
// Resolved users are kept in tokens for at most ttl, and never past their expiry.
func Auth(a Authenticator, tokens *cache.Cache, ttl time.Duration, c clock.Clock, log *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := ctx.GetHeader(UserHeader)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": UserHeader + " header is required"})
			return
		}

		now := c.Now()
		if v, found := tokens.Get(token); found {
			if u := v.(*model.PublicUser); u.TokenExpiryTime.After(now) {
				ctx.Set(userKey, u)
				ctx.Next()
				return
			}
			tokens.Delete(token)
		}

		u, err := a.Authenticate(ctx.Request.Context(), token)
		switch {
		case errors.Is(err, service.ErrValidation):
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": UserHeader + " must be a valid UUID"})
			return
		case errors.Is(err, store.ErrNotFound):
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found or token expired"})
			return
		case err != nil:
			log.Error("Failed to authenticate user", zap.Error(err))
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		keep := ttl
		if left := u.TokenExpiryTime.Sub(now); left < keep {
			keep = left
		}
		if keep > 0 {
			tokens.Set(token, u, keep)
		}

		ctx.Set(userKey, u)
		ctx.Next()
	}
}

// User returns the authenticated user, or nil outside Auth.
func User(c *gin.Context) *model.PublicUser {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.PublicUser)
	return u
}
