package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/parse"
	"queuetimer-backend/internal/store"
)

// UserService issues and resolves anonymous user tokens.
type UserService struct {
	store    store.Store
	clock    clock.Clock
	tokenTTL time.Duration
	log      *zap.Logger
}

// NewUserService creates a new UserService. Tokens expire tokenTTL after issue.
func NewUserService(s store.Store, c clock.Clock, tokenTTL time.Duration, log *zap.Logger) *UserService {
	return &UserService{store: s, clock: c, tokenTTL: tokenTTL, log: log}
}

// Register creates an anonymous user for the given IANA timezone.
func (s *UserService) Register(ctx context.Context, timezone string) (*model.PublicUser, error) {
	tz, err := parse.Timezone(timezone)
	if err != nil {
		return nil, invalid("timezone", err)
	}

	u := &model.PublicUser{
		Token:           uuid.NewString(),
		TokenExpiryTime: s.clock.Now().Add(s.tokenTTL),
		Timezone:        tz,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("Anonymous user registered", zap.Int64("user_id", u.ID), zap.String("timezone", tz))
	return u, nil
}

// Authenticate resolves a token to its user. Malformed tokens fail with a
// validation error, unknown or expired ones with store.ErrNotFound.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.PublicUser, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, invalid("X-User-ID", err)
	}
	return s.store.FindUserByToken(ctx, token, s.clock.Now())
}

// CleanupExpired removes users whose token has expired, with everything they own.
func (s *UserService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredUsers(ctx, s.clock.Now())
}
