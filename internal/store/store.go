package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"queuetimer-backend/internal/model"
)

var (
	// ErrNotFound is returned for unknown ids, endpoints and unknown or expired tokens.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the database rejects a write, e.g. on a unique violation.
	ErrConflict = errors.New("persistence conflict")
	// ErrEndpointInUse is returned when a push endpoint is registered to another user.
	ErrEndpointInUse = errors.New("endpoint belongs to another user")
	// ErrIntegrity is returned when stored rows violate the assignment/statistic pairing.
	ErrIntegrity = errors.New("stored data integrity fault")
)

const uniqueViolation = "23505"

// Store defines the interface for all database operations.
type Store interface {
	CreateUser(ctx context.Context, u *model.PublicUser) error
	FindUserByToken(ctx context.Context, token string, now time.Time) (*model.PublicUser, error)
	DeleteExpiredUsers(ctx context.Context, now time.Time) (int64, error)

	CreateAssignment(ctx context.Context, a *model.Assignment) error
	GetAssignment(ctx context.Context, userID int64, id string) (*model.Assignment, error)
	ListAssignments(ctx context.Context, userID int64) ([]model.Assignment, error)
	MutateAssignment(ctx context.Context, userID int64, id string, fn func(a *model.Assignment) error) (*model.Assignment, error)
	DeleteAssignment(ctx context.Context, userID int64, id string) error
	ListRunningAssignments(ctx context.Context) ([]model.Assignment, error)
	MarkLapseNotified(ctx context.Context, assignmentID string, at time.Time) (bool, error)
	ClearLapseNotified(ctx context.Context, assignmentID string) error

	PutSubscription(ctx context.Context, sub *model.PushSubscription) error
	ListSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID int64, endpoint string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// locking adds a row lock on dialects that support SELECT ... FOR UPDATE.
// SQLite serialises writers on its own.
func locking(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
	}
	return err
}
