package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"queuetimer-backend/internal/model"
)

// CreateUser persists a new anonymous user.
func (s *gormStore) CreateUser(ctx context.Context, u *model.PublicUser) error {
	if err := s.db.WithContext(ctx).Omit("Assignments", "Subscriptions").Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// FindUserByToken returns the user owning token if it has not expired at now.
func (s *gormStore) FindUserByToken(ctx context.Context, token string, now time.Time) (*model.PublicUser, error) {
	var u model.PublicUser
	err := s.db.WithContext(ctx).
		Where("token = ? AND token_expiry_time > ?", token, now).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// DeleteExpiredUsers removes users whose token expired before now together
// with everything they own, and reports how many users were removed.
func (s *gormStore) DeleteExpiredUsers(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userIDs []int64
		if err := tx.Model(&model.PublicUser{}).
			Where("token_expiry_time < ?", now).
			Pluck("id", &userIDs).Error; err != nil {
			return fmt.Errorf("failed to find expired users: %w", err)
		}
		if len(userIDs) == 0 {
			return nil
		}

		var assignmentIDs []string
		if err := tx.Model(&model.Assignment{}).
			Where("user_id IN ?", userIDs).
			Pluck("id", &assignmentIDs).Error; err != nil {
			return fmt.Errorf("failed to find assignments of expired users: %w", err)
		}
		if err := deleteAssignmentRows(tx, assignmentIDs); err != nil {
			return err
		}

		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of expired users: %w", err)
		}

		res := tx.Where("id IN ?", userIDs).Delete(&model.PublicUser{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete expired users: %w", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
