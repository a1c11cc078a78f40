package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"queuetimer-backend/internal/model"
)

// PutSubscription creates or replaces a push subscription keyed by endpoint.
// An endpoint registered by another user is left alone and ErrEndpointInUse
// is returned.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "push_subscriptions", Name: "user_id"}, Value: sub.UserID},
		}},
	}).Create(sub)
	if res.Error != nil {
		return fmt.Errorf("failed to save subscription: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrEndpointInUse
	}
	return nil
}

// ListSubscriptions returns the user's push subscriptions.
func (s *gormStore) ListSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscription removes one of the user's subscriptions.
func (s *gormStore) DeleteSubscription(ctx context.Context, userID int64, endpoint string) error {
	res := s.db.WithContext(ctx).Where("endpoint = ? AND user_id = ?", endpoint, userID).Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubscriptionByEndpoint drops a subscription the push service reported as gone.
func (s *gormStore) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}
