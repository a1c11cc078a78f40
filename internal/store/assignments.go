package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/timer"
)

// CreateAssignment inserts an assignment and its empty statistics row in one transaction.
func (s *gormStore) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(a).Error; err != nil {
			return fmt.Errorf("failed to create assignment: %w", translate(err))
		}
		a.Statistic.AssignmentID = a.ID
		if err := tx.Create(&a.Statistic).Error; err != nil {
			return fmt.Errorf("failed to create statistics for assignment %s: %w", a.ID, translate(err))
		}
		return nil
	})
}

// GetAssignment loads one of the user's assignments with its statistics in a single query.
func (s *gormStore) GetAssignment(ctx context.Context, userID int64, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := s.db.WithContext(ctx).
		Joins("Statistic").
		Where("assignments.id = ? AND assignments.user_id = ?", id, userID).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	if a.Statistic.ID == 0 {
		return nil, fmt.Errorf("%w: assignment %s has no statistics row", ErrIntegrity, a.ID)
	}
	return &a, nil
}

// ListAssignments returns the user's assignments, oldest first.
func (s *gormStore) ListAssignments(ctx context.Context, userID int64) ([]model.Assignment, error) {
	var list []model.Assignment
	err := s.db.WithContext(ctx).
		Joins("Statistic").
		Where("assignments.user_id = ?", userID).
		Order("assignments.created_at, assignments.id").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	for _, a := range list {
		if a.Statistic.ID == 0 {
			return nil, fmt.Errorf("%w: assignment %s has no statistics row", ErrIntegrity, a.ID)
		}
	}
	return list, nil
}

// MutateAssignment locks one assignment and its statistics, hands them to fn
// and writes back whatever fn left in place. An error from fn rolls the
// transaction back and is returned unchanged.
func (s *gormStore) MutateAssignment(ctx context.Context, userID int64, id string, fn func(a *model.Assignment) error) (*model.Assignment, error) {
	var result model.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Assignment
		if err := locking(tx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
			return translate(err)
		}
		if err := locking(tx).Where("assignment_id = ?", a.ID).First(&a.Statistic).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: assignment %s has no statistics row", ErrIntegrity, a.ID)
			}
			return err
		}

		if err := fn(&a); err != nil {
			return err
		}

		if err := saveAssignment(tx, &a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func saveAssignment(tx *gorm.DB, a *model.Assignment) error {
	if err := tx.Model(&model.Assignment{}).Where("id = ?", a.ID).Updates(map[string]any{
		"title":                a.Title,
		"max_duration_seconds": a.MaxDurationSeconds,
		"state":                a.State,
	}).Error; err != nil {
		return fmt.Errorf("failed to update assignment %s: %w", a.ID, translate(err))
	}

	st := &a.Statistic
	if err := tx.Model(&model.AssignmentStatistic{}).Where("id = ?", st.ID).Updates(map[string]any{
		"start_time":        st.StartTime,
		"elapsed_seconds":   st.ElapsedSeconds,
		"remaining_seconds": st.RemainingSeconds,
		"last_paused_time":  st.LastPausedTime,
		"last_resumed_time": st.LastResumedTime,
		"end_time":          st.EndTime,
		"pause_count":       st.PauseCount,
	}).Error; err != nil {
		return fmt.Errorf("failed to update statistics of assignment %s: %w", a.ID, translate(err))
	}
	return nil
}

// DeleteAssignment removes one of the user's assignments and its statistics.
func (s *gormStore) DeleteAssignment(ctx context.Context, userID int64, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Assignment
		if err := locking(tx).Select("id").Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
			return translate(err)
		}
		return deleteAssignmentRows(tx, []string{a.ID})
	})
}

func deleteAssignmentRows(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("assignment_id IN ?", ids).Delete(&model.AssignmentStatistic{}).Error; err != nil {
		return fmt.Errorf("failed to delete assignment statistics: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Assignment{}).Error; err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}

// ListRunningAssignments returns every running assignment that has not yet
// triggered a lapse notification.
func (s *gormStore) ListRunningAssignments(ctx context.Context) ([]model.Assignment, error) {
	var list []model.Assignment
	err := s.db.WithContext(ctx).
		Joins("Statistic").
		Where(`assignments.state = ? AND "Statistic".id IS NOT NULL AND "Statistic".lapse_notified_at IS NULL`, string(timer.StateRunning)).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list running assignments: %w", err)
	}
	return list, nil
}

// MarkLapseNotified records that the lapse notification went out. It reports
// false when another caller marked the assignment first.
func (s *gormStore) MarkLapseNotified(ctx context.Context, assignmentID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.AssignmentStatistic{}).
		Where("assignment_id = ? AND lapse_notified_at IS NULL", assignmentID).
		Update("lapse_notified_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark assignment %s as notified: %w", assignmentID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClearLapseNotified drops the lapse marker so the assignment is reported again.
func (s *gormStore) ClearLapseNotified(ctx context.Context, assignmentID string) error {
	err := s.db.WithContext(ctx).
		Model(&model.AssignmentStatistic{}).
		Where("assignment_id = ?", assignmentID).
		Update("lapse_notified_at", nil).Error
	if err != nil {
		return fmt.Errorf("failed to clear lapse marker of assignment %s: %w", assignmentID, err)
	}
	return nil
}
