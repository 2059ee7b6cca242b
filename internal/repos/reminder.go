package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

type ReminderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, reminders []*types.Reminder) ([]*types.Reminder, error)
	HasActive(ctx context.Context, tx *gorm.DB, customerID int64) (bool, error)
	// ActiveCustomerIDs returns the set of customers with at least one
	// active reminder, used as a scoring exclusion predicate.
	ActiveCustomerIDs(ctx context.Context, tx *gorm.DB) (map[int64]bool, error)
}

type reminderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReminderRepo(db *gorm.DB, baseLog *logger.Logger) ReminderRepo {
	repoLog := baseLog.With("repo", "ReminderRepo")
	return &reminderRepo{db: db, log: repoLog}
}

func (rr *reminderRepo) Create(ctx context.Context, tx *gorm.DB, reminders []*types.Reminder) ([]*types.Reminder, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(reminders) == 0 {
		return []*types.Reminder{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (rr *reminderRepo) HasActive(ctx context.Context, tx *gorm.DB, customerID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Reminder{}).
		Where("customer_id = ? AND status = ?", customerID, types.ReminderActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rr *reminderRepo) ActiveCustomerIDs(ctx context.Context, tx *gorm.DB) (map[int64]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var ids []int64
	if err := transaction.WithContext(ctx).
		Model(&types.Reminder{}).
		Where("status = ?", types.ReminderActive).
		Distinct().
		Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}

	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
