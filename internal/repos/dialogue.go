package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

type DialogueRepo interface {
	Append(ctx context.Context, tx *gorm.DB, messages []*types.DialogueMessage) ([]*types.DialogueMessage, error)
	// GetRecentWindow returns the most recent `limit` messages for the
	// customer, ordered oldest-to-newest within the window.
	GetRecentWindow(ctx context.Context, tx *gorm.DB, customerID int64, limit int) ([]*types.DialogueMessage, error)
	// RetentionCutoff returns the created_at of the keepCount-th most recent
	// message (0-indexed offset keepCount-1), or nil when fewer than
	// keepCount messages exist.
	RetentionCutoff(ctx context.Context, tx *gorm.DB, customerID int64, keepCount int) (*time.Time, error)
	// DeleteOlderThan removes rows strictly older than cutoff.
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, customerID int64, cutoff time.Time) (int64, error)
	CountByCustomer(ctx context.Context, tx *gorm.DB, customerID int64) (int64, error)
}

type dialogueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDialogueRepo(db *gorm.DB, baseLog *logger.Logger) DialogueRepo {
	repoLog := baseLog.With("repo", "DialogueRepo")
	return &dialogueRepo{db: db, log: repoLog}
}

func (dr *dialogueRepo) Append(ctx context.Context, tx *gorm.DB, messages []*types.DialogueMessage) ([]*types.DialogueMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	if len(messages) == 0 {
		return []*types.DialogueMessage{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (dr *dialogueRepo) GetRecentWindow(ctx context.Context, tx *gorm.DB, customerID int64, limit int) ([]*types.DialogueMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	if limit <= 0 {
		return []*types.DialogueMessage{}, nil
	}

	var newestFirst []*types.DialogueMessage
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&newestFirst).Error; err != nil {
		return nil, err
	}

	// Reverse to oldest-first so prompts read chronologically.
	out := make([]*types.DialogueMessage, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

func (dr *dialogueRepo) RetentionCutoff(ctx context.Context, tx *gorm.DB, customerID int64, keepCount int) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	if keepCount <= 0 {
		return nil, nil
	}

	var rows []*types.DialogueMessage
	if err := transaction.WithContext(ctx).
		Select("created_at").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Offset(keepCount - 1).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cutoff := rows[0].CreatedAt
	return &cutoff, nil
}

func (dr *dialogueRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, customerID int64, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	res := transaction.WithContext(ctx).
		Where("customer_id = ? AND created_at < ?", customerID, cutoff).
		Delete(&types.DialogueMessage{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (dr *dialogueRepo) CountByCustomer(ctx context.Context, tx *gorm.DB, customerID int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DialogueMessage{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
