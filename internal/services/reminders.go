package services

import (
	"context"
	"time"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

// ReminderService creates follow-up reminders. Delivery is a downstream
// concern; this service only writes the row.
type ReminderService struct {
	log  *logger.Logger
	repo repos.ReminderRepo
}

func NewReminderService(baseLog *logger.Logger, repo repos.ReminderRepo) *ReminderService {
	return &ReminderService{
		log:  baseLog.With("service", "ReminderService"),
		repo: repo,
	}
}

func (s *ReminderService) Schedule(ctx context.Context, customerID int64, delay time.Duration, contextSummary string) (*types.Reminder, error) {
	reminder := &types.Reminder{
		CustomerID:     customerID,
		ScheduledAt:    time.Now().UTC().Add(delay),
		ContextSummary: contextSummary,
		Status:         types.ReminderActive,
	}

	created, err := s.repo.Create(ctx, nil, []*types.Reminder{reminder})
	if err != nil {
		return nil, err
	}

	s.log.Info("Reminder scheduled",
		"customer_id", customerID,
		"scheduled_at", reminder.ScheduledAt,
	)
	return created[0], nil
}
