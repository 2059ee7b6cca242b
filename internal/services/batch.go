package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/pianocrm-backend/internal/funnel"
	"github.com/yungbote/pianocrm-backend/internal/platform/envutil"
	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
)

// BatchReport summarizes one bulk requalification run. Per-customer
// failures never abort the batch; they are counted and logged.
type BatchReport struct {
	Selected           int
	Succeeded          int
	Skipped            int
	Failed             int
	RemindersScheduled int
}

// BatchService fans merge cycles out over the scoring module's selection.
// Cycles run concurrently across distinct customers only; same-customer
// races are already handled by the transaction manager's row lock.
type BatchService struct {
	log           *logger.Logger
	scoring       *ScoringService
	requalify     *RequalifyService
	reminders     *ReminderService
	concurrency   int
	followUpDelay time.Duration
}

func NewBatchService(
	baseLog *logger.Logger,
	scoring *ScoringService,
	requalify *RequalifyService,
	reminders *ReminderService,
) *BatchService {
	concurrency := envutil.Int("CRM_BATCH_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchService{
		log:           baseLog.With("service", "BatchService"),
		scoring:       scoring,
		requalify:     requalify,
		reminders:     reminders,
		concurrency:   concurrency,
		followUpDelay: envutil.Seconds("CRM_FOLLOWUP_DELAY_SECONDS", 24*time.Hour),
	}
}

func (s *BatchService) Run(ctx context.Context) (BatchReport, error) {
	ids, err := s.scoring.SelectBatch(ctx)
	if err != nil {
		return BatchReport{}, err
	}

	var succeeded, skipped, failed, scheduled atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		customerID := id
		g.Go(func() error {
			result, err := s.requalify.Run(gctx, customerID)
			if err != nil {
				failed.Add(1)
				s.logCycleFailure(customerID, err)
				return nil
			}
			if result.Skipped {
				skipped.Add(1)
				return nil
			}
			succeeded.Add(1)

			// A customer sitting on an unpaid invoice gets a nudge.
			if result.FunnelStage == funnel.StagePaymentPending {
				if _, err := s.reminders.Schedule(gctx, customerID, s.followUpDelay, result.DialogueSummary); err != nil {
					s.log.Warn("Failed to schedule follow-up reminder",
						"customer_id", customerID,
						"error", err,
					)
					return nil
				}
				scheduled.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	report := BatchReport{
		Selected:           len(ids),
		Succeeded:          int(succeeded.Load()),
		Skipped:            int(skipped.Load()),
		Failed:             int(failed.Load()),
		RemindersScheduled: int(scheduled.Load()),
	}
	s.log.Info("Batch requalification finished",
		"selected", report.Selected,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"reminders", report.RemindersScheduled,
	)
	return report, nil
}

func (s *BatchService) logCycleFailure(customerID int64, err error) {
	var notFound *ProfileNotFoundError
	if errors.As(err, &notFound) {
		s.log.Warn("Batch entry has no profile", "customer_id", customerID)
		return
	}
	s.log.Error("Batch merge cycle failed", "customer_id", customerID, "error", err)
}
