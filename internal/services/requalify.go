package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/pianocrm-backend/internal/platform/envutil"
	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/profile"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

// CycleConfig bounds one merge cycle. WindowSize is the number of recent
// messages fed to the LLM collaborators; KeepCount is the retention bound
// for stored dialogue rows.
type CycleConfig struct {
	WindowSize int
	KeepCount  int
	LLMTimeout time.Duration
}

func CycleConfigFromEnv() CycleConfig {
	return CycleConfig{
		WindowSize: envutil.Int("CRM_WINDOW_SIZE", 15),
		KeepCount:  envutil.Int("CRM_KEEP_COUNT", 30),
		LLMTimeout: envutil.Seconds("CRM_LLM_TIMEOUT_SECONDS", 45*time.Second),
	}
}

// CycleResult reports a finished merge cycle. Skipped is the benign
// no-op: zero new messages, nothing read or written beyond phase 1.
type CycleResult struct {
	Skipped           bool
	FunnelStage       string
	QualificationTags []string
	ActivityFlag      string
	DialogueSummary   string
	NewProducts       []string
	WindowSize        int
	TrimmedRows       int64
}

// RequalifyService orchestrates the three-phase merge protocol:
//
//  1. unlocked read of the profile and the recent message window,
//  2. LLM calls with no database connection held,
//  3. one transaction that re-reads the row under an exclusive lock,
//     merges against that fresh state, writes, trims history, commits.
//
// Re-reading under lock means a concurrent writer's changes between
// phases 1 and 3 are never silently overwritten; only the facts/summary
// are based on a slightly stale window, which cannot lose data because
// messages are append-only.
type RequalifyService struct {
	db         *gorm.DB
	log        *logger.Logger
	profiles   repos.ProfileRepo
	dialogues  repos.DialogueRepo
	products   repos.ProductRepo
	summarizer Summarizer
	extractor  FactExtractor
	cfg        CycleConfig
}

func NewRequalifyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	dialogues repos.DialogueRepo,
	products repos.ProductRepo,
	summarizer Summarizer,
	extractor FactExtractor,
	cfg CycleConfig,
) *RequalifyService {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 15
	}
	if cfg.KeepCount <= 0 {
		cfg.KeepCount = 30
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 45 * time.Second
	}
	return &RequalifyService{
		db:         db,
		log:        baseLog.With("service", "RequalifyService"),
		profiles:   profiles,
		dialogues:  dialogues,
		products:   products,
		summarizer: summarizer,
		extractor:  extractor,
		cfg:        cfg,
	}
}

func (s *RequalifyService) Run(ctx context.Context, customerID int64) (CycleResult, error) {
	log := s.log.With("customer_id", customerID)

	// Phase 1: unlocked snapshot. No locks are held while the LLM calls run.
	snapshot, err := s.profiles.GetByCustomerID(ctx, nil, customerID)
	if err != nil {
		return CycleResult{}, &PersistenceError{Phase: "read", Err: err}
	}
	if snapshot == nil {
		return CycleResult{}, &ProfileNotFoundError{CustomerID: customerID}
	}

	window, err := s.dialogues.GetRecentWindow(ctx, nil, customerID, s.cfg.WindowSize)
	if err != nil {
		return CycleResult{}, &PersistenceError{Phase: "read", Err: err}
	}
	if len(window) == 0 {
		log.Info("No new messages, skipping merge cycle")
		return CycleResult{Skipped: true}, nil
	}

	// Phase 2: external calls against the unlocked snapshot.
	summary, err := s.summarize(ctx, snapshot.DialogueSummary, window)
	if err != nil {
		return CycleResult{}, &ExternalServiceError{Op: "summarize", Err: err}
	}
	facts, err := s.extract(ctx, window)
	if err != nil {
		return CycleResult{}, &ExternalServiceError{Op: "extract_facts", Err: err}
	}

	// The summarizer promises a superset of the old summary; shrinkage is
	// only flagged, never rejected.
	if len(summary) < len(snapshot.DialogueSummary)*6/10 {
		log.Warn("New summary is much shorter than the previous one",
			"old_len", len(snapshot.DialogueSummary),
			"new_len", len(summary),
		)
	}

	// Phase 3: locked merge-write. The merge runs against the freshly
	// locked row, not the phase-1 snapshot.
	var result CycleResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.profiles.GetByCustomerIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if locked == nil {
			return &ProfileNotFoundError{CustomerID: customerID}
		}

		existingProducts, err := s.products.ListNames(ctx, tx, customerID)
		if err != nil {
			return err
		}

		merged := profile.Merge(*locked, existingProducts, facts, summary, time.Now())

		updates := map[string]interface{}{
			"qualification_tags": merged.Profile.QualificationTags,
			"funnel_stage":       merged.Profile.FunnelStage,
			"learner_levels":     merged.Profile.LearnerLevels,
			"learning_goals":     merged.Profile.LearningGoals,
			"pain_points":        merged.Profile.PainPoints,
			"emails":             merged.Profile.Emails,
			"dialogue_summary":   merged.Profile.DialogueSummary,
			"activity_flag":      merged.Profile.ActivityFlag,
			"last_updated":       merged.Profile.LastUpdated,
		}
		if err := s.profiles.UpdateFields(ctx, tx, customerID, updates); err != nil {
			return err
		}

		if err := s.products.Append(ctx, tx, customerID, merged.NewProducts); err != nil {
			return err
		}

		trimmed, err := s.trimHistory(ctx, tx, customerID)
		if err != nil {
			return err
		}

		result = CycleResult{
			FunnelStage:       merged.Profile.FunnelStage,
			QualificationTags: merged.Profile.QualificationTags,
			ActivityFlag:      merged.Profile.ActivityFlag,
			DialogueSummary:   merged.Profile.DialogueSummary,
			NewProducts:       merged.NewProducts,
			WindowSize:        len(window),
			TrimmedRows:       trimmed,
		}
		return nil
	})
	if txErr != nil {
		var notFound *ProfileNotFoundError
		if errors.As(txErr, &notFound) {
			return CycleResult{}, notFound
		}
		return CycleResult{}, &PersistenceError{Phase: "write", Err: txErr}
	}

	log.Info("Merge cycle committed",
		"funnel_stage", result.FunnelStage,
		"tags", result.QualificationTags,
		"new_products", len(result.NewProducts),
		"window", result.WindowSize,
		"trimmed_rows", result.TrimmedRows,
	)
	return result, nil
}

func (s *RequalifyService) summarize(ctx context.Context, existing string, window []*types.DialogueMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()
	return s.summarizer.Summarize(callCtx, existing, window)
}

func (s *RequalifyService) extract(ctx context.Context, window []*types.DialogueMessage) (profile.FactExtraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()
	return s.extractor.Extract(callCtx, window)
}

// trimHistory deletes rows strictly older than the keep_count-th most
// recent message. With fewer than keep_count messages there is no cutoff
// and nothing is deleted.
func (s *RequalifyService) trimHistory(ctx context.Context, tx *gorm.DB, customerID int64) (int64, error) {
	cutoff, err := s.dialogues.RetentionCutoff(ctx, tx, customerID, s.cfg.KeepCount)
	if err != nil {
		return 0, err
	}
	if cutoff == nil {
		return 0, nil
	}
	return s.dialogues.DeleteOlderThan(ctx, tx, customerID, *cutoff)
}
