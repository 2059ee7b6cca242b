package services

import (
	"context"
	"sort"
	"strings"

	"github.com/yungbote/pianocrm-backend/internal/funnel"
	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/scoringcfg"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

// Scoring weight tables. The funnel weights are NOT the merge lattice in
// the funnel package: batch prioritization orders stages differently
// (payment-pending first, completed purchases last) and the two tables
// must stay independent.
var warmthScores = map[string]int{
	types.TagHot:      4,
	types.TagCustomer: 3,
	types.TagWarm:     2,
	types.TagCold:     1,
}

var funnelScores = map[string]int{
	funnel.StagePaymentPending: 6,
	funnel.StageConsidering:    5,
	"has-objections":           4,
	funnel.StageOfferMade:      3,
	funnel.StageNewOffer:       2,
	funnel.StageCompleted:      1,
}

// ScoringService selects which customers to reprocess in bulk: a
// deterministic weighted ranking with exclusion predicates applied before
// scoring.
type ScoringService struct {
	log       *logger.Logger
	profiles  repos.ProfileRepo
	products  repos.ProductRepo
	reminders repos.ReminderRepo
	cfg       scoringcfg.Config
}

func NewScoringService(
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	products repos.ProductRepo,
	reminders repos.ReminderRepo,
	cfg scoringcfg.Config,
) *ScoringService {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = scoringcfg.DefaultBatchLimit
	}
	return &ScoringService{
		log:       baseLog.With("service", "ScoringService"),
		profiles:  profiles,
		products:  products,
		reminders: reminders,
		cfg:       cfg,
	}
}

// SelectBatch returns customer ids ordered by total score descending,
// ties broken by customer_id ascending, truncated to the batch limit.
func (s *ScoringService) SelectBatch(ctx context.Context) ([]int64, error) {
	profiles, err := s.profiles.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	withReminder, err := s.reminders.ActiveCustomerIDs(ctx, nil)
	if err != nil {
		return nil, err
	}
	productsByCustomer, err := s.products.ListNamesByCustomer(ctx, nil)
	if err != nil {
		return nil, err
	}

	selected := rankCandidates(profiles, withReminder, productsByCustomer, s.cfg.PremiumBundleFragments, s.cfg.BatchLimit)

	s.log.Info("Scoring batch selected",
		"population", len(profiles),
		"selected", len(selected),
		"limit", s.cfg.BatchLimit,
	)
	return selected, nil
}

type scoredCandidate struct {
	customerID int64
	total      int
}

func rankCandidates(
	profiles []*types.CustomerProfile,
	withReminder map[int64]bool,
	productsByCustomer map[int64][]string,
	premiumFragments []string,
	limit int,
) []int64 {
	candidates := make([]scoredCandidate, 0, len(profiles))
	for _, p := range profiles {
		if withReminder[p.CustomerID] {
			continue
		}
		if hasPremiumBundle(productsByCustomer[p.CustomerID], premiumFragments) {
			continue
		}
		candidates = append(candidates, scoredCandidate{
			customerID: p.CustomerID,
			total:      warmthScore(p.QualificationTags) + funnelScore(p.FunnelStage),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].total != candidates[j].total {
			return candidates[i].total > candidates[j].total
		}
		return candidates[i].customerID < candidates[j].customerID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]int64, len(candidates))
	for i, c := range candidates {
		out[i] = c.customerID
	}
	return out
}

// warmthScore takes the best-scoring tag; a profile with no recognized
// tag scores the cold baseline.
func warmthScore(tags []string) int {
	best := 1
	for _, tag := range tags {
		if v, ok := warmthScores[tag]; ok && v > best {
			best = v
		}
	}
	return best
}

func funnelScore(stage string) int {
	return funnelScores[stage]
}

func hasPremiumBundle(products []string, fragments []string) bool {
	if len(products) == 0 || len(fragments) == 0 {
		return false
	}
	for _, product := range products {
		lowered := strings.ToLower(product)
		for _, fragment := range fragments {
			fragment = strings.ToLower(strings.TrimSpace(fragment))
			if fragment == "" {
				continue
			}
			if strings.Contains(lowered, fragment) {
				return true
			}
		}
	}
	return false
}
