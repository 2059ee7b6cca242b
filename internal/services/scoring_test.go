package services

import (
	"reflect"
	"testing"

	"github.com/yungbote/pianocrm-backend/internal/funnel"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

func candidate(id int64, stage string, tags ...string) *types.CustomerProfile {
	return &types.CustomerProfile{
		CustomerID:        id,
		FunnelStage:       stage,
		QualificationTags: tags,
	}
}

func TestRankCandidatesOrdering(t *testing.T) {
	profiles := []*types.CustomerProfile{
		candidate(1, funnel.StageCompleted, types.TagCold),     // 1 + 1 = 2
		candidate(2, funnel.StagePaymentPending, types.TagHot), // 4 + 6 = 10
		candidate(3, funnel.StageConsidering, types.TagWarm),   // 2 + 5 = 7
		candidate(4, "has-objections", types.TagCustomer),      // 3 + 4 = 7
		candidate(5, funnel.StageOfferNotMade),                 // 1 + 0 = 1
	}

	got := rankCandidates(profiles, nil, nil, nil, 0)
	if want := []int64{2, 3, 4, 1, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking=%v, want %v", got, want)
	}
}

func TestRankCandidatesTiebreakByCustomerID(t *testing.T) {
	profiles := []*types.CustomerProfile{
		candidate(30, funnel.StageOfferMade, types.TagWarm),
		candidate(10, funnel.StageOfferMade, types.TagWarm),
		candidate(20, funnel.StageOfferMade, types.TagWarm),
	}

	got := rankCandidates(profiles, nil, nil, nil, 0)
	if want := []int64{10, 20, 30}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking=%v, want %v", got, want)
	}
}

func TestRankCandidatesLimit(t *testing.T) {
	profiles := []*types.CustomerProfile{
		candidate(1, funnel.StagePaymentPending, types.TagHot),
		candidate(2, funnel.StageConsidering, types.TagHot),
		candidate(3, funnel.StageOfferMade, types.TagHot),
	}

	got := rankCandidates(profiles, nil, nil, nil, 2)
	if want := []int64{1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking=%v, want %v", got, want)
	}
}

func TestRankCandidatesExclusions(t *testing.T) {
	profiles := []*types.CustomerProfile{
		candidate(1, funnel.StagePaymentPending, types.TagHot),
		candidate(2, funnel.StagePaymentPending, types.TagHot),
		candidate(3, funnel.StagePaymentPending, types.TagHot),
	}
	withReminder := map[int64]bool{1: true}
	products := map[int64][]string{
		2: {"Trial Lesson", "PREMIUM Maestro Bundle"},
		3: {"Trial Lesson"},
	}

	got := rankCandidates(profiles, withReminder, products, []string{"premium"}, 0)
	if want := []int64{3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking=%v, want %v", got, want)
	}
}

func TestWarmthScoreTakesBestTag(t *testing.T) {
	cases := []struct {
		name string
		tags []string
		want int
	}{
		{"no_tags_cold_baseline", nil, 1},
		{"unrecognized_tag_cold_baseline", []string{"vip"}, 1},
		{"hot_beats_customer", []string{types.TagCustomer, types.TagHot}, 4},
		{"customer_beats_warm", []string{types.TagWarm, types.TagCustomer}, 3},
		{"cold_only", []string{types.TagCold}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := warmthScore(tc.tags); got != tc.want {
				t.Fatalf("warmthScore(%v)=%d, want %d", tc.tags, got, tc.want)
			}
		})
	}
}

func TestHasPremiumBundle(t *testing.T) {
	fragments := []string{"premium", "maestro bundle"}

	cases := []struct {
		name     string
		products []string
		want     bool
	}{
		{"no_products", nil, false},
		{"no_match", []string{"Trial Lesson"}, false},
		{"case_insensitive_substring", []string{"Annual PREMIUM plan"}, true},
		{"second_fragment", []string{"The Maestro Bundle 2026"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasPremiumBundle(tc.products, fragments); got != tc.want {
				t.Fatalf("hasPremiumBundle(%v)=%v, want %v", tc.products, got, tc.want)
			}
		})
	}

	if hasPremiumBundle([]string{"Premium Plan"}, nil) {
		t.Fatal("no fragments configured: expected false")
	}
}
