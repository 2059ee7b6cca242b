package profile

import (
	"reflect"
	"testing"
	"time"

	"github.com/yungbote/pianocrm-backend/internal/funnel"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

var mergeTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func tags(p types.CustomerProfile) []string { return p.QualificationTags }

func TestMergeWarmToHotScenario(t *testing.T) {
	old := types.CustomerProfile{
		CustomerID:        42,
		QualificationTags: []string{types.TagWarm},
		FunnelStage:       funnel.StageOfferMade,
		Emails:            []string{"a@x.com"},
	}
	facts := FactExtraction{
		LeadQualification: "hot",
		FunnelStage:       funnel.StageConsidering,
		Emails:            []string{"b@x.com"},
		ClientActivity:    types.ActivityActive,
	}

	got := Merge(old, nil, facts, "summary", mergeTime).Profile

	if want := []string{types.TagHot}; !reflect.DeepEqual(tags(got), want) {
		t.Fatalf("tags=%v, want %v", tags(got), want)
	}
	if got.FunnelStage != funnel.StageConsidering {
		t.Fatalf("stage=%q, want %q", got.FunnelStage, funnel.StageConsidering)
	}
	if want := []string{"a@x.com", "b@x.com"}; !reflect.DeepEqual([]string(got.Emails), want) {
		t.Fatalf("emails=%v, want %v", got.Emails, want)
	}
}

func TestMergeTerminalStageReset(t *testing.T) {
	old := types.CustomerProfile{FunnelStage: funnel.StageCompleted}
	facts := FactExtraction{FunnelStage: funnel.StageOfferMade}

	got := Merge(old, nil, facts, "", mergeTime).Profile
	if got.FunnelStage != funnel.StageOfferMade {
		t.Fatalf("stage=%q, want %q", got.FunnelStage, funnel.StageOfferMade)
	}
}

func TestMergeNoBackwardMovement(t *testing.T) {
	old := types.CustomerProfile{FunnelStage: funnel.StageConsidering}
	facts := FactExtraction{FunnelStage: funnel.StageOfferMade}

	got := Merge(old, nil, facts, "", mergeTime).Profile
	if got.FunnelStage != funnel.StageConsidering {
		t.Fatalf("stage=%q, want %q", got.FunnelStage, funnel.StageConsidering)
	}
}

func TestMergeActivityDefaultsToPassive(t *testing.T) {
	got := Merge(types.CustomerProfile{ActivityFlag: types.ActivityActive}, nil, FactExtraction{}, "", mergeTime).Profile
	if got.ActivityFlag != types.ActivityPassive {
		t.Fatalf("activity=%q, want %q", got.ActivityFlag, types.ActivityPassive)
	}
}

func TestMergeCustomerTagIsSticky(t *testing.T) {
	old := types.CustomerProfile{QualificationTags: []string{types.TagCustomer, types.TagWarm}}

	for _, assessed := range []string{"", "cold", "hot", "не определено", "nonsense"} {
		got := Merge(old, nil, FactExtraction{LeadQualification: assessed}, "", mergeTime).Profile
		found := false
		for _, tag := range tags(got) {
			if tag == types.TagCustomer {
				found = true
			}
		}
		if !found {
			t.Fatalf("assessed=%q: customer tag dropped, tags=%v", assessed, tags(got))
		}
	}
}

func TestMergeQualification(t *testing.T) {
	cases := []struct {
		name     string
		old      []string
		assessed string
		want     []string
	}{
		{
			name:     "temperature_replaced",
			old:      []string{types.TagCold},
			assessed: "hot",
			want:     []string{types.TagHot},
		},
		{
			name:     "unknown_retains_previous",
			old:      []string{types.TagWarm},
			assessed: "не определено",
			want:     []string{types.TagWarm},
		},
		{
			name:     "absent_retains_previous",
			old:      []string{types.TagCold},
			assessed: "",
			want:     []string{types.TagCold},
		},
		{
			name:     "customer_added_keeps_temperature",
			old:      []string{types.TagHot},
			assessed: "customer",
			want:     []string{types.TagCustomer, types.TagHot},
		},
		{
			name:     "legacy_multi_temperature_dedup",
			old:      []string{types.TagCold, types.TagHot, types.TagWarm},
			assessed: "",
			want:     []string{types.TagHot},
		},
		{
			name:     "no_tags_no_assessment",
			old:      nil,
			assessed: "",
			want:     nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			old := types.CustomerProfile{QualificationTags: tc.old}
			got := tags(Merge(old, nil, FactExtraction{LeadQualification: tc.assessed}, "", mergeTime).Profile)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("tags=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeUnionMonotonicity(t *testing.T) {
	old := types.CustomerProfile{
		Emails:        []string{"z@x.com", "a@x.com"},
		LearnerLevels: []string{"beginner"},
		LearningGoals: []string{"play jazz"},
		PainPoints:    []string{"no time"},
	}
	facts := FactExtraction{
		Emails:        []string{"a@x.com", "m@x.com"},
		ClientLevels:  []string{"intermediate"},
		LearningGoals: []string{"play jazz"},
		ClientPains:   []string{"stiff fingers"},
	}

	got := Merge(old, nil, facts, "", mergeTime).Profile

	checks := []struct {
		name   string
		before []string
		after  []string
	}{
		{"emails", old.Emails, got.Emails},
		{"learner_levels", old.LearnerLevels, got.LearnerLevels},
		{"learning_goals", old.LearningGoals, got.LearningGoals},
		{"pain_points", old.PainPoints, got.PainPoints},
	}
	for _, c := range checks {
		if len(c.after) < len(c.before) {
			t.Fatalf("%s shrank: %v -> %v", c.name, c.before, c.after)
		}
		member := make(map[string]bool, len(c.after))
		for _, v := range c.after {
			member[v] = true
		}
		for _, v := range c.before {
			if !member[v] {
				t.Fatalf("%s lost %q: %v", c.name, v, c.after)
			}
		}
	}

	if want := []string{"a@x.com", "m@x.com", "z@x.com"}; !reflect.DeepEqual([]string(got.Emails), want) {
		t.Fatalf("emails not sorted: %v, want %v", got.Emails, want)
	}
}

func TestMergeIdempotent(t *testing.T) {
	old := types.CustomerProfile{
		CustomerID:        7,
		QualificationTags: []string{types.TagWarm},
		FunnelStage:       funnel.StageOfferMade,
		Emails:            []string{"a@x.com"},
		LearnerLevels:     []string{"beginner"},
	}
	facts := FactExtraction{
		LeadQualification: "hot",
		FunnelStage:       funnel.StageConsidering,
		Emails:            []string{"b@x.com"},
		ClientLevels:      []string{"intermediate"},
		PurchasedProducts: []string{"Intro Course"},
		ClientActivity:    types.ActivityActive,
	}
	existing := []string{"Trial Lesson"}

	first := Merge(old, existing, facts, "new summary", mergeTime)
	second := Merge(old, existing, facts, "new summary", mergeTime)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("merge is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestMergeSummaryAndTimestamp(t *testing.T) {
	got := Merge(types.CustomerProfile{DialogueSummary: "old"}, nil, FactExtraction{}, "  new summary  ", mergeTime).Profile
	if got.DialogueSummary != "new summary" {
		t.Fatalf("summary=%q, want %q", got.DialogueSummary, "new summary")
	}
	if !got.LastUpdated.Equal(mergeTime) {
		t.Fatalf("last_updated=%v, want %v", got.LastUpdated, mergeTime)
	}
	if got.LastUpdated.Location() != time.UTC {
		t.Fatalf("last_updated not UTC: %v", got.LastUpdated.Location())
	}
}

func TestMergeNewProducts(t *testing.T) {
	existing := []string{"Trial Lesson", "Intro Course"}
	facts := FactExtraction{
		PurchasedProducts: []string{"Intro Course", "Jazz Masterclass", "Jazz Masterclass", " ", "Chord Pack"},
	}

	got := Merge(types.CustomerProfile{}, existing, facts, "", mergeTime)

	if want := []string{"Chord Pack", "Jazz Masterclass"}; !reflect.DeepEqual(got.NewProducts, want) {
		t.Fatalf("new products=%v, want %v", got.NewProducts, want)
	}
}
