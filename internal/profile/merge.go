// Package profile implements the incremental profile-merge engine: a pure
// function combining an existing customer profile with LLM-extracted facts
// and an updated narrative summary.
package profile

import (
	"sort"
	"strings"
	"time"

	"github.com/yungbote/pianocrm-backend/internal/funnel"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

// MergeResult carries the updated profile fields plus the purchased
// products that were not yet stored for this customer. New products are
// written to the child table by the caller, not merged into the row.
type MergeResult struct {
	Profile     types.CustomerProfile
	NewProducts []string
}

// Merge produces the next profile state. It is deterministic and performs
// no I/O; calling it twice with the same inputs yields the same result.
//
// existingProducts is the customer's already-stored purchased-product set,
// used for exact-match dedup of facts.PurchasedProducts.
func Merge(old types.CustomerProfile, existingProducts []string, facts FactExtraction, summary string, now time.Time) MergeResult {
	next := old

	// The summarizer contract requires the new summary to be a superset of
	// the old one; the engine replaces wholesale and trusts that contract.
	next.DialogueSummary = strings.TrimSpace(summary)

	next.ActivityFlag = mergeActivity(facts.ClientActivity)
	next.QualificationTags = mergeQualificationTags(old.QualificationTags, facts.LeadQualification)
	next.FunnelStage = mergeFunnelStage(old.FunnelStage, facts.FunnelStage)

	next.Emails = unionSorted(old.Emails, facts.Emails)
	next.LearnerLevels = unionSorted(old.LearnerLevels, facts.ClientLevels)
	next.LearningGoals = unionSorted(old.LearningGoals, facts.LearningGoals)
	next.PainPoints = unionSorted(old.PainPoints, facts.ClientPains)

	next.LastUpdated = now.UTC()

	return MergeResult{
		Profile:     next,
		NewProducts: diffProducts(existingProducts, facts.PurchasedProducts),
	}
}

func mergeActivity(assessed string) string {
	if assessed == types.ActivityActive {
		return types.ActivityActive
	}
	return types.ActivityPassive
}

// mergeQualificationTags keeps the sticky customer tag and replaces the
// temperature tag. Temperature is a point-in-time judgment: a valid new
// assessment supersedes the old tag entirely, an absent or unknown one
// retains it.
func mergeQualificationTags(old []string, assessed string) []string {
	assessed = strings.ToLower(strings.TrimSpace(assessed))

	customer := assessed == types.TagCustomer
	for _, tag := range old {
		if tag == types.TagCustomer {
			customer = true
			break
		}
	}

	temperature := ""
	if isTemperature(assessed) {
		temperature = assessed
	} else {
		temperature = previousTemperature(old)
	}

	var out []string
	if customer {
		out = append(out, types.TagCustomer)
	}
	if temperature != "" {
		out = append(out, temperature)
	}
	return out
}

func isTemperature(tag string) bool {
	return tag == types.TagCold || tag == types.TagWarm || tag == types.TagHot
}

// previousTemperature picks the retained temperature tag. Profiles written
// before the single-temperature rule may carry several; dedup in priority
// order hot > warm > cold.
func previousTemperature(tags []string) string {
	for _, want := range []string{types.TagHot, types.TagWarm, types.TagCold} {
		for _, tag := range tags {
			if tag == want {
				return want
			}
		}
	}
	return ""
}

func mergeFunnelStage(old, assessed string) string {
	return funnel.Advance(old, strings.TrimSpace(assessed))
}

// unionSorted is the set union of both inputs, sorted ascending for
// deterministic storage. Old members are never dropped.
func unionSorted(old []string, add []string) []string {
	seen := make(map[string]bool, len(old)+len(add))
	out := make([]string, 0, len(old)+len(add))
	for _, lists := range [][]string{old, add} {
		for _, v := range lists {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// diffProducts returns extracted products not already stored for the
// customer, deduplicated by exact string match, sorted.
func diffProducts(existing []string, extracted []string) []string {
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p] = true
	}

	var out []string
	for _, p := range extracted {
		p = strings.TrimSpace(p)
		if p == "" || have[p] {
			continue
		}
		have[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
