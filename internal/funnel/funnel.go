// Package funnel encodes the sales-funnel stage lattice consulted by the
// profile merge engine. The scoring service keeps its own weight table for
// batch prioritization; the two orderings intentionally differ and must not
// be collapsed into one constant.
package funnel

const (
	StageNotApplicable  = "not-applicable"
	StageOfferNotMade   = "offer-not-yet-made"
	StageOfferMade      = "offer-made"
	StageNewOffer       = "new-offer-made"
	StageConsidering    = "client-considering"
	StageDeclined       = "purchase-declined"
	StagePaymentPending = "payment-pending"
	StageCompleted      = "purchase-completed"
)

var ranks = map[string]int{
	StageNotApplicable:  0,
	StageOfferNotMade:   1,
	StageOfferMade:      2,
	StageNewOffer:       3,
	StageConsidering:    4,
	StageDeclined:       5,
	StagePaymentPending: 6,
	StageCompleted:      7,
}

// Rank returns the lattice rank of a stage label. Unknown labels rank 0,
// so they never win a forward-progress comparison against a known stage.
func Rank(stage string) int {
	return ranks[stage]
}

func Known(stage string) bool {
	_, ok := ranks[stage]
	return ok
}

// IsTerminal reports whether a stage is one of the two reset stages. A
// terminal stage never blocks a later assessment: once a new signal
// arrives the assessed stage is adopted as-is.
func IsTerminal(stage string) bool {
	return stage == StageCompleted || stage == StageDeclined
}

// Advance decides the resulting stage for an old stage and a freshly
// assessed one.
//
// A missing or not-applicable assessment retains the old stage. The
// new-offer stage always wins, even when it moves backward in the lattice:
// it models offering again after a refusal or after a purchase. Otherwise
// the assessment is adopted only on strict forward progress.
func Advance(old, assessed string) string {
	if assessed == "" || assessed == StageNotApplicable {
		return old
	}
	if assessed == StageNewOffer {
		return assessed
	}
	if IsTerminal(old) {
		return assessed
	}
	if Rank(assessed) > Rank(old) {
		return assessed
	}
	return old
}
