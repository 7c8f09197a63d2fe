package coverage

import "math"

// SplitKind describes how a CostSplit divides the fee.
type SplitKind string

const (
	// SplitFullyCovered: payer pays the whole fee.
	SplitFullyCovered SplitKind = "fully_covered"

	// SplitPercentage: payer pays PayerPercent, client the remainder.
	SplitPercentage SplitKind = "percentage"

	// SplitFlatFee: client pays ClientAmountCents, payer the remainder.
	SplitFlatFee SplitKind = "flat_fee"

	// SplitClientPays: no rule matched, the client pays everything.
	SplitClientPays SplitKind = "client_pays"
)

// CostSplit is the outcome of evaluating one appointment against a rule
// chain.
type CostSplit struct {
	Kind SplitKind `json:"kind"`

	// PayerPercent / ClientPercent describe percentage-based splits and
	// always sum to 100 for those kinds. Zero for SplitFlatFee.
	PayerPercent  int `json:"payer_percent"`
	ClientPercent int `json:"client_percent"`

	// ClientAmountCents is the flat per-appointment client fee for
	// SplitFlatFee.
	ClientAmountCents int64 `json:"client_amount_cents,omitempty"`

	// RuleOrder is the Order of the matched rule, 0 when none matched.
	RuleOrder int `json:"rule_order,omitempty"`
}

// Amounts applies the split to an appointment fee and returns the payer
// and client shares in cents. Shares are non-negative and always sum to
// feeCents: percentage splits round the payer share down and give the
// client the remainder; a flat fee larger than the fee is clamped.
func (s CostSplit) Amounts(feeCents int64) (payerCents, clientCents int64) {
	if feeCents <= 0 {
		return 0, 0
	}

	switch s.Kind {
	case SplitFullyCovered:
		return feeCents, 0
	case SplitPercentage:
		payerCents = feeCents * int64(s.PayerPercent) / 100
		return payerCents, feeCents - payerCents
	case SplitFlatFee:
		clientCents = s.ClientAmountCents
		if clientCents > feeCents {
			clientCents = feeCents
		}
		return feeCents - clientCents, clientCents
	default:
		return 0, feeCents
	}
}

// unbounded marks an open-ended coverage span.
const unbounded = math.MaxInt

// span is the inclusive 1-based index range one rule governs.
type span struct {
	start, end int
}

func (s span) contains(index int) bool {
	return index >= s.start && (s.end == unbounded || index <= s.end)
}

// EvaluateAppointment determines the cost split for the client's index-th
// appointment (1-based) under the given rule chain. service is the
// appointment's service name, consulted only by included-services rules.
//
// Rules are considered in ascending Order (ties by slice position) and the
// first rule whose coverage includes the appointment wins. Index coverage
// is derived from the chain itself: each free-appointments rule claims the
// next Count indexes after those claimed by earlier free rules, and each
// shared-cost or fixed-amount rule governs from its threshold onward until
// a later-order threshold rule overrides it from a new starting index.
// When nothing matches, the appointment is entirely the client's
// responsibility.
//
// The function is pure: the same chain, index and service always produce
// the same split, and the input slice is never modified.
func EvaluateAppointment(rules []Rule, index int, service string) CostSplit {
	clientPays := CostSplit{Kind: SplitClientPays, ClientPercent: 100}

	if index < 1 || len(rules) == 0 {
		return clientPays
	}

	sorted := sortedByOrder(rules)
	governs := deriveSpans(sorted)

	for i, r := range sorted {
		if r.Kind == RuleIncludedServices {
			if r.matchesService(service) {
				return CostSplit{
					Kind:         SplitFullyCovered,
					PayerPercent: 100,
					RuleOrder:    r.Order,
				}
			}
			continue
		}

		s, ok := governs[i]
		if !ok || !s.contains(index) {
			continue
		}

		switch r.Kind {
		case RuleFreeAppointments:
			return CostSplit{
				Kind:         SplitFullyCovered,
				PayerPercent: 100,
				RuleOrder:    r.Order,
			}
		case RuleSharedCost:
			return CostSplit{
				Kind:          SplitPercentage,
				PayerPercent:  r.PAEPercent,
				ClientPercent: 100 - r.PAEPercent,
				RuleOrder:     r.Order,
			}
		case RuleFixedClientAmount:
			return CostSplit{
				Kind:              SplitFlatFee,
				ClientAmountCents: r.ClientAmountCents,
				RuleOrder:         r.Order,
			}
		}
	}

	return clientPays
}

// deriveSpans computes the index range each rule of the sorted chain
// governs, keyed by position in the sorted slice. Included-services rules
// have no span, they match by service name.
func deriveSpans(sorted []Rule) map[int]span {
	governs := make(map[int]span, len(sorted))
	freeEnd := 0

	for i, r := range sorted {
		switch r.Kind {
		case RuleFreeAppointments:
			if r.Count < 1 {
				continue
			}
			governs[i] = span{start: freeEnd + 1, end: freeEnd + r.Count}
			freeEnd += r.Count

		case RuleSharedCost, RuleFixedClientAmount:
			start := r.FromAppointment
			if start < 1 {
				start = 1
			}
			// A later-order threshold rule takes over from its starting
			// index: truncate earlier spans at start-1, drop those that
			// begin at or past it.
			for j, s := range governs {
				switch {
				case s.start >= start:
					delete(governs, j)
				case s.end == unbounded || s.end >= start:
					s.end = start - 1
					governs[j] = s
				}
			}
			governs[i] = span{start: start, end: unbounded}
		}
	}

	return governs
}
