// Package coverage implements the PAE coverage-rule chain: an ordered list
// of billing rules that decides, for each successive appointment under an
// external payer, how the fee splits between the payer and the client.
//
// Everything in this package is pure. Rule chains are loaded from the payer
// record and evaluated in memory without mutation.
package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// IVACReimbursementPercent is the program-wide IVAC reimbursement rate.
// IVAC coverage is not rule-based; the program pays this fixed share of
// every covered appointment.
const IVACReimbursementPercent = 100

// RuleKind discriminates the coverage rule variants.
type RuleKind string

const (
	// RuleFreeAppointments covers the next Count appointments in full.
	RuleFreeAppointments RuleKind = "free_appointments"

	// RuleSharedCost splits the fee by percentage from FromAppointment
	// onward.
	RuleSharedCost RuleKind = "shared_cost"

	// RuleFixedClientAmount charges the client a flat per-appointment fee
	// from FromAppointment onward, the payer covering the remainder.
	RuleFixedClientAmount RuleKind = "fixed_client_amount"

	// RuleIncludedServices fully covers appointments whose service name is
	// listed, regardless of appointment index.
	RuleIncludedServices RuleKind = "included_services"
)

var (
	ErrUnknownRuleKind = errors.New("unknown coverage rule kind")
	ErrInvalidRule     = errors.New("invalid coverage rule")
)

// Rule is one entry of a payer's coverage chain. Kind selects the variant;
// only the fields of that variant are meaningful. Order defines evaluation
// sequence, ties are broken by slice position.
type Rule struct {
	Kind  RuleKind `json:"kind"`
	Order int      `json:"order"`

	// RuleFreeAppointments
	Count int `json:"count,omitempty"`

	// RuleSharedCost / RuleFixedClientAmount
	FromAppointment int `json:"from_appointment,omitempty"`

	// RuleSharedCost
	PAEPercent int `json:"pae_percent,omitempty"`

	// RuleFixedClientAmount
	ClientAmountCents int64 `json:"client_amount_cents,omitempty"`

	// RuleIncludedServices
	Services []string `json:"services,omitempty"`
}

// Validate checks the variant fields for the rule's kind.
func (r Rule) Validate() error {
	if r.Order < 1 {
		return fmt.Errorf("%w: order must be >= 1, got %d", ErrInvalidRule, r.Order)
	}

	switch r.Kind {
	case RuleFreeAppointments:
		if r.Count < 1 {
			return fmt.Errorf("%w: free appointment count must be >= 1, got %d", ErrInvalidRule, r.Count)
		}
	case RuleSharedCost:
		if r.FromAppointment < 1 {
			return fmt.Errorf("%w: from_appointment must be >= 1, got %d", ErrInvalidRule, r.FromAppointment)
		}
		if r.PAEPercent < 0 || r.PAEPercent > 100 {
			return fmt.Errorf("%w: pae_percent must be within 0-100, got %d", ErrInvalidRule, r.PAEPercent)
		}
	case RuleFixedClientAmount:
		if r.FromAppointment < 1 {
			return fmt.Errorf("%w: from_appointment must be >= 1, got %d", ErrInvalidRule, r.FromAppointment)
		}
		if r.ClientAmountCents < 0 {
			return fmt.Errorf("%w: client amount must be >= 0, got %d", ErrInvalidRule, r.ClientAmountCents)
		}
	case RuleIncludedServices:
		if len(r.Services) == 0 {
			return fmt.Errorf("%w: included services list is empty", ErrInvalidRule)
		}
		for _, s := range r.Services {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%w: included service name is blank", ErrInvalidRule)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRuleKind, r.Kind)
	}

	return nil
}

// matchesService reports whether the rule's service list contains name.
// Comparison ignores case and surrounding whitespace.
func (r Rule) matchesService(name string) bool {
	if r.Kind != RuleIncludedServices {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, s := range r.Services {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

// ValidateChain validates every rule of a chain.
func ValidateChain(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// sortedByOrder returns a copy of rules sorted by ascending Order. The
// sort is stable so equal orders keep their original slice position.
func sortedByOrder(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// DecodeRules parses a stored JSON rule chain.
func DecodeRules(data []byte) ([]Rule, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode rule chain: %w", err)
	}
	return rules, nil
}

// EncodeRules serializes a rule chain for storage after validating it.
func EncodeRules(rules []Rule) ([]byte, error) {
	if err := ValidateChain(rules); err != nil {
		return nil, err
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("encode rule chain: %w", err)
	}
	return data, nil
}
