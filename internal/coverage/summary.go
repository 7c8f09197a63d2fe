package coverage

import (
	"fmt"
	"strings"
)

// FormatRuleChainSummary renders the chain as one human-readable line,
// one phrase per rule joined with arrows, in the exact order the
// evaluator applies them. Display only, never used for billing math.
func FormatRuleChainSummary(rules []Rule) string {
	if len(rules) == 0 {
		return "no coverage rules"
	}

	sorted := sortedByOrder(rules)
	parts := make([]string, 0, len(sorted))

	for _, r := range sorted {
		phrase := rulePhrase(r)
		if len(parts) > 0 {
			phrase = "then " + phrase
		}
		parts = append(parts, phrase)
	}

	return strings.Join(parts, " → ")
}

func rulePhrase(r Rule) string {
	switch r.Kind {
	case RuleFreeAppointments:
		if r.Count == 1 {
			return "1 free appointment"
		}
		return fmt.Sprintf("%d free appointments", r.Count)
	case RuleSharedCost:
		return fmt.Sprintf("%d%% payer / %d%% client from appointment %d",
			r.PAEPercent, 100-r.PAEPercent, r.FromAppointment)
	case RuleFixedClientAmount:
		return fmt.Sprintf("client pays %s per appointment from appointment %d",
			FormatCents(r.ClientAmountCents), r.FromAppointment)
	case RuleIncludedServices:
		return "covered in full: " + strings.Join(r.Services, ", ")
	default:
		return fmt.Sprintf("unknown rule (%s)", r.Kind)
	}
}

// FormatCents renders a cent amount as dollars, e.g. 5000 -> "$50.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
