package coverage

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestFormatRuleChainSummaryOrderIndependent(t *testing.T) {
	ordered := []Rule{
		{Kind: RuleFreeAppointments, Order: 1, Count: 3},
		{Kind: RuleSharedCost, Order: 2, FromAppointment: 4, PAEPercent: 50},
		{Kind: RuleIncludedServices, Order: 3, Services: []string{"assessment"}},
	}
	reversed := []Rule{ordered[2], ordered[1], ordered[0]}

	want := FormatRuleChainSummary(ordered)
	if got := FormatRuleChainSummary(reversed); got != want {
		t.Errorf("reversed input produced %q, want %q", got, want)
	}
}

func TestFormatRuleChainSummary(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		want  string
	}{
		{
			name: "free then shared",
			rules: []Rule{
				{Kind: RuleFreeAppointments, Order: 1, Count: 3},
				{Kind: RuleSharedCost, Order: 2, FromAppointment: 4, PAEPercent: 50},
			},
			want: "3 free appointments → then 50% payer / 50% client from appointment 4",
		},
		{
			name: "single free appointment",
			rules: []Rule{
				{Kind: RuleFreeAppointments, Order: 1, Count: 1},
			},
			want: "1 free appointment",
		},
		{
			name:  "empty chain",
			rules: nil,
			want:  "no coverage rules",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRuleChainSummary(tt.rules); got != tt.want {
				t.Errorf("FormatRuleChainSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatRuleChainSummaryGolden(t *testing.T) {
	chains := []struct {
		name  string
		rules []Rule
	}{
		{
			name: "free then shared",
			rules: []Rule{
				{Kind: RuleFreeAppointments, Order: 1, Count: 3},
				{Kind: RuleSharedCost, Order: 2, FromAppointment: 4, PAEPercent: 50},
			},
		},
		{
			name: "free then flat fee",
			rules: []Rule{
				{Kind: RuleFixedClientAmount, Order: 2, FromAppointment: 2, ClientAmountCents: 5000},
				{Kind: RuleFreeAppointments, Order: 1, Count: 1},
			},
		},
		{
			name: "included services only",
			rules: []Rule{
				{Kind: RuleIncludedServices, Order: 1, Services: []string{"massage therapy", "physiotherapy"}},
			},
		},
		{
			name:  "empty chain",
			rules: nil,
		},
		{
			name: "full program",
			rules: []Rule{
				{Kind: RuleFreeAppointments, Order: 1, Count: 2},
				{Kind: RuleFixedClientAmount, Order: 2, FromAppointment: 3, ClientAmountCents: 1500},
				{Kind: RuleSharedCost, Order: 3, FromAppointment: 8, PAEPercent: 25},
				{Kind: RuleIncludedServices, Order: 4, Services: []string{"assessment"}},
			},
		},
	}

	var buf bytes.Buffer
	for _, c := range chains {
		fmt.Fprintf(&buf, "%s: %s\n", c.name, FormatRuleChainSummary(c.rules))
	}

	g := goldie.New(t)
	g.Assert(t, "rule_chain_summaries", buf.Bytes())
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{5000, "$50.00"},
		{123456, "$1234.56"},
		{-250, "-$2.50"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
