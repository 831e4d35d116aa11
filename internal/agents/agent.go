// Package agents implements the three-stage analysis pipeline: a leader
// that pre-filters the lender universe, per-lender specialists that run
// deep eligibility analysis concurrently, and an evaluator that compares
// specialist findings into a ranked recommendation.
package agents

import (
	"fmt"
	"strings"

	"owly/internal/types"
)

// scenarioLabels maps attributes to prompt labels, in presentation order.
var scenarioLabels = []struct {
	key   string
	label string
}{
	{types.AttrState, "State"},
	{types.AttrLoanPurpose, "Loan Purpose"},
	{types.AttrOccupancy, "Occupancy"},
	{types.AttrPropertyType, "Property Type"},
	{types.AttrLoanAmount, "Loan Amount"},
	{types.AttrLTV, "LTV"},
	{types.AttrFico, "FICO Score"},
	{types.AttrDocType, "Documentation Type"},
	{types.AttrCreditEvents, "Credit Events"},
}

// formatScenario renders facts as a readable prompt block.
func formatScenario(facts types.Facts) string {
	var lines []string
	for _, f := range scenarioLabels {
		if !facts.Has(f.key) {
			continue
		}
		value := facts.String(f.key)
		switch f.key {
		case types.AttrLoanAmount:
			if n, ok := facts.Float(f.key); ok {
				value = fmt.Sprintf("$%.0f", n)
			}
		case types.AttrLTV:
			value += "%"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", f.label, value))
	}
	if len(lines) == 0 {
		return "No scenario details provided"
	}
	return strings.Join(lines, "\n")
}

// formatRules renders structured rules as a prompt block.
func formatRules(rules []types.RuleRecord) string {
	if len(rules) == 0 {
		return "No structured eligibility rules available."
	}
	var lines []string
	for i, rule := range rules {
		if i >= 10 {
			break
		}
		program := rule.Program
		if program == "" {
			program = "Standard"
		}
		line := "- Program: " + program
		if rule.FicoMin != nil {
			line += fmt.Sprintf(", FICO %d+", *rule.FicoMin)
		}
		if rule.LTVMax != nil {
			line += fmt.Sprintf(", Max LTV %.0f%%", *rule.LTVMax)
		}
		if len(rule.DocTypes) > 0 {
			line += ", Doc Types: " + strings.Join(rule.DocTypes, ", ")
		}
		if len(rule.Purposes) > 0 {
			line += ", Purposes: " + strings.Join(rule.Purposes, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most n bytes for prompt context.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
