// Package rules implements the deterministic filter-and-score pass over
// structured lender rules. It supplements LLM judgment with exact
// threshold checks the model cannot be trusted to do arithmetic on.
package rules

import (
	"sort"
	"strings"

	"owly/internal/logging"
	"owly/internal/types"
)

// Source supplies active rule records.
type Source interface {
	ActiveRules(lender string) ([]types.RuleRecord, error)
}

// Matcher filters and scores rules against scenario facts.
type Matcher struct {
	source Source
}

// NewMatcher creates a Matcher over a rule source.
func NewMatcher(source Source) *Matcher {
	return &Matcher{source: source}
}

// Match returns the active rules compatible with the facts, best match
// first. Rules scoring zero are dropped. Any source failure yields an
// empty list so the conversation flow continues.
func (m *Matcher) Match(facts types.Facts) []types.RuleRecord {
	timer := logging.StartTimer(logging.CategoryRules, "Match")
	defer timer.Stop()

	all, err := m.source.ActiveRules("")
	if err != nil {
		logging.Get(logging.CategoryRules).Error("Match: rule load failed: %v", err)
		return nil
	}

	type scored struct {
		rule  types.RuleRecord
		score int
	}
	var candidates []scored
	for _, rule := range all {
		if !passesThresholds(rule, facts) {
			continue
		}
		if s := scoreRule(rule, facts); s > 0 {
			candidates = append(candidates, scored{rule: rule, score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]types.RuleRecord, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.rule)
	}
	logging.Rules("Match: %d/%d rules matched", len(out), len(all))
	return out
}

// ByLender returns one lender's active rules. Empty on failure.
func (m *Matcher) ByLender(lender string) []types.RuleRecord {
	rules, err := m.source.ActiveRules(lender)
	if err != nil {
		logging.Get(logging.CategoryRules).Error("ByLender(%s): rule load failed: %v", lender, err)
		return nil
	}
	return rules
}

// passesThresholds applies the hard numeric filters. A constraint absent
// from either side is skipped.
func passesThresholds(rule types.RuleRecord, facts types.Facts) bool {
	if fico, ok := facts.Int(types.AttrFico); ok {
		if rule.FicoMin != nil && fico < *rule.FicoMin {
			return false
		}
		if rule.FicoMax != nil && fico > *rule.FicoMax {
			return false
		}
	}
	if ltv, ok := facts.Float(types.AttrLTV); ok {
		if rule.LTVMax != nil && ltv > *rule.LTVMax {
			return false
		}
	}
	if amount, ok := facts.Float(types.AttrLoanAmount); ok {
		if rule.LoanMin != nil && amount < *rule.LoanMin {
			return false
		}
		if rule.LoanMax != nil && amount > *rule.LoanMax {
			return false
		}
	}
	return true
}

// scoreRule ranks how well a rule matches the facts. Higher is better.
func scoreRule(rule types.RuleRecord, facts types.Facts) int {
	score := 0

	if matchesAllowed(rule.Purposes, facts.String(types.AttrLoanPurpose)) {
		score += 20
	}
	if matchesAllowed(rule.Occupancies, facts.String(types.AttrOccupancy)) {
		score += 20
	}
	if matchesAllowed(rule.PropertyTypes, facts.String(types.AttrPropertyType)) {
		score += 15
	}
	if matchesAllowed(rule.DocTypes, facts.String(types.AttrDocType)) {
		score += 25
	}

	// FICO comfort: room above the minimum.
	if rule.FicoMin != nil {
		if fico, ok := facts.Int(types.AttrFico); ok && fico >= *rule.FicoMin {
			comfort := (fico - *rule.FicoMin) / 10
			if comfort > 20 {
				comfort = 20
			}
			score += comfort
		}
	}

	// LTV comfort: room below the maximum.
	if rule.LTVMax != nil {
		if ltv, ok := facts.Float(types.AttrLTV); ok && ltv <= *rule.LTVMax {
			comfort := int((*rule.LTVMax - ltv) / 2)
			if comfort > 10 {
				comfort = 10
			}
			score += comfort
		}
	}

	return score
}

// matchesAllowed reports whether value matches any entry of an
// allowed-value set, substring in either direction, case-insensitive.
func matchesAllowed(allowed []string, value string) bool {
	if len(allowed) == 0 || value == "" {
		return false
	}
	v := strings.ToLower(value)
	for _, a := range allowed {
		al := strings.ToLower(a)
		if strings.Contains(v, al) || strings.Contains(al, v) {
			return true
		}
	}
	return false
}
