// Package types defines the shared vocabulary for the eligibility engine:
// scenario facts, lender rules, retrieved passages, citations, and the
// result shapes exchanged between pipeline stages.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Scenario attribute names. The order of AttributeOrder is canonical: it
// drives both the missing-field report and follow-up question priority.
const (
	AttrState        = "state"
	AttrLoanPurpose  = "loan_purpose"
	AttrOccupancy    = "occupancy"
	AttrPropertyType = "property_type"
	AttrLoanAmount   = "loan_amount"
	AttrLTV          = "ltv"
	AttrFico         = "fico"
	AttrDocType      = "doc_type"
	AttrCreditEvents = "credit_events"
)

// AttributeOrder is the fixed scenario attribute vocabulary.
var AttributeOrder = []string{
	AttrState,
	AttrLoanPurpose,
	AttrOccupancy,
	AttrPropertyType,
	AttrLoanAmount,
	AttrLTV,
	AttrFico,
	AttrDocType,
	AttrCreditEvents,
}

// FieldDescriptions maps attribute names to loan-officer-facing labels.
var FieldDescriptions = map[string]string{
	AttrState:        "property state",
	AttrLoanPurpose:  "loan purpose (purchase/refi/cash-out)",
	AttrOccupancy:    "occupancy type (primary/investment/second home)",
	AttrPropertyType: "property type (SFR/condo/multi-unit)",
	AttrLoanAmount:   "loan amount",
	AttrLTV:          "LTV percentage",
	AttrFico:         "credit score",
	AttrDocType:      "income documentation type",
	AttrCreditEvents: "recent credit events",
}

// IsAttribute reports whether name belongs to the fixed vocabulary.
func IsAttribute(name string) bool {
	for _, a := range AttributeOrder {
		if a == name {
			return true
		}
	}
	return false
}

// Facts is a scenario fact map keyed by the fixed attribute vocabulary.
// An absent or nil value means "unknown", never "empty string".
type Facts map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (f Facts) Clone() Facts {
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether key carries a known (non-nil, non-empty) value.
func (f Facts) Has(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// String returns the value for key rendered as a string, or "" if unknown.
func (f Facts) String(key string) string {
	if !f.Has(key) {
		return ""
	}
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Int returns the value for key as an int. JSON numbers arrive as
// float64; string digits (possibly with $ or commas) are accepted too.
func (f Facts) Int(key string) (int, bool) {
	if !f.Has(key) {
		return 0, false
	}
	switch v := f[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(v))
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Float returns the value for key as a float64.
func (f Facts) Float(key string) (float64, bool) {
	if !f.Has(key) {
		return 0, false
	}
	switch v := f[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(v))
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Entities holds values pulled out of a message by the intent classifier.
// Keys include the fact vocabulary plus ask-context keys such as
// "product_type_asked" and "lender_asked" that never merge into facts.
type Entities map[string]any

// Clean returns a copy with nil and blank values removed.
func (e Entities) Clean() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// FactValues returns only the entries whose key belongs to the fact
// vocabulary, cleaned. Ask-context keys are dropped.
func (e Entities) FactValues() Facts {
	out := Facts{}
	for k, v := range e.Clean() {
		if IsAttribute(k) {
			out[k] = v
		}
	}
	return out
}

// LenderAsked returns the lender the user asked about, if any.
func (e Entities) LenderAsked() string {
	if v, ok := e["lender_asked"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// ProductTypeAsked returns the product type the user asked about, falling
// back to the doc_type entity the way the source conversation flow does.
func (e Entities) ProductTypeAsked() string {
	if v, ok := e["product_type_asked"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := e["doc_type"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
