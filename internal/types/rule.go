package types

// RuleStatus is the lifecycle state of a structured lender rule.
type RuleStatus string

const (
	RuleDraft      RuleStatus = "draft"
	RuleActive     RuleStatus = "active"
	RuleDeprecated RuleStatus = "deprecated"
)

// RuleRecord is a structured eligibility rule extracted from a lender
// guideline document. Nil threshold pointers mean "no constraint"; empty
// allowed-value slices mean "any".
type RuleRecord struct {
	ID         string
	DocumentID string
	Lender     string
	Program    string

	FicoMin *int
	FicoMax *int
	LTVMax  *float64
	LoanMin *float64
	LoanMax *float64
	DTIMax  *float64

	Purposes      []string
	Occupancies   []string
	PropertyTypes []string
	DocTypes      []string

	Notes     string
	Footnotes []string
	Status    RuleStatus
}

// BoundsValid reports the min<=max invariant for the numeric thresholds
// that carry both ends. Rules violating it must not be activated.
func (r RuleRecord) BoundsValid() bool {
	if r.FicoMin != nil && r.FicoMax != nil && *r.FicoMin > *r.FicoMax {
		return false
	}
	if r.LoanMin != nil && r.LoanMax != nil && *r.LoanMin > *r.LoanMax {
		return false
	}
	return true
}
