package types

// =============================================================================
// PIPELINE RESULT VARIANTS
// =============================================================================
// One result type per stage. The error variant is folded into each type as
// an Err field so consumers handle failure without inspecting ad hoc keys:
// a result with Err != "" carries no usable analysis.

// CandidateLender is a leader nomination with its supporting reason.
type CandidateLender struct {
	Lender string `json:"lender"`
	Reason string `json:"reason"`
}

// LeaderResult is the pre-filter stage output.
type LeaderResult struct {
	Understanding string            `json:"understanding"`
	TopCandidates []CandidateLender `json:"top_candidates"`
	Reasoning     string            `json:"reasoning"`
	Citations     []Citation        `json:"-"`
	Err           string            `json:"-"`
}

// CandidateNames returns the nominated lender names in order.
func (r LeaderResult) CandidateNames() []string {
	names := make([]string, 0, len(r.TopCandidates))
	for _, c := range r.TopCandidates {
		if c.Lender != "" {
			names = append(names, c.Lender)
		}
	}
	return names
}

// ProductFinding is one product classification from a specialist.
type ProductFinding struct {
	Program     string   `json:"program"`
	Status      string   `json:"status"` // eligible | conditional | not_eligible
	MaxLTV      float64  `json:"max_ltv,omitempty"`
	FicoNote    string   `json:"fico_requirement,omitempty"`
	RateNote    string   `json:"rate_estimate,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Pros        []string `json:"pros,omitempty"`
	Cons        []string `json:"cons,omitempty"`
	Source      string   `json:"source,omitempty"`
	MissingInfo string   `json:"missing_info,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// SpecialistResult is one lender's deep analysis. Err marks the error
// variant: the lender identity is preserved so the evaluator can exclude
// it without losing the cause.
type SpecialistResult struct {
	Lender      string           `json:"lender"`
	Eligible    []ProductFinding `json:"eligible_products"`
	Conditional []ProductFinding `json:"conditional_products"`
	NotEligible []ProductFinding `json:"not_eligible"`
	Summary     string           `json:"summary"`
	Citations   []Citation       `json:"-"`
	Err         string           `json:"-"`
}

// Failed reports whether this is the error variant.
func (r SpecialistResult) Failed() bool { return r.Err != "" }

// Recommendation is the deterministically extracted best product.
type Recommendation struct {
	Lender  string          `json:"lender"`
	Program string          `json:"program"`
	Details *ProductFinding `json:"details,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Alternative is a runner-up product option.
type Alternative struct {
	Lender   string  `json:"lender"`
	Program  string  `json:"program"`
	MaxLTV   float64 `json:"max_ltv,omitempty"`
	RateNote string  `json:"rate_estimate,omitempty"`
}

// EvaluatorResult is the comparison stage output. Analysis holds the
// narrative recommendation; Recommendation and Alternatives are computed
// deterministically and may disagree with the narrative (the two views
// are deliberately both preserved).
type EvaluatorResult struct {
	Recommendation *Recommendation `json:"recommendation"`
	Alternatives   []Alternative   `json:"alternatives"`
	Analysis       string          `json:"analysis"`
	Citations      []Citation      `json:"-"`
	Err            string          `json:"-"`
}
