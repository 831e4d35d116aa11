package types

// Passage is a retrieved guideline excerpt with lender attribution.
type Passage struct {
	ID          string
	Content     string
	Lender      string
	Filename    string
	SectionPath string
	Similarity  float64
}
