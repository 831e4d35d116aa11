package types

// CitationKind distinguishes structured-rule citations from retrieved
// document passages.
type CitationKind string

const (
	CitationRule    CitationKind = "rule"
	CitationPassage CitationKind = "passage"
)

// Citation is a structured reference attached to an assistant claim.
type Citation struct {
	SourceID string       `json:"source_id"`
	Lender   string       `json:"lender"`
	Ref      string       `json:"ref"` // document filename or program/section
	Kind     CitationKind `json:"kind"`
}

// DedupCitations removes duplicates by SourceID, preserving first-seen
// order. Citations accumulate across pipeline stages and are deduplicated
// once before being surfaced.
func DedupCitations(citations []Citation) []Citation {
	seen := make(map[string]bool, len(citations))
	out := make([]Citation, 0, len(citations))
	for _, c := range citations {
		if c.SourceID == "" || seen[c.SourceID] {
			continue
		}
		seen[c.SourceID] = true
		out = append(out, c)
	}
	return out
}
