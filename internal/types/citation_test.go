package types

import "testing"

func TestDedupCitations(t *testing.T) {
	in := []Citation{
		{SourceID: "leader-1", Lender: "Angel Oak", Kind: CitationPassage},
		{SourceID: "spec-angel-1", Lender: "Angel Oak", Kind: CitationPassage},
		{SourceID: "leader-1", Lender: "Angel Oak", Kind: CitationPassage},
		{SourceID: "", Lender: "Deephaven"},
		{SourceID: "rule-deephaven-1", Lender: "Deephaven", Kind: CitationRule},
	}

	out := DedupCitations(in)
	if len(out) != 3 {
		t.Fatalf("got %d citations, want 3", len(out))
	}
	if out[0].SourceID != "leader-1" || out[1].SourceID != "spec-angel-1" || out[2].SourceID != "rule-deephaven-1" {
		t.Errorf("first-seen order not preserved: %+v", out)
	}
}

func TestDedupCitationsEmpty(t *testing.T) {
	if out := DedupCitations(nil); len(out) != 0 {
		t.Errorf("got %d citations from nil input, want 0", len(out))
	}
}

func TestRuleBoundsValid(t *testing.T) {
	lo, hi := 620, 740
	valid := RuleRecord{FicoMin: &lo, FicoMax: &hi}
	if !valid.BoundsValid() {
		t.Error("min < max should be valid")
	}

	inverted := RuleRecord{FicoMin: &hi, FicoMax: &lo}
	if inverted.BoundsValid() {
		t.Error("min > max should be invalid")
	}

	open := RuleRecord{FicoMin: &lo}
	if !open.BoundsValid() {
		t.Error("one-sided bound should be valid")
	}
}
