package types

import "testing"

func TestFactsHas(t *testing.T) {
	f := Facts{
		"fico":      float64(740),
		"state":     "california",
		"ltv":       nil,
		"doc_type":  "",
		"occupancy": "  ",
	}

	if !f.Has("fico") {
		t.Error("expected fico to be known")
	}
	if !f.Has("state") {
		t.Error("expected state to be known")
	}
	if f.Has("ltv") {
		t.Error("nil value should mean unknown")
	}
	if f.Has("doc_type") {
		t.Error("empty string should mean unknown")
	}
	if f.Has("occupancy") {
		t.Error("blank string should mean unknown")
	}
	if f.Has("loan_amount") {
		t.Error("absent key should mean unknown")
	}
}

func TestFactsIntParsing(t *testing.T) {
	f := Facts{
		"fico":        float64(740),
		"loan_amount": "$450,000",
		"ltv":         "80%",
		"state":       "california",
	}

	if n, ok := f.Int("fico"); !ok || n != 740 {
		t.Errorf("fico = %d, %v; want 740, true", n, ok)
	}
	if n, ok := f.Int("loan_amount"); !ok || n != 450000 {
		t.Errorf("loan_amount = %d, %v; want 450000, true", n, ok)
	}
	if n, ok := f.Int("ltv"); !ok || n != 80 {
		t.Errorf("ltv = %d, %v; want 80, true", n, ok)
	}
	if _, ok := f.Int("state"); ok {
		t.Error("non-numeric string should not parse as int")
	}
	if _, ok := f.Int("missing"); ok {
		t.Error("absent key should not parse as int")
	}
}

func TestFactsFloatParsing(t *testing.T) {
	f := Facts{"ltv": "82.5%", "fico": 700}

	if v, ok := f.Float("ltv"); !ok || v != 82.5 {
		t.Errorf("ltv = %v, %v; want 82.5, true", v, ok)
	}
	if v, ok := f.Float("fico"); !ok || v != 700 {
		t.Errorf("fico = %v, %v; want 700, true", v, ok)
	}
}

func TestFactsCloneIndependence(t *testing.T) {
	orig := Facts{"fico": 740}
	clone := orig.Clone()
	clone["fico"] = 600
	clone["state"] = "texas"

	if v, _ := orig.Int("fico"); v != 740 {
		t.Errorf("clone mutation leaked into original: fico = %d", v)
	}
	if orig.Has("state") {
		t.Error("clone mutation leaked into original: state present")
	}

	var nilFacts Facts
	if got := nilFacts.Clone(); got == nil {
		t.Error("Clone of nil should return an empty map")
	}
}

func TestEntitiesClean(t *testing.T) {
	e := Entities{
		"fico":         float64(680),
		"state":        nil,
		"loan_purpose": "",
		"lender_asked": "Angel Oak",
	}

	cleaned := e.Clean()
	if len(cleaned) != 2 {
		t.Fatalf("cleaned has %d entries, want 2", len(cleaned))
	}
	if _, ok := cleaned["state"]; ok {
		t.Error("nil entity survived Clean")
	}
	if _, ok := cleaned["loan_purpose"]; ok {
		t.Error("blank entity survived Clean")
	}
}

func TestEntitiesFactValuesDropsAskContext(t *testing.T) {
	e := Entities{
		"fico":               float64(680),
		"lender_asked":       "Angel Oak",
		"product_type_asked": "dscr",
	}

	facts := e.FactValues()
	if !facts.Has("fico") {
		t.Error("fico should carry into facts")
	}
	if facts.Has("lender_asked") || facts.Has("product_type_asked") {
		t.Error("ask-context keys must never merge into facts")
	}
}

func TestEntitiesProductTypeAskedFallsBackToDocType(t *testing.T) {
	e := Entities{"doc_type": "bank_statement"}
	if got := e.ProductTypeAsked(); got != "bank_statement" {
		t.Errorf("ProductTypeAsked = %q, want doc_type fallback", got)
	}

	e["product_type_asked"] = "dscr"
	if got := e.ProductTypeAsked(); got != "dscr" {
		t.Errorf("ProductTypeAsked = %q, want explicit value to win", got)
	}
}
