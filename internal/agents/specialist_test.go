package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"owly/internal/llm"
	"owly/internal/rules"
	"owly/internal/types"
)

func specialistFixture(client llm.Client, searcher *mockSearcher, lookup *mockChunkLookup, ruleSource *mockRuleSource) *Specialist {
	if searcher == nil {
		searcher = &mockSearcher{}
	}
	if lookup == nil {
		lookup = &mockChunkLookup{}
	}
	if ruleSource == nil {
		ruleSource = &mockRuleSource{}
	}
	return NewSpecialist("Angel Oak", client, searcher, rules.NewMatcher(ruleSource), lookup, 20)
}

func TestSpecialistErrorVariantKeepsLender(t *testing.T) {
	client := &mockClient{fn: func(req llm.Request) (string, error) {
		return "", errors.New("timeout")
	}}
	s := specialistFixture(client, nil, nil, nil)

	result := s.Analyze(context.Background(), types.Facts{"fico": 700})
	if !result.Failed() {
		t.Fatal("expected error variant")
	}
	if result.Lender != "Angel Oak" {
		t.Errorf("error variant lost lender identity: %q", result.Lender)
	}
	if len(result.Eligible) != 0 {
		t.Error("error variant must carry no findings")
	}
}

func TestSpecialistForcesLenderIdentity(t *testing.T) {
	client := &mockClient{fn: func(req llm.Request) (string, error) {
		return `{"lender": "Somebody Else", "eligible_products": [{"program": "Bank Statement", "status": "eligible", "max_ltv": 85}], "summary": "Good fit"}`, nil
	}}
	s := specialistFixture(client, nil, nil, nil)

	result := s.Analyze(context.Background(), types.Facts{"doc_type": "bank_statement"})
	if result.Failed() {
		t.Fatalf("unexpected failure: %s", result.Err)
	}
	if result.Lender != "Angel Oak" {
		t.Errorf("lender identity must be authoritative: %q", result.Lender)
	}
	if len(result.Eligible) != 1 || result.Eligible[0].MaxLTV != 85 {
		t.Errorf("findings not decoded: %+v", result.Eligible)
	}
}

func TestSpecialistCitations(t *testing.T) {
	min := 660
	client := &mockClient{fn: func(req llm.Request) (string, error) {
		return `{"summary": "ok"}`, nil
	}}
	searcher := &mockSearcher{passages: []types.Passage{
		{ID: "c1", Content: "matrix", Lender: "Angel Oak", Filename: "ao.pdf"},
	}}
	ruleSource := &mockRuleSource{rules: []types.RuleRecord{
		{ID: "r1", Lender: "Angel Oak", Program: "Bank Statement", FicoMin: &min},
		{ID: "r2", Lender: "Angel Oak"},
	}}
	s := specialistFixture(client, searcher, nil, ruleSource)

	result := s.Analyze(context.Background(), types.Facts{"fico": 700})
	if len(result.Citations) != 3 {
		t.Fatalf("got %d citations, want 3: %+v", len(result.Citations), result.Citations)
	}
	if result.Citations[0].SourceID != "spec-Angel Oak-1" || result.Citations[0].Kind != types.CitationPassage {
		t.Errorf("passage citation: %+v", result.Citations[0])
	}
	if result.Citations[1].Ref != "Bank Statement" || result.Citations[1].Kind != types.CitationRule {
		t.Errorf("rule citation ref: %+v", result.Citations[1])
	}
	if result.Citations[2].Ref != "Standard" {
		t.Errorf("program-less rule citation should use Standard: %+v", result.Citations[2])
	}
}

func TestSpecialistDirectLookupFallback(t *testing.T) {
	client := &mockClient{fn: func(req llm.Request) (string, error) {
		return `{"summary": "ok"}`, nil
	}}
	lookup := &mockChunkLookup{passages: []types.Passage{
		{ID: "c1", Content: "guidelines", Lender: "Angel Oak", Filename: "ao.pdf"},
	}}
	s := specialistFixture(client, &mockSearcher{}, lookup, nil)

	result := s.Analyze(context.Background(), types.Facts{})
	if len(result.Citations) != 1 {
		t.Errorf("direct lookup passages should be cited: %+v", result.Citations)
	}
}

func TestSpecialistSearchesOwnLenderOnly(t *testing.T) {
	client := &mockClient{fn: func(req llm.Request) (string, error) {
		return `{"summary": "ok"}`, nil
	}}
	searcher := &mockSearcher{passages: []types.Passage{{ID: "c1", Lender: "Angel Oak"}}}
	s := specialistFixture(client, searcher, nil, nil)

	s.Analyze(context.Background(), types.Facts{})
	if len(searcher.filters) != 1 || searcher.filters[0] != "Angel Oak" {
		t.Errorf("specialist retrieval must be lender-scoped: %v", searcher.filters)
	}
}

func TestRunSpecialistsTimeoutIsolation(t *testing.T) {
	fast := &mockClient{fn: func(req llm.Request) (string, error) {
		return `{"eligible_products": [{"program": "DSCR", "status": "eligible"}], "summary": "fine"}`, nil
	}}
	specialists := []*Specialist{
		NewSpecialist("Slow Lender", &hangingClient{}, &mockSearcher{}, rules.NewMatcher(&mockRuleSource{}), &mockChunkLookup{}, 5),
		NewSpecialist("Fast Lender", fast, &mockSearcher{}, rules.NewMatcher(&mockRuleSource{}), &mockChunkLookup{}, 5),
	}

	results := RunSpecialists(context.Background(), specialists, types.Facts{"fico": 700}, 100*time.Millisecond)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Failed() {
		t.Error("hanging specialist should produce the error variant")
	}
	if results[0].Lender != "Slow Lender" {
		t.Errorf("error variant lender = %q", results[0].Lender)
	}
	if results[1].Failed() {
		t.Errorf("fast specialist should succeed: %s", results[1].Err)
	}
	if len(results[1].Eligible) != 1 {
		t.Errorf("fast specialist findings lost: %+v", results[1])
	}
}

func TestRunSpecialistsEmpty(t *testing.T) {
	results := RunSpecialists(context.Background(), nil, types.Facts{}, time.Second)
	if len(results) != 0 {
		t.Errorf("got %d results for no specialists", len(results))
	}
}
