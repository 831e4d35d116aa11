package chat

import (
	"context"
	"strings"
	"testing"

	"owly/internal/agents"
	"owly/internal/config"
	"owly/internal/rules"
	"owly/internal/types"
)

const (
	markerIntent      = "intent classifier"
	markerExtraction  = "extracts mortgage loan scenario information"
	markerLeader      = "Lead Analyst"
	markerSpecialist  = "specialist agent"
	markerEvaluator   = "Comparison Analyst"
	markerGeneral     = "general question"
	markerProduct     = "specific products or lenders"
	markerEligibility = "eligibility question"
)

type serviceFixture struct {
	service  *Service
	store    *memStore
	searcher *stubSearcher
	client   *routeClient
}

func newServiceFixture(t *testing.T, routes map[string]string, lenders []string) *serviceFixture {
	t.Helper()
	st := newMemStore()
	client := &routeClient{routes: routes}
	searcher := &stubSearcher{}
	ruleSource := &stubRuleSource{}
	cfg := config.DefaultAgentsConfig()

	factory := agents.NewFactory(client, searcher, rules.NewMatcher(ruleSource),
		&stubChunkLookup{}, &stubLenderSource{lenders: lenders}, cfg)
	svc := NewService(st, client, searcher, ruleSource, &stubStats{}, factory, cfg)

	return &serviceFixture{service: svc, store: st, searcher: searcher, client: client}
}

func classification(intent string, entities string) string {
	if entities == "" {
		entities = "{}"
	}
	return `{"intent": "` + intent + `", "confidence": 0.9, "extracted_entities": ` + entities + `}`
}

func TestProcessMessageSummaryRoute(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent: classification("summary_request", ""),
	}, nil)
	fx.store.seed("conv-a", types.Facts{"fico": 720, "state": "CA"}, nil)

	resp := fx.service.ProcessMessage(context.Background(), "what do you know so far?", "conv-a")

	if !strings.Contains(resp.Response, "Client Profile") {
		t.Errorf("summary response missing profile: %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "Confidence Level") {
		t.Errorf("summary response missing confidence: %q", resp.Response)
	}
	if resp.ConversationID != "conv-a" {
		t.Errorf("conversation id = %q", resp.ConversationID)
	}
	if got, _ := resp.Facts.Int("fico"); got != 720 {
		t.Errorf("summary must not change facts: %v", resp.Facts)
	}
}

func TestProcessMessageGeneralQuestionRoute(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:  classification("general_question", ""),
		markerGeneral: "We currently cover 6 lenders.",
	}, nil)

	resp := fx.service.ProcessMessage(context.Background(), "how many lenders do you have?", "")

	if resp.Response != "We currently cover 6 lenders." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.ConversationID == "" {
		t.Error("a new conversation should be created")
	}
}

func TestProcessMessageProductSearchCarriesLenderContext(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:  classification("product_search", `{"product_type_asked": "bank statement", "lender_asked": "Angel Oak"}`),
		markerProduct: "Angel Oak offers bank statement loans [1].",
	}, nil)
	fx.searcher.passages = []types.Passage{{Lender: "Angel Oak", Filename: "ao.pdf", Content: "Bank statement program."}}

	resp := fx.service.ProcessMessage(context.Background(), "what about their bank statement program?", "")

	filters := fx.searcher.seenFilters()
	if len(filters) != 1 || filters[0] != "Angel Oak" {
		t.Errorf("product search should carry the lender filter, saw %v", filters)
	}
	if len(resp.Citations) == 0 {
		t.Error("expected passage citations")
	}
}

func TestProcessMessageEligibilityCheckIgnoresLenderContext(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:      classification("eligibility_check", `{"fico": 700, "lender_asked": "Angel Oak"}`),
		markerEligibility: "**Yes**, that scenario can work [1].",
	}, nil)
	fx.searcher.passages = []types.Passage{{Lender: "Deephaven", Filename: "dh.pdf", Content: "DSCR up to 8 units."}}

	resp := fx.service.ProcessMessage(context.Background(), "does anyone allow 700 fico on dscr?", "")

	filters := fx.searcher.seenFilters()
	if len(filters) != 1 || filters[0] != "" {
		t.Errorf("eligibility checks must search the full corpus, saw %v", filters)
	}
	if got, ok := resp.Facts.Int("fico"); !ok || got != 700 {
		t.Errorf("eligibility entities should merge into facts: %v", resp.Facts)
	}
}

func TestProcessMessageOnboardingWhenNoAnchorFacts(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:     classification("scenario_input", ""),
		markerExtraction: `{"state": "CA"}`,
	}, []string{"Angel Oak"})

	resp := fx.service.ProcessMessage(context.Background(), "the property is in California", "")

	if !strings.Contains(resp.Response, "I'm Owly") {
		t.Errorf("expected onboarding response, got %q", resp.Response)
	}
	if got := resp.Facts.String("state"); got != "CA" {
		t.Errorf("extracted facts should still be kept: %v", resp.Facts)
	}
}

func TestProcessMessagePreliminaryAnalysis(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:     classification("scenario_input", ""),
		markerExtraction: `{"fico": 700}`,
		markerLeader:     `{"understanding": "700 FICO borrower", "top_candidates": [{"lender": "Angel Oak", "reason": "broad credit box"}]}`,
	}, []string{"Angel Oak"})

	resp := fx.service.ProcessMessage(context.Background(), "client has a 700 score", "")

	if !strings.Contains(resp.Response, "Preliminary Analysis") {
		t.Fatalf("expected preliminary tier, got %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "Angel Oak") {
		t.Errorf("candidate missing from response: %q", resp.Response)
	}
	if resp.Confidence >= 70 {
		t.Errorf("confidence = %d, expected below the pipeline gate", resp.Confidence)
	}
	if len(resp.MissingFields) == 0 {
		t.Error("missing fields should be reported at the preliminary tier")
	}
}

func TestProcessMessageNoLendersLoaded(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:     classification("scenario_input", ""),
		markerExtraction: `{"fico": 750}`,
	}, nil)

	resp := fx.service.ProcessMessage(context.Background(), "750 fico", "")

	if !strings.Contains(resp.Response, "No lender guidelines are loaded") {
		t.Errorf("expected the empty-corpus guidance, got %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "Excellent credit") {
		t.Errorf("expected the 740+ band guidance, got %q", resp.Response)
	}
}

func completeScenario() string {
	return `{"state": "CA", "loan_purpose": "purchase", "occupancy": "investment",
		"property_type": "SFR", "loan_amount": 400000, "ltv": 80, "fico": 740,
		"doc_type": "bank statement"}`
}

func TestProcessMessageFullPipeline(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:     classification("scenario_input", ""),
		markerExtraction: completeScenario(),
		markerLeader:     `{"understanding": "Complete investor scenario", "top_candidates": [{"lender": "Angel Oak", "reason": "bank statement fit"}]}`,
		markerSpecialist: `{"lender": "Angel Oak", "eligible_products": [{"program": "Bank Statement", "status": "eligible", "max_ltv": 80, "source": "ao.pdf"}], "summary": "Good fit"}`,
		markerEvaluator:  "Angel Oak Bank Statement is the recommended option.",
	}, []string{"Angel Oak"})

	resp := fx.service.ProcessMessage(context.Background(), "full scenario details", "")

	if resp.Confidence < 70 {
		t.Fatalf("confidence = %d, expected pipeline gate reached", resp.Confidence)
	}
	if !strings.Contains(resp.Response, "Angel Oak Bank Statement is the recommended option.") {
		t.Errorf("narrative missing: %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "Client Profile") {
		t.Errorf("profile footer missing: %q", resp.Response)
	}
	if len(resp.Citations) == 0 {
		t.Error("pipeline citations missing")
	}
	for i, c := range resp.Citations {
		for _, other := range resp.Citations[i+1:] {
			if c.SourceID == other.SourceID {
				t.Errorf("duplicate citation %q survived dedup", c.SourceID)
			}
		}
	}
}

func TestProcessMessageAllSpecialistsFailed(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:     classification("scenario_input", ""),
		markerExtraction: completeScenario(),
		markerLeader:     `{"understanding": "Complete investor scenario", "top_candidates": [{"lender": "Angel Oak", "reason": "fit"}]}`,
	}, []string{"Angel Oak"})
	fx.client.errOn = markerSpecialist
	fx.client.routes[markerSpecialist] = "unused"

	resp := fx.service.ProcessMessage(context.Background(), "full scenario details", "")

	if !strings.Contains(resp.Response, "could not complete the analysis") {
		t.Errorf("expected the all-failed message, got %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "Complete investor scenario") {
		t.Errorf("leader understanding should still be shown: %q", resp.Response)
	}
}

func TestProcessMessagePanicPreservesPriorFacts(t *testing.T) {
	st := newMemStore()
	st.seed("conv-p", types.Facts{"fico": 700, "state": "TX"}, nil)
	cfg := config.DefaultAgentsConfig()
	client := &panicClient{}
	searcher := &stubSearcher{}
	ruleSource := &stubRuleSource{}
	factory := agents.NewFactory(client, searcher, rules.NewMatcher(ruleSource),
		&stubChunkLookup{}, &stubLenderSource{}, cfg)
	svc := NewService(st, client, searcher, ruleSource, &stubStats{}, factory, cfg)

	resp := svc.ProcessMessage(context.Background(), "anything", "conv-p")

	if !strings.Contains(resp.Response, "unexpected problem") {
		t.Errorf("expected the apology response, got %q", resp.Response)
	}
	if got, _ := resp.Facts.Int("fico"); got != 700 {
		t.Errorf("prior facts must survive the panic: %v", resp.Facts)
	}
	if resp.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", resp.Confidence)
	}
	if resp.ConversationID != "conv-p" {
		t.Errorf("conversation id = %q", resp.ConversationID)
	}
}

func TestProcessMessageStorageFailureStillResponds(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerIntent:  classification("general_question", ""),
		markerGeneral: "Still here.",
	}, nil)
	fx.store.createErr = errTest
	fx.store.appendErr = errTest

	resp := fx.service.ProcessMessage(context.Background(), "hello?", "")

	if resp.Response != "Still here." {
		t.Errorf("turn should degrade, not fail: %q", resp.Response)
	}
	if resp.ConversationID != "" {
		t.Errorf("unpersisted conversation should carry no id, got %q", resp.ConversationID)
	}
}

func TestProcessMessageClassifierFailureFallsBackToScenario(t *testing.T) {
	fx := newServiceFixture(t, map[string]string{
		markerExtraction: `{}`,
	}, []string{"Angel Oak"})
	fx.client.errOn = markerIntent
	fx.client.routes[markerIntent] = "unused"

	resp := fx.service.ProcessMessage(context.Background(), "hmm", "")

	if !strings.Contains(resp.Response, "I'm Owly") {
		t.Errorf("fail-safe route should land on onboarding, got %q", resp.Response)
	}
}
