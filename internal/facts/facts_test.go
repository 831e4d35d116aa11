package facts

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"owly/internal/llm"
	"owly/internal/types"
)

// scriptedClient returns a fixed response or error.
type scriptedClient struct {
	response string
	err      error
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	return c.response, c.err
}

func TestExtractFiltersVocabulary(t *testing.T) {
	client := &scriptedClient{response: `{"fico": 740, "banana": "yes", "state": null, "doc_type": ""}`}
	e := NewExtractor(client)

	got := e.Extract(context.Background(), "client has 740", types.Facts{}, "")
	if len(got) != 1 {
		t.Fatalf("got %d fields, want 1: %v", len(got), got)
	}
	if n, _ := got.Int("fico"); n != 740 {
		t.Errorf("fico = %d, want 740", n)
	}
}

func TestExtractFailureYieldsEmptyMap(t *testing.T) {
	e := NewExtractor(&scriptedClient{err: errors.New("backend down")})

	got := e.Extract(context.Background(), "anything", types.Facts{}, "")
	if got == nil {
		t.Fatal("Extract must return an empty map, not nil")
	}
	if len(got) != 0 {
		t.Errorf("got %d fields on failure, want 0", len(got))
	}
}

func TestMergeNeverDeletes(t *testing.T) {
	known := types.Facts{"fico": 740, "state": "california"}
	extracted := types.Facts{"ltv": 80}

	merged := Merge(known, extracted, nil)
	for _, key := range []string{"fico", "state", "ltv"} {
		if !merged.Has(key) {
			t.Errorf("merged missing %s", key)
		}
	}
	// Original untouched.
	if known.Has("ltv") {
		t.Error("Merge mutated its input")
	}
}

func TestMergeSkipsNullAndBlank(t *testing.T) {
	known := types.Facts{"fico": 740}
	extracted := types.Facts{"fico": nil, "state": ""}

	merged := Merge(known, extracted, nil)
	if n, _ := merged.Int("fico"); n != 740 {
		t.Errorf("null overwrite should be a no-op, fico = %d", n)
	}
	if merged.Has("state") {
		t.Error("blank string should not merge")
	}
}

func TestMergeIdempotent(t *testing.T) {
	known := types.Facts{"fico": 740}
	delta := types.Facts{"ltv": 80, "state": "texas"}

	once := Merge(known, delta, nil)
	twice := Merge(once, delta, nil)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent: %v vs %v", once, twice)
	}
}

func TestMergeEntitiesWinLast(t *testing.T) {
	known := types.Facts{"fico": 700}
	extracted := types.Facts{"fico": 720}
	entities := types.Entities{"fico": float64(740), "lender_asked": "Angel Oak"}

	merged := Merge(known, extracted, entities)
	if n, _ := merged.Int("fico"); n != 740 {
		t.Errorf("entity value should win, fico = %d", n)
	}
	if merged.Has("lender_asked") {
		t.Error("ask-context entity must not merge into facts")
	}
}

func TestMissingVocabularyOrder(t *testing.T) {
	f := types.Facts{"fico": 740, "state": "california"}

	missing := Missing(f)
	want := []string{"loan_purpose", "occupancy", "property_type", "loan_amount", "ltv", "doc_type", "credit_events"}
	if !reflect.DeepEqual(missing, want) {
		t.Errorf("missing = %v, want %v", missing, want)
	}
}

func TestConfidenceValues(t *testing.T) {
	cases := []struct {
		name  string
		facts types.Facts
		want  int
	}{
		{"empty", types.Facts{}, 0},
		// 3 of 9 fields = 20 base, + fico 15 + ltv 10 + purpose 5 = 50.
		{"tier boundary stays preliminary", types.Facts{"fico": 740, "ltv": 80, "loan_purpose": "purchase"}, 50},
		// All 9 fields = 60 base + 40 bonus, capped at 95.
		{"complete is capped", types.Facts{
			"state": "california", "loan_purpose": "purchase", "occupancy": "primary",
			"property_type": "sfr", "loan_amount": 450000, "ltv": 80,
			"fico": 740, "doc_type": "full_doc", "credit_events": "none",
		}, 95},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Confidence(tc.facts, Missing(tc.facts))
			if got != tc.want {
				t.Errorf("Confidence = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	f := types.Facts{}
	prev := Confidence(f, Missing(f))

	additions := []struct {
		key string
		val any
	}{
		{"fico", 700}, {"ltv", 80}, {"state", "texas"}, {"loan_purpose", "purchase"},
		{"doc_type", "dscr"}, {"occupancy", "investment"}, {"property_type", "sfr"},
		{"loan_amount", 300000}, {"credit_events", "none"},
	}
	for _, add := range additions {
		f[add.key] = add.val
		got := Confidence(f, Missing(f))
		if got < prev {
			t.Errorf("confidence dropped from %d to %d after adding %s", prev, got, add.key)
		}
		prev = got
	}
}
