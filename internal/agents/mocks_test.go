package agents

import (
	"context"
	"sync/atomic"

	"owly/internal/llm"
	"owly/internal/types"
)

// mockClient answers completions with a caller-supplied function.
type mockClient struct {
	fn    func(req llm.Request) (string, error)
	calls atomic.Int32
}

func (c *mockClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.calls.Add(1)
	return c.fn(req)
}

// hangingClient blocks until the context is cancelled.
type hangingClient struct{}

func (c *hangingClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// mockSearcher returns fixed passages, recording the lender filters it
// was asked for.
type mockSearcher struct {
	passages []types.Passage
	filters  []string
}

func (s *mockSearcher) Search(ctx context.Context, query string, topK int, lenderFilter string) []types.Passage {
	s.filters = append(s.filters, lenderFilter)
	return s.passages
}

// mockChunkLookup is the direct per-lender passage lookup.
type mockChunkLookup struct {
	passages []types.Passage
	err      error
}

func (l *mockChunkLookup) ChunksByLender(lender string, limit int) ([]types.Passage, error) {
	return l.passages, l.err
}

// mockRuleSource backs a rules.Matcher.
type mockRuleSource struct {
	rules []types.RuleRecord
	err   error
}

func (s *mockRuleSource) ActiveRules(lender string) ([]types.RuleRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if lender == "" {
		return s.rules, nil
	}
	var out []types.RuleRecord
	for _, r := range s.rules {
		if r.Lender == lender {
			out = append(out, r)
		}
	}
	return out, nil
}

// mockLenderSource counts universe loads.
type mockLenderSource struct {
	lenders []string
	err     error
	loads   atomic.Int32
}

func (s *mockLenderSource) Lenders() ([]string, error) {
	s.loads.Add(1)
	return s.lenders, s.err
}
