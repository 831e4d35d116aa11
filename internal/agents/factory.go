package agents

import (
	"sync"

	"owly/internal/config"
	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/retrieval"
	"owly/internal/rules"
)

// LenderSource lists the lenders with active guideline documents.
type LenderSource interface {
	Lenders() ([]string, error)
}

// Factory builds pipeline agents and caches the expensive parts: the
// lender universe (one query per factory lifetime) and constructed
// specialists (one per lender). Safe for concurrent use.
type Factory struct {
	client   llm.Client
	searcher retrieval.Searcher
	matcher  *rules.Matcher
	lookup   LenderChunkSource
	lenders  LenderSource
	cfg      config.AgentsConfig

	mu          sync.Mutex
	universe    []string
	specialists map[string]*Specialist
}

// NewFactory creates a Factory over the shared pipeline dependencies.
func NewFactory(client llm.Client, searcher retrieval.Searcher, matcher *rules.Matcher, lookup LenderChunkSource, lenders LenderSource, cfg config.AgentsConfig) *Factory {
	return &Factory{
		client:      client,
		searcher:    searcher,
		matcher:     matcher,
		lookup:      lookup,
		lenders:     lenders,
		cfg:         cfg,
		specialists: make(map[string]*Specialist),
	}
}

// AvailableLenders returns the cached lender universe, loading it on
// first use. A load failure is not cached so a later call can retry.
func (f *Factory) AvailableLenders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availableLocked()
}

func (f *Factory) availableLocked() []string {
	if f.universe != nil {
		return f.universe
	}
	names, err := f.lenders.Lenders()
	if err != nil {
		logging.Get(logging.CategoryAgents).Warn("Factory: lender universe load failed: %v", err)
		return nil
	}
	f.universe = names
	return f.universe
}

// Leader builds a leader over the current lender universe.
func (f *Factory) Leader() *Leader {
	f.mu.Lock()
	universe := f.availableLocked()
	f.mu.Unlock()
	return NewLeader(f.client, f.searcher, universe, f.cfg.LeaderTopK, f.cfg.MaxCandidates)
}

// SpecialistsFor returns one specialist per named lender, constructing
// and memoizing any that have not been used yet.
func (f *Factory) SpecialistsFor(names []string) []*Specialist {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*Specialist, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		s, ok := f.specialists[name]
		if !ok {
			s = NewSpecialist(name, f.client, f.searcher, f.matcher, f.lookup, f.cfg.SpecialistTopK)
			f.specialists[name] = s
		}
		out = append(out, s)
	}
	return out
}

// Evaluator builds the comparison agent.
func (f *Factory) Evaluator() *Evaluator {
	return NewEvaluator(f.client)
}

// ClearCache drops the lender universe and memoized specialists, for
// use after corpus ingestion changes the document set.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.universe = nil
	f.specialists = make(map[string]*Specialist)
}
