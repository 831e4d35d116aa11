package agents

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"owly/internal/logging"
	"owly/internal/types"
)

// RunSpecialists fans the scenario out to every specialist in parallel.
// Each lender runs under its own timeout so one slow or failing
// guideline set never blocks the rest: that lender's slot becomes the
// error variant and the others complete normally. Results preserve the
// input order.
func RunSpecialists(ctx context.Context, specialists []*Specialist, facts types.Facts, timeout time.Duration) []types.SpecialistResult {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	results := make([]types.SpecialistResult, len(specialists))
	g, gctx := errgroup.WithContext(ctx)

	for i, s := range specialists {
		i, s := i, s
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			done := make(chan types.SpecialistResult, 1)
			go func() { done <- s.Analyze(taskCtx, facts) }()

			select {
			case r := <-done:
				results[i] = r
			case <-taskCtx.Done():
				logging.Get(logging.CategoryAgents).Warn("specialist %s timed out after %s", s.Lender(), timeout)
				results[i] = types.SpecialistResult{
					Lender: s.Lender(),
					Err:    "analysis timed out after " + timeout.String(),
				}
			}
			return nil
		})
	}

	// Workers never return errors; failures live in the result slots.
	_ = g.Wait()
	return results
}
