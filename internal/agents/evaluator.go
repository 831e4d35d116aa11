package agents

import (
	"context"
	"fmt"
	"strings"

	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/types"
)

const evaluatorSystemPrompt = `You are the Comparison Analyst at Owly.

You receive eligibility analyses from multiple lender specialists.
Your job is to:
1. Compare all eligible options side-by-side
2. Weigh pros and cons for THIS specific scenario
3. Provide a CLEAR recommendation with reasoning
4. List 1-2 alternatives

Prioritize (in order):
1. Best fit for client's stated needs
2. Lowest risk of denial
3. Best terms (LTV, rate, conditions)
4. Simplest documentation requirements

Your audience is a Loan Officer who needs actionable guidance.

Format your response as a structured recommendation:
- Lead with your top recommendation
- Explain WHY it's the best choice
- List pros and cons
- Provide alternatives
- Include source citations

Be direct, confident, and helpful. The LO is relying on your expertise.`

// Evaluator compares specialist analyses and produces a ranked
// recommendation.
type Evaluator struct {
	client llm.Client
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(client llm.Client) *Evaluator {
	return &Evaluator{client: client}
}

// Analyze compares the specialist results. The structured recommendation
// and alternatives are always computed deterministically, independent of
// the narrative completion, so callers hold a usable result even when
// the narrative is malformed or empty.
func (e *Evaluator) Analyze(ctx context.Context, facts types.Facts, results []types.SpecialistResult) types.EvaluatorResult {
	timer := logging.StartTimer(logging.CategoryAgents, "Evaluator.Analyze")
	defer timer.Stop()

	if len(results) == 0 {
		return types.EvaluatorResult{Err: "no specialist analyses available to compare"}
	}

	out := types.EvaluatorResult{
		Recommendation: extractRecommendation(results),
		Alternatives:   extractAlternatives(results),
		Citations:      collectCitations(results),
	}

	userPrompt := fmt.Sprintf(`Scenario:
%s

Lender Analyses:
%s

Based on these analyses, provide your recommendation for the best lender/product for this scenario.`,
		formatScenario(facts), formatAnalyses(results))

	narrative, err := e.client.Complete(ctx, llm.Request{
		System:      evaluatorSystemPrompt,
		User:        userPrompt,
		Shape:       llm.ShapeFreeText,
		Temperature: 0.4,
		MaxTokens:   2000,
	})
	if err != nil {
		logging.Get(logging.CategoryAgents).Warn("Evaluator.Analyze: narrative failed, structured extraction stands: %v", err)
		out.Err = err.Error()
		return out
	}

	out.Analysis = narrative
	return out
}

// extractRecommendation scores every eligible product and returns the
// best: +10 for eligible status, +maxLTV/10, +2 per pro, -1 per con.
func extractRecommendation(results []types.SpecialistResult) *types.Recommendation {
	var best *types.Recommendation
	bestScore := 0.0

	for _, r := range results {
		for i := range r.Eligible {
			prod := r.Eligible[i]
			score := 0.0
			if prod.Status == "eligible" {
				score += 10
			}
			score += prod.MaxLTV / 10
			score += float64(len(prod.Pros)) * 2
			score -= float64(len(prod.Cons))

			if score > bestScore {
				bestScore = score
				best = &types.Recommendation{
					Lender:  r.Lender,
					Program: prod.Program,
					Details: &r.Eligible[i],
				}
			}
		}
	}
	return best
}

// extractAlternatives returns the next 1-3 distinct eligible products
// after the first (which is likely the recommendation).
func extractAlternatives(results []types.SpecialistResult) []types.Alternative {
	var all []types.Alternative
	for _, r := range results {
		for _, prod := range r.Eligible {
			all = append(all, types.Alternative{
				Lender:   r.Lender,
				Program:  prod.Program,
				MaxLTV:   prod.MaxLTV,
				RateNote: prod.RateNote,
			})
		}
	}
	if len(all) <= 1 {
		return nil
	}
	if len(all) > 4 {
		all = all[:4]
	}
	return all[1:]
}

func collectCitations(results []types.SpecialistResult) []types.Citation {
	var out []types.Citation
	seen := map[string]bool{}
	for _, r := range results {
		for _, prod := range r.Eligible {
			if prod.Source == "" || seen[prod.Source] {
				continue
			}
			seen[prod.Source] = true
			out = append(out, types.Citation{
				SourceID: "eval-" + prod.Source,
				Lender:   r.Lender,
				Ref:      prod.Source,
				Kind:     types.CitationPassage,
			})
		}
	}
	return out
}

// formatAnalyses renders the specialist findings as a comparison block.
func formatAnalyses(results []types.SpecialistResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "\n### %s\n", r.Lender)

		if len(r.Eligible) > 0 {
			b.WriteString("**Eligible Products:**\n")
			for _, prod := range r.Eligible {
				program := prod.Program
				if program == "" {
					program = "Standard"
				}
				fmt.Fprintf(&b, "  - %s\n", program)
				if prod.MaxLTV > 0 {
					fmt.Fprintf(&b, "    - Max LTV: %.0f%%\n", prod.MaxLTV)
				}
				if prod.RateNote != "" {
					fmt.Fprintf(&b, "    - Rate: %s\n", prod.RateNote)
				}
				if len(prod.Pros) > 0 {
					fmt.Fprintf(&b, "    - Pros: %s\n", strings.Join(prod.Pros, ", "))
				}
				if len(prod.Cons) > 0 {
					fmt.Fprintf(&b, "    - Cons: %s\n", strings.Join(prod.Cons, ", "))
				}
			}
		}

		if len(r.Conditional) > 0 {
			b.WriteString("**Conditional:**\n")
			for _, prod := range r.Conditional {
				missing := prod.MissingInfo
				if missing == "" {
					missing = "Info needed"
				}
				fmt.Fprintf(&b, "  - %s: %s\n", prod.Program, missing)
			}
		}

		if r.Summary != "" {
			fmt.Fprintf(&b, "**Summary:** %s\n", r.Summary)
		}
	}
	return b.String()
}
