package agents

import (
	"context"
	"fmt"
	"strings"

	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/retrieval"
	"owly/internal/types"
)

const leaderSystemPrompt = `You are the Lead Analyst for mortgage eligibility at Owly.

Your job is to:
1. Understand the loan scenario provided
2. Identify which lenders might have suitable products
3. Return the top 3-5 most relevant lenders to analyze in detail

Consider:
- State licensing (is the lender likely active in the state?)
- Product type match (bank statement, full doc, DSCR, etc.)
- Basic threshold fit (FICO ranges, LTV limits)
- Documentation type alignment

Be INCLUSIVE - include lenders that MIGHT work, even if uncertain.
Better to include and filter later than miss a good option.

IMPORTANT: For each candidate, cite the source of information using [source_id].

You have access to information about these lenders:
%s

Respond with JSON:
{
  "understanding": "Brief summary of what the client is looking for",
  "top_candidates": [
    {"lender": "Lender A", "reason": "Reason with [1] citation"}
  ],
  "reasoning": "Overall rationale for selections"
}`

// Leader pre-filters the lender universe down to the most promising
// candidates for specialist analysis.
type Leader struct {
	client        llm.Client
	searcher      retrieval.Searcher
	available     []string
	topK          int
	maxCandidates int
}

// NewLeader creates a Leader over the given lender universe.
func NewLeader(client llm.Client, searcher retrieval.Searcher, available []string, topK, maxCandidates int) *Leader {
	if topK <= 0 {
		topK = 10
	}
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	return &Leader{
		client:        client,
		searcher:      searcher,
		available:     available,
		topK:          topK,
		maxCandidates: maxCandidates,
	}
}

// Analyze nominates candidate lenders for the scenario. It never returns
// an unusable result: on completion failure the first lenders of the
// universe are nominated with an explicit error marker so the pipeline
// can proceed.
func (l *Leader) Analyze(ctx context.Context, facts types.Facts) types.LeaderResult {
	timer := logging.StartTimer(logging.CategoryAgents, "Leader.Analyze")
	defer timer.Stop()

	query := l.buildQuery(facts)
	passages := l.searcher.Search(ctx, query, l.topK, "")

	// Stable per-passage citation ids so nominations can reference them.
	citations := make([]types.Citation, 0, len(passages))
	mentions := map[string][]string{}
	var lenderOrder []string
	for i, p := range passages {
		id := fmt.Sprintf("%d", i+1)
		citations = append(citations, types.Citation{
			SourceID: "leader-" + id,
			Lender:   p.Lender,
			Ref:      p.Filename,
			Kind:     types.CitationPassage,
		})
		if _, seen := mentions[p.Lender]; !seen {
			lenderOrder = append(lenderOrder, p.Lender)
		}
		if len(mentions[p.Lender]) < 2 {
			mentions[p.Lender] = append(mentions[p.Lender],
				fmt.Sprintf("  - [%s] %s...", id, truncate(p.Content, 200)))
		}
	}

	userPrompt := fmt.Sprintf(`Scenario:
%s

Relevant information found (use [source_id] to cite):
%s

Which lenders should we analyze in detail for this scenario?
Return the top 3-5 most promising candidates with citations.`,
		formatScenario(facts), formatMentions(lenderOrder, mentions))

	var result types.LeaderResult
	err := llm.CompleteJSON(ctx, l.client, llm.Request{
		System:      fmt.Sprintf(leaderSystemPrompt, strings.Join(l.available, ", ")),
		User:        userPrompt,
		Temperature: 0.3,
	}, &result)
	if err != nil {
		logging.Get(logging.CategoryAgents).Warn("Leader.Analyze: completion failed, using universe fallback: %v", err)
		return l.fallback(citations, err)
	}

	result.Citations = citations
	result.TopCandidates = l.filterCandidates(result.TopCandidates)
	logging.Agents("Leader.Analyze: nominated %d candidates", len(result.TopCandidates))
	return result
}

// fallback nominates the first lenders of the universe when the
// completion service is unavailable.
func (l *Leader) fallback(citations []types.Citation, cause error) types.LeaderResult {
	n := l.maxCandidates
	if n > len(l.available) {
		n = len(l.available)
	}
	candidates := make([]types.CandidateLender, 0, n)
	for _, lender := range l.available[:n] {
		candidates = append(candidates, types.CandidateLender{Lender: lender, Reason: "Included for analysis"})
	}
	return types.LeaderResult{
		Understanding: "Could not analyze - using all lenders",
		TopCandidates: candidates,
		Reasoning:     "Fallback due to error",
		Citations:     citations,
		Err:           cause.Error(),
	}
}

// filterCandidates drops nominations outside the available universe and
// caps the list.
func (l *Leader) filterCandidates(candidates []types.CandidateLender) []types.CandidateLender {
	var out []types.CandidateLender
	for _, c := range candidates {
		for _, lender := range l.available {
			if strings.EqualFold(c.Lender, lender) {
				c.Lender = lender // canonical casing
				out = append(out, c)
				break
			}
		}
		if len(out) == l.maxCandidates {
			break
		}
	}
	return out
}

func (l *Leader) buildQuery(facts types.Facts) string {
	var parts []string
	for _, key := range []string{types.AttrDocType, types.AttrLoanPurpose, types.AttrPropertyType} {
		if facts.Has(key) {
			parts = append(parts, facts.String(key))
		}
	}
	if facts.Has(types.AttrFico) {
		parts = append(parts, "FICO "+facts.String(types.AttrFico))
	}
	if facts.Has(types.AttrState) {
		parts = append(parts, facts.String(types.AttrState))
	}
	parts = append(parts, "eligibility requirements matrix")
	return strings.Join(parts, " ")
}

func formatMentions(order []string, mentions map[string][]string) string {
	if len(order) == 0 {
		return "No specific lender information found in documents."
	}
	var b strings.Builder
	for _, lender := range order {
		fmt.Fprintf(&b, "\n%s:\n%s", lender, strings.Join(mentions[lender], "\n"))
	}
	return b.String()
}
