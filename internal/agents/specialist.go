package agents

import (
	"context"
	"fmt"
	"strings"

	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/retrieval"
	"owly/internal/rules"
	"owly/internal/types"
)

const specialistSystemPrompt = `You are the specialist agent for %[1]s.

You are an EXPERT on all %[1]s mortgage products, including:
- Eligibility matrices and thresholds
- Program guidelines and overlays
- Documentation requirements
- State licensing and restrictions

Your job is to:
1. Analyze the scenario against %[1]s's products
2. Identify which products are ELIGIBLE, CONDITIONAL, or NOT ELIGIBLE
3. Provide specific details for each eligible product

Be PRECISE and CONSERVATIVE:
- Only mark "eligible" if the scenario clearly meets all requirements
- Mark "conditional" if some requirements are met but others are unclear
- Always cite the specific guideline or matrix when possible

Respond with JSON:
{
  "lender": "%[1]s",
  "eligible_products": [
    {"program": "Program Name", "status": "eligible", "max_ltv": 80,
     "fico_requirement": "680+", "rate_estimate": "7.5-8.0%%",
     "conditions": ["..."], "pros": ["..."], "cons": ["..."],
     "source": "Document name or section"}
  ],
  "conditional_products": [
    {"program": "Program Name", "status": "conditional",
     "missing_info": "What additional info is needed", "source": "Document name"}
  ],
  "not_eligible": [
    {"program": "Program Name", "reason": "Why not eligible"}
  ],
  "summary": "Brief summary of %[1]s's fit for this scenario"
}`

// LenderChunkSource is the direct passage lookup used when semantic
// retrieval returns nothing for a lender.
type LenderChunkSource interface {
	ChunksByLender(lender string, limit int) ([]types.Passage, error)
}

// Specialist runs deep eligibility analysis of a single lender's
// products. One instance per lender, memoized per factory.
type Specialist struct {
	lender   string
	client   llm.Client
	searcher retrieval.Searcher
	matcher  *rules.Matcher
	lookup   LenderChunkSource
	topK     int
}

// NewSpecialist creates a Specialist for one lender.
func NewSpecialist(lender string, client llm.Client, searcher retrieval.Searcher, matcher *rules.Matcher, lookup LenderChunkSource, topK int) *Specialist {
	if topK <= 0 {
		topK = 20
	}
	return &Specialist{
		lender:   lender,
		client:   client,
		searcher: searcher,
		matcher:  matcher,
		lookup:   lookup,
		topK:     topK,
	}
}

// Lender returns the lender identity this specialist covers.
func (s *Specialist) Lender() string { return s.lender }

// Analyze classifies this lender's products against the scenario. On
// completion failure it returns the error variant tagged with the lender
// identity so the evaluator can exclude it without losing the cause.
func (s *Specialist) Analyze(ctx context.Context, facts types.Facts) types.SpecialistResult {
	timer := logging.StartTimer(logging.CategoryAgents, "Specialist.Analyze("+s.lender+")")
	defer timer.Stop()

	passages := s.lenderPassages(ctx, facts)
	lenderRules := s.matcher.ByLender(s.lender)

	citations := make([]types.Citation, 0, len(passages)+len(lenderRules))
	for i, p := range passages {
		citations = append(citations, types.Citation{
			SourceID: fmt.Sprintf("spec-%s-%d", s.lender, i+1),
			Lender:   s.lender,
			Ref:      passageRef(p),
			Kind:     types.CitationPassage,
		})
	}
	for i, r := range lenderRules {
		program := r.Program
		if program == "" {
			program = "Standard"
		}
		citations = append(citations, types.Citation{
			SourceID: fmt.Sprintf("rule-%s-%d", s.lender, i+1),
			Lender:   s.lender,
			Ref:      program,
			Kind:     types.CitationRule,
		})
	}

	userPrompt := fmt.Sprintf(`Scenario:
%s

%s Guidelines and Products:
%s

%s Eligibility Rules:
%s

Analyze this scenario against all %s products.
Which products is this borrower eligible for?`,
		formatScenario(facts),
		s.lender, s.formatPassages(passages),
		s.lender, formatRules(lenderRules),
		s.lender)

	var result types.SpecialistResult
	err := llm.CompleteJSON(ctx, s.client, llm.Request{
		System:      fmt.Sprintf(specialistSystemPrompt, s.lender),
		User:        userPrompt,
		Temperature: 0.3,
		MaxTokens:   3000,
	}, &result)
	if err != nil {
		logging.Get(logging.CategoryAgents).Warn("Specialist.Analyze(%s): %v", s.lender, err)
		return types.SpecialistResult{
			Lender:  s.lender,
			Summary: fmt.Sprintf("Error analyzing %s: %v", s.lender, err),
			Err:     err.Error(),
		}
	}

	// The lender identity is authoritative regardless of model output.
	result.Lender = s.lender
	result.Citations = citations
	logging.Agents("Specialist.Analyze(%s): %d eligible, %d conditional, %d not eligible",
		s.lender, len(result.Eligible), len(result.Conditional), len(result.NotEligible))
	return result
}

// lenderPassages retrieves passages scoped to this lender, falling back
// to a direct lookup when semantic search finds none.
func (s *Specialist) lenderPassages(ctx context.Context, facts types.Facts) []types.Passage {
	query := s.buildQuery(facts)
	passages := s.searcher.Search(ctx, query, s.topK, s.lender)
	if len(passages) == 0 && s.lookup != nil {
		direct, err := s.lookup.ChunksByLender(s.lender, 10)
		if err != nil {
			logging.Get(logging.CategoryAgents).Warn("Specialist(%s): direct chunk lookup failed: %v", s.lender, err)
			return nil
		}
		passages = direct
	}
	if len(passages) > 10 {
		passages = passages[:10]
	}
	return passages
}

func (s *Specialist) buildQuery(facts types.Facts) string {
	parts := []string{s.lender}
	if facts.Has(types.AttrDocType) {
		parts = append(parts, facts.String(types.AttrDocType))
	}
	if facts.Has(types.AttrLoanPurpose) {
		parts = append(parts, facts.String(types.AttrLoanPurpose))
	}
	parts = append(parts, "eligibility")
	return strings.Join(parts, " ")
}

func (s *Specialist) formatPassages(passages []types.Passage) string {
	if len(passages) == 0 {
		return fmt.Sprintf("No specific %s documentation available.", s.lender)
	}
	var lines []string
	for i, p := range passages {
		if i >= 8 {
			break
		}
		lines = append(lines, fmt.Sprintf("[Source: %s]\n%s\n", passageRef(p), truncate(p.Content, 500)))
	}
	return strings.Join(lines, "\n")
}

func passageRef(p types.Passage) string {
	if p.Filename != "" {
		return p.Filename
	}
	if p.SectionPath != "" {
		return p.SectionPath
	}
	return "Unknown"
}
