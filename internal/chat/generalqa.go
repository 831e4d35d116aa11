package chat

import (
	"context"
	"fmt"
	"strings"

	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/retrieval"
	"owly/internal/rules"
	"owly/internal/store"
	"owly/internal/types"
)

// =============================================================================
// GENERAL Q&A ROUTES
// =============================================================================
// Handlers for the three informational intents. Each combines retrieval
// passages and structured rules into a numbered context block whose
// indices double as inline citations, then falls back to static domain
// guidance when both sources come back empty.

// Answer is the output of a QA route.
type Answer struct {
	Response  string
	Citations []types.Citation
}

// StatsSource summarizes the loaded corpus.
type StatsSource interface {
	CorpusStats() (store.Stats, error)
}

// GeneralQA answers questions that need no scenario pipeline.
type GeneralQA struct {
	client   llm.Client
	searcher retrieval.Searcher
	rules    rules.Source
	stats    StatsSource
}

// NewGeneralQA creates the QA handler over the shared dependencies.
func NewGeneralQA(client llm.Client, searcher retrieval.Searcher, ruleSource rules.Source, stats StatsSource) *GeneralQA {
	return &GeneralQA{client: client, searcher: searcher, rules: ruleSource, stats: stats}
}

const generalSystemPrompt = `You are Owly, a mortgage lending assistant. Answer the user's general question based on the available data.

Available System Data:
%s

Guidelines:
- Be helpful and informative
- If asked about available lenders, list them
- If asked about products, explain the types (Conventional, FHA, VA, USDA, Non-QM, etc.)
- If asked what information is needed, explain the key factors for eligibility
- Always be encouraging and helpful

For eligibility analysis, these are the key factors we consider:
1. Credit Score (FICO)
2. State/Location
3. Loan Purpose (Purchase, Refinance, Cash-Out)
4. Occupancy (Primary, Investment, Second Home)
5. Property Type (SFR, Condo, 2-4 Unit)
6. Loan Amount & LTV
7. Income Documentation Type
8. Credit Events (Bankruptcy, Foreclosure, etc.)

Respond naturally and helpfully.`

// AnswerGeneral handles questions about the system itself.
func (g *GeneralQA) AnswerGeneral(ctx context.Context, question string) Answer {
	statsBlock := "No corpus statistics available."
	if stats, err := g.stats.CorpusStats(); err == nil {
		statsBlock = fmt.Sprintf(`Total lenders: %d
Lender names: %s
Total documents: %d
Total rules: %d
Product types: Conventional, FHA, VA, USDA, Non-QM (Bank Statement, DSCR, Asset Depletion)`,
			len(stats.Lenders), strings.Join(stats.Lenders, ", "),
			stats.DocumentCount, stats.RuleCount)
	} else {
		logging.Chat("corpus stats unavailable: %v", err)
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		System:      fmt.Sprintf(generalSystemPrompt, statsBlock),
		User:        question,
		Shape:       llm.ShapeFreeText,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return Answer{Response: "I'm a mortgage eligibility assistant. Ask me about lenders, products, or describe a loan scenario and I'll analyze it."}
	}
	return Answer{Response: resp}
}

const productSearchSystemPrompt = `You are Owly, a mortgage lending assistant. Answer the user's question about specific products or lenders.

Available Information:
%s

IMPORTANT RULES:
1. ALWAYS cite your sources using [1], [2], etc.
2. Be specific about which lenders offer what
3. Mention key requirements (FICO, LTV, etc.)
4. If you're not sure, say so and suggest what info would help

Example response format:
"Based on the guidelines, **Angel Oak** [1] and **Deephaven** [3] offer strong bank statement programs.
Angel Oak requires minimum 660 FICO with 12-24 months statements [1], while Deephaven goes down to 620 FICO [3]."`

// AnswerProductSearch handles product and lender capability questions.
// lenderFilter narrows both sources for follow-up turns; it is never
// applied to eligibility checks, which always search the full corpus.
func (g *GeneralQA) AnswerProductSearch(ctx context.Context, question, productType, lenderFilter string) Answer {
	matched := g.productRules(productType, lenderFilter, 10)
	passages := g.searcher.Search(ctx, question, 5, lenderFilter)

	var parts []string
	var citations []types.Citation

	for i, rule := range matched {
		idx := i + 1
		parts = append(parts, fmt.Sprintf("[%d] %s - %s: FICO %s-%s, LTV max %s%%, Doc types: %s",
			idx, rule.Lender, programOr(rule.Program),
			intOr(rule.FicoMin), intOr(rule.FicoMax), floatOr(rule.LTVMax),
			docTypesOr(rule.DocTypes)))
		citations = append(citations, types.Citation{
			SourceID: fmt.Sprintf("qa-%d", idx),
			Lender:   rule.Lender,
			Ref:      programOr(rule.Program),
			Kind:     types.CitationRule,
		})
	}

	for i, p := range passages {
		idx := len(matched) + i + 1
		parts = append(parts, fmt.Sprintf("[%d] From %s (%s): %s...",
			idx, p.Lender, p.Filename, truncateText(p.Content, 300)))
		citations = append(citations, types.Citation{
			SourceID: fmt.Sprintf("qa-%d", idx),
			Lender:   p.Lender,
			Ref:      p.Filename,
			Kind:     types.CitationPassage,
		})
	}

	if len(parts) == 0 {
		return Answer{Response: noProductDataResponse(productType)}
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		System:      fmt.Sprintf(productSearchSystemPrompt, strings.Join(parts, "\n")),
		User:        question,
		Shape:       llm.ShapeFreeText,
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		return Answer{Response: noProductDataResponse(productType)}
	}
	return Answer{Response: resp, Citations: citations}
}

const eligibilitySystemPrompt = `You are Owly, a mortgage lending assistant. Answer the user's eligibility question.

Available Information:
%s

IMPORTANT RULES:
1. ALWAYS cite your sources using [1], [2], etc.
2. Give a direct YES/NO/MAYBE answer first
3. Then explain which lenders/products might work
4. Mention any conditions or limitations
5. If info is limited, say what additional details would help

Example response:
"**Yes**, several lenders accept 5+ unit properties for DSCR loans.
Based on the guidelines, **Angel Oak** [1] allows up to 10 units with minimum 1.0 DSCR,
and **Deephaven** [3] goes up to 8 units. Note that LTV requirements are typically lower (65-70%%) for larger properties [1][3]."`

// AnswerEligibilityCheck handles quick "does anyone do X" questions. It
// always searches across all lenders regardless of prior conversation
// context.
func (g *GeneralQA) AnswerEligibilityCheck(ctx context.Context, question string, entities types.Entities) Answer {
	passages := g.searcher.Search(ctx, question, 8, "")
	matched := g.criteriaRules(entities, 5)

	var parts []string
	var citations []types.Citation

	for i, p := range passages {
		idx := i + 1
		parts = append(parts, fmt.Sprintf("[%d] %s (%s): %s",
			idx, p.Lender, p.Filename, truncateText(p.Content, 400)))
		citations = append(citations, types.Citation{
			SourceID: fmt.Sprintf("qa-%d", idx),
			Lender:   p.Lender,
			Ref:      p.Filename,
			Kind:     types.CitationPassage,
		})
	}

	for i, rule := range matched {
		idx := len(passages) + i + 1
		parts = append(parts, fmt.Sprintf("[%d] %s - %s: FICO %s-%s, LTV max %s%%",
			idx, rule.Lender, programOr(rule.Program),
			intOr(rule.FicoMin), intOr(rule.FicoMax), floatOr(rule.LTVMax)))
		citations = append(citations, types.Citation{
			SourceID: fmt.Sprintf("qa-%d", idx),
			Lender:   rule.Lender,
			Ref:      programOr(rule.Program),
			Kind:     types.CitationRule,
		})
	}

	if len(parts) == 0 {
		return Answer{Response: noEligibilityDataResponse}
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		System:      fmt.Sprintf(eligibilitySystemPrompt, strings.Join(parts, "\n")),
		User:        question,
		Shape:       llm.ShapeFreeText,
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		return Answer{Response: noEligibilityDataResponse}
	}
	return Answer{Response: resp, Citations: citations}
}

// productRules returns active rules matching the product type and
// optional lender, case-insensitive on both.
func (g *GeneralQA) productRules(productType, lenderFilter string, limit int) []types.RuleRecord {
	all, err := g.rules.ActiveRules("")
	if err != nil {
		logging.Chat("rule lookup failed: %v", err)
		return nil
	}

	var out []types.RuleRecord
	for _, rule := range all {
		if lenderFilter != "" && !strings.Contains(strings.ToLower(rule.Lender), strings.ToLower(lenderFilter)) {
			continue
		}
		if productType != "" && !hasDocType(rule.DocTypes, productType) {
			continue
		}
		out = append(out, rule)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// criteriaRules returns active rules compatible with any fico/ltv the
// classifier extracted.
func (g *GeneralQA) criteriaRules(entities types.Entities, limit int) []types.RuleRecord {
	all, err := g.rules.ActiveRules("")
	if err != nil {
		logging.Chat("rule lookup failed: %v", err)
		return nil
	}

	facts := entities.FactValues()
	fico, hasFico := facts.Int("fico")
	ltv, hasLTV := facts.Float("ltv")

	var out []types.RuleRecord
	for _, rule := range all {
		if hasFico && rule.FicoMin != nil && *rule.FicoMin > fico {
			continue
		}
		if hasLTV && rule.LTVMax != nil && *rule.LTVMax < ltv {
			continue
		}
		out = append(out, rule)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func hasDocType(docTypes []string, productType string) bool {
	want := strings.ToLower(productType)
	for _, dt := range docTypes {
		got := strings.ToLower(dt)
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return true
		}
	}
	return false
}

func programOr(program string) string {
	if program == "" {
		return "Standard"
	}
	return program
}

func intOr(p *int) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *p)
}

func floatOr(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0f", *p)
}

func docTypesOr(docTypes []string) string {
	if len(docTypes) == 0 {
		return "Full Doc"
	}
	return strings.Join(docTypes, ", ")
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func noProductDataResponse(productType string) string {
	subject := productType
	if subject == "" {
		subject = "this product type"
	}
	return fmt.Sprintf(`I don't have specific lender information loaded yet to answer your question about %s.

Once lender guidelines are uploaded, I'll be able to tell you:
- Which lenders offer the product
- Minimum FICO requirements
- LTV limits
- Documentation requirements

In general, for **bank statement loans**, look for Non-QM lenders who specialize in self-employed borrowers. Common requirements include:
- 12-24 months of bank statements
- FICO typically 620-660+
- LTV usually 80-85%% max
- 2+ years self-employment history

Would you like to describe your specific scenario? I can help identify what to look for.`, subject)
}

const noEligibilityDataResponse = `I don't have specific lender guidelines loaded yet to give you a definitive answer.

However, I can share general industry knowledge:

**For DSCR loans with 5+ units:**
- Many DSCR lenders DO allow 5+ units, but terms vary
- Typical requirements: DSCR 1.0-1.25+, LTV 65-75%, FICO 660+
- Some lenders cap at 4 units, others go up to 10+
- Larger properties often require lower LTV

Once I have specific lender guidelines loaded, I'll be able to tell you exactly which lenders allow this and their specific requirements.

Would you like to tell me more about your scenario? (FICO, LTV, property location, etc.)`
