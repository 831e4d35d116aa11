package chat

import (
	"fmt"
	"strings"

	"owly/internal/facts"
	"owly/internal/types"
)

// =============================================================================
// RESPONSE FORMATTING
// =============================================================================

const onboardingResponse = `👋 I'm Owly, your mortgage eligibility assistant!

I can help you find the right lender programs. Here's what I can do:

**Ask me anything:**
- "Which lenders offer bank statement loans?"
- "Does any DSCR lender accept 5 units?"
- "What's the minimum score for FHA?"

**Or describe your scenario:**
Tell me about your client's situation - credit score, property type, loan purpose, etc. I'll suggest matching programs even with partial information!

What would you like to know?`

// fieldLabel returns the human description for a fact key, title-cased.
func fieldLabel(key string) string {
	desc, ok := types.FieldDescriptions[key]
	if !ok {
		desc = strings.ReplaceAll(key, "_", " ")
	}
	return titleCase(desc)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatFacts renders the known facts as a bullet list, vocabulary order
// first so the output is stable across turns.
func formatFacts(f types.Facts) string {
	var lines []string
	for _, key := range types.AttributeOrder {
		if !f.Has(key) {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %v", fieldLabel(key), f[key]))
	}
	if len(lines) == 0 {
		return "No details provided yet."
	}
	return strings.Join(lines, "\n")
}

// formatFactsSummary is the inline one-sentence variant used by the
// scenario fallback path.
func formatFactsSummary(f types.Facts) string {
	if len(f) == 0 {
		return "Please tell me about the loan scenario."
	}
	var parts []string
	for _, key := range types.AttributeOrder {
		if !f.Has(key) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", fieldLabel(key), f[key]))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Here's what I have: " + strings.Join(parts, ", ") + "."
}

// formatSummary answers a summary_request: client profile, missing
// fields, and the current confidence figure with a readiness note.
func formatSummary(f types.Facts) string {
	var b strings.Builder
	b.WriteString("## 📋 Client Profile\n\n")

	wrote := false
	for _, key := range types.AttributeOrder {
		if !f.Has(key) {
			continue
		}
		fmt.Fprintf(&b, "- **%s:** %v\n", fieldLabel(key), f[key])
		wrote = true
	}
	if !wrote {
		b.WriteString("*No information provided yet.*\n")
	}

	missing := facts.Missing(f)
	if len(missing) > 0 {
		b.WriteString("\n## ❓ Missing Information\n\n")
		for _, field := range missing {
			fmt.Fprintf(&b, "- %s\n", fieldLabel(field))
		}
	}

	confidence := facts.Confidence(f, missing)
	fmt.Fprintf(&b, "\n**Confidence Level:** %d%%\n", confidence)

	if confidence >= 70 {
		b.WriteString("\n*I have enough information to provide recommendations. Just ask!*")
	} else {
		b.WriteString("\n*Please provide more details for better recommendations.*")
	}
	return b.String()
}

// formatPreliminary renders the Leader-only analysis for incomplete
// scenarios: understanding, up to three candidate lenders, up to three
// missing fields.
func formatPreliminary(result types.LeaderResult, missing []string) string {
	var b strings.Builder
	b.WriteString("## Preliminary Analysis\n")

	if result.Understanding != "" {
		fmt.Fprintf(&b, "\n**Understanding:** %s\n", result.Understanding)
	}

	if len(result.TopCandidates) > 0 {
		b.WriteString("\n**Potential Matches:**\n")
		top := result.TopCandidates
		if len(top) > 3 {
			top = top[:3]
		}
		for _, c := range top {
			fmt.Fprintf(&b, "- **%s** - %s\n", c.Lender, c.Reason)
		}
	} else {
		b.WriteString("\n*I need a bit more information to identify specific lenders.*\n")
	}

	if len(missing) > 0 {
		b.WriteString("\n**Missing Information:**\n")
		top := missing
		if len(top) > 3 {
			top = top[:3]
		}
		for _, field := range top {
			fmt.Fprintf(&b, "- %s\n", types.FieldDescriptions[field])
		}
	}
	return b.String()
}

// formatNoLenders gives static FICO-band guidance when the corpus holds
// no lender guidelines at all.
func formatNoLenders(f types.Facts, missing []string) string {
	var b strings.Builder
	b.WriteString("## Scenario Analysis\n\n")
	b.WriteString("**Client Profile:**\n")
	b.WriteString(formatFacts(f))
	b.WriteString("\n")

	if fico, ok := f.Int("fico"); ok {
		fmt.Fprintf(&b, "\n**General Guidance for FICO %d:**\n", fico)
		switch {
		case fico >= 740:
			b.WriteString("- Excellent credit! You should qualify for the best rates and terms.\n")
			b.WriteString("- Conventional, FHA, VA, and most Non-QM products should be available.\n")
		case fico >= 680:
			b.WriteString("- Good credit. Most conventional and government programs available.\n")
			b.WriteString("- Some rate adjustments may apply for Non-QM products.\n")
		case fico >= 620:
			b.WriteString("- FHA is likely your best option (minimum 580 with 3.5% down).\n")
			b.WriteString("- Some conventional lenders may work, but expect higher rates.\n")
			b.WriteString("- Non-QM options available but with stricter terms.\n")
		default:
			b.WriteString("- Limited options. FHA may work with 10% down (500-579 score).\n")
			b.WriteString("- Consider credit repair before applying.\n")
		}
	}

	if len(missing) > 0 {
		b.WriteString("\n**To provide specific lender recommendations, I need:**\n")
		top := missing
		if len(top) > 4 {
			top = top[:4]
		}
		for _, field := range top {
			fmt.Fprintf(&b, "- %s\n", types.FieldDescriptions[field])
		}
	}

	b.WriteString("\n*Note: No lender guidelines are loaded yet. Once they are, I can give specific recommendations.*")
	return b.String()
}

// formatNoCandidates renders the branch where the Leader nominated no
// usable lenders.
func formatNoCandidates(f types.Facts, missing []string) string {
	var b strings.Builder
	b.WriteString("Based on the criteria provided, I couldn't identify strongly matching lenders.\n\n")
	b.WriteString("**Client Profile:**\n")
	b.WriteString(formatFacts(f))
	if len(missing) > 0 {
		b.WriteString("\n\n**Missing Information:**\n")
		top := missing
		if len(top) > 3 {
			top = top[:3]
		}
		for _, field := range top {
			fmt.Fprintf(&b, "- %s\n", types.FieldDescriptions[field])
		}
	}
	return b.String()
}

// formatFinal renders the pipeline outcome: the narrative analysis with
// a client-profile footer, or a structured fallback assembled from the
// deterministic extraction when the narrative is empty.
func formatFinal(eval types.EvaluatorResult, specialists []types.SpecialistResult, scenario types.Facts) string {
	if eval.Analysis != "" {
		return eval.Analysis + "\n\n---\n**Client Profile:**\n" + formatFacts(scenario)
	}

	var parts []string
	if rec := eval.Recommendation; rec != nil {
		parts = append(parts, fmt.Sprintf("## ✅ Recommended\n\n**%s** - %s", rec.Lender, programOr(rec.Program)))
		if rec.Reason != "" {
			parts = append(parts, "\n"+rec.Reason)
		}
	}

	if len(eval.Alternatives) > 0 {
		parts = append(parts, "\n### Alternatives")
		alts := eval.Alternatives
		if len(alts) > 2 {
			alts = alts[:2]
		}
		for _, alt := range alts {
			parts = append(parts, fmt.Sprintf("- **%s**: %s", alt.Lender, alt.Program))
		}
	}

	if len(parts) == 0 {
		parts = append(parts, "## Eligible Options\n")
		for _, result := range specialists {
			for _, prod := range result.Eligible {
				parts = append(parts, fmt.Sprintf("- **%s**: %s", result.Lender, programOr(prod.Program)))
			}
		}
	}

	parts = append(parts, "\n---\n**Client Profile:**\n"+formatFacts(scenario))
	return strings.Join(parts, "\n")
}
