// Package facts maintains the evolving scenario fact state: extraction
// from free text, additive merging, missing-field ordering, and the
// confidence score that gates the analysis pipeline.
package facts

import (
	"context"
	"encoding/json"
	"fmt"

	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/types"
)

const extractionSystemPrompt = `You are an assistant that extracts mortgage loan scenario information from user messages.

Extract the following fields if mentioned:
- state: The US state where the property is located (e.g., "California" -> "california", "CA" -> "california")
- loan_purpose: purchase, rate_term_refi, or cashout
- occupancy: primary, second_home, or investment
- property_type: sfr (Single Family, SFR, House), condo (Condo, Condominium), 2-4_unit (Duplex, Triplex, Fourplex), or other
- loan_amount: The loan amount (number only, no $ or commas)
- ltv: Loan-to-value percentage (number only, no %%)
- fico: Credit score (number, e.g., 740)
- doc_type: full_doc (W-2, Full Doc), bank_statement (Bank Statement), dscr (DSCR, rental income), 1099, wvoe, asset_utilization, or other
- credit_events: none (No, None, Clean), bankruptcy, foreclosure, short_sale, or late_payments
%s
Current known facts: %s

MAPPING GUIDE for short answers:
- "Single family", "SFR", "House" -> property_type: "sfr"
- "Condo", "Condominium" -> property_type: "condo"
- "Duplex", "2-unit", "Triplex", "Fourplex", "4-unit" -> property_type: "2-4_unit"
- "Primary", "Primary residence", "Owner occupied" -> occupancy: "primary"
- "Investment", "Rental", "NOO" -> occupancy: "investment"
- "Purchase", "Buying" -> loan_purpose: "purchase"
- "Refi", "Refinance", "Rate and term" -> loan_purpose: "rate_term_refi"
- "Cash out", "Cash-out refi" -> loan_purpose: "cashout"
- "W-2", "Full doc", "Tax returns" -> doc_type: "full_doc"
- "Bank statements", "Self-employed" -> doc_type: "bank_statement"
- "None", "No", "Clean credit" -> credit_events: "none"

Respond with a JSON object containing ONLY the newly extracted fields.
If no new information is found, respond with an empty object {}.
Use lowercase values and underscores for multi-word values.`

// Extractor pulls scenario facts out of free-text messages.
type Extractor struct {
	client llm.Client
}

// NewExtractor creates an Extractor.
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract returns the facts newly mentioned in message. When
// lastAskedField is non-empty, a short answer is preferentially mapped
// onto that field. Extraction failures yield an empty map, never an
// error: a turn must not abort because extraction misfired.
func (e *Extractor) Extract(ctx context.Context, message string, known types.Facts, lastAskedField string) types.Facts {
	fieldContext := ""
	if lastAskedField != "" {
		fieldContext = fmt.Sprintf(`
IMPORTANT: The user was just asked about %q.
If the user's message is a short answer (like "Single family", "California", "Purchase"),
map it to the appropriate %q field value.
`, lastAskedField, lastAskedField)
	}

	knownJSON, err := json.Marshal(known)
	if err != nil {
		knownJSON = []byte("{}")
	}

	var extracted map[string]any
	err = llm.CompleteJSON(ctx, e.client, llm.Request{
		System:      fmt.Sprintf(extractionSystemPrompt, fieldContext, knownJSON),
		User:        message,
		Temperature: 0,
	}, &extracted)
	if err != nil {
		logging.Get(logging.CategoryFacts).Warn("Extract: falling back to empty delta: %v", err)
		return types.Facts{}
	}

	// Keep only known vocabulary keys with non-null values.
	out := types.Facts{}
	for k, v := range extracted {
		if v == nil || !types.IsAttribute(k) {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	logging.Get(logging.CategoryFacts).Debug("Extract: %d new fields", len(out))
	return out
}

// Merge combines the known facts with an extraction delta and classifier
// entities. Later non-null values overwrite earlier ones for the same
// key; null or absent values are no-ops. Merge never deletes a
// previously known fact.
func Merge(known, extracted types.Facts, entities types.Entities) types.Facts {
	out := known.Clone()
	for k, v := range extracted {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	for k, v := range entities.FactValues() {
		out[k] = v
	}
	return out
}

// Missing returns the attributes not yet known, in vocabulary order. The
// first element is the next follow-up question.
func Missing(f types.Facts) []string {
	out := make([]string, 0, len(types.AttributeOrder))
	for _, attr := range types.AttributeOrder {
		if !f.Has(attr) {
			out = append(out, attr)
		}
	}
	return out
}

// Confidence scores how analyzable the scenario is, 0-95. Base score is
// completeness (0-60); high-value attributes add weighted bonuses. This
// score, not raw completeness, decides whether the pipeline runs.
func Confidence(f types.Facts, missing []string) int {
	total := len(types.AttributeOrder)
	present := total - len(missing)

	score := int(float64(present) / float64(total) * 60)

	if f.Has(types.AttrFico) {
		score += 15
	}
	if f.Has(types.AttrLTV) {
		score += 10
	}
	if f.Has(types.AttrState) {
		score += 5
	}
	if f.Has(types.AttrLoanPurpose) {
		score += 5
	}
	if f.Has(types.AttrDocType) {
		score += 5
	}

	if score > 95 {
		score = 95
	}
	return score
}
