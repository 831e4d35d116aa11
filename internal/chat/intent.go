package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/types"
)

// =============================================================================
// INTENT CLASSIFICATION
// =============================================================================

// Intent is the turn-routing category for a user message.
type Intent string

const (
	IntentGeneralQuestion  Intent = "general_question"
	IntentProductSearch    Intent = "product_search"
	IntentEligibilityCheck Intent = "eligibility_check"
	IntentScenarioInput    Intent = "scenario_input"
	IntentFollowUp         Intent = "follow_up"
	IntentSummaryRequest   Intent = "summary_request"
)

// Classification is the classifier output: the routed intent, the
// model's confidence in it, and any scenario entities found in passing.
type Classification struct {
	Intent     Intent         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Entities   types.Entities `json:"extracted_entities"`
}

const intentSystemPrompt = `You are an intent classifier for a mortgage lending assistant.

Classify the user's message into one of these intents:

1. **general_question** - Questions about the system, available lenders, or general mortgage concepts
   Examples: "How many lenders do you have?", "What products are available?", "What is LTV?"

2. **product_search** - Looking for specific product types or lender capabilities
   Examples: "Best lender for bank statement loans?", "Who offers DSCR?", "Which lender has lowest rates?"

3. **eligibility_check** - Checking if a specific scenario qualifies
   Examples: "Does any lender do 5 units?", "Can I get a loan with 580 score?", "Any lender allow 85%% LTV on investment?"

4. **scenario_input** - Providing borrower/property details for eligibility analysis
   Examples: "My client has 740 score, 20%% down, buying in California", "FICO 680, DTI 45%%, refinance"

5. **follow_up** - Direct answer to a previous question (short responses)
   Examples: "California", "Yes", "Single family", "80%%", "Purchase"
   IMPORTANT: If there was a previous question and the answer is short/direct, this is likely follow_up.

6. **summary_request** - Asking for a summary of current information or what's missing
   Examples: "Summarize what you know", "What info do you have?", "What am I missing?", "Show me the client profile", "What information have I provided?"

Also extract any mortgage-related entities found in the message.
%s

Respond with JSON:
{
    "intent": "<intent_type>",
    "confidence": <0.0-1.0>,
    "reasoning": "<brief explanation>",
    "extracted_entities": {
        "fico": <number or null>,
        "state": "<string or null>",
        "loan_purpose": "<string or null>",
        "property_type": "<string or null>",
        "ltv": <number or null>,
        "loan_amount": <number or null>,
        "doc_type": "<string or null>",
        "product_type_asked": "<string or null>",
        "lender_asked": "<string or null>"
    }
}`

// Classifier routes user messages by intent.
type Classifier struct {
	client llm.Client
}

// NewClassifier creates an intent classifier.
func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client}
}

// Classify determines the intent of a message, using the last assistant
// question and the known facts as disambiguation context (short answers
// after a question lean follow_up). Any failure degrades to the fail-safe
// default: scenario_input at 0.5 confidence with no entities, so the
// turn always proceeds through the most general route.
func (c *Classifier) Classify(ctx context.Context, message, lastQuestion string, facts types.Facts) Classification {
	extra := ""
	if lastQuestion != "" {
		extra += "\nLast system question: " + lastQuestion
	}
	if len(facts) > 0 {
		if raw, err := json.Marshal(facts); err == nil {
			extra += "\nKnown facts about scenario: " + string(raw)
		}
	}

	var result Classification
	err := llm.CompleteJSON(ctx, c.client, llm.Request{
		System:      fmt.Sprintf(intentSystemPrompt, extra),
		User:        message,
		Shape:       llm.ShapeStructured,
		Temperature: 0,
	}, &result)
	if err != nil || !validIntent(result.Intent) {
		logging.Get(logging.CategoryIntent).Warn("classification failed, defaulting to scenario_input: %v", err)
		return Classification{
			Intent:     IntentScenarioInput,
			Confidence: 0.5,
			Entities:   types.Entities{},
		}
	}
	if result.Entities == nil {
		result.Entities = types.Entities{}
	}

	logging.Get(logging.CategoryIntent).Debug("intent=%s confidence=%.2f", result.Intent, result.Confidence)
	return result
}

func validIntent(i Intent) bool {
	switch i {
	case IntentGeneralQuestion, IntentProductSearch, IntentEligibilityCheck,
		IntentScenarioInput, IntentFollowUp, IntentSummaryRequest:
		return true
	}
	return false
}
