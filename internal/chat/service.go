// Package chat orchestrates conversation turns: intent routing, fact
// accumulation, and the leader/specialist/evaluator analysis pipeline.
package chat

import (
	"context"

	"owly/internal/agents"
	"owly/internal/config"
	"owly/internal/facts"
	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/retrieval"
	"owly/internal/rules"
	"owly/internal/types"
)

// Persistence is the conversation state the service needs from storage.
type Persistence interface {
	GetConversation(id string) (*types.Conversation, error)
	CreateConversation() (*types.Conversation, error)
	AppendMessage(conversationID string, role types.MessageRole, content string, meta types.MessageMeta) error
	LastAssistantMessage(conversationID string) (string, error)
	UpdateFacts(conversationID string, facts types.Facts, missing []string) error
}

// TurnResponse is the complete outcome of one conversation turn.
type TurnResponse struct {
	Response       string           `json:"response"`
	ConversationID string           `json:"conversation_id"`
	Facts          types.Facts      `json:"facts"`
	MissingFields  []string         `json:"missing_fields"`
	Confidence     int              `json:"confidence"`
	Citations      []types.Citation `json:"citations"`
}

// Service runs conversation turns. Callers serialize turns per
// conversation; the service itself holds no per-conversation state.
type Service struct {
	store      Persistence
	classifier *Classifier
	qa         *GeneralQA
	extractor  *facts.Extractor
	factory    *agents.Factory
	cfg        config.AgentsConfig
}

// NewService wires the turn orchestrator.
func NewService(store Persistence, client llm.Client, searcher retrieval.Searcher, ruleSource rules.Source, stats StatsSource, factory *agents.Factory, cfg config.AgentsConfig) *Service {
	return &Service{
		store:      store,
		classifier: NewClassifier(client),
		qa:         NewGeneralQA(client, searcher, ruleSource, stats),
		extractor:  facts.NewExtractor(client),
		factory:    factory,
		cfg:        cfg,
	}
}

// ProcessMessage runs one full turn. It never returns an error: every
// failure inside the turn degrades to a usable response, and a panic
// anywhere below is converted into an apology that preserves the facts
// known before the turn started.
func (s *Service) ProcessMessage(ctx context.Context, message, conversationID string) (resp TurnResponse) {
	timer := logging.StartTimer(logging.CategoryChat, "ProcessMessage")
	defer timer.Stop()

	conv := s.resolveConversation(conversationID)
	priorFacts := conv.Facts.Clone()

	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryChat).Error("turn panic recovered: %v", r)
			resp = TurnResponse{
				Response:       "I ran into an unexpected problem processing that. Your scenario details are preserved, please try again.",
				ConversationID: conv.ID,
				Facts:          priorFacts,
				MissingFields:  facts.Missing(priorFacts),
				Confidence:     0,
			}
		}
	}()

	s.persist(func() error {
		return s.store.AppendMessage(conv.ID, types.RoleUser, message, types.MessageMeta{})
	})

	currentFacts := conv.Facts
	lastAskedField := ""
	if len(conv.MissingFields) > 0 {
		lastAskedField = conv.MissingFields[0]
	}

	lastQuestion, err := s.store.LastAssistantMessage(conv.ID)
	if err != nil {
		logging.Chat("last assistant message lookup failed: %v", err)
	}

	cls := s.classifier.Classify(ctx, message, lastQuestion, currentFacts)
	entities := cls.Entities.Clean()

	var answer Answer
	updatedFacts := currentFacts

	switch cls.Intent {
	case IntentGeneralQuestion:
		answer = s.qa.AnswerGeneral(ctx, message)

	case IntentProductSearch:
		// Lender context carries into product-search follow-ups only;
		// eligibility checks below always search the full corpus.
		answer = s.qa.AnswerProductSearch(ctx, message, entities.ProductTypeAsked(), entities.LenderAsked())

	case IntentEligibilityCheck:
		answer = s.qa.AnswerEligibilityCheck(ctx, message, entities)
		updatedFacts = facts.Merge(currentFacts, nil, entities)

	case IntentSummaryRequest:
		answer = Answer{Response: formatSummary(currentFacts)}

	default: // scenario_input, follow_up
		extracted := s.extractor.Extract(ctx, message, currentFacts, lastAskedField)
		updatedFacts = facts.Merge(currentFacts, extracted, entities)
		answer = s.scenarioResponse(ctx, updatedFacts)
	}

	missing := facts.Missing(updatedFacts)
	confidence := facts.Confidence(updatedFacts, missing)
	citations := types.DedupCitations(answer.Citations)

	s.persist(func() error {
		return s.store.UpdateFacts(conv.ID, updatedFacts, missing)
	})
	s.persist(func() error {
		return s.store.AppendMessage(conv.ID, types.RoleAssistant, answer.Response, types.MessageMeta{
			Citations: citations,
			Intent:    string(cls.Intent),
		})
	})

	return TurnResponse{
		Response:       answer.Response,
		ConversationID: conv.ID,
		Facts:          updatedFacts,
		MissingFields:  missing,
		Confidence:     confidence,
		Citations:      citations,
	}
}

// resolveConversation loads the requested conversation or starts a new
// one. Storage failure degrades to an unpersisted in-memory conversation
// so the turn still produces a response.
func (s *Service) resolveConversation(id string) *types.Conversation {
	if id != "" {
		conv, err := s.store.GetConversation(id)
		if err != nil {
			logging.Chat("conversation lookup failed: %v", err)
		}
		if conv != nil {
			if conv.Facts == nil {
				conv.Facts = types.Facts{}
			}
			return conv
		}
	}

	conv, err := s.store.CreateConversation()
	if err != nil {
		logging.Chat("conversation create failed, continuing unpersisted: %v", err)
		return &types.Conversation{Facts: types.Facts{}}
	}
	if conv.Facts == nil {
		conv.Facts = types.Facts{}
	}
	return conv
}

// persist runs a storage write, logging instead of failing the turn.
func (s *Service) persist(fn func() error) {
	if err := fn(); err != nil {
		logging.Chat("persistence write failed: %v", err)
	}
}

// scenarioResponse picks the analysis tier from scenario completeness:
// no anchor fact at all means onboarding, confidence at or above 70
// runs the full pipeline, anything between gets a leader-only
// preliminary pass.
func (s *Service) scenarioResponse(ctx context.Context, f types.Facts) Answer {
	missing := facts.Missing(f)
	confidence := facts.Confidence(f, missing)

	hasMinimum := f.Has(types.AttrFico) || f.Has(types.AttrDocType) || f.Has(types.AttrLoanPurpose)
	if !hasMinimum {
		return Answer{Response: onboardingResponse}
	}

	if confidence >= 70 {
		return s.runPipeline(ctx, f)
	}
	return s.preliminaryResponse(ctx, f, missing)
}

// preliminaryResponse runs the leader alone and reports candidates plus
// what is still missing.
func (s *Service) preliminaryResponse(ctx context.Context, f types.Facts, missing []string) Answer {
	if len(s.factory.AvailableLenders()) == 0 {
		return Answer{Response: formatNoLenders(f, missing)}
	}

	result := s.factory.Leader().Analyze(ctx, f)
	return Answer{
		Response:  formatPreliminary(result, missing),
		Citations: result.Citations,
	}
}

// runPipeline executes the full leader, specialist fan-out, evaluator
// sequence for a sufficiently complete scenario.
func (s *Service) runPipeline(ctx context.Context, scenario types.Facts) Answer {
	leaderResult := s.factory.Leader().Analyze(ctx, scenario)
	allCitations := append([]types.Citation(nil), leaderResult.Citations...)

	names := leaderResult.CandidateNames()
	if len(names) == 0 {
		return Answer{
			Response:  formatNoCandidates(scenario, facts.Missing(scenario)),
			Citations: allCitations,
		}
	}

	specialists := s.factory.SpecialistsFor(names)
	results := agents.RunSpecialists(ctx, specialists, scenario, s.cfg.SpecialistTimeout)

	var valid []types.SpecialistResult
	for _, r := range results {
		if r.Failed() {
			logging.Agents("specialist %s excluded: %s", r.Lender, r.Err)
			continue
		}
		valid = append(valid, r)
		allCitations = append(allCitations, r.Citations...)
	}

	if len(valid) == 0 {
		response := "I could not complete the analysis of the candidate lenders. Please try again."
		if leaderResult.Understanding != "" {
			response = "**Understanding:** " + leaderResult.Understanding + "\n\n" + response
		}
		return Answer{Response: response, Citations: allCitations}
	}

	evalResult := s.factory.Evaluator().Analyze(ctx, scenario, valid)
	allCitations = append(allCitations, evalResult.Citations...)

	return Answer{
		Response:  formatFinal(evalResult, valid, scenario),
		Citations: allCitations,
	}
}
