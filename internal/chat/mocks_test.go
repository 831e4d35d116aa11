package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"owly/internal/llm"
	"owly/internal/store"
	"owly/internal/types"
)

var errTest = errors.New("scripted storage failure")

// routeClient dispatches completions on system-prompt markers so one
// client can stand in for every model call a turn makes.
type routeClient struct {
	routes map[string]string
	errOn  string
}

func (c *routeClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	for marker, response := range c.routes {
		if !strings.Contains(req.System, marker) {
			continue
		}
		if c.errOn == marker {
			return "", errors.New("scripted failure for " + marker)
		}
		return response, nil
	}
	return "", errors.New("no scripted route for prompt")
}

// panicClient blows up on first use, for the turn-level recovery test.
type panicClient struct{}

func (c *panicClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	panic("scripted model panic")
}

// memStore is an in-memory Persistence with togglable failures.
type memStore struct {
	mu            sync.Mutex
	conversations map[string]*types.Conversation
	messages      map[string][]types.Message
	nextID        int
	createErr     error
	appendErr     error
}

func newMemStore() *memStore {
	return &memStore{
		conversations: make(map[string]*types.Conversation),
		messages:      make(map[string][]types.Message),
	}
}

func (m *memStore) GetConversation(id string) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := *conv
	copied.Facts = conv.Facts.Clone()
	return &copied, nil
}

func (m *memStore) CreateConversation() (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("conv-%d", m.nextID)
	conv := &types.Conversation{ID: id, Facts: types.Facts{}}
	m.conversations[id] = conv
	return conv, nil
}

func (m *memStore) AppendMessage(conversationID string, role types.MessageRole, content string, meta types.MessageMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.messages[conversationID] = append(m.messages[conversationID], types.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       meta,
	})
	return nil
}

func (m *memStore) LastAssistantMessage(conversationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleAssistant {
			return msgs[i].Content, nil
		}
	}
	return "", nil
}

func (m *memStore) UpdateFacts(conversationID string, facts types.Facts, missing []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.conversations[conversationID]; ok {
		conv.Facts = facts.Clone()
		conv.MissingFields = append([]string(nil), missing...)
	}
	return nil
}

func (m *memStore) seed(id string, facts types.Facts, missing []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[id] = &types.Conversation{ID: id, Facts: facts, MissingFields: missing}
}

// stubSearcher records every lender filter it was asked for.
type stubSearcher struct {
	mu       sync.Mutex
	passages []types.Passage
	filters  []string
}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int, lenderFilter string) []types.Passage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, lenderFilter)
	if len(s.passages) > topK {
		return s.passages[:topK]
	}
	return s.passages
}

func (s *stubSearcher) seenFilters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.filters...)
}

type stubRuleSource struct {
	rules []types.RuleRecord
	err   error
}

func (s *stubRuleSource) ActiveRules(lender string) ([]types.RuleRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if lender == "" {
		return s.rules, nil
	}
	var out []types.RuleRecord
	for _, r := range s.rules {
		if strings.EqualFold(r.Lender, lender) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubStats struct {
	stats store.Stats
	err   error
}

func (s *stubStats) CorpusStats() (store.Stats, error) { return s.stats, s.err }

type stubLenderSource struct {
	lenders []string
}

func (s *stubLenderSource) Lenders() ([]string, error) { return s.lenders, nil }

type stubChunkLookup struct {
	passages []types.Passage
}

func (s *stubChunkLookup) ChunksByLender(lender string, limit int) ([]types.Passage, error) {
	return s.passages, nil
}
