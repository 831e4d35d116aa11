// Package retrieval finds guideline passages relevant to a query.
// Search degrades, never fails: any backend problem yields an empty
// result list so the conversation flow is never broken by the index.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"owly/internal/embedding"
	"owly/internal/logging"
	"owly/internal/store"
	"owly/internal/types"
)

// Searcher is the retrieval capability the agents consume.
type Searcher interface {
	// Search returns up to topK passages ranked by relevance. A non-empty
	// lenderFilter restricts results to that lender. Returns an empty
	// slice when the backing index is unavailable.
	Search(ctx context.Context, query string, topK int, lenderFilter string) []types.Passage
}

// ChunkSource supplies the scannable chunk corpus.
type ChunkSource interface {
	ActiveChunks() ([]store.ChunkRow, error)
}

// Retriever implements Searcher with an embedding cosine scan over active
// chunks, falling back to keyword matching when no engine is configured
// or the query embedding fails.
type Retriever struct {
	source ChunkSource
	engine embedding.Engine // nil means keyword-only
}

// NewRetriever creates a Retriever. engine may be nil.
func NewRetriever(source ChunkSource, engine embedding.Engine) *Retriever {
	return &Retriever{source: source, engine: engine}
}

// Search implements Searcher.
func (r *Retriever) Search(ctx context.Context, query string, topK int, lenderFilter string) []types.Passage {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Search")
	defer timer.Stop()

	if topK <= 0 {
		topK = 10
	}

	chunks, err := r.source.ActiveChunks()
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Error("Search: chunk load failed: %v", err)
		return nil
	}
	if lenderFilter != "" {
		filtered := chunks[:0:0]
		for _, c := range chunks {
			if strings.EqualFold(c.Lender, lenderFilter) {
				filtered = append(filtered, c)
			}
		}
		chunks = filtered
	}
	if len(chunks) == 0 {
		logging.RetrievalDebug("Search: no chunks available (filter=%q)", lenderFilter)
		return nil
	}

	if r.engine != nil {
		if results := r.semanticSearch(ctx, query, chunks, topK); results != nil {
			return results
		}
		// Query embedding failed; degrade to keywords.
	}
	return r.keywordSearch(query, chunks, topK)
}

func (r *Retriever) semanticSearch(ctx context.Context, query string, chunks []store.ChunkRow, topK int) []types.Passage {
	queryVec, err := r.engine.Embed(ctx, query)
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Warn("Search: query embedding failed, falling back to keywords: %v", err)
		return nil
	}

	type scored struct {
		row store.ChunkRow
		sim float64
	}
	var candidates []scored
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		sim := embedding.Cosine(queryVec, c.Embedding)
		if sim > 0 {
			candidates = append(candidates, scored{row: c, sim: sim})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]types.Passage, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, passageFromRow(c.row, c.sim))
	}
	logging.RetrievalDebug("Search: semantic scan returned %d passages", len(out))
	return out
}

// keywordSearch ranks chunks by the number of query keywords they
// contain.
func (r *Retriever) keywordSearch(query string, chunks []store.ChunkRow, topK int) []types.Passage {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		row  store.ChunkRow
		hits int
	}
	var candidates []scored
	for _, c := range chunks {
		content := strings.ToLower(c.Content)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				hits++
			}
		}
		if hits > 0 {
			candidates = append(candidates, scored{row: c, hits: hits})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].hits > candidates[j].hits })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]types.Passage, 0, len(candidates))
	for _, c := range candidates {
		sim := float64(c.hits) / float64(len(keywords))
		out = append(out, passageFromRow(c.row, sim))
	}
	logging.RetrievalDebug("Search: keyword scan returned %d passages", len(out))
	return out
}

func passageFromRow(row store.ChunkRow, sim float64) types.Passage {
	return types.Passage{
		ID:          row.ID,
		Content:     row.Content,
		Lender:      row.Lender,
		Filename:    row.Filename,
		SectionPath: row.Section,
		Similarity:  sim,
	}
}
