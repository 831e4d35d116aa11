package store

import (
	"encoding/json"
	"fmt"
	"time"

	"owly/internal/logging"
	"owly/internal/types"

	"github.com/google/uuid"
)

// Document is a lender guideline document record. Ingestion (external)
// writes these; the core reads them.
type Document struct {
	ID       string
	Filename string
	Lender   string
	Program  string
	Status   string
}

// Chunk is a guideline text excerpt with an optional embedding.
type Chunk struct {
	ID          string
	DocumentID  string
	Content     string
	SectionPath string
	Index       int
	IsTable     bool
	Embedding   []float32
}

// ChunkRow is a chunk joined with its document attribution, the shape the
// retrieval layer scans.
type ChunkRow struct {
	ID        string
	Content   string
	Section   string
	Lender    string
	Filename  string
	Embedding []float32
}

// SaveDocument inserts a document. An empty ID is assigned.
func (s *LocalStore) SaveDocument(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = "active"
	}
	_, err := s.db.Exec(
		"INSERT INTO documents (id, filename, lender, program, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		doc.ID, doc.Filename, doc.Lender, doc.Program, doc.Status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SaveChunk inserts a chunk. The embedding is stored JSON-serialized.
func (s *LocalStore) SaveChunk(chunk *Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	var embJSON []byte
	if len(chunk.Embedding) > 0 {
		embJSON, _ = json.Marshal(chunk.Embedding)
	}
	_, err := s.db.Exec(
		"INSERT INTO chunks (id, document_id, content, section_path, chunk_index, is_table, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		chunk.ID, chunk.DocumentID, chunk.Content, chunk.SectionPath, chunk.Index, chunk.IsTable, string(embJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

// Lenders returns the distinct lenders that have active documents.
func (s *LocalStore) Lenders() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT DISTINCT lender FROM documents WHERE status = 'active' AND lender IS NOT NULL AND lender != '' ORDER BY lender",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list lenders: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var lender string
		if err := rows.Scan(&lender); err != nil {
			continue
		}
		out = append(out, lender)
	}
	return out, rows.Err()
}

// ActiveChunks returns every chunk belonging to an active document,
// joined with lender and filename, for the retrieval scan.
func (s *LocalStore) ActiveChunks() ([]ChunkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT c.id, c.content, COALESCE(c.section_path, ''), COALESCE(d.lender, ''), d.filename, COALESCE(c.embedding, '')
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		var embJSON string
		if err := rows.Scan(&r.ID, &r.Content, &r.Section, &r.Lender, &r.Filename, &embJSON); err != nil {
			continue
		}
		if embJSON != "" {
			if err := json.Unmarshal([]byte(embJSON), &r.Embedding); err != nil {
				logging.StoreDebug("Chunk %s has malformed embedding: %v", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChunksByLender returns up to limit chunks for one lender's active
// documents. Used as the direct-lookup fallback when semantic retrieval
// returns nothing for that lender.
func (s *LocalStore) ChunksByLender(lender string, limit int) ([]types.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT c.id, c.content, COALESCE(c.section_path, ''), COALESCE(d.lender, ''), d.filename
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.lender = ? AND d.status = 'active'
		LIMIT ?`, lender, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load lender chunks: %w", err)
	}
	defer rows.Close()

	var out []types.Passage
	for rows.Next() {
		var p types.Passage
		if err := rows.Scan(&p.ID, &p.Content, &p.SectionPath, &p.Lender, &p.Filename); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats summarizes the corpus for the general QA prompt.
type Stats struct {
	Lenders       []string
	DocumentCount int
	RuleCount     int
}

// CorpusStats counts lenders, documents, and rules.
func (s *LocalStore) CorpusStats() (Stats, error) {
	var stats Stats

	lenders, err := s.Lenders()
	if err != nil {
		return stats, err
	}
	stats.Lenders = lenders

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&stats.DocumentCount); err != nil {
		return stats, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rules").Scan(&stats.RuleCount); err != nil {
		return stats, fmt.Errorf("failed to count rules: %w", err)
	}
	return stats, nil
}
