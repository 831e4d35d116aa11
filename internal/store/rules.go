package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"owly/internal/types"

	"github.com/google/uuid"
)

// SaveRule inserts a structured rule. Active rules must satisfy the
// min<=max bounds invariant.
func (s *LocalStore) SaveRule(rule *types.RuleRecord) error {
	if rule.Status == "" {
		rule.Status = types.RuleActive
	}
	if rule.Status == types.RuleActive && !rule.BoundsValid() {
		return fmt.Errorf("rule for %s/%s violates min<=max bounds", rule.Lender, rule.Program)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	marshal := func(v []string) any {
		if len(v) == 0 {
			return nil
		}
		data, _ := json.Marshal(v)
		return string(data)
	}

	_, err := s.db.Exec(`
		INSERT INTO rules (id, document_id, lender, program, fico_min, fico_max, ltv_max, loan_min, loan_max, dti_max,
			purposes, occupancies, property_types, doc_types, notes, footnotes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, nullIfEmpty(rule.DocumentID), rule.Lender, rule.Program,
		intPtr(rule.FicoMin), intPtr(rule.FicoMax),
		floatPtr(rule.LTVMax), floatPtr(rule.LoanMin), floatPtr(rule.LoanMax), floatPtr(rule.DTIMax),
		marshal(rule.Purposes), marshal(rule.Occupancies), marshal(rule.PropertyTypes), marshal(rule.DocTypes),
		rule.Notes, marshal(rule.Footnotes), rule.Status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// ActiveRules returns active rules, optionally filtered by lender
// (empty lender means all lenders).
func (s *LocalStore) ActiveRules(lender string) ([]types.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, COALESCE(document_id, ''), lender, COALESCE(program, ''),
			fico_min, fico_max, ltv_max, loan_min, loan_max, dti_max,
			purposes, occupancies, property_types, doc_types,
			COALESCE(notes, ''), footnotes, status
		FROM rules WHERE status = 'active'`
	args := []any{}
	if lender != "" {
		query += " AND lender = ?"
		args = append(args, lender)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	defer rows.Close()

	var out []types.RuleRecord
	for rows.Next() {
		var r types.RuleRecord
		var ficoMin, ficoMax sql.NullInt64
		var ltvMax, loanMin, loanMax, dtiMax sql.NullFloat64
		var purposes, occupancies, propertyTypes, docTypes, footnotes sql.NullString

		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Lender, &r.Program,
			&ficoMin, &ficoMax, &ltvMax, &loanMin, &loanMax, &dtiMax,
			&purposes, &occupancies, &propertyTypes, &docTypes,
			&r.Notes, &footnotes, &r.Status); err != nil {
			continue
		}

		if ficoMin.Valid {
			v := int(ficoMin.Int64)
			r.FicoMin = &v
		}
		if ficoMax.Valid {
			v := int(ficoMax.Int64)
			r.FicoMax = &v
		}
		if ltvMax.Valid {
			r.LTVMax = &ltvMax.Float64
		}
		if loanMin.Valid {
			r.LoanMin = &loanMin.Float64
		}
		if loanMax.Valid {
			r.LoanMax = &loanMax.Float64
		}
		if dtiMax.Valid {
			r.DTIMax = &dtiMax.Float64
		}
		r.Purposes = unmarshalList(purposes)
		r.Occupancies = unmarshalList(occupancies)
		r.PropertyTypes = unmarshalList(propertyTypes)
		r.DocTypes = unmarshalList(docTypes)
		r.Footnotes = unmarshalList(footnotes)
		out = append(out, r)
	}
	return out, rows.Err()
}

func unmarshalList(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
