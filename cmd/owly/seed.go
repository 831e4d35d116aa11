package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"owly/internal/store"
	"owly/internal/types"
)

// seedFixture is the YAML shape the seed command loads.
type seedFixture struct {
	Documents []seedDocument `yaml:"documents"`
	Rules     []seedRule     `yaml:"rules"`
}

type seedDocument struct {
	Filename string      `yaml:"filename"`
	Lender   string      `yaml:"lender"`
	Program  string      `yaml:"program"`
	Chunks   []seedChunk `yaml:"chunks"`
}

type seedChunk struct {
	Content   string    `yaml:"content"`
	Section   string    `yaml:"section"`
	IsTable   bool      `yaml:"is_table"`
	Embedding []float32 `yaml:"embedding"`
}

type seedRule struct {
	Lender  string `yaml:"lender"`
	Program string `yaml:"program"`

	FicoMin *int     `yaml:"fico_min"`
	FicoMax *int     `yaml:"fico_max"`
	LTVMax  *float64 `yaml:"ltv_max"`
	LoanMin *float64 `yaml:"loan_min"`
	LoanMax *float64 `yaml:"loan_max"`
	DTIMax  *float64 `yaml:"dti_max"`

	Purposes      []string `yaml:"purposes"`
	Occupancies   []string `yaml:"occupancies"`
	PropertyTypes []string `yaml:"property_types"`
	DocTypes      []string `yaml:"doc_types"`

	Notes string `yaml:"notes"`
}

// runSeed loads documents, chunks, and rules from a fixture file.
func runSeed(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture seedFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	docs, chunks := 0, 0
	for _, d := range fixture.Documents {
		doc := &store.Document{Filename: d.Filename, Lender: d.Lender, Program: d.Program}
		if err := a.store.SaveDocument(doc); err != nil {
			return fmt.Errorf("document %s: %w", d.Filename, err)
		}
		docs++

		for i, c := range d.Chunks {
			chunk := &store.Chunk{
				DocumentID:  doc.ID,
				Content:     c.Content,
				SectionPath: c.Section,
				Index:       i,
				IsTable:     c.IsTable,
				Embedding:   c.Embedding,
			}
			if err := a.store.SaveChunk(chunk); err != nil {
				return fmt.Errorf("chunk %d of %s: %w", i, d.Filename, err)
			}
			chunks++
		}
	}

	ruleCount := 0
	for _, r := range fixture.Rules {
		rule := &types.RuleRecord{
			Lender:        r.Lender,
			Program:       r.Program,
			FicoMin:       r.FicoMin,
			FicoMax:       r.FicoMax,
			LTVMax:        r.LTVMax,
			LoanMin:       r.LoanMin,
			LoanMax:       r.LoanMax,
			DTIMax:        r.DTIMax,
			Purposes:      r.Purposes,
			Occupancies:   r.Occupancies,
			PropertyTypes: r.PropertyTypes,
			DocTypes:      r.DocTypes,
			Notes:         r.Notes,
			Status:        types.RuleActive,
		}
		if err := a.store.SaveRule(rule); err != nil {
			return fmt.Errorf("rule for %s/%s: %w", r.Lender, r.Program, err)
		}
		ruleCount++
	}

	logger.Info("Fixture loaded",
		zap.Int("documents", docs),
		zap.Int("chunks", chunks),
		zap.Int("rules", ruleCount))
	fmt.Printf("Loaded %d documents, %d chunks, %d rules from %s\n", docs, chunks, ruleCount, args[0])
	return nil
}
