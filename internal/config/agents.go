package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// AgentsConfig tunes the three-stage analysis pipeline.
type AgentsConfig struct {
	// Per-specialist timeout. A specialist exceeding it yields an error
	// result for that lender only; siblings keep running.
	SpecialistTimeout time.Duration `yaml:"specialist_timeout"`

	// Maximum candidates the leader may nominate (fan-out width bound).
	MaxCandidates int `yaml:"max_candidates"`

	// Passages fetched by the leader's pre-filter query.
	LeaderTopK int `yaml:"leader_top_k"`

	// Passages fetched per specialist.
	SpecialistTopK int `yaml:"specialist_top_k"`
}

// DefaultAgentsConfig returns sensible defaults.
func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{
		SpecialistTimeout: 15 * time.Second,
		MaxCandidates:     5,
		LeaderTopK:        10,
		SpecialistTopK:    20,
	}
}

// UnmarshalYAML merges file values over the pre-filled defaults, parsing
// the timeout from "15s" style strings.
func (a *AgentsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SpecialistTimeout *string `yaml:"specialist_timeout"`
		MaxCandidates     *int    `yaml:"max_candidates"`
		LeaderTopK        *int    `yaml:"leader_top_k"`
		SpecialistTopK    *int    `yaml:"specialist_top_k"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.SpecialistTimeout != nil {
		d, err := parseDuration(*raw.SpecialistTimeout)
		if err != nil {
			return err
		}
		a.SpecialistTimeout = d
	}
	if raw.MaxCandidates != nil {
		a.MaxCandidates = *raw.MaxCandidates
	}
	if raw.LeaderTopK != nil {
		a.LeaderTopK = *raw.LeaderTopK
	}
	if raw.SpecialistTopK != nil {
		a.SpecialistTopK = *raw.SpecialistTopK
	}
	return nil
}
