// Package domain defines the core value types and persistence contracts
// used by stimcore.
package domain

import "fmt"

// StimulusID is the opaque filename-like key naming one presentable stimulus.
// IDs are globally unique within a stimulus set and immutable once enumerated.
type StimulusID string

// Phase identifies one of the two sequential experiment stages. Each phase
// owns its own stimulus set, randomized order, and progress log.
type Phase string

// Canonical experiment phases.
const (
	PhasePractice Phase = "practice"
	PhaseTest     Phase = "test"
)

// Valid reports whether the phase is one of the canonical values.
func (p Phase) Valid() bool {
	return p == PhasePractice || p == PhaseTest
}

// ParsePhase converts a raw string into a Phase, rejecting unknown values.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

// StimulusRecord carries the categorical attributes extracted from a stimulus
// identifier. Records are immutable after creation; extraction is a pure
// function of the identifier string. JSON tags match the result-row column
// names consumed downstream.
type StimulusRecord struct {
	Experiment     string `json:"exp"`
	Speaker        string `json:"speaker"`
	Trial          string `json:"trial"`
	StimulusOrigin string `json:"stimulus_origin"`
	NameStim       string `json:"name_stim"`
	Condition      string `json:"condition"`
	// Filename back-references the originating identifier. It is used for
	// lookup only, never for ownership.
	Filename StimulusID `json:"filename"`
}

// SessionKey scopes randomized orders and progress logs. No two keys ever
// share mutable state.
type SessionKey struct {
	Participant string
	Phase       Phase
}

// Validate checks the key components.
func (k SessionKey) Validate() error {
	if k.Participant == "" {
		return fmt.Errorf("participant id required")
	}
	if !k.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", k.Phase)
	}
	return nil
}

// String renders the key in the participant/phase form used for bucket names.
func (k SessionKey) String() string {
	return k.Participant + "/" + string(k.Phase)
}
