// Package memory implements the session store in process memory. It is the
// authoritative state holder embedded by the snapshotting sqlite and postgres
// stores, and is used directly in tests.
package memory

import (
	"context"
	"sync"

	"stimcore/pkg/domain"
)

// Store implements domain.SessionStore in memory.
type Store struct {
	mu           sync.RWMutex
	orders       map[string][]domain.StimulusID
	progress     map[string][]domain.StimulusID
	results      map[string][]domain.TrialResult
	practiceDone map[string]bool
}

// New returns an empty in-memory session store.
func New() *Store {
	return &Store{
		orders:       make(map[string][]domain.StimulusID),
		progress:     make(map[string][]domain.StimulusID),
		results:      make(map[string][]domain.TrialResult),
		practiceDone: make(map[string]bool),
	}
}

// Snapshot is the serializable form of the full store state. Session keys are
// flattened to "participant/phase" strings.
type Snapshot struct {
	Orders       map[string][]domain.StimulusID  `json:"orders"`
	Progress     map[string][]domain.StimulusID  `json:"progress"`
	Results      map[string][]domain.TrialResult `json:"results"`
	PracticeDone map[string]bool                 `json:"practice_done"`
}

// LoadOrder returns the stored order for key, ok=false when absent.
func (s *Store) LoadOrder(_ context.Context, key domain.SessionKey) ([]domain.StimulusID, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[key.String()]
	if !ok {
		return nil, false, nil
	}
	return cloneIDs(order), true, nil
}

// SaveOrder stores a randomized order once per key.
func (s *Store) SaveOrder(_ context.Context, key domain.SessionKey, order []domain.StimulusID) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[key.String()]; exists {
		return domain.ErrOrderExists
	}
	s.orders[key.String()] = cloneIDs(order)
	return nil
}

// LoadProgress returns completed identifiers in append order; empty when no
// log exists.
func (s *Store) LoadProgress(_ context.Context, key domain.SessionKey) ([]domain.StimulusID, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIDs(s.progress[key.String()]), nil
}

// AppendProgress appends completed identifiers to the log.
func (s *Store) AppendProgress(_ context.Context, key domain.SessionKey, ids ...domain.StimulusID) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[key.String()] = append(s.progress[key.String()], ids...)
	return nil
}

// AppendResult appends one result row for the participant.
func (s *Store) AppendResult(_ context.Context, result domain.TrialResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Participant] = append(s.results[result.Participant], result)
	return nil
}

// ListResults returns all rows for the participant in append order.
func (s *Store) ListResults(_ context.Context, participant string) ([]domain.TrialResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.results[participant]
	out := make([]domain.TrialResult, len(rows))
	copy(out, rows)
	return out, nil
}

// MarkPracticeDone records practice completion. Idempotent.
func (s *Store) MarkPracticeDone(_ context.Context, participant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.practiceDone[participant] = true
	return nil
}

// PracticeDone reports whether practice has been completed.
func (s *Store) PracticeDone(_ context.Context, participant string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.practiceDone[participant], nil
}

// ExportState returns a deep copy of the full store state for persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Orders:       make(map[string][]domain.StimulusID, len(s.orders)),
		Progress:     make(map[string][]domain.StimulusID, len(s.progress)),
		Results:      make(map[string][]domain.TrialResult, len(s.results)),
		PracticeDone: make(map[string]bool, len(s.practiceDone)),
	}
	for k, v := range s.orders {
		snap.Orders[k] = cloneIDs(v)
	}
	for k, v := range s.progress {
		snap.Progress[k] = cloneIDs(v)
	}
	for k, v := range s.results {
		rows := make([]domain.TrialResult, len(v))
		copy(rows, v)
		snap.Results[k] = rows
	}
	for k, v := range s.practiceDone {
		snap.PracticeDone[k] = v
	}
	return snap
}

// ImportState replaces the store state with the snapshot contents.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string][]domain.StimulusID, len(snap.Orders))
	s.progress = make(map[string][]domain.StimulusID, len(snap.Progress))
	s.results = make(map[string][]domain.TrialResult, len(snap.Results))
	s.practiceDone = make(map[string]bool, len(snap.PracticeDone))
	for k, v := range snap.Orders {
		s.orders[k] = cloneIDs(v)
	}
	for k, v := range snap.Progress {
		s.progress[k] = cloneIDs(v)
	}
	for k, v := range snap.Results {
		rows := make([]domain.TrialResult, len(v))
		copy(rows, v)
		s.results[k] = rows
	}
	for k, v := range snap.PracticeDone {
		s.practiceDone[k] = v
	}
}

func cloneIDs(in []domain.StimulusID) []domain.StimulusID {
	out := make([]domain.StimulusID, len(in))
	copy(out, in)
	return out
}
