package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrOrderExists is returned by SaveOrder when a randomized order has already
// been persisted for the key. Orders are create-once: resumption must reuse
// the stored order verbatim, never re-randomize.
var ErrOrderExists = errors.New("randomized order already exists")

// ErrNotFound reports a missing session entity.
type ErrNotFound struct {
	Kind string
	Key  SessionKey
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s for %s not found", e.Kind, e.Key)
}

// SessionStore persists per-(participant, phase) session state: the
// randomized presentation order, the append-only progress log, accumulated
// result rows, and the practice-done marker.
//
// Implementations assume a single writer and single reader per SessionKey;
// behavior under concurrent sessions for the same participant is undefined.
type SessionStore interface {
	// LoadOrder returns the persisted randomized order for the key, with
	// ok=false when no order has been stored yet.
	LoadOrder(ctx context.Context, key SessionKey) (order []StimulusID, ok bool, err error)
	// SaveOrder persists a randomized order. Fails with ErrOrderExists when
	// an order is already stored for the key.
	SaveOrder(ctx context.Context, key SessionKey, order []StimulusID) error
	// LoadProgress returns the identifiers already presented to completion,
	// in append order. A missing log yields an empty slice, not an error.
	LoadProgress(ctx context.Context, key SessionKey) ([]StimulusID, error)
	// AppendProgress appends completed identifiers to the progress log.
	AppendProgress(ctx context.Context, key SessionKey, ids ...StimulusID) error
	// AppendResult appends one result row for the participant.
	AppendResult(ctx context.Context, result TrialResult) error
	// ListResults returns all result rows recorded for the participant, in
	// append order.
	ListResults(ctx context.Context, participant string) ([]TrialResult, error)
	// MarkPracticeDone records that the participant finished the practice
	// phase. Idempotent.
	MarkPracticeDone(ctx context.Context, participant string) error
	// PracticeDone reports whether the practice phase has been completed.
	PracticeDone(ctx context.Context, participant string) (bool, error)
}
