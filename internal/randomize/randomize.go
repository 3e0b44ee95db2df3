// Package randomize produces constraint-respecting permutations of stimulus
// records. The scheduler is greedy and repair-free: placements are never
// undone, and when the caps become unsatisfiable the remaining pool is
// flushed unconstrained.
package randomize

import (
	"math/rand"

	"stimcore/pkg/domain"
)

// Caps bound how many times a single attribute value may appear among all
// records placed so far. They are global quotas over the emitted prefix, not
// sliding-window spacing constraints.
type Caps struct {
	Condition      int
	NameStim       int
	Speaker        int
	StimulusOrigin int
}

// DefaultCaps are the experiment's canonical attribute caps.
var DefaultCaps = Caps{
	Condition:      4,
	NameStim:       3,
	Speaker:        3,
	StimulusOrigin: 4,
}

// Randomize permutes records under DefaultCaps using the supplied random
// source. The result is always a permutation of the input multiset.
func Randomize(rng *rand.Rand, records []domain.StimulusRecord) []domain.StimulusRecord {
	return WithCaps(rng, records, DefaultCaps)
}

// WithCaps permutes records under explicit caps.
//
// The pool is shuffled uniformly, then repeatedly scanned in order; the first
// record whose attribute counts all sit strictly below their caps is placed
// and the scan restarts. When a full scan places nothing, the remaining pool
// is appended in its current shuffled order and the schedule terminates.
func WithCaps(rng *rand.Rand, records []domain.StimulusRecord, caps Caps) []domain.StimulusRecord {
	pool := make([]domain.StimulusRecord, len(records))
	copy(pool, records)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	out := make([]domain.StimulusRecord, 0, len(pool))
	placed := make([]bool, len(pool))
	tally := newTally()

	for len(out) < len(pool) {
		found := false
		for i, rec := range pool {
			if placed[i] {
				continue
			}
			if tally.admits(rec, caps) {
				out = append(out, rec)
				placed[i] = true
				tally.add(rec)
				found = true
				break
			}
		}
		if !found {
			// Constraints unsatisfiable for the remainder: flush the rest of
			// the pool in its shuffled order.
			for i, rec := range pool {
				if !placed[i] {
					out = append(out, rec)
					placed[i] = true
				}
			}
		}
	}
	return out
}

// tally tracks per-value placement counts for each constrained attribute.
type tally struct {
	condition map[string]int
	nameStim  map[string]int
	speaker   map[string]int
	origin    map[string]int
}

func newTally() *tally {
	return &tally{
		condition: make(map[string]int),
		nameStim:  make(map[string]int),
		speaker:   make(map[string]int),
		origin:    make(map[string]int),
	}
}

func (t *tally) admits(rec domain.StimulusRecord, caps Caps) bool {
	return t.condition[rec.Condition] < caps.Condition &&
		t.nameStim[rec.NameStim] < caps.NameStim &&
		t.speaker[rec.Speaker] < caps.Speaker &&
		t.origin[rec.StimulusOrigin] < caps.StimulusOrigin
}

func (t *tally) add(rec domain.StimulusRecord) {
	t.condition[rec.Condition]++
	t.nameStim[rec.NameStim]++
	t.speaker[rec.Speaker]++
	t.origin[rec.StimulusOrigin]++
}
