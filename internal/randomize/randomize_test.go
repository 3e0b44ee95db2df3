package randomize

import (
	"fmt"
	"math/rand"
	"testing"

	"stimcore/pkg/domain"
)

func record(i int) domain.StimulusRecord {
	return domain.StimulusRecord{
		Experiment:     "exp",
		Speaker:        fmt.Sprintf("spk%d", i),
		Trial:          fmt.Sprintf("%d", i),
		StimulusOrigin: fmt.Sprintf("origin%d", i),
		NameStim:       fmt.Sprintf("word%d", i),
		Condition:      fmt.Sprintf("cond%d", i),
		Filename:       domain.StimulusID(fmt.Sprintf("exp_spk%d_a_b_c_d_%d_word%d_cond%d.wav", i, i, i, i)),
	}
}

func idCounts(records []domain.StimulusRecord) map[domain.StimulusID]int {
	counts := make(map[domain.StimulusID]int, len(records))
	for _, rec := range records {
		counts[rec.Filename]++
	}
	return counts
}

func TestRandomizeIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var in []domain.StimulusRecord
	for i := 0; i < 40; i++ {
		in = append(in, record(i))
	}
	// Duplicate attribute values across distinct identifiers.
	for i := 0; i < 10; i++ {
		rec := record(i)
		rec.Filename = domain.StimulusID(fmt.Sprintf("dup_%d.wav", i))
		in = append(in, rec)
	}
	out := Randomize(rng, in)
	if len(out) != len(in) {
		t.Fatalf("length %d, want %d", len(out), len(in))
	}
	want := idCounts(in)
	got := idCounts(out)
	if len(got) != len(want) {
		t.Fatalf("distinct ids %d, want %d", len(got), len(want))
	}
	for id, n := range want {
		if got[id] != n {
			t.Fatalf("id %s appears %d times, want %d", id, got[id], n)
		}
	}
}

func TestRandomizeEmptyAndSingle(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	if out := Randomize(rng, nil); len(out) != 0 {
		t.Fatalf("empty input produced %d records", len(out))
	}
	one := []domain.StimulusRecord{record(1)}
	out := Randomize(rng, one)
	if len(out) != 1 || out[0] != one[0] {
		t.Fatalf("single-record output %+v", out)
	}
}

func TestRandomizeSatisfiesCapsWhenSatisfiable(t *testing.T) {
	// All attribute values distinct: every prefix trivially satisfies the
	// caps, and the scheduler must never flush.
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var in []domain.StimulusRecord
		for i := 0; i < 4; i++ {
			in = append(in, record(i))
		}
		out := Randomize(rng, in)
		assertPrefixCaps(t, out, DefaultCaps)
	}
}

func assertPrefixCaps(t *testing.T, out []domain.StimulusRecord, caps Caps) {
	t.Helper()
	tally := newTally()
	for i, rec := range out {
		if !tally.admits(rec, caps) {
			t.Fatalf("cap violated at position %d: %+v", i, rec)
		}
		tally.add(rec)
	}
}

func TestRandomizeFallbackFlushesRemainder(t *testing.T) {
	// Five records sharing one condition with otherwise-unique attributes:
	// after the fourth placement the condition cap rejects the fifth, which
	// must arrive via the unconstrained flush.
	var in []domain.StimulusRecord
	for i := 0; i < 5; i++ {
		rec := record(i)
		rec.Condition = "X"
		in = append(in, rec)
	}
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		out := Randomize(rng, in)
		if len(out) != 5 {
			t.Fatalf("seed %d: length %d, want 5", seed, len(out))
		}
		want := idCounts(in)
		got := idCounts(out)
		for id, n := range want {
			if got[id] != n {
				t.Fatalf("seed %d: id %s appears %d times, want %d", seed, id, got[id], n)
			}
		}
		// The first four satisfy the cap; the fifth necessarily exceeds it.
		tally := newTally()
		for i, rec := range out[:4] {
			if !tally.admits(rec, DefaultCaps) {
				t.Fatalf("seed %d: cap violated at position %d", seed, i)
			}
			tally.add(rec)
		}
		if tally.admits(out[4], DefaultCaps) {
			t.Fatalf("seed %d: fifth record unexpectedly admissible", seed)
		}
	}
}

func TestRandomizeDeterministicForSeed(t *testing.T) {
	var in []domain.StimulusRecord
	for i := 0; i < 25; i++ {
		in = append(in, record(i))
	}
	a := Randomize(rand.New(rand.NewSource(7)), in)
	b := Randomize(rand.New(rand.NewSource(7)), in)
	for i := range a {
		if a[i].Filename != b[i].Filename {
			t.Fatalf("orders diverge at %d: %s vs %s", i, a[i].Filename, b[i].Filename)
		}
	}
}

func TestWithCapsCustomCaps(t *testing.T) {
	// Two records share a speaker; a speaker cap of 1 forces a flush for the
	// second.
	a := record(1)
	b := record(2)
	b.Speaker = a.Speaker
	caps := Caps{Condition: 4, NameStim: 3, Speaker: 1, StimulusOrigin: 4}
	out := WithCaps(rand.New(rand.NewSource(3)), []domain.StimulusRecord{a, b}, caps)
	if len(out) != 2 {
		t.Fatalf("length %d, want 2", len(out))
	}
	if out[0].Speaker != out[1].Speaker {
		t.Fatalf("expected shared speaker in output")
	}
}
