// Package session orchestrates experiment sessions: it enumerates the
// stimulus corpus, applies the constraint randomization per phase, and
// records trial outcomes through the session store. The service owns the
// practice/test asymmetry: practice phases present stimuli in enumeration
// order and are never randomized, test phases randomize exactly once and
// replay the persisted order on every resumption.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"strings"
	"time"

	"stimcore/internal/randomize"
	"stimcore/internal/stimstore"
	"stimcore/internal/stimulus"
	"stimcore/pkg/domain"
)

// Service coordinates stimulus loading, randomization, and trial recording.
type Service struct {
	stimuli stimstore.Store
	state   domain.SessionStore
	newRand func() *rand.Rand
	metrics MetricsRecorder
	caps    randomize.Caps
	clock   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMetricsRecorder attaches a metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithRandSource overrides the random source factory, primarily for
// reproducible tests.
func WithRandSource(factory func() *rand.Rand) Option {
	return func(s *Service) {
		if factory != nil {
			s.newRand = factory
		}
	}
}

// WithCaps overrides the randomization attribute caps.
func WithCaps(caps randomize.Caps) Option {
	return func(s *Service) { s.caps = caps }
}

// WithClock overrides the wall clock used for result timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a Service over a stimulus corpus and a session store.
func New(stimuli stimstore.Store, state domain.SessionStore, opts ...Option) *Service {
	s := &Service{
		stimuli: stimuli,
		state:   state,
		newRand: func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
		metrics: NoopMetricsRecorder{},
		caps:    randomize.DefaultCaps,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PhaseSession is the loaded state of one (participant, phase) pair: the full
// presentation order plus the identifiers already completed.
type PhaseSession struct {
	Key       domain.SessionKey
	Order     []domain.StimulusID
	Completed []domain.StimulusID
}

// Remaining returns the ordered identifiers not yet completed.
func (p PhaseSession) Remaining() []domain.StimulusID {
	done := make(map[domain.StimulusID]struct{}, len(p.Completed))
	for _, id := range p.Completed {
		done[id] = struct{}{}
	}
	out := make([]domain.StimulusID, 0, len(p.Order))
	for _, id := range p.Order {
		if _, ok := done[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Done reports whether every stimulus in the order has been completed.
func (p PhaseSession) Done() bool {
	return len(p.Remaining()) == 0
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

// LoadAndRandomize prepares the stimulus set for a session. Practice phases
// return the corpus in enumeration order; test phases return the randomized
// order, computing and persisting it on first load and replaying the stored
// order byte-for-byte on every later load.
func (s *Service) LoadAndRandomize(ctx context.Context, participant string, phase domain.Phase) (sess PhaseSession, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load_and_randomize", start, err) }()

	key := domain.SessionKey{Participant: participant, Phase: phase}
	if err = key.Validate(); err != nil {
		return PhaseSession{}, err
	}

	completed, err := s.state.LoadProgress(ctx, key)
	if err != nil {
		return PhaseSession{}, fmt.Errorf("load progress: %w", err)
	}

	var order []domain.StimulusID
	if phase == domain.PhasePractice {
		order, err = s.Enumerate(ctx, phase)
		if err != nil {
			return PhaseSession{}, err
		}
	} else {
		order, err = s.testOrder(ctx, key)
		if err != nil {
			return PhaseSession{}, err
		}
	}
	return PhaseSession{Key: key, Order: order, Completed: completed}, nil
}

// testOrder returns the persisted randomized order for the key, computing and
// saving it when absent. A save race with another process falls back to the
// winner's stored order.
func (s *Service) testOrder(ctx context.Context, key domain.SessionKey) ([]domain.StimulusID, error) {
	order, ok, err := s.state.LoadOrder(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if ok {
		return order, nil
	}

	ids, err := s.Enumerate(ctx, key.Phase)
	if err != nil {
		return nil, err
	}
	records, err := stimulus.ExtractAll(ids)
	if err != nil {
		return nil, fmt.Errorf("extract attributes: %w", err)
	}
	randomized := randomize.WithCaps(s.newRand(), records, s.caps)
	order = make([]domain.StimulusID, len(randomized))
	for i, rec := range randomized {
		order[i] = rec.Filename
	}

	if err := s.state.SaveOrder(ctx, key, order); err != nil {
		if errors.Is(err, domain.ErrOrderExists) {
			stored, _, loadErr := s.state.LoadOrder(ctx, key)
			if loadErr != nil {
				return nil, fmt.Errorf("reload order: %w", loadErr)
			}
			return stored, nil
		}
		return nil, fmt.Errorf("save order: %w", err)
	}
	return order, nil
}

// Enumerate lists the corpus for a phase in the store's stable key order,
// keeping only .wav objects and reducing keys to their base names. Speaker
// subdirectories are flattened away.
func (s *Service) Enumerate(ctx context.Context, phase domain.Phase) ([]domain.StimulusID, error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("unknown phase %q", phase)
	}
	infos, err := s.stimuli.List(ctx, string(phase)+"/")
	if err != nil {
		return nil, fmt.Errorf("list stimuli: %w", err)
	}
	ids := make([]domain.StimulusID, 0, len(infos))
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, stimulus.Suffix) {
			continue
		}
		ids = append(ids, domain.StimulusID(path.Base(info.Key)))
	}
	return ids, nil
}

// OpenStimulus streams the payload for one stimulus of a phase. The corpus
// key is located by base name so speaker subdirectories stay transparent.
func (s *Service) OpenStimulus(ctx context.Context, phase domain.Phase, id domain.StimulusID) (info stimstore.Info, rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "open_stimulus", start, err) }()

	infos, err := s.stimuli.List(ctx, string(phase)+"/")
	if err != nil {
		return stimstore.Info{}, nil, fmt.Errorf("list stimuli: %w", err)
	}
	for _, candidate := range infos {
		if path.Base(candidate.Key) == string(id) {
			return s.stimuli.Open(ctx, candidate.Key)
		}
	}
	return stimstore.Info{}, nil, domain.ErrNotFound{Kind: "stimulus " + string(id), Key: domain.SessionKey{Participant: "-", Phase: phase}}
}

// ComposeResult builds a TrialResult for a completed trial, extracting the
// stimulus attributes and stamping wall-clock times from the service clock.
func (s *Service) ComposeResult(participant string, phase domain.Phase, trialIndex int, id domain.StimulusID, response, responseCondition string, accuracy, repetitions int, startedAt time.Time) (domain.TrialResult, error) {
	rec, err := stimulus.Extract(id)
	if err != nil {
		return domain.TrialResult{}, err
	}
	endedAt := s.clock()
	return domain.TrialResult{
		Experiment:        rec.Experiment,
		Participant:       participant,
		Date:              endedAt.Format("2006-01-02"),
		TrialIndex:        trialIndex,
		Phase:             phase,
		Response:          response,
		ResponseCondition: responseCondition,
		Accuracy:          accuracy,
		Stimulus:          id,
		Repetitions:       repetitions,
		Record:            rec,
		StartTime:         startedAt.Format(domain.ClockFormat),
		EndTime:           endedAt.Format(domain.ClockFormat),
		Duration:          domain.FormatDuration(endedAt.Sub(startedAt)),
	}, nil
}

// RecordTrial appends the result row and marks the stimulus completed in the
// progress log. The result row lands first so a crash between the writes
// re-presents the trial rather than losing its data.
func (s *Service) RecordTrial(ctx context.Context, result domain.TrialResult) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "record_trial", start, err) }()

	key := domain.SessionKey{Participant: result.Participant, Phase: result.Phase}
	if err = key.Validate(); err != nil {
		return err
	}
	if result.Stimulus == "" {
		return fmt.Errorf("result stimulus required")
	}
	if err = s.state.AppendResult(ctx, result); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	if err = s.state.AppendProgress(ctx, key, result.Stimulus); err != nil {
		return fmt.Errorf("append progress: %w", err)
	}
	return nil
}

// Progress returns the completed identifiers for a (participant, phase) pair
// in completion order.
func (s *Service) Progress(ctx context.Context, participant string, phase domain.Phase) ([]domain.StimulusID, error) {
	key := domain.SessionKey{Participant: participant, Phase: phase}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.state.LoadProgress(ctx, key)
}

// MarkCompleted appends identifiers to the progress log without writing a
// result row, for runners that record results through another channel.
func (s *Service) MarkCompleted(ctx context.Context, participant string, phase domain.Phase, ids ...domain.StimulusID) error {
	key := domain.SessionKey{Participant: participant, Phase: phase}
	if err := key.Validate(); err != nil {
		return err
	}
	return s.state.AppendProgress(ctx, key, ids...)
}

// PhaseComplete reports whether every stimulus of the phase has a progress
// entry.
func (s *Service) PhaseComplete(ctx context.Context, participant string, phase domain.Phase) (done bool, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "phase_complete", start, err) }()

	sess, err := s.LoadAndRandomize(ctx, participant, phase)
	if err != nil {
		return false, err
	}
	return sess.Done(), nil
}

// MarkPracticeDone records practice completion for the participant.
func (s *Service) MarkPracticeDone(ctx context.Context, participant string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "mark_practice_done", start, err) }()
	return s.state.MarkPracticeDone(ctx, participant)
}

// PracticeDone reports whether the participant finished the practice phase.
func (s *Service) PracticeDone(ctx context.Context, participant string) (bool, error) {
	return s.state.PracticeDone(ctx, participant)
}

// Results returns all recorded result rows for the participant.
func (s *Service) Results(ctx context.Context, participant string) ([]domain.TrialResult, error) {
	return s.state.ListResults(ctx, participant)
}
