// Package flatfile implements the session store on plain CSV files and
// marker files, the canonical on-disk layout consumed by analysis scripts:
//
//	randomization_lists/<participant>/<phase>_randomized_stimuli.csv
//	results/<participant>/<participant>_<phase>_progress.csv
//	results/<participant>/<participant>_results.csv
//	results/<participant>/practice_done.txt
//
// Orders and results are durable per row: result rows are flushed and fsynced
// before the append returns, so a crash mid-session loses at most the trial in
// flight.
package flatfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"stimcore/pkg/domain"
)

const (
	randomizationDir = "randomization_lists"
	resultsDir       = "results"
	practiceDoneFile = "practice_done.txt"
)

// Store implements domain.SessionStore on a directory tree.
type Store struct {
	root string
}

// New returns a flat-file session store rooted at path, creating the root if
// needed. Session subdirectories are created lazily on first write.
func New(root string) (*Store, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

func sanitizeParticipant(participant string) error {
	if strings.TrimSpace(participant) == "" {
		return fmt.Errorf("participant id required")
	}
	if strings.ContainsAny(participant, "/\\") || strings.Contains(participant, "..") {
		return fmt.Errorf("invalid participant id %q", participant)
	}
	return nil
}

func (s *Store) orderPath(key domain.SessionKey) string {
	return filepath.Join(s.root, randomizationDir, key.Participant, fmt.Sprintf("%s_randomized_stimuli.csv", key.Phase))
}

func (s *Store) progressPath(key domain.SessionKey) string {
	return filepath.Join(s.root, resultsDir, key.Participant, fmt.Sprintf("%s_%s_progress.csv", key.Participant, key.Phase))
}

func (s *Store) resultsPath(participant string) string {
	return filepath.Join(s.root, resultsDir, participant, fmt.Sprintf("%s_results.csv", participant))
}

func (s *Store) practiceDonePath(participant string) string {
	return filepath.Join(s.root, resultsDir, participant, practiceDoneFile)
}

func validateKey(key domain.SessionKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return sanitizeParticipant(key.Participant)
}

// LoadOrder reads the persisted randomized order. ok=false when no order
// file exists.
func (s *Store) LoadOrder(_ context.Context, key domain.SessionKey) ([]domain.StimulusID, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	rows, err := readSingleColumn(s.orderPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// SaveOrder writes the order file create-only, one identifier per row with no
// header, synced before rename into place.
func (s *Store) SaveOrder(_ context.Context, key domain.SessionKey, order []domain.StimulusID) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := s.orderPath(key)
	if _, err := os.Stat(path); err == nil {
		return domain.ErrOrderExists
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-order-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	w := csv.NewWriter(tmp)
	for _, id := range order {
		if err := w.Write([]string{string(id)}); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadProgress reads the progress log; a missing file yields an empty slice.
func (s *Store) LoadProgress(_ context.Context, key domain.SessionKey) ([]domain.StimulusID, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	rows, err := readSingleColumn(s.progressPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.StimulusID{}, nil
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AppendProgress appends identifiers to the progress log, one per row.
func (s *Store) AppendProgress(_ context.Context, key domain.SessionKey, ids ...domain.StimulusID) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	path := s.progressPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	for _, id := range ids {
		if err := w.Write([]string{string(id)}); err != nil {
			_ = file.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// AppendResult appends one row to the participant's result file, writing the
// header on first use. The row is flushed and fsynced before returning.
func (s *Store) AppendResult(_ context.Context, result domain.TrialResult) error {
	if err := sanitizeParticipant(result.Participant); err != nil {
		return err
	}
	path := s.resultsPath(result.Participant)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if writeHeader {
		if err := w.Write(domain.ResultColumns); err != nil {
			_ = file.Close()
			return err
		}
	}
	if err := w.Write(result.Row()); err != nil {
		_ = file.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ListResults reads back all rows for the participant. A missing file yields
// an empty slice.
func (s *Store) ListResults(_ context.Context, participant string) ([]domain.TrialResult, error) {
	if err := sanitizeParticipant(participant); err != nil {
		return nil, err
	}
	file, err := os.Open(s.resultsPath(participant))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.TrialResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	r := csv.NewReader(file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	results := make([]domain.TrialResult, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		res, err := parseResultRow(row)
		if err != nil {
			return nil, fmt.Errorf("result row %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// MarkPracticeDone creates the marker file. Idempotent.
func (s *Store) MarkPracticeDone(_ context.Context, participant string) error {
	if err := sanitizeParticipant(participant); err != nil {
		return err
	}
	path := s.practiceDonePath(participant)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte("practice phase completed\n"), 0o644)
}

// PracticeDone reports whether the marker file exists.
func (s *Store) PracticeDone(_ context.Context, participant string) (bool, error) {
	if err := sanitizeParticipant(participant); err != nil {
		return false, err
	}
	_, err := os.Stat(s.practiceDonePath(participant))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func readSingleColumn(path string) ([]domain.StimulusID, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	r := csv.NewReader(file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]domain.StimulusID, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out = append(out, domain.StimulusID(row[0]))
	}
	return out, nil
}

func parseResultRow(row []string) (domain.TrialResult, error) {
	if len(row) != len(domain.ResultColumns) {
		return domain.TrialResult{}, fmt.Errorf("expected %d columns, got %d", len(domain.ResultColumns), len(row))
	}
	trial, err := strconv.Atoi(row[3])
	if err != nil {
		return domain.TrialResult{}, fmt.Errorf("trial column: %w", err)
	}
	accuracy, err := strconv.Atoi(row[7])
	if err != nil {
		return domain.TrialResult{}, fmt.Errorf("accuracy column: %w", err)
	}
	repetitions, err := strconv.Atoi(row[9])
	if err != nil {
		return domain.TrialResult{}, fmt.Errorf("repetitions column: %w", err)
	}
	return domain.TrialResult{
		Experiment:        row[0],
		Participant:       row[1],
		Date:              row[2],
		TrialIndex:        trial,
		Phase:             domain.Phase(row[4]),
		Response:          row[5],
		ResponseCondition: row[6],
		Accuracy:          accuracy,
		Stimulus:          domain.StimulusID(row[8]),
		Repetitions:       repetitions,
		Record: domain.StimulusRecord{
			Experiment:     row[13],
			Speaker:        row[10],
			Trial:          row[15],
			StimulusOrigin: row[14],
			NameStim:       row[11],
			Condition:      row[12],
			Filename:       domain.StimulusID(row[8]),
		},
		StartTime: row[16],
		EndTime:   row[17],
		Duration:  row[18],
	}, nil
}
