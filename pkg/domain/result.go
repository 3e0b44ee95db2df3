package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Accuracy codes recorded per trial. The coding mirrors the historical
// result files: correct responses score 1, "don't know" responses score 2,
// and incorrect responses score 0.
const (
	AccuracyIncorrect = 0
	AccuracyCorrect   = 1
	AccuracyUncertain = 2
)

// TrialResult is one append-only result row produced by the trial runner
// after a completed trial. Column order in persisted CSV output follows
// ResultColumns.
type TrialResult struct {
	Experiment        string         `json:"experiment"`
	Participant       string         `json:"participant"`
	Date              string         `json:"date"`
	TrialIndex        int            `json:"trial"`
	Phase             Phase          `json:"phase"`
	Response          string         `json:"response"`
	ResponseCondition string         `json:"response_condition"`
	Accuracy          int            `json:"accuracy"`
	Stimulus          StimulusID     `json:"stimulus"`
	Repetitions       int            `json:"repetitions"`
	Record            StimulusRecord `json:"record"`
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	Duration          string         `json:"duration"`
}

// ResultColumns is the fixed header of persisted result files. The
// recording_* columns carry the StimulusRecord fields so analysis scripts can
// consume result rows without re-parsing identifiers.
var ResultColumns = []string{
	"experiment",
	"participant",
	"date",
	"trial",
	"phase",
	"response",
	"response_condition",
	"accuracy",
	"recording_processed",
	"recording_nr_repetitions",
	"recording_speaker",
	"recording_name_stim",
	"recording_condition",
	"recording_experiment",
	"recording_origin",
	"recording_trial",
	"start_time",
	"end_time",
	"duration",
}

// Row renders the result in ResultColumns order.
func (r TrialResult) Row() []string {
	return []string{
		r.Experiment,
		r.Participant,
		r.Date,
		strconv.Itoa(r.TrialIndex),
		string(r.Phase),
		r.Response,
		r.ResponseCondition,
		strconv.Itoa(r.Accuracy),
		string(r.Stimulus),
		strconv.Itoa(r.Repetitions),
		r.Record.Speaker,
		r.Record.NameStim,
		r.Record.Condition,
		r.Record.Experiment,
		r.Record.StimulusOrigin,
		r.Record.Trial,
		r.StartTime,
		r.EndTime,
		r.Duration,
	}
}

// ClockFormat is the wall-clock format used for start/end timestamps.
const ClockFormat = "15:04:05"

// FormatDuration renders an elapsed duration as HH:MM:SS, matching the
// duration column of historical result files.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
