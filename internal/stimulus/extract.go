// Package stimulus extracts categorical attributes from stimulus
// identifiers. Identifiers encode their metadata positionally, delimited by
// underscores, in one of three recognized shape families.
package stimulus

import (
	"fmt"
	"strings"

	"stimcore/pkg/domain"
)

// Delimiter separates the positional segments of an identifier.
const Delimiter = "_"

// Suffix is the fixed file-extension suffix stripped from payload segments.
const Suffix = ".wav"

// Family tags the identifier shape, which determines the segment-index
// mapping applied during extraction.
type Family string

// Recognized shape families, in dispatch priority order: an identifier
// containing "single" is always parsed by the single rule, then "gating",
// then the default rule.
const (
	FamilySingle  Family = "single"
	FamilyGating  Family = "gating"
	FamilyDefault Family = "default"
)

// segmentRule is the fixed positional mapping one family applies. Origin
// segments need not be contiguous (the gating family joins parts 0 and 2).
type segmentRule struct {
	minParts      int
	trialIndex    int
	originIndices []int
	nameStart     int
}

var rules = map[Family]segmentRule{
	FamilySingle:  {minParts: 6, trialIndex: 4, originIndices: []int{2, 3}, nameStart: 5},
	FamilyGating:  {minParts: 5, trialIndex: 3, originIndices: []int{0, 2}, nameStart: 4},
	FamilyDefault: {minParts: 8, trialIndex: 6, originIndices: []int{2, 3, 4, 5}, nameStart: 7},
}

// InvalidIdentifierError reports an identifier with too few segments for its
// classified family.
type InvalidIdentifierError struct {
	ID       domain.StimulusID
	Family   Family
	Parts    int
	MinParts int
}

func (e InvalidIdentifierError) Error() string {
	return fmt.Sprintf("stimulus identifier %q: %s family requires at least %d segments, got %d",
		e.ID, e.Family, e.MinParts, e.Parts)
}

// Classify selects the shape family for an identifier. Classification is by
// substring membership, checked in priority order.
func Classify(id domain.StimulusID) Family {
	s := string(id)
	switch {
	case strings.Contains(s, string(FamilySingle)):
		return FamilySingle
	case strings.Contains(s, string(FamilyGating)):
		return FamilyGating
	default:
		return FamilyDefault
	}
}

// Extract parses an identifier into a StimulusRecord. It is pure and
// deterministic: two calls on the same identifier yield identical records.
// Identifiers with too few segments for their family fail fast with
// InvalidIdentifierError.
func Extract(id domain.StimulusID) (domain.StimulusRecord, error) {
	family := Classify(id)
	rule := rules[family]
	parts := strings.Split(string(id), Delimiter)
	if len(parts) < rule.minParts {
		return domain.StimulusRecord{}, InvalidIdentifierError{
			ID:       id,
			Family:   family,
			Parts:    len(parts),
			MinParts: rule.minParts,
		}
	}

	origin := make([]string, 0, len(rule.originIndices))
	for _, i := range rule.originIndices {
		origin = append(origin, parts[i])
	}

	return domain.StimulusRecord{
		Experiment:     parts[0],
		Speaker:        parts[1],
		Trial:          parts[rule.trialIndex],
		StimulusOrigin: strings.Join(origin, Delimiter),
		NameStim:       stripSuffix(strings.Join(parts[rule.nameStart:], Delimiter)),
		Condition:      stripSuffix(parts[len(parts)-1]),
		Filename:       id,
	}, nil
}

// ExtractAll parses a batch of identifiers, failing on the first malformed
// one.
func ExtractAll(ids []domain.StimulusID) ([]domain.StimulusRecord, error) {
	records := make([]domain.StimulusRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := Extract(id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func stripSuffix(s string) string {
	return strings.TrimSuffix(s, Suffix)
}
