package medmatch

import (
	"maps"
	"slices"

	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
)

// Entry is one catalog record supplied through WithEntries.
type Entry struct {
	BrandName string
	Generic   string
	Aliases   []string
	// Extra holds passthrough columns returned with every match.
	Extra map[string]string
}

// Match is one resolved medicine.
type Match struct {
	BrandName string            `json:"brand_name"`
	Generic   string            `json:"generic"`
	Aliases   []string          `json:"aliases"`
	Score     float64           `json:"match_score"` // 0..1
	Extra     map[string]string `json:"extra,omitempty"`

	// Set by Extract when the prescription line carried them.
	Dosage       string `json:"dosage,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Stats describes the loaded catalog.
type Stats struct {
	Source  string
	Entries int
}

func toDomainEntries(in []Entry) ([]domcat.Entry, error) {
	out := make([]domcat.Entry, 0, len(in))
	for _, e := range in {
		keys := slices.Sorted(maps.Keys(e.Extra))
		de, err := domcat.New(e.BrandName, e.Generic, e.Aliases, keys, e.Extra)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller with row context
		}
		out = append(out, de)
	}
	return out, nil
}

func toMatches(rs []dommatch.Result) []Match {
	out := make([]Match, len(rs))
	for i, r := range rs {
		e := r.Entry()
		aliases := e.Aliases()
		if aliases == nil {
			aliases = []string{}
		}
		m := Match{
			BrandName: e.BrandName(),
			Generic:   e.Generic(),
			Aliases:   aliases,
			Score:     r.Score(),
			Extra:     e.Extra(),
		}
		if f := r.Fields(); f != nil {
			m.Dosage = f.Dosage
			m.Timing = f.Timing
			m.Instructions = f.Instructions
		}
		out[i] = m
	}
	return out
}
