package chi

import (
	"encoding/json"

	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
)

// Error codes returned in ErrorResponse.Error.
const (
	codeBadRequest    = "bad_request"
	codeNoText        = "no_text"
	codeInvalidInput  = "invalid_input"
	codeUnauthorized  = "unauthorized"
	codeInternalError = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	Text          string   `json:"text"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	MaxResults    *int     `json:"max_results,omitempty"`
}

// ResolveResponse is the body returned by POST /v1/resolve.
type ResolveResponse struct {
	Matches []Match `json:"matches"`
}

// DocumentRequest is the body of POST /v1/extract and POST /v1/strip.
type DocumentRequest struct {
	Text string `json:"text"`
}

// DocumentResponse is the body returned by POST /v1/extract and POST /v1/strip.
type DocumentResponse struct {
	RawText   string  `json:"raw_text"`
	Medicines []Match `json:"medicines"`
}

// CatalogResponse is the body returned by GET /v1/catalog.
type CatalogResponse struct {
	Source  string   `json:"source"`
	Entries int      `json:"entries"`
	Columns []string `json:"columns"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status         string            `json:"status"`
	Checks         map[string]string `json:"checks"`
	CatalogEntries int               `json:"catalog_entries"`
}

// Match is one resolved medicine. Passthrough catalog columns are flattened
// next to the fixed fields; a column never overrides a fixed field.
type Match struct {
	BrandName    string
	Generic      string
	Aliases      []string
	MatchScore   float64
	Dosage       string
	Timing       string
	Instructions string
	Extra        map[string]string
}

// MarshalJSON flattens Extra into the object.
func (m Match) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 7+len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	out["brand_name"] = m.BrandName
	out["generic"] = m.Generic
	out["aliases"] = m.Aliases
	out["match_score"] = m.MatchScore
	if m.Dosage != "" {
		out["dosage"] = m.Dosage
	}
	if m.Timing != "" {
		out["timing"] = m.Timing
	}
	if m.Instructions != "" {
		out["instructions"] = m.Instructions
	}
	return json.Marshal(out) //nolint:wrapcheck // marshaler contract
}

func matchFromDomain(r dommatch.Result) Match {
	e := r.Entry()
	aliases := e.Aliases()
	if aliases == nil {
		aliases = []string{}
	}
	m := Match{
		BrandName:  e.BrandName(),
		Generic:    e.Generic(),
		Aliases:    aliases,
		MatchScore: r.Score(),
		Extra:      e.Extra(),
	}
	if f := r.Fields(); f != nil {
		m.Dosage = f.Dosage
		m.Timing = f.Timing
		m.Instructions = f.Instructions
	}
	return m
}

func matchesFromDomain(rs []dommatch.Result) []Match {
	out := make([]Match, len(rs))
	for i, r := range rs {
		out[i] = matchFromDomain(r)
	}
	return out
}
