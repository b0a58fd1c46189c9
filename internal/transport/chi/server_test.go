package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/domain"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/extract"
	"github.com/kailas-cloud/medmatch/internal/match"
	healthuc "github.com/kailas-cloud/medmatch/internal/usecase/health"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	rows := []struct {
		brand, generic string
		aliases        []string
		strength       string
	}{
		{"Dolo 650", "Paracetamol", []string{"dolo"}, "650 mg"},
		{"Metformin", "Metformin Hydrochloride", []string{"glycomet"}, "500 mg"},
		{"Pan D", "Pantoprazole", nil, "40 mg"},
		{"Azithral 250", "Azithromycin", []string{"azithral"}, "250 mg"},
	}
	entries := make([]domcat.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := domcat.New(r.brand, r.generic, r.aliases, []string{"strength"}, map[string]string{"strength": r.strength})
		if err != nil {
			t.Fatalf("new entry: %v", err)
		}
		entries = append(entries, e)
	}
	return catalog.New("csv", entries)
}

func newTestServer(t *testing.T, ix *catalog.Index) (*resolve.Service, http.Handler) {
	t.Helper()
	svc := resolve.New(ix, extract.New(), match.New(1), resolve.DefaultConfig(), zap.NewNop())
	health := healthuc.New(func() healthuc.CatalogReader { return svc.Index() }, nil)
	srv := NewServer(svc, svc.Index, health, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	return svc, r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func TestResolve_Match(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))

	rr := do(t, h, http.MethodPost, "/v1/resolve", `{"text":"dolo 650"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Candidates-Tried") != "1" {
		t.Errorf("expected X-Candidates-Tried=1, got %q", rr.Header().Get("X-Candidates-Tried"))
	}

	resp := decodeJSON[map[string][]map[string]any](t, rr)
	matches := resp["matches"]
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	top := matches[0]
	if top["brand_name"] != "Dolo 650" || top["generic"] != "Paracetamol" {
		t.Errorf("unexpected top match: %v", top)
	}
	if score, _ := top["match_score"].(float64); score < 0.9 || score > 1 {
		t.Errorf("expected match_score in [0.9, 1], got %v", top["match_score"])
	}
	if top["strength"] != "650 mg" {
		t.Errorf("expected passthrough strength, got %v", top["strength"])
	}
	if _, ok := top["dosage"]; ok {
		t.Error("lookup results carry no dosage")
	}
}

func TestResolve_Params(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))

	rr := do(t, h, http.MethodPost, "/v1/resolve", `{"text":"dolo 650","max_results":1,"min_confidence":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeJSON[ResolveResponse](t, rr)
	if len(resp.Matches) > 1 {
		t.Errorf("expected at most 1 match, got %d", len(resp.Matches))
	}
}

func TestResolve_NoMatchIsEmptyList(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))

	rr := do(t, h, http.MethodPost, "/v1/resolve", `{"text":"ta"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"matches":[]`) {
		t.Errorf("expected an empty list, got %s", rr.Body.String())
	}
}

func TestResolve_BadRequests(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"empty text", "/v1/resolve", `{"text":""}`, http.StatusBadRequest, codeNoText},
		{"blank text", "/v1/resolve", `{"text":"   "}`, http.StatusBadRequest, codeNoText},
		{"missing text", "/v1/extract", `{}`, http.StatusBadRequest, codeNoText},
		{"strip without text", "/v1/strip", `{"text":""}`, http.StatusBadRequest, codeNoText},
		{"malformed json", "/v1/resolve", `{"text":`, http.StatusBadRequest, codeBadRequest},
		{"bad min confidence", "/v1/resolve", `{"text":"dolo","min_confidence":101}`, http.StatusBadRequest, codeInvalidInput},
		{"bad max results", "/v1/resolve", `{"text":"dolo","max_results":0}`, http.StatusBadRequest, codeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tc.path, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			resp := decodeJSON[ErrorResponse](t, rr)
			if resp.Error != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, resp.Error)
			}
		})
	}
}

func TestExtract_Document(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))

	text := "Patient Name: John Doe\n1. Metformin 500mg - Take twice daily\n2. Pan D 40mg - once daily before meals"
	body, _ := json.Marshal(DocumentRequest{Text: text})

	rr := do(t, h, http.MethodPost, "/v1/extract", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Lines-Scanned") == "" {
		t.Error("expected X-Lines-Scanned header")
	}

	var resp struct {
		RawText   string           `json:"raw_text"`
		Medicines []map[string]any `json:"medicines"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RawText != text {
		t.Errorf("raw_text must echo the input")
	}

	byBrand := make(map[string]map[string]any)
	for _, m := range resp.Medicines {
		byBrand[m["brand_name"].(string)] = m
	}
	met, ok := byBrand["Metformin"]
	if !ok {
		t.Fatalf("expected Metformin in %v", resp.Medicines)
	}
	if met["dosage"] != "500mg" || met["timing"] != "Twice daily" || met["instructions"] != "Take twice daily" {
		t.Errorf("unexpected structured fields: %v", met)
	}
	if _, ok := byBrand["Pan D"]; !ok {
		t.Errorf("expected Pan D in %v", resp.Medicines)
	}
}

func TestStrip_Label(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))

	rr := do(t, h, http.MethodPost, "/v1/strip", `{"text":"AZITHRAL 250\nAzithromycin Tablets IP\n10 x 3 tablets"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeJSON[map[string]any](t, rr)
	meds, _ := resp["medicines"].([]any)
	if len(meds) == 0 {
		t.Fatal("expected a medicine")
	}
	if top := meds[0].(map[string]any); top["brand_name"] != "Azithral 250" {
		t.Errorf("unexpected top: %v", top)
	}
}

func TestCatalogAndHealth(t *testing.T) {
	svc, h := newTestServer(t, testIndex(t))

	rr := do(t, h, http.MethodGet, "/v1/catalog", "")
	resp := decodeJSON[CatalogResponse](t, rr)
	if resp.Entries != 4 || resp.Source != "csv" || len(resp.Columns) != 1 || resp.Columns[0] != "strength" {
		t.Errorf("unexpected catalog response: %+v", resp)
	}

	rr = do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	hr := decodeJSON[HealthResponse](t, rr)
	if hr.Status != "ok" || hr.Checks["catalog"] != "ok" || hr.CatalogEntries != 4 {
		t.Errorf("unexpected health: %+v", hr)
	}

	svc.SwapIndex(catalog.Empty("csv"))
	rr = do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for an empty catalog, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/v1/resolve", `{"text":"dolo 650"}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"matches":[]`) {
		t.Errorf("empty catalog must answer with no matches, got %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/v1/extract", `{"text":"1. Metformin 500mg"}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"medicines":[]`) {
		t.Errorf("empty catalog must not be an error for documents, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	_, h := newTestServer(t, testIndex(t))
	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

type stubResolver struct {
	err error
}

func (s stubResolver) Lookup(context.Context, string, ...resolve.LookupOption) ([]dommatch.Result, error) {
	return nil, s.err
}

func (s stubResolver) Extract(context.Context, string) ([]dommatch.Result, error) { return nil, s.err }
func (s stubResolver) Strip(context.Context, string) ([]dommatch.Result, error)   { return nil, s.err }

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrap: %w", domain.ErrInvalidInput), http.StatusBadRequest, codeInvalidInput},
		{errors.New("redis: connection refused"), http.StatusInternalServerError, codeInternalError},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			srv := NewServer(stubResolver{err: tc.err}, func() *catalog.Index { return catalog.Empty("") }, nil, nil)
			r := chi.NewRouter()
			srv.Routes(r)

			rr := do(t, r, http.MethodPost, "/v1/extract", `{"text":"dolo"}`)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			resp := decodeJSON[ErrorResponse](t, rr)
			if resp.Error != tc.code {
				t.Errorf("expected %q, got %q", tc.code, resp.Error)
			}
			if tc.code == codeInternalError && strings.Contains(resp.Message, "redis") {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	srv := NewServer(stubResolver{}, func() *catalog.Index { return catalog.Empty("") }, nil, nil).WithMaxBodyBytes(32)
	r := chi.NewRouter()
	srv.Routes(r)

	body := `{"text":"` + string(bytes.Repeat([]byte("a"), 100)) + `"}`
	rr := do(t, r, http.MethodPost, "/v1/resolve", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestMatchJSON_FixedFieldsWin(t *testing.T) {
	m := Match{
		BrandName:  "Dolo 650",
		Generic:    "Paracetamol",
		Aliases:    []string{},
		MatchScore: 0.9,
		Extra:      map[string]string{"brand_name": "shadow", "pack": "15 tablets"},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	if out["brand_name"] != "Dolo 650" || out["pack"] != "15 tablets" {
		t.Errorf("unexpected json: %s", data)
	}
}
