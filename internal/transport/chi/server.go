package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/domain"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	healthuc "github.com/kailas-cloud/medmatch/internal/usecase/health"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

const defaultMaxBodyBytes = 1 << 20

// Resolver resolves text to catalog matches.
type Resolver interface {
	Lookup(ctx context.Context, text string, opts ...resolve.LookupOption) ([]dommatch.Result, error)
	Extract(ctx context.Context, text string) ([]dommatch.Result, error)
	Strip(ctx context.Context, text string) ([]dommatch.Result, error)
}

// CatalogView returns the catalog snapshot currently served.
type CatalogView func() *catalog.Index

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the resolution pipeline over HTTP.
type Server struct {
	resolver      Resolver
	catalog       CatalogView
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(resolver Resolver, catalog CatalogView, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver:     resolver,
		catalog:      catalog,
		health:       health,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeInvalidInput),
	}
	return s
}

// WithMaxBodyBytes limits request bodies. Non-positive values keep the default.
func (s *Server) WithMaxBodyBytes(n int) *Server {
	if n > 0 {
		s.maxBodyBytes = int64(n)
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/resolve", s.Resolve)
	r.Post("/v1/extract", s.Extract)
	r.Post("/v1/strip", s.Strip)
	r.Get("/v1/catalog", s.Catalog)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Resolve handles POST /v1/resolve.
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, codeNoText, "text is required")
		return
	}

	var opts []resolve.LookupOption
	if req.MinConfidence != nil {
		opts = append(opts, resolve.WithMinConfidence(*req.MinConfidence))
	}
	if req.MaxResults != nil {
		opts = append(opts, resolve.WithMaxResults(*req.MaxResults))
	}

	ctx, stats := domain.NewContextWithStats(r.Context())
	rs, err := s.resolver.Lookup(ctx, req.Text, opts...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setStatsHeaders(w, stats)
	writeJSON(w, http.StatusOK, ResolveResponse{Matches: matchesFromDomain(rs)})
}

// Extract handles POST /v1/extract.
func (s *Server) Extract(w http.ResponseWriter, r *http.Request) {
	s.document(w, r, s.resolver.Extract)
}

// Strip handles POST /v1/strip.
func (s *Server) Strip(w http.ResponseWriter, r *http.Request) {
	s.document(w, r, s.resolver.Strip)
}

func (s *Server) document(
	w http.ResponseWriter,
	r *http.Request,
	resolveFn func(ctx context.Context, text string) ([]dommatch.Result, error),
) {
	var req DocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, codeNoText, "text is required")
		return
	}

	ctx, stats := domain.NewContextWithStats(r.Context())
	rs, err := resolveFn(ctx, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setStatsHeaders(w, stats)
	writeJSON(w, http.StatusOK, DocumentResponse{RawText: req.Text, Medicines: matchesFromDomain(rs)})
}

// Catalog handles GET /v1/catalog.
func (s *Server) Catalog(w http.ResponseWriter, _ *http.Request) {
	ix := s.catalog()
	resp := CatalogResponse{Source: ix.Source(), Entries: ix.Len(), Columns: []string{}}
	if ix.Len() > 0 {
		e := ix.At(0)
		resp.Columns = append(resp.Columns, e.ExtraKeys()...)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:         string(report.Status),
		Checks:         checks,
		CatalogEntries: report.CatalogEntries,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setStatsHeaders(w http.ResponseWriter, stats *domain.ResolveStats) {
	if stats == nil {
		return
	}
	w.Header().Set("X-Lines-Scanned", strconv.Itoa(stats.LinesScanned))
	w.Header().Set("X-Candidates-Tried", strconv.Itoa(stats.CandidatesTried))
	if stats.CandidateFaults > 0 {
		w.Header().Set("X-Candidate-Faults", strconv.Itoa(stats.CandidateFaults))
	}
	if stats.CacheHit {
		w.Header().Set("X-Cache", "hit")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation errors are built from request fields only and are returned as is.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
