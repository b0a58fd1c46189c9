package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: resolution still answers, possibly with no matches.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates a catalog with no entries.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status         Status
	Checks         map[string]CheckResult
	CatalogEntries int
}

// Service coordinates health checks.
type Service struct {
	catalog CatalogProvider
	db      DBPinger
}

// New creates a Service. db can be nil when no store is configured.
func New(catalog CatalogProvider, db DBPinger) *Service {
	return &Service{catalog: catalog, db: db}
}

// Check runs health checks against all components. An empty catalog degrades
// the service but never fails it: resolution keeps answering with no matches.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	entries := 0
	if ix := s.catalog(); ix != nil {
		entries = ix.Len()
	}
	if entries > 0 {
		checks["catalog"] = CheckOK
	} else {
		checks["catalog"] = CheckEmpty
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, CatalogEntries: entries}
}
