package resolve

import (
	"context"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/extract"
)

// Matcher scores one candidate text against a catalog index.
type Matcher interface {
	Match(ctx context.Context, ix *catalog.Index, text string, minScore float64) ([]dommatch.Result, error)
}

// LineExtractor splits prescription text into scanned lines with structured candidates.
type LineExtractor interface {
	Lines(text string) []extract.Line
}
