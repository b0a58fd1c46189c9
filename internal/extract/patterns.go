package extract

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	"github.com/kailas-cloud/medmatch/internal/domain/vocab"
)

// Strategy turns one normalized line into candidate spans.
// Strategies are tried in priority order; the first non-empty result wins.
type Strategy interface {
	Name() string
	Extract(line string, lineNo int) []candidate.Span
}

const namePart = `[a-z][a-z\-]*(?:\s+[a-z][a-z\-]*){0,3}`

var (
	strengthPart = buildStrength(vocab.Units)

	// item markers: "1 . ", "2 ) " after normalization; the trailing letter anchors a name.
	itemMarkerRe = regexp.MustCompile(`(?i)(?:^|\s)(\d{1,2})\s*[.)]\s+[a-z]`)

	indexedItemRe = regexp.MustCompile(`(?i)^(` + namePart + `)\s+(?:\(\s*[^()]+?\s*\)\s*)?` +
		strengthPart + `(?:\s*-)?\s*(.*)$`)
	genericRe = regexp.MustCompile(`(?i)^(?:\d{1,2}\s*[.)]\s*)?(` + namePart + `)\s*\(\s*([^()]+?)\s*\)\s*` +
		strengthPart + `(?:\s*-)?\s*(.*)$`)
	plainRe = regexp.MustCompile(`(?i)^(` + namePart + `)\s+` +
		strengthPart + `(?:\s*-)?\s*(.*)$`)
	leadingNameRe = regexp.MustCompile(`(?i)^[a-z][a-z\s\-]*`)
)

// buildStrength compiles the "<number> <unit>" fragment from the unit table.
// Compound units tolerate spaces around the slash; alphabetic units need a word boundary.
func buildStrength(units []string) string {
	alts := make([]string, 0, len(units))
	for _, u := range units {
		p := regexp.QuoteMeta(u)
		p = strings.ReplaceAll(p, "/", `\s*/\s*`)
		if last := u[len(u)-1]; last >= 'a' && last <= 'z' {
			p += `\b`
		}
		alts = append(alts, p)
	}
	return `(\d+(?:\.\d+)?)\s*(` + strings.Join(alts, "|") + `)`
}

// DefaultStrategies returns the structured strategies, most specific first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		indexedStrategy{},
		genericStrategy{},
		plainStrategy{},
		leadingNameStrategy{},
	}
}

// indexedStrategy: "[n .] Name Strength - Instructions", possibly several items per line.
type indexedStrategy struct{}

func (indexedStrategy) Name() string { return "indexed" }

func (indexedStrategy) Extract(line string, lineNo int) []candidate.Span {
	marks := itemMarkerRe.FindAllStringSubmatchIndex(line, -1)
	if len(marks) == 0 {
		return nil
	}

	var out []candidate.Span
	for i, m := range marks {
		// body starts at the name's first letter
		start := m[1] - 1
		end := len(line)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		item := strings.TrimSpace(line[start:end])
		sm := indexedItemRe.FindStringSubmatch(item)
		if sm == nil {
			continue
		}
		out = append(out, structuredSpan(sm[1], sm[2], sm[3], sm[4], lineNo, start))
	}
	return out
}

// genericStrategy: "Name (Generic) Strength - Instructions".
type genericStrategy struct{}

func (genericStrategy) Name() string { return "generic" }

func (genericStrategy) Extract(line string, lineNo int) []candidate.Span {
	sm := genericRe.FindStringSubmatchIndex(line)
	if sm == nil {
		return nil
	}
	g := func(n int) string { return line[sm[2*n]:sm[2*n+1]] }
	return []candidate.Span{structuredSpan(g(1), g(3), g(4), g(5), lineNo, sm[2])}
}

// plainStrategy: "Name Strength - Instructions".
type plainStrategy struct{}

func (plainStrategy) Name() string { return "plain" }

func (plainStrategy) Extract(line string, lineNo int) []candidate.Span {
	sm := plainRe.FindStringSubmatch(line)
	if sm == nil {
		return nil
	}
	return []candidate.Span{structuredSpan(sm[1], sm[2], sm[3], sm[4], lineNo, 0)}
}

// leadingNameStrategy: the alphabetic prefix of the line when it runs up to a digit or the end.
// No strength is captured, so the span carries no fields.
type leadingNameStrategy struct{}

func (leadingNameStrategy) Name() string { return "leading-name" }

func (leadingNameStrategy) Extract(line string, lineNo int) []candidate.Span {
	loc := leadingNameRe.FindStringIndex(line)
	if loc == nil {
		return nil
	}
	if rest := line[loc[1]:]; rest != "" && (rest[0] < '0' || rest[0] > '9') {
		return nil
	}
	name := strings.Trim(line[:loc[1]], " -")
	if len(name) < minSpanLen {
		return nil
	}
	return []candidate.Span{candidate.New(name, lineNo, 0, candidate.ModePrefix)}
}

func structuredSpan(name, value, unit, instructions string, lineNo, pos int) candidate.Span {
	instructions = strings.Trim(strings.TrimSpace(instructions), "- ")
	return candidate.New(strings.TrimSpace(name), lineNo, pos, candidate.ModeStructured).
		WithFields(candidate.Fields{
			Dosage:       compactDosage(value, unit),
			Timing:       Timing(instructions),
			Instructions: instructions,
		})
}

// compactDosage renders "500" + "mg" as "500mg" and "5" + "mg / ml" as "5mg/ml".
func compactDosage(value, unit string) string {
	unit = strings.Join(strings.Fields(unit), "")
	unit = strings.ToLower(unit)
	if unit == "iu" {
		unit = "IU"
	}
	return value + unit
}
