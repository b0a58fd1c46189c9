// Package vocab holds the static word tables used by extraction and matching.
// They are data, not behavior: tuning happens here without touching the matcher.
package vocab

import "strings"

// StopWords are normalized candidates rejected outright by the matcher:
// dosage forms, units, instruction words and prescription metadata.
var StopWords = set(
	"tab", "tablet", "tablets", "cap", "capsule", "capsules",
	"injection", "syrup", "drops", "cream", "ointment", "gel",
	"mg", "ml", "mcg", "g", "kg", "units",
	"daily", "twice", "thrice", "times", "dose", "take",
	"morning", "noon", "night", "evening", "before", "after",
	"meal", "meals", "empty", "stomach", "medicine", "prescription",
	"drug", "generic", "salt", "patient", "name", "address", "age",
	"date", "doctor", "dr", "hospital", "clinic", "pharmacy",
)

// StripStopWords are single words skipped by strip-label segmentation.
var StripStopWords = set("tablet", "strip", "mg", "ml")

// Units is the dosage-strength unit vocabulary, longest first so that
// alternations built from it prefer "mcg" over "mg" and "mg/ml" over "mg".
var Units = []string{"mg/ml", "mcg/ml", "mg/g", "mcg", "mg", "ml", "iu", "g", "%"}

// MetadataHeaders mark prescription lines that never name a medicine.
// Matched as whole words against the lowercased line.
var MetadataHeaders = []string{
	"patient name", "prescription", "doctor", "dr", "hospital",
	"date", "address", "age",
}

// TimingRule maps an instruction keyword to a canonical timing description.
type TimingRule struct {
	Keyword string
	Label   string
}

// DefaultTiming is used when no timing keyword is found in the instructions.
const DefaultTiming = "as directed"

// Timing is checked in order; the first keyword found wins.
var Timing = []TimingRule{
	{"thrice", "Three times daily"},
	{"tid", "Three times daily"},
	{"twice", "Twice daily"},
	{"bid", "Twice daily"},
	{"qid", "Four times daily"},
	{"once", "Once daily"},
	{"od", "Once daily"},
	{"daily", "Once daily"},
	{"hs", "At bedtime"},
	{"bedtime", "At bedtime"},
	{"night", "At night"},
	{"morning", "In the morning"},
	{"prn", "As needed"},
	{"sos", "As needed"},
	{"before meal", "Before meals"},
	{"after meal", "After meals"},
}

// IsStopWord reports whether the normalized text is a known non-medicine word.
func IsStopWord(s string) bool {
	_, ok := StopWords[s]
	return ok
}

// IsStripStopWord reports whether the word is skipped by strip segmentation.
func IsStripStopWord(s string) bool {
	_, ok := StripStopWords[strings.ToLower(s)]
	return ok
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
