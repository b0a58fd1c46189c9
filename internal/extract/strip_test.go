package extract

import (
	"slices"
	"testing"
)

func spanTexts[S interface{ Text() string }](spans []S) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Text())
	}
	return out
}

func TestCleanStrip(t *testing.T) {
	if got := CleanStrip("DOLO-650 *Tablets*\nParacetamol IP"); got != "DOLO-650 Tablets Paracetamol IP" {
		t.Errorf("CleanStrip() = %q", got)
	}
}

func TestStrip(t *testing.T) {
	got := Strip("Dolo 650\nTablet paracetamol", 0)

	wantGroups := []string{
		"Dolo", "Dolo 650", "Dolo 650 Tablet", "Dolo 650 Tablet paracetamol",
		"650", "650 Tablet", "650 Tablet paracetamol",
		"Tablet", "Tablet paracetamol",
		"paracetamol",
	}
	if g := spanTexts(got.Groups); !slices.Equal(g, wantGroups) {
		t.Errorf("groups =\n%v\nwant\n%v", g, wantGroups)
	}

	wantWords := []string{"Dolo", "paracetamol"}
	if w := spanTexts(got.Words); !slices.Equal(w, wantWords) {
		t.Errorf("words = %v, want %v", w, wantWords)
	}
}

func TestStrip_MaxWords(t *testing.T) {
	got := Strip("alpha beta gamma delta epsilon", 2)
	if len(got.Words) != 2 {
		t.Errorf("words = %v", spanTexts(got.Words))
	}
}
