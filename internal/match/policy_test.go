package match

import "testing"

func TestThreshold(t *testing.T) {
	tests := []struct {
		n    int
		min  float64
		want float64
	}{
		{3, 40, 75},
		{4, 90, 75},
		{5, 40, 60},
		{7, 40, 60},
		{8, 40, 40},
		{20, 55, 55},
	}
	for _, tt := range tests {
		if got := Threshold(tt.n, tt.min); got != tt.want {
			t.Errorf("Threshold(%d, %v) = %v, want %v", tt.n, tt.min, got, tt.want)
		}
	}
}

func TestAccept_LengthTiers(t *testing.T) {
	e := mustEntry(t, "Metformin", "Metformin Hydrochloride")
	short := mustEntry(t, "Abcxyz", "")

	if Accept("abc", &short, 70, 40) {
		t.Error("3-char candidate scoring 70 must be rejected")
	}
	if !Accept("abc", &short, 75, 40) {
		t.Error("3-char candidate scoring 75 contained in brand must be accepted")
	}
	if !Accept("metformi", &e, 45, 40) {
		t.Error("8-char candidate scoring 45 must be accepted at min 40")
	}
	if Accept("metformi", &e, 45, 50) {
		t.Error("8-char candidate scoring 45 must be rejected at min 50")
	}
}

func TestAccept_RelationRequired(t *testing.T) {
	e := mustEntry(t, "Dolo650", "Paracetamol", "dolo 650", "crocin")

	tests := []struct {
		name  string
		cand  string
		score float64
		want  bool
	}{
		{"candidate in brand", "dolo", 90, true},
		{"brand in candidate", "dolo650 tablets", 50, true},
		{"candidate in alias", "croc", 80, true},
		{"unrelated but strong", "paracetamol", 80, true},
		{"unrelated and weak", "paracetamol", 79, false},
		{"unrelated short strong", "xyz", 99, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(tt.cand, &e, tt.score, 40); got != tt.want {
				t.Errorf("Accept(%q, %v) = %v, want %v", tt.cand, tt.score, got, tt.want)
			}
		})
	}
}

func TestBoost(t *testing.T) {
	e := mustEntry(t, "Pan D", "Pantoprazole", "pan-d", "pantop")
	tests := []struct {
		cand string
		want float64
	}{
		{"pan", 15},    // brand token
		{"pan-d", 15},  // alias
		{"pantop", 15}, // alias
		{"pan d", 0},   // whole brand, not a token
		{"panto", 0},
	}
	for _, tt := range tests {
		if got := Boost(tt.cand, &e); got != tt.want {
			t.Errorf("Boost(%q) = %v, want %v", tt.cand, got, tt.want)
		}
	}
}

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Dolo 650!", "dolo 650"},
		{"Calpol*  2.5", "calpol 2.5"},
		{"Pan-D+", "pan-d+"},
		{"ta", ""},
		{"MG", ""},
		{"Patient", ""},
		{"Ｃｒｏｃｉｎ", "crocin"},
	}
	for _, tt := range tests {
		if got := NormalizeCandidate(tt.in); got != tt.want {
			t.Errorf("NormalizeCandidate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
