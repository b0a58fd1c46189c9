package textnorm

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Crocin  Advance ", "crocin advance"},
		{"Crocín", "crocin"},
		{"ＤＯＬＯ 650", "dolo 650"}, // fullwidth forms
		{"", ""},
		{"\tPan\n40 ", "pan 40"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripControl(t *testing.T) {
	in := "Dolo\x00 650\nTab\x07"
	if got := StripControl(in); got != "Dolo 650\nTab" {
		t.Errorf("StripControl() = %q", got)
	}
}

func TestHasLetter(t *testing.T) {
	if HasLetter("123 - 45") {
		t.Error("digits only should have no letter")
	}
	if !HasLetter("12 mg") {
		t.Error("expected letter")
	}
}
