package pts

import "testing"

func TestAdd_Wraparound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		p     PTS
		delta int64
		want  PTS
	}{
		{"zero delta", 1000, 0, 1000},
		{"positive", 1000, 500, 1500},
		{"negative", 1000, -500, 500},
		{"past top", PTS(Modulus - 5), 10, 5},
		{"below bottom", 5, -10, PTS(Modulus - 5)},
		{"exact top", PTS(Modulus - 1), 1, 0},
		{"delta larger than domain", 7, Modulus + 3, 10},
		{"negative delta larger than domain", 7, -Modulus - 3, 4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Add(tt.p, tt.delta); got != tt.want {
				t.Errorf("Add(%d, %d) = %d, want %d", tt.p, tt.delta, got, tt.want)
			}
		})
	}
}

func TestAdd_InvalidStaysInvalid(t *testing.T) {
	t.Parallel()
	if got := Add(Invalid, 100); got != Invalid {
		t.Errorf("Add(Invalid, 100) = %d, want Invalid", got)
	}
	if got := Add(PTS(Modulus), 0); got != Invalid {
		t.Errorf("Add(Modulus, 0) = %d, want Invalid", got)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	if got := Diff(1500, 1000); got != 500 {
		t.Errorf("Diff(1500, 1000) = %d, want 500", got)
	}
	if got := Diff(1000, 1500); got != -500 {
		t.Errorf("Diff(1000, 1500) = %d, want -500", got)
	}
	if got := Diff(5, PTS(Modulus-5)); got != 10 {
		t.Errorf("Diff across wrap = %d, want 10", got)
	}
	if got := Diff(PTS(Modulus-5), 5); got != -10 {
		t.Errorf("Diff backwards across wrap = %d, want -10", got)
	}
}

func TestPTS_String(t *testing.T) {
	t.Parallel()
	if s := PTS(183003).String(); s != "183003" {
		t.Errorf("String() = %q, want 183003", s)
	}
	if s := Invalid.String(); s != "-" {
		t.Errorf("Invalid.String() = %q, want -", s)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	p, err := Parse("90000")
	if err != nil {
		t.Fatal(err)
	}
	if p != 90000 {
		t.Errorf("Parse = %d, want 90000", p)
	}
	p, err = Parse("-")
	if err != nil {
		t.Fatal(err)
	}
	if p != Invalid {
		t.Errorf("Parse(-) = %d, want Invalid", p)
	}
	if _, err := Parse("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}
