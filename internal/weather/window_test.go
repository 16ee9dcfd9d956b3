package weather

import (
	"testing"
)

func TestWindowFormat(t *testing.T) {
	w := Window{Pre: 12.34, On: 15.0, Post: -3.96}
	got := w.Format()
	want := "(12.3) 15.0 (-4.0)"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestWindowFormatParseRoundTrip(t *testing.T) {
	cases := []Window{
		{Pre: 1.11, On: 2.25, Post: 3.39},
		{Pre: -10.5, On: 0, Post: 10.5},
		{Pre: 0.04, On: -0.04, Post: 100},
	}
	for _, w := range cases {
		on, err := ParseOn(w.Format())
		if err != nil {
			t.Fatalf("ParseOn(%q): %v", w.Format(), err)
		}
		if on != Round1(w.On) {
			t.Errorf("round trip of %q: got %f, want %f", w.Format(), on, Round1(w.On))
		}
	}
}

func TestParseOnMalformed(t *testing.T) {
	for _, s := range []string{"", "15.0", "(1.0) (2.0)", "nonsense"} {
		if _, err := ParseOn(s); err == nil {
			t.Errorf("ParseOn(%q) should fail", s)
		}
	}
}
