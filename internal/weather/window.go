package weather

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Window is the weather estimate for 3 days before, on, and 3 days after an
// arrival date. It is carried structured through the pipeline; only the
// presentation layer renders the "(pre) on (post)" string.
type Window struct {
	Pre  float64 `json:"pre"`
	On   float64 `json:"on"`
	Post float64 `json:"post"`
}

// Format renders the window as "(pre) on (post)" with one decimal per value.
func (w Window) Format() string {
	return fmt.Sprintf("(%s) %s (%s)", format1(w.Pre), format1(w.On), format1(w.Post))
}

// ParseOn extracts the on-date value back out of a formatted window string.
// It exists so the display format stays parseable; Format followed by ParseOn
// returns the on-value rounded to one decimal.
func ParseOn(s string) (float64, error) {
	from := strings.Index(s, ") ")
	to := strings.LastIndex(s, " (")
	if from == -1 || to == -1 || from+2 > to {
		return 0, fmt.Errorf("malformed weather window %q", s)
	}
	return strconv.ParseFloat(s[from+2:to], 64)
}

// Round1 rounds to one decimal place, the precision all window values are
// reported at.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func format1(v float64) string {
	return strconv.FormatFloat(Round1(v), 'f', 1, 64)
}
