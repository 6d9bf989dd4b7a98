// Package freq parses free-text frequency and start-time descriptions
// into structured values the trigger builder can consume.
package freq

import (
	"strconv"
	"time"
	"unicode"
)

// Duration is a structured calendar duration. All components are
// non-negative; the zero value means "nothing recognized".
type Duration struct {
	Years   int `json:"years,omitempty"`
	Months  int `json:"months,omitempty"`
	Weeks   int `json:"weeks,omitempty"`
	Days    int `json:"days,omitempty"`
	Hours   int `json:"hours,omitempty"`
	Minutes int `json:"minutes,omitempty"`
}

// IsZero reports whether no component is set. Callers must reject a
// zero duration before building a custom trigger from it.
func (d Duration) IsZero() bool {
	return d == Duration{}
}

// AddTo applies the duration once to t, calendar-aware. Month and year
// arithmetic follows time.Time.AddDate: adding one month to January 31
// normalizes forward (March 2/3), it does not clamp to February's end.
func (d Duration) AddTo(t time.Time) time.Time {
	t = t.AddDate(d.Years, d.Months, d.Weeks*7+d.Days)
	return t.Add(time.Duration(d.Hours)*time.Hour + time.Duration(d.Minutes)*time.Minute)
}

// ParseDuration scans text for <number> <unit> pairs in any order and
// accumulates them against the lexicon. Unrecognized tokens are skipped,
// not fatal; text with no recognizable pair yields the zero Duration.
// A repeated unit keeps the last value.
func ParseDuration(lex Lexicon, text string) Duration {
	var d Duration
	toks := tokenize(text)
	for i := 0; i+1 < len(toks); i++ {
		n, err := strconv.Atoi(toks[i])
		if err != nil || n < 0 {
			continue
		}
		unit, ok := lex.lookupUnit(toks[i+1])
		if !ok {
			continue
		}
		switch unit {
		case UnitMinutes:
			d.Minutes = n
		case UnitHours:
			d.Hours = n
		case UnitDays:
			d.Days = n
		case UnitWeeks:
			d.Weeks = n
		case UnitMonths:
			d.Months = n
		case UnitYears:
			d.Years = n
		}
		i++ // consume the unit token
	}
	return d
}

// tokenize splits text into runs of digits and runs of letters, so both
// "2 часа" and "2часа" produce ["2" "часа"]. Everything else separates.
func tokenize(text string) []string {
	var toks []string
	var cur []rune
	var curDigit bool
	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			if !curDigit {
				flush()
			}
			curDigit = true
			cur = append(cur, r)
		case unicode.IsLetter(r):
			if curDigit {
				flush()
			}
			curDigit = false
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return toks
}
