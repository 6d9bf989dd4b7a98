package freq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseError reports user-correctable input the parser could not read.
// Handlers surface it back into the conversation and re-prompt.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

var (
	// "<day> <monthname> <year> [suffix] HH:MM", month in any script.
	reFullDate = regexp.MustCompile(`^(\d{1,2})\s+(\p{L}+)\s+(\d{4})(?:\s+(\p{L}+))?\s+(\d{1,2}):(\d{2})$`)
	// "DD.MM.YYYY HH:MM"
	reNumericDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{2})$`)
	// bare "HH:MM", resolved against the current date
	reBareTime = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseInstant resolves a start-time literal to an absolute instant in
// now's location. Recognized shapes:
//
//   - the lexicon's "now" sentinel
//   - "<day> <monthname> <year> [year-suffix] HH:MM" (month matched by
//     a 3-rune case-insensitive prefix)
//   - "DD.MM.YYYY HH:MM"
//   - "HH:MM" (today)
//
// Anything else is a *ParseError naming the offending text.
func ParseInstant(lex Lexicon, text string, now time.Time) (time.Time, error) {
	loc := now.Location()
	s := strings.TrimSpace(text)
	if strings.EqualFold(s, lex.NowSentinel) {
		return now, nil
	}

	if m := reFullDate.FindStringSubmatch(s); m != nil {
		day := atoi(m[1])
		month, ok := lex.monthByPrefix(m[2])
		if !ok {
			return time.Time{}, &ParseError{Input: text, Reason: fmt.Sprintf("unknown month name %q", m[2])}
		}
		if m[4] != "" && !lex.isYearSuffix(m[4]) {
			return time.Time{}, &ParseError{Input: text, Reason: fmt.Sprintf("unexpected word %q after year", m[4])}
		}
		return makeDate(text, atoi(m[3]), month, day, atoi(m[5]), atoi(m[6]), loc)
	}

	if m := reNumericDate.FindStringSubmatch(s); m != nil {
		return makeDate(text, atoi(m[3]), atoi(m[2]), atoi(m[1]), atoi(m[4]), atoi(m[5]), loc)
	}

	if m := reBareTime.FindStringSubmatch(s); m != nil {
		h, min := atoi(m[1]), atoi(m[2])
		if err := checkClock(text, h, min); err != nil {
			return time.Time{}, err
		}
		return time.Date(now.Year(), now.Month(), now.Day(), h, min, 0, 0, loc), nil
	}

	return time.Time{}, &ParseError{Input: text, Reason: "unrecognized date/time format"}
}

func makeDate(input string, year, month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, &ParseError{Input: input, Reason: fmt.Sprintf("month %d out of range", month)}
	}
	if err := checkClock(input, hour, minute); err != nil {
		return time.Time{}, err
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalizes out-of-range days (Feb 30 -> Mar 2); treat
	// that as user error rather than silently shifting the date.
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, &ParseError{Input: input, Reason: fmt.Sprintf("day %d does not exist in that month", day)}
	}
	return t, nil
}

func checkClock(input string, h, m int) error {
	if h < 0 || h > 23 {
		return &ParseError{Input: input, Reason: fmt.Sprintf("hour %d out of range", h)}
	}
	if m < 0 || m > 59 {
		return &ParseError{Input: input, Reason: fmt.Sprintf("minute %d out of range", m)}
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
