// Package trigger turns a reminder's frequency fields into an
// executor-facing schedule: either a calendar recurrence or a fixed
// period anchored at the start instant.
package trigger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/freq"
)

// Frequency is the reminder's recurrence category.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
	Custom  Frequency = "CUSTOM"
)

// ParseFrequency normalizes a raw frequency value.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
}

var (
	ErrUnknownFrequency = errors.New("unknown frequency type")
	ErrMissingCustom    = errors.New("custom frequency required for CUSTOM type")
	ErrEmptyCustom      = errors.New("custom frequency has no components")
)

// Kind discriminates the Spec union.
type Kind int

const (
	KindCalendar Kind = iota
	KindInterval
)

// Spec is the trigger specification: a tagged union of a calendar
// recurrence rule and a fixed-period interval rule. It is derived from
// a reminder's frequency fields on demand and never persisted.
type Spec struct {
	Kind   Kind
	Anchor time.Time // nothing fires before this instant

	// Calendar fields. Nil pointer means "every".
	Hour, Minute, Second int
	DayOfWeek            *time.Weekday
	DayOfMonth           *int
	Month                *time.Month

	// Interval field.
	Period time.Duration
}

// Build derives a Spec from a frequency category and start instant.
//
// Calendar rules fire at the start instant's clock time; WEEKLY pins
// the weekday, MONTHLY the day of month, YEARLY month and day. A
// MONTHLY rule anchored on a day a month does not have (the 31st) is
// skipped for that month, per cron day-of-month semantics.
//
// CUSTOM collapses the structured duration to a fixed period: the
// duration is added once to the start instant, calendar-aware, and the
// elapsed time becomes the period. Subsequent fires are evenly spaced
// at that period and never re-align to calendar boundaries; this is a
// deliberate trade of calendar accuracy for a well-defined rule.
func Build(f Frequency, start time.Time, custom *freq.Duration) (Spec, error) {
	s := Spec{Kind: KindCalendar, Anchor: start, Hour: start.Hour(), Minute: start.Minute()}
	switch f {
	case Daily:
		s.Second = start.Second()
		return s, nil
	case Weekly:
		wd := start.Weekday()
		s.DayOfWeek = &wd
		return s, nil
	case Monthly:
		dom := start.Day()
		s.DayOfMonth = &dom
		return s, nil
	case Yearly:
		dom := start.Day()
		mon := start.Month()
		s.DayOfMonth = &dom
		s.Month = &mon
		return s, nil
	case Custom:
		if custom == nil {
			return Spec{}, ErrMissingCustom
		}
		if custom.IsZero() {
			return Spec{}, ErrEmptyCustom
		}
		period := custom.AddTo(start).Sub(start)
		if period <= 0 {
			return Spec{}, ErrEmptyCustom
		}
		return Spec{Kind: KindInterval, Anchor: start, Period: period}, nil
	default:
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(f))
	}
}

// String renders a compact human-readable form, used in logs.
func (s Spec) String() string {
	if s.Kind == KindInterval {
		return fmt.Sprintf("interval{%s @ %s}", s.Period, s.Anchor.Format(time.RFC3339))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "calendar{%02d:%02d", s.Hour, s.Minute)
	if s.DayOfWeek != nil {
		fmt.Fprintf(&b, " dow=%s", s.DayOfWeek)
	}
	if s.DayOfMonth != nil {
		fmt.Fprintf(&b, " dom=%d", *s.DayOfMonth)
	}
	if s.Month != nil {
		fmt.Fprintf(&b, " month=%s", s.Month)
	}
	b.WriteString("}")
	return b.String()
}
