package trigger

import (
	"errors"
	"testing"
	"time"

	"remindbot/internal/freq"
)

func TestParseFrequency(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"daily", "DAILY", " Weekly ", "monthly", "yearly", "custom"} {
		if _, err := ParseFrequency(raw); err != nil {
			t.Fatalf("ParseFrequency(%q) error: %v", raw, err)
		}
	}
	if _, err := ParseFrequency("fortnightly"); !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
}

func TestBuildCalendarKeepsClockTime(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.June, 15, 9, 30, 45, 0, time.UTC) // Sunday

	for _, f := range []Frequency{Daily, Weekly, Monthly, Yearly} {
		spec, err := Build(f, start, nil)
		if err != nil {
			t.Fatalf("Build(%s) error: %v", f, err)
		}
		if spec.Kind != KindCalendar {
			t.Fatalf("Build(%s) kind = %d, want calendar", f, spec.Kind)
		}
		if spec.Hour != 9 || spec.Minute != 30 {
			t.Fatalf("Build(%s) clock = %02d:%02d, want 09:30", f, spec.Hour, spec.Minute)
		}
	}

	weekly, _ := Build(Weekly, start, nil)
	if weekly.DayOfWeek == nil || *weekly.DayOfWeek != time.Sunday {
		t.Fatalf("weekly dow = %v, want Sunday", weekly.DayOfWeek)
	}
	monthly, _ := Build(Monthly, start, nil)
	if monthly.DayOfMonth == nil || *monthly.DayOfMonth != 15 {
		t.Fatalf("monthly dom = %v, want 15", monthly.DayOfMonth)
	}
	yearly, _ := Build(Yearly, start, nil)
	if yearly.Month == nil || *yearly.Month != time.June || *yearly.DayOfMonth != 15 {
		t.Fatalf("yearly month/day = %v/%v, want June/15", yearly.Month, yearly.DayOfMonth)
	}
}

func TestBuildCustomCollapsesToSeconds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		start  time.Time
		dur    freq.Duration
		period time.Duration
	}{
		{
			name:   "two hours",
			start:  time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
			dur:    freq.Duration{Hours: 2},
			period: 2 * time.Hour,
		},
		{
			name:   "one month from January",
			start:  time.Date(2025, time.January, 15, 8, 0, 0, 0, time.UTC),
			dur:    freq.Duration{Months: 1},
			period: 31 * 24 * time.Hour,
		},
		{
			name:   "one month from April",
			start:  time.Date(2025, time.April, 15, 8, 0, 0, 0, time.UTC),
			dur:    freq.Duration{Months: 1},
			period: 30 * 24 * time.Hour,
		},
		{
			name:   "month and days",
			start:  time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
			dur:    freq.Duration{Months: 1, Days: 3},
			period: 33 * 24 * time.Hour,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Build(Custom, tt.start, &tt.dur)
			if err != nil {
				t.Fatalf("Build error: %v", err)
			}
			if spec.Kind != KindInterval {
				t.Fatalf("kind = %d, want interval", spec.Kind)
			}
			if spec.Period != tt.period {
				t.Fatalf("period = %s, want %s", spec.Period, tt.period)
			}
			if !spec.Anchor.Equal(tt.start) {
				t.Fatalf("anchor = %v, want %v", spec.Anchor, tt.start)
			}
		})
	}
}

func TestBuildCustomRejectsMissingOrEmpty(t *testing.T) {
	t.Parallel()
	start := time.Now()
	if _, err := Build(Custom, start, nil); !errors.Is(err, ErrMissingCustom) {
		t.Fatalf("nil custom: got %v, want ErrMissingCustom", err)
	}
	if _, err := Build(Custom, start, &freq.Duration{}); !errors.Is(err, ErrEmptyCustom) {
		t.Fatalf("zero custom: got %v, want ErrEmptyCustom", err)
	}
	if _, err := Build("SOMETIMES", start, nil); !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("unknown: got %v, want ErrUnknownFrequency", err)
	}
}

func TestScheduleDaily(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	spec, _ := Build(Daily, start, nil)
	sched, err := spec.Schedule(time.UTC)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}

	// Before the anchor nothing fires earlier than the anchor itself.
	got := sched.Next(start.Add(-48 * time.Hour))
	if !got.Equal(start) {
		t.Fatalf("first fire = %v, want anchor %v", got, start)
	}
	// After 08:00 the next fire is 08:00 tomorrow.
	got = sched.Next(time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC))
	if want := time.Date(2025, time.June, 11, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("next = %v, want %v", got, want)
	}
}

func TestScheduleWeekly(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.June, 9, 10, 15, 0, 0, time.UTC) // Monday
	spec, _ := Build(Weekly, start, nil)
	sched, err := spec.Schedule(time.UTC)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	got := sched.Next(start)
	if want := time.Date(2025, time.June, 16, 10, 15, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("next = %v (%s), want next Monday %v", got, got.Weekday(), want)
	}
}

func TestScheduleMonthlySkipsShortMonths(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)
	spec, _ := Build(Monthly, start, nil)
	sched, err := spec.Schedule(time.UTC)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	// February has no 31st: the rule skips straight to March 31.
	got := sched.Next(start)
	if want := time.Date(2025, time.March, 31, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("next after Jan 31 = %v, want %v", got, want)
	}
}

func TestScheduleYearly(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)
	spec, _ := Build(Yearly, start, nil)
	sched, err := spec.Schedule(time.UTC)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	got := sched.Next(start)
	if want := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("next = %v, want %v", got, want)
	}
}

func TestAnchoredIntervalSpacing(t *testing.T) {
	t.Parallel()
	anchor := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	sched := anchoredInterval{anchor: anchor, period: 2 * time.Hour}

	if got := sched.Next(anchor.Add(-time.Minute)); !got.Equal(anchor) {
		t.Fatalf("before anchor: next = %v, want anchor", got)
	}
	if got := sched.Next(anchor); !got.Equal(anchor.Add(2 * time.Hour)) {
		t.Fatalf("at anchor: next = %v, want anchor+2h", got)
	}
	// Fires stay pinned to the anchor grid even if queried mid-period.
	if got := sched.Next(anchor.Add(3 * time.Hour)); !got.Equal(anchor.Add(4 * time.Hour)) {
		t.Fatalf("mid-period: next = %v, want anchor+4h", got)
	}
}
