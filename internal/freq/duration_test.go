package freq

import (
	"testing"
	"time"
)

func TestParseDurationVariants(t *testing.T) {
	t.Parallel()
	lex := DefaultLexicon()
	tests := []struct {
		name string
		raw  string
		want Duration
	}{
		{name: "full", raw: "1 год 2 месяца 3 дня 4 часа", want: Duration{Years: 1, Months: 2, Days: 3, Hours: 4}},
		{name: "minutes only", raw: "30 минут", want: Duration{Minutes: 30}},
		{name: "hours short", raw: "2 ч", want: Duration{Hours: 2}},
		{name: "hours", raw: "2 часа", want: Duration{Hours: 2}},
		{name: "no space", raw: "2часа", want: Duration{Hours: 2}},
		{name: "weeks", raw: "3 недели", want: Duration{Weeks: 3}},
		{name: "mixed order", raw: "5 минут 1 день", want: Duration{Days: 1, Minutes: 5}},
		{name: "garbage between", raw: "каждые 1 месяц и 3 дня", want: Duration{Months: 1, Days: 3}},
		{name: "repeated unit keeps last", raw: "1 час 2 часа", want: Duration{Hours: 2}},
		{name: "uppercase", raw: "2 ЧАСА", want: Duration{Hours: 2}},
		{name: "empty", raw: "", want: Duration{}},
		{name: "unmatched", raw: "скоро как-нибудь", want: Duration{}},
		{name: "number without unit", raw: "42", want: Duration{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDuration(lex, tt.raw)
			if got != tt.want {
				t.Fatalf("ParseDuration(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDurationIsZero(t *testing.T) {
	t.Parallel()
	if !(Duration{}).IsZero() {
		t.Fatal("zero duration must report IsZero")
	}
	if (Duration{Minutes: 1}).IsZero() {
		t.Fatal("non-zero duration must not report IsZero")
	}
}

func TestDurationAddToCalendarAware(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	base := time.Date(2025, time.January, 15, 9, 30, 0, 0, loc)

	got := Duration{Months: 1}.AddTo(base)
	if want := time.Date(2025, time.February, 15, 9, 30, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("+1 month = %v, want %v", got, want)
	}

	got = Duration{Years: 1, Months: 2, Days: 3, Hours: 4}.AddTo(base)
	if want := time.Date(2026, time.March, 18, 13, 30, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("compound add = %v, want %v", got, want)
	}

	got = Duration{Weeks: 2}.AddTo(base)
	if want := base.AddDate(0, 0, 14); !got.Equal(want) {
		t.Fatalf("+2 weeks = %v, want %v", got, want)
	}

	// Month-end overflow normalizes forward (AddDate semantics).
	jan31 := time.Date(2025, time.January, 31, 12, 0, 0, 0, loc)
	got = Duration{Months: 1}.AddTo(jan31)
	if want := time.Date(2025, time.March, 3, 12, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("Jan 31 + 1 month = %v, want %v", got, want)
	}
}
