package freq

import "strings"

// Unit is a calendar/clock component a duration token can map to.
type Unit int

const (
	UnitMinutes Unit = iota
	UnitHours
	UnitDays
	UnitWeeks
	UnitMonths
	UnitYears
)

// Lexicon maps user-facing tokens to units. All matching is
// case-insensitive and script-agnostic: tokens are compared after
// strings.ToLower, so any language works as long as the lexicon lists
// every surface form.
type Lexicon struct {
	// Units maps a lowercased token to its unit ("min" -> UnitMinutes).
	Units map[string]Unit

	// Months holds the 12 month names, January first. Input is matched
	// by a 3-rune case-insensitive prefix.
	Months [12]string

	// NowSentinel is the literal that resolves to the current instant.
	NowSentinel string

	// YearSuffixes are words allowed (and ignored) after the year in a
	// full date, e.g. Russian "года" / "г".
	YearSuffixes []string
}

// DefaultLexicon returns the Russian lexicon the bot ships with.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Units: map[string]Unit{
			"минут": UnitMinutes, "минуты": UnitMinutes, "минуту": UnitMinutes, "мин": UnitMinutes, "м": UnitMinutes,
			"часов": UnitHours, "часа": UnitHours, "час": UnitHours, "ч": UnitHours,
			"дней": UnitDays, "дня": UnitDays, "день": UnitDays, "д": UnitDays,
			"недель": UnitWeeks, "неделя": UnitWeeks, "недели": UnitWeeks, "неделю": UnitWeeks, "н": UnitWeeks,
			"месяцев": UnitMonths, "месяца": UnitMonths, "месяц": UnitMonths, "мес": UnitMonths,
			"лет": UnitYears, "года": UnitYears, "год": UnitYears, "г": UnitYears,
		},
		Months: [12]string{
			"января", "февраля", "марта", "апреля", "мая", "июня",
			"июля", "августа", "сентября", "октября", "ноября", "декабря",
		},
		NowSentinel:  "start_now",
		YearSuffixes: []string{"года", "г"},
	}
}

// lookupUnit resolves a raw token to a unit.
func (l Lexicon) lookupUnit(token string) (Unit, bool) {
	u, ok := l.Units[strings.ToLower(token)]
	return u, ok
}

// monthByPrefix resolves a month name by its first three runes,
// mirroring how users abbreviate month names in chat.
func (l Lexicon) monthByPrefix(token string) (int, bool) {
	t := strings.ToLower(token)
	for i, name := range l.Months {
		p := prefix3(strings.ToLower(name))
		if p != "" && strings.HasPrefix(t, p) {
			return i + 1, true
		}
	}
	return 0, false
}

func (l Lexicon) isYearSuffix(token string) bool {
	t := strings.ToLower(token)
	for _, s := range l.YearSuffixes {
		if t == strings.ToLower(s) {
			return true
		}
	}
	return false
}

func prefix3(s string) string {
	r := []rune(s)
	if len(r) < 3 {
		return s
	}
	return string(r[:3])
}
