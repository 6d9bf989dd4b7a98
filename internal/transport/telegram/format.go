package telegram

import (
	"fmt"
	"strings"
	"time"

	"remindbot/internal/freq"
	"remindbot/internal/reminder"
	"remindbot/internal/trigger"
)

var monthsGen = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// formatInstant renders a moment as "2 января 2025 года в 09:30".
func formatInstant(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%d %s %d года в %02d:%02d",
		t.Day(), monthsGen[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// ruPlural picks the Russian plural form for n (1 час, 2 часа, 5 часов).
func ruPlural(n int, one, few, many string) string {
	n100 := n % 100
	n10 := n % 10
	switch {
	case n100 >= 11 && n100 <= 14:
		return many
	case n10 == 1:
		return one
	case n10 >= 2 && n10 <= 4:
		return few
	default:
		return many
	}
}

func formatCustom(d *freq.Duration) string {
	if d == nil {
		return ""
	}
	var parts []string
	add := func(n int, one, few, many string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, ruPlural(n, one, few, many)))
		}
	}
	add(d.Years, "год", "года", "лет")
	add(d.Months, "месяц", "месяца", "месяцев")
	add(d.Weeks, "неделя", "недели", "недель")
	add(d.Days, "день", "дня", "дней")
	add(d.Hours, "час", "часа", "часов")
	add(d.Minutes, "минута", "минуты", "минут")
	if len(parts) == 0 {
		return ""
	}
	return "каждые " + strings.Join(parts, " ")
}

func formatFrequency(f trigger.Frequency, custom *freq.Duration) string {
	switch f {
	case trigger.Daily:
		return "Ежедневно"
	case trigger.Weekly:
		return "Еженедельно"
	case trigger.Monthly:
		return "Ежемесячно"
	case trigger.Yearly:
		return "Ежегодно"
	case trigger.Custom:
		if s := formatCustom(custom); s != "" {
			return s
		}
		return "Свой интервал"
	}
	return string(f)
}

// formatCard renders the reminder detail view.
func formatCard(r *reminder.Reminder, loc *time.Location) string {
	status := "активен"
	if !r.IsActive {
		status = "неактивен"
	}
	next := "напоминание отключено"
	if r.IsActive && r.NextRunAt != nil {
		next = formatInstant(*r.NextRunAt, loc)
	}
	lines := []string{
		"Информация о напоминании:",
		"",
		"Текст: " + r.Text,
		"Статус: " + status,
		"Периодичность напоминания: " + formatFrequency(r.Frequency, r.Custom),
		"Время следующего срабатывания: " + next,
	}
	return strings.Join(lines, "\n")
}

// formatDraft renders the confirmation summary shown before commit.
func formatDraft(text string, f trigger.Frequency, custom *freq.Duration, startAt time.Time, loc *time.Location) string {
	lines := []string{
		"Проверьте напоминание:",
		"",
		"Текст: " + text,
		"Периодичность: " + formatFrequency(f, custom),
		"Время начала: " + formatInstant(startAt, loc),
	}
	return strings.Join(lines, "\n")
}
