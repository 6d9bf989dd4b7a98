package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cron field layout: second minute hour dom month dow
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule compiles the spec into a cron.Schedule evaluated in loc.
// Both calendar and interval rules are gated on the anchor: nothing
// fires before it.
func (s Spec) Schedule(loc *time.Location) (cron.Schedule, error) {
	switch s.Kind {
	case KindInterval:
		if s.Period <= 0 {
			return nil, fmt.Errorf("interval trigger with non-positive period %s", s.Period)
		}
		return anchoredInterval{anchor: s.Anchor, period: s.Period}, nil
	case KindCalendar:
		inner, err := cronParser.Parse(s.cronExpr(loc))
		if err != nil {
			return nil, fmt.Errorf("compile calendar trigger: %w", err)
		}
		return notBefore{inner: inner, anchor: s.Anchor}, nil
	default:
		return nil, fmt.Errorf("unknown trigger kind %d", s.Kind)
	}
}

// cronExpr renders the calendar fields to a 6-field cron expression.
// The CRON_TZ prefix keeps evaluation in the operating timezone; loc
// comes from time.LoadLocation so its name round-trips.
func (s Spec) cronExpr(loc *time.Location) string {
	dom, month, dow := "*", "*", "*"
	if s.DayOfMonth != nil {
		dom = fmt.Sprintf("%d", *s.DayOfMonth)
	}
	if s.Month != nil {
		month = fmt.Sprintf("%d", int(*s.Month))
	}
	if s.DayOfWeek != nil {
		dow = fmt.Sprintf("%d", int(*s.DayOfWeek))
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d %d %s %s %s", loc.String(), s.Second, s.Minute, s.Hour, dom, month, dow)
}

// anchoredInterval fires at anchor, then every period after it. Unlike
// cron's @every, the sequence is pinned to the anchor, not to whenever
// the job happened to be registered.
type anchoredInterval struct {
	anchor time.Time
	period time.Duration
}

func (a anchoredInterval) Next(t time.Time) time.Time {
	if t.Before(a.anchor) {
		return a.anchor
	}
	n := t.Sub(a.anchor)/a.period + 1
	return a.anchor.Add(n * a.period)
}

// notBefore gates an inner schedule so the first fire is at or after
// the anchor. The anchor itself satisfies the calendar rule by
// construction, so backing up one second makes it eligible.
type notBefore struct {
	inner  cron.Schedule
	anchor time.Time
}

func (n notBefore) Next(t time.Time) time.Time {
	if t.Before(n.anchor) {
		t = n.anchor.Add(-time.Second)
	}
	return n.inner.Next(t)
}
