package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"remindbot/internal/trigger"
	"remindbot/pkg/logx"
)

func testSpec(t *testing.T) trigger.Spec {
	t.Helper()
	spec, err := trigger.Build(trigger.Daily, time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return spec
}

func TestScheduleReplacesNotDuplicates(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	spec := testSpec(t)

	if err := s.Schedule("job-1", spec, func(context.Context) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := s.Schedule("job-1", spec, func(context.Context) {}); err != nil {
		t.Fatalf("Schedule again: %v", err)
	}
	if n := len(s.Snapshot()); n != 1 {
		t.Fatalf("snapshot length = %d, want 1 after re-scheduling same id", n)
	}
}

func TestPauseResumeOutcomes(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	spec := testSpec(t)
	if err := s.Schedule("j", spec, func(context.Context) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if got := s.Pause("j"); got != OpApplied {
		t.Fatalf("Pause = %v, want applied", got)
	}
	if got := s.Pause("j"); got != OpAlreadyInState {
		t.Fatalf("Pause again = %v, want already-in-state", got)
	}
	if got := s.Pause("ghost"); got != OpNotFound {
		t.Fatalf("Pause absent = %v, want not-found", got)
	}

	if _, ok := s.NextFireTime("j"); ok {
		t.Fatal("paused job must report no next fire time")
	}

	if got := s.Resume("j"); got != OpApplied {
		t.Fatalf("Resume = %v, want applied", got)
	}
	if got := s.Resume("j"); got != OpAlreadyInState {
		t.Fatalf("Resume again = %v, want already-in-state", got)
	}
	if got := s.Resume("ghost"); got != OpNotFound {
		t.Fatalf("Resume absent = %v, want not-found", got)
	}

	if next, ok := s.NextFireTime("j"); !ok || next.IsZero() {
		t.Fatalf("resumed job next fire = (%v, %v), want a real instant", next, ok)
	}
}

func TestRemoveOutcomes(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	if err := s.Schedule("j", testSpec(t), func(context.Context) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if got := s.Remove("j"); got != OpApplied {
		t.Fatalf("Remove = %v, want applied", got)
	}
	if got := s.Remove("j"); got != OpNotFound {
		t.Fatalf("Remove again = %v, want not-found", got)
	}
	if _, ok := s.NextFireTime("j"); ok {
		t.Fatal("removed job must report no next fire time")
	}
	if _, ok := s.Get("j"); ok {
		t.Fatal("removed job must not be gettable")
	}
}

func TestRescheduleReplacesTriggerAndReactivates(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	spec := testSpec(t)
	if err := s.Schedule("j", spec, func(context.Context) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Pause("j")

	anchor := time.Now().UTC()
	newSpec := trigger.Spec{Kind: trigger.KindInterval, Anchor: anchor, Period: time.Hour}
	if got := s.Reschedule("j", newSpec); got != OpApplied {
		t.Fatalf("Reschedule = %v, want applied", got)
	}
	info, ok := s.Get("j")
	if !ok {
		t.Fatal("job vanished after reschedule")
	}
	if info.Paused {
		t.Fatal("reschedule must reactivate a paused job")
	}
	if info.Spec.Kind != trigger.KindInterval || info.Spec.Period != time.Hour {
		t.Fatalf("trigger not replaced: %+v", info.Spec)
	}

	if got := s.Reschedule("ghost", newSpec); got != OpNotFound {
		t.Fatalf("Reschedule absent = %v, want not-found", got)
	}
}

func TestRescheduleRejectsInvalidSpec(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	spec := testSpec(t)
	if err := s.Schedule("j", spec, func(context.Context) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	bad := trigger.Spec{Kind: trigger.KindInterval, Anchor: time.Now().UTC(), Period: 0}
	if got := s.Reschedule("j", bad); got != OpInvalidSpec {
		t.Fatalf("Reschedule(bad) = %v, want invalid-spec", got)
	}
	// The existing job keeps its trigger.
	info, ok := s.Get("j")
	if !ok {
		t.Fatal("job vanished after rejected reschedule")
	}
	if info.Spec.Kind != trigger.KindCalendar {
		t.Fatalf("trigger replaced by a rejected spec: %+v", info.Spec)
	}
}

func TestBulkOpsCollectFailures(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	spec := testSpec(t)
	for _, id := range []string{"a", "b"} {
		if err := s.Schedule(id, spec, func(context.Context) {}); err != nil {
			t.Fatalf("Schedule(%s): %v", id, err)
		}
	}
	s.Pause("b")

	rep := s.PauseAll([]string{"a", "b", "ghost"})
	if len(rep.Applied) != 1 || rep.Applied[0] != "a" {
		t.Fatalf("applied = %v, want [a]", rep.Applied)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0] != "b" {
		t.Fatalf("skipped = %v, want [b]", rep.Skipped)
	}
	if len(rep.NotFound) != 1 || rep.NotFound[0] != "ghost" {
		t.Fatalf("not found = %v, want [ghost]", rep.NotFound)
	}

	rep = s.RemoveAll([]string{"a", "b", "ghost"})
	if len(rep.Applied) != 2 || len(rep.NotFound) != 1 {
		t.Fatalf("remove report = %+v", rep)
	}
	if n := len(s.Snapshot()); n != 0 {
		t.Fatalf("snapshot length = %d, want 0", n)
	}
}

func TestIntervalJobFires(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	spec := trigger.Spec{Kind: trigger.KindInterval, Anchor: time.Now().UTC(), Period: 50 * time.Millisecond}
	if err := s.Schedule("tick", spec, func(context.Context) { fired.Add(1) }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	s.Start(ctx)
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("interval job never fired")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
