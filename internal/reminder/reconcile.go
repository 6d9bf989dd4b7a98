package reminder

import (
	"context"
	"fmt"
	"time"

	"remindbot/pkg/logx"
)

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	Checked        int
	Rebuilt        int // jobs re-created from records
	StateFixed     int // paused/active mismatches corrected
	OrphansRemoved int // executor jobs with no backing record
	Failures       int
}

// Reconcile is the read-repair pass between the record store and the
// executor. The record is the source of truth: missing jobs are
// rebuilt (this is also how jobs come back after a restart, since the
// executor keeps no state of its own), paused/active mismatches are
// corrected, and executor jobs with no backing record are removed.
// Partial failure of the two-store create path is a designed
// possibility, which makes this pass required, not optional.
func (s *Service) Reconcile(ctx context.Context) (ReconcileStats, error) {
	var st ReconcileStats

	rs, err := s.store.ListAll(ctx)
	if err != nil {
		return st, fmt.Errorf("list reminders: %w", err)
	}

	known := make(map[string]bool, len(rs))
	for _, r := range rs {
		st.Checked++
		outcome, err := s.reconcileOne(ctx, r)
		if err != nil {
			st.Failures++
			s.log.Error("reconcile failed for reminder", logx.Int64("reminder", r.ID), logx.Err(err))
			continue
		}
		if r.JobID != "" {
			known[r.JobID] = true
		}
		switch outcome {
		case outcomeRebuilt:
			st.Rebuilt++
		case outcomeStateFixed:
			st.StateFixed++
		}
	}

	for _, info := range s.exec.Snapshot() {
		if known[info.ID] {
			continue
		}
		s.exec.Remove(info.ID)
		st.OrphansRemoved++
		s.log.Warn("removed orphan job with no backing record", logx.String("job", info.ID))
	}

	s.log.Info("reconciliation pass finished",
		logx.Int("checked", st.Checked),
		logx.Int("rebuilt", st.Rebuilt),
		logx.Int("state_fixed", st.StateFixed),
		logx.Int("orphans_removed", st.OrphansRemoved),
		logx.Int("failures", st.Failures))
	return st, nil
}

type reconcileOutcome int

const (
	outcomeOK reconcileOutcome = iota
	outcomeRebuilt
	outcomeStateFixed
)

func (s *Service) reconcileOne(ctx context.Context, r *Reminder) (reconcileOutcome, error) {
	info, ok := s.exec.Get(r.JobID)
	if r.JobID == "" || !ok {
		// Inactive reminders still get a (paused) job: disabling
		// pauses, it never deletes.
		if err := s.rebuildJob(r, !r.IsActive); err != nil {
			return outcomeOK, err
		}
		patch := Patch{JobID: &r.JobID, ClearNextRun: true}
		if next, ok := s.exec.NextFireTime(r.JobID); ok {
			patch.NextRunAt = &next
			patch.ClearNextRun = false
		}
		return outcomeRebuilt, s.store.UpdateReminder(ctx, r.ID, patch)
	}

	outcome := outcomeOK
	if info.Paused == r.IsActive { // job state contradicts the record
		if r.IsActive {
			s.exec.Resume(r.JobID)
		} else {
			s.exec.Pause(r.JobID)
		}
		outcome = outcomeStateFixed
	}

	if !r.IsActive {
		return outcome, nil
	}
	next, ok := s.exec.NextFireTime(r.JobID)
	if !ok {
		return outcome, nil
	}
	if r.NextRunAt != nil && next.Equal(*r.NextRunAt) {
		return outcome, nil
	}
	return outcome, s.store.UpdateReminder(ctx, r.ID, Patch{NextRunAt: &next})
}

// RunReconcileLoop runs a pass immediately, then every interval until
// ctx is cancelled. The immediate pass doubles as startup restore.
func (s *Service) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	if _, err := s.Reconcile(ctx); err != nil {
		s.log.Error("startup reconciliation failed", logx.Err(err))
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil {
				s.log.Error("reconciliation failed", logx.Err(err))
			}
		}
	}
}
