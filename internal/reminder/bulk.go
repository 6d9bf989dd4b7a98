package reminder

import (
	"context"
	"fmt"

	"remindbot/pkg/logx"
)

// BulkFailure records one reminder a bulk operation could not fully
// apply. The rest of the set is processed regardless.
type BulkFailure struct {
	ReminderID int64
	Err        error
}

// BulkReport summarizes a bulk operation.
type BulkReport struct {
	Processed int
	Failures  []BulkFailure
}

func (r BulkReport) AllOK() bool { return len(r.Failures) == 0 }

// DisableAll pauses every job of the user's reminders and marks the
// records inactive.
func (s *Service) DisableAll(ctx context.Context, userID int64) (BulkReport, error) {
	rs, err := s.store.ListByOwner(ctx, userID, nil)
	if err != nil {
		return BulkReport{}, fmt.Errorf("list reminders: %w", err)
	}
	s.exec.PauseAll(jobIDs(rs))

	var rep BulkReport
	inactive := false
	for _, r := range rs {
		rep.Processed++
		if err := s.store.UpdateReminder(ctx, r.ID, Patch{IsActive: &inactive, ClearNextRun: true}); err != nil {
			rep.Failures = append(rep.Failures, BulkFailure{ReminderID: r.ID, Err: err})
		}
	}
	s.logBulk("disable all", userID, rep)
	return rep, nil
}

// EnableAll resumes every job of the user's reminders and marks the
// records active. Jobs the executor lost are rebuilt from the records.
func (s *Service) EnableAll(ctx context.Context, userID int64) (BulkReport, error) {
	rs, err := s.store.ListByOwner(ctx, userID, nil)
	if err != nil {
		return BulkReport{}, fmt.Errorf("list reminders: %w", err)
	}
	report := s.exec.ResumeAll(jobIDs(rs))
	missing := map[string]bool{}
	for _, id := range report.NotFound {
		missing[id] = true
	}

	var rep BulkReport
	active := true
	for _, r := range rs {
		rep.Processed++
		patch := Patch{IsActive: &active, ClearNextRun: true}
		if r.JobID == "" || missing[r.JobID] {
			if err := s.rebuildJob(r, false); err != nil {
				rep.Failures = append(rep.Failures, BulkFailure{ReminderID: r.ID, Err: err})
				continue
			}
			// The rebuild can mint a fresh job id; persist it with the
			// state change.
			patch.JobID = &r.JobID
		}
		if next, ok := s.exec.NextFireTime(r.JobID); ok {
			patch.NextRunAt = &next
			patch.ClearNextRun = false
		}
		if err := s.store.UpdateReminder(ctx, r.ID, patch); err != nil {
			rep.Failures = append(rep.Failures, BulkFailure{ReminderID: r.ID, Err: err})
		}
	}
	s.logBulk("enable all", userID, rep)
	return rep, nil
}

// DeleteAll removes the user's reminders and their jobs. active
// narrows the set: nil for all, true for active only, false for
// disabled only.
func (s *Service) DeleteAll(ctx context.Context, userID int64, active *bool) (BulkReport, error) {
	rs, err := s.store.ListByOwner(ctx, userID, active)
	if err != nil {
		return BulkReport{}, fmt.Errorf("list reminders: %w", err)
	}
	s.exec.RemoveAll(jobIDs(rs))

	var rep BulkReport
	for _, r := range rs {
		rep.Processed++
		if err := s.store.DeleteReminder(ctx, r.ID); err != nil {
			rep.Failures = append(rep.Failures, BulkFailure{ReminderID: r.ID, Err: err})
		}
	}
	s.logBulk("delete all", userID, rep)
	return rep, nil
}

func jobIDs(rs []*Reminder) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		if r.JobID != "" {
			ids = append(ids, r.JobID)
		}
	}
	return ids
}

func (s *Service) logBulk(op string, userID int64, rep BulkReport) {
	if rep.AllOK() {
		s.log.Info("bulk operation finished",
			logx.String("op", op), logx.Int64("user", userID), logx.Int("processed", rep.Processed))
		return
	}
	s.log.Warn("bulk operation finished with failures",
		logx.String("op", op),
		logx.Int64("user", userID),
		logx.Int("processed", rep.Processed),
		logx.Int("failed", len(rep.Failures)))
}
