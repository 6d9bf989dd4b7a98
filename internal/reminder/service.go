package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"remindbot/internal/freq"
	"remindbot/internal/scheduler"
	"remindbot/internal/trigger"
	"remindbot/pkg/logx"
)

// Service wires the record store, the job executor and the notifier.
// Callers serialize operations on the same reminder id; the service
// does not reorder or deduplicate them.
type Service struct {
	store    Store
	exec     Executor
	notifier Notifier
	log      logx.Logger

	now      func() time.Time
	newJobID func() string
}

func NewService(store Store, exec Executor, notifier Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store:    store,
		exec:     exec,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		newJobID: uuid.NewString,
	}
}

// CreateInput carries the confirmed draft fields.
type CreateInput struct {
	UserID    int64
	ChatID    int64
	Text      string
	Frequency trigger.Frequency
	Custom    *freq.Duration
	StartAt   time.Time
}

// Create persists a reminder and schedules its job as one logical
// transaction. If scheduling fails the record is deleted, so no orphan
// record survives; if the follow-up write of the job id fails, the job
// is removed and the record deleted too.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Reminder, error) {
	if err := validateText(in.Text); err != nil {
		return nil, err
	}
	if in.Frequency != trigger.Custom {
		// customFrequency is set iff the type is CUSTOM
		in.Custom = nil
	}
	spec, err := trigger.Build(in.Frequency, in.StartAt, in.Custom)
	if err != nil {
		return nil, err
	}

	r := &Reminder{
		UserID:    in.UserID,
		ChatID:    in.ChatID,
		Text:      in.Text,
		IsActive:  true,
		Frequency: in.Frequency,
		Custom:    in.Custom,
		StartAt:   in.StartAt,
	}
	if err := s.store.CreateReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder record: %w", err)
	}

	jobID := s.newJobID()
	if err := s.exec.Schedule(jobID, spec, s.callback(r.ChatID, r.ID, r.Text)); err != nil {
		if derr := s.store.DeleteReminder(ctx, r.ID); derr != nil {
			s.log.Error("rollback of reminder record failed; record is orphaned until reconciliation",
				logx.Int64("reminder", r.ID), logx.Err(derr))
		}
		return nil, fmt.Errorf("schedule job: %w", err)
	}

	patch := Patch{JobID: &jobID}
	if next, ok := s.exec.NextFireTime(jobID); ok {
		patch.NextRunAt = &next
	}
	if err := s.store.UpdateReminder(ctx, r.ID, patch); err != nil {
		s.exec.Remove(jobID)
		if derr := s.store.DeleteReminder(ctx, r.ID); derr != nil {
			s.log.Error("cleanup after failed job-id write failed; stores inconsistent until reconciliation",
				logx.Int64("reminder", r.ID), logx.String("job", jobID), logx.Err(derr))
		}
		return nil, fmt.Errorf("persist job id: %w", err)
	}

	r.JobID = jobID
	r.NextRunAt = patch.NextRunAt
	s.log.Info("reminder created",
		logx.Int64("reminder", r.ID),
		logx.Int64("user", r.UserID),
		logx.String("job", jobID),
		logx.String("trigger", spec.String()))
	return r, nil
}

// Disable pauses the reminder's job and marks the record inactive.
// The job is paused, never deleted, so Enable can restore it.
func (s *Service) Disable(ctx context.Context, id int64) (*Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if res := s.exec.Pause(r.JobID); res == scheduler.OpNotFound {
		s.log.Warn("disable: job missing from executor; record updated anyway",
			logx.Int64("reminder", id), logx.String("job", r.JobID))
	}
	inactive := false
	if err := s.store.UpdateReminder(ctx, id, Patch{IsActive: &inactive, ClearNextRun: true}); err != nil {
		return nil, fmt.Errorf("persist disable: %w", err)
	}
	r.IsActive = false
	r.NextRunAt = nil
	s.log.Info("reminder disabled", logx.Int64("reminder", id))
	return r, nil
}

// Enable resumes the reminder's job and marks the record active. A job
// the executor no longer knows (restart, crash) is rebuilt from the
// record under the same id.
func (s *Service) Enable(ctx context.Context, id int64) (*Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	rebuilt := false
	if res := s.exec.Resume(r.JobID); res == scheduler.OpNotFound {
		s.log.Warn("enable: job missing from executor, rebuilding",
			logx.Int64("reminder", id), logx.String("job", r.JobID))
		if err := s.rebuildJob(r, false); err != nil {
			return nil, err
		}
		rebuilt = true
	}
	active := true
	patch := Patch{IsActive: &active, ClearNextRun: true}
	if rebuilt {
		// rebuildJob may have minted a fresh job id; it must hit the
		// store together with the state change.
		patch.JobID = &r.JobID
	}
	if next, ok := s.exec.NextFireTime(r.JobID); ok {
		patch.NextRunAt = &next
		patch.ClearNextRun = false
	}
	if err := s.store.UpdateReminder(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("persist enable: %w", err)
	}
	r.IsActive = true
	r.NextRunAt = patch.NextRunAt
	s.log.Info("reminder enabled", logx.Int64("reminder", id))
	return r, nil
}

// Delete removes the record and the job. A job already gone from the
// executor is tolerated.
func (s *Service) Delete(ctx context.Context, id int64) error {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReminder(ctx, id); err != nil {
		return fmt.Errorf("delete reminder record: %w", err)
	}
	if r.JobID != "" {
		if res := s.exec.Remove(r.JobID); res == scheduler.OpNotFound {
			s.log.Warn("delete: job was already gone", logx.Int64("reminder", id), logx.String("job", r.JobID))
		}
	}
	s.log.Info("reminder deleted", logx.Int64("reminder", id))
	return nil
}

// ResetStartTime rebuilds the trigger from a new start instant and
// reschedules the existing job without changing its identity. The
// reminder comes back active.
func (s *Service) ResetStartTime(ctx context.Context, id int64, start time.Time) (*Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	spec, err := trigger.Build(r.Frequency, start, r.Custom)
	if err != nil {
		return nil, err
	}
	rebuilt := false
	switch res := s.exec.Reschedule(r.JobID, spec); res {
	case scheduler.OpNotFound:
		s.log.Warn("reset: job missing from executor, rebuilding",
			logx.Int64("reminder", id), logx.String("job", r.JobID))
		r.StartAt = start
		if err := s.rebuildJob(r, false); err != nil {
			return nil, err
		}
		rebuilt = true
	case scheduler.OpInvalidSpec:
		return nil, fmt.Errorf("reschedule job %s: executor rejected trigger %s", r.JobID, spec)
	}
	active := true
	patch := Patch{IsActive: &active, StartAt: &start, ClearNextRun: true}
	if rebuilt {
		patch.JobID = &r.JobID
	}
	if next, ok := s.exec.NextFireTime(r.JobID); ok {
		patch.NextRunAt = &next
		patch.ClearNextRun = false
	}
	if err := s.store.UpdateReminder(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("persist new start time: %w", err)
	}
	r.IsActive = true
	r.StartAt = start
	r.NextRunAt = patch.NextRunAt
	s.log.Info("reminder start time reset", logx.Int64("reminder", id), logx.Time("start", start))
	return r, nil
}

// RefreshNextRun re-queries the executor and persists the cached next
// fire time.
func (s *Service) RefreshNextRun(ctx context.Context, id int64) (*Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := Patch{ClearNextRun: true}
	if next, ok := s.exec.NextFireTime(r.JobID); ok {
		patch.NextRunAt = &next
		patch.ClearNextRun = false
	}
	if err := s.store.UpdateReminder(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("persist next run time: %w", err)
	}
	r.NextRunAt = patch.NextRunAt
	return r, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Reminder, error) {
	return s.store.GetReminder(ctx, id)
}

// List returns the user's reminders; active filters by activity when
// non-nil.
func (s *Service) List(ctx context.Context, userID int64, active *bool) ([]*Reminder, error) {
	return s.store.ListByOwner(ctx, userID, active)
}

// rebuildJob schedules the reminder's job from its persisted fields,
// reusing the recorded job id when present. Used on repair paths.
func (s *Service) rebuildJob(r *Reminder, paused bool) error {
	spec, err := trigger.Build(r.Frequency, r.StartAt, r.Custom)
	if err != nil {
		return fmt.Errorf("rebuild trigger for reminder %d: %w", r.ID, err)
	}
	if r.JobID == "" {
		r.JobID = s.newJobID()
	}
	if err := s.exec.Schedule(r.JobID, spec, s.callback(r.ChatID, r.ID, r.Text)); err != nil {
		return fmt.Errorf("rebuild job for reminder %d: %w", r.ID, err)
	}
	if paused {
		s.exec.Pause(r.JobID)
	}
	return nil
}

// callback captures only what the notification needs: the chat, the
// reminder id for logs, and the text. It reads nothing else and never
// mutates the record.
func (s *Service) callback(chatID, reminderID int64, text string) scheduler.Callback {
	notifier := s.notifier
	log := s.log
	return func(ctx context.Context) {
		if err := notifier.Send(ctx, chatID, text); err != nil {
			log.Error("reminder delivery failed",
				logx.Int64("reminder", reminderID),
				logx.Int64("chat", chatID),
				logx.Err(err))
			return
		}
		log.Info("reminder delivered", logx.Int64("reminder", reminderID), logx.Int64("chat", chatID))
	}
}

func validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len([]rune(text)) > MaxTextLen {
		return ErrTextTooLong
	}
	return nil
}
