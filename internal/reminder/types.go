// Package reminder owns the persistent reminder entity and the
// lifecycle operations that keep the record store and the job executor
// consistent with each other.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindbot/internal/freq"
	"remindbot/internal/scheduler"
	"remindbot/internal/trigger"
)

// MaxTextLen bounds the reminder text.
const MaxTextLen = 255

var (
	ErrNotFound    = errors.New("reminder not found")
	ErrEmptyText   = errors.New("reminder text is empty")
	ErrTextTooLong = fmt.Errorf("reminder text exceeds %d characters", MaxTextLen)
)

// Reminder is the persistent entity.
//
// JobID is empty only during the window between record creation and
// successful job scheduling, or when the executor lost the job (a
// restart); the reconciliation pass closes both gaps.
type Reminder struct {
	ID     int64
	UserID int64 // owning user row
	ChatID int64 // telegram chat the notification goes to

	Text      string
	IsActive  bool
	Frequency trigger.Frequency
	Custom    *freq.Duration // set iff Frequency == trigger.Custom
	StartAt   time.Time

	JobID     string
	NextRunAt *time.Time // cached executor value; meaningful only while active
}

// Patch is a partial update of a reminder record. Nil fields are left
// untouched.
type Patch struct {
	IsActive     *bool
	JobID        *string
	StartAt      *time.Time
	NextRunAt    *time.Time
	ClearNextRun bool
}

// Store is the persistence collaborator. Implementations return
// ErrNotFound for missing ids and wrap driver errors otherwise.
type Store interface {
	UpsertUser(ctx context.Context, tgUserID int64, username string) (int64, error)
	CreateReminder(ctx context.Context, r *Reminder) error
	GetReminder(ctx context.Context, id int64) (*Reminder, error)
	UpdateReminder(ctx context.Context, id int64, p Patch) error
	DeleteReminder(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, userID int64, active *bool) ([]*Reminder, error)
	ListAll(ctx context.Context) ([]*Reminder, error)
}

// Executor is the time-based job executor collaborator. Job ids are
// opaque strings generated by this package, never by the executor.
type Executor interface {
	Schedule(id string, spec trigger.Spec, fn scheduler.Callback) error
	Pause(id string) scheduler.OpResult
	Resume(id string) scheduler.OpResult
	Remove(id string) scheduler.OpResult
	Reschedule(id string, spec trigger.Spec) scheduler.OpResult
	PauseAll(ids []string) scheduler.Report
	ResumeAll(ids []string) scheduler.Report
	RemoveAll(ids []string) scheduler.Report
	NextFireTime(id string) (time.Time, bool)
	Get(id string) (scheduler.JobInfo, bool)
	Snapshot() []scheduler.JobInfo
}

// Notifier delivers a fired reminder to its owner. Delivery failures
// are logged by the caller and never propagate into the executor.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}
