// Package scheduler is the time-based job executor. It owns a cron
// engine plus a registry of jobs keyed by opaque caller-generated ids,
// and exposes the narrow mutation set every other component must go
// through: schedule, pause, resume, remove, reschedule.
package scheduler

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/trigger"
	"remindbot/pkg/logx"
)

var ErrNotStarted = errors.New("scheduler not started")

type job struct {
	id     string
	spec   trigger.Spec
	sched  cron.Schedule
	run    Callback
	entry  cron.EntryID
	paused bool
}

// Service runs jobs per their trigger specs. All registry access is
// serialized under mu; callbacks run on cron's goroutines, outside the
// lock.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	loc *time.Location

	c    *cron.Cron
	jobs map[string]*job

	runCtx    context.Context
	runCancel context.CancelFunc
	started   bool
}

func New(loc *time.Location, log logx.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:  log,
		loc:  loc,
		c:    cron.New(cron.WithLocation(loc)),
		jobs: map[string]*job{},
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c.Start()
	s.started = true
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.jobs)))
}

func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.runCancel
	s.runCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.c.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Schedule registers fn to run per spec under the given id. If a job
// with the same id already exists it is replaced, never duplicated.
func (s *Service) Schedule(id string, spec trigger.Spec, fn Callback) error {
	sched, err := spec.Schedule(s.loc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[id]; ok && !old.paused {
		s.c.Remove(old.entry)
	}
	j := &job{id: id, spec: spec, sched: sched, run: fn}
	j.entry = s.c.Schedule(sched, s.wrap(j))
	s.jobs[id] = j
	s.log.Debug("job scheduled", logx.String("job", id), logx.String("trigger", spec.String()))
	return nil
}

// Pause takes a scheduled job out of the cron engine but keeps its
// definition, so it can be resumed later. Pausing never deletes.
func (s *Service) Pause(id string) OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return OpNotFound
	}
	if j.paused {
		return OpAlreadyInState
	}
	s.c.Remove(j.entry)
	j.paused = true
	s.log.Debug("job paused", logx.String("job", id))
	return OpApplied
}

// Resume puts a paused job back into the cron engine.
func (s *Service) Resume(id string) OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return OpNotFound
	}
	if !j.paused {
		return OpAlreadyInState
	}
	j.entry = s.c.Schedule(j.sched, s.wrap(j))
	j.paused = false
	s.log.Debug("job resumed", logx.String("job", id))
	return OpApplied
}

// Remove deletes a job entirely. Removing an absent job reports
// OpNotFound, it is not an error.
func (s *Service) Remove(id string) OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return OpNotFound
	}
	if !j.paused {
		s.c.Remove(j.entry)
	}
	delete(s.jobs, id)
	s.log.Debug("job removed", logx.String("job", id))
	return OpApplied
}

// Reschedule replaces the trigger of an existing job without changing
// its identity or callback. A paused job is reactivated: resetting the
// start time implies the reminder should fire again.
func (s *Service) Reschedule(id string, spec trigger.Spec) OpResult {
	sched, err := spec.Schedule(s.loc)
	if err != nil {
		s.log.Warn("reschedule rejected", logx.String("job", id), logx.Err(err))
		return OpInvalidSpec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return OpNotFound
	}
	if !j.paused {
		s.c.Remove(j.entry)
	}
	j.spec = spec
	j.sched = sched
	j.entry = s.c.Schedule(sched, s.wrap(j))
	j.paused = false
	s.log.Debug("job rescheduled", logx.String("job", id), logx.String("trigger", spec.String()))
	return OpApplied
}

// NextFireTime reports the job's next scheduled instant. ok is false
// for paused or absent jobs.
func (s *Service) NextFireTime(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.paused {
		return time.Time{}, false
	}
	return j.sched.Next(time.Now().In(s.loc)), true
}

// Get returns a snapshot of one job.
func (s *Service) Get(id string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return JobInfo{}, false
	}
	return s.infoLocked(j), true
}

// Snapshot returns a point-in-time view of every registered job, used
// by the reconciliation pass.
func (s *Service) Snapshot() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, s.infoLocked(j))
	}
	return out
}

func (s *Service) infoLocked(j *job) JobInfo {
	info := JobInfo{ID: j.id, Spec: j.spec, Paused: j.paused}
	if !j.paused {
		info.Next = j.sched.Next(time.Now().In(s.loc))
	}
	return info
}

// wrap adapts a Callback to cron.Job with panic recovery; a panicking
// callback must never take the cron engine down.
func (s *Service) wrap(j *job) cron.Job {
	return cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in job callback",
					logx.String("job", j.id),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
		}()
		s.mu.Lock()
		ctx := s.runCtx
		s.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		j.run(ctx)
	})
}
