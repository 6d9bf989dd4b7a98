// Package supervisor runs named background goroutines tied to a shared
// context, with panic recovery and optional restart on failure.
package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"remindbot/pkg/logx"
)

// Supervisor owns a set of goroutines. Stopping the parent context
// stops them all; Wait blocks until everything has returned.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    logx.Logger
}

func New(parent context.Context, log logx.Logger) *Supervisor {
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel, log: log}
}

// Go runs fn once. A panic is recovered and logged, not propagated.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.runOnce(name, fn); err != nil && s.ctx.Err() == nil {
			s.log.Warn("goroutine failed", logx.String("name", name), logx.Err(err))
		}
	}()
}

// GoRestart reruns fn whenever it returns an error or panics, with an
// exponential backoff capped at 30s. A nil return or context
// cancellation ends the loop.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error) {
	const (
		backoffBase = 500 * time.Millisecond
		backoffMax  = 30 * time.Second
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		backoff := backoffBase
		for {
			err := s.runOnce(name, fn)
			if s.ctx.Err() != nil || err == nil {
				return
			}
			s.log.Warn("goroutine restarting",
				logx.String("name", name), logx.Err(err), logx.Duration("backoff", backoff))
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < backoffMax {
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
			}
		}
	}()
}

func (s *Supervisor) runOnce(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("goroutine panicked",
				logx.String("name", name), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	return fn(s.ctx)
}

// Stop cancels the supervised context and waits up to the deadline of
// ctx for goroutines to finish.
func (s *Supervisor) Stop(ctx context.Context) {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("supervisor stop timed out")
	}
}
