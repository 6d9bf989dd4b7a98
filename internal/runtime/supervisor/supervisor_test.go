package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"remindbot/pkg/logx"
)

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()
	sup := New(context.Background(), logx.Nop())
	done := make(chan struct{})
	sup.Go("panicky", func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sup.Stop(ctx)
}

func TestGoRestartRetriesUntilNil(t *testing.T) {
	t.Parallel()
	sup := New(context.Background(), logx.Nop())
	var runs int32
	done := make(chan struct{})
	sup.GoRestart("flaky", func(ctx context.Context) error {
		n := atomic.AddInt32(&runs, 1)
		if n < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("goroutine never succeeded")
	}
	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sup.Stop(ctx)
}

func TestStopCancelsLoops(t *testing.T) {
	t.Parallel()
	sup := New(context.Background(), logx.Nop())
	started := make(chan struct{})
	sup.GoRestart("loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sup.Stop(ctx)
	if ctx.Err() != nil {
		t.Fatal("Stop did not finish before the deadline")
	}
}
