package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddRejectsBadSchedule(t *testing.T) {
	s := New(time.UTC)
	err := s.Add("bad", "not a cron expr", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRunNowExecutesJob(t *testing.T) {
	s := New(time.UTC)
	done := make(chan struct{})
	err := s.Add("once", "0 0 1 1 *", func(ctx context.Context) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	s.RunNow("once")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	s.Stop()
}

func TestCoalescingCollapsesBurst(t *testing.T) {
	s := New(time.UTC)

	var mu sync.Mutex
	var runs int32
	block := make(chan struct{})
	started := make(chan struct{}, 1)

	err := s.Add("slow", "0 0 1 1 *", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		select {
		case started <- struct{}{}:
		default:
		}
		mu.Lock()
		ch := block
		mu.Unlock()
		if ch != nil {
			<-ch
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// First firing blocks inside the job.
	s.RunNow("slow")
	<-started

	// Three firings while it runs must collapse into one catch-up.
	s.RunNow("slow")
	s.RunNow("slow")
	s.RunNow("slow")

	close(block)
	mu.Lock()
	block = nil
	mu.Unlock()

	// Stop waits for the pending catch-up run too.
	s.Stop()

	if got := atomic.LoadInt32(&runs); got != 2 {
		t.Fatalf("expected 2 runs (1 blocked + 1 coalesced), got %d", got)
	}
}

func TestStopKeepsContextAliveForInFlightRun(t *testing.T) {
	s := New(time.UTC)

	started := make(chan struct{})
	ctxErr := make(chan error, 1)
	err := s.Add("long", "0 0 1 1 *", func(ctx context.Context) error {
		close(started)
		time.Sleep(200 * time.Millisecond)
		ctxErr <- ctx.Err()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	s.RunNow("long")
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
	s.Stop()

	select {
	case err := <-ctxErr:
		if err != nil {
			t.Fatalf("run in flight during Stop saw context error: %v", err)
		}
	default:
		t.Fatal("Stop returned before the in-flight run finished")
	}
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	s := New(time.UTC)

	var finished atomic.Bool
	err := s.Add("sleepy", "0 0 1 1 *", func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	s.RunNow("sleepy")
	s.Stop()

	if !finished.Load() {
		t.Fatal("Stop returned before in-flight run finished")
	}
}
