package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolProcessesAllJobs(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(4, 16, func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	})

	ctx := context.Background()
	pool.Start(ctx)
	for i := 0; i < 100; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit(%d) failed: %v", i, err)
		}
	}
	if err := pool.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if processed.Load() != 100 {
		t.Errorf("processed = %d, want 100", processed.Load())
	}
}

func TestPoolReportsFirstError(t *testing.T) {
	boom := errors.New("boom")
	pool := NewPool(2, 8, func(ctx context.Context, job int) error {
		if job%3 == 0 {
			return boom
		}
		return nil
	})

	ctx := context.Background()
	pool.Start(ctx)
	for i := 0; i < 9; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if err := pool.Stop(); !errors.Is(err, boom) {
		t.Errorf("Stop error = %v, want %v", err, boom)
	}
	if got := pool.Failed(); got != 3 {
		t.Errorf("Failed() = %d, want 3", got)
	}
}

func TestPoolSubmitUnblocksOnCancel(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool(1, 0, func(ctx context.Context, job int) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	// Occupy the single worker.
	if err := pool.Submit(ctx, 0); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		// Unbuffered queue and a busy worker: this blocks until cancel.
		done <- pool.Submit(ctx, 1)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Submit error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not unblock after cancel")
	}

	close(block)
	pool.Stop()
}

func TestPoolStopWaitsForInFlight(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 32, func(ctx context.Context, job int) error {
		time.Sleep(5 * time.Millisecond)
		processed.Add(1)
		return nil
	})

	ctx := context.Background()
	pool.Start(ctx)
	for i := 0; i < 20; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop timed out")
	}
	if processed.Load() != 20 {
		t.Errorf("processed = %d, want 20 (Stop must drain the queue)", processed.Load())
	}
}
