package advisor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNotifier_DeliversQueuedJobs(t *testing.T) {
	delivered := make(chan Profile, 3)
	n := newNotifier(func(ctx context.Context, p Profile) error {
		delivered <- p
		return nil
	}, 4, 2, time.Second, testLogger(&syncBuffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.Run(ctx) }()

	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		if !n.Dispatch(Profile{Name: name}) {
			t.Fatalf("Dispatch(%s) was dropped", name)
		}
	}

	seen := map[string]bool{}
	for range 3 {
		select {
		case p := <-delivered:
			seen[p.Name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for notifications")
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct notifications, got %v", seen)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestNotifier_DispatchNeverBlocks(t *testing.T) {
	logs := &syncBuffer{}
	n := newNotifier(func(ctx context.Context, p Profile) error { return nil }, 1, 1, time.Second, testLogger(logs))

	// No workers running: the second job finds the queue full.
	if !n.Dispatch(Profile{Name: "Ana"}) {
		t.Fatal("first Dispatch should be queued")
	}

	start := time.Now()
	if n.Dispatch(Profile{Name: "Bruno"}) {
		t.Error("second Dispatch should be dropped")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Dispatch blocked for %v", elapsed)
	}
	if !strings.Contains(logs.String(), "notify queue full") {
		t.Errorf("expected drop to be logged, got %q", logs.String())
	}
}

func TestNotifier_FailuresAreLogged(t *testing.T) {
	logs := &syncBuffer{}
	attempted := make(chan struct{}, 1)
	n := newNotifier(func(ctx context.Context, p Profile) error {
		attempted <- struct{}{}
		return errors.New("gemini unavailable")
	}, 1, 1, time.Second, testLogger(logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.Run(ctx) }()

	n.Dispatch(Profile{Name: "Ana"})
	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notify attempt")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run must swallow notify errors, got %v", err)
	}
	if !strings.Contains(logs.String(), "notify failed") || !strings.Contains(logs.String(), "gemini unavailable") {
		t.Errorf("expected failure in logs, got %q", logs.String())
	}
}

func TestNotifier_DrainsOnShutdown(t *testing.T) {
	var (
		mu    sync.Mutex
		names []string
	)
	n := newNotifier(func(ctx context.Context, p Profile) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mu.Lock()
		names = append(names, p.Name)
		mu.Unlock()
		return nil
	}, 4, 1, time.Second, testLogger(&syncBuffer{}))

	n.Dispatch(Profile{Name: "Ana"})
	n.Dispatch(Profile{Name: "Bruno"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(names) != 2 {
		t.Errorf("expected both queued jobs delivered, got %v", names)
	}

	if n.Dispatch(Profile{Name: "Carla"}) {
		t.Error("Dispatch after shutdown should be dropped")
	}
}

func TestNotifier_JobContextDetachedFromCaller(t *testing.T) {
	gotErr := make(chan error, 1)
	n := newNotifier(func(ctx context.Context, p Profile) error {
		gotErr <- ctx.Err()
		return nil
	}, 1, 1, time.Second, testLogger(&syncBuffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = n.Run(ctx) }()
	defer cancel()

	n.Dispatch(ana)
	select {
	case err := <-gotErr:
		if err != nil {
			t.Errorf("job context should be live, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
