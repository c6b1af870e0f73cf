package daemon

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T, refresh func()) *Loop {
	t.Helper()
	l := NewLoop(LoopConfig{Refresh: refresh, Logger: slog.New(slog.DiscardHandler)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("loop did not stop")
		}
		l.Close()
	})
	return l
}

func TestLoopRefreshesAfterEachBatch(t *testing.T) {
	// Only touched on the loop goroutine.
	var log []string
	l := startLoop(t, func() { log = append(log, "refresh") })
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if err := l.Do(ctx, func() error {
			log = append(log, name)
			return nil
		}); err != nil {
			t.Fatalf("Do(%s): %v", name, err)
		}
	}

	var got []string
	if err := l.Do(ctx, func() error {
		got = slices.Clone(log)
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	want := []string{"refresh", "a", "refresh", "b", "refresh"}
	if !slices.Equal(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}

func TestLoopRunsConcurrentPosts(t *testing.T) {
	l := startLoop(t, nil)

	count := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Post(func() error {
				count++
				return nil
			}); err != nil {
				t.Errorf("Post: %v", err)
			}
		}()
	}
	wg.Wait()

	var got int
	if err := l.Do(context.Background(), func() error {
		got = count
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 50 {
		t.Fatalf("ran %d closures, want 50", got)
	}
}

func TestLoopDoReturnsErrorsAndRecoversPanics(t *testing.T) {
	l := startLoop(t, nil)
	ctx := context.Background()

	boom := errors.New("boom")
	if err := l.Do(ctx, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Do error = %v, want boom", err)
	}

	err := l.Do(ctx, func() error { panic("bad closure") })
	if err == nil || !strings.Contains(err.Error(), "bad closure") {
		t.Fatalf("Do after panic = %v, want panic error", err)
	}

	if err := l.Do(ctx, func() error { return nil }); err != nil {
		t.Fatalf("loop did not survive the panic: %v", err)
	}
}

func TestLoopRefreshPanicDoesNotStopLoop(t *testing.T) {
	calls := 0
	l := startLoop(t, func() {
		calls++
		if calls == 2 {
			panic("refresh failed")
		}
	})
	ctx := context.Background()
	for range 3 {
		if err := l.Do(ctx, func() error { return nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
}

func TestLoopDoHonoursContext(t *testing.T) {
	l := startLoop(t, nil)

	release := make(chan struct{})
	if err := l.Post(func() error {
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do = %v, want deadline exceeded", err)
	}
}

func TestLoopClosedRejectsWork(t *testing.T) {
	l := NewLoop(LoopConfig{Logger: slog.New(slog.DiscardHandler)})
	l.Close()
	l.Close()

	if err := l.Post(func() error { return nil }); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Post = %v, want ErrLoopStopped", err)
	}
	if err := l.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Do = %v, want ErrLoopStopped", err)
	}
	if err := l.Serve(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Serve = %v, want ErrLoopStopped", err)
	}
}
