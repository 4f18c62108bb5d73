package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, s *Supervisor) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("tasks did not finish")
	}
	return err
}

func TestGoCancelsOnFirstError(t *testing.T) {
	s := New(context.Background(), WithCancelOnError(true))
	s.Go("sleeper", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s.Go("broken", func(context.Context) error { return errors.New("boom") })

	err := waitFor(t, s)
	if err == nil || !strings.Contains(err.Error(), "broken: boom") {
		t.Fatalf("err = %v", err)
	}
	for _, task := range s.Tasks() {
		if task.Running {
			t.Fatalf("%s still running", task.Name)
		}
	}
}

func TestGoRecoversPanic(t *testing.T) {
	s := New(context.Background())
	s.Go("panics", func(context.Context) error { panic("kaboom") })

	err := waitFor(t, s)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("err = %v", err)
	}
	if s.Context().Err() != nil {
		t.Fatal("context canceled without WithCancelOnError")
	}
	s.Cancel()
}

func TestGoRestartCountsRestarts(t *testing.T) {
	s := New(context.Background(), WithCancelOnError(true))
	var runs atomic.Int32
	s.GoRestart("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		<-ctx.Done()
		return ctx.Err()
	}, WithRestartBackoff(time.Millisecond, 2*time.Millisecond))

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].Restarts != 2 || tasks[0].LastErr != "transient" || !tasks[0].Running {
		t.Fatalf("tasks = %+v", tasks)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("restart failures must not be fatal: %v", err)
	}
}

func TestGoRestartStopsOnCleanExit(t *testing.T) {
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("once", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err := waitFor(t, s); err != nil {
		t.Fatal(err)
	}
	if runs.Load() != 1 {
		t.Fatalf("runs = %d", runs.Load())
	}
}
