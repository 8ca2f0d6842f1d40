package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_GoAndWait(t *testing.T) {
	// Arrange
	g := NewManager(4)
	boom := errors.New("boom")
	var ran atomic.Int32

	// Act
	for range 3 {
		g.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	g.Go(context.Background(), func(context.Context) error { return boom })
	err := g.Wait()

	// Assert
	if ran.Load() != 3 {
		t.Fatalf("expected 3 runs, got %d", ran.Load())
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Wait() error = %v, want %v", err, boom)
	}
}

func TestManager_RecoversPanic(t *testing.T) {
	g := NewManager(1)

	g.Go(context.Background(), func(context.Context) error { panic("bad") })

	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestManager_SkipsAfterWait(t *testing.T) {
	g := NewManager(1)
	_ = g.Wait()

	var ran atomic.Bool
	g.Go(context.Background(), func(context.Context) error {
		ran.Store(true)
		return nil
	})

	if ran.Load() {
		t.Fatalf("closed manager must not start new goroutines")
	}
}

func TestManager_Every(t *testing.T) {
	// Arrange
	g := NewManager(2)
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 8)

	// Act
	g.Every(ctx, "test", 5*time.Millisecond, func(context.Context) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return errors.New("logged, not fatal")
	})

	// Assert
	for range 2 {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("periodic task did not tick")
		}
	}
	cancel()
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
