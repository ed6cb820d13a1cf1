package resilience

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

var errUnavailable = &StatusError{StatusCode: http.StatusServiceUnavailable}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int, reset time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(BreakerConfig{FailureThreshold: threshold, ResetTimeout: reset, Name: "test"})
	b.now = clock.Now
	return b, clock
}

func fail(ctx context.Context, b *Breaker, err error) error {
	_, got := Call(ctx, b, func(_ context.Context) (int, error) { return 0, err })
	return got
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	got, err := Call(context.Background(), b, func(_ context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for range 3 {
		_ = fail(ctx, b, errUnavailable)
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	_, err := Call(ctx, b, func(_ context.Context) (int, error) {
		t.Error("should not be called while open")
		return 0, nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	for range 5 {
		_ = fail(ctx, b, &StatusError{StatusCode: http.StatusNotFound})
	}
	if b.State() != BreakerClosed {
		t.Errorf("404s should not open the breaker, got %s", b.State())
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	_ = fail(ctx, b, errUnavailable)
	_ = fail(ctx, b, errUnavailable)
	_, _ = Call(ctx, b, func(_ context.Context) (int, error) { return 1, nil })
	_ = fail(ctx, b, errUnavailable)
	_ = fail(ctx, b, errUnavailable)

	if b.State() != BreakerClosed {
		t.Errorf("expected closed after interleaved success, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b, clock := newTestBreaker(1, 10*time.Second)
	ctx := context.Background()

	_ = fail(ctx, b, errUnavailable)
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	clock.Advance(11 * time.Second)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", b.State())
	}

	_, err := Call(ctx, b, func(_ context.Context) (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(3, 10*time.Second)
	ctx := context.Background()

	for range 3 {
		_ = fail(ctx, b, errUnavailable)
	}
	clock.Advance(10 * time.Second)

	_ = fail(ctx, b, errUnavailable)
	if b.State() != BreakerOpen {
		t.Errorf("failed probe should reopen, got %s", b.State())
	}
}

func TestBreaker_HalfOpenAllowsSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Second)
	ctx := context.Background()

	_ = fail(ctx, b, errUnavailable)
	clock.Advance(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Call(ctx, b, func(_ context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	_, err := Call(ctx, b, func(_ context.Context) (int, error) { return 1, nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("second caller during probe should be rejected, got %v", err)
	}
	close(release)
	<-done

	if b.State() != BreakerClosed {
		t.Errorf("expected closed after probe, got %s", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1, time.Hour)
	_ = fail(context.Background(), b, errUnavailable)
	b.Reset()
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after reset, got %s", b.State())
	}
}

func TestBreakerState_String(t *testing.T) {
	tests := map[BreakerState]string{
		BreakerClosed:    "closed",
		BreakerOpen:      "open",
		BreakerHalfOpen:  "half-open",
		BreakerState(42): "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d: got %q, want %q", int(s), s.String(), want)
		}
	}
}

func TestFromBreakerConfig(t *testing.T) {
	cfg := FromBreakerConfig(9, 45)
	if cfg.FailureThreshold != 9 || cfg.ResetTimeout != 45*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
	def := FromBreakerConfig(0, 0)
	if def != DefaultBreakerConfig() {
		t.Errorf("expected defaults, got %+v", def)
	}
}
