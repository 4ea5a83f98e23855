package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSentryRegisterAndPatrol(t *testing.T) {
	s := NewSentry()
	s.RegisterFunc("always-healthy", true, func(ctx context.Context) PostResult {
		return PostResult{Status: StatusHealthy}
	})

	results := s.Patrol(context.Background())
	if results["always-healthy"].Status != StatusHealthy {
		t.Errorf("got %v, want healthy", results["always-healthy"].Status)
	}
}

func TestSentryOverallStatusCriticalFailure(t *testing.T) {
	s := NewSentry()
	s.RegisterFunc("critical", true, func(ctx context.Context) PostResult {
		return PostResult{Status: StatusUnhealthy}
	})
	s.Patrol(context.Background())

	if got := s.OverallStatus(); got != StatusUnhealthy {
		t.Errorf("got %v, want unhealthy", got)
	}
}

func TestSentryOverallStatusNonCriticalDegrades(t *testing.T) {
	s := NewSentry()
	s.RegisterFunc("noncritical", false, func(ctx context.Context) PostResult {
		return PostResult{Status: StatusUnhealthy}
	})
	s.Patrol(context.Background())

	if got := s.OverallStatus(); got != StatusDegraded {
		t.Errorf("got %v, want degraded", got)
	}
}

func TestSentryPatrolTimeout(t *testing.T) {
	s := NewSentry()
	s.Register(&Post{
		Name:     "slow",
		Critical: true,
		Timeout:  10 * time.Millisecond,
		Check: func(ctx context.Context) PostResult {
			<-ctx.Done()
			return PostResult{Status: StatusHealthy}
		},
	})

	results := s.Patrol(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("got %v, want unhealthy on timeout", results["slow"].Status)
	}
}

func TestSentryRecoversFromPanic(t *testing.T) {
	s := NewSentry()
	s.RegisterFunc("panics", true, func(ctx context.Context) PostResult {
		panic("boom")
	})

	results := s.Patrol(context.Background())
	if results["panics"].Status != StatusUnhealthy {
		t.Errorf("got %v, want unhealthy after panic", results["panics"].Status)
	}
}

func TestSentryReadiness(t *testing.T) {
	s := NewSentry()
	if s.IsReady() {
		t.Error("expected not ready by default")
	}
	s.SetReady(true)
	if !s.IsReady() {
		t.Error("expected ready after SetReady(true)")
	}
}

func TestSentryCheckPost(t *testing.T) {
	s := NewSentry()
	s.RegisterFunc("clock", true, func(ctx context.Context) PostResult {
		return PostResult{Status: StatusHealthy}
	})

	result, ok := s.CheckPost(context.Background(), "clock")
	if !ok {
		t.Fatal("expected clock post to be registered")
	}
	if result.Status != StatusHealthy {
		t.Errorf("got %v, want healthy", result.Status)
	}

	if _, ok := s.CheckPost(context.Background(), "missing"); ok {
		t.Error("expected CheckPost on unregistered post to return false")
	}
}

func TestClockCheckHealthy(t *testing.T) {
	check := ClockCheck(func() time.Time { return time.Now() })
	result := check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("got %v, want healthy", result.Status)
	}
}

func TestClockCheckBeforeFloor(t *testing.T) {
	check := ClockCheck(func() time.Time {
		return ClockSaneFloor.Add(-24 * time.Hour)
	})
	result := check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("got %v, want unhealthy", result.Status)
	}
}

func TestStoreCheckHealthy(t *testing.T) {
	check := StoreCheck(func(ctx context.Context) error { return nil })
	result := check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("got %v, want healthy", result.Status)
	}
}

func TestStoreCheckUnhealthy(t *testing.T) {
	check := StoreCheck(func(ctx context.Context) error { return errors.New("connection refused") })
	result := check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("got %v, want unhealthy", result.Status)
	}
	if result.Error == "" {
		t.Error("expected error message to be set")
	}
}

func TestSealCheckDegradedWhenUnavailable(t *testing.T) {
	check := SealCheck(func() bool { return false })
	result := check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("got %v, want degraded", result.Status)
	}
}

func TestSealCheckHealthyWhenAvailable(t *testing.T) {
	check := SealCheck(func() bool { return true })
	result := check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("got %v, want healthy", result.Status)
	}
}
