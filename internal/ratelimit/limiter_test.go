package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdmitHourlyLimit(t *testing.T) {
	l := NewLimiter(NewMemoryCounterStore(), Config{HourlyLimit: 2, DailyLimit: 10})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Admit(ctx, "global")
		if err != nil || !d.Allowed {
			t.Fatalf("admission %d: got (%+v, %v)", i, d, err)
		}
	}
	d, err := l.Admit(ctx, "global")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Reason != ReasonHourly {
		t.Fatalf("expected hourly denial, got %+v", d)
	}
}

func TestAdmitDailyLimit(t *testing.T) {
	l := NewLimiter(NewMemoryCounterStore(), Config{HourlyLimit: 100, DailyLimit: 1})
	ctx := context.Background()

	if d, _ := l.Admit(ctx, "global"); !d.Allowed {
		t.Fatalf("first admission denied: %+v", d)
	}
	d, _ := l.Admit(ctx, "global")
	if d.Allowed || d.Reason != ReasonDaily {
		t.Fatalf("expected daily denial, got %+v", d)
	}
}

// A daily denial must refund the hourly slot it already took, otherwise denied
// sends would eat into the hourly window.
func TestDailyDenialRefundsHourlySlot(t *testing.T) {
	store := NewMemoryCounterStore()
	l := NewLimiter(store, Config{HourlyLimit: 5, DailyLimit: 1})
	ctx := context.Background()

	if d, _ := l.Admit(ctx, "g"); !d.Allowed {
		t.Fatal("first admission denied")
	}
	for i := 0; i < 3; i++ {
		if d, _ := l.Admit(ctx, "g"); d.Allowed {
			t.Fatal("daily limit not enforced")
		}
	}

	now := time.Now()
	n, _ := store.Incr(ctx, l.hourKey("g", now), time.Hour)
	if n != 2 {
		t.Fatalf("hour counter = %d after refunds, want 2 (1 admitted + this probe)", n)
	}
}

func TestZeroLimitDisablesWindow(t *testing.T) {
	l := NewLimiter(NewMemoryCounterStore(), Config{HourlyLimit: 0, DailyLimit: 0})
	for i := 0; i < 1000; i++ {
		if d, _ := l.Admit(context.Background(), "g"); !d.Allowed {
			t.Fatal("disabled limiter denied a send")
		}
	}
}

func TestScopesAreIndependent(t *testing.T) {
	l := NewLimiter(NewMemoryCounterStore(), Config{HourlyLimit: 1})
	ctx := context.Background()

	if d, _ := l.Admit(ctx, "15550000001"); !d.Allowed {
		t.Fatal("first scope denied")
	}
	if d, _ := l.Admit(ctx, "15550000002"); !d.Allowed {
		t.Fatal("second scope should have its own window")
	}
	if d, _ := l.Admit(ctx, "15550000001"); d.Allowed {
		t.Fatal("first scope over limit")
	}
}

func TestReleaseRefundsAdmission(t *testing.T) {
	l := NewLimiter(NewMemoryCounterStore(), Config{HourlyLimit: 1, DailyLimit: 1})
	ctx := context.Background()

	if d, _ := l.Admit(ctx, "g"); !d.Allowed {
		t.Fatal("admission denied")
	}
	l.Release(ctx, "g")
	if d, _ := l.Admit(ctx, "g"); !d.Allowed {
		t.Fatal("released slot not reusable")
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("counter store down")
}
func (failingStore) Decr(context.Context, string) error { return nil }

func TestAdmitFailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(failingStore{}, Config{HourlyLimit: 1, DailyLimit: 1})
	d, err := l.Admit(context.Background(), "g")
	if err == nil {
		t.Fatal("expected store error surfaced")
	}
	if !d.Allowed {
		t.Fatal("store outage must not block sends")
	}
}

// Two sends racing for the last slot must resolve to exactly one admission.
func TestAdmitConcurrentExactlyN(t *testing.T) {
	const limit = 50
	const workers = 200

	l := NewLimiter(NewMemoryCounterStore(), Config{HourlyLimit: limit, DailyLimit: 1000})
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := l.Admit(ctx, "g")
			if err != nil {
				t.Errorf("admit error: %v", err)
				return
			}
			if d.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if admitted != limit {
		t.Fatalf("admitted %d, want exactly %d", admitted, limit)
	}
}

func TestBucketKeysRollOver(t *testing.T) {
	store := NewMemoryCounterStore()
	l := NewLimiter(store, Config{HourlyLimit: 1})

	base := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	if d, _ := l.Admit(context.Background(), "g"); !d.Allowed {
		t.Fatal("admission denied")
	}
	if d, _ := l.Admit(context.Background(), "g"); d.Allowed {
		t.Fatal("over limit in same hour bucket")
	}

	l.now = func() time.Time { return base.Add(2 * time.Minute) } // 11:01, next bucket
	if d, _ := l.Admit(context.Background(), "g"); !d.Allowed {
		t.Fatal("new hour bucket should admit")
	}
}
