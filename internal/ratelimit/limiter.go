package ratelimit

import (
	"context"
	"time"
)

type Reason string

const (
	ReasonNone   Reason = ""
	ReasonHourly Reason = "hourly_limit_exceeded"
	ReasonDaily  Reason = "daily_limit_exceeded"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

type Config struct {
	HourlyLimit int
	DailyLimit  int
	KeyPrefix   string // e.g. "rl:send:"
}

// Limiter enforces independent hourly and daily fixed windows. Admission is a
// single atomic increment per window with a rollback when the limit is hit, so
// two sends racing for the last slot resolve to exactly one admission. A
// denial leaves both counters untouched.
type Limiter struct {
	store CounterStore
	cfg   Config
	now   func() time.Time
}

func NewLimiter(store CounterStore, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:send:"
	}
	return &Limiter{store: store, cfg: cfg, now: time.Now}
}

// Bucket keys roll over on UTC hour/day boundaries.
func (l *Limiter) hourKey(scope string, now time.Time) string {
	return l.cfg.KeyPrefix + scope + ":h:" + now.UTC().Format("2006010215")
}

func (l *Limiter) dayKey(scope string, now time.Time) string {
	return l.cfg.KeyPrefix + scope + ":d:" + now.UTC().Format("20060102")
}

// Admit checks both windows for scope. A zero or negative limit disables that
// window. Store errors fail open: a send is never blocked by a counter outage.
func (l *Limiter) Admit(ctx context.Context, scope string) (Decision, error) {
	now := l.now()

	var hourTaken bool
	if l.cfg.HourlyLimit > 0 {
		key := l.hourKey(scope, now)
		n, err := l.store.Incr(ctx, key, time.Hour)
		if err != nil {
			return Decision{Allowed: true}, err
		}
		if n > int64(l.cfg.HourlyLimit) {
			_ = l.store.Decr(ctx, key)
			return Decision{Allowed: false, Reason: ReasonHourly}, nil
		}
		hourTaken = true
	}

	if l.cfg.DailyLimit > 0 {
		key := l.dayKey(scope, now)
		n, err := l.store.Incr(ctx, key, 24*time.Hour)
		if err != nil {
			return Decision{Allowed: true}, err
		}
		if n > int64(l.cfg.DailyLimit) {
			_ = l.store.Decr(ctx, key)
			if hourTaken {
				_ = l.store.Decr(ctx, l.hourKey(scope, now))
			}
			return Decision{Allowed: false, Reason: ReasonDaily}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

// Release refunds a prior admission. The gateway calls it when every transport
// failed, so a send that never left the process does not consume quota.
func (l *Limiter) Release(ctx context.Context, scope string) {
	now := l.now()
	if l.cfg.HourlyLimit > 0 {
		_ = l.store.Decr(ctx, l.hourKey(scope, now))
	}
	if l.cfg.DailyLimit > 0 {
		_ = l.store.Decr(ctx, l.dayKey(scope, now))
	}
}
