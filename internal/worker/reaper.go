package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/wa-bridge/internal/repository"
	"github.com/storekit/wa-bridge/internal/session"
	"github.com/storekit/wa-bridge/internal/webhook"
)

// Reaper runs the schedule-triggered sweeps: expired sessions, messages past
// retention, and replay of webhook events whose handlers failed. Each sweep
// works in bounded batches and is independent of live request handling.
type Reaper struct {
	Sessions  *session.Store
	Messages  repository.MessagesRepository
	Events    repository.WebhookEventsRepository
	Pipeline  *webhook.Pipeline
	Interval  time.Duration
	Retention time.Duration
	Batch     int
	Log       *zap.Logger
}

// Run blocks until ctx is cancelled, sweeping once per interval (and once at
// startup).
func (r *Reaper) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		r.Interval = time.Hour
	}
	if r.Batch <= 0 {
		r.Batch = 1000
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}

	tick := time.NewTicker(r.Interval)
	defer tick.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	if n, err := r.Sessions.ReapExpired(ctx); err != nil {
		r.Log.Error("session reap failed", zap.Int64("deleted", n), zap.Error(err))
	} else if n > 0 {
		r.Log.Info("expired sessions reaped", zap.Int64("deleted", n))
	}

	if r.Retention > 0 {
		cutoff := time.Now().Add(-r.Retention)
		var total int64
		for {
			n, err := r.Messages.DeleteOlderThan(ctx, cutoff, r.Batch)
			total += n
			if err != nil {
				r.Log.Error("message retention sweep failed", zap.Error(err))
				break
			}
			if n < int64(r.Batch) {
				break
			}
		}
		if total > 0 {
			r.Log.Info("messages past retention deleted", zap.Int64("deleted", total))
		}
	}

	r.replayFailed(ctx)
}

// replayFailed re-runs handlers for events left unprocessed by an earlier
// failure; the durable raw envelope makes this safe at any time.
func (r *Reaper) replayFailed(ctx context.Context) {
	evs, err := r.Events.ListUnprocessed(ctx, r.Batch)
	if err != nil {
		r.Log.Error("list unprocessed webhook events failed", zap.Error(err))
		return
	}
	for _, ev := range evs {
		// Fresh rows are still being handled inline; only rows with a
		// recorded error are true stragglers.
		if !ev.Error.Valid {
			continue
		}
		if err := r.Pipeline.Reprocess(ctx, ev); err != nil {
			r.Log.Warn("webhook replay failed", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}
}
