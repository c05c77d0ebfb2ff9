package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpiredAbandoner is the storage operation the sweep needs.
// *repository.AssessmentRepository satisfies it.
type ExpiredAbandoner interface {
	AbandonExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiryWorker is the recurring sweep that abandons timed-out STARTED
// assessments. It shares no authority with the inline liveness checks: both
// recompute expiry from started_at and converge on the same terminal state,
// so running them concurrently is safe. The worker owns its lifecycle — it
// runs until its context is cancelled.
type ExpiryWorker struct {
	store    ExpiredAbandoner
	timeout  time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(store ExpiredAbandoner, timeout, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		store:    store,
		timeout:  timeout,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs one sweep immediately, then on a fixed ticker until ctx is
// cancelled. Intended to run as a goroutine from main.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("timeout", w.timeout).
		Dur("interval", w.interval).
		Msg("ExpiryWorker started")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep issues one bulk conditional update. A run that finds nothing is the
// common case and logs at debug only.
func (w *ExpiryWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.timeout)

	n, err := w.store.AbandonExpired(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("expiry sweep failed")
		}
		return
	}

	if n > 0 {
		w.log.Info().Int64("abandoned", n).Msg("Expired assessments abandoned")
	} else {
		w.log.Debug().Msg("expiry sweep: nothing to do")
	}
}
