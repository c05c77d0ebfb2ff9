package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingAbandoner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (r *recordingAbandoner) AbandonExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, cutoff)
	return 2, r.err
}

func (r *recordingAbandoner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestExpiryWorkerSweepsImmediatelyAndOnTick(t *testing.T) {
	store := &recordingAbandoner{}
	w := NewExpiryWorker(store, time.Hour, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.calls() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", store.calls())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestExpiryWorkerCutoff(t *testing.T) {
	store := &recordingAbandoner{}
	w := NewExpiryWorker(store, 30*time.Minute, time.Hour, zerolog.Nop())

	before := time.Now().Add(-30 * time.Minute)
	w.sweep(context.Background())
	after := time.Now().Add(-30 * time.Minute)

	if n := store.calls(); n != 1 {
		t.Fatalf("got %d sweeps, want 1", n)
	}
	got := store.cutoffs[0]
	if got.Before(before) || got.After(after) {
		t.Errorf("cutoff %v outside [%v, %v]", got, before, after)
	}
}

func TestExpiryWorkerSurvivesStoreError(t *testing.T) {
	store := &recordingAbandoner{err: errors.New("connection reset")}
	w := NewExpiryWorker(store, time.Hour, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	if store.calls() < 2 {
		t.Errorf("worker stopped sweeping after an error, got %d calls", store.calls())
	}
}
