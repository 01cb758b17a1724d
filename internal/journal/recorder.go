package journal

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/edgebar/internal/windowmanager"
)

const (
	recorderBuffer = 256
	pruneInterval  = time.Hour
)

// Recorder writes pass records to a Store off the reconciling goroutine.
// Records arriving while the buffer is full are dropped.
type Recorder struct {
	store   *Store
	retain  time.Duration
	logger  *slog.Logger
	queue   chan windowmanager.PassRecord
	dropped atomic.Uint64
}

var _ windowmanager.PassRecorder = (*Recorder)(nil)

// NewRecorder creates a recorder. retain <= 0 keeps passes forever.
func NewRecorder(store *Store, retain time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		retain: retain,
		logger: logger,
		queue:  make(chan windowmanager.PassRecord, recorderBuffer),
	}
}

// Record queues rec without blocking.
func (r *Recorder) Record(rec windowmanager.PassRecord) {
	select {
	case r.queue <- rec:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.logger.Warn("journal queue full, dropping pass records", "dropped", n)
		}
	}
}

// Dropped returns how many records were discarded.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Serve drains the queue into the store until ctx is done, then flushes what
// is already queued.
func (r *Recorder) Serve(ctx context.Context) error {
	r.prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush()
			return ctx.Err()
		case rec := <-r.queue:
			r.write(rec)
		case <-ticker.C:
			r.prune()
		}
	}
}

func (r *Recorder) String() string { return "journal-recorder" }

func (r *Recorder) flush() {
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(rec windowmanager.PassRecord) {
	if err := r.store.Insert(FromRecord(rec)); err != nil {
		r.logger.Warn("journal write failed", "pass", rec.ID, "error", err)
	}
}

func (r *Recorder) prune() {
	if r.retain <= 0 {
		return
	}
	n, err := r.store.PruneBefore(time.Now().Add(-r.retain))
	if err != nil {
		r.logger.Warn("journal prune failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Debug("journal pruned", "passes", n)
	}
}
