package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSearchLogFull is returned when the search buffer cannot accept a record.
var ErrSearchLogFull = errors.New("search log buffer full")

// SearchLogger records route searches for analytics.
type SearchLogger interface {
	RecordSearch(ctx context.Context, r SearchRecord) error
}

// NopSearchLogger discards every record.
type NopSearchLogger struct{}

// RecordSearch implements SearchLogger.
func (NopSearchLogger) RecordSearch(context.Context, SearchRecord) error { return nil }

// SearchStats reports aggregate search activity.
type SearchStats interface {
	TopSearches(ctx context.Context, since time.Time, limit int) ([]PairCount, error)
}

// SearchWriter persists a batch of search records.
type SearchWriter interface {
	InsertSearches(ctx context.Context, records []SearchRecord) error
}

// SearchBuffer queues search records and writes them in batches, either when
// BatchSize records are pending or every FlushInterval.
type SearchBuffer struct {
	w             SearchWriter
	logger        *zap.Logger
	in            chan SearchRecord
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	dropped int
	written int
}

// NewSearchBuffer creates a buffer in front of w. Run must be called to drain it.
func NewSearchBuffer(w SearchWriter, logger *zap.Logger, batchSize int, flushInterval time.Duration) *SearchBuffer {
	if batchSize <= 0 {
		batchSize = 500
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &SearchBuffer{
		w:             w,
		logger:        logger,
		in:            make(chan SearchRecord, batchSize*4),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// RecordSearch queues r without blocking. When the queue is full the record
// is dropped and ErrSearchLogFull returned.
func (b *SearchBuffer) RecordSearch(_ context.Context, r SearchRecord) error {
	select {
	case b.in <- r:
		return nil
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		return ErrSearchLogFull
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is pending.
func (b *SearchBuffer) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	pending := make([]SearchRecord, 0, b.batchSize)
	for {
		select {
		case r := <-b.in:
			pending = append(pending, r)
			if len(pending) >= b.batchSize {
				pending = b.flush(ctx, pending)
			}
		case <-ticker.C:
			pending = b.flush(ctx, pending)
		case <-ctx.Done():
			pending = b.drain(pending)
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			b.flush(flushCtx, pending)
			cancel()
			return nil
		}
	}
}

// drain appends every record already queued.
func (b *SearchBuffer) drain(pending []SearchRecord) []SearchRecord {
	for {
		select {
		case r := <-b.in:
			pending = append(pending, r)
		default:
			return pending
		}
	}
}

func (b *SearchBuffer) flush(ctx context.Context, pending []SearchRecord) []SearchRecord {
	if len(pending) == 0 {
		return pending
	}
	if err := b.w.InsertSearches(ctx, pending); err != nil {
		b.logger.Warn("failed to write search records", zap.Int("count", len(pending)), zap.Error(err))
		b.mu.Lock()
		b.dropped += len(pending)
		b.mu.Unlock()
	} else {
		b.mu.Lock()
		b.written += len(pending)
		b.mu.Unlock()
	}
	return pending[:0]
}

// Counts returns how many records were written and dropped so far.
func (b *SearchBuffer) Counts() (written, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written, b.dropped
}
