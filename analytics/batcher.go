// Package analytics buffers product events in memory and writes them in batches.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/respiralivre/api/utils"
)

// Event is one product analytics event.
type Event struct {
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Transport delivers a batch. Implementations must be safe for sequential reuse.
type Transport interface {
	Send(ctx context.Context, events []Event) error
}

// Batcher queues events and flushes them on an interval, when a batch fills up,
// or on demand. It is owned by the server lifecycle: Start once, Shutdown once.
type Batcher struct {
	transport Transport
	interval  time.Duration
	batchSize int
	capacity  int

	mu     sync.Mutex
	queue  []Event
	closed bool

	flushMu sync.Mutex
	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

// NewBatcher builds a batcher. The queue holds at most ten batches; the oldest events are dropped beyond that.
func NewBatcher(transport Transport, interval time.Duration, batchSize int) *Batcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Batcher{
		transport: transport,
		interval:  interval,
		batchSize: batchSize,
		capacity:  batchSize * 10,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background flush loop.
func (b *Batcher) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()
	go b.loop()
}

func (b *Batcher) loop() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-b.kick:
		case <-b.stop:
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := b.FlushNow(ctx); err != nil {
			utils.Logger.Warn("analytics flush failed", zap.Error(err))
		}
		cancel()
	}
}

// Track enqueues an event. Events tracked after Shutdown are discarded.
func (b *Batcher) Track(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, e)
	if over := len(b.queue) - b.capacity; over > 0 {
		b.queue = append([]Event(nil), b.queue[over:]...)
		utils.AnalyticsEventsDropped.Add(float64(over))
	}
	full := len(b.queue) >= b.batchSize
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of queued events.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// FlushNow sends everything queued, one batch at a time. A failed batch and
// everything after it go back to the front of the queue.
func (b *Batcher) FlushNow(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	for start := 0; start < len(pending); start += b.batchSize {
		end := start + b.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := b.transport.Send(ctx, pending[start:end]); err != nil {
			b.requeue(pending[start:])
			utils.AnalyticsFlushes.WithLabelValues("error").Inc()
			return err
		}
		utils.AnalyticsFlushes.WithLabelValues("ok").Inc()
	}
	return nil
}

func (b *Batcher) requeue(events []Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	merged := make([]Event, 0, len(events)+len(b.queue))
	merged = append(merged, events...)
	merged = append(merged, b.queue...)
	if over := len(merged) - b.capacity; over > 0 {
		merged = merged[over:]
		utils.AnalyticsEventsDropped.Add(float64(over))
	}
	b.queue = merged
}

// Shutdown stops the loop and performs a final flush.
func (b *Batcher) Shutdown(ctx context.Context) error {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		started := b.started
		b.mu.Unlock()
		close(b.stop)
		if started {
			select {
			case <-b.done:
			case <-ctx.Done():
			}
		}
	})
	return b.FlushNow(ctx)
}
