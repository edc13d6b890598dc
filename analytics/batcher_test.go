package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu      sync.Mutex
	batches [][]Event
	failOn  int
	calls   int
}

func (r *recordingTransport) Send(_ context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failOn > 0 && r.calls == r.failOn {
		return errors.New("insert failed")
	}
	r.batches = append(r.batches, append([]Event(nil), events...))
	return nil
}

func (r *recordingTransport) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		for _, e := range b {
			out = append(out, e.Name)
		}
	}
	return out
}

func TestFlushNowSplitsIntoBatches(t *testing.T) {
	tr := &recordingTransport{}
	b := NewBatcher(tr, time.Hour, 2)
	for i := 0; i < 5; i++ {
		b.Track(Event{Name: fmt.Sprintf("e%d", i)})
	}

	require.NoError(t, b.FlushNow(context.Background()))

	assert.Len(t, tr.batches, 3)
	assert.Equal(t, []string{"e0", "e1", "e2", "e3", "e4"}, tr.names())
	assert.Zero(t, b.Pending())
}

func TestShutdownFlushesPending(t *testing.T) {
	tr := &recordingTransport{}
	b := NewBatcher(tr, time.Hour, 100)
	b.Start()
	b.Track(Event{Name: "checkin_settled"})
	b.Track(Event{Name: "streak_lost"})

	require.NoError(t, b.Shutdown(context.Background()))

	assert.Equal(t, []string{"checkin_settled", "streak_lost"}, tr.names())

	b.Track(Event{Name: "late"})
	assert.Zero(t, b.Pending(), "events after shutdown are discarded")
}

func TestFailedBatchIsRequeued(t *testing.T) {
	tr := &recordingTransport{failOn: 2}
	b := NewBatcher(tr, time.Hour, 1)
	b.Track(Event{Name: "a"})
	b.Track(Event{Name: "b"})
	b.Track(Event{Name: "c"})

	assert.Error(t, b.FlushNow(context.Background()))
	assert.Equal(t, 2, b.Pending())

	require.NoError(t, b.FlushNow(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, tr.names())
}

func TestQueueDropsOldestBeyondCapacity(t *testing.T) {
	tr := &recordingTransport{}
	b := NewBatcher(tr, time.Hour, 1) // capacity 10
	for i := 0; i < 12; i++ {
		b.Track(Event{Name: fmt.Sprintf("e%d", i)})
	}

	assert.Equal(t, 10, b.Pending())
	require.NoError(t, b.FlushNow(context.Background()))
	assert.Equal(t, "e2", tr.names()[0])
}

func TestTrackStampsTime(t *testing.T) {
	tr := &recordingTransport{}
	b := NewBatcher(tr, time.Hour, 10)
	b.Track(Event{Name: "x"})
	require.NoError(t, b.FlushNow(context.Background()))
	assert.False(t, tr.batches[0][0].OccurredAt.IsZero())
}
