package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	events  []kafka.Event
	batches int
	err     error
	block   chan struct{}
}

func (f *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublisher) published() []kafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Event(nil), f.events...)
}

func TestCollectorCloseDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &fakePublisher{}
	c := NewCollector(pub, 1000)
	c.Start(context.Background())

	for i := 0; i < 250; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	c.Track(SelectionEvent{Type: EventSelection, ItemID: "a"})
	c.Close()

	events := pub.published()
	require.Len(t, events, 251)
	assert.Equal(t, "search", events[0].Key)
	assert.Equal(t, "selection", events[250].Key)
	assert.Zero(t, c.Dropped())

	c.Track(SearchEvent{Type: EventSearch})
	assert.EqualValues(t, 1, c.Dropped(), "tracking after close drops")
	c.Close()
}

func TestCollectorContextCancelDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &fakePublisher{}
	c := NewCollector(pub, 100)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	for i := 0; i < 10; i++ {
		c.Track(SelectionEvent{Type: EventSelection, ItemID: "a"})
	}
	cancel()
	c.Close()
	assert.Len(t, pub.published(), 10)
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &fakePublisher{}
	c := NewCollector(pub, 100)
	c.flushInterval = 10 * time.Millisecond
	c.Start(context.Background())
	defer c.Close()

	c.Track(SearchEvent{Type: EventSearch, Query: "a"})
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorTrackNeverBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &fakePublisher{block: make(chan struct{})}
	c := NewCollector(pub, 2)
	c.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			c.Track(SearchEvent{Type: EventSearch})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked")
	}
	assert.Positive(t, c.Dropped())

	close(pub.block)
	c.Close()
}

func TestCollectorPublishErrorsAreLogged(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 10)
	c.Start(context.Background())
	c.Track(SearchEvent{Type: EventSearch})
	c.Close()
	assert.Empty(t, pub.published())
	assert.Equal(t, 1, pub.batches)
}

func TestTrackersFanOut(t *testing.T) {
	agg := NewAggregator()
	pub := &fakePublisher{}
	c := NewCollector(pub, 10)
	c.Start(context.Background())

	Trackers{agg, c}.Track(SelectionEvent{Type: EventSelection, ItemID: "apps:notes", Rank: 0})
	c.Close()

	assert.EqualValues(t, 1, agg.Stats().TotalSelections)
	assert.Len(t, pub.published(), 1)
}
