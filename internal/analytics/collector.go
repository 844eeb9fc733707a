package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
)

// Tracker accepts analytics events without blocking. Collector ships them
// to Kafka; Aggregator records them in-process.
type Tracker interface {
	Track(event Event)
}

// Trackers passes every event to each of its trackers in order.
type Trackers []Tracker

func (ts Trackers) Track(event Event) {
	for _, t := range ts {
		t.Track(event)
	}
}

// Publisher writes event batches; *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Collector buffers events in a channel and publishes them in batches from
// one background goroutine. Track never blocks: when the buffer is full the
// event is dropped and counted.
type Collector struct {
	publisher     Publisher
	eventCh       chan Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan Event, bufferSize),
		batchSize:     min(defaultBatchSize, bufferSize),
		flushInterval: defaultFlushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. When ctx is cancelled the loop publishes
// whatever is buffered and exits.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "batch_size", c.batchSize)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	batch := make([]kafka.Event, 0, c.batchSize)

	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.publish(context.Background(), batch)
				return
			}
			batch = append(batch, toKafka(event))
			if len(batch) >= c.batchSize {
				c.publish(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			c.publish(ctx, batch)
			batch = batch[:0]
		case <-ctx.Done():
			c.drain(batch)
			return
		}
	}
}

// drain publishes the pending batch plus anything still buffered.
func (c *Collector) drain(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.publish(ctx, batch)
				return
			}
			batch = append(batch, toKafka(event))
		default:
			c.publish(ctx, batch)
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
	}
}

func toKafka(event Event) kafka.Event {
	return kafka.Event{Key: string(event.Kind()), Value: event}
}

// Track queues event for publishing. Events tracked after Close are
// dropped.
func (c *Collector) Track(event Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("analytics events dropped (buffer full)", "dropped_total", n)
		}
	}
}

// Dropped returns how many events were discarded.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits until the buffered ones are
// published. Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}
