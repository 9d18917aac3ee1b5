package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/kafka"
)

// Publisher delivers a batch of events. *kafka.Producer and *Aggregator both
// satisfy it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector buffers events and publishes them in batches, when a batch fills
// up or FlushInterval elapses. Track never blocks: events arriving while the
// buffer is full are dropped and counted.
type Collector struct {
	publisher Publisher
	cfg       CollectorConfig
	eventCh   chan kafka.Event
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	dropped   atomic.Int64
	published atomic.Int64
	logger    *slog.Logger
}

func NewCollector(publisher Publisher, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Collector{
		publisher: publisher,
		cfg:       cfg,
		eventCh:   make(chan kafka.Event, cfg.BufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, then publishes whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", c.cfg.BufferSize,
		"batch_size", c.cfg.BatchSize,
		"flush_interval", c.cfg.FlushInterval,
	)
}

func (c *Collector) TrackSearch(event SearchEvent) {
	event.Type = EventSearch
	c.track(string(EventSearch), event)
}

func (c *Collector) TrackIndex(event IndexEvent) {
	event.Type = EventIndexDoc
	c.track(string(EventIndexDoc), event)
}

// Close stops the loop and waits for the final flush.
func (c *Collector) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Published returns how many events were handed to the publisher successfully.
func (c *Collector) Published() int64 {
	return c.published.Load()
}

func (c *Collector) track(key string, value any) {
	select {
	case c.eventCh <- kafka.Event{Key: key, Value: value}:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("analytics buffer full, dropping events", "dropped_total", c.dropped.Load())
		}
	}
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.cfg.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
		} else {
			c.published.Add(int64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, event)
			if len(batch) >= c.cfg.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			c.drain(batch)
			return
		case <-c.stop:
			c.drain(batch)
			return
		}
	}
}

// drain publishes the pending batch plus everything left in the buffer with a
// fresh deadline, since the loop's own context may already be cancelled.
func (c *Collector) drain(batch []kafka.Event) {
	for len(c.eventCh) > 0 {
		batch = append(batch, <-c.eventCh)
	}
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish remaining events", "count", len(batch), "error", err)
		return
	}
	c.published.Add(int64(len(batch)))
}
