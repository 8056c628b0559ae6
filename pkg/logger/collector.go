package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Publisher ships a flushed batch of aggregated entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls dedup aggregation of warn/error logs.
type CollectionConfig struct {
	// TimeInterval is the periodic flush cadence.
	TimeInterval time.Duration
	// CountThreshold triggers an early flush once this many distinct
	// entries are buffered.
	CountThreshold int
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry is one deduplicated log line. Identical level,
// message, and caller collapse into a single entry with a count.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector buffers warn/error logs and flushes deduplicated batches
// to a Publisher, either on a timer or when the buffer fills up.
type LogCollector struct {
	cfg    *CollectionConfig
	mu     sync.Mutex
	buf    map[string]*AggregatedLogEntry
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	ctx, cancel := context.WithCancel(context.Background())
	c := &LogCollector{
		cfg:    cfg,
		buf:    make(map[string]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// AddLog records one occurrence. Safe for concurrent use.
func (c *LogCollector) AddLog(level, msg string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, msg, caller)

	c.mu.Lock()
	if e, ok := c.buf[key]; ok {
		e.Count++
		e.LastSeen = now
		c.mu.Unlock()
		return
	}
	c.buf[key] = &AggregatedLogEntry{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	full := len(c.buf) >= c.cfg.CountThreshold
	c.mu.Unlock()

	if full {
		c.flush()
	}
}

// Close stops the flush loop and drains whatever is still buffered.
func (c *LogCollector) Close() {
	c.cancel()
	c.wg.Wait()
	c.flush()
}

func (c *LogCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.ctx.Done():
			return
		}
	}
}

// flush swaps the buffer out under the lock and publishes it off the
// hot path. Publish failures are reported to stderr only; the batch is
// dropped rather than retried, losing an aggregate is cheaper than
// wedging every Warn/Error call behind a dead broker.
func (c *LogCollector) flush() {
	c.mu.Lock()
	if len(c.buf) == 0 {
		c.mu.Unlock()
		return
	}
	batch := make([]AggregatedLogEntry, 0, len(c.buf))
	for _, e := range c.buf {
		batch = append(batch, *e)
	}
	c.buf = make(map[string]*AggregatedLogEntry)
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
			fmt.Printf("log collector: publish %d entries to %s failed: %v\n", len(batch), c.cfg.Topic, err)
		}
	}()
}

func entryKey(level, msg, caller string) string {
	sum := sha256.Sum256([]byte(level + "|" + msg + "|" + caller))
	return hex.EncodeToString(sum[:8])
}
