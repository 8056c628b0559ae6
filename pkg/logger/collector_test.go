package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	logs   [][]AggregatedLogEntry
	done   chan struct{}
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{done: make(chan struct{}, 4)}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if logs, ok := payload.([]AggregatedLogEntry); ok {
		p.logs = append(p.logs, logs)
	}
	p.done <- struct{}{}
	return nil
}

func (p *capturePublisher) wait(t *testing.T) []AggregatedLogEntry {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logs[len(p.logs)-1]
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := newCapturePublisher()
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})
	defer c.Close()

	fields := map[string]interface{}{"rule_id": "r1"}
	c.AddLog("error", "store outcomes failed", fields, "runner.go:120")
	c.AddLog("error", "store outcomes failed", fields, "runner.go:120")
	c.AddLog("error", "verdict publish failed", nil, "runner.go:140")

	logs := pub.wait(t)
	if len(logs) != 2 {
		t.Fatalf("flushed %d entries, want 2", len(logs))
	}
	byMsg := map[string]AggregatedLogEntry{}
	for _, e := range logs {
		byMsg[e.Message] = e
	}
	if byMsg["store outcomes failed"].Count != 2 {
		t.Fatalf("duplicate count = %d, want 2", byMsg["store outcomes failed"].Count)
	}
	if byMsg["verdict publish failed"].Count != 1 {
		t.Fatalf("single count = %d, want 1", byMsg["verdict publish failed"].Count)
	}
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := newCapturePublisher()
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})

	c.AddLog("error", "clickhouse query failed", nil, "store.go:55")
	c.Close()

	logs := pub.wait(t)
	if len(logs) != 1 || logs[0].Message != "clickhouse query failed" {
		t.Fatalf("unexpected final flush: %+v", logs)
	}
}
