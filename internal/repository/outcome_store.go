package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"BreakCheck/internal/domain/models"
	pkgkafka "BreakCheck/pkg/kafka"
)

// CHOutcomeStore persists simulated trade outcomes to ClickHouse for audit
// and later display. Outcomes are derived data; the table can always be
// rebuilt from bars, so inserts favor throughput over read-your-writes.
type CHOutcomeStore struct {
	db    *sql.DB
	table string
}

// NewCHOutcomeStore creates the ClickHouse outcome store.
func NewCHOutcomeStore(db *sql.DB, table string) *CHOutcomeStore {
	if table == "" {
		table = "breakcheck.trade_outcomes"
	}
	return &CHOutcomeStore{db: db, table: table}
}

const (
	outcomeColumns     = "rule_id, trade_date, direction, entry, stop, target, risk_pts, outcome_pts, resolution, realized_r, max_adverse, max_favorable"
	outcomePlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
)

func outcomeRowArgs(ruleID string, o models.TradeOutcome) []interface{} {
	return []interface{}{
		ruleID,
		o.Date,
		string(o.Direction),
		o.EntryPrice,
		o.StopPrice,
		o.TargetPrice,
		o.RiskPoints,
		o.OutcomePoints,
		string(o.Resolution),
		o.RealizedR,
		o.MaxAdverse,
		o.MaxFavorable,
	}
}

// StoreOutcomes batch-inserts one rule's outcome sequence. Chunked multi-row
// VALUES keeps round-trips bounded on long histories.
func (s *CHOutcomeStore) StoreOutcomes(ctx context.Context, ruleID string, outcomes []models.TradeOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(outcomes); start += chunkSize {
		end := start + chunkSize
		if end > len(outcomes) {
			end = len(outcomes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, o := range outcomes[start:end] {
			values = append(values, outcomePlaceholder)
			args = append(args, outcomeRowArgs(ruleID, o)...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			s.table, outcomeColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store outcomes: %w", err)
		}
	}
	return nil
}

func (s *CHOutcomeStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

// KafkaVerdictPublisher announces finished validation runs on the verdicts
// topic, keyed by rule so replays stay ordered per rule.
type KafkaVerdictPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaVerdictPublisher creates the Kafka verdict publisher.
func NewKafkaVerdictPublisher(producer *pkgkafka.Producer, topic string) *KafkaVerdictPublisher {
	return &KafkaVerdictPublisher{producer: producer, topic: topic}
}

func (p *KafkaVerdictPublisher) Publish(ctx context.Context, ev models.VerdictEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.RuleID), ev)
}

func (p *KafkaVerdictPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
