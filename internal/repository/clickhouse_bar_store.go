package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BreakCheck/internal/domain/models"
	pkgch "BreakCheck/pkg/clickhouse"
	applogger "BreakCheck/pkg/logger"
)

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, table string) *CHBarStore {
	if table == "" {
		table = "breakcheck.bars_1m"
	}
	return &CHBarStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// GetBars returns minute bars for one instrument, ascending by timestamp.
// The engine requires ascending order; the query enforces it rather than
// trusting insert order.
func (s *CHBarStore) GetBars(ctx context.Context, instrument string, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT ts, open, high, low, close, vol
        FROM %s
        WHERE instrument = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, instrument, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars query error",
				applogger.String("table", s.table),
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 4096)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse get_bars scan error",
					applogger.String("table", s.table),
					applogger.String("instrument", instrument),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars rows error",
				applogger.String("table", s.table),
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_bars ok",
			applogger.String("table", s.table),
			applogger.String("instrument", instrument),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
