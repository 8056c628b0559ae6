package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
environment: test
server:
  port: 9090
  read_timeout: 5s
  write_timeout: 10s
  shutdown_timeout: 15s
engine:
  min_range_bars: 5
  promotion_threshold_r: 0.15
  walk_forward_ratio: 0.7
  control_resamples: 200
instruments:
  - symbol: MES
    point_value: 5.0
    tick_size: 0.25
    round_trip_friction: 3.5
kafka:
  brokers: ["kafka-1:9092"]
  candidates_topic: breakcheck.rule-candidates
  verdicts_topic: breakcheck.verdicts
clickhouse:
  host: ch-1
  port: 9000
  database: breakcheck
redis:
  enabled: true
  addr: redis-1:6379
  hint_ttl: 30m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "test" {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Engine.WalkForwardRatio != 0.7 || cfg.Engine.ControlResamples != 200 {
		t.Fatalf("engine = %+v", cfg.Engine)
	}
	if len(cfg.Instruments) != 1 || cfg.Instruments[0].PointValue != 5.0 {
		t.Fatalf("instruments = %+v", cfg.Instruments)
	}
	if cfg.Redis.HintTTL != 30*time.Minute {
		t.Fatalf("hint_ttl = %v", cfg.Redis.HintTTL)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("CLICKHOUSE_HOST", "ch-override")
	t.Setenv("REDIS_ADDR", "redis-override:6379")

	cfg, err := LoadWithEnv(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.ClickHouse.Host != "ch-override" {
		t.Fatalf("clickhouse host = %q", cfg.ClickHouse.Host)
	}
	if cfg.Redis.Addr != "redis-override:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing environment", func(c *Config) { c.Environment = "" }},
		{"no instruments", func(c *Config) { c.Instruments = nil }},
		{"zero point value", func(c *Config) { c.Instruments[0].PointValue = 0 }},
		{"missing clickhouse host", func(c *Config) { c.ClickHouse.Host = "" }},
		{"walk forward ratio out of range", func(c *Config) { c.Engine.WalkForwardRatio = 1.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleYAML))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
