package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Engine struct {
		// Workers bounds the day-simulation pool. 0 selects GOMAXPROCS.
		Workers int `yaml:"workers"`
		// MinRangeBars is the minimum bar count inside an opening-range
		// window for the day to be tradable.
		MinRangeBars         int     `yaml:"min_range_bars"`
		PromotionThresholdR  float64 `yaml:"promotion_threshold_r"`
		WalkForwardRatio     float64 `yaml:"walk_forward_ratio"`
		WalkForwardTolerance float64 `yaml:"walk_forward_tolerance"`
		WalkForwardFloor     float64 `yaml:"walk_forward_floor"`
		ControlResamples     int     `yaml:"control_resamples"`
		Alpha                float64 `yaml:"alpha"`
		MinSampleSize        int     `yaml:"min_sample_size"`
		DrawdownFloorR       float64 `yaml:"drawdown_floor_r"`
	} `yaml:"engine"`
	// Instruments is the validated contract registry. Rules referencing a
	// symbol outside this list are rejected, never silently defaulted.
	Instruments []Instrument `yaml:"instruments"`
	Kafka       struct {
		Brokers         []string `yaml:"brokers"`
		CandidatesTopic string   `yaml:"candidates_topic"`
		VerdictsTopic   string   `yaml:"verdicts_topic"`
		// LogsTopic receives deduplicated error-log aggregates. Empty
		// disables log collection.
		LogsTopic    string `yaml:"logs_topic"`
		RequiredAcks int    `yaml:"required_acks"`
		Compression  string `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		BarsTable        string        `yaml:"bars_table"`
		OutcomesTable    string        `yaml:"outcomes_table"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		HintTTL  time.Duration `yaml:"hint_ttl"`
	} `yaml:"redis"`
}

// Instrument mirrors the cost model's contract registry entry.
type Instrument struct {
	Symbol            string  `yaml:"symbol"`
	PointValue        float64 `yaml:"point_value"`
	TickSize          float64 `yaml:"tick_size"`
	RoundTripFriction float64 `yaml:"round_trip_friction"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty")
	}
	for i, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instruments[%d].symbol is required", i)
		}
		if inst.PointValue <= 0 {
			return fmt.Errorf("instruments[%d].point_value must be > 0", i)
		}
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if r := c.Engine.WalkForwardRatio; r != 0 && (r <= 0 || r >= 1) {
		return fmt.Errorf("engine.walk_forward_ratio must be in (0,1), got %v", r)
	}
	return nil
}
