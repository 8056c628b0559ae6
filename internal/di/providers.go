package di

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	domrepo "BreakCheck/internal/domain/repository"
	domservice "BreakCheck/internal/domain/service"
	"BreakCheck/internal/handler/api"
	"BreakCheck/internal/handler/ws"
	internalrepo "BreakCheck/internal/repository"
	"BreakCheck/internal/services/classify"
	"BreakCheck/internal/services/cost"
	"BreakCheck/internal/services/simulator"
	"BreakCheck/internal/services/validation"
	"BreakCheck/internal/usecase"
	"BreakCheck/pkg/cache"
	pkgch "BreakCheck/pkg/clickhouse"
	"BreakCheck/pkg/config"
	xhttp "BreakCheck/pkg/http"
	pkgkafka "BreakCheck/pkg/kafka"
	applogger "BreakCheck/pkg/logger"
	"BreakCheck/pkg/metrics"
	"BreakCheck/pkg/queue"
	"BreakCheck/pkg/server"

	"github.com/labstack/echo/v4"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "dev" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS breakcheck",
		`CREATE TABLE IF NOT EXISTS breakcheck.bars_1m (
            instrument String, ts DateTime, open Float64, high Float64,
            low Float64, close Float64, vol Float64
        ) ENGINE=MergeTree ORDER BY (instrument, ts)`,
		`CREATE TABLE IF NOT EXISTS breakcheck.trade_outcomes (
            rule_id String, trade_date DateTime, direction String,
            entry Float64, stop Float64, target Float64,
            risk_pts Float64, outcome_pts Float64, resolution String,
            realized_r Float64, max_adverse Float64, max_favorable Float64
        ) ENGINE=MergeTree ORDER BY (rule_id, trade_date)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideCostModel builds the validated contract registry from config.
func ProvideCostModel(cfg *config.Config) (*cost.Model, error) {
	instruments := make([]cost.Instrument, 0, len(cfg.Instruments))
	for _, i := range cfg.Instruments {
		instruments = append(instruments, cost.Instrument{
			Symbol:            i.Symbol,
			PointValue:        i.PointValue,
			TickSize:          i.TickSize,
			RoundTripFriction: i.RoundTripFriction,
		})
	}
	return cost.NewModel(instruments)
}

// ProvideSimulator creates the day simulator.
func ProvideSimulator(costs *cost.Model, cfg *config.Config) (*simulator.Simulator, error) {
	minBars := cfg.Engine.MinRangeBars
	if minBars == 0 {
		minBars = 5
	}
	return simulator.New(costs, minBars)
}

// ProvideBuilder creates the parallel outcome builder.
func ProvideBuilder(sim *simulator.Simulator, cfg *config.Config) (domservice.OutcomeBuilder, error) {
	return simulator.NewBuilder(sim, cfg.Engine.Workers)
}

// ProvideValidator creates the statistical validator.
func ProvideValidator(costs *cost.Model, cfg *config.Config) (domservice.Validator, error) {
	return validation.New(validation.Config{
		PromotionThresholdR:  cfg.Engine.PromotionThresholdR,
		WalkForwardRatio:     cfg.Engine.WalkForwardRatio,
		WalkForwardTolerance: cfg.Engine.WalkForwardTolerance,
		WalkForwardFloor:     cfg.Engine.WalkForwardFloor,
		ControlResamples:     cfg.Engine.ControlResamples,
		Alpha:                cfg.Engine.Alpha,
		MinRangeBars:         cfg.Engine.MinRangeBars,
	}, costs)
}

// ProvideClassifier creates the verdict classifier.
func ProvideClassifier(cfg *config.Config) domservice.Classifier {
	return classify.New(classify.Thresholds{
		MinSampleSize:  cfg.Engine.MinSampleSize,
		DrawdownFloorR: cfg.Engine.DrawdownFloorR,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the ClickHouse bar store.
func ProvideBarStore(chClient *pkgch.Client, cfg *config.Config, logger *applogger.Logger) domrepo.BarStore {
	s := internalrepo.NewCHBarStore(chClient, cfg.ClickHouse.BarsTable)
	s.SetLogger(logger)
	return s
}

// ProvideOutcomeStore creates the ClickHouse outcome store.
func ProvideOutcomeStore(chClient *pkgch.Client, cfg *config.Config) domrepo.OutcomeStore {
	return internalrepo.NewCHOutcomeStore(chClient.DB(), cfg.ClickHouse.OutcomesTable)
}

// ProvideKafkaProducer creates a Kafka producer for the verdicts topic.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideVerdictPublisher creates the Kafka verdict publisher.
func ProvideVerdictPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.VerdictPublisher {
	return internalrepo.NewKafkaVerdictPublisher(producer, cfg.Kafka.VerdictsTopic)
}

// ProvideKafkaConsumer creates the candidates consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisCache creates the Redis cache when enabled; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	return cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideVerdictCache wraps the Redis cache as a verdict hint cache.
func ProvideVerdictCache(rc *cache.RedisCache, cfg *config.Config) domrepo.VerdictCache {
	if rc == nil {
		return nil
	}
	return internalrepo.NewCachedVerdict(rc, cfg.Redis.HintTTL)
}

// ProvideHub creates the websocket progress hub.
func ProvideHub() *ws.Hub {
	return ws.NewHub()
}

// ProvideProgressHandler creates the websocket upgrade handler.
func ProvideProgressHandler(hub *ws.Hub, logger *applogger.Logger) *ws.ProgressHandler {
	return ws.NewProgressHandler(hub, logger)
}

// ProvideRunner assembles the validation pipeline.
func ProvideRunner(
	bars domrepo.BarStore,
	builder domservice.OutcomeBuilder,
	validator domservice.Validator,
	classifier domservice.Classifier,
	outcomes domrepo.OutcomeStore,
	verdicts domrepo.VerdictPublisher,
	vcache domrepo.VerdictCache,
	hub *ws.Hub,
	m domrepo.Metrics,
	logger *applogger.Logger,
) (*usecase.ValidationRunner, error) {
	opts := []usecase.RunnerOption{
		usecase.WithOutcomeStore(outcomes),
		usecase.WithVerdictPublisher(verdicts),
		usecase.WithProgressSink(hub),
	}
	if vcache != nil {
		opts = append(opts, usecase.WithVerdictCache(vcache))
	}
	return usecase.NewValidationRunner(bars, builder, validator, classifier, m, logger, opts...)
}

// ProvideCandidatesHandler registers the handler for the candidates topic.
func ProvideCandidatesHandler(runner *usecase.ValidationRunner, m domrepo.Metrics, cfg *config.Config, logger *applogger.Logger) *usecase.KafkaCandidatesHandler {
	return usecase.NewKafkaCandidatesHandler(cfg.Kafka.CandidatesTopic, runner, m, logger)
}

// ProvideJobQueue creates the Redis-backed async validation queue. Disabled
// together with Redis.
func ProvideJobQueue(rc *cache.RedisCache, runner *usecase.ValidationRunner, logger *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(
		logger,
		&queue.QueueConfig{Workers: 2, RetryLimit: 3, RetryDelay: 10 * time.Second},
		rc.Client(),
		queue.ModeProducerConsumer,
		queue.WithKeyPrefix("breakcheck:validations"),
	)
	q.RegisterJob(usecase.NewValidationJob(runner, logger))
	return q
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	runner *usecase.ValidationRunner,
	jobs *queue.RedisQueue,
	bars domrepo.BarStore,
	logger *applogger.Logger,
) xhttp.Handler {
	opts := []api.HandlerOption{
		api.WithHealthCheck(func(c echo.Context) error {
			if err := bars.Health(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			}
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		}),
	}
	if jobs != nil {
		opts = append(opts, api.WithJobQueue(jobs))
	}
	return api.NewValidationsEchoHandler(logger, runner, opts...)
}

// kafkaLogPublisher adapts the shared producer to the log collector's
// Publisher interface. Aggregates carry no ordering key.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	hub *ws.Hub,
	wsHandler *ws.ProgressHandler,
	consumer *pkgkafka.Consumer,
	candidates *usecase.KafkaCandidatesHandler,
	jobQueue *queue.RedisQueue,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	verdicts domrepo.VerdictPublisher,
	outcomes domrepo.OutcomeStore,
	rc *cache.RedisCache,
) *server.App {
	if cfg.Kafka.LogsTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}

	app := server.New(cfg, logger, handler, hub, wsHandler, consumer, candidates, jobQueue, chClient)
	app.AddCloser(func() error {
		logger.RemoveCollector()
		return nil
	})
	app.AddCloser(verdicts.Close)
	app.AddCloser(outcomes.Close)
	if rc != nil {
		app.AddCloser(rc.Close)
	}
	return app
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		if addr != "" {
			return addr, 6379
		}
		return "localhost", 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		port = 6379
	}
	return host, port
}
