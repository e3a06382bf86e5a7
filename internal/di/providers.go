package di

import (
	"context"
	"fmt"
	"time"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/domain/repository"
	"FinWalk/internal/domain/service"
	"FinWalk/internal/handler/api"
	internalrepo "FinWalk/internal/repository"
	icache "FinWalk/internal/service/cache"
	"FinWalk/internal/service/ratelimit"
	"FinWalk/internal/services/simulator"
	"FinWalk/internal/services/stats"
	"FinWalk/internal/services/walkforward"
	"FinWalk/internal/usecase"
	pkgch "FinWalk/pkg/clickhouse"
	"FinWalk/pkg/config"
	xhttp "FinWalk/pkg/http"
	pkgkafka "FinWalk/pkg/kafka"
	applogger "FinWalk/pkg/logger"
	"FinWalk/pkg/metrics"
	"FinWalk/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		TimeFormat: cfg.Logger.TimeFormat,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NopMetrics{}
	}
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithMaxResultRows(cfg.ClickHouse.MaxRows),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		if err := client.InitSchema(ctx, pkgch.CandleSchema(cfg.ClickHouse.Database)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return client, nil
}

// ProvidePriceStore wraps the ClickHouse store in a circuit breaker.
// It returns nil when ClickHouse is disabled.
func ProvidePriceStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.PriceStore {
	if ch == nil {
		return nil
	}
	store := internalrepo.NewCHPriceStore(ch)
	store.SetLogger(l)
	b := cfg.ClickHouse.Breaker
	return internalrepo.NewBreakerPriceStore(store, internalrepo.BreakerConfig{
		Name:             "clickhouse",
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
	}, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreateTopics),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*icache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

// ProvideScoreCache picks Redis when available and an in-process cache otherwise.
// It returns nil when score caching is disabled.
func ProvideScoreCache(cfg *config.Config, rc *icache.RedisCache) icache.BytesCache {
	if !cfg.Simulator.Cache {
		return nil
	}
	if rc != nil {
		return rc
	}
	return icache.NewTTLCache(100000)
}

// ProvideSignalSimulator creates the crossover simulator, cached when a
// score cache is configured.
func ProvideSignalSimulator(cfg *config.Config, sc icache.BytesCache, l *applogger.Logger, m repository.Metrics) service.SignalSimulator {
	base := simulator.NewCrossover(simulator.WithFees(cfg.Simulator.Fees))
	if sc == nil {
		return base
	}
	ttl := cfg.Simulator.CacheTTL
	if _, ok := sc.(*icache.RedisCache); ok && cfg.Redis.TTL > 0 {
		ttl = cfg.Redis.TTL
	}
	return simulator.NewCached(base, sc, ttl,
		simulator.WithNamespace(fmt.Sprintf("crossover:fees=%g", cfg.Simulator.Fees)),
		simulator.WithCacheLogger(l),
		simulator.WithCacheMetrics(m),
	)
}

// ProvideHoldingSimulator returns the buy-and-hold baseline, or nil when disabled.
func ProvideHoldingSimulator(cfg *config.Config) service.HoldingSimulator {
	if !cfg.WalkForward.Holding {
		return nil
	}
	return simulator.NewBuyAndHold()
}

// ProvideTwoSampleTest selects the local or remote t-test.
func ProvideTwoSampleTest(cfg *config.Config) (service.TwoSampleTest, error) {
	method := stats.Method(cfg.Stats.Method)
	if cfg.Stats.Provider == "remote" {
		return stats.NewRemoteTTest(cfg.Stats.ServiceURL, method, cfg.Stats.Timeout, cfg.Stats.Retries)
	}
	return stats.NewTTest(method)
}

// ProvideEngine creates the walk-forward engine.
func ProvideEngine(
	cfg *config.Config,
	sim service.SignalSimulator,
	hold service.HoldingSimulator,
	test service.TwoSampleTest,
	l *applogger.Logger,
	m repository.Metrics,
) *walkforward.Engine {
	opts := []walkforward.Option{
		walkforward.WithWorkers(cfg.WalkForward.Workers),
		walkforward.WithMaxEvaluations(cfg.WalkForward.MaxEvaluations),
		walkforward.WithSkipInvalidSplits(cfg.WalkForward.SkipInvalidSplits),
		walkforward.WithLogger(l),
		walkforward.WithMetrics(m),
	}
	if hold != nil {
		opts = append(opts, walkforward.WithHoldingSimulator(hold))
	}
	return walkforward.NewEngine(sim, test, opts...)
}

// ProvideRunParams builds the default run parameters from configuration.
func ProvideRunParams(cfg *config.Config) walkforward.RunParams {
	wf := cfg.WalkForward
	return walkforward.RunParams{
		WindowLen:      wf.WindowLen,
		OOSLen:         wf.OOSLen,
		Candidates:     append([]int(nil), wf.Candidates...),
		Count:          wf.Splits,
		Stride:         wf.Stride,
		Placement:      models.Placement(wf.Placement),
		Direction:      models.Direction(wf.Direction),
		Frequency:      models.Frequency(wf.Frequency),
		HigherIsBetter: wf.HigherIsBetter,
		Threshold:      wf.Threshold,
		Alternative:    models.Alternative(wf.Alternative),
	}
}

// ProvideSeriesUseCase creates the series loader.
func ProvideSeriesUseCase(store repository.PriceStore, cfg *config.Config) *usecase.SeriesUseCase {
	return usecase.NewSeriesUseCase(store, cfg.ClickHouse.MaxRows)
}

// ProvideWalkForwardUseCase creates the walk-forward use case and attaches
// the Kafka run publisher when a producer is configured.
func ProvideWalkForwardUseCase(
	series *usecase.SeriesUseCase,
	engine *walkforward.Engine,
	params walkforward.RunParams,
	cfg *config.Config,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *usecase.WalkForwardUseCase {
	uc := usecase.NewWalkForwardUseCase(series, engine, params, cfg.WalkForward.MaxEvaluations)
	uc.SetLogger(l)
	if producer != nil {
		uc.SetPublisher(internalrepo.NewKafkaRunPublisher(producer, cfg.Kafka.RunsTopic))
	}
	return uc
}

// ProvideRateLimiter creates the per-client limiter for run requests.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHTTPHandler creates the echo handler with dependency health checks.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.WalkForwardUseCase,
	rl *ratelimit.Limiter,
	ch *pkgch.Client,
	rc *icache.RedisCache,
) xhttp.Handler {
	h := api.NewWalkForwardEchoHandler(l, uc, rl, cfg.Server.RunTimeout)
	if ch != nil {
		h.AddHealthCheck("clickhouse", ch.Health)
	}
	if rc != nil {
		h.AddHealthCheck("redis", rc.Ping)
	}
	return h
}

// ProvideApp creates the application and forwards error logs to Kafka when
// a producer is configured.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.WalkForwardUseCase,
	handler xhttp.Handler,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	rc *icache.RedisCache,
) *server.App {
	if producer != nil {
		lc := cfg.Kafka.LogCollector
		l.AddCollector(&applogger.CollectionConfig{
			Service:        "finwalk",
			TimeInterval:   lc.Interval,
			CountThreshold: lc.CountThreshold,
			Topic:          lc.Topic,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}
	return server.New(cfg, l, uc, handler, ch, producer, rc)
}
