package di

import (
	"context"
	"fmt"
	"time"

	"AstroOverlap/internal/domain/models"
	"AstroOverlap/internal/domain/repository"
	"AstroOverlap/internal/handler/api"
	internalrepo "AstroOverlap/internal/repository"
	icache "AstroOverlap/internal/service/cache"
	"AstroOverlap/internal/service/ephemeris"
	"AstroOverlap/internal/service/ratelimit"
	"AstroOverlap/internal/services/remote"
	"AstroOverlap/internal/services/transit"
	"AstroOverlap/internal/usecase"
	pkgch "AstroOverlap/pkg/clickhouse"
	"AstroOverlap/pkg/config"
	xhttp "AstroOverlap/pkg/http"
	pkgkafka "AstroOverlap/pkg/kafka"
	applogger "AstroOverlap/pkg/logger"
	"AstroOverlap/pkg/metrics"
	"AstroOverlap/pkg/server"
)

const (
	ttlCacheEntries = 4096
	healthTimeout   = 2 * time.Second
)

// ProvideLogger creates the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideAstroConfig resolves the sidereal mode and civil zone.
func ProvideAstroConfig(cfg *config.Config) (*models.AstroConfig, error) {
	astro, err := models.NewAstroConfig(cfg.Astro.SiderealMode, cfg.Astro.CivilZone)
	if err != nil {
		return nil, fmt.Errorf("astro config: %w", err)
	}
	return astro, nil
}

// ProvideClickHouseClient returns nil unless the ephemeris source is clickhouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Ephemeris.Source != config.SourceClickHouse {
		return nil, nil
	}
	return NewClickHouseClient(cfg)
}

// NewClickHouseClient connects to ClickHouse and prepares the ephemeris table.
func NewClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, fmt.Errorf("clickhouse client: clickhouse.host is required")
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database},
		internalrepo.EphemerisSchema(cfg.Ephemeris.Table)...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideEphemerisStore wraps the ClickHouse client, or returns nil without one.
func ProvideEphemerisStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.EphemerisStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseEphemeris(ch.DB(), cfg.Ephemeris.Table, l)
}

// ProvidePositionProvider selects the ephemeris backend.
func ProvidePositionProvider(cfg *config.Config, store repository.EphemerisStore, l *applogger.Logger) (repository.PositionProvider, error) {
	switch cfg.Ephemeris.Source {
	case config.SourceAnalytic:
		return ephemeris.NewAnalytic(), nil
	case config.SourceClickHouse:
		if store == nil {
			return nil, fmt.Errorf("ephemeris: clickhouse store not configured")
		}
		return ephemeris.NewSeriesProvider("clickhouse", store,
			ephemeris.WithChunk(cfg.Ephemeris.Chunk),
			ephemeris.WithMargin(2*cfg.Ephemeris.SampleInterval),
			ephemeris.WithSeriesLogger(l),
		), nil
	case config.SourceRemote:
		return remote.NewProvider(
			cfg.Ephemeris.RemoteURL,
			cfg.Ephemeris.Timeout,
			cfg.Ephemeris.RetryAttempts,
			cfg.Ephemeris.SampleInterval,
			cfg.Ephemeris.Chunk,
			l,
		), nil
	default:
		return nil, fmt.Errorf("ephemeris: unknown source %q", cfg.Ephemeris.Source)
	}
}

// ProvideOverlapEngine builds the search engine from the astro section.
func ProvideOverlapEngine(
	provider repository.PositionProvider,
	astro *models.AstroConfig,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.OverlapEngine {
	policy := transit.VelocityPolicy{
		ToleranceDeg: cfg.Astro.AngularToleranceDeg,
		MinStep:      cfg.Astro.MinStepMinutes,
		MaxStep:      cfg.Astro.MaxStepMinutes,
	}
	return usecase.NewOverlapEngine(provider, astro,
		usecase.WithPolicy(policy),
		usecase.WithFinderOptions(
			transit.WithMaxSteps(cfg.Astro.MaxStepsPerSearch),
			transit.WithRefinement(cfg.Astro.RefineTo),
		),
		usecase.WithParallel(cfg.Astro.Parallel),
		usecase.WithDefaultPadding(cfg.Astro.PaddingDays),
		usecase.WithEngineMetrics(m),
		usecase.WithEngineLogger(l),
	)
}

// ProvideCache returns Redis when configured, an in-process TTL cache otherwise,
// or nil when caching is off.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:        cfg.Cache.Redis.Addr,
			Password:    cfg.Cache.Redis.Password,
			DB:          cfg.Cache.Redis.DB,
			DialTimeout: 2 * time.Second,
		})
	}
	return icache.NewTTLCache(ttlCacheEntries)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideOverlapHandler creates the HTTP and WebSocket overlap endpoints.
func ProvideOverlapHandler(
	engine *usecase.OverlapEngine,
	astro *models.AstroConfig,
	cache icache.BytesCache,
	rl *ratelimit.Limiter,
	cfg *config.Config,
	l *applogger.Logger,
) *api.OverlapHandler {
	h := api.NewOverlapHandler(engine, astro, l)
	if cache != nil {
		h.SetCache(cache, cfg.Cache.TTL)
	}
	h.SetRateLimiter(rl)
	return h
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ProvideHealthHandler checks every backing service that is configured.
func ProvideHealthHandler(store repository.EphemerisStore, cache icache.BytesCache) *api.HealthHandler {
	var checks []api.HealthCheck
	if store != nil {
		checks = append(checks, api.HealthCheck{Name: "clickhouse", Check: store.Health})
	}
	if p, ok := cache.(pinger); ok {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: p.Ping})
	}
	return api.NewHealthHandler(healthTimeout, checks...)
}

func ProvideHTTPHandler(overlap *api.OverlapHandler, health *api.HealthHandler) xhttp.Handler {
	return xhttp.Handlers{overlap, health}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvideResultPublisher publishes overlap answers to the result topic.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.RequestIDHook{},
		pkgkafka.LoggingHook{Logger: l},
	))
	return consumer, nil
}

// ProvideKafkaOverlapHandler answers overlap requests from the request topic.
func ProvideKafkaOverlapHandler(
	engine *usecase.OverlapEngine,
	pub repository.ResultPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.KafkaOverlapHandler {
	if pub == nil {
		return nil
	}
	return usecase.NewKafkaOverlapHandler(cfg.Kafka.RequestTopic, engine, pub, m, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOverlapHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	cache icache.BytesCache,
	rl *ratelimit.Limiter,
) *server.App {
	var mh pkgkafka.MessageHandler
	if kh != nil {
		mh = kh
	}
	app := server.New(cfg, l, handler, consumer, mh)
	app.Background(func(ctx context.Context) { rl.SweepEvery(ctx, time.Minute) })

	if chClient != nil {
		app.OnShutdown("clickhouse", chClient)
	}
	if rc, ok := cache.(*icache.RedisCache); ok {
		app.OnShutdown("redis", rc)
	}
	if producer != nil {
		app.OnShutdown("kafka producer", producer)
		if cfg.Log.Topic != "" {
			l.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   30 * time.Second,
				CountThreshold: 100,
				Topic:          cfg.Log.Topic,
				Publisher:      producer,
			})
		}
	}
	return app
}
