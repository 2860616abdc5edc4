package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/domain/repository"
	mid "FeatureMill/internal/middleware"
	internalrepo "FeatureMill/internal/repository"
	"FeatureMill/internal/schema"
	"FeatureMill/internal/service/feed"
	"FeatureMill/internal/services/indicators"
	"FeatureMill/internal/services/model"
	"FeatureMill/internal/usecase"
	"FeatureMill/pkg/cache"
	pkgch "FeatureMill/pkg/clickhouse"
	"FeatureMill/pkg/config"
	xhttp "FeatureMill/pkg/http"
	pkgkafka "FeatureMill/pkg/kafka"
	applogger "FeatureMill/pkg/logger"
	"FeatureMill/pkg/metrics"
	"FeatureMill/pkg/queue"
	"FeatureMill/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t := cfg.ClickHouse.Tables
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS featuremill",
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, volume Float64, tick_size Float64, change Float64, change_percent Float64, open_interest Float64) ENGINE=MergeTree ORDER BY (symbol, ts)", t.Bars),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime, symbol String, bid_prices Array(Float64), bid_qtys Array(Float64), ask_prices Array(Float64), ask_qtys Array(Float64), last_traded_price Float64, last_traded_qty Float64, total_buy_qty Float64, total_sell_qty Float64) ENGINE=MergeTree ORDER BY (symbol, ts)", t.Snapshots),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime, symbol String, features Map(String, Float64)) ENGINE=MergeTree ORDER BY (symbol, ts)", t.Features),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime, indicator_set String, model_params String, state String, metric Float64, model_ref String, cause String) ENGINE=MergeTree ORDER BY (ts, indicator_set)", t.Results),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStorage creates ClickHouse storage repository.
func ProvideStorage(chClient *pkgch.Client, cfg *config.Config) *internalrepo.ClickHouseStorage {
	t := cfg.ClickHouse.Tables
	return internalrepo.NewClickHouseStorage(chClient.DB(), t.Bars, t.Snapshots, t.Features, t.Results)
}

// ProvidePublisher creates Kafka publisher repository.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.BarTopic, cfg.Kafka.ResultTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
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

// ProvideKafkaBarsHandler registers the handler for the bars topic.
func ProvideKafkaBarsHandler(store *internalrepo.ClickHouseStorage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarTopic, store, metrics)
}

// ProvideFeedStream creates the exchange WebSocket stream.
func ProvideFeedStream(cfg *config.Config) repository.MarketStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideBarProcessor creates the bar processor use case.
func ProvideBarProcessor(
	pub repository.Publisher,
	store *internalrepo.ClickHouseStorage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideBarCollector creates the bar collector use case.
func ProvideBarCollector(
	stream repository.MarketStream,
	processor *usecase.BarProcessor,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.BarCollector {
	// Build middleware pipeline between WebSocket and the ingestion backend
	pipe := mid.NewRealtimePipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	var opts []usecase.CollectorOption
	if cfg.Feed.RestURL != "" && cfg.Feed.BackfillWindow > 0 {
		backfill := feed.NewBackfill(xhttp.NewClient(), cfg.Feed.RestURL, cfg.Feed.APIKey)
		opts = append(opts, usecase.WithBackfill(backfill, cfg.Feed.Symbols, cfg.Feed.Resolution, cfg.Feed.BackfillWindow))
	}
	return usecase.NewBarCollector(stream, processor, metrics, pipe, opts...)
}

// ProvideSchemaRegistry loads the column registry. A malformed table is
// fatal here, before any computation runs.
func ProvideSchemaRegistry(cfg *config.Config) (*schema.Registry, error) {
	return schema.Load(cfg.Schema.Path)
}

// ProvideIndicatorConfig assembles the parameter-independent engine settings.
func ProvideIndicatorConfig(cfg *config.Config) (indicators.Config, error) {
	interval := cfg.Indicators.IntervalMinutes
	if interval <= 0 {
		interval = 5
	}
	opsHours := cfg.Indicators.OpsHoursDaily
	if opsHours <= 0 {
		opsHours = 8
	}
	opsDays := cfg.Indicators.OpsDaysWeekly
	if opsDays <= 0 {
		opsDays = 5
	}
	loc := time.UTC
	if cfg.Indicators.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Indicators.Timezone)
		if err != nil {
			return indicators.Config{}, fmt.Errorf("indicators timezone: %w", err)
		}
	}
	volumeWindows := cfg.Indicators.VolumeWindows
	if len(volumeWindows) == 0 {
		volumeWindows = []int{3, 5}
	}
	return indicators.Config{
		HorizonWindows: indicators.HorizonWindows(interval, opsHours, opsDays),
		VolumeWindows:  volumeWindows,
		Location:       loc,
	}, nil
}

// ProvideAssembler creates the feature assembler.
func ProvideAssembler(
	reg *schema.Registry,
	store *internalrepo.ClickHouseStorage,
	icfg indicators.Config,
	metrics repository.Metrics,
	log *applogger.Logger,
) *usecase.Assembler {
	return usecase.NewAssembler(reg, store, log,
		usecase.WithIndicatorConfig(icfg),
		usecase.WithAssemblerMetrics(metrics),
	)
}

// ProvideFeatureCache creates the single-flight feature table cache.
func ProvideFeatureCache(assembler *usecase.Assembler, metrics repository.Metrics) *usecase.FeatureCache {
	return usecase.NewFeatureCache(assembler, metrics)
}

// ProvideTrainer selects the local forest or the remote training service.
func ProvideTrainer(cfg *config.Config) model.Trainer {
	if cfg.Sweep.Trainer == "remote" && cfg.Sweep.RemoteURL != "" {
		return model.NewRemoteTrainer(xhttp.NewClient(xhttp.WithTimeout(5*time.Minute)), cfg.Sweep.RemoteURL)
	}
	opts := []model.LocalTrainerOption{}
	if cfg.Sweep.Seed != 0 {
		opts = append(opts, model.WithSeed(cfg.Sweep.Seed))
	}
	if cfg.Sweep.SplitRatio > 0 && cfg.Sweep.SplitRatio < 1 {
		opts = append(opts, model.WithSplitRatio(cfg.Sweep.SplitRatio))
	}
	return model.NewLocalTrainer(opts...)
}

// ProvideIndicatorSets converts the declared parameter sets.
func ProvideIndicatorSets(cfg *config.Config) []models.IndicatorParameterSet {
	sets := make([]models.IndicatorParameterSet, 0, len(cfg.Sweep.IndicatorSets))
	for _, sc := range cfg.Sweep.IndicatorSets {
		set := models.IndicatorParameterSet{Name: sc.Name}
		for i := 0; i < models.VariantCount && i < len(sc.Variants); i++ {
			v := sc.Variants[i]
			set.Variants[i] = models.IndicatorParams{
				BollingerPeriod:      v.BollingerPeriod,
				RSIPeriod:            v.RSIPeriod,
				MACDFast:             v.MACDFast,
				MACDSlow:             v.MACDSlow,
				MACDSignal:           v.MACDSignal,
				StochasticK:          v.StochasticK,
				StochasticD:          v.StochasticD,
				ADXPeriod:            v.ADXPeriod,
				EMAShort:             v.EMAShort,
				EMALong:              v.EMALong,
				ATRPeriod:            v.ATRPeriod,
				CCIPeriod:            v.CCIPeriod,
				IchimokuConversion:   v.IchimokuConversion,
				IchimokuBase:         v.IchimokuBase,
				IchimokuSpanB:        v.IchimokuSpanB,
				IchimokuDisplacement: v.IchimokuDisplacement,
				FibonacciWindow:      v.FibonacciWindow,
			}
		}
		sets = append(sets, set)
	}
	return sets
}

// ProvideModelGrid converts the declared model grid.
func ProvideModelGrid(cfg *config.Config) usecase.ModelGrid {
	g := cfg.Sweep.ModelGrid
	return usecase.ModelGrid{
		NEstimators:     g.NEstimators,
		MaxDepth:        g.MaxDepth,
		MinSamplesSplit: g.MinSamplesSplit,
		MinSamplesLeaf:  g.MinSamplesLeaf,
		NFeatures:       g.NFeatures,
	}
}

// ProvideSweep creates the grid sweep driver.
func ProvideSweep(
	reg *schema.Registry,
	cache *usecase.FeatureCache,
	trainer model.Trainer,
	metrics repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Sweep {
	opts := []usecase.SweepOption{usecase.WithSweepMetrics(metrics)}
	if cfg.Sweep.Workers > 0 {
		opts = append(opts, usecase.WithWorkers(cfg.Sweep.Workers))
	}
	if cfg.Sweep.Deadline > 0 {
		opts = append(opts, usecase.WithDeadline(cfg.Sweep.Deadline))
	}
	return usecase.NewSweep(reg, cache, trainer, log, opts...)
}

// ProvideCache creates the shared cache service: Redis when enabled,
// in-process memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("featuremill"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(c), nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, found := strings.Cut(addr, ":")
	if !found {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideSweepQueue creates the Redis-backed job queue for sweep runs.
// Without Redis the service falls back to inline execution.
func ProvideSweepQueue(cfg *config.Config, log *applogger.Logger, c cache.Service) *queue.RedisQueue {
	rc, ok := c.(*cache.RedisCache)
	if !ok {
		return nil
	}
	return queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    1,
		QueueSize:  64,
		RetryLimit: 1,
		RetryDelay: 5 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix("featuremill:queue"))
}

// ProvideSweepService wires sweep submission, execution and status tracking.
func ProvideSweepService(
	sweep *usecase.Sweep,
	sets []models.IndicatorParameterSet,
	grid usecase.ModelGrid,
	q *queue.RedisQueue,
	c cache.Service,
	store *internalrepo.ClickHouseStorage,
	pub repository.Publisher,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.SweepService {
	horizon := cfg.Sweep.HorizonBars
	if horizon <= 0 {
		horizon = 8
	}
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	svc := usecase.NewSweepService(sweep, sets, grid, horizon, qs, c, store, pub, log)
	if q != nil {
		q.RegisterJob(usecase.NewSweepJob(svc))
	}
	return svc
}

// ProvideFeatureStore creates the read side for the query API.
func ProvideFeatureStore(chClient *pkgch.Client, log *applogger.Logger) *internalrepo.CHFeatureStore {
	store := internalrepo.NewCHFeatureStore(chClient)
	store.SetLogger(log)
	return store
}

// logPublisher adapts the Kafka producer to the log collector sink.
type logPublisher struct {
	producer *pkgkafka.Producer
}

func (p *logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	producer *pkgkafka.Producer,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	reg *schema.Registry,
	featureStore *internalrepo.CHFeatureStore,
	sweeps *usecase.SweepService,
	jobQueue *queue.RedisQueue,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "featuremill.logs",
			Publisher:      &logPublisher{producer: producer},
		})
	}
	app := server.New(cfg, log, collector, consumer, kh, chClient, reg, featureStore, sweeps, jobQueue)
	if collector != nil {
		app.BarProc = collector.Processor()
	}
	return app
}
