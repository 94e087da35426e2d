package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	sharedcache "github.com/radieske/roulette-table-poc/internal/shared/cache"
	"github.com/radieske/roulette-table-poc/internal/shared/config"
	"github.com/radieske/roulette-table-poc/internal/shared/db"
	skafka "github.com/radieske/roulette-table-poc/internal/shared/kafka"
	"github.com/radieske/roulette-table-poc/internal/shared/logger"
	smetrics "github.com/radieske/roulette-table-poc/internal/shared/metrics"
	"github.com/radieske/roulette-table-poc/internal/table-projector/cache"
	"github.com/radieske/roulette-table-poc/internal/table-projector/consumer"
	"github.com/radieske/roulette-table-poc/internal/table-projector/pubsub"
	"github.com/radieske/roulette-table-poc/internal/table-projector/repository"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "table-projector"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inicializa dependências: Postgres e Redis
	bootCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pg, err := db.ConnectPostgres(bootCtx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(bootCtx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group table-projector; DLQ no tópico irmão
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicTableEvents, "table-projector")
	defer reader.Close()
	dlq := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTableEventsDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "table_proj_messages_consumed_total", Help: "mensagens consumidas"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "table_proj_cache_sets_total", Help: "sets no cache"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "table_proj_db_writes_total", Help: "escritas no banco (evento+estado)"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "table_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, cached, persist, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Store:       repository.NewPostgresRepo(pg),
		Cache:       cache.NewRedisCache(redisClient, 0),
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		DLQ: func(ctx context.Context, key string, value []byte) error {
			return skafka.WriteJSON(ctx, dlq, key, value)
		},
		Retries:    3,
		Backoff:    200 * time.Millisecond,
		OnConsumed: func() { consumed.Inc() },
		OnCached:   func() { cached.Inc() },
		OnPersist:  func() { persist.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := smetrics.StartMetricsServer(log, cfg.MetricsPort,
		smetrics.Check{Name: "postgres", Fn: pg.PingContext},
		smetrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("table-projector started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}
	log.Info("table-projector stopped")
}
