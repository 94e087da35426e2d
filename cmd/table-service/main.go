package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	sharedcache "github.com/radieske/roulette-table-poc/internal/shared/cache"
	"github.com/radieske/roulette-table-poc/internal/shared/config"
	skafka "github.com/radieske/roulette-table-poc/internal/shared/kafka"
	"github.com/radieske/roulette-table-poc/internal/shared/logger"
	smetrics "github.com/radieske/roulette-table-poc/internal/shared/metrics"
	"github.com/radieske/roulette-table-poc/internal/table"
	projcache "github.com/radieske/roulette-table-poc/internal/table-projector/cache"
	thttp "github.com/radieske/roulette-table-poc/internal/table-service/http"
	tmetrics "github.com/radieske/roulette-table-poc/internal/table-service/metrics"
	"github.com/radieske/roulette-table-poc/internal/table-service/producer"
	"github.com/radieske/roulette-table-poc/internal/table-service/wallet"
	"github.com/radieske/roulette-table-poc/internal/table-service/ws"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "table-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis alimenta o feed websocket (canal publicado pelo table-projector)
	bootCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	redisClient, err := sharedcache.ConnectRedis(bootCtx, cfg.RedisAddr)
	cancel()
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Producer Kafka para os eventos da mesa
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTableEvents)
	defer writer.Close()
	pub := producer.NewKafkaPublisher(writer, cfg.TopicTableEvents)

	m := tmetrics.NewTable(prometheus.DefaultRegisterer)

	t, err := table.New(cfg.TableID, cfg.TableStake, cfg.TableOperator, table.Deps{
		Ledger:    wallet.New(cfg.WalletURL),
		Publisher: pub,
		Log:       log,
		Hooks:     m.Hooks(),
	})
	if err != nil {
		log.Fatal("table setup", zap.Error(err), zap.Int64("stake", cfg.TableStake))
	}
	log.Info("table ready",
		zap.String("table_id", t.ID()),
		zap.Int64("stake", cfg.TableStake),
		zap.String("operator", t.Operator()),
	)

	// Hub WebSocket + subscriber Redis
	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	// projeção no Redis escrita pelo table-projector
	snaps := projcache.NewRedisCache(redisClient, 0)

	api := thttp.NewServer(log, t, hub, snaps)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8083
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := smetrics.StartMetricsServer(log, cfg.MetricsPort,
		smetrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
