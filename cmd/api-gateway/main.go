package main

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	gateway "github.com/radieske/roulette-table-poc/internal/api-gateway"
	"github.com/radieske/roulette-table-poc/internal/shared/config"
	"github.com/radieske/roulette-table-poc/internal/shared/logger"
	smetrics "github.com/radieske/roulette-table-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := gateway.Router(cfg.TableURL, cfg.WalletURL)
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	smetrics.StartMetricsServer(log, cfg.MetricsPort)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	log.Info("api-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("table", cfg.TableURL),
		zap.String("wallet", cfg.WalletURL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
