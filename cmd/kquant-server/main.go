package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kquant/internal/config"
	"kquant/internal/gather"
	"kquant/internal/gather/kr"
	"kquant/internal/gather/us"
	"kquant/internal/httpapi"
	"kquant/internal/service"
	"kquant/internal/store"
	"kquant/internal/tradeparams"
	"kquant/internal/util"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment variables")
	}

	cfgPath := "config/kquant.yaml"
	if p := os.Getenv("KQUANT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	// Stores.
	ps := store.NewParquetStore(cfg.Storage.DataDir)
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening outcome store: %v", err)
	}
	defer db.Close()
	params := tradeparams.NewStore(cfg.Storage.ParamsPath, logger.With("component", "tradeparams"))

	// Bar source: route per market, serve repeat reads from the Parquet cache.
	krSrc := kr.NewYahooSource(cfg.Gather.KRDaily.RateLimitPerMin)
	usSrc := us.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	source := gather.NewCachedSource(gather.NewMarketRouter(krSrc, usSrc), ps)

	optimizer := service.NewOptimizer(source, db, params, service.Options{
		HistoryDays: cfg.Optimize.HistoryDays,
		Parallelism: cfg.Optimize.Parallelism,
		TargetPct:   cfg.Optimize.TargetPct,
		StopPct:     cfg.Optimize.StopPct,
		MonteCarlo:  cfg.Optimize.MonteCarlo,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Two symbols in flight per sweep; each already runs a parallel grid search.
	scheduler := service.NewScheduler(optimizer, cfg.Optimize.Watchlist, 2)
	if err := scheduler.Register(ctx, cfg.Optimize.Schedule); err != nil {
		log.Fatalf("registering schedule: %v", err)
	}
	scheduler.Start()

	api := httpapi.NewServer(optimizer, db, params, source)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("kquant server listening", "addr", httpServer.Addr, "watchlist", len(cfg.Optimize.Watchlist))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down kquant server")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
