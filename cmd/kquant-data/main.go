// Bulk daily-bar gathering: fetch history for every watchlist symbol into the
// Parquet store, split into one job per market.
//
// Usage:
//
//	go run cmd/kquant-data/main.go
//	go run cmd/kquant-data/main.go -market us -days 756
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kquant/internal/config"
	"kquant/internal/domain"
	"kquant/internal/gather"
	"kquant/internal/gather/kr"
	"kquant/internal/gather/us"
	"kquant/internal/store"
)

func main() {
	days := flag.Int("days", 0, "daily bars of history to fetch (default: per-job start_date, then history_days)")
	market := flag.String("market", "all", "restrict to one market: kr, us or all")
	flag.Parse()

	if *market != "all" && *market != "kr" && *market != "us" {
		fmt.Fprintf(os.Stderr, "unknown market %q (want kr, us or all)\n", *market)
		os.Exit(2)
	}

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

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/kquant-data-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("creating log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var krSymbols, usSymbols []string
	for _, s := range cfg.Optimize.Watchlist {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if domain.MarketForSymbol(s).IsKorean() {
			krSymbols = append(krSymbols, s)
		} else {
			usSymbols = append(usSymbols, s)
		}
	}

	ps := store.NewParquetStore(cfg.Storage.DataDir)

	var gatherers []gather.Gatherer
	if (*market == "all" || *market == "kr") && len(krSymbols) > 0 {
		src := kr.NewYahooSource(cfg.Gather.KRDaily.RateLimitPerMin)
		gatherers = append(gatherers, gather.NewDailyGatherer(
			"kr-daily", krSymbols, jobDays(*days, cfg.Gather.KRDaily, cfg.Optimize.HistoryDays),
			0, cfg.Gather.KRDaily.MaxWorkers,
			src, ps))
	}
	if (*market == "all" || *market == "us") && len(usSymbols) > 0 {
		src := us.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
		gatherers = append(gatherers, gather.NewDailyGatherer(
			"us-daily", usSymbols, jobDays(*days, cfg.Gather.USDaily, cfg.Optimize.HistoryDays),
			cfg.Gather.USDaily.BatchSize, cfg.Gather.USDaily.MaxWorkers,
			src, ps))
	}
	if len(gatherers) == 0 {
		log.Fatalf("nothing to gather: set optimize.watchlist in %s", cfgPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting kquant-data",
		"logFile", logFileName,
		"kr", len(krSymbols),
		"us", len(usSymbols))

	for _, g := range gatherers {
		if err := g.Run(ctx); err != nil {
			log.Fatalf("gather interrupted: %v", err)
		}
	}
	slog.Info("all gather jobs complete")
}

// jobDays resolves the history depth of one gather job: an explicit -days flag
// wins, then the job's configured start_date, then the optimizer's history
// window.
func jobDays(flagDays int, job config.GatherJobConfig, fallback int) int {
	if flagDays > 0 {
		return flagDays
	}
	if job.StartDate != "" {
		start, err := time.Parse("2006-01-02", job.StartDate)
		if err != nil {
			log.Printf("invalid start_date %q, using history_days", job.StartDate)
			return fallback
		}
		// Calendar days to trading days, roughly 5 sessions a week.
		return int(time.Since(start).Hours()/24) * 5 / 7
	}
	return fallback
}
