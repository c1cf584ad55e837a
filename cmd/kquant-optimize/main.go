// One-shot tool: fetch history for a symbol, run the full optimization
// pipeline locally, and print the result.
//
// Usage:
//
//	go run cmd/kquant-optimize/main.go -symbol 005930.KS
//	go run cmd/kquant-optimize/main.go -symbol AAPL -days 756 -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"kquant/internal/config"
	"kquant/internal/domain"
	"kquant/internal/gather"
	"kquant/internal/gather/kr"
	"kquant/internal/gather/us"
	"kquant/internal/service"
)

func main() {
	symbolFlag := flag.String("symbol", "", "symbol to optimize (e.g. 005930.KS, AAPL)")
	marketFlag := flag.String("market", "", "market override: kospi, kosdaq or us (default: inferred from symbol)")
	days := flag.Int("days", 0, "daily bars of history to fetch (default: config history_days)")
	asJSON := flag.Bool("json", false, "print the result as JSON instead of text")
	flag.Parse()

	symbol := strings.ToUpper(strings.TrimSpace(*symbolFlag))
	if symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: kquant-optimize -symbol SYMBOL [-market MARKET] [-days N] [-json]")
		os.Exit(2)
	}

	// .env is optional here; credentials may come straight from the environment.
	_ = godotenv.Load()

	cfgPath := "config/kquant.yaml"
	if p := os.Getenv("KQUANT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("loading config: %v", err)
		}
		cfg = config.Default()
	}

	// Results go to stdout; keep log noise on stderr and above warn.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	market := domain.MarketForSymbol(symbol)
	if *marketFlag != "" {
		market, err = domain.ParseMarket(*marketFlag)
		if err != nil {
			log.Fatalf("invalid market: %v", err)
		}
	}

	opts := service.Options{
		HistoryDays: cfg.Optimize.HistoryDays,
		Parallelism: cfg.Optimize.Parallelism,
		TargetPct:   cfg.Optimize.TargetPct,
		StopPct:     cfg.Optimize.StopPct,
		MonteCarlo:  true,
	}
	if *days > 0 {
		opts.HistoryDays = *days
	}

	krSrc := kr.NewYahooSource(cfg.Gather.KRDaily.RateLimitPerMin)
	usSrc := us.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	source := gather.NewMarketRouter(krSrc, usSrc)

	// No stores: the one-shot path neither persists nor publishes.
	optimizer := service.NewOptimizer(source, nil, nil, opts)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "optimizing %s (%s, %d bars)...\n", symbol, market, opts.HistoryDays)
	res, err := optimizer.Run(ctx, symbol, market)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	if *asJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			log.Fatalf("encoding result: %v", err)
		}
		fmt.Println(string(out))
		return
	}
	printResult(res)
}

func printResult(res *service.Result) {
	o := res.Outcome
	fmt.Printf("=== %s (%s) ===\n\n", o.Symbol, o.Market)

	fmt.Println("--- Best parameters ---")
	p := o.Best
	fmt.Printf("  %-14s %d\n", "RSI oversold", p.RSIOversold)
	fmt.Printf("  %-14s %d / %.1f\n", "BB period/std", p.BBPeriod, p.BBStd)
	fmt.Printf("  %-14s %d / %d\n", "EMA fast/slow", p.EMAFast, p.EMASlow)
	fmt.Printf("  %-14s %+.1f%% / %+.1f%%\n", "target/stop", p.TargetPct, p.StopPct)

	fmt.Println("\n--- Walk-forward ---")
	fmt.Printf("  %-14s %.2f\n", "train sharpe", o.TrainSharpe)
	fmt.Printf("  %-14s %.2f\n", "test sharpe", o.TestSharpe)
	fmt.Printf("  %-14s %.1f%%\n", "test win rate", o.TestWinRate)
	fmt.Printf("  %-14s %.2f%%\n", "divergence", o.SharpeDivergencePct)
	fmt.Printf("  %-14s %s\n", "verdict", o.Verdict)

	if mc := res.MonteCarlo; mc != nil && mc.Simulations > 0 {
		fmt.Println("\n--- Monte Carlo ---")
		fmt.Printf("  %-14s %d x %d trades\n", "simulations", mc.Simulations, mc.TradesPerSim)
		fmt.Printf("  %-14s %.2f%% (mean %.2f%%, std %.2f%%)\n", "median return", mc.MedianReturnPct, mc.MeanReturnPct, mc.StdReturnPct)
		fmt.Printf("  %-14s [%.2f%% .. %.2f%%]\n", "p5 .. p95", mc.Percentile5, mc.Percentile95)
		fmt.Printf("  %-14s %.1f%%\n", "P(positive)", mc.ProbPositive)
		fmt.Printf("  %-14s %.1f%%\n", "P(target)", mc.ProbTarget)
		fmt.Printf("  %-14s %.2f%%\n", "median max DD", mc.MedianMaxDrawdown)
		fmt.Printf("  %-14s %.2f%%\n", "VaR 95", mc.VaR95)
	}

	if rm := res.Risk; rm != nil {
		fmt.Println("\n--- Risk metrics (train) ---")
		fmt.Printf("  %-14s %.2f\n", "sharpe", rm.Sharpe)
		fmt.Printf("  %-14s %.2f\n", "sortino", rm.Sortino)
		fmt.Printf("  %-14s %.2f%%\n", "max drawdown", rm.MaxDrawdownPct)
		fmt.Printf("  %-14s %.2f\n", "calmar", rm.Calmar)
		fmt.Printf("  %-14s %.2f\n", "omega", rm.Omega)
		fmt.Printf("  %-14s %d\n", "max consec L", rm.MaxConsecutiveLosses)
		fmt.Printf("  %-14s %.2f\n", "recovery", rm.RecoveryFactor)
	}
}
