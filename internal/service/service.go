// Package service orchestrates the optimization pipeline around the backtest
// core: fetch history through a bar source, run the walk-forward search,
// persist the outcome, and publish the winning parameters.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kquant/internal/backtest"
	"kquant/internal/domain"
	"kquant/internal/gather"
	"kquant/internal/store"
	"kquant/internal/tradeparams"
)

// ErrNoUsableResult is the single failure surface of a pipeline run: provider
// failure, short history, and no qualifying candidate all collapse into it.
// Context cancellation and persistence failures propagate as themselves.
var ErrNoUsableResult = errors.New("service: no usable optimization result")

// Options tunes the optimization pipeline. Zero values fall back to the
// platform defaults.
type Options struct {
	HistoryDays int
	Parallelism int
	TargetPct   float64
	StopPct     float64
	MonteCarlo  bool
}

// Result bundles the stored outcome with the optional analysis extras of a
// run.
type Result struct {
	Outcome    *domain.OptimizationOutcome `json:"outcome"`
	MonteCarlo *backtest.MonteCarloResult  `json:"monte_carlo,omitempty"`
	Risk       *backtest.RiskMetrics       `json:"risk_metrics,omitempty"`
}

// Optimizer wires a bar source, the stores, and the backtest core into the
// per-symbol pipeline.
type Optimizer struct {
	source   gather.Source
	outcomes store.OutcomeStore
	params   *tradeparams.Store
	opts     Options
	log      *slog.Logger
}

// NewOptimizer creates an Optimizer. outcomes and params may be nil, in which
// case persistence and parameter publication are skipped (the one-shot CLI
// path).
func NewOptimizer(source gather.Source, outcomes store.OutcomeStore, params *tradeparams.Store, opts Options) *Optimizer {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 504
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}
	if opts.TargetPct == 0 {
		opts.TargetPct = 3.0
	}
	if opts.StopPct == 0 {
		opts.StopPct = -5.0
	}
	return &Optimizer{
		source:   source,
		outcomes: outcomes,
		params:   params,
		opts:     opts,
		log:      slog.Default().With("component", "optimizer"),
	}
}

// Run executes the full pipeline for one symbol: fetch, optimize, persist,
// publish. The provider is never retried here; ingestion policy lives in the
// gatherers.
func (o *Optimizer) Run(ctx context.Context, symbol string, market domain.Market) (*Result, error) {
	log := o.log.With("symbol", symbol, "market", market)

	bars, err := o.source.FetchDailyBars(ctx, symbol, o.opts.HistoryDays)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("bar fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrNoUsableResult, symbol, err)
	}

	grid := backtest.DefaultGrid()
	grid.TargetPct = o.opts.TargetPct
	grid.StopPct = o.opts.StopPct

	outcome, err := backtest.Optimize(ctx, symbol, market, bars, grid, o.opts.Parallelism)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("no usable optimization result", "bars", len(bars), "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrNoUsableResult, symbol, err)
	}

	res := &Result{Outcome: outcome}
	if o.opts.MonteCarlo {
		res.MonteCarlo, res.Risk = analyze(bars, outcome.Best)
	}

	if o.outcomes != nil {
		if err := o.outcomes.SaveOutcome(ctx, outcome); err != nil {
			return nil, fmt.Errorf("save outcome for %s: %w", symbol, err)
		}
	}
	if o.params != nil {
		o.params.Set(tradeparams.Entry{
			Symbol:    symbol,
			Market:    market,
			Params:    outcome.Best,
			Verdict:   outcome.Verdict,
			UpdatedAt: outcome.CreatedAt,
		})
	}

	log.Info("optimization complete",
		"train_sharpe", outcome.TrainSharpe,
		"test_sharpe", outcome.TestSharpe,
		"divergence_pct", outcome.SharpeDivergencePct,
		"verdict", outcome.Verdict)
	return res, nil
}

// analyze re-simulates the winner over its training window and derives the
// bootstrap distribution and risk metrics from the realized trades.
func analyze(bars []domain.Bar, best domain.ParameterSet) (*backtest.MonteCarloResult, *backtest.RiskMetrics) {
	train, _, err := backtest.SplitWindows(bars)
	if err != nil {
		return nil, nil
	}
	pnls := backtest.Pnls(backtest.Simulate(train, best))
	mc := backtest.MonteCarlo(pnls, backtest.MonteCarloConfig{})
	risk := backtest.ComputeRiskMetrics(pnls, backtest.DefaultAnnualRiskFreePct)
	return &mc, &risk
}
