package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"kquant/internal/domain"
	"kquant/internal/util"
)

// DefaultSchedule runs the watchlist every weekday at 18:10 KST, after the
// KRX close.
const DefaultSchedule = "0 10 18 * * MON-FRI"

// Scheduler triggers watchlist re-optimization on a cron schedule, skipping
// non-trading days.
type Scheduler struct {
	cron      *cron.Cron
	optimizer *Optimizer
	watchlist []string
	parallel  int
	calendar  *util.TradingCalendar
	loc       *time.Location
	log       *slog.Logger
}

// NewScheduler creates a Scheduler over the given watchlist. parallel bounds
// how many symbols optimize concurrently during a sweep.
func NewScheduler(optimizer *Optimizer, watchlist []string, parallel int) *Scheduler {
	if parallel <= 0 {
		parallel = 2
	}
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		optimizer: optimizer,
		watchlist: watchlist,
		parallel:  parallel,
		calendar:  util.NewTradingCalendar(domain.MarketKOSPI),
		loc:       loc,
		log:       slog.Default().With("component", "scheduler"),
	}
}

// Register installs the watchlist job. schedule is a seconds-precision cron
// expression; empty falls back to DefaultSchedule.
func (s *Scheduler) Register(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		now := time.Now().In(s.loc)
		if !s.calendar.IsTradingDay(now) {
			s.log.Info("non-trading day, skipping watchlist run", "date", now.Format("2006-01-02"))
			return
		}
		if err := s.RunWatchlist(ctx); err != nil {
			s.log.Error("watchlist run aborted", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register watchlist job %q: %w", schedule, err)
	}
	return nil
}

// Start begins cron dispatch.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts dispatch and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunWatchlist optimizes every watchlist symbol with bounded parallelism.
// Per-symbol failures are logged and isolated; only context cancellation
// aborts the sweep.
func (s *Scheduler) RunWatchlist(ctx context.Context) error {
	started := time.Now()
	s.log.Info("watchlist run start", "symbols", len(s.watchlist))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	var ok, failed atomic.Int64
	for _, symbol := range s.watchlist {
		symbol := symbol
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.optimizer.Run(ctx, symbol, domain.MarketForSymbol(symbol))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				s.log.Warn("symbol optimization failed", "symbol", symbol, "error", err)
			}
			return nil
		})
	}
	err := g.Wait()

	s.log.Info("watchlist run complete",
		"ok", ok.Load(),
		"failed", failed.Load(),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return err
}
