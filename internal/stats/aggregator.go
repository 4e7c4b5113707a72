// Package stats builds the dashboard figures: five collections are fetched in
// parallel, reduced locally, then reconciled with the backend's daily report.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/logger"
	"kasirinaja/desktop/internal/resources"
)

var ErrRefreshInProgress = errors.New("dashboard refresh already in progress")

type State int32

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FetchError names the collection whose fetch aborted a refresh.
type FetchError struct {
	Kind resources.Kind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Source interface {
	List(ctx context.Context, kind resources.Kind) ([]domain.Record, error)
	DailyReport(ctx context.Context, date string) (domain.Record, error)
}

type Outcome struct {
	Stats domain.DashboardStats
	Err   error
}

type Aggregator struct {
	source Source
	log    *zap.Logger
	now    func() time.Time
	state  atomic.Int32

	mu       sync.RWMutex
	last     *domain.DashboardStats
	snapshot Snapshot
}

func New(source Source, log *zap.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		log:    logger.OrNop(log),
		now:    time.Now,
	}
}

// SetClock replaces the clock that decides which day is "today".
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

func (a *Aggregator) State() State {
	return State(a.state.Load())
}

// Refresh runs one full cycle. While another cycle is in flight it returns
// ErrRefreshInProgress without touching the network. On failure the previously
// published stats stay in place.
func (a *Aggregator) Refresh(ctx context.Context) (domain.DashboardStats, error) {
	if !a.begin() {
		return domain.DashboardStats{}, ErrRefreshInProgress
	}
	defer a.end()
	return a.run(ctx)
}

// RefreshAsync starts a cycle on its own goroutine. The busy check happens
// before it returns, so a second call while one is running yields
// ErrRefreshInProgress on its channel.
func (a *Aggregator) RefreshAsync(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)
	if !a.begin() {
		out <- Outcome{Err: ErrRefreshInProgress}
		close(out)
		return out
	}
	go func() {
		defer close(out)
		defer a.end()
		stats, err := a.run(ctx)
		out <- Outcome{Stats: stats, Err: err}
	}()
	return out
}

// Last returns the stats of the most recent successful cycle.
func (a *Aggregator) Last() (domain.DashboardStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return domain.DashboardStats{}, false
	}
	return *a.last, true
}

// Snapshot returns the collections of the most recent successful cycle.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

func (a *Aggregator) begin() bool {
	return a.state.CompareAndSwap(int32(Idle), int32(Fetching))
}

func (a *Aggregator) end() {
	a.state.Store(int32(Idle))
}

func (a *Aggregator) run(ctx context.Context) (domain.DashboardStats, error) {
	started := a.now()
	today := started.Format(dateLayout)

	snap, err := a.fetch(ctx)
	if err != nil {
		a.log.Warn("dashboard refresh aborted", zap.Error(err))
		return domain.DashboardStats{}, fmt.Errorf("refresh dashboard: %w", err)
	}

	stats := Compute(snap, today)

	report, err := a.source.DailyReport(ctx, today)
	if err != nil {
		a.log.Info("daily report unavailable; using local figures",
			zap.String("date", today),
			zap.Error(err),
		)
	} else {
		stats = ApplyReport(stats, report)
	}

	a.mu.Lock()
	a.snapshot = snap
	a.last = &stats
	a.mu.Unlock()

	a.log.Debug("dashboard refreshed",
		zap.String("date", today),
		zap.String("total_sales", stats.TotalSales.String()),
		zap.Int("today_sales", stats.TodaySalesCount),
		zap.Bool("report_applied", stats.ReportApplied),
		zap.Duration("took", a.now().Sub(started)),
	)
	return stats, nil
}

// fetch loads all five collections concurrently and returns only once every
// fetch has finished. The first failure cancels the rest.
func (a *Aggregator) fetch(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	targets := []struct {
		kind resources.Kind
		dst  *[]domain.Record
	}{
		{resources.Sales, &snap.Sales},
		{resources.Returns, &snap.Returns},
		{resources.Products, &snap.Products},
		{resources.StockBatches, &snap.StockBatches},
		{resources.Customers, &snap.Customers},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			records, err := a.source.List(gctx, target.kind)
			if err != nil {
				return &FetchError{Kind: target.kind, Err: err}
			}
			*target.dst = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap.FetchedAt = a.now()
	return snap, nil
}
