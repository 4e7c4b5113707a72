package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kasirinaja/desktop/internal/app"
	"kasirinaja/desktop/internal/config"
	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/logger"
	"kasirinaja/desktop/internal/stats"
)

func main() {
	cfg := config.Load()
	if err := validateRunConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("terminal stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("terminal stopped")
}

func validateRunConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Username == "" {
		return fmt.Errorf("POS_USERNAME and POS_PASSWORD are required to run unattended")
	}
	return nil
}

// run logs in, keeps the dashboard fresh until ctx is done, then logs out.
// Every background outcome is handled on this goroutine.
func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	if _, err := a.Auth.Login(ctx, cfg.Username, cfg.Password); err != nil {
		_ = a.Close()
		return fmt.Errorf("login: %w", err)
	}
	log.Info("terminal ready", zap.String("api", cfg.APIBaseURL), zap.Duration("refresh", cfg.RefreshInterval()))

	ticker := time.NewTicker(cfg.RefreshInterval())
	defer ticker.Stop()

	schedule := func() {
		if err := a.ScheduleRefresh(); err != nil {
			log.Warn("refresh not scheduled", zap.Error(err))
		}
	}
	schedule()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if !a.Sessions.Active() {
				if _, err := a.Auth.Login(ctx, cfg.Username, cfg.Password); err != nil {
					log.Warn("re-login failed", zap.Error(err))
					continue
				}
			}
			schedule()
		case out := <-a.Dispatcher.Results():
			handleOutcome(log, out.Name, out.Value, out.Err)
			for _, notice := range a.Notices.Drain() {
				if notice.Kind == domain.NoticeSessionExpired {
					log.Info("session expired; logging in again on next tick")
				}
			}
		}
	}

	return shutdown(a, log)
}

func handleOutcome(log *zap.Logger, name string, value any, err error) {
	switch {
	case errors.Is(err, stats.ErrRefreshInProgress):
		log.Debug("refresh skipped; previous one still running")
	case errors.Is(err, context.Canceled):
	case err != nil:
		log.Warn("background task failed", zap.String("task", name), zap.Error(err))
	case name == app.TaskRefresh:
		s, _ := value.(domain.DashboardStats)
		log.Info("dashboard refreshed",
			zap.String("date", s.Date),
			zap.String("total_sales", s.TotalSales.String()),
			zap.String("credit_sales", s.CreditSales.String()),
			zap.Int("today_sales", s.TodaySalesCount),
			zap.Int("credit_transactions", s.CreditTransactions),
			zap.Int("new_customers", s.NewCustomers),
			zap.Int("pending_returns", s.PendingReturns),
			zap.Int("low_stock_items", s.LowStockItems),
			zap.Bool("report_applied", s.ReportApplied),
		)
	}
}

func shutdown(a *app.App, log *zap.Logger) error {
	go func() {
		for range a.Dispatcher.Results() {
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	// Logout failures are logged by the auth service; local state is gone either way.
	_ = a.Auth.Logout(ctx)

	if err := a.Close(); err != nil {
		log.Warn("close error", zap.Error(err))
		return err
	}
	return nil
}
