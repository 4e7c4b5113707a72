// Package app wires the client core together. One App is built per process
// and passed to whatever drives it; nothing in the core is global.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kasirinaja/desktop/internal/apiclient"
	"kasirinaja/desktop/internal/auth"
	"kasirinaja/desktop/internal/config"
	"kasirinaja/desktop/internal/dispatch"
	"kasirinaja/desktop/internal/logger"
	"kasirinaja/desktop/internal/notify"
	"kasirinaja/desktop/internal/resources"
	"kasirinaja/desktop/internal/sale"
	"kasirinaja/desktop/internal/session"
	"kasirinaja/desktop/internal/stats"
)

const TaskRefresh = "dashboard.refresh"

type App struct {
	Config     config.Config
	Log        *zap.Logger
	Cookies    *apiclient.CookieStore
	Client     *apiclient.Client
	Sessions   *session.Store
	Notices    *notify.Queue
	Notifier   notify.Notifier
	Auth       *auth.Service
	Resources  *resources.Source
	Stats      *stats.Aggregator
	Sales      *sale.Workflow
	Dispatcher *dispatch.Dispatcher

	closers []func() error
}

// New builds every component from cfg. ctx bounds the startup probes and is
// the parent of all background work; cancel it to stop queued tasks.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	cookies := apiclient.NewCookieStore()
	client, err := apiclient.New(apiclient.Config{
		BaseURL:           cfg.APIBaseURL,
		Cookies:           cookies,
		ConnectTimeout:    cfg.ConnectTimeout(),
		RequestTimeout:    cfg.RequestTimeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, log.Named("api"))
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Cookies:  cookies,
		Client:   client,
		Sessions: session.New(),
		Notices:  notify.NewQueue(),
	}

	notifiers := notify.Multi{a.Notices, notify.NewLogNotifier(log.Named("notice"))}
	if cfg.RedisAddr != "" {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		redisNotifier := notify.NewRedisNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.NoticeChannel)
		if err := redisNotifier.Ping(probeCtx); err != nil {
			log.Warn("redis unavailable, notices stay local", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = redisNotifier.Close()
		} else {
			notifiers = append(notifiers, redisNotifier)
			a.closers = append(a.closers, redisNotifier.Close)
			log.Info("notices: redis", zap.String("channel", cfg.NoticeChannel))
		}
	} else {
		log.Info("notices: local")
	}
	a.Notifier = notifiers

	a.Auth = auth.New(client, a.Sessions, a.Notifier, log.Named("auth"))
	a.Resources = resources.New(client)
	a.Stats = stats.New(a.Resources, log.Named("stats"))
	a.Sales = sale.NewWorkflow(a.Resources, a.Notifier, log.Named("sale"))
	a.Dispatcher = dispatch.New(ctx, cfg.WorkerCount, log.Named("dispatch"))

	return a, nil
}

// ScheduleRefresh queues a dashboard refresh on the worker pool. Its outcome
// arrives on Dispatcher.Results under TaskRefresh with a DashboardStats value.
func (a *App) ScheduleRefresh() error {
	return a.Dispatcher.Submit(TaskRefresh, func(ctx context.Context) (any, error) {
		return a.Stats.Refresh(ctx)
	})
}

// Close drains the worker pool, then releases external connections in reverse
// order of acquisition.
func (a *App) Close() error {
	var errs []error
	if err := a.Dispatcher.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
