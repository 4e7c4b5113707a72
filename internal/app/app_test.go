package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kasirinaja/desktop/internal/backendtest"
	"kasirinaja/desktop/internal/config"
	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/resources"
	"kasirinaja/desktop/internal/sale"
	"kasirinaja/desktop/internal/stats"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:                 "test",
		APIBaseURL:             baseURL,
		ConnectTimeoutSeconds:  5,
		RefreshIntervalSeconds: 60,
		WorkerCount:            2,
		NoticeChannel:          "kasirinaja:notices",
	}
}

func TestAppEndToEnd(t *testing.T) {
	backend := backendtest.New(t)
	a, err := New(context.Background(), testConfig(backend.URL()), zap.NewNop())
	require.NoError(t, err)

	sess, err := a.Auth.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin)
	assert.True(t, a.Sessions.IsAdmin())

	a.Stats.SetClock(func() time.Time { return time.Date(2024, 1, 1, 18, 0, 0, 0, time.Local) })
	require.NoError(t, a.ScheduleRefresh())

	out := <-a.Dispatcher.Results()
	require.NoError(t, out.Err)
	assert.Equal(t, TaskRefresh, out.Name)
	dashboard, ok := out.Value.(domain.DashboardStats)
	require.True(t, ok)
	assert.Equal(t, 1, dashboard.TodaySalesCount)
	assert.Equal(t, 1, dashboard.PendingReturns)

	cart := sale.NewCart()
	require.NoError(t, cart.AddItem(2, "Telur 10 Butir", decimal.NewFromInt(26500)))
	res, err := a.Sales.Submit(context.Background(), cart, "081200000001", "", domain.PaymentCash)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.PaymentRecorded)
	assert.Len(t, backend.Posted(resources.Payments.Path()), 1)

	require.NoError(t, a.Close())
	_, open := <-a.Dispatcher.Results()
	assert.False(t, open)
}

func TestAppSessionExpiryNotifiesOnce(t *testing.T) {
	backend := backendtest.New(t)
	a, err := New(context.Background(), testConfig(backend.URL()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Auth.Login(context.Background(), "kasir", "cashier123")
	require.NoError(t, err)

	backend.ExpireSessions()
	_, err = a.Stats.Refresh(context.Background())
	require.Error(t, err)
	_, err = a.Resources.List(context.Background(), resources.Products)
	require.Error(t, err)

	assert.False(t, a.Sessions.Active())
	notices := a.Notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeSessionExpired, notices[0].Kind)
}

func TestAppPaymentFailureReachesQueue(t *testing.T) {
	backend := backendtest.New(t)
	a, err := New(context.Background(), testConfig(backend.URL()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Auth.Login(context.Background(), "kasir", "cashier123")
	require.NoError(t, err)
	backend.Fail(http.MethodPost, resources.Payments.Path(), http.StatusServiceUnavailable, "")

	cart := sale.NewCart()
	require.NoError(t, cart.AddItem(1, "Mie Goreng Instan", decimal.NewFromInt(3500)))
	res, err := a.Sales.Submit(context.Background(), cart, "0812", "", "cash")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.PaymentRecorded)

	notices := a.Notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticePaymentFailed, notices[0].Kind)
}

func TestAppBusyRefreshIsReported(t *testing.T) {
	backend := backendtest.New(t)
	a, err := New(context.Background(), testConfig(backend.URL()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Auth.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.ScheduleRefresh())
	}
	succeeded := 0
	for i := 0; i < 3; i++ {
		out := <-a.Dispatcher.Results()
		if out.Err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, out.Err, stats.ErrRefreshInProgress)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
}

func TestAppUnreachableRedisFallsBackToLocalNotices(t *testing.T) {
	backend := backendtest.New(t)
	cfg := testConfig(backend.URL())
	cfg.RedisAddr = "127.0.0.1:1"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, a.closers)
	require.NoError(t, a.Close())
}

func TestAppRejectsBadBaseURL(t *testing.T) {
	_, err := New(context.Background(), testConfig("ftp://example.com"), nil)
	assert.Error(t, err)
}
