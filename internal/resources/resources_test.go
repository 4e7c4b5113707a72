package resources

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kasirinaja/desktop/internal/apiclient"
	"kasirinaja/desktop/internal/backendtest"
)

func newSource(t *testing.T) (*Source, *backendtest.Backend) {
	t.Helper()
	backend := backendtest.New(t)
	client, err := apiclient.New(apiclient.Config{BaseURL: backend.URL()}, zap.NewNop())
	require.NoError(t, err)
	_, err = client.Post(context.Background(), "/api/auth/login", map[string]string{"username": "kasir", "password": "cashier123"})
	require.NoError(t, err)
	return New(client), backend
}

func TestKindPath(t *testing.T) {
	assert.Equal(t, "/api/secure/stock-batches", StockBatches.Path())
	assert.False(t, Kind("reports").Valid())
}

func TestListEachKind(t *testing.T) {
	src, _ := newSource(t)
	for _, kind := range []Kind{Sales, Returns, Products, StockBatches, Customers} {
		records, err := src.List(context.Background(), kind)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, records, kind)
	}

	payments, err := src.List(context.Background(), Payments)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestListUnknownKindMakesNoRequest(t *testing.T) {
	src, backend := newSource(t)
	before := backend.TotalHits()

	_, err := src.List(context.Background(), Kind("suppliers"))
	assert.Error(t, err)
	assert.Equal(t, before, backend.TotalHits())
}

func TestGetByID(t *testing.T) {
	src, backend := newSource(t)

	product, err := src.Get(context.Background(), Products, "2")
	require.NoError(t, err)
	assert.Equal(t, "Telur 10 Butir", product.String("name"))

	backend.WrapResponses(false)
	product, err = src.Get(context.Background(), Products, "1")
	require.NoError(t, err)
	assert.Equal(t, "Mie Goreng Instan", product.String("name"))

	_, err = src.Get(context.Background(), Products, "999")
	assert.Equal(t, http.StatusNotFound, apiclient.StatusOf(err))
}

func TestCreateAppendsRecord(t *testing.T) {
	src, backend := newSource(t)

	body, err := src.Create(context.Background(), Customers, map[string]any{"name": "Sari", "phone": "0813"})
	require.NoError(t, err)
	assert.True(t, apiclient.IsSuccessful(body))
	require.Len(t, backend.Posted(Customers.Path()), 1)

	customers, err := src.List(context.Background(), Customers)
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}

func TestDailyReport(t *testing.T) {
	src, backend := newSource(t)

	_, err := src.DailyReport(context.Background(), "2024-01-01")
	assert.Equal(t, http.StatusNotFound, apiclient.StatusOf(err))

	backend.SetDailyReport(map[string]any{"date": "2024-01-01", "totalSales": 500})
	report, err := src.DailyReport(context.Background(), "2024-01-01")
	require.NoError(t, err)
	total, ok := report.Number("totalSales")
	require.True(t, ok)
	assert.Equal(t, "500", total.String())
	assert.Equal(t, 2, backend.Hits(http.MethodGet, "/api/secure/reports/daily"))
}
