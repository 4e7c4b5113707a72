package resources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"kasirinaja/desktop/internal/apiclient"
	"kasirinaja/desktop/internal/domain"
)

type Kind string

const (
	Sales        Kind = "sales"
	Returns      Kind = "returns"
	Products     Kind = "products"
	StockBatches Kind = "stock-batches"
	Customers    Kind = "customers"
	Payments     Kind = "payments"
)

const dailyReportPath = "/api/secure/reports/daily"

func (k Kind) Path() string {
	return "/api/secure/" + string(k)
}

func (k Kind) Valid() bool {
	switch k {
	case Sales, Returns, Products, StockBatches, Customers, Payments:
		return true
	default:
		return false
	}
}

// Source reads and writes the secure commerce collections.
type Source struct {
	client *apiclient.Client
}

func New(client *apiclient.Client) *Source {
	return &Source{client: client}
}

func (s *Source) List(ctx context.Context, kind Kind) ([]domain.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown resource %q", kind)
	}
	body, err := s.client.Get(ctx, kind.Path())
	if err != nil {
		return nil, err
	}
	return s.client.ParseList(body)
}

func (s *Source) Get(ctx context.Context, kind Kind, id string) (domain.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown resource %q", kind)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s id is required", kind)
	}
	body, err := s.client.Get(ctx, kind.Path()+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return apiclient.ParseData(body)
}

// Create posts payload and returns the raw response body so callers can read
// both the success envelope and the created record.
func (s *Source) Create(ctx context.Context, kind Kind, payload any) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown resource %q", kind)
	}
	return s.client.Post(ctx, kind.Path(), payload)
}

// DailyReport fetches the server-computed summary for date (YYYY-MM-DD).
func (s *Source) DailyReport(ctx context.Context, date string) (domain.Record, error) {
	query := url.Values{}
	query.Set("date", date)
	body, err := s.client.Get(ctx, dailyReportPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	return apiclient.ParseData(body)
}
