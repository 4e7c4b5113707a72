package stats

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasirinaja/desktop/internal/domain"
)

const dateLayout = "2006-01-02"

var creditStatuses = map[string]struct{}{
	"CREDIT":         {},
	"PENDING":        {},
	"PARTIAL":        {},
	"PARTIALLY_PAID": {},
	"OWING":          {},
}

// Snapshot is the set of collections one refresh cycle computed from.
type Snapshot struct {
	Sales        []domain.Record
	Returns      []domain.Record
	Products     []domain.Record
	StockBatches []domain.Record
	Customers    []domain.Record
	FetchedAt    time.Time
}

func isCreditStatus(status string) bool {
	_, ok := creditStatuses[strings.ToUpper(strings.TrimSpace(status))]
	return ok
}

// Compute derives dashboard stats from scratch. Dates are matched textually:
// a sale belongs to today when its saleDate contains today (YYYY-MM-DD).
func Compute(snap Snapshot, today string) domain.DashboardStats {
	stats := domain.DashboardStats{
		Date:        today,
		TotalSales:  decimal.Zero,
		CreditSales: decimal.Zero,
	}
	if today == "" {
		return stats
	}

	for _, sale := range snap.Sales {
		amount, hasAmount := sale.Number("totalAmount")
		if hasAmount {
			stats.TotalSales = stats.TotalSales.Add(amount)
		}
		if !strings.Contains(sale.String("saleDate"), today) {
			continue
		}
		stats.TodaySalesCount++
		if isCreditStatus(sale.String("paymentStatus")) {
			if hasAmount {
				stats.CreditSales = stats.CreditSales.Add(amount)
			}
			stats.CreditTransactions++
		}
	}

	for _, ret := range snap.Returns {
		if strings.EqualFold(strings.TrimSpace(ret.String("status")), "PENDING") {
			stats.PendingReturns++
		}
	}

	stock := stockByProduct(snap.StockBatches)
	for _, product := range snap.Products {
		id := product.String("id")
		if id == "" {
			continue
		}
		level, ok := product.Number("reorderLevel")
		if !ok {
			level = decimal.Zero
		}
		qty := stock[id]
		if qty.IsPositive() && qty.LessThanOrEqual(level) {
			stats.LowStockItems++
		}
	}

	for _, customer := range snap.Customers {
		if strings.Contains(customer.String("createdAt"), today) {
			stats.NewCustomers++
		}
	}

	return stats
}

// stockByProduct sums quantityRemaining per product id. Batches reference the
// product as "productId" or as a nested "product": {"id": ...}.
func stockByProduct(batches []domain.Record) map[string]decimal.Decimal {
	stock := make(map[string]decimal.Decimal, len(batches))
	for _, batch := range batches {
		productID := batch.String("productId")
		if productID == "" {
			if product, ok := batch.Object("product"); ok {
				productID = product.String("id")
			}
		}
		if productID == "" {
			continue
		}
		qty, ok := batch.Number("quantityRemaining")
		if !ok {
			continue
		}
		stock[productID] = stock[productID].Add(qty)
	}
	return stock
}

// ApplyReport overrides totalSales, creditSales and creditTransactions with the
// daily report's values where the report carries them. The report is the
// authoritative source; every other field keeps its local value.
func ApplyReport(stats domain.DashboardStats, report domain.Record) domain.DashboardStats {
	if report == nil {
		return stats
	}
	if v, ok := report.Number("totalSales"); ok {
		stats.TotalSales = v
		stats.ReportApplied = true
	}
	if v, ok := report.Number("creditSales"); ok {
		stats.CreditSales = v
		stats.ReportApplied = true
	}
	if v, ok := report.Number("creditTransactions"); ok {
		stats.CreditTransactions = int(v.IntPart())
		stats.ReportApplied = true
	}
	return stats
}
