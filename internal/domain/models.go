package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one loosely-typed JSON object returned by the backend. Numbers are
// kept as json.Number so money values survive decoding without float drift.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the field rendered as text, or "" when absent or null.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Number returns the field as a decimal. Numeric strings are accepted; anything
// else reports false.
func (r Record) Number(key string) (decimal.Decimal, bool) {
	switch v := r[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func (r Record) Int(key string) (int64, bool) {
	d, ok := r.Number(key)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return d.IntPart(), true
}

func (r Record) Object(key string) (Record, bool) {
	switch v := r[key].(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	default:
		return nil, false
	}
}

const (
	RoleAdmin   int64 = 1
	RoleCashier int64 = 2
)

type Session struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"fullName"`
	RoleID    int64  `json:"roleId"`
	IsAdmin   bool   `json:"isAdmin"`
	IsCashier bool   `json:"isCashier"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	RoleID   int64  `json:"roleId,omitempty"`
}

type CartItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

const (
	PaymentCash   = "CASH"
	PaymentCredit = "CREDIT"
)

type SaleItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Discount  float64 `json:"discount"`
}

type SaleRequest struct {
	CustomerPhone string     `json:"customerPhone"`
	CustomerName  string     `json:"customerName,omitempty"`
	PaymentMethod string     `json:"paymentMethod"`
	Items         []SaleItem `json:"items"`
	DiscountTotal float64    `json:"discountTotal"`
}

type PaymentRequest struct {
	SaleID    any     `json:"saleId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

// Result is what the presentation layer shows after a submit operation.
type Result struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	SaleID          string `json:"saleId,omitempty"`
	PaymentRecorded bool   `json:"paymentRecorded"`
	PaymentError    string `json:"paymentError,omitempty"`
}

type DashboardStats struct {
	Date               string          `json:"date"`
	TotalSales         decimal.Decimal `json:"totalSales"`
	CreditSales        decimal.Decimal `json:"creditSales"`
	NewCustomers       int             `json:"newCustomers"`
	PendingReturns     int             `json:"pendingReturns"`
	LowStockItems      int             `json:"lowStockItems"`
	CreditTransactions int             `json:"creditTransactions"`
	TodaySalesCount    int             `json:"todaySalesCount"`
	ReportApplied      bool            `json:"reportApplied"`
}

const (
	NoticeSessionExpired = "session_expired"
	NoticePaymentFailed  = "payment_failed"
)

type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}
