// Package sale holds the cart and the two-step submission: create the sale,
// then for cash sales record the payment against it.
package sale

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"kasirinaja/desktop/internal/apiclient"
	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/logger"
	"kasirinaja/desktop/internal/notify"
	"kasirinaja/desktop/internal/resources"
	"kasirinaja/desktop/internal/xid"
)

const referencePrefix = "POS"

var errMissingSaleID = errors.New("sale response carried no id")

type Creator interface {
	Create(ctx context.Context, kind resources.Kind, payload any) (string, error)
}

type Workflow struct {
	creator  Creator
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewWorkflow(creator Creator, notifier notify.Notifier, log *zap.Logger) *Workflow {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Workflow{
		creator:  creator,
		notifier: notifier,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

// Validate checks the submit preconditions in order: cart, phone, method.
func Validate(cart *Cart, customerPhone string, paymentMethod string) error {
	if cart == nil || cart.Len() == 0 {
		return ErrEmptyCart
	}
	if strings.TrimSpace(customerPhone) == "" {
		return ErrMissingPhone
	}
	switch normalizeMethod(paymentMethod) {
	case domain.PaymentCash, domain.PaymentCredit:
		return nil
	default:
		return ErrInvalidPaymentMethod
	}
}

// Submit posts the cart as a sale. The returned Result mirrors the backend's
// success flag and message. For cash sales a payment is then recorded; if that
// fails the sale still counts as successful and the failure goes to the
// notifier. The cart is left as is for the caller to clear.
func (w *Workflow) Submit(ctx context.Context, cart *Cart, customerPhone string, customerName string, paymentMethod string) (domain.Result, error) {
	if err := Validate(cart, customerPhone, paymentMethod); err != nil {
		return domain.Result{}, err
	}
	method := normalizeMethod(paymentMethod)
	items := cart.Items()

	total := decimal.Zero
	saleItems := make([]domain.SaleItem, 0, len(items))
	for _, item := range items {
		total = total.Add(item.LineTotal)
		saleItems = append(saleItems, domain.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Discount:  0,
		})
	}

	body, err := w.creator.Create(ctx, resources.Sales, domain.SaleRequest{
		CustomerPhone: strings.TrimSpace(customerPhone),
		CustomerName:  strings.TrimSpace(customerName),
		PaymentMethod: method,
		Items:         saleItems,
		DiscountTotal: 0,
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("submit sale: %w", err)
	}

	result := domain.Result{
		Success: apiclient.IsSuccessful(body),
		Message: apiclient.GetMessage(body),
	}
	if !result.Success {
		w.log.Info("sale rejected by backend", zap.String("message", result.Message))
		return result, nil
	}
	result.SaleID = saleID(body)

	w.log.Info("sale created",
		zap.String("sale_id", result.SaleID),
		zap.String("method", method),
		zap.String("total", total.String()),
		zap.Int("lines", len(items)),
	)

	if method != domain.PaymentCash {
		return result, nil
	}

	if err := w.recordPayment(ctx, result.SaleID, total); err != nil {
		w.reportSecondary(ctx, err)
		result.PaymentError = err.Error()
		return result, nil
	}
	result.PaymentRecorded = true
	return result, nil
}

func (w *Workflow) recordPayment(ctx context.Context, id string, amount decimal.Decimal) error {
	if id == "" {
		return &SecondaryStepError{Err: errMissingSaleID}
	}

	payment := domain.PaymentRequest{
		SaleID:    saleIDValue(id),
		Amount:    amount.InexactFloat64(),
		Method:    domain.PaymentCash,
		Reference: xid.Reference(referencePrefix, w.now()),
	}
	body, err := w.creator.Create(ctx, resources.Payments, payment)
	if err != nil {
		return &SecondaryStepError{SaleID: id, Err: err}
	}
	if gjson.Get(body, "success").Type == gjson.False {
		return &SecondaryStepError{SaleID: id, Err: errors.New(apiclient.GetMessage(body))}
	}
	return nil
}

func (w *Workflow) reportSecondary(ctx context.Context, err error) {
	w.log.Error("payment recording failed after successful sale", zap.Error(err))

	notice := domain.Notice{
		Kind:    domain.NoticePaymentFailed,
		Message: "The sale was saved but its payment could not be recorded.",
		Detail:  err.Error(),
		At:      w.now(),
	}
	if nerr := w.notifier.Notify(context.WithoutCancel(ctx), notice); nerr != nil {
		w.log.Warn("failed to deliver payment failure notice", zap.Error(nerr))
	}
}

func normalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}

// saleID reads the created sale's id from data.id, falling back to a top-level
// id.
func saleID(body string) string {
	if id := gjson.Get(body, "data.id"); id.Exists() && id.Type != gjson.Null {
		return id.String()
	}
	if id := gjson.Get(body, "id"); id.Exists() && id.Type != gjson.Null {
		return id.String()
	}
	return ""
}

// saleIDValue keeps numeric ids numeric on the wire.
func saleIDValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
