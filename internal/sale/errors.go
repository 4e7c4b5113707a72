package sale

import (
	"errors"
	"fmt"
)

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrEmptyCart            = &ValidationError{Field: "cart", Message: "cart is empty"}
	ErrMissingPhone         = &ValidationError{Field: "customerPhone", Message: "customer phone is required"}
	ErrInvalidPaymentMethod = &ValidationError{Field: "paymentMethod", Message: "payment method must be CASH or CREDIT"}
)

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// SecondaryStepError is a payment recording failure after the sale itself
// succeeded. It is reported, never returned as the submit error.
type SecondaryStepError struct {
	SaleID string
	Err    error
}

func (e *SecondaryStepError) Error() string {
	return fmt.Sprintf("record payment for sale %s: %v", e.SaleID, e.Err)
}

func (e *SecondaryStepError) Unwrap() error {
	return e.Err
}
