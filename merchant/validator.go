package merchant

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alovak/cardflow-paycharge/internal/pan"
	"github.com/alovak/cardflow-paycharge/merchant/models"
	"github.com/shopspring/decimal"
)

const (
	OrderNumberLength     = 10
	AmountDecimalPlaces   = 2
	CardNumberLength      = 16
	CardExpiryMonthMin    = 1
	CardExpiryMonthMax    = 12
	CardExpiryMonthLength = 2
	CardExpiryYearLength  = 2
	CardCVVLength         = 3
)

var (
	MsgDuplicateOrderNumber = "Order Number already exists. Please use a unique Order Number."
	MsgInvalidOrderNumber   = fmt.Sprintf("Invalid Order Number. It should be %d alphanumeric characters.", OrderNumberLength)
	MsgAmountNotNumber      = "Invalid Amount. It should be a number."
	MsgAmountDecimalPlaces  = fmt.Sprintf("Invalid Amount. It should be a number rounded to %d decimal places.", AmountDecimalPlaces)
	MsgInvalidCardNumber    = fmt.Sprintf("Invalid Card Number. It should be %d numeric characters.", CardNumberLength)
	MsgInvalidExpiryMonth   = fmt.Sprintf("Invalid Card Expiry Month. It should be a %d-digit number between %02d and %02d.", CardExpiryMonthLength, CardExpiryMonthMin, CardExpiryMonthMax)
	MsgInvalidExpiryYear    = fmt.Sprintf("Invalid Card Expiry Year. It should be a %d-digit number.", CardExpiryYearLength)
	MsgInvalidCVV           = fmt.Sprintf("Invalid Card CVV. It should be a %d-digit number.", CardCVVLength)
)

// ValidationResult lists every rule violation in rule order. Empty means valid.
type ValidationResult []string

func (r ValidationResult) Valid() bool { return len(r) == 0 }

// Err returns nil for a valid result, otherwise a *ValidationError.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Result: r}
}

// ValidationError rejects a whole submission.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Result, "\n")
}

// OrderChecker answers whether an order number has been charged before.
type OrderChecker interface {
	IsUnique(ctx context.Context, orderNumber string) (bool, error)
}

type Validator struct {
	orders OrderChecker
}

func NewValidator(orders OrderChecker) *Validator {
	return &Validator{orders: orders}
}

// Validate runs every rule and collects all violations; it never stops at
// the first one. The error is only for a failing order-number lookup.
func (v *Validator) Validate(ctx context.Context, in models.TransactionInput) (ValidationResult, error) {
	var result ValidationResult

	unique, err := v.orders.IsUnique(ctx, in.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("checking order number: %w", err)
	}
	if !unique {
		result = append(result, MsgDuplicateOrderNumber)
	}

	return append(result, CheckFields(in)...), nil
}

// CheckFields applies the format rules that need no stored state.
func CheckFields(in models.TransactionInput) ValidationResult {
	var result ValidationResult

	if length(in.OrderNumber) != OrderNumberLength || !pan.IsAlnum(in.OrderNumber) {
		result = append(result, MsgInvalidOrderNumber)
	}

	if !isNumeric(in.Amount) {
		result = append(result, MsgAmountNotNumber)
	} else if parts := strings.Split(in.Amount, "."); len(parts) != 2 || len(parts[1]) != AmountDecimalPlaces {
		result = append(result, MsgAmountDecimalPlaces)
	}

	// no negative or minimum check on the amount; the gateway rejects those
	if n := length(in.CardNumber); n != CardNumberLength {
		if n > CardNumberLength {
			result = append(result, fmt.Sprintf("Invalid Card Number. It should be %d numeric characters, but it has %d characters.", CardNumberLength, n))
		} else {
			result = append(result, fmt.Sprintf("Invalid Card Number. It should be %d numeric characters, but it has only %d characters.", CardNumberLength, n))
		}
	} else if !pan.IsDigits(in.CardNumber) {
		result = append(result, MsgInvalidCardNumber)
	}

	if !validMonth(in.CardExpiryMonth) {
		result = append(result, MsgInvalidExpiryMonth)
	}

	// no calendar check: a past year is still submitted
	if !isNumeric(in.CardExpiryYear) || length(in.CardExpiryYear) != CardExpiryYearLength {
		result = append(result, MsgInvalidExpiryYear)
	}

	if length(in.CardCVV) != CardCVVLength || !pan.IsDigits(in.CardCVV) {
		result = append(result, MsgInvalidCVV)
	}

	return result
}

// validMonth checks the raw string: "1" fails on length before its value is
// ever compared to the range.
func validMonth(month string) bool {
	if !isNumeric(month) || length(month) != CardExpiryMonthLength {
		return false
	}
	v := decimal.RequireFromString(month)
	return v.GreaterThanOrEqual(decimal.NewFromInt(CardExpiryMonthMin)) &&
		v.LessThanOrEqual(decimal.NewFromInt(CardExpiryMonthMax))
}

func isNumeric(s string) bool {
	_, err := decimal.NewFromString(s)
	return err == nil
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
