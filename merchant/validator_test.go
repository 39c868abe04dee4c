package merchant

import (
	"context"
	"errors"
	"testing"

	"github.com/alovak/cardflow-paycharge/internal/state"
	"github.com/alovak/cardflow-paycharge/merchant/models"
	"github.com/stretchr/testify/require"
)

func validInput() models.TransactionInput {
	return models.TransactionInput{
		OrderNumber:     "A1B2C3D4E5",
		Amount:          "100.00",
		CardNumber:      "4111111111111111",
		CardExpiryMonth: "12",
		CardExpiryYear:  "25",
		CardCVV:         "123",
	}
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator(state.NewMemory())

	result, err := v.Validate(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, result.Valid())
	require.NoError(t, result.Err())
}

func TestValidator_DuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	orders := state.NewMemory()
	require.NoError(t, orders.Record(ctx, "A1B2C3D4E5"))

	v := NewValidator(orders)

	result, err := v.Validate(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, ValidationResult{MsgDuplicateOrderNumber}, result)

	// duplicate is reported even when every other rule fails too
	bad := models.TransactionInput{OrderNumber: "A1B2C3D4E5"}
	result, err = v.Validate(ctx, bad)
	require.NoError(t, err)
	require.Equal(t, MsgDuplicateOrderNumber, result[0])
}

type failingOrders struct{}

func (failingOrders) IsUnique(ctx context.Context, orderNumber string) (bool, error) {
	return false, errors.New("disk on fire")
}

func TestValidator_LookupFailure(t *testing.T) {
	_, err := NewValidator(failingOrders{}).Validate(context.Background(), validInput())
	require.ErrorContains(t, err, "checking order number")
}

func TestCheckFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *models.TransactionInput)
		want   ValidationResult
	}{
		{
			name:   "short order number",
			mutate: func(in *models.TransactionInput) { in.OrderNumber = "A1B2C3" },
			want:   ValidationResult{MsgInvalidOrderNumber},
		},
		{
			name:   "order number with symbols",
			mutate: func(in *models.TransactionInput) { in.OrderNumber = "A1B2C3D4E-" },
			want:   ValidationResult{MsgInvalidOrderNumber},
		},
		{
			name:   "amount without decimals",
			mutate: func(in *models.TransactionInput) { in.Amount = "100" },
			want:   ValidationResult{MsgAmountDecimalPlaces},
		},
		{
			name:   "amount with one decimal",
			mutate: func(in *models.TransactionInput) { in.Amount = "100.0" },
			want:   ValidationResult{MsgAmountDecimalPlaces},
		},
		{
			name:   "amount with three decimals",
			mutate: func(in *models.TransactionInput) { in.Amount = "100.000" },
			want:   ValidationResult{MsgAmountDecimalPlaces},
		},
		{
			name:   "amount not a number",
			mutate: func(in *models.TransactionInput) { in.Amount = "abc" },
			want:   ValidationResult{MsgAmountNotNumber},
		},
		{
			name:   "empty amount",
			mutate: func(in *models.TransactionInput) { in.Amount = "" },
			want:   ValidationResult{MsgAmountNotNumber},
		},
		{
			name:   "card number too short",
			mutate: func(in *models.TransactionInput) { in.CardNumber = "411111111111111" },
			want:   ValidationResult{"Invalid Card Number. It should be 16 numeric characters, but it has only 15 characters."},
		},
		{
			name:   "card number too long",
			mutate: func(in *models.TransactionInput) { in.CardNumber = "41111111111111111" },
			want:   ValidationResult{"Invalid Card Number. It should be 16 numeric characters, but it has 17 characters."},
		},
		{
			name:   "card number with letters",
			mutate: func(in *models.TransactionInput) { in.CardNumber = "411111111111111X" },
			want:   ValidationResult{MsgInvalidCardNumber},
		},
		{
			name:   "month out of range",
			mutate: func(in *models.TransactionInput) { in.CardExpiryMonth = "13" },
			want:   ValidationResult{MsgInvalidExpiryMonth},
		},
		{
			name:   "month zero",
			mutate: func(in *models.TransactionInput) { in.CardExpiryMonth = "00" },
			want:   ValidationResult{MsgInvalidExpiryMonth},
		},
		{
			name:   "single digit month",
			mutate: func(in *models.TransactionInput) { in.CardExpiryMonth = "1" },
			want:   ValidationResult{MsgInvalidExpiryMonth},
		},
		{
			name:   "four digit year",
			mutate: func(in *models.TransactionInput) { in.CardExpiryYear = "2025" },
			want:   ValidationResult{MsgInvalidExpiryYear},
		},
		{
			name:   "past year is accepted",
			mutate: func(in *models.TransactionInput) { in.CardExpiryYear = "01" },
		},
		{
			name:   "cvv too long",
			mutate: func(in *models.TransactionInput) { in.CardCVV = "1234" },
			want:   ValidationResult{MsgInvalidCVV},
		},
		{
			name:   "cvv with letters",
			mutate: func(in *models.TransactionInput) { in.CardCVV = "12a" },
			want:   ValidationResult{MsgInvalidCVV},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			require.Equal(t, tt.want, CheckFields(in))
		})
	}
}

func TestCheckFields_ReportsEveryViolationInOrder(t *testing.T) {
	in := models.TransactionInput{
		OrderNumber:     "123",
		Amount:          "12.5",
		CardNumber:      "4111",
		CardExpiryMonth: "13",
		CardExpiryYear:  "2",
		CardCVV:         "12",
	}

	require.Equal(t, ValidationResult{
		MsgInvalidOrderNumber,
		MsgAmountDecimalPlaces,
		"Invalid Card Number. It should be 16 numeric characters, but it has only 4 characters.",
		MsgInvalidExpiryMonth,
		MsgInvalidExpiryYear,
		MsgInvalidCVV,
	}, CheckFields(in))
}

func TestValidationError(t *testing.T) {
	err := ValidationResult{"first", "second"}.Err()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "first\nsecond", err.Error())
	require.Len(t, verr.Result, 2)
}
