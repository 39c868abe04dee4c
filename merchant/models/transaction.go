package models

// TransactionInput is one operator submission exactly as typed. It is never
// persisted.
type TransactionInput struct {
	OrderNumber     string `json:"orderNumber"`
	Amount          string `json:"amount"`
	CardNumber      string `json:"cardNumber"`
	CardExpiryMonth string `json:"cardExpiryMonth"`
	CardExpiryYear  string `json:"cardExpiryYear"`
	CardCVV         string `json:"cardCVV"`
}
