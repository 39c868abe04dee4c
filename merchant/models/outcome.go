package models

import "net/http"

type OutcomeKind string

const (
	OutcomeApproved       OutcomeKind = "approved"
	OutcomeDeclined       OutcomeKind = "declined"
	OutcomeTransportError OutcomeKind = "transport_error"
)

// Outcome is the result of one gateway submission. Diagnostic is set only
// for OutcomeTransportError.
type Outcome struct {
	Kind          OutcomeKind `json:"outcome"`
	Message       string      `json:"message"`
	GatewayCode   string      `json:"gateway_code,omitempty"`
	SubmissionID  string      `json:"submission_id"`
	TransactionID int64       `json:"transaction_id"`
	Diagnostic    *Diagnostic `json:"-"`
}

func (o Outcome) Approved() bool { return o.Kind == OutcomeApproved }

// Diagnostic captures what is known about a failed gateway exchange.
// Response fields are meaningful only when HasResponse is true; otherwise
// RequestData describes the request that got no answer.
type Diagnostic struct {
	HasResponse     bool
	ResponseStatus  int
	ResponseHeaders http.Header
	ResponseData    string
	RequestData     string
	Message         string
	Config          string
}
