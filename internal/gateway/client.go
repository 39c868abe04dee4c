// Package gateway talks to the hosted payment gateway's REST API.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/alovak/cardflow-paycharge/merchant/models"
)

const (
	OperationPay = "PAY"
	FundsCard    = "CARD"
	CodeApproved = "APPROVED"
)

// ErrTransport marks failures where no usable gateway answer was obtained.
var ErrTransport = errors.New("gateway transport failure")

// TransportError carries the diagnostic for a failed exchange.
type TransportError struct {
	Diagnostic models.Diagnostic
	Err        error
}

func (e *TransportError) Error() string {
	if e.Diagnostic.HasResponse {
		return fmt.Sprintf("%s: status=%d: %s", ErrTransport, e.Diagnostic.ResponseStatus, e.Diagnostic.Message)
	}
	return fmt.Sprintf("%s: %s", ErrTransport, e.Diagnostic.Message)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

type ChargeRequest struct {
	APIOperation  string        `json:"apiOperation"`
	Order         Order         `json:"order"`
	SourceOfFunds SourceOfFunds `json:"sourceOfFunds"`
}

type Order struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type SourceOfFunds struct {
	Type     string   `json:"type"`
	Provided Provided `json:"provided"`
}

type Provided struct {
	Card Card `json:"card"`
}

type Card struct {
	Number       string `json:"number"`
	SecurityCode string `json:"securityCode"`
	Expiry       Expiry `json:"expiry"`
}

type Expiry struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

// NewChargeRequest builds a PAY request for a provided card.
func NewChargeRequest(amount float64, currency string, card Card) ChargeRequest {
	return ChargeRequest{
		APIOperation: OperationPay,
		Order:        Order{Amount: amount, Currency: currency},
		SourceOfFunds: SourceOfFunds{
			Type:     FundsCard,
			Provided: Provided{Card: card},
		},
	}
}

// Response is the part of the gateway answer the merchant acts on.
type Response struct {
	GatewayCode     string `json:"gatewayCode"`
	AcquirerMessage string `json:"acquirerMessage"`
}

func (r Response) Approved() bool { return r.GatewayCode == CodeApproved }

type envelope struct {
	Result   string    `json:"result"`
	Response *Response `json:"response"`
}

type Client struct {
	Base       string
	APIVersion string
	MerchantID string
	HTTP       *http.Client
}

// New returns a client for base (scheme and host). A nil hc gets a client
// without a timeout, so calls block until the gateway answers or fails.
func New(base, apiVersion, merchantID string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		Base:       strings.TrimRight(base, "/"),
		APIVersion: apiVersion,
		MerchantID: merchantID,
		HTTP:       hc,
	}
}

// URL is the transaction resource for an order and transaction id.
func (c *Client) URL(orderNumber string, transactionID int64) string {
	return fmt.Sprintf("%s/api/rest/version/%s/merchant/%s/order/%s/transaction/%d",
		c.Base,
		url.PathEscape(c.APIVersion),
		url.PathEscape(c.MerchantID),
		url.PathEscape(orderNumber),
		transactionID,
	)
}

// Pay sends the charge. Any failure to obtain a decodable gateway answer is
// returned as *TransportError; a decline is a normal Response.
func (c *Client) Pay(ctx context.Context, orderNumber string, transactionID int64, charge ChargeRequest) (Response, error) {
	body, err := json.Marshal(charge)
	if err != nil {
		return Response{}, &TransportError{
			Diagnostic: models.Diagnostic{Message: fmt.Sprintf("encoding charge request: %v", err)},
			Err:        err,
		}
	}

	target := c.URL(orderNumber, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return Response{}, &TransportError{
			Diagnostic: models.Diagnostic{Message: fmt.Sprintf("building request: %v", err)},
			Err:        err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	config := c.describe(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, &TransportError{
			Diagnostic: models.Diagnostic{
				RequestData: req.Method + " " + target,
				Message:     err.Error(),
				Config:      config,
			},
			Err: err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	diag := models.Diagnostic{
		HasResponse:     true,
		ResponseStatus:  resp.StatusCode,
		ResponseHeaders: resp.Header,
		ResponseData:    strings.TrimSpace(string(raw)),
		Config:          config,
	}
	if err != nil {
		diag.Message = fmt.Sprintf("reading response body: %v", err)
		return Response{}, &TransportError{Diagnostic: diag, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		diag.Message = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		return Response{}, &TransportError{Diagnostic: diag}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		diag.Message = fmt.Sprintf("decoding gateway response: %v", err)
		return Response{}, &TransportError{Diagnostic: diag, Err: err}
	}
	if env.Response == nil {
		diag.Message = "gateway response has no response object"
		return Response{}, &TransportError{Diagnostic: diag}
	}
	return *env.Response, nil
}

// describe renders the request configuration for diagnostics. The body is
// left out because it carries card data.
func (c *Client) describe(req *http.Request) string {
	headers := make(map[string]string, len(req.Header))
	for k := range req.Header {
		headers[k] = req.Header.Get(k)
	}
	b, err := json.Marshal(struct {
		Method  string            `json:"method"`
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
		Timeout int64             `json:"timeout"`
	}{req.Method, req.URL.String(), headers, c.HTTP.Timeout.Milliseconds()})
	if err != nil {
		return "{}"
	}
	return string(b)
}
