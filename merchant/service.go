package merchant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alovak/cardflow-paycharge/internal/expiry"
	"github.com/alovak/cardflow-paycharge/internal/gateway"
	"github.com/alovak/cardflow-paycharge/internal/pan"
	"github.com/alovak/cardflow-paycharge/merchant/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// Currency is the only currency the merchant charges in.
const Currency = "NZD"

// ErrCommit means the gateway approved the charge but local state could not
// be updated afterwards.
var ErrCommit = errors.New("committing approved payment")

// SequenceStore hands out the gateway transaction id.
type SequenceStore interface {
	Current(ctx context.Context) (int64, error)
	Advance(ctx context.Context) error
}

// OrderRegistry remembers every order number that was charged.
type OrderRegistry interface {
	IsUnique(ctx context.Context, orderNumber string) (bool, error)
	Record(ctx context.Context, orderNumber string) error
}

type Gateway interface {
	Pay(ctx context.Context, orderNumber string, transactionID int64, charge gateway.ChargeRequest) (gateway.Response, error)
}

type DiagnosticLog interface {
	Write(d models.Diagnostic) error
}

type counter interface {
	Count(ctx context.Context) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Service validates submissions, sends them to the gateway and commits the
// durable state only after an approval.
type Service struct {
	seq       SequenceStore
	orders    OrderRegistry
	gateway   Gateway
	diag      DiagnosticLog
	validator *Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(seq SequenceStore, orders OrderRegistry, gw Gateway, diag DiagnosticLog, logger *slog.Logger) *Service {
	return &Service{
		seq:       seq,
		orders:    orders,
		gateway:   gw,
		diag:      diag,
		validator: NewValidator(orders),
		logger:    logger,
		now:       time.Now,
	}
}

// Validate checks a submission against every field rule and the order registry.
func (s *Service) Validate(ctx context.Context, in models.TransactionInput) (ValidationResult, error) {
	return s.validator.Validate(ctx, in)
}

// Process validates in and submits it when valid. A rejected submission
// returns a *ValidationError and touches nothing.
func (s *Service) Process(ctx context.Context, in models.TransactionInput) (models.Outcome, error) {
	result, err := s.validator.Validate(ctx, in)
	if err != nil {
		return models.Outcome{}, err
	}
	if err := result.Err(); err != nil {
		return models.Outcome{}, err
	}
	return s.Submit(ctx, in)
}

// Submit sends an already validated submission to the gateway. At most one
// gateway call is made. Only an approval advances the sequence and records
// the order number; a decline or a transport failure leaves state untouched.
func (s *Service) Submit(ctx context.Context, in models.TransactionInput) (models.Outcome, error) {
	outcome := models.Outcome{SubmissionID: uuid.New().String()}
	logger := s.logger.With(
		slog.String("submission_id", outcome.SubmissionID),
		slog.String("order_number", in.OrderNumber),
		slog.String("card", pan.Mask(in.CardNumber)),
	)

	txID, err := s.seq.Current(ctx)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("reading transaction id: %w", err)
	}
	outcome.TransactionID = txID
	logger = logger.With(slog.Int64("transaction_id", txID))

	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("parsing amount: %w", err)
	}
	s.warnIfExpired(logger, in)

	charge := gateway.NewChargeRequest(amount.InexactFloat64(), Currency, gateway.Card{
		Number:       in.CardNumber,
		SecurityCode: in.CardCVV,
		Expiry: gateway.Expiry{
			Month: in.CardExpiryMonth,
			Year:  in.CardExpiryYear,
		},
	})

	logger.Debug("sending charge", slog.String("amount", amount.String()))
	resp, err := s.gateway.Pay(ctx, in.OrderNumber, txID, charge)
	if err != nil {
		return s.transportFailure(logger, outcome, err)
	}

	outcome.GatewayCode = resp.GatewayCode
	outcome.Message = resp.AcquirerMessage
	if !resp.Approved() {
		outcome.Kind = models.OutcomeDeclined
		logger.Info("payment declined", slog.String("gateway_code", resp.GatewayCode), slog.String("acquirer_message", resp.AcquirerMessage))
		return outcome, nil
	}

	outcome.Kind = models.OutcomeApproved
	if err := s.seq.Advance(ctx); err != nil {
		logger.Error("advancing transaction id after approval", "err", err)
		return outcome, fmt.Errorf("%w: advancing transaction id: %w", ErrCommit, err)
	}
	if err := s.orders.Record(ctx, in.OrderNumber); err != nil {
		logger.Error("recording order number after approval", "err", err)
		return outcome, fmt.Errorf("%w: recording order number: %w", ErrCommit, err)
	}
	logger.Info("payment approved", slog.String("acquirer_message", resp.AcquirerMessage))
	return outcome, nil
}

func (s *Service) transportFailure(logger *slog.Logger, outcome models.Outcome, err error) (models.Outcome, error) {
	var diag models.Diagnostic
	var terr *gateway.TransportError
	if errors.As(err, &terr) {
		diag = terr.Diagnostic
	} else {
		diag = models.Diagnostic{Message: err.Error()}
	}

	outcome.Kind = models.OutcomeTransportError
	outcome.Message = diag.Message
	outcome.Diagnostic = &diag

	attrs := []any{"err", err}
	if diag.HasResponse {
		attrs = append(attrs, slog.Int("status", diag.ResponseStatus))
	}
	logger.Error("gateway call failed", attrs...)

	if werr := s.diag.Write(diag); werr != nil {
		return outcome, fmt.Errorf("writing diagnostic log: %w", werr)
	}
	return outcome, nil
}

// warnIfExpired only logs; validation deliberately accepts past expiry dates.
func (s *Service) warnIfExpired(logger *slog.Logger, in models.TransactionInput) {
	yymm, err := expiry.FromCardFields(in.CardExpiryMonth, in.CardExpiryYear)
	if err != nil {
		return
	}
	if expired, err := expiry.IsExpired(yymm, s.now(), time.UTC); err == nil && expired {
		logger.Warn("card expiry is in the past; submitting anyway", slog.String("expiry_yymm", yymm))
	}
}

// CurrentTransactionID returns the id the next submission will use.
func (s *Service) CurrentTransactionID(ctx context.Context) (int64, error) {
	return s.seq.Current(ctx)
}

func (s *Service) IsOrderUnique(ctx context.Context, orderNumber string) (bool, error) {
	return s.orders.IsUnique(ctx, orderNumber)
}

// OrderCount returns the number of recorded orders, or -1 when the registry
// cannot count.
func (s *Service) OrderCount(ctx context.Context) (int, error) {
	c, ok := s.orders.(counter)
	if !ok {
		return -1, nil
	}
	return c.Count(ctx)
}

// Ping checks that the state backends answer.
func (s *Service) Ping(ctx context.Context) error {
	for _, st := range []any{s.seq, s.orders} {
		if p, ok := st.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
