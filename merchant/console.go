package merchant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alovak/cardflow-paycharge/merchant/models"
	"golang.org/x/exp/slog"
)

const (
	PromptOrderNumber = "Enter Order Number: "
	PromptAmount      = "Enter Amount: "
	PromptCardNumber  = "Enter Card Number: "
	PromptExpiryMonth = "Enter Card Expiry Month (MM): "
	PromptExpiryYear  = "Enter Card Expiry Year (YY): "
	PromptCVV         = "Enter Card CVV: "
	PromptContinue    = "Do you want to process another payment? (yes/no): "

	MsgTransportFailure = "An error occurred while processing the payment. Please check the logs for more details."
	MsgExiting          = "Exiting the application."
	MsgInvalidContinue  = `Invalid input. Please enter "yes/y" or "no/n".`
)

// Console is the interactive operator loop. Prompts and results go to out,
// failures to errOut.
type Console struct {
	svc    *Service
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func NewConsole(svc *Service, in io.Reader, out, errOut io.Writer, logger *slog.Logger) *Console {
	return &Console{
		svc:    svc,
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		logger: logger,
	}
}

// Run collects and submits payments until the operator says no or input
// ends. No single payment failure stops the loop.
func (c *Console) Run(ctx context.Context) error {
	for {
		in, err := c.readInput()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		c.handle(ctx, in)

		again, err := c.askContinue()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !again {
			fmt.Fprintln(c.out, MsgExiting)
			return nil
		}
	}
}

func (c *Console) readInput() (models.TransactionInput, error) {
	var in models.TransactionInput
	fields := []struct {
		prompt string
		dst    *string
	}{
		{PromptOrderNumber, &in.OrderNumber},
		{PromptAmount, &in.Amount},
		{PromptCardNumber, &in.CardNumber},
		{PromptExpiryMonth, &in.CardExpiryMonth},
		{PromptExpiryYear, &in.CardExpiryYear},
		{PromptCVV, &in.CardCVV},
	}
	for _, f := range fields {
		v, err := c.ask(f.prompt)
		if err != nil {
			return in, err
		}
		*f.dst = v
	}
	return in, nil
}

func (c *Console) handle(ctx context.Context, in models.TransactionInput) {
	outcome, err := c.svc.Process(ctx, in)

	var verr *ValidationError
	if errors.As(err, &verr) {
		for _, msg := range verr.Result {
			fmt.Fprintln(c.errOut, msg)
		}
		return
	}

	switch outcome.Kind {
	case models.OutcomeApproved:
		fmt.Fprintln(c.out, "Payment Successful:", outcome.Message)
	case models.OutcomeDeclined:
		fmt.Fprintln(c.out, "Payment Failed:", outcome.Message)
	case models.OutcomeTransportError:
		fmt.Fprintln(c.errOut, MsgTransportFailure)
	}

	if err != nil {
		c.logger.Error("processing payment", "err", err)
		fmt.Fprintln(c.errOut, err.Error())
	}
}

func (c *Console) askContinue() (bool, error) {
	for {
		answer, err := c.ask(PromptContinue)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		fmt.Fprintln(c.out, MsgInvalidContinue)
	}
}

// ask prints prompt and reads one line without its terminator. A final line
// without a newline is still returned; io.EOF comes only when nothing was read.
func (c *Console) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
