package merchant

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alovak/cardflow-paycharge/internal/gateway"
	"github.com/alovak/cardflow-paycharge/internal/state"
	"github.com/stretchr/testify/require"
)

const validLines = "A1B2C3D4E5\n100.00\n4111111111111111\n12\n25\n123\n"

func runConsole(t *testing.T, gw Gateway, input string) (out, errOut string) {
	t.Helper()
	st := state.NewMemory()
	svc := NewService(st, st, gw, &fakeLog{}, testLogger())

	var o, e bytes.Buffer
	c := NewConsole(svc, strings.NewReader(input), &o, &e, testLogger())
	require.NoError(t, c.Run(context.Background()))
	return o.String(), e.String()
}

func TestConsole_ApprovedThenExit(t *testing.T) {
	out, errOut := runConsole(t, &fakeGateway{resp: approved()}, validLines+"no\n")

	require.Equal(t,
		PromptOrderNumber+PromptAmount+PromptCardNumber+PromptExpiryMonth+PromptExpiryYear+PromptCVV+
			"Payment Successful: Approved\n"+
			PromptContinue+MsgExiting+"\n",
		out)
	require.Empty(t, errOut)
}

func TestConsole_Declined(t *testing.T) {
	gw := &fakeGateway{resp: gateway.Response{GatewayCode: "DECLINED", AcquirerMessage: "Insufficient funds"}}
	out, _ := runConsole(t, gw, validLines+"n\n")
	require.Contains(t, out, "Payment Failed: Insufficient funds\n")
}

func TestConsole_TransportError(t *testing.T) {
	out, errOut := runConsole(t, &fakeGateway{err: errors.New("connection refused")}, validLines+"n\n")
	require.Equal(t, MsgTransportFailure+"\n", errOut)
	require.NotContains(t, out, "Payment")
}

func TestConsole_ValidationErrorsOnePerLine(t *testing.T) {
	gw := &fakeGateway{resp: approved()}
	input := "A1B2C3D4E5\n100\n4111111111111111\n13\n25\n123\nn\n"

	_, errOut := runConsole(t, gw, input)
	require.Equal(t, MsgAmountDecimalPlaces+"\n"+MsgInvalidExpiryMonth+"\n", errOut)
	require.Zero(t, gw.calls)
}

func TestConsole_ContinueAnswers(t *testing.T) {
	gw := &fakeGateway{resp: approved()}
	second := strings.Replace(validLines, "A1B2C3D4E5", "B1B2C3D4E5", 1)
	input := validLines + "maybe\nYES\n" + second + "N\n"

	out, _ := runConsole(t, gw, input)
	require.Equal(t, 1, strings.Count(out, MsgInvalidContinue))
	require.Equal(t, 2, strings.Count(out, "Payment Successful: Approved"))
	require.True(t, strings.HasSuffix(out, MsgExiting+"\n"))
	require.Equal(t, 2, gw.calls)
}

func TestConsole_EOFEndsLoop(t *testing.T) {
	gw := &fakeGateway{resp: approved()}

	out, _ := runConsole(t, gw, "A1B2C3")
	require.NotContains(t, out, MsgExiting)
	require.Zero(t, gw.calls)

	out, _ = runConsole(t, gw, validLines)
	require.Contains(t, out, "Payment Successful")
	require.True(t, strings.HasSuffix(out, PromptContinue))
}

func TestConsole_CRLFInput(t *testing.T) {
	gw := &fakeGateway{resp: approved()}
	input := strings.ReplaceAll(validLines+"n\n", "\n", "\r\n")

	out, errOut := runConsole(t, gw, input)
	require.Empty(t, errOut)
	require.Contains(t, out, "Payment Successful")
	require.Equal(t, "A1B2C3D4E5", gw.orderNo)
}
