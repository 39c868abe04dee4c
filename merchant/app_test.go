package merchant_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alovak/cardflow-paycharge/merchant"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newGatewayServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, gatewayURL string) *merchant.Config {
	dir := t.TempDir()
	cfg := merchant.DefaultConfig()
	cfg.APIVersion = "72"
	cfg.MerchantID = "TESTMERCHANT"
	cfg.GatewayDomain = gatewayURL
	cfg.LogPath = filepath.Join(dir, "error.log")
	cfg.SequenceFile = filepath.Join(dir, "transactionID.json")
	cfg.OrderFile = filepath.Join(dir, "orderNumber.json")
	cfg.HTTPAddr = "127.0.0.1:0"
	return cfg
}

func TestApp_ConsoleApprovedPersistsState(t *testing.T) {
	gw := newGatewayServer(t, http.StatusOK, `{"result":"SUCCESS","response":{"gatewayCode":"APPROVED","acquirerMessage":"Approved"}}`)
	cfg := testConfig(t, gw.URL)

	app := merchant.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.NoError(t, app.Start(context.Background()))
	defer app.Shutdown()

	input := "A1B2C3D4E5\n100.00\n4111111111111111\n12\n25\n123\nno\n"
	var out, errOut bytes.Buffer
	require.NoError(t, app.RunConsole(context.Background(), strings.NewReader(input), &out, &errOut))

	require.Contains(t, out.String(), "Payment Successful: Approved")
	require.Empty(t, errOut.String())

	seq, err := os.ReadFile(cfg.SequenceFile)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":2}`, string(seq))

	orders, err := os.ReadFile(cfg.OrderFile)
	require.NoError(t, err)
	require.JSONEq(t, `["A1B2C3D4E5"]`, string(orders))
}

func TestApp_ConsoleTransportErrorWritesLog(t *testing.T) {
	gw := newGatewayServer(t, http.StatusBadRequest, `{"error":"bad request"}`)
	cfg := testConfig(t, gw.URL)

	app := merchant.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.NoError(t, app.Start(context.Background()))
	defer app.Shutdown()

	input := "A1B2C3D4E5\n100.00\n4111111111111111\n12\n25\n123\nn\n"
	var out, errOut bytes.Buffer
	require.NoError(t, app.RunConsole(context.Background(), strings.NewReader(input), &out, &errOut))
	require.Equal(t, merchant.MsgTransportFailure+"\n", errOut.String())

	data, err := os.ReadFile(cfg.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Error response status: 400")

	seq, err := os.ReadFile(cfg.SequenceFile)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1}`, string(seq))
}

func TestApp_Serve(t *testing.T) {
	gw := newGatewayServer(t, http.StatusOK, `{"response":{"gatewayCode":"APPROVED","acquirerMessage":"Approved"}}`)
	cfg := testConfig(t, gw.URL)

	app := merchant.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Serve())
	defer app.Shutdown()

	base := "http://" + app.Addr

	for _, path := range []string{"/-/live", "/-/ready"} {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Post(base+"/payments", "application/json", strings.NewReader(paymentBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"transaction_id":2}`, string(body))
}

func TestApp_StartRequiresGatewaySettings(t *testing.T) {
	app := merchant.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), merchant.DefaultConfig())
	err := app.Start(context.Background())
	require.ErrorContains(t, err, "missing configuration")
}
