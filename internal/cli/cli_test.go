package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	addCommands()

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		configPath = ""
		verbose = false
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "paycharge.yaml")
	body := "sequence_file: " + filepath.Join(dir, "transactionID.json") + "\n" +
		"order_file: " + filepath.Join(dir, "orderNumber.json") + "\n" +
		"log_path: " + filepath.Join(dir, "error.log") + "\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestStateCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactionID.json"), []byte(`{"id":7}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orderNumber.json"), []byte(`["A1B2C3D4E5"]`), 0644))

	out, err := execute(t, "", "state", "--config", cfg)
	require.NoError(t, err)
	require.Contains(t, out, "Next transaction ID: 7")
	require.Contains(t, out, "Recorded orders:     1")

	out, err = execute(t, "", "state", "order", "A1B2C3D4E5", "--config", cfg)
	require.NoError(t, err)
	require.Equal(t, "A1B2C3D4E5: already charged\n", out)

	out, err = execute(t, "", "state", "order", "ZZZZZZZZZZ", "--config", cfg)
	require.NoError(t, err)
	require.Equal(t, "ZZZZZZZZZZ: unused\n", out)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paycharge.yaml")

	out, err := execute(t, "", "config", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Equal(t, "file", got["state_backend"])
	require.Equal(t, "transactionID.json", got["sequence_file"])

	_, err = execute(t, "", "config", "init", path)
	require.ErrorContains(t, err, "already exists")
}

func TestConsoleRequiresGatewaySettings(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "")
	_, err := execute(t, "", "--config", cfg)
	require.ErrorContains(t, err, "missing configuration")
}

func TestVersion(t *testing.T) {
	rootCmd.Version = "1.2.3"
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, "paycharge 1.2.3\n", out)
}
