package cli

import (
	"os/signal"
	"syscall"

	"github.com/alovak/cardflow-paycharge/merchant"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the payment API over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg, slog.LevelDebug) // no floor
	if err != nil {
		return err
	}

	app := merchant.NewApp(logger, cfg)
	if err := app.Start(cmd.Context()); err != nil {
		return err
	}
	defer app.Shutdown()

	if err := app.Serve(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
