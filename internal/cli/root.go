package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/alovak/cardflow-paycharge/merchant"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	verbose    bool
	configPath string
	rootCmd    *cobra.Command
	addOnce    sync.Once
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "paycharge",
		Short: "paycharge - operator console for card payments",
		Long: `paycharge collects card payments from an operator and submits them to the
hosted payment gateway.

Without a subcommand it starts the interactive console.`,
		RunE:          runConsole, // Default action is the console
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default "+merchant.DefaultConfigFile+" if present)")
}

func addCommands() {
	addOnce.Do(func() {
		rootCmd.AddCommand(serveCmd)
		rootCmd.AddCommand(stateCmd)
		rootCmd.AddCommand(configCmd)
		rootCmd.AddCommand(versionCmd)
	})
}

// Execute runs the root command
func Execute(version string) error {
	addCommands()

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func loadConfig() (*merchant.Config, error) {
	cfg, err := merchant.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. floor raises the configured level,
// which keeps the console free of info lines; --verbose overrides both.
func newLogger(w io.Writer, cfg *merchant.Config, floor slog.Level) (*slog.Logger, error) {
	level, err := merchant.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if level < floor {
		level = floor
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg, slog.LevelWarn)
	if err != nil {
		return err
	}

	app := merchant.NewApp(logger, cfg)
	if err := app.Start(cmd.Context()); err != nil {
		return err
	}
	defer app.Shutdown()

	return app.RunConsole(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}
