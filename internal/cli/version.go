package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "paycharge %s\n", rootCmd.Version)
	},
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
