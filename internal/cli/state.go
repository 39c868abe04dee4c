package cli

import (
	"fmt"

	"github.com/alovak/cardflow-paycharge/merchant"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the next transaction id and recorded orders",
	Args:  cobra.NoArgs,
	RunE:  runState,
}

var stateOrderCmd = &cobra.Command{
	Use:   "order <order-number>",
	Short: "Check whether an order number is still unused",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateOrder,
}

func init() {
	stateCmd.AddCommand(stateOrderCmd)
}

func openState(cmd *cobra.Command) (*merchant.Stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return merchant.OpenStores(cmd.Context(), cfg)
}

func runState(cmd *cobra.Command, args []string) error {
	stores, err := openState(cmd)
	if err != nil {
		return err
	}
	defer stores.Close()

	svc := merchant.NewService(stores.Sequence, stores.Orders, nil, nil, nopLogger())
	id, err := svc.CurrentTransactionID(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Next transaction ID: %d\n", id)

	n, err := svc.OrderCount(cmd.Context())
	if err != nil {
		return err
	}
	if n >= 0 {
		fmt.Fprintf(out, "Recorded orders:     %d\n", n)
	}
	return nil
}

func runStateOrder(cmd *cobra.Command, args []string) error {
	stores, err := openState(cmd)
	if err != nil {
		return err
	}
	defer stores.Close()

	svc := merchant.NewService(stores.Sequence, stores.Orders, nil, nil, nopLogger())
	unique, err := svc.IsOrderUnique(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if unique {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: unused\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: already charged\n", args[0])
	}
	return nil
}
