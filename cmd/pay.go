package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/akylbek/payment-system/x402-pay/internal/announcer"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func payCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pay [service-id]",
		Short: "Pay for a service and wait for the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, shutdown, err := setup()
			if err != nil {
				return err
			}
			defer shutdown()

			out := cmd.OutOrStdout()
			a, err := newApp(cfg, printer(out))
			if err != nil {
				return err
			}
			defer a.Close()

			svc, ok := a.catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", models.ErrUnknownService, args[0])
			}

			w, err := a.connectWallet(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wallet %s (%s), balance %d satoshis\n", w.Address, w.Network, *w.Balance)

			snap, err := a.session.Start(cmd.Context(), svc)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			if snap.State == models.StateFailed {
				return fmt.Errorf("payment failed: %s", snap.Error)
			}
			fmt.Fprintf(out, "Paid %s: txid %s, receipt %s\n",
				svc.Name.In(a.session.Locale()), snap.Confirmation.TxID, snap.Confirmation.Receipt.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Print the final session snapshot as JSON")
	return cmd
}

// printer renders announcements on the terminal.
func printer(out io.Writer) announcer.Func {
	return func(_ context.Context, e models.SessionEvent) {
		line := fmt.Sprintf("[%s] %s", e.State, e.Phrase)
		if e.Error != "" {
			line += ": " + e.Error
		}
		fmt.Fprintln(out, line)
		if e.Accessibility != nil {
			for _, step := range e.Accessibility.StepByStep {
				fmt.Fprintln(out, "    "+step)
			}
		}
	}
}
