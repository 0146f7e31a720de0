package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func servicesCmd() *cobra.Command {
	var (
		category string
		search   string
		locale   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the payable municipal services",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, ok := models.ParseLocale(locale)
			if !ok {
				return fmt.Errorf("unsupported locale %q", locale)
			}

			cat := catalog.Default()
			services := cat.All()
			if category != "" {
				services = cat.ByCategory(models.ServiceCategory(category))
			}
			if search != "" {
				services = cat.Search(search, loc)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(services)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tSATOSHIS\tEUR")
			for _, svc := range services {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					svc.ID, svc.Category, svc.Name.In(loc), svc.Price, svc.PriceEUR.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search names and descriptions")
	cmd.Flags().StringVarP(&locale, "locale", "l", "es", "Locale (es, en)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [address]",
		Short: "Show the payments recorded for a wallet address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, shutdown, err := setup()
			if err != nil {
				return err
			}
			defer shutdown()

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			history, err := a.facilitator.GetHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(history)
		},
	}
}
