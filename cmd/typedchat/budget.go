package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/typedchat/pkg/budget"
	"github.com/pario-ai/typedchat/pkg/config"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show usage against the configured budgets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Budgets) == 0 {
				fmt.Fprintln(out, "No budgets configured.")
				return nil
			}

			tr, err := openTracker(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			statuses, err := budget.New(cfg.Budgets, tr).Status(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPERIOD\tUSED TOKENS\tMAX TOKENS\tUSED USD\tMAX USD")
			for _, s := range statuses {
				model := s.Policy.Model
				if model == "" {
					model = "(all)"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t$%.4f\t%s\n",
					model, s.Policy.Period, s.UsedTokens, limitStr(float64(s.Policy.MaxTokens), "%.0f"),
					s.UsedUSD, limitStr(s.Policy.MaxCostUSD, "$%.2f"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "typedchat.yaml", "path to config file")
	return cmd
}

func limitStr(v float64, format string) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
