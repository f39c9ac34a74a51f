package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/pricing"
)

func newCostCmd() *cobra.Command {
	var (
		configPath string
		since      string
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show estimated spend by model",
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceTime := beginningOfMonth()
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				sinceTime = t
			}

			tr, err := openTracker(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			summaries, err := tr.Summary(cmd.Context(), sinceTime)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), formatCostTable(summaries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "typedchat.yaml", "path to config file")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD, default: start of month)")
	return cmd
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func formatCostTable(summaries []models.UsageSummary) string {
	if len(summaries) == 0 {
		return "No cost data found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-30s %8s %12s %10s\n", "MODEL", "REQUESTS", "TOKENS", "EST. COST")
	b.WriteString(strings.Repeat("-", 63) + "\n")

	var totalCost float64
	for _, s := range summaries {
		name := s.Model
		if _, ok := pricing.Lookup(s.Model); !ok {
			name += " (unpriced)"
		}
		fmt.Fprintf(&b, "%-30s %8d %12d $%9.4f\n", name, s.RequestCount, s.TotalTokens, s.CostUSD)
		totalCost += s.CostUSD
	}
	b.WriteString(strings.Repeat("-", 63) + "\n")
	fmt.Fprintf(&b, "%52s $%9.4f\n", "TOTAL:", totalCost)
	return b.String()
}
