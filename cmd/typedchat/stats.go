package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/typedchat/pkg/config"
	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		recent     int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show token usage recorded in the usage ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := openTracker(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// Recent request view
			if recent > 0 {
				records, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				return writeRecords(out, records)
			}

			// Default: usage summary
			summaries, err := tr.Summary(ctx, time.Time{})
			if err != nil {
				return err
			}
			return writeSummaries(out, summaries)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "typedchat.yaml", "path to config file")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent requests instead of the summary")
	return cmd
}

func openTracker(configPath string) (*tracker.SQLiteTracker, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Usage.DBPath == "" {
		return nil, errors.New("usage ledger is disabled: set usage.db_path in the config")
	}
	return tracker.New(cfg.Usage.DBPath)
}

func writeSummaries(out io.Writer, summaries []models.UsageSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No usage data found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tREQUESTS\tPROMPT\tCACHED\tCOMPLETION\tTOTAL")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			s.Model, s.RequestCount, s.TotalPrompt, s.TotalCached, s.TotalCompletion, s.TotalTokens)
	}
	return w.Flush()
}

func writeRecords(out io.Writer, records []models.UsageRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No requests found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMODEL\tFINGERPRINT\tPROMPT\tCOMPLETION\tTOTAL\tCOST")
	for _, r := range records {
		fp := r.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t$%.4f\n",
			r.CreatedAt.Format("2006-01-02T15:04:05"), r.Model, fp,
			r.PromptTokens, r.CompletionTokens, r.TotalTokens, r.CostUSD)
	}
	return w.Flush()
}
