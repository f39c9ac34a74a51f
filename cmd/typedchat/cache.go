package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pario-ai/typedchat/pkg/cache"
	"github.com/pario-ai/typedchat/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the on-disk response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show disk cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDisk(configPath)
			if err != nil {
				return err
			}
			stats, err := d.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Directory: %s\nEntries:   %d\nSize:      %s\n",
				stats.Dir, stats.Entries, formatBytes(stats.TotalBytes))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all disk cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDisk(configPath)
			if err != nil {
				return err
			}
			n, err := d.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", n)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "typedchat.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func openDisk(configPath string) (*cache.Disk, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Directory == "" {
		return nil, errors.New("disk cache is disabled: set cache.directory in the config")
	}
	return cache.NewDisk(cfg.Cache.Directory, zerolog.Nop()), nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
