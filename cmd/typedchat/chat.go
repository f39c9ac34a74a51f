package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/typedchat/pkg/budget"
	"github.com/pario-ai/typedchat/pkg/client"
	"github.com/pario-ai/typedchat/pkg/config"
	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/schema"
	"github.com/pario-ai/typedchat/pkg/tracker"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		system     string
		model      string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a prompt and print the answer (reads stdin when no prompt is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Model = model
			}
			logger := newLogger(cfg.Log)

			prompt := strings.Join(args, " ")
			if prompt == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = strings.TrimSpace(string(data))
			}
			if prompt == "" {
				return fmt.Errorf("empty prompt")
			}

			responseFormat, err := parseFormat(format)
			if err != nil {
				return err
			}

			opts, err := client.FromConfig(cfg)
			if err != nil {
				return err
			}
			opts.Logger = &logger
			if cfg.Usage.DBPath != "" {
				tr, err := tracker.New(cfg.Usage.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = tr.Close() }()
				opts.Tracker = tr
				if len(cfg.Budgets) > 0 {
					opts.Budget = budget.New(cfg.Budgets, tr)
				}
			}

			c, err := client.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var messages []models.ChatMessage
			if system != "" {
				messages = append(messages, models.SystemMessage(system))
			}
			messages = append(messages, models.UserMessage(prompt))

			res, err := c.Complete(ctx, models.ChatRequest{
				Messages:       messages,
				ResponseFormat: responseFormat,
				Sampling:       cfg.Sampling,
			})
			if err != nil {
				return err
			}

			logger.Info().
				Str("source", string(res.Source)).
				Str("key", res.Key.String()).
				Int("total_tokens", c.Usage().TotalTokens).
				Msg("chat complete")
			fmt.Fprintln(cmd.OutOrStdout(), res.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "typedchat.yaml", "path to config file")
	cmd.Flags().StringVarP(&system, "system", "s", "", "system prompt")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use (overrides config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "response format: text or json_object")
	return cmd
}

func parseFormat(name string) (*models.ResponseFormat, error) {
	switch name {
	case "", models.FormatText:
		return nil, nil
	case models.FormatJSONObject:
		f := schema.JSONObject()
		return &f, nil
	default:
		return nil, fmt.Errorf("unknown --format %q (use text or json_object)", name)
	}
}
