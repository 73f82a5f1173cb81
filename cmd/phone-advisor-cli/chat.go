package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/phone-advisor/internal/generation"
	"github.com/spherical-ai/phone-advisor/pkg/client"
)

func newChatCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a free-text question about phones",
		Long: `Chat answers from catalog data when retrieval finds relevant phones (type RAG)
and from the model's general knowledge otherwise (type GENERAL).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			return withBackend(cmd, timeout, func(ctx context.Context, b backend) error {
				if err := prepare(ctx, b); err != nil {
					return err
				}

				sp := ui.Spinner("Thinking...")
				reply, err := b.Chat(ctx, question)
				sp.Stop()
				if err != nil {
					if errors.Is(err, generation.ErrUnavailable) || errors.Is(err, client.ErrUnavailable) {
						return fmt.Errorf("the language model is unavailable, try again later: %w", err)
					}
					return err
				}

				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), reply)
				}
				if reply.Type == "RAG" {
					ui.Step("Answered from catalog data")
				} else {
					ui.Step("Answered from general knowledge")
				}
				ui.Text(reply.Reply)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout including index warm-up")
	return cmd
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <message>",
		Short: "Recommend phones from a free-text message",
		Example: `  phone-advisor recommend "samsung under 500 with a 5000mah battery"
  phone-advisor recommend "سامسونج بسعر أقل من ٥٠٠"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			return withBackend(cmd, 30*time.Second, func(ctx context.Context, b backend) error {
				rec, err := b.Recommend(ctx, message)
				if err != nil {
					return err
				}
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), rec)
				}
				ui.Info("%s", rec.Message)
				if len(rec.Recommendations) > 0 {
					matchTable(rec.Recommendations)
				}
				return nil
			})
		},
	}
	return cmd
}

// prepare warms the local index with a progress bar.
func prepare(ctx context.Context, b backend) error {
	start := time.Now()
	var (
		bar   *progressBar
		built bool
	)
	err := b.Prepare(ctx, func(done, total int) {
		if bar == nil {
			bar = newProgressBar(ui, "Embedding catalog", total)
		}
		bar.Set(done)
		built = true
	})
	bar.Finish()
	if err != nil {
		return err
	}
	if built {
		ui.Success("Semantic index built in %s", FormatDuration(time.Since(start)))
	}
	return nil
}
