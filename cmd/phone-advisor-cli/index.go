package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/spherical-ai/phone-advisor/internal/app"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the semantic index",
	}
	cmd.AddCommand(newIndexRebuildCmd())
	return cmd
}

func newIndexRebuildCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Re-embed the catalog and replace the semantic index",
		Long: `Rebuild embeds every phone, persists the vectors to the configured database
and swaps the new index in. The previous index stays live until the build
succeeds, and cached search results for it are dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, timeout, func(ctx context.Context, b backend) error {
				start := time.Now()

				var bar *progressBar
				sp := ui.Spinner("Rebuilding index...")
				res, err := b.RebuildIndex(ctx, func(done, total int) {
					if bar == nil {
						sp.Stop()
						bar = newProgressBar(ui, "Embedding", total)
					}
					bar.Set(done)
				})
				sp.Stop()
				bar.Finish()
				if errors.Is(err, app.ErrVectorSearchDisabled) {
					ui.Warning("No embedding endpoint configured (set EMBEDDING_BASE_URL)")
					return err
				}
				if err != nil {
					return err
				}

				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				ui.Success("Indexed %d documents in %s", res.Documents, FormatDuration(time.Since(start)))
				ui.KeyValue("Version", res.Version)
				ui.KeyValue("Model", res.Model)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "rebuild timeout")
	return cmd
}

// progressBar adapts an mpb bar to done/total callbacks. A nil *progressBar
// is a no-op.
type progressBar struct {
	ui  *UI
	bar *mpb.Bar
}

func newProgressBar(ui *UI, name string, total int) *progressBar {
	bar := ui.ProgressBar(name, int64(total))
	if bar == nil {
		return nil
	}
	return &progressBar{ui: ui, bar: bar}
}

// Set moves the bar to done.
func (p *progressBar) Set(done int) {
	if p == nil {
		return
	}
	p.bar.SetCurrent(int64(done))
}

// Finish completes or aborts the bar and flushes rendering.
func (p *progressBar) Finish() {
	if p == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.ui.Close()
}
