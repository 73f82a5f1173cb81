package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/phone-advisor/pkg/client"
)

func newBrandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brands",
		Short: "List catalog brands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, 30*time.Second, func(ctx context.Context, b backend) error {
				brands, err := b.Brands(ctx)
				if err != nil {
					return err
				}
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), brands)
				}
				for _, brand := range brands {
					ui.Text(brand)
				}
				return nil
			})
		},
	}
}

func newPriceRangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price-range",
		Short: "Show the cheapest and most expensive price",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, 30*time.Second, func(ctx context.Context, b backend) error {
				pr, err := b.PriceRange(ctx)
				if err != nil {
					return err
				}
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), pr)
				}
				ui.KeyValue("Min", formatPrice(pr.Min))
				ui.KeyValue("Max", formatPrice(pr.Max))
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog maxima used for scoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, 30*time.Second, func(ctx context.Context, b backend) error {
				s, err := b.Stats(ctx)
				if err != nil {
					return err
				}
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), s)
				}
				ui.KeyValue("Max price", formatPrice(s.MaxPrice))
				ui.KeyValue("Max battery", fmt.Sprintf("%d mAh", s.MaxBattery))
				ui.KeyValue("Max RAM", fmt.Sprintf("%d MB", s.MaxRAM))
				ui.KeyValue("Max camera", fmt.Sprintf("%d MP", s.MaxCamera))
				return nil
			})
		},
	}
}

func newFilterCmd() *cobra.Command {
	var (
		brand      string
		minPrice   float64
		maxPrice   float64
		minBattery int
		minRAM     int
		minCamera  int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter and rank phones by preferences",
		Example: `  phone-advisor filter --brand Samsung --max-price 600
  phone-advisor filter --min-battery 5000 --min-ram 8192 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefs client.Preferences
			flags := cmd.Flags()
			if flags.Changed("brand") {
				prefs.Brand = &brand
			}
			if flags.Changed("min-price") {
				prefs.MinPrice = &minPrice
			}
			if flags.Changed("max-price") {
				prefs.MaxPrice = &maxPrice
			}
			if flags.Changed("min-battery") {
				prefs.MinBattery = &minBattery
			}
			if flags.Changed("min-ram") {
				prefs.MinRAM = &minRAM
			}
			if flags.Changed("min-camera") {
				prefs.MinCameraMP = &minCamera
			}

			return withBackend(cmd, 30*time.Second, func(ctx context.Context, b backend) error {
				resp, err := b.Filter(ctx, prefs)
				if err != nil {
					return err
				}
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), resp)
				}
				if resp.Count == 0 {
					ui.Warning("No phones match these preferences")
					return nil
				}
				shown := resp.Results
				if limit > 0 && len(shown) > limit {
					shown = shown[:limit]
				}
				ui.Info("%d phones match, showing %d", resp.Count, len(shown))
				matchTable(shown)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "preferred brand (case-insensitive)")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price (budget)")
	cmd.Flags().IntVar(&minBattery, "min-battery", 0, "minimum battery capacity in mAh")
	cmd.Flags().IntVar(&minRAM, "min-ram", 0, "minimum RAM in MB")
	cmd.Flags().IntVar(&minCamera, "min-camera", 0, "minimum rear camera in MP")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to print (0 for all)")

	return cmd
}

func matchTable(matches []client.Match) {
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			m.Name,
			m.Brand,
			formatPrice(m.Price),
			fmt.Sprintf("%d", m.Battery),
			fmt.Sprintf("%d", m.RAM),
			fmt.Sprintf("%d", m.CameraMP),
			fmt.Sprintf("%.2f%%", m.MatchPercentage),
			strings.Join(m.Reasons, "; "),
		}
	}
	ui.Table([]string{"#", "Name", "Brand", "Price", "Battery", "RAM", "Camera", "Match", "Reasons"}, rows)
}

// withBackend opens the backend, runs fn under a timeout and closes it.
func withBackend(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, b backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, b)
}

func formatPrice(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
