// Package main provides the Phone Advisor CLI entrypoint.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/phone-advisor/internal/config"
	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool
	serverURL  string

	// Configuration, logger and output
	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "phone-advisor",
	Short: "Phone Advisor CLI for browsing, filtering and chatting about the phone catalog",
	Long: `Phone Advisor CLI runs the recommendation engine against the local catalog,
or against a running API server with --server.

Use this tool to:
- List brands, the price range and catalog maxima
- Filter and rank phones by budget, brand and specs
- Ask free-text questions, grounded in the catalog when possible
- Rebuild the semantic index

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "phone-advisor-cli",
		})

		ui = NewUI(cmd.OutOrStdout(), outputJSON, noColor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if ui != nil {
			ui.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API server URL (default: run in process)")

	rootCmd.AddCommand(newBrandsCmd())
	rootCmd.AddCommand(newPriceRangeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newRecommendCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"go":      runtime.Version(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "phone-advisor %s (%s, %s)\n", version, commit, runtime.Version())
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
