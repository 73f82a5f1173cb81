package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// evalCase is one line of an eval file: a message and, optionally, the phone
// expected among the recommendations.
type evalCase struct {
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
}

type evalResult struct {
	evalCase
	Count int    `json:"count"`
	Top   string `json:"top,omitempty"`
	Rank  int    `json:"rank,omitempty"` // 1-based rank of Expected, 0 when missing
	Error string `json:"error,omitempty"`
}

type evalSummary struct {
	Cases    int          `json:"cases"`
	Empty    int          `json:"empty"`
	Failed   int          `json:"failed"`
	Labeled  int          `json:"labeled"`
	Hits     int          `json:"hits"`
	Duration string       `json:"duration"`
	Results  []evalResult `json:"results"`
}

func newEvalCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run a file of chat messages through the recommender",
		Long: `Eval reads one message per line and reports how many phones each message
recommends. A line may name the phone expected among the results after a '|':

  samsung under 500 | Galaxy A15
  # comments and blank lines are ignored`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open eval file: %w", err)
			}
			defer f.Close()

			cases, err := parseEvalCases(f)
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				return fmt.Errorf("no messages in %s", file)
			}

			return withBackend(cmd, 10*time.Minute, func(ctx context.Context, b backend) error {
				summary := runEval(ctx, b, cases, newEvalBar(len(cases)))

				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), summary)
				}
				printEvalSummary(summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one message per line (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseEvalCases(r io.Reader) ([]evalCase, error) {
	var cases []evalCase
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c := evalCase{Message: line}
		if msg, expected, ok := strings.Cut(line, "|"); ok {
			c.Message = strings.TrimSpace(msg)
			c.Expected = strings.TrimSpace(expected)
		}
		if c.Message != "" {
			cases = append(cases, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read eval file: %w", err)
	}
	return cases, nil
}

func runEval(ctx context.Context, b backend, cases []evalCase, bar *progressbar.ProgressBar) evalSummary {
	start := time.Now()
	summary := evalSummary{Cases: len(cases), Results: make([]evalResult, 0, len(cases))}

	for _, c := range cases {
		res := evalResult{evalCase: c}
		rec, err := b.Recommend(ctx, c.Message)
		switch {
		case err != nil:
			res.Error = err.Error()
			summary.Failed++
		default:
			res.Count = len(rec.Recommendations)
			if res.Count == 0 {
				summary.Empty++
			} else {
				res.Top = rec.Recommendations[0].Name
			}
			for i, m := range rec.Recommendations {
				if c.Expected != "" && strings.EqualFold(m.Name, c.Expected) {
					res.Rank = i + 1
					break
				}
			}
		}
		if c.Expected != "" {
			summary.Labeled++
			if res.Rank > 0 {
				summary.Hits++
			}
		}
		summary.Results = append(summary.Results, res)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	summary.Duration = FormatDuration(time.Since(start))
	return summary
}

// newEvalBar returns nil in JSON mode.
func newEvalBar(total int) *progressbar.ProgressBar {
	if outputJSON {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Evaluating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("messages"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}

func printEvalSummary(s evalSummary) {
	rows := make([][]string, len(s.Results))
	for i, r := range s.Results {
		rank := "-"
		if r.Rank > 0 {
			rank = fmt.Sprintf("%d", r.Rank)
		}
		top := r.Top
		if r.Error != "" {
			top = "error: " + r.Error
		}
		rows[i] = []string{r.Message, fmt.Sprintf("%d", r.Count), top, r.Expected, rank}
	}
	ui.Table([]string{"Message", "Results", "Top", "Expected", "Rank"}, rows)

	ui.Section("Summary")
	ui.KeyValue("Messages", s.Cases)
	ui.KeyValue("Empty", s.Empty)
	ui.KeyValue("Failed", s.Failed)
	if s.Labeled > 0 {
		ui.KeyValue("Expected found", fmt.Sprintf("%d / %d", s.Hits, s.Labeled))
	}
	ui.KeyValue("Duration", s.Duration)
}
