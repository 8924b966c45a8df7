// Package discover implements the one-shot interactive discovery
// command.
package discover

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/leadscout/cmd/common"
	"github.com/jonesrussell/leadscout/internal/orchestrator"
)

// Command returns the discover command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	var (
		query    string
		location string
		category string
		window   int
		tier     int
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run a one-shot discovery pass and print scored signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			outcome, err := deps.Orchestrator.Discover(cmd.Context(), orchestrator.Request{
				Query:       query,
				Location:    location,
				Category:    category,
				WindowHours: window,
				Tier:        tier,
				Strict:      strict,
				Interactive: true,
			})
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}

			result := deps.Dedup.Dedupe(outcome.Signals)
			scored := deps.Classifier.ScoreAll(result.Unique, location)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"signals":      scored,
				"rejected":     len(result.Rejected),
				"window_hours": outcome.WindowHours,
				"from_cache":   outcome.FromCache,
				"early_return": outcome.EarlyReturn,
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query (required)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "target location")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category filter")
	cmd.Flags().IntVarP(&window, "window", "w", 2, "lookback window in hours")
	cmd.Flags().IntVarP(&tier, "tier", "t", 0, "restrict to plugin tier (0 = all)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail hard when offline")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}
