// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yingkitw/anycli/internal/learning"
	"github.com/yingkitw/anycli/pkg/types"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Manage learned command corrections",
	Long: `Learn manages the correction log that feeds the translation fast path.
Record a correction after a wrong translation, list what has been learned,
or show per-provider statistics.`,
}

var learnRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a corrected command for a query",
	RunE:  runLearnRecord,
}

func runLearnRecord(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	corrected, _ := cmd.Flags().GetString("corrected")
	failed, _ := cmd.Flags().GetString("failed")
	if query == "" || corrected == "" {
		return fmt.Errorf("--query and --corrected are required")
	}

	store, err := openLearningStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var provider types.Provider
	if fields := strings.Fields(corrected); len(fields) > 0 {
		provider = types.ParseProvider(fields[0])
	}
	if err := store.Record(query, corrected, failed, provider); err != nil {
		return err
	}
	fmt.Printf("learned: %q -> %s\n", query, corrected)
	return nil
}

var learnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned corrections, newest first",
	RunE:  runLearnList,
}

func runLearnList(cmd *cobra.Command, args []string) error {
	store, err := openLearningStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records := store.All()
	if len(records) == 0 {
		fmt.Println("No corrections learned yet.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-19s  %-8s  %-40s  %s\n", "Recorded", "Provider", "Query", "Command")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range records {
		query := r.Query
		if len(query) > 40 {
			query = query[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-19s  %-8s  %-40s  %s\n",
			r.RecordedAt.Format("2006-01-02 15:04:05"), r.Provider, query, r.Corrected)
	}
	fmt.Fprintf(os.Stdout, "\n%d corrections\n", len(records))
	return nil
}

var learnStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show correction counts per provider",
	RunE:  runLearnStats,
}

func runLearnStats(cmd *cobra.Command, args []string) error {
	store, err := openLearningStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats := store.Stats()
	total := 0
	for _, p := range types.AllProviders() {
		if n := stats[p]; n > 0 {
			fmt.Printf("%-10s %d\n", p, n)
			total += n
		}
	}
	if n := stats[""]; n > 0 {
		fmt.Printf("%-10s %d\n", "untagged", n)
		total += n
	}
	fmt.Printf("%-10s %d\n", "total", total)

	records := store.All()
	distinct := make(map[string]struct{}, len(records))
	for _, r := range records {
		distinct[learning.Normalize(r.Query)] = struct{}{}
	}
	fmt.Printf("%-10s %d\n", "queries", len(distinct))
	if len(records) > 0 {
		fmt.Printf("%-10s %s\n", "updated", records[0].RecordedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func openLearningStore() (*learning.Store, error) {
	cfg := pipelineConfig().Learning
	if cfg.LogPath == "" {
		cfg.LogPath = ".anycli/corrections.jsonl"
	}
	store, summary, err := learning.Open(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	if summary.Skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d corrupt record(s) skipped\n", summary.Skipped)
	}
	return store, nil
}

func init() {
	learnRecordCmd.Flags().String("query", "", "the original natural language request")
	learnRecordCmd.Flags().String("corrected", "", "the command that should have been produced")
	learnRecordCmd.Flags().String("failed", "", "the wrong command that was produced, if any")

	learnCmd.AddCommand(learnRecordCmd)
	learnCmd.AddCommand(learnListCmd)
	learnCmd.AddCommand(learnStatsCmd)

	rootCmd.AddCommand(learnCmd)
}
