package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/jardiff/pkg/jardiff/config"
	"github.com/jamesainslie/jardiff/pkg/jardiff/history"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "View previous comparisons",
	Long: `List recent comparisons, or show one of them in detail.

Every comparison is recorded with its roots, the number of differences per
kind and how long it took. An ID prefix is enough to select an entry.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long:  `Remove history entries older than history.retention_days.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*config.Config, *history.Store, error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	store, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return cfg, store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, store, err := openHistory()
	if err != nil {
		return err
	}
	defer logging.Close()

	if len(args) == 1 {
		entry, err := store.Get(args[0])
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no history entry matches %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}
		printEntry(cmd.OutOrStdout(), entry)
		return nil
	}

	entries, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'jardiff <root1> <root2>' to compare two trees.")
		return nil
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(w io.Writer, entries []history.Entry) {
	fmt.Fprintf(w, "\n%-10s  %-16s  %-40s  %s\n", "ID", "WHEN", "ROOTS", "DIFFERENCES")
	fmt.Fprintln(w, strings.Repeat("-", 84))

	for _, e := range entries {
		fmt.Fprintf(w, "%-10s  %-16s  %-40s  %s\n",
			truncateString(e.ID, 10),
			humanize.Time(e.Timestamp),
			truncateString(e.Root1+" "+e.Root2, 40),
			differencesLabel(e.Total),
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 84))
	fmt.Fprintln(w, "Use 'jardiff history <id>' for details on an entry.")
}

func printEntry(w io.Writer, e *history.Entry) {
	fmt.Fprintln(w, "\nComparison Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:          %s\n", e.ID)
	fmt.Fprintf(w, "Timestamp:   %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Root 1:      %s\n", e.Root1)
	fmt.Fprintf(w, "Root 2:      %s\n", e.Root2)
	if e.CompareDir != "" {
		fmt.Fprintf(w, "Compare dir: %s\n", e.CompareDir)
	}
	if e.Algorithm != "" {
		fmt.Fprintf(w, "Algorithm:   %s\n", e.Algorithm)
	}
	fmt.Fprintf(w, "Files:       %s / %s\n", humanize.Comma(e.Files1), humanize.Comma(e.Files2))
	fmt.Fprintf(w, "Duration:    %s\n", e.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Result:      %s\n", differencesLabel(e.Total))
	if e.Warnings > 0 {
		fmt.Fprintf(w, "Warnings:    %d\n", e.Warnings)
	}

	if len(e.Summary) == 0 {
		return
	}
	kinds := make([]string, 0, len(e.Summary))
	for k := range e.Summary {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	fmt.Fprintln(w, "\nBy kind:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-14s %d\n", k, e.Summary[k])
	}
}

func differencesLabel(n int) string {
	if n == 0 {
		return "identical"
	}
	return fmt.Sprintf("%d %s", n, pluralize(n, "difference", "differences"))
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, store, err := openHistory()
	if err != nil {
		return err
	}
	defer logging.Close()

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}
	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := store.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d %s.", removed, pluralize(removed, "entry", "entries"))
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
