package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/scratch"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the scratch directory",
	Long: `Commands for managing the scratch directory.

Archives and tarballs are expanded under the cache directory while a
comparison runs (by default $XDG_CACHE_HOME/jardiff). The space is released
when the comparison ends unless --keep-cache is given or the run was killed.`,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove scratch space left by earlier runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logging.Close()

		removed, err := scratch.Clean(cfg.CacheDir, scratchOptions(cfg))
		if removed > 0 {
			printInfo("Removed %d scratch %s from %s.", removed, pluralize(removed, "directory", "directories"), cfg.CacheDir)
		} else if err == nil {
			printInfo("Cache is already empty.")
		}
		if err != nil {
			return fmt.Errorf("failed to clean cache: %w", err)
		}
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scratch directory usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logging.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache location: %s\n", cfg.CacheDir)

		size, files, err := dirUsage(cfg.CacheDir)
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "Cache: empty")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to calculate cache size: %w", err)
		}
		fmt.Fprintf(out, "Cache size: %s\n", humanize.IBytes(uint64(size)))
		fmt.Fprintf(out, "Cache files: %s\n", humanize.Comma(files))
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logging.Close()

		fmt.Fprintln(cmd.OutOrStdout(), cfg.CacheDir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// dirUsage sums the sizes of regular files under root.
func dirUsage(root string) (int64, int64, error) {
	if _, err := os.Stat(root); err != nil {
		return 0, 0, err
	}
	var size, files int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		files++
		return nil
	})
	return size, files, err
}
