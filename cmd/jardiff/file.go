package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/textdiff"
)

var fileCmd = &cobra.Command{
	Use:   "file <file1> <file2>",
	Short: "Show the difference between two files",
	Long: `Print a unified diff of two text files, or a one-line notice when either
file is binary. Files larger than text_diff.max_size are treated as binary.

Useful for paths reported by a comparison, e.g. with --keep-cache to inspect
extracted archive members.`,
	Args: cobra.ExactArgs(2),
	RunE: runFile,
}

var fileJSON bool

func init() {
	fileCmd.Flags().BoolVar(&fileJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logging.Close()

	opts, err := textDiffOptions(cfg)
	if err != nil {
		return err
	}

	res, err := textdiff.Diff(args[0], args[1], opts)
	if errors.Is(err, textdiff.ErrNotFound) {
		return fmt.Errorf("cannot diff: %w", err)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if fileJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Mode == textdiff.ModeText && res.Diff == "" {
		printInfo("Files are identical")
		return nil
	}
	_, err = fmt.Fprint(out, res.String())
	return err
}
