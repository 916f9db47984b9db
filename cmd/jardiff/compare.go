package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/jardiff/cmd/jardiff/tui"
	"github.com/jamesainslie/jardiff/pkg/jardiff/config"
	"github.com/jamesainslie/jardiff/pkg/jardiff/engine"
	"github.com/jamesainslie/jardiff/pkg/jardiff/history"
	"github.com/jamesainslie/jardiff/pkg/jardiff/launcher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/scratch"
	"github.com/jamesainslie/jardiff/pkg/jardiff/source"
	"github.com/jamesainslie/jardiff/pkg/jardiff/tuner"
)

// runCompare compares the two roots and either opens the browser or prints
// a report. Finding differences is not an error.
func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(viper.GetViper())
	if err != nil {
		return err
	}
	interactive := useBrowser()

	// Fail on a bad format before any work is done.
	var formatter report.Formatter
	if !interactive {
		if formatter, err = selectFormatter(); err != nil {
			return err
		}
	}

	if err := startLogging(cfg, interactive); err != nil {
		return err
	}
	defer logging.Close()
	logger := logging.Get("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := scratch.NewSession(cfg.CacheDir, scratchOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to create scratch space: %w", err)
	}
	keepScratch := cfg.KeepCache
	defer func() {
		if keepScratch {
			printInfo("Scratch space kept at %s", session.Dir())
			return
		}
		if err := session.Close(); err != nil {
			printError("failed to remove scratch space %s: %v", session.Dir(), err)
		}
	}()
	printVerbose("Scratch space: %s", session.Dir())

	resolver := source.NewResolver(session)
	src1, err := resolver.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	src2, err := resolver.Resolve(ctx, args[1])
	if err != nil {
		return err
	}
	for _, src := range []*source.Source{src1, src2} {
		if src.Kind == source.KindTarball {
			printVerbose("Unpacked %s (%d entries)", src.Arg, src.Entries)
		}
	}

	resources, err := tuner.Detect()
	if err != nil {
		logger.Warn("resource detection failed, using defaults", "error", err)
		resources = tuner.SystemResources{CPUCores: 4}
	}
	opts, err := engineOptions(cfg, session, resources)
	if err != nil {
		return err
	}
	flt, err := buildFilter()
	if err != nil {
		return err
	}
	if flt.Active() {
		opts.Filter = flt
	}
	printVerbose("Workers: walk=%d hash=%d", opts.Tree.Workers, opts.Differ.Workers)

	tdOpts, err := textDiffOptions(cfg)
	if err != nil {
		return err
	}

	var tool *launcher.Launcher
	if toolFlag != "" {
		tool = launcher.New(toolPath(toolFlag, cfg), cfg.Tool.Args)
		// The tool runs after jardiff exits and still needs unpacked tarballs.
		if src1.Kind == source.KindTarball || src2.Kind == source.KindTarball {
			keepScratch = true
		}
	}

	var result *report.Result
	if interactive {
		result, err = tui.Run(tui.Options{
			Engine:   opts,
			Root1:    src1.Arg,
			Root2:    src2.Arg,
			Dir1:     src1.Dir,
			Dir2:     src2.Dir,
			TextDiff: tdOpts,
			Launcher: tool,
		})
	} else {
		result, err = compare(ctx, opts, src1.Dir, src2.Dir)
	}
	if errors.Is(err, context.Canceled) {
		printInfo("Comparison cancelled")
		return nil
	}
	if err != nil {
		return err
	}

	result.Root1, result.Root2 = src1.Arg, src2.Arg
	result.Warnings = append(append(append([]string{}, src1.Warnings...), src2.Warnings...), result.Warnings...)

	if cfg.History.Enabled {
		recordHistory(cfg, result)
	}

	if !interactive {
		var buf bytes.Buffer
		if err := formatter.Format(&buf, result); err != nil {
			return fmt.Errorf("failed to format report: %w", err)
		}
		if _, err := buf.WriteTo(cmd.OutOrStdout()); err != nil {
			return err
		}
		if tool != nil {
			name, err := tool.Launch(result.Dir1, result.Dir2)
			if err != nil {
				return err
			}
			printInfo("Opened %s", name)
		}
	}

	printVerbose("%d differences in %s", len(result.Differences), result.Stats.Duration)
	return nil
}

func compare(ctx context.Context, opts engine.Options, dir1, dir2 string) (*report.Result, error) {
	eng, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	return eng.Compare(ctx, dir1, dir2)
}

// recordHistory stores the run and prunes old entries. Failures are logged,
// never returned.
func recordHistory(cfg *config.Config, result *report.Result) {
	logger := logging.Get("cli")

	store, err := history.New(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return
	}
	if err := store.Record(historyEntry(cfg, result)); err != nil {
		logger.Warn("failed to record history", "error", err)
		return
	}
	removed, err := store.Cleanup(cfg.History.RetentionDays)
	if err != nil {
		logger.Warn("failed to clean history", "error", err)
		return
	}
	if removed > 0 {
		printVerbose("Removed %s old history %s", humanize.Comma(int64(removed)), pluralize(removed, "entry", "entries"))
	}
}

func historyEntry(cfg *config.Config, result *report.Result) *history.Entry {
	summary := make(map[string]int)
	for kind, n := range result.Summary() {
		summary[string(kind)] = n
	}
	return &history.Entry{
		Root1:      result.Root1,
		Root2:      result.Root2,
		CompareDir: result.CompareDir,
		Algorithm:  cfg.Hash.Algorithm,
		Summary:    summary,
		Total:      len(result.Differences),
		Files1:     result.Stats.Files1,
		Files2:     result.Stats.Files2,
		Duration:   result.Stats.Duration,
		Warnings:   len(result.Warnings),
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
