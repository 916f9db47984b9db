package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jamesainslie/jardiff/pkg/jardiff/archive"
	"github.com/jamesainslie/jardiff/pkg/jardiff/config"
	"github.com/jamesainslie/jardiff/pkg/jardiff/differ"
	"github.com/jamesainslie/jardiff/pkg/jardiff/engine"
	"github.com/jamesainslie/jardiff/pkg/jardiff/filter"
	"github.com/jamesainslie/jardiff/pkg/jardiff/hasher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/scratch"
	"github.com/jamesainslie/jardiff/pkg/jardiff/textdiff"
	"github.com/jamesainslie/jardiff/pkg/jardiff/tree"
	"github.com/jamesainslie/jardiff/pkg/jardiff/tuner"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// buildFilter creates a filter.Filter from the CLI flags.
func buildFilter() (*filter.Filter, error) {
	var opts []filter.Option

	if kindStr := viper.GetString("kind"); kindStr != "" {
		kinds, err := filter.ParseKinds(kindStr)
		if err != nil {
			return nil, fmt.Errorf("invalid kind %q: %w", kindStr, err)
		}
		opts = append(opts, filter.WithKinds(kinds...))
	}

	if includeStr := viper.GetString("include"); includeStr != "" {
		opts = append(opts, filter.WithInclude(parseCommaSeparated(includeStr)...))
	}

	if depth := viper.GetInt("max_depth"); depth > 0 {
		opts = append(opts, filter.WithMaxDepth(depth))
	}

	if minSizeStr := viper.GetString("min_size"); minSizeStr != "" {
		minSize, err := types.ParseSize(minSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid min-size %q: %w", minSizeStr, err)
		}
		opts = append(opts, filter.WithMinSize(minSize))
	}

	if limit := viper.GetInt("limit"); limit > 0 {
		opts = append(opts, filter.WithLimit(limit))
	}

	return filter.New(opts...), nil
}

// selectFormatter returns the report formatter named by --output.
func selectFormatter() (report.Formatter, error) {
	name := viper.GetString("output")
	if name == "" {
		name = config.DefaultOutput
	}

	if name == "template" {
		tmpl := viper.GetString("template")
		if tmpl == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return report.NewTemplateFormatter(tmpl), nil
	}

	formatter, err := report.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, report.Available())
	}
	return formatter, nil
}

// engineOptions translates the configuration into engine options. Worker
// counts not set in the configuration come from the tuner.
func engineOptions(cfg *config.Config, scratchSpace tree.Allocator, resources tuner.SystemResources) (engine.Options, error) {
	alg, err := hasher.ParseAlgorithm(cfg.Hash.Algorithm)
	if err != nil {
		return engine.Options{}, err
	}
	matcher, err := archive.NewMatcher(cfg.Archive.Patterns)
	if err != nil {
		return engine.Options{}, err
	}
	workers := tuner.CalculateWithOverrides(resources, cfg.Workers.Walk, cfg.Workers.Hash)

	return engine.Options{
		Tree: tree.Options{
			Hasher:   hasher.New(alg),
			Scratch:  scratchSpace,
			Matcher:  matcher,
			Exclude:  cfg.Exclude,
			Workers:  workers.WalkWorkers,
			MaxDepth: cfg.Archive.MaxDepth,
		},
		Differ: differ.Options{
			Workers:      workers.HashWorkers,
			CompareMtime: cfg.CompareMtime,
		},
		CompareDir:  viper.GetString("compare_dir"),
		KeepScratch: cfg.KeepCache,
	}, nil
}

func scratchOptions(cfg *config.Config) scratch.Options {
	return scratch.Options{
		MaxRetries:      cfg.Scratch.RemoveRetries,
		InitialInterval: cfg.Scratch.RetryDelay,
	}
}

func textDiffOptions(cfg *config.Config) (textdiff.Options, error) {
	opts := textdiff.Options{
		ProbeSize: cfg.TextDiff.ProbeSize,
		Context:   cfg.TextDiff.Context,
	}
	if cfg.TextDiff.MaxSize != "" {
		size, err := types.ParseSize(cfg.TextDiff.MaxSize)
		if err != nil {
			return textdiff.Options{}, fmt.Errorf("invalid text_diff.max_size %q: %w", cfg.TextDiff.MaxSize, err)
		}
		opts.MaxSize = size
	}
	return opts, nil
}

// toolPath returns the configured tool for --tool: the flag value unless it
// is the bare flag, otherwise tool.path from the configuration.
func toolPath(flagValue string, cfg *config.Config) string {
	if flagValue != "" && flagValue != autoTool {
		return flagValue
	}
	return cfg.Tool.Path
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
