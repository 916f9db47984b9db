package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/jamesainslie/jardiff/pkg/jardiff/config"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
)

// autoTool is the --tool value used when the flag is given without a path.
const autoTool = "auto"

// setup loads the configuration and starts logging for a command that
// never opens the browser.
func setup() (*config.Config, error) {
	cfg, err := config.LoadFrom(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := startLogging(cfg, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startLogging initializes logging. Console logging is enabled with
// --verbose and kept off while the browser owns the terminal.
func startLogging(cfg *config.Config, interactive bool) error {
	if err := logging.Init(loggingConfig(cfg, interactive)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

func loggingConfig(cfg *config.Config, interactive bool) logging.Config {
	out := cfg.LoggingSettings()
	if getVerbose() && !getQuiet() {
		out.ConsoleLevel = "debug"
	}
	out.Interactive = interactive
	return out
}

// useBrowser decides between the interactive browser and a printed report.
// Any output format other than the default, --no-interactive, or a
// redirected stdout selects the report. It must run after the config file
// was read.
func useBrowser() bool {
	if viper.GetBool("no_interactive") {
		return false
	}
	if out := viper.GetString("output"); out != "" && out != config.DefaultOutput {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func availableFormats() []string {
	return report.Available()
}
