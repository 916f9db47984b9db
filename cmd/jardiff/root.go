package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/jardiff/pkg/jardiff/config"
)

var (
	cfgFile  string
	toolFlag string
	rootCmd  = &cobra.Command{
		Use:   "jardiff <root1> <root2>",
		Short: "Compare two directory trees, looking inside JAR and ZIP archives",
		Long: `jardiff compares two directory trees and reports every file that differs.

Archives (*.jar and *.zip by default) are expanded on the fly and compared
entry by entry, so a changed class inside a JAR is reported at its logical
path, for example /lib/app.jar/com/x/Foo.class. Either root may also be a
.tar, .tar.gz or .tgz file such as the output of docker export.

By default jardiff opens an interactive browser. Use --no-interactive or
-o to print a report instead.

Examples:
  jardiff old/ new/                     # Browse differences
  jardiff -d /opt/app a.tar b.tar       # Compare one subtree of two tarballs
  jardiff -o json old/ new/ > diff.json # Machine-readable report
  jardiff -n --kind content old/ new/   # Only changed files
  jardiff --tool old/ new/              # Also open a visual diff tool
  jardiff file a.properties b.properties`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompare,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/jardiff/config.yaml)")
	flags.StringP("cache-dir", "c", "", "scratch directory for expanded archives")
	flags.BoolP("no-interactive", "n", false, "disable the interactive browser, print a report")
	flags.BoolP("quiet", "q", false, "minimal output")
	flags.BoolP("verbose", "v", false, "debug output on stderr")

	local := rootCmd.Flags()
	local.StringP("compare-dir", "d", "", "compare only this subpath of both roots")
	local.StringP("output", "o", "", "output format: "+strings.Join(availableFormats(), ", "))
	local.String("template", "", "Go template for -o template")
	local.String("algorithm", "", "hash algorithm (sha256, md5)")
	local.String("kind", "", "only report these kinds, comma separated (e.g. content,only)")
	local.String("include", "", "only report paths matching these globs, comma separated")
	local.StringSliceP("exclude", "e", nil, "skip entries matching this glob (repeatable)")
	local.Int("max-depth", 0, "only report paths up to this many segments deep")
	local.String("min-size", "", "only report entries at least this large (e.g. 10K)")
	local.Int("limit", 0, "maximum number of differences to report (0 = all)")
	local.Bool("compare-mtime", false, "report equal files with different modification times")
	local.Bool("keep-cache", false, "keep expanded archives after the comparison")
	local.StringVar(&toolFlag, "tool", "", "open both roots in a visual diff tool (optionally its path)")
	local.Lookup("tool").NoOptDefVal = autoTool

	bindFlags()
}

// bindFlags binds command-line flags to their configuration keys.
func bindFlags() {
	bind := func(key, flag string) {
		f := rootCmd.PersistentFlags().Lookup(flag)
		if f == nil {
			f = rootCmd.Flags().Lookup(flag)
		}
		_ = viper.BindPFlag(key, f)
	}
	bind("cache_dir", "cache-dir")
	bind("no_interactive", "no-interactive")
	bind("quiet", "quiet")
	bind("verbose", "verbose")
	bind("compare_dir", "compare-dir")
	bind("output", "output")
	bind("template", "template")
	bind("hash.algorithm", "algorithm")
	bind("kind", "kind")
	bind("include", "include")
	bind("exclude", "exclude")
	bind("max_depth", "max-depth")
	bind("min_size", "min-size")
	bind("limit", "limit")
	bind("compare_mtime", "compare-mtime")
	bind("keep_cache", "keep-cache")
}

// initConfig points viper at the config file and environment. The file
// itself is read by config.LoadFrom.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("JARDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a status message to stderr unless quiet. Stdout is
// reserved for reports.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
