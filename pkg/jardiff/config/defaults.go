// Package config provides configuration management for jardiff.
package config

import "time"

// Default configuration values for jardiff.
const (
	// DefaultHashAlgorithm is the digest used to compare file contents.
	DefaultHashAlgorithm = "sha256"

	// DefaultArchiveDepth is how many archives deep expansion goes.
	DefaultArchiveDepth = 8

	// DefaultOutput is the output format used when none is given.
	DefaultOutput = "pretty"

	// DefaultProbeSize is the number of bytes checked to tell text from binary.
	DefaultProbeSize = 1024

	// DefaultTextMaxSize is the largest file shown as a text diff.
	DefaultTextMaxSize = "16MiB"

	// DefaultTextContext is the number of context lines around each hunk.
	DefaultTextContext = 3

	// DefaultRemoveRetries is the number of retries when scratch removal fails.
	DefaultRemoveRetries = 3

	// DefaultRetryDelay is the delay before the first removal retry.
	DefaultRetryDelay = time.Second

	// DefaultRetentionDays is the number of days history entries are kept.
	DefaultRetentionDays = 30
)

// DefaultArchivePatterns are the file names expanded as archives.
var DefaultArchivePatterns = []string{"*.jar", "*.zip"}
