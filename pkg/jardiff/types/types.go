// Package types provides the shared value types of jardiff: difference kinds,
// progress events, walk errors and size helpers.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Kind classifies a single difference between two trees.
type Kind string

// Difference kinds. KindIdentical is never emitted in a diff result.
const (
	KindIdentical    Kind = "identical"
	KindSizeDiff     Kind = "size_diff"
	KindContentDiff  Kind = "content_diff"
	KindMtimeDiff    Kind = "mtime_diff"
	KindOnlyIn1      Kind = "only_in_1"
	KindOnlyIn2      Kind = "only_in_2"
	KindTypeMismatch Kind = "type_mismatch"
	KindError        Kind = "error"
)

// ErrUnknownKind indicates a kind name that is not one of the known kinds.
var ErrUnknownKind = errors.New("unknown difference kind")

// Kinds returns every kind that can appear in a diff result, in display order.
func Kinds() []Kind {
	return []Kind{
		KindSizeDiff,
		KindContentDiff,
		KindMtimeDiff,
		KindOnlyIn1,
		KindOnlyIn2,
		KindTypeMismatch,
		KindError,
	}
}

// ParseKind parses a kind name as used in serialized output.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindIdentical {
		return k, nil
	}
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Mirror returns the kind seen from the other side: only_in_1 and only_in_2
// swap, every other kind is unchanged.
func (k Kind) Mirror() Kind {
	switch k {
	case KindOnlyIn1:
		return KindOnlyIn2
	case KindOnlyIn2:
		return KindOnlyIn1
	default:
		return k
	}
}

// ScanError represents an error encountered while walking a tree.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// Phase names the stage of a comparison a progress event belongs to.
type Phase string

// Comparison phases.
const (
	PhaseBuild   Phase = "build"
	PhaseCompare Phase = "compare"
	PhaseDone    Phase = "done"
)

// Progress reports real-time comparison progress.
type Progress struct {
	// Phase is the stage that produced the event.
	Phase Phase `json:"phase"`

	// Root is the tree root being built, empty while comparing.
	Root string `json:"root,omitempty"`

	// CurrentPath is the logical path currently being processed.
	CurrentPath string `json:"current_path"`

	// FilesSeen is the number of files added to trees so far.
	FilesSeen int64 `json:"files_seen"`

	// ArchivesExpanded is the number of archives expanded so far.
	ArchivesExpanded int64 `json:"archives_expanded"`

	// Compared is the number of entries compared so far.
	Compared int64 `json:"compared"`

	// Differences is the number of records emitted so far.
	Differences int64 `json:"differences"`
}

// ProgressFunc observes progress events. Implementations must be safe for
// concurrent use.
type ProgressFunc func(Progress)

// Throttle wraps fn so that events arrive at most once per interval. Events
// of PhaseDone are always delivered. A nil fn yields nil.
func Throttle(fn ProgressFunc, interval time.Duration) ProgressFunc {
	if fn == nil {
		return nil
	}
	var last atomic.Int64
	return func(p Progress) {
		now := time.Now().UnixNano()
		prev := last.Load()
		if p.Phase != PhaseDone && now-prev < int64(interval) {
			return
		}
		if !last.CompareAndSwap(prev, now) && p.Phase != PhaseDone {
			return
		}
		fn(p)
	}
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string ("1024", "512B", "100K",
// "50MiB", "1.5GB") and returns the size in bytes. Units are binary.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}
