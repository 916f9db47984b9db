package differ

import (
	"sort"
	"strings"
	"time"

	"github.com/jamesainslie/jardiff/pkg/jardiff/tree"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// Item describes one side of a difference.
type Item struct {
	// Name is the entry name.
	Name string `json:"name"`

	// Path is the real location on disk. It is empty for archive members,
	// whose scratch location differs from run to run.
	Path string `json:"path,omitempty"`

	// Size is the size in bytes, zero for directories.
	Size int64 `json:"size"`

	// ModTime is the modification time.
	ModTime time.Time `json:"mtime"`

	// Hash is the content digest when it was computed.
	Hash string `json:"hash,omitempty"`

	// IsArchive marks an expanded archive.
	IsArchive bool `json:"is_archive,omitempty"`

	// IsDir marks a directory.
	IsDir bool `json:"is_dir,omitempty"`

	// InArchive marks a member extracted from an archive.
	InArchive bool `json:"in_archive,omitempty"`
}

// Record is a single difference between two trees.
type Record struct {
	// Path is the logical path, always slash-separated and rooted at "/".
	Path string `json:"path"`

	// Kind classifies the difference.
	Kind types.Kind `json:"type"`

	// Item1 is the entry in the first tree, nil when absent.
	Item1 *Item `json:"item1"`

	// Item2 is the entry in the second tree, nil when absent.
	Item2 *Item `json:"item2"`

	// Nested holds the differences inside an archive whose blobs differ.
	// The same records also appear in the flat result list.
	Nested []Record `json:"jar_diff,omitempty"`

	// Error is the failure message of an error record.
	Error string `json:"error,omitempty"`
}

// IsArchive reports whether either side of the record is an archive.
func (r *Record) IsArchive() bool {
	return (r.Item1 != nil && r.Item1.IsArchive) || (r.Item2 != nil && r.Item2.IsArchive)
}

func itemOf(n tree.Node) *Item {
	switch v := n.(type) {
	case *tree.Directory:
		return &Item{Name: v.Name, Path: v.Path, IsDir: true}
	case *tree.Archive:
		it := fileItem(v.Blob)
		it.IsArchive = true
		return it
	case *tree.File:
		return fileItem(v)
	default:
		return nil
	}
}

func fileItem(f *tree.File) *Item {
	it := &Item{
		Name:      f.Name,
		Size:      f.Size,
		ModTime:   f.ModTime,
		Hash:      string(f.CachedDigest()),
		InArchive: f.InArchive,
	}
	if !f.InArchive {
		it.Path = f.Path
	}
	return it
}

// ComparePaths orders logical paths segment by segment, so a directory
// sorts directly before its descendants. It returns -1, 0 or +1.
func ComparePaths(a, b string) int {
	as := strings.Split(strings.Trim(a, "/"), "/")
	bs := strings.Split(strings.Trim(b, "/"), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

// SortRecords sorts records by logical path. Records with equal paths keep
// their relative order.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return ComparePaths(records[i].Path, records[j].Path) < 0
	})
}

// Summary counts records per kind.
func Summary(records []Record) map[types.Kind]int {
	out := make(map[types.Kind]int)
	for _, r := range records {
		out[r.Kind]++
	}
	return out
}
