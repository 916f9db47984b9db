// Package tree builds in-memory snapshots of directory trees in which JAR
// and ZIP archives appear as expandable subtrees.
package tree

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/opencontainers/go-digest"

	"github.com/jamesainslie/jardiff/pkg/jardiff/hasher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// ErrDuplicateName is returned when a child name is already taken.
var ErrDuplicateName = errors.New("duplicate entry name")

// ErrNotDirectory is returned when a path that must be a directory is not.
var ErrNotDirectory = errors.New("not a directory")

// Node is an entry of a tree: a *Directory, a *File or an *Archive.
type Node interface {
	// NodeName returns the entry name within its parent.
	NodeName() string

	node()
}

// Directory is a named container of uniquely named children.
type Directory struct {
	// Name is the entry name, empty for a root.
	Name string

	// Path is the real location on disk, empty for synthetic directories.
	Path string

	children map[string]Node
}

// NewDirectory returns an empty directory.
func NewDirectory(name, realPath string) *Directory {
	return &Directory{Name: name, Path: realPath, children: make(map[string]Node)}
}

// NodeName returns the directory name.
func (d *Directory) NodeName() string { return d.Name }

func (d *Directory) node() {}

// Len returns the number of direct children.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.children)
}

// Child returns the direct child called name.
func (d *Directory) Child(name string) (Node, bool) {
	if d == nil {
		return nil, false
	}
	n, ok := d.children[name]
	return n, ok
}

// Names returns the names of the direct children in sorted order.
func (d *Directory) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add inserts n as a direct child.
func (d *Directory) Add(n Node) error {
	name := n.NodeName()
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if _, exists := d.children[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	d.children[name] = n
	return nil
}

// Lookup resolves a slash-separated path relative to d. Archives are
// entered transparently, so "lib/app.jar/a.txt" reaches inside app.jar.
func (d *Directory) Lookup(p string) (Node, bool) {
	p = strings.Trim(p, "/")
	if p == "" {
		return d, true
	}
	var cur Node = d
	for _, part := range strings.Split(p, "/") {
		var dir *Directory
		switch n := cur.(type) {
		case *Directory:
			dir = n
		case *Archive:
			dir = n.Contents
		default:
			return nil, false
		}
		next, ok := dir.Child(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// WalkFunc is called for every node visited by Walk with its logical path.
type WalkFunc func(logical string, n Node) error

// Walk visits every descendant of d depth-first in sorted name order,
// entering archive contents. base is the logical path of d.
func (d *Directory) Walk(base string, fn WalkFunc) error {
	if base == "" {
		base = "/"
	}
	for _, name := range d.Names() {
		child := d.children[name]
		p := path.Join(base, name)
		if err := fn(p, child); err != nil {
			return err
		}
		switch n := child.(type) {
		case *Directory:
			if err := n.Walk(p, fn); err != nil {
				return err
			}
		case *Archive:
			if err := n.Contents.Walk(p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureDir returns the child directory called name, creating it if absent.
func (d *Directory) ensureDir(name, realPath string) (*Directory, error) {
	if n, ok := d.children[name]; ok {
		if dir, ok := n.(*Directory); ok {
			return dir, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, name)
	}
	dir := NewDirectory(name, realPath)
	d.children[name] = dir
	return dir, nil
}

// File is a leaf entry whose content digest is computed on first request.
type File struct {
	// Name is the entry name.
	Name string

	// Path is the real location of the bytes. For archive members it lies
	// inside a scratch directory.
	Path string

	// Size is the size in bytes.
	Size int64

	// ModTime is the modification time. Archive members carry the
	// timestamp recorded in the archive.
	ModTime time.Time

	// InArchive reports whether the file was extracted from an archive.
	InArchive bool

	// Err is set when the entry's metadata could not be read.
	Err error

	hasher  *hasher.Hasher
	once    sync.Once
	digest  digest.Digest
	hashErr error
	hashed  atomic.Bool
}

// NewFile returns a file entry. h selects the digest algorithm; nil uses the
// default.
func NewFile(name, realPath string, size int64, modTime time.Time, h *hasher.Hasher) *File {
	return &File{Name: name, Path: realPath, Size: size, ModTime: modTime, hasher: h}
}

// NodeName returns the file name.
func (f *File) NodeName() string { return f.Name }

func (f *File) node() {}

// Digest returns the content digest, reading the file the first time only.
// It is safe for concurrent use.
func (f *File) Digest() (digest.Digest, error) {
	f.once.Do(func() {
		if f.Err != nil {
			f.hashErr = f.Err
		} else {
			f.digest, f.hashErr = f.hasher.SumFile(f.Path)
		}
		f.hashed.Store(true)
	})
	return f.digest, f.hashErr
}

// Hashed reports whether Digest has been computed.
func (f *File) Hashed() bool {
	return f.hashed.Load()
}

// CachedDigest returns the digest if it has already been computed
// successfully, otherwise "".
func (f *File) CachedDigest() digest.Digest {
	if !f.Hashed() {
		return ""
	}
	d, err := f.Digest()
	if err != nil {
		return ""
	}
	return d
}

// Archive is an archive file together with its expanded interior. It owns
// the scratch directory the interior was extracted into.
type Archive struct {
	// Blob is the archive file itself.
	Blob *File

	// Contents is the tree of extracted entries.
	Contents *Directory

	scratchDir string
	remove     func(string) error
	once       sync.Once
	releaseErr error
	released   atomic.Bool
}

// NewArchive wraps blob with its extracted contents. remove deletes
// scratchDir on Release; either may be empty or nil.
func NewArchive(blob *File, contents *Directory, scratchDir string, remove func(string) error) *Archive {
	if contents == nil {
		contents = NewDirectory(blob.Name, scratchDir)
	}
	return &Archive{Blob: blob, Contents: contents, scratchDir: scratchDir, remove: remove}
}

// NodeName returns the archive file name.
func (a *Archive) NodeName() string { return a.Blob.Name }

func (a *Archive) node() {}

// ScratchDir returns the directory holding the extracted entries.
func (a *Archive) ScratchDir() string { return a.scratchDir }

// Release removes the scratch directory after releasing nested archives.
// Only the first call does any work; later calls return the same result.
func (a *Archive) Release() error {
	a.once.Do(func() {
		var result *multierror.Error
		if err := ReleaseAll(a.Contents); err != nil {
			result = multierror.Append(result, err)
		}
		if a.remove != nil && a.scratchDir != "" {
			if err := a.remove(a.scratchDir); err != nil {
				result = multierror.Append(result, err)
			}
		}
		a.releaseErr = result.ErrorOrNil()
		a.released.Store(true)
	})
	return a.releaseErr
}

// Released reports whether Release has run.
func (a *Archive) Released() bool {
	return a.released.Load()
}

// ReleaseAll releases every archive below d.
func ReleaseAll(d *Directory) error {
	if d == nil {
		return nil
	}
	var result *multierror.Error
	for _, name := range d.Names() {
		switch n := d.children[name].(type) {
		case *Directory:
			if err := ReleaseAll(n); err != nil {
				result = multierror.Append(result, err)
			}
		case *Archive:
			if err := n.Release(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// Tree is the result of building one root.
type Tree struct {
	// Root is the top-level directory.
	Root *Directory

	// Path is the root path the tree was built from.
	Path string

	// Files is the number of files added, archive members included.
	Files int64

	// Archives is the number of archives expanded.
	Archives int64

	// Errors lists entries that could not be read.
	Errors []types.ScanError
}

// Release frees the scratch space of every archive still held by the tree.
func (t *Tree) Release() error {
	if t == nil {
		return nil
	}
	return ReleaseAll(t.Root)
}
