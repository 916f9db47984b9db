package launcher

import "os"

// SetLookup replaces the PATH and file lookups used by Find.
func (l *Launcher) SetLookup(lookPath func(string) (string, error), stat func(string) (os.FileInfo, error)) {
	l.lookPath = lookPath
	l.stat = stat
}

var Candidates = candidates
