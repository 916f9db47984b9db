//go:build !unix && !windows

package scratch

func isTransientErrno(error) bool {
	return false
}
