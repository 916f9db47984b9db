// Package hasher computes content digests of files for equality checks.
package hasher

import (
	"crypto/md5" //nolint:gosec // md5 is offered for speed, not security
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

// Supported algorithms.
const (
	SHA256 Algorithm = "sha256"
	MD5    Algorithm = "md5"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

const bufferSize = 32 * 1024

// ErrUnknownAlgorithm is returned for algorithm names other than sha256 or md5.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// ParseAlgorithm parses an algorithm name. The empty string selects Default.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Default, nil
	case SHA256:
		return SHA256, nil
	case MD5:
		return MD5, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Hasher streams bytes through the configured algorithm. The zero value
// uses Default. A Hasher is safe for concurrent use.
type Hasher struct {
	alg Algorithm
}

// New returns a Hasher for alg.
func New(alg Algorithm) *Hasher {
	return &Hasher{alg: alg}
}

// Algorithm returns the algorithm in use.
func (h *Hasher) Algorithm() Algorithm {
	if h == nil || h.alg == "" {
		return Default
	}
	return h.alg
}

func (h *Hasher) newHash() hash.Hash {
	if h.Algorithm() == MD5 {
		return md5.New() //nolint:gosec
	}
	return sha256.New()
}

// SumReader digests everything readable from r.
func (h *Hasher) SumReader(r io.Reader) (digest.Digest, error) {
	hh := h.newHash()
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(hh, r, buf); err != nil {
		return "", err
	}
	return digest.NewDigestFromEncoded(digest.Algorithm(h.Algorithm()), hex.EncodeToString(hh.Sum(nil))), nil
}

// SumFile digests the contents of the file at path.
func (h *Hasher) SumFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	d, err := h.SumReader(f)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return d, nil
}
