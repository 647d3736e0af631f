package admission

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Checksum is a cheap content identity used for exact-duplicate detection.
type Checksum uint64

func (c Checksum) String() string {
	return fmt.Sprintf("%016x", uint64(c))
}

// Checksummer computes a Checksum from raw page bytes.
type Checksummer interface {
	Sum(content []byte) Checksum
	Name() string
}

// ByteSum adds up the raw byte values, wrapping on overflow. Different contents
// with the same byte multiset collide.
type ByteSum struct{}

// Sum implements Checksummer.
func (ByteSum) Sum(content []byte) Checksum {
	var sum uint64
	for _, b := range content {
		sum += uint64(b)
	}
	return Checksum(sum)
}

// Name implements Checksummer.
func (ByteSum) Name() string { return "bytesum" }

// SHA3Digest uses the leading 8 bytes of a SHA3-256 digest.
type SHA3Digest struct{}

// Sum implements Checksummer.
func (SHA3Digest) Sum(content []byte) Checksum {
	digest := sha3.Sum256(content)
	return Checksum(binary.BigEndian.Uint64(digest[:8]))
}

// Name implements Checksummer.
func (SHA3Digest) Name() string { return "sha3" }

// ChecksummerByName returns the checksummer registered under name.
// An empty name selects ByteSum.
func ChecksummerByName(name string) (Checksummer, error) {
	switch strings.ToLower(name) {
	case "", "bytesum":
		return ByteSum{}, nil
	case "sha3":
		return SHA3Digest{}, nil
	default:
		return nil, fmt.Errorf("unknown content checksum %q", name)
	}
}

// ChecksumSet is a grow-only set of checksums. Not safe for concurrent use.
type ChecksumSet struct {
	seen map[Checksum]struct{}
}

// NewChecksumSet creates an empty set.
func NewChecksumSet() *ChecksumSet {
	return &ChecksumSet{seen: make(map[Checksum]struct{})}
}

// Contains reports whether sum has been recorded.
func (s *ChecksumSet) Contains(sum Checksum) bool {
	_, ok := s.seen[sum]
	return ok
}

// Add records sum.
func (s *ChecksumSet) Add(sum Checksum) {
	s.seen[sum] = struct{}{}
}

// Len returns the number of recorded checksums.
func (s *ChecksumSet) Len() int {
	return len(s.seen)
}
