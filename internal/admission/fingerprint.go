package admission

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"regexp"
	"strings"
)

const (
	// DefaultFingerprintBits is the fingerprint width used when none is configured.
	DefaultFingerprintBits = 64
	// MinFingerprintBits is the narrowest width that still separates unrelated pages.
	MinFingerprintBits = 8
	// DefaultNearDuplicateThreshold is the similarity at or above which a page is a near-duplicate.
	DefaultNearDuplicateThreshold = 0.90
)

// Fingerprint is a simhash of a page's word tokens.
type Fingerprint uint64

// String renders the fingerprint as fixed-width hex.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['-][\p{L}\p{N}]+)*`)

// Tokenize splits text into lowercase word tokens. Apostrophes and hyphens are
// kept when they join two alphanumeric runs.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Fingerprinter computes simhash fingerprints of a fixed bit width.
type Fingerprinter struct {
	bits int
	mask uint64
}

// NewFingerprinter returns a Fingerprinter for the given width (MinFingerprintBits..64).
func NewFingerprinter(width int) (*Fingerprinter, error) {
	if width < MinFingerprintBits || width > 64 {
		return nil, fmt.Errorf("fingerprint width must be between %d and 64, got %d", MinFingerprintBits, width)
	}
	return &Fingerprinter{bits: width, mask: widthMask(width)}, nil
}

// Bits returns the fingerprint width.
func (f *Fingerprinter) Bits() int {
	return f.bits
}

// Fingerprint hashes every distinct token, weights it by its frequency and
// votes on each bit; a bit is set when its weighted vote is positive.
func (f *Fingerprinter) Fingerprint(tokens []string) Fingerprint {
	if len(tokens) == 0 {
		return 0
	}

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	votes := make([]int, f.bits)
	for tok, weight := range freq {
		h := tokenHash(tok)
		for i := 0; i < f.bits; i++ {
			if h&(1<<uint(i)) != 0 {
				votes[i] += weight
			} else {
				votes[i] -= weight
			}
		}
	}

	var fp uint64
	for i, v := range votes {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return Fingerprint(fp & f.mask)
}

// Similarity returns the fraction of matching bits between a and b.
func (f *Fingerprinter) Similarity(a, b Fingerprint) float64 {
	return Similarity(a, b, f.bits)
}

// Similarity returns the fraction of the low width bits on which a and b agree.
func Similarity(a, b Fingerprint, width int) float64 {
	if width <= 0 || width > 64 {
		width = 64
	}
	diff := bits.OnesCount64(uint64(a^b) & widthMask(width))
	return float64(width-diff) / float64(width)
}

// tokenHash is FNV-1a followed by the murmur3 finalizer so that short, similar
// tokens still differ across all 64 bits.
func tokenHash(tok string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	x := h.Sum64()
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// LinearIndex compares a fingerprint against every recorded one.
type LinearIndex struct {
	bits int
	fps  []Fingerprint
}

// NewLinearIndex creates an empty index for fingerprints of the given width.
func NewLinearIndex(width int) *LinearIndex {
	return &LinearIndex{bits: width}
}

// Near implements FingerprintIndex.
func (l *LinearIndex) Near(fp Fingerprint, threshold float64) bool {
	for _, seen := range l.fps {
		if Similarity(fp, seen, l.bits) >= threshold {
			return true
		}
	}
	return false
}

// Add implements FingerprintIndex.
func (l *LinearIndex) Add(fp Fingerprint) {
	l.fps = append(l.fps, fp)
}

// Len implements FingerprintIndex.
func (l *LinearIndex) Len() int {
	return len(l.fps)
}
