// Package keygen turns numeric row identifiers into short, shuffled codes.
//
// The mapping is deterministic and injective for a fixed alphabet: the
// counter is offset, written in the base of a permuted alphabet and the
// resulting digits are permuted once more. Both permutations come from a
// generator seeded with the same constant on every call, so a given counter
// always produces the same code.
package keygen

import (
	"errors"
	"fmt"
)

const (
	// DefaultAlphabet holds digits followed by upper and lower case ASCII letters.
	DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Offset is added to every counter so that small counters still yield
	// codes of at least three characters with the default alphabet.
	Offset = 4000

	// ShuffleSeed seeds both permutations. Changing it invalidates every
	// code generated so far.
	ShuffleSeed = 1234
)

var (
	ErrInvalidCounter  = errors.New("counter must be a non-negative integer")
	ErrInvalidAlphabet = errors.New("alphabet must contain at least two unique characters")
)

// Generator encodes counters with a fixed alphabet. It is immutable and safe
// for concurrent use.
type Generator struct {
	symbols []rune
}

// New returns a Generator for the given alphabet.
func New(alphabet string) (*Generator, error) {
	symbols := []rune(alphabet)
	if len(symbols) < 2 {
		return nil, ErrInvalidAlphabet
	}

	seen := make(map[rune]struct{}, len(symbols))
	for _, r := range symbols {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("%w: duplicate %q", ErrInvalidAlphabet, r)
		}

		seen[r] = struct{}{}
	}

	return &Generator{symbols: shuffle(symbols)}, nil
}

// Default returns a Generator over DefaultAlphabet.
func Default() *Generator {
	g, _ := New(DefaultAlphabet)

	return g
}

// Generate returns the code for counter.
func (g *Generator) Generate(counter int64) (string, error) {
	if counter < 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidCounter, counter)
	}

	base := uint64(len(g.symbols))
	n := uint64(counter) + Offset

	// Least significant digit first; the final shuffle decides the order.
	digits := make([]rune, 0, 8)
	for n > 0 {
		digits = append(digits, g.symbols[n%base])
		n /= base
	}

	return string(shuffle(digits)), nil
}

// Generate encodes counter with the default alphabet.
func Generate(counter int64) (string, error) {
	return defaultGenerator.Generate(counter)
}

var defaultGenerator = Default()

// shuffle samples every item without replacement from a freshly seeded
// generator, returning a new slice.
func shuffle(items []rune) []rune {
	rng := newMersenne([]uint32{ShuffleSeed})

	n := len(items)
	pool := make([]rune, n)
	copy(pool, items)

	out := make([]rune, n)
	for i := range n {
		j := int(rng.float64() * float64(n-i))
		out[i] = pool[j]
		pool[j] = pool[n-i-1]
	}

	return out
}
