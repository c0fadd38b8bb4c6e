// Package identity derives a coin's canonical identity value from its three
// bounded components.
//
// The value is a fixed-width packing of the components:
//
//	value = c1<<24 | c2<<12 | c3
//
// Every component occupies its own 12-bit field, so the mapping is injective
// over [MinComponent, MaxComponent]^3 and invertible via Decompose.
// This is a fingerprint, not a cryptographic commitment.
package identity

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComponentBits is the width of each packed component.
const ComponentBits = 12

// Component bounds (inclusive), shared by every caller.
const (
	MinComponent = 0
	MaxComponent = 1<<ComponentBits - 1 // 4095
)

// MaxValue is the largest identity value Compute can produce.
const MaxValue int64 = 1<<(3*ComponentBits) - 1

// DomainSize is the number of distinct component triples.
const DomainSize int64 = 1 << (3 * ComponentBits)

var (
	// ErrInvalidComponent is returned when a component is outside [MinComponent, MaxComponent].
	ErrInvalidComponent = errors.New("invalid component")

	// ErrInvalidValue is returned when an identity value is outside [0, MaxValue].
	ErrInvalidValue = errors.New("invalid identity value")
)

const componentMask = MaxComponent

// Compute returns the identity value for (c1, c2, c3).
// Out-of-range components are rejected with ErrInvalidComponent.
func Compute(c1, c2, c3 int) (int64, error) {
	for i, c := range [3]int{c1, c2, c3} {
		if c < MinComponent || c > MaxComponent {
			return 0, fmt.Errorf("%w: component%d=%d not in [%d, %d]",
				ErrInvalidComponent, i+1, c, MinComponent, MaxComponent)
		}
	}

	return int64(c1)<<(2*ComponentBits) |
		int64(c2)<<ComponentBits |
		int64(c3), nil
}

// Decompose is the inverse of Compute.
func Decompose(value int64) (c1, c2, c3 int, err error) {
	if value < 0 || value > MaxValue {
		return 0, 0, 0, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidValue, value, MaxValue)
	}

	c1 = int(value>>(2*ComponentBits)) & componentMask
	c2 = int(value>>ComponentBits) & componentMask
	c3 = int(value) & componentMask
	return c1, c2, c3, nil
}

// Fingerprint renders an identity value as a short base58 string.
// Only the five low-order bytes carry data; the rest are not encoded.
func Fingerprint(value int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(value))
	return base58.Encode(buf[3:])
}
