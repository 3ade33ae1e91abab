// Package bitalloc implements the first-fit bitmap allocator used for both
// the inode bitmap and the data-block bitmap. The two are independent
// instances of the same algorithm, each with its own capacity.
package bitalloc

import (
	"errors"
	"fmt"

	"github.com/boljen/go-bitmap"
)

// ErrNoSpace is returned when no free bit can be found within capacity.
var ErrNoSpace = errors.New("no space left in bitmap")

// Allocator scans bytes left to right and, within each byte, bits from LSB
// (bit 0) upward, to find the first unset bit. This bit order must be
// preserved exactly to remain on-disk compatible with the source format.
type Allocator struct {
	bits     bitmap.Bitmap
	capacity int
}

// New creates an Allocator with no bits set, for a bitmap covering exactly
// capacity indices.
func New(capacity int) *Allocator {
	return &Allocator{
		bits:     bitmap.New(capacity),
		capacity: capacity,
	}
}

// FromBytes wraps an existing on-disk bitmap image (as read from the
// superblock's bitmap region) without modifying it.
func FromBytes(raw []byte, capacity int) *Allocator {
	return &Allocator{
		bits:     bitmap.Bitmap(raw),
		capacity: capacity,
	}
}

// Bytes returns the raw backing byte array, suitable for writing to disk.
func (a *Allocator) Bytes() []byte {
	return a.bits.Data(false)
}

// Capacity returns the number of indices this allocator covers.
func (a *Allocator) Capacity() int {
	return a.capacity
}

// IsSet reports whether index is currently allocated.
func (a *Allocator) IsSet(index int) bool {
	return a.bits.Get(index)
}

// Allocate scans for the first free bit and marks it allocated, returning its
// index. Returns ErrNoSpace if the cursor reaches capacity without finding
// one.
func (a *Allocator) Allocate() (int, error) {
	for cursor := 0; cursor < a.capacity; cursor++ {
		if !a.bits.Get(cursor) {
			a.bits.Set(cursor, true)
			return cursor, nil
		}
	}
	return 0, ErrNoSpace
}

// Free clears the bit at index. Freeing an index that's already clear is a
// no-op, matching the source's unconditional bit clear.
func (a *Allocator) Free(index int) error {
	if index < 0 || index >= a.capacity {
		return fmt.Errorf("index %d not in range [0, %d)", index, a.capacity)
	}
	a.bits.Set(index, false)
	return nil
}
