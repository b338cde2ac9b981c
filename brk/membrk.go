package brk

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/memkit/brkheap"
)

// memBase is the synthetic address of the first claimed byte. It is non-zero so that a zero
// address can stand in for a null pointer.
const memBase uintptr = 0x100000

// MemBrk emulates the program break with an in-process byte slice. The full limit is reserved up
// front so that slices handed out by Bytes stay valid as the boundary moves forward. Addresses are
// synthetic offsets from memBase rather than real machine addresses.
type MemBrk struct {
	mem   []byte
	limit int
}

var _ Brk = &MemBrk{}

// NewMemBrk creates a MemBrk that refuses to claim more than limit bytes.
func NewMemBrk(limit int) *MemBrk {
	return &MemBrk{
		mem:   make([]byte, 0, limit),
		limit: limit,
	}
}

// Grow extends the claimed heap by delta bytes and returns the boundary address from before the
// extension. Growing past the configured limit fails with an error wrapping
// brkheap.ResourceExhaustedError and leaves the boundary untouched.
func (b *MemBrk) Grow(delta int) (uintptr, error) {
	previousBoundary := memBase + uintptr(len(b.mem))
	if delta == 0 {
		return previousBoundary, nil
	}
	if delta < 0 {
		return 0, cerrors.Errorf("the heap only grows forward, but a delta of %d was requested", delta)
	}
	if len(b.mem)+delta > b.limit {
		return 0, cerrors.Wrapf(brkheap.ResourceExhaustedError, "%d additional bytes were requested with %d of %d already claimed", delta, len(b.mem), b.limit)
	}

	b.mem = append(b.mem, make([]byte, delta)...)
	return previousBoundary, nil
}

// Bytes exposes size bytes of the claimed region starting at addr.
func (b *MemBrk) Bytes(addr uintptr, size int) []byte {
	offset := int(addr - memBase)
	return b.mem[offset : offset+size : offset+size]
}
