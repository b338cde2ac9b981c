//go:build linux

package brk

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/memkit/brkheap"
	"golang.org/x/sys/unix"
)

// SysBrk emulates sbrk on top of a fixed anonymous mapping. The whole reservation is mapped
// PROT_NONE up front and pages are made accessible as the boundary moves forward, so the claimed
// region is contiguous and its addresses are stable for the life of the SysBrk.
type SysBrk struct {
	region []byte
	brk    int
}

var _ Brk = &SysBrk{}

// NewSysBrk reserves limit bytes of address space for the heap to grow into. The reservation is
// rounded up to a whole number of pages.
func NewSysBrk(limit int) (*SysBrk, error) {
	limit = brkheap.AlignUp(limit, uint(unix.Getpagesize()))

	region, err := unix.Mmap(-1, 0, limit, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, cerrors.Wrap(err, "failed to reserve address space for the heap")
	}

	return &SysBrk{region: region}, nil
}

// Grow extends the claimed heap by delta bytes and returns the boundary address from before the
// extension. Growing past the reservation fails with an error wrapping
// brkheap.ResourceExhaustedError and leaves the boundary untouched.
func (b *SysBrk) Grow(delta int) (uintptr, error) {
	previousBoundary := b.base() + uintptr(b.brk)
	if delta == 0 {
		return previousBoundary, nil
	}
	if delta < 0 {
		return 0, cerrors.Errorf("the heap only grows forward, but a delta of %d was requested", delta)
	}
	if b.brk+delta > len(b.region) {
		return 0, cerrors.Wrapf(brkheap.ResourceExhaustedError, "%d additional bytes were requested with %d of %d already claimed", delta, b.brk, len(b.region))
	}

	pageSize := uint(unix.Getpagesize())
	protectFrom := brkheap.AlignDown(b.brk, pageSize)
	protectTo := brkheap.AlignUp(b.brk+delta, pageSize)
	err := unix.Mprotect(b.region[protectFrom:protectTo], unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return 0, cerrors.Wrap(err, "failed to commit heap pages")
	}

	b.brk += delta
	return previousBoundary, nil
}

// Bytes exposes size bytes of the claimed region starting at addr.
func (b *SysBrk) Bytes(addr uintptr, size int) []byte {
	offset := int(addr - b.base())
	return b.region[offset : offset+size : offset+size]
}

func (b *SysBrk) base() uintptr {
	return uintptr(unsafe.Pointer(&b.region[0]))
}

// Close releases the reservation. No method may be called on the SysBrk afterward, and all memory
// claimed through it becomes invalid.
func (b *SysBrk) Close() error {
	return unix.Munmap(b.region)
}
