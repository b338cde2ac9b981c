package brk

// Brk is the coarse heap-growth primitive the allocator is built on top of. It follows the sbrk
// contract: the claimed region is a single contiguous run of bytes, and the only way to obtain
// more memory is to move the boundary forward. Nothing is ever returned to the operating system.
//
// Implementations are not safe for concurrent use. The allocator and its Brk share a single notion
// of the current boundary, so one Brk must not back more than one allocator.
type Brk interface {
	// Grow extends the claimed heap by delta bytes and returns the address that was the boundary
	// before the extension, which is the start of the newly available region. A delta of 0 reports
	// the current boundary without moving it. Negative deltas are rejected. A failed Grow leaves
	// the boundary where it was and is never retried internally.
	Grow(delta int) (uintptr, error)
	// Bytes exposes size bytes of the claimed region starting at addr, for reads and writes. The
	// range must sit entirely below the current boundary. The returned slice stays valid as the
	// heap grows.
	Bytes(addr uintptr, size int) []byte
}
