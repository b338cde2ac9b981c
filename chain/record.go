package chain

// Status records how a block record reached its current state. It exists for release-time
// consistency checks and is never consulted when placing allocations.
type Status uint32

const (
	// StatusCarved marks a record whose region was freshly carved out of the heap by a growth
	// call and has not been released since.
	StatusCarved Status = iota + 1
	// StatusRecycled marks a record whose region was handed out again after a release.
	StatusRecycled
	// StatusReleased marks a record whose region is free and waiting to be reused.
	StatusReleased
)

var statusMapping = map[Status]string{
	StatusCarved:   "StatusCarved",
	StatusRecycled: "StatusRecycled",
	StatusReleased: "StatusReleased",
}

func (s Status) String() string {
	return statusMapping[s]
}

// MetadataSize is the number of bytes reserved ahead of every payload in the claimed region.
// Every growth claims MetadataSize bytes on top of the payload size, and the payload address
// handed to callers always sits exactly MetadataSize bytes past the boundary the growth call
// returned.
const MetadataSize = 32

// Record describes one region ever carved out of the heap. Records are created by growth,
// appended at the tail of the chain and never removed. A release only flips the record free; the
// region keeps its address and capacity for the remainder of the process.
type Record struct {
	// Payload is the address of the first payload byte.
	Payload uintptr
	// Size is the payload size in bytes that the caller originally requested. It is never
	// rounded and never changes, even when the record is recycled for a smaller request.
	Size int
	// Free reports whether the payload is available for reuse.
	Free bool
	// Status records how the record reached its current state.
	Status Status
}
