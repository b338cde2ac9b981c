package brkheap

import "github.com/pkg/errors"

// InvalidSizeError is the error returned from allocation operations when the requested size is not
// a positive count of bytes
var InvalidSizeError error = errors.New("allocation size must be a positive count of bytes")

// SizeOverflowError is the error returned from CheckMulAllocSize or other methods when a size
// calculation would exceed the representable range
var SizeOverflowError error = errors.New("allocation size calculation overflows")

// ResourceExhaustedError is the error returned when the heap-growth primitive cannot extend the
// heap any further
var ResourceExhaustedError error = errors.New("the heap boundary could not be extended")

// CorruptedMetadataError is the error carried by panics raised when a release-time consistency
// check fails. It indicates caller misuse, such as a double release or a caller writing before
// the start of its own region, and is never recoverable.
var CorruptedMetadataError error = errors.New("heap block metadata is corrupted")
