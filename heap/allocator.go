package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/memkit/brkheap"
	"github.com/memkit/brkheap/brk"
	"github.com/memkit/brkheap/chain"
	"golang.org/x/exp/slog"
)

// Pointer is the address of a payload region handed out by an Allocator. It stays meaningful for
// the life of the process: even after a release the region keeps its address, and a later
// allocation may hand the same Pointer out again.
type Pointer uintptr

// NullPointer is the zero Pointer. It is never handed out by an Allocator and is accepted by
// Release and Resize in place of a real region.
const NullPointer Pointer = 0

// Allocator hands out regions of a heap that only grows forward. It keeps one chain record per
// region ever carved out of the heap, reuses released regions by first-fit scan, and claims new
// space from its Brk when nothing fits. Regions are never split, merged, or returned to the
// operating system.
//
// An Allocator is process-wide mutable state with no internal synchronization. All methods must
// be called from a single goroutine.
type Allocator struct {
	logger *slog.Logger
	brk    brk.Brk
	chain  chain.Chain

	// recordMap maps every payload address ever handed out to its record index in the chain,
	// standing in for walking back a metadata-sized offset from the pointer.
	recordMap *swiss.Map[Pointer, int]
}

var _ brkheap.Validatable = &Allocator{}

// Allocate hands out a region of at least size bytes and returns its payload address. The first
// free record whose capacity covers size is recycled whole, keeping its original capacity. When
// no record fits, the heap grows by size plus the per-record metadata overhead and a new record
// is appended at the tail of the chain.
//
// A non-positive size fails with an error wrapping brkheap.InvalidSizeError without touching the
// heap. A failed growth surfaces from the Brk with the chain left unchanged.
func (a *Allocator) Allocate(size int) (Pointer, error) {
	if size <= 0 {
		return NullPointer, errors.Wrapf(brkheap.InvalidSizeError, "%d bytes were requested", size)
	}

	index, ok := a.chain.FindFree(size)
	if ok {
		err := a.chain.Recycle(index)
		if err != nil {
			panic(err)
		}

		record := a.chain.At(index)
		a.logger.Debug("Allocator::Allocate recycled a free record",
			slog.Int("Size", size),
			slog.Int("RecordSize", record.Size),
			slog.Int("Index", index))

		brkheap.DebugValidate(a)
		return Pointer(record.Payload), nil
	}

	previousBoundary, err := a.brk.Grow(size + chain.MetadataSize)
	if err != nil {
		return NullPointer, errors.Wrapf(err, "failed to claim %d bytes from the heap", size+chain.MetadataSize)
	}

	p := Pointer(previousBoundary) + chain.MetadataSize
	index = a.chain.Append(uintptr(p), size)
	a.recordMap.Put(p, index)

	a.logger.Debug("Allocator::Allocate carved a new record",
		slog.Int("Size", size),
		slog.Int("Index", index))

	brkheap.DebugValidate(a)
	return p, nil
}

// Release returns the region at p to the allocator for reuse. A null pointer is a no-op. The
// record keeps its address and capacity; no memory moves back across the heap boundary and
// neighboring free regions are not merged.
//
// Releasing a pointer that was never handed out, or that is not currently handed out, means the
// chain can no longer be trusted, so Release panics with an error wrapping
// brkheap.CorruptedMetadataError rather than returning it.
func (a *Allocator) Release(p Pointer) {
	if p == NullPointer {
		return
	}

	index, ok := a.recordMap.Get(p)
	if !ok {
		panic(errors.Wrapf(brkheap.CorruptedMetadataError, "the released pointer %#x was never handed out", uintptr(p)))
	}

	err := a.chain.Release(index)
	if err != nil {
		panic(err)
	}

	a.logger.Debug("Allocator::Release", slog.Int("Index", index))
	brkheap.DebugValidate(a)
}

// Resize grows the region at p to cover at least newSize bytes. A null pointer delegates to
// Allocate. When the record's capacity already covers newSize the same pointer is returned
// unchanged and the heap does not grow- the region is never shrunk or split, so any difference
// stays with it. Otherwise a new region is allocated, the old record's full capacity is copied
// across, and the old pointer is released for later reuse.
//
// A failed allocation leaves the original region untouched and still valid.
func (a *Allocator) Resize(p Pointer, newSize int) (Pointer, error) {
	if p == NullPointer {
		return a.Allocate(newSize)
	}

	index, ok := a.recordMap.Get(p)
	if !ok {
		panic(errors.Wrapf(brkheap.CorruptedMetadataError, "the resized pointer %#x was never handed out", uintptr(p)))
	}

	record := a.chain.At(index)
	if record.Size >= newSize {
		return p, nil
	}

	newPointer, err := a.Allocate(newSize)
	if err != nil {
		return NullPointer, err
	}

	copy(a.brk.Bytes(uintptr(newPointer), record.Size), a.brk.Bytes(uintptr(p), record.Size))
	a.Release(p)

	a.logger.Debug("Allocator::Resize moved a region",
		slog.Int("OldSize", record.Size),
		slog.Int("NewSize", newSize))

	return newPointer, nil
}

// ZeroedAllocate hands out a region covering count elements of elementSize bytes each, with every
// payload byte written to zero before it is returned. The multiplication is checked before the
// allocation is attempted: a product that would overflow fails with an error wrapping
// brkheap.SizeOverflowError, and negative counts fail with brkheap.InvalidSizeError.
func (a *Allocator) ZeroedAllocate(count, elementSize int) (Pointer, error) {
	if count < 0 || elementSize < 0 {
		return NullPointer, errors.Wrapf(brkheap.InvalidSizeError, "%d elements of %d bytes were requested", count, elementSize)
	}

	size, err := brkheap.CheckMulAllocSize(count, elementSize, "zeroed allocation")
	if err != nil {
		return NullPointer, err
	}

	p, err := a.Allocate(size)
	if err != nil {
		return NullPointer, err
	}

	payload := a.brk.Bytes(uintptr(p), size)
	for i := range payload {
		payload[i] = 0
	}

	return p, nil
}

// Bytes exposes the payload for a pointer handed out by this Allocator. The returned slice covers
// the record's full capacity, which may exceed the size originally requested if the region was
// recycled from a larger release.
func (a *Allocator) Bytes(p Pointer) ([]byte, error) {
	index, ok := a.recordMap.Get(p)
	if !ok {
		return nil, errors.Wrapf(brkheap.CorruptedMetadataError, "the pointer %#x was never handed out", uintptr(p))
	}

	record := a.chain.At(index)
	return a.brk.Bytes(record.Payload, record.Size), nil
}

// AllocationCount returns the number of regions currently handed out.
func (a *Allocator) AllocationCount() int {
	return a.chain.AllocationCount()
}

// AddDetailedStatistics sums this heap's allocation statistics into the statistics currently
// present in the provided brkheap.DetailedStatistics object.
func (a *Allocator) AddDetailedStatistics(stats *brkheap.DetailedStatistics) {
	a.chain.AddDetailedStatistics(stats)
}

// Validate performs internal consistency checks on the allocator: the chain invariants, the
// pointer table's agreement with the chain, and the tail record's position against the current
// heap boundary. When the allocator is functioning correctly it should not be possible for this
// method to return an error.
func (a *Allocator) Validate() error {
	err := a.chain.Validate()
	if err != nil {
		return err
	}

	if a.recordMap.Count() != a.chain.Len() {
		return errors.Errorf("the pointer table has %d entries for %d chain records", a.recordMap.Count(), a.chain.Len())
	}

	var tableErr error
	a.recordMap.Iter(func(p Pointer, index int) (stop bool) {
		if index < 0 || index >= a.chain.Len() || a.chain.At(index).Payload != uintptr(p) {
			tableErr = errors.Errorf("the pointer table maps %#x to record %d, which does not own it", uintptr(p), index)
			return true
		}
		return false
	})
	if tableErr != nil {
		return tableErr
	}

	boundary, err := a.brk.Grow(0)
	if err != nil {
		return err
	}

	if a.chain.Len() > 0 {
		record := a.chain.At(a.chain.Len() - 1)
		end := record.Payload + uintptr(record.Size)
		if end > boundary {
			return errors.Errorf("the tail record ends at %#x, past the heap boundary %#x", end, boundary)
		}
	}

	return nil
}

// BuildStatsString builds a json blob describing the heap: summary statistics followed by one
// entry per chain record in allocation order.
func (a *Allocator) BuildStatsString() string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	var stats brkheap.DetailedStatistics
	stats.Clear()
	a.chain.AddDetailedStatistics(&stats)

	general := obj.Name("General").Object()
	general.Name("Records").Int(a.chain.Len())
	general.Name("Allocations").Int(stats.AllocationCount)
	general.Name("FreeRegions").Int(a.chain.FreeRegionsCount())
	general.Name("HeapBytes").Int(stats.HeapBytes)
	general.Name("AllocationBytes").Int(stats.AllocationBytes)
	general.Name("FreeBytes").Int(a.chain.SumFreeSize())
	general.End()

	records := obj.Name("Records").Array()
	a.chain.ChainJsonData(records)
	records.End()

	obj.End()
	return string(writer.Bytes())
}
