package heap_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/memkit/brkheap"
	"github.com/memkit/brkheap/brk"
	"github.com/memkit/brkheap/chain"
	"github.com/memkit/brkheap/heap"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, limit int) (*heap.Allocator, *brk.MemBrk) {
	b := brk.NewMemBrk(limit)
	allocator, err := heap.New(b, heap.CreateOptions{})
	require.NoError(t, err)

	return allocator, b
}

func boundary(t *testing.T, b *brk.MemBrk) uintptr {
	current, err := b.Grow(0)
	require.NoError(t, err)
	return current
}

func TestAllocateAndRelease(t *testing.T) {
	allocator, b := newTestAllocator(t, 4096)
	base := boundary(t, b)

	p, err := allocator.Allocate(64)
	require.NoError(t, err)
	require.NotEqual(t, heap.NullPointer, p)

	// The payload sits one metadata-sized offset past the pre-growth boundary.
	require.Equal(t, base+chain.MetadataSize, uintptr(p))
	require.Equal(t, base+chain.MetadataSize+64, boundary(t, b))
	require.Equal(t, 1, allocator.AllocationCount())
	require.NoError(t, allocator.Validate())

	allocator.Release(p)
	require.Equal(t, 0, allocator.AllocationCount())
	require.Equal(t, base+chain.MetadataSize+64, boundary(t, b))
	require.NoError(t, allocator.Validate())
}

func TestAllocateFirstFitScenario(t *testing.T) {
	allocator, b := newTestAllocator(t, 4096)
	base := boundary(t, b)

	p1, err := allocator.Allocate(16)
	require.NoError(t, err)

	p2, err := allocator.Allocate(16)
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	afterTwoGrowths := base + uintptr(2*(16+chain.MetadataSize))
	require.Equal(t, afterTwoGrowths, boundary(t, b))

	allocator.Release(p1)

	p3, err := allocator.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, p1, p3)
	require.Equal(t, afterTwoGrowths, boundary(t, b))

	// p1's record is exactly 16 bytes, so a 32-byte request skips it and the
	// heap grows a third time.
	p4, err := allocator.Allocate(32)
	require.NoError(t, err)
	require.Greater(t, uintptr(p4), uintptr(p2))
	require.Equal(t, afterTwoGrowths+uintptr(32+chain.MetadataSize), boundary(t, b))

	require.NoError(t, allocator.Validate())
}

func TestAllocationsDoNotOverlap(t *testing.T) {
	allocator, _ := newTestAllocator(t, 1<<16)

	pointers := make([]heap.Pointer, 0, 8)
	for i := 0; i < 8; i++ {
		p, err := allocator.Allocate(16 + i*8)
		require.NoError(t, err)
		pointers = append(pointers, p)
	}

	for i, p := range pointers {
		payload, err := allocator.Bytes(p)
		require.NoError(t, err)
		for j := range payload {
			payload[j] = byte(i + 1)
		}
	}

	for i, p := range pointers {
		payload, err := allocator.Bytes(p)
		require.NoError(t, err)
		for _, value := range payload {
			require.EqualValues(t, byte(i+1), value)
		}
	}

	require.NoError(t, allocator.Validate())
}

func TestRecycledRegionKeepsCapacity(t *testing.T) {
	allocator, b := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(64)
	require.NoError(t, err)
	allocator.Release(p)

	before := boundary(t, b)
	q, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Equal(t, before, boundary(t, b))

	// The record never forgets its original size.
	payload, err := allocator.Bytes(q)
	require.NoError(t, err)
	require.Len(t, payload, 64)
}

func TestResizeWithinCapacity(t *testing.T) {
	allocator, b := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(64)
	require.NoError(t, err)

	payload, err := allocator.Bytes(p)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = byte(i)
	}

	before := boundary(t, b)

	q, err := allocator.Resize(p, 16)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Equal(t, before, boundary(t, b))

	q, err = allocator.Resize(p, 64)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Equal(t, before, boundary(t, b))
}

func TestResizeGrowsAndMoves(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(64)
	require.NoError(t, err)

	payload, err := allocator.Bytes(p)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = byte(i)
	}

	q, err := allocator.Resize(p, 128)
	require.NoError(t, err)
	require.NotEqual(t, p, q)

	moved, err := allocator.Bytes(q)
	require.NoError(t, err)
	require.Len(t, moved, 128)
	for i := 0; i < 64; i++ {
		require.EqualValues(t, byte(i), moved[i])
	}

	// The old region went back on the chain as a free record and is fair game
	// for the next fitting request.
	r, err := allocator.Allocate(64)
	require.NoError(t, err)
	require.Equal(t, p, r)

	require.NoError(t, allocator.Validate())
}

func TestResizeNullPointerAllocates(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p, err := allocator.Resize(heap.NullPointer, 32)
	require.NoError(t, err)
	require.NotEqual(t, heap.NullPointer, p)
	require.Equal(t, 1, allocator.AllocationCount())
}

func TestResizeFailureLeavesRegionValid(t *testing.T) {
	allocator, _ := newTestAllocator(t, 16+chain.MetadataSize)

	p, err := allocator.Allocate(16)
	require.NoError(t, err)

	payload, err := allocator.Bytes(p)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = 0xCD
	}

	_, err = allocator.Resize(p, 64)
	require.ErrorIs(t, err, brkheap.ResourceExhaustedError)

	// The original region is untouched and still handed out.
	require.Equal(t, 1, allocator.AllocationCount())
	payload, err = allocator.Bytes(p)
	require.NoError(t, err)
	for _, value := range payload {
		require.EqualValues(t, 0xCD, value)
	}

	allocator.Release(p)
	require.NoError(t, allocator.Validate())
}

func TestZeroedAllocateZeroesRecycledRegions(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(64)
	require.NoError(t, err)

	payload, err := allocator.Bytes(p)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = 0xFF
	}
	allocator.Release(p)

	q, err := allocator.ZeroedAllocate(8, 8)
	require.NoError(t, err)
	require.Equal(t, p, q)

	payload, err = allocator.Bytes(q)
	require.NoError(t, err)
	for _, value := range payload {
		require.Zero(t, value)
	}
}

func TestZeroedAllocatePartialZeroing(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(64)
	require.NoError(t, err)

	payload, err := allocator.Bytes(p)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = 0xFF
	}
	allocator.Release(p)

	// Only the requested 32 bytes are zeroed- the recycled record's spare
	// capacity keeps whatever was there before.
	q, err := allocator.ZeroedAllocate(4, 8)
	require.NoError(t, err)
	require.Equal(t, p, q)

	payload, err = allocator.Bytes(q)
	require.NoError(t, err)
	for i := 0; i < 32; i++ {
		require.Zero(t, payload[i])
	}
	for i := 32; i < 64; i++ {
		require.EqualValues(t, 0xFF, payload[i])
	}
}

func TestZeroedAllocateRejectsOverflow(t *testing.T) {
	allocator, b := newTestAllocator(t, 4096)
	before := boundary(t, b)

	_, err := allocator.ZeroedAllocate(3, math.MaxInt/2)
	require.ErrorIs(t, err, brkheap.SizeOverflowError)
	require.Equal(t, before, boundary(t, b))

	_, err = allocator.ZeroedAllocate(-1, 8)
	require.ErrorIs(t, err, brkheap.InvalidSizeError)

	_, err = allocator.ZeroedAllocate(0, 8)
	require.ErrorIs(t, err, brkheap.InvalidSizeError)
	require.Equal(t, before, boundary(t, b))
}

func TestReleaseNullPointerIsNoOp(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	allocator.Release(heap.NullPointer)
	require.Equal(t, 0, allocator.AllocationCount())
}

func TestDoubleReleasePanics(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(16)
	require.NoError(t, err)

	allocator.Release(p)
	require.Panics(t, func() {
		allocator.Release(p)
	})
}

func TestReleaseUnknownPointerPanics(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	require.Panics(t, func() {
		allocator.Release(heap.Pointer(0xDEAD))
	})
}

func TestBytesUnknownPointer(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	_, err := allocator.Bytes(heap.Pointer(0xDEAD))
	require.ErrorIs(t, err, brkheap.CorruptedMetadataError)
}

func TestAllocatorStatistics(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p1, err := allocator.Allocate(100)
	require.NoError(t, err)

	_, err = allocator.Allocate(50)
	require.NoError(t, err)

	allocator.Release(p1)

	var stats brkheap.DetailedStatistics
	stats.Clear()
	allocator.AddDetailedStatistics(&stats)

	require.Equal(t, brkheap.DetailedStatistics{
		Statistics: brkheap.Statistics{
			RecordCount:     2,
			AllocationCount: 1,
			HeapBytes:       150 + 2*chain.MetadataSize,
			AllocationBytes: 50,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  50,
		AllocationSizeMax:  50,
		UnusedRangeSizeMin: 100,
		UnusedRangeSizeMax: 100,
	}, stats)
}

func TestBuildStatsString(t *testing.T) {
	allocator, _ := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(100)
	require.NoError(t, err)

	_, err = allocator.Allocate(50)
	require.NoError(t, err)

	allocator.Release(p)

	var parsed struct {
		General struct {
			Records         int
			Allocations     int
			FreeRegions     int
			HeapBytes       int
			AllocationBytes int
			FreeBytes       int
		}
		Records []struct {
			Payload int
			Size    int
			Free    bool
			Status  string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(allocator.BuildStatsString()), &parsed))

	require.Equal(t, 2, parsed.General.Records)
	require.Equal(t, 1, parsed.General.Allocations)
	require.Equal(t, 1, parsed.General.FreeRegions)
	require.Equal(t, 100, parsed.General.FreeBytes)
	require.Len(t, parsed.Records, 2)
	require.True(t, parsed.Records[0].Free)
	require.Equal(t, "StatusReleased", parsed.Records[0].Status)
	require.Equal(t, "StatusCarved", parsed.Records[1].Status)
}
