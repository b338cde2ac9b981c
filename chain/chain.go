package chain

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/memkit/brkheap"
)

// Chain is the allocator's record book: one Record for every region ever carved out of the heap,
// in allocation order. Because the heap only grows forward and records are never removed,
// allocation order is also ascending address order, and the record following any record is simply
// the record at the next index.
//
// The zero value is an empty chain, ready for its first Append.
type Chain struct {
	records     []Record
	sumFreeSize int
	freeCount   int
}

var _ brkheap.Validatable = &Chain{}

// Len returns the number of records ever created, free or not.
func (c *Chain) Len() int {
	return len(c.records)
}

// AllocationCount returns the number of records currently handed out.
func (c *Chain) AllocationCount() int {
	return len(c.records) - c.freeCount
}

// FreeRegionsCount returns the number of records available for reuse. Adjacent free records are
// never merged, so each one counts on its own.
func (c *Chain) FreeRegionsCount() int {
	return c.freeCount
}

// SumFreeSize returns the number of payload bytes sitting in free records.
func (c *Chain) SumFreeSize() int {
	return c.sumFreeSize
}

// At returns a copy of the record at index.
func (c *Chain) At(index int) Record {
	return c.records[index]
}

// FindFree performs a first-fit linear scan from the head of the chain and returns the index of
// the first free record whose capacity covers size. The scan never splits an oversized record;
// whoever recycles the result gets the whole region.
func (c *Chain) FindFree(size int) (int, bool) {
	for index := 0; index < len(c.records); index++ {
		if c.records[index].Free && c.records[index].Size >= size {
			return index, true
		}
	}

	return 0, false
}

// Append creates an in-use record for a freshly carved region and links it at the tail of the
// chain. It returns the new record's index.
func (c *Chain) Append(payload uintptr, size int) int {
	c.records = append(c.records, Record{
		Payload: payload,
		Size:    size,
		Status:  StatusCarved,
	})

	return len(c.records) - 1
}

// Recycle hands a free record out again. The record keeps its original size, which may exceed
// what the caller asked for.
func (c *Chain) Recycle(index int) error {
	record := &c.records[index]
	if !record.Free {
		return errors.Wrapf(brkheap.CorruptedMetadataError, "record %d was recycled while still handed out", index)
	}

	record.Free = false
	record.Status = StatusRecycled
	c.freeCount--
	c.sumFreeSize -= record.Size

	return nil
}

// Release flips a handed-out record free. A record that is already free, or that does not carry
// one of the two in-use statuses, indicates a double release or a caller scribbling over the
// heap. The chain cannot be trusted past that point, so the returned error is not recoverable.
func (c *Chain) Release(index int) error {
	record := &c.records[index]
	if record.Free {
		return errors.Wrapf(brkheap.CorruptedMetadataError, "record %d was released twice", index)
	}
	if record.Status != StatusCarved && record.Status != StatusRecycled {
		return errors.Wrapf(brkheap.CorruptedMetadataError, "record %d carries status %s at release time", index, record.Status)
	}

	record.Free = true
	record.Status = StatusReleased
	c.freeCount++
	c.sumFreeSize += record.Size

	return nil
}

// VisitAllRegions calls the provided callback once per record, in chain order.
func (c *Chain) VisitAllRegions(visit func(index int, record Record) error) error {
	for index, record := range c.records {
		err := visit(index, record)
		if err != nil {
			return err
		}
	}

	return nil
}

// AddDetailedStatistics sums this chain's allocation statistics into the statistics currently
// present in the provided brkheap.DetailedStatistics object.
func (c *Chain) AddDetailedStatistics(stats *brkheap.DetailedStatistics) {
	for _, record := range c.records {
		stats.RecordCount++
		stats.HeapBytes += record.Size + MetadataSize

		if record.Free {
			stats.AddUnusedRange(record.Size)
		} else {
			stats.AddAllocation(record.Size)
		}
	}
}

// Validate performs internal consistency checks on the chain. When the allocator is functioning
// correctly it should not be possible for this method to return an error, but it may assist in
// diagnosing issues with the implementation.
func (c *Chain) Validate() error {
	var sumFreeSize, freeCount int
	var boundary uintptr

	for index, record := range c.records {
		if record.Size <= 0 {
			return errors.Errorf("record %d has a payload size of %d, but sizes are always positive", index, record.Size)
		}

		if record.Payload < boundary+MetadataSize {
			return errors.Errorf("record %d has payload address %#x- this collides with the previous record, expected at least %#x", index, record.Payload, boundary+MetadataSize)
		}

		switch record.Status {
		case StatusCarved, StatusRecycled:
			if record.Free {
				return errors.Errorf("record %d is free but carries the in-use status %s", index, record.Status)
			}
		case StatusReleased:
			if !record.Free {
				return errors.Errorf("record %d is handed out but carries status %s", index, record.Status)
			}

			sumFreeSize += record.Size
			freeCount++
		default:
			return errors.Errorf("record %d carries the unknown status %d", index, uint32(record.Status))
		}

		boundary = record.Payload + uintptr(record.Size)
	}

	if freeCount != c.freeCount {
		return errors.Errorf("counted %d free records, but the chain's cached count is %d", freeCount, c.freeCount)
	}

	if sumFreeSize != c.sumFreeSize {
		return errors.Errorf("counted %d free payload bytes, but the chain's cached sum is %d", sumFreeSize, c.sumFreeSize)
	}

	return nil
}

// ChainJsonData populates a json array with one entry per record, in chain order.
func (c *Chain) ChainJsonData(json jwriter.ArrayState) {
	for _, record := range c.records {
		obj := json.Object()
		obj.Name("Payload").Int(int(record.Payload))
		obj.Name("Size").Int(record.Size)
		obj.Name("Free").Bool(record.Free)
		obj.Name("Status").String(record.Status.String())
		obj.End()
	}
}
