package brkheap

import (
	"math"

	cerrors "github.com/cockroachdb/errors"
)

// CheckMulAllocSize computes count * elementSize for an element-wise allocation, verifying before
// the multiplication that the product cannot exceed the representable range for a size. It returns
// an error wrapping SizeOverflowError when it would.
func CheckMulAllocSize(count, elementSize int, name string) (int, error) {
	if count > 0 && elementSize > math.MaxInt/count {
		return 0, cerrors.Wrapf(SizeOverflowError, "%s is %d elements of %d bytes", name, count, elementSize)
	}
	return count * elementSize, nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}
