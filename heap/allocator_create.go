package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/memkit/brkheap/brk"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating an Allocator
type CreateOptions struct {
	// Logger is the logger the Allocator writes operation traces to. When nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// New creates an Allocator that claims memory from the provided Brk. The Allocator and its Brk
// share the heap boundary, so a Brk must not back more than one Allocator.
func New(b brk.Brk, options CreateOptions) (*Allocator, error) {
	if b == nil {
		return nil, errors.New("attempted to create an Allocator with a nil Brk")
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Allocator{
		logger:    logger,
		brk:       b,
		recordMap: swiss.NewMap[Pointer, int](42),
	}, nil
}
