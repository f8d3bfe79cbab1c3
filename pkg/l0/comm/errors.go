package comm

import (
	"errors"
	"fmt"
)

// ErrNoData indicates nothing is queued in a ByteSource.
var ErrNoData = errors.New("no data")

// OverflowError describes a frame which outgrew the buffer.
type OverflowError struct {
	Size    int
	Dropped int
}

// Error implements error.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("frame exceeds %d bytes, %d bytes dropped", e.Size, e.Dropped)
}
