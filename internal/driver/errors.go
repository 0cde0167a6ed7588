package driver

import (
	"errors"
	"fmt"
)

// FrameError is a resolution failure of one frame. The frame itself still
// produces output (the last good value); FrameError records why it is stale.
type FrameError struct {
	Run   string
	Seq   int64
	Frame int64
	Err   error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
}

// Unwrap returns the resolution error.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFrameError reports whether err is or wraps a FrameError.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}
