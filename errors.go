package accel

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned by every configuration request once the
// native acceleration backend failed its one-time initialization.
// The condition is permanent for the lifetime of the environment.
var ErrBackendUnavailable = errors.New("accel: acceleration backend unavailable")

// ErrOutOfMemory reports a native allocation failure (texture or
// framebuffer memory exhausted). It is absorbed where it occurs and turned
// into a fallback decision; it is never fatal.
var ErrOutOfMemory = errors.New("accel: out of GPU memory")

// ErrNilReference reports a missing collaborator (peer, config, context)
// encountered while building an accelerated surface. It is treated exactly
// like ErrOutOfMemory.
var ErrNilReference = errors.New("accel: nil reference")

// ConfigAcquisitionError is returned when the native configuration for a
// display could not be acquired. There is no useful fallback, so callers
// should treat it as fatal for that device.
type ConfigAcquisitionError struct {
	DisplayID   uint32
	PixelFormat int
	Err         error
}

func (e *ConfigAcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("accel: cannot acquire configuration for display %d (pixfmt %d): %v",
			e.DisplayID, e.PixelFormat, e.Err)
	}
	return fmt.Sprintf("accel: cannot acquire configuration for display %d (pixfmt %d)",
		e.DisplayID, e.PixelFormat)
}

func (e *ConfigAcquisitionError) Unwrap() error { return e.Err }

// UnsupportedOperationError is an explicit rejection of a request, naming
// the precondition that failed.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return "accel: " + e.Op + ": " + e.Reason
}

// IsAllocationFailure reports whether err belongs to the allocation class
// (out of memory or nil reference), which callers recover from locally.
func IsAllocationFailure(err error) bool {
	return errors.Is(err, ErrOutOfMemory) || errors.Is(err, ErrNilReference)
}
