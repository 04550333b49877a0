package entity

import "errors"

// Unrecoverable: the caller must fall back to a non-accelerated path.
var (
	ErrDeviceCreationFailed = errors.New("hardware device creation failed")
	ErrRecoveryFailed       = errors.New("device recovery failed")
)

// Recoverable: absorbed inside the pipeline and turned into a state
// transition or a dropped frame.
var (
	ErrCapabilityUnsupported = errors.New("capability unsupported")
	ErrPoolExhausted         = errors.New("surface pool exhausted")
	ErrDevicePreempted       = errors.New("device preempted")
	ErrOutputBindingFailed   = errors.New("output binding failed")
	ErrOutputUnavailable     = errors.New("no output method available")
	ErrStaleGeneration       = errors.New("resource belongs to a stale device generation")
	ErrSurfaceAttached       = errors.New("surface still attached to an output picture")
	ErrInteropBracket        = errors.New("interop map/unmap bracket violated")
	ErrSlotEmpty             = errors.New("flip slot holds no picture")
	ErrClosed                = errors.New("pipeline closed")
)

// ErrQueueFull is the normal backpressure signal, not a failure.
var ErrQueueFull = errors.New("queue full")

// IsFatal reports whether err must be surfaced past the pipeline boundary.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceCreationFailed) || errors.Is(err, ErrRecoveryFailed)
}

// IsPreempted reports whether a hardware call failed because the device was lost.
func IsPreempted(err error) bool {
	return errors.Is(err, ErrDevicePreempted)
}
