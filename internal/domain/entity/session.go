package entity

import "fmt"

// OutputMethod is how mixed pictures reach the GPU consumer.
type OutputMethod string

const (
	OutputNone         OutputMethod = "none"
	OutputPixmap       OutputMethod = "pixmap"
	OutputGLInteropRGB OutputMethod = "interop_rgb"
	OutputGLInteropYUV OutputMethod = "interop_yuv"
)

// ParseOutputMethod maps a config value to a method. "auto" and unknown
// values return OutputNone, which callers treat as no preference.
func ParseOutputMethod(s string) OutputMethod {
	switch m := OutputMethod(s); m {
	case OutputPixmap, OutputGLInteropRGB, OutputGLInteropYUV:
		return m
	default:
		return OutputNone
	}
}

// UsesMixer reports whether pictures pass through the hardware mixer.
func (m OutputMethod) UsesMixer() bool {
	return m == OutputPixmap || m == OutputGLInteropRGB
}

// RecoveryState is the device recovery state machine.
type RecoveryState int32

const (
	StateHealthy RecoveryState = iota
	StatePreemptionDetected
	StateRecovering
	StateFailed
)

func (s RecoveryState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StatePreemptionDetected:
		return "preemption_detected"
	case StateRecovering:
		return "recovering"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("recovery(%d)", int(s))
	}
}

// Health is the coarse status reported to the decode library.
type Health int

const (
	HealthOK Health = iota
	HealthRecovering
	HealthFailed
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthRecovering:
		return "recovering"
	case HealthFailed:
		return "failed"
	default:
		return fmt.Sprintf("health(%d)", int(h))
	}
}

// HealthOf collapses a recovery state into a Health value.
func HealthOf(s RecoveryState) Health {
	switch s {
	case StateHealthy:
		return HealthOK
	case StateFailed:
		return HealthFailed
	default:
		return HealthRecovering
	}
}
