// Package port defines interfaces for external dependencies.
package port

import (
	"context"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// DeviceFactory opens hardware device sessions. Recovery calls Open again
// after a preemption to obtain a fresh device.
type DeviceFactory interface {
	// Open creates a device. Errors are wrapped ErrDeviceCreationFailed.
	Open(ctx context.Context) (Device, error)
}

// PreemptionCallback is invoked from a driver-owned goroutine when the
// device is lost. Implementations must not block or allocate.
type PreemptionCallback func()

// Device is one hardware context. Every handle it returns is only valid
// for this device instance.
type Device interface {
	// Name identifies the backing implementation for diagnostics.
	Name() string

	CreateVideoSurface(chroma entity.ChromaType, width, height int) (entity.VideoSurfaceHandle, error)
	DestroyVideoSurface(h entity.VideoSurfaceHandle) error

	CreateOutputSurface(width, height int) (entity.OutputSurfaceHandle, error)
	DestroyOutputSurface(h entity.OutputSurfaceHandle) error

	CreateMixer(cfg MixerConfig) (Mixer, error)

	// QueryFeatures reports which mixer features the hardware implements.
	QueryFeatures(features []entity.MixerFeature) (map[entity.MixerFeature]bool, error)
	// QueryDecoder reports the limits of a decoder profile.
	QueryDecoder(profile entity.DecoderProfile) (entity.DecoderCaps, error)

	RegisterPreemption(cb PreemptionCallback) error

	// Status returns ErrDevicePreempted once the device has been lost.
	Status() error

	Close() error
}

// MixerConfig describes the video surfaces a mixer will read.
type MixerConfig struct {
	Width    int
	Height   int
	Chroma   entity.ChromaType
	Features []entity.MixerFeature
}

// RenderRequest is one mixer invocation.
type RenderRequest struct {
	Field   entity.Field
	Past    [2]entity.VideoSurfaceHandle
	Current entity.VideoSurfaceHandle
	Future  [2]entity.VideoSurfaceHandle
	SrcRect entity.Rect
	DstRect entity.Rect
	Target  entity.OutputSurfaceHandle
}

// Mixer deinterlaces, scales and color-converts video surfaces into
// output surfaces.
type Mixer interface {
	SetFeatureEnables(enables map[entity.MixerFeature]bool) error
	SetAttributes(attrs entity.MixerAttributes) error

	// Render blocks until the hardware accepted the request. There is no
	// timeout; a stuck device reports through preemption or Status.
	Render(ctx context.Context, req RenderRequest) error

	Destroy() error
}

// DeviceSession pairs a device with the generation its resources carry.
type DeviceSession struct {
	Device     Device
	Generation entity.Generation
}

// Valid reports whether a resource tagged with gen may reach this device.
func (s DeviceSession) Valid(gen entity.Generation) bool {
	return s.Device != nil && gen == s.Generation
}
