package port

import (
	"context"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

//go:generate mockgen -source=presentation.go -destination=mocks/mock_presentation.go -package=mocks

// PixmapSurface is the offscreen-pixmap output path: the device presents
// output surfaces into native pixmaps that the GPU binds as textures.
type PixmapSurface interface {
	CreatePixmap(width, height int) (entity.PixmapHandle, error)
	DestroyPixmap(pix entity.PixmapHandle) error

	// DisplaySurface copies a mixed output surface into the pixmap.
	DisplaySurface(ctx context.Context, out entity.OutputSurfaceHandle, pix entity.PixmapHandle) error

	BindTexImage(pix entity.PixmapHandle) (entity.TextureHandle, error)
	ReleaseTexImage(pix entity.PixmapHandle) error
}

// InteropRegistration is a hardware surface registered as GL textures.
type InteropRegistration struct {
	Handle   entity.InteropHandle
	Textures [entity.MaxPlanes]entity.TextureHandle
	Planes   int
}

// GLInterop registers hardware surfaces directly as GL textures. Every GPU
// read of a registered surface must sit between Map and Unmap.
type GLInterop interface {
	Init(ctx context.Context) error

	RegisterOutputSurface(h entity.OutputSurfaceHandle) (InteropRegistration, error)
	RegisterVideoSurface(h entity.VideoSurfaceHandle) (InteropRegistration, error)
	Unregister(h entity.InteropHandle) error

	Map(h entity.InteropHandle) error
	Unmap(h entity.InteropHandle) error

	Fini() error
}

// RendererCaps describes what the GPU texture consumer can accept.
type RendererCaps interface {
	// SupportsOutputMethod reports whether the consumer can register
	// textures for the method.
	SupportsOutputMethod(method entity.OutputMethod) bool
	// OutputSize is the size of the render target in pixels.
	OutputSize() (width, height int)
}
