package presentation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Backend is how output pictures become GPU textures. One backend is
// selected per configuration and never swapped without tearing the
// arena down.
type Backend interface {
	Method() entity.OutputMethod
	// Bracketed reports whether every GPU read must sit between
	// Acquire and Release.
	Bracketed() bool

	Prepare(ctx context.Context, pics []*entity.OutputPicture) error
	// Display pushes a mixed picture to its GPU target before it enters
	// the flip ring.
	Display(ctx context.Context, pic *entity.OutputPicture) error
	Acquire(pic *entity.OutputPicture) (entity.Texture, error)
	Release(pic *entity.OutputPicture) error
	Teardown(pics []*entity.OutputPicture)
}

// PixmapBackend presents through offscreen pixmaps bound as textures.
type PixmapBackend struct {
	logger *zerolog.Logger
	px     port.PixmapSurface
	width  int
	height int
}

// NewPixmapBackend creates a pixmap backend producing width x height pixmaps.
func NewPixmapBackend(logger *zerolog.Logger, px port.PixmapSurface, width, height int) *PixmapBackend {
	return &PixmapBackend{logger: logger, px: px, width: width, height: height}
}

func (b *PixmapBackend) Method() entity.OutputMethod { return entity.OutputPixmap }
func (b *PixmapBackend) Bracketed() bool             { return false }

// Prepare creates every pixmap up front.
func (b *PixmapBackend) Prepare(_ context.Context, pics []*entity.OutputPicture) error {
	return b.PreBindAllPixmaps(pics)
}

// PreBindAllPixmaps creates the pixmap of every picture so the hot path
// never pays for creation.
func (b *PixmapBackend) PreBindAllPixmaps(pics []*entity.OutputPicture) error {
	for _, pic := range pics {
		if err := b.BindPixmap(pic); err != nil {
			return err
		}
	}
	return nil
}

// BindPixmap creates the picture's pixmap if it has none.
func (b *PixmapBackend) BindPixmap(pic *entity.OutputPicture) error {
	if pic.Pixmap != 0 {
		return nil
	}
	pix, err := b.px.CreatePixmap(b.width, b.height)
	if err != nil {
		return fmt.Errorf("create pixmap for picture %d: %w", pic.Index, err)
	}
	pic.Pixmap = pix
	return nil
}

// ReleasePixmap unbinds and destroys the picture's pixmap if present.
func (b *PixmapBackend) ReleasePixmap(pic *entity.OutputPicture) {
	if pic.Pixmap == 0 {
		return
	}
	if pic.Bound {
		if err := b.px.ReleaseTexImage(pic.Pixmap); err != nil {
			b.logger.Debug().Err(err).Int("picture", pic.Index).Msg("release tex image failed")
		}
		pic.Bound = false
	}
	if err := b.px.DestroyPixmap(pic.Pixmap); err != nil {
		b.logger.Debug().Err(err).Int("picture", pic.Index).Msg("destroy pixmap failed")
	}
	pic.Pixmap = 0
	pic.Textures = [entity.MaxPlanes]entity.TextureHandle{}
}

// Display copies the output surface into the picture's pixmap.
func (b *PixmapBackend) Display(ctx context.Context, pic *entity.OutputPicture) error {
	if err := b.BindPixmap(pic); err != nil {
		return err
	}
	if err := b.px.DisplaySurface(ctx, pic.OutputSurface, pic.Pixmap); err != nil {
		return fmt.Errorf("display picture %d: %w", pic.Index, err)
	}
	return nil
}

// Acquire binds the pixmap as a texture. Binding twice is a no-op.
func (b *PixmapBackend) Acquire(pic *entity.OutputPicture) (entity.Texture, error) {
	if !pic.Bound {
		tex, err := b.px.BindTexImage(pic.Pixmap)
		if err != nil {
			return entity.Texture{}, fmt.Errorf("bind pixmap of picture %d: %w", pic.Index, err)
		}
		pic.Textures[0] = tex
		pic.Bound = true
	}
	return entity.Texture{Pixmap: pic.Pixmap, Textures: pic.Textures, Planes: 1}, nil
}

// Release unbinds the texture. Releasing an unbound pixmap is a no-op.
func (b *PixmapBackend) Release(pic *entity.OutputPicture) error {
	if !pic.Bound {
		return nil
	}
	pic.Bound = false
	if err := b.px.ReleaseTexImage(pic.Pixmap); err != nil {
		return fmt.Errorf("release pixmap of picture %d: %w", pic.Index, err)
	}
	return nil
}

func (b *PixmapBackend) Teardown(pics []*entity.OutputPicture) {
	for _, pic := range pics {
		b.ReleasePixmap(pic)
	}
}

// InteropBackend registers hardware surfaces directly as GL textures.
// In RGB mode the mixer's output surfaces are registered at prepare time;
// in YUV mode decode surfaces are registered the first time they are shown.
type InteropBackend struct {
	logger *zerolog.Logger
	gl     port.GLInterop
	yuv    bool

	mu    sync.Mutex
	video map[entity.VideoSurfaceHandle]port.InteropRegistration
}

// NewInteropBackend creates an interop backend; yuv selects raw decode
// surfaces instead of mixed output surfaces.
func NewInteropBackend(logger *zerolog.Logger, gl port.GLInterop, yuv bool) *InteropBackend {
	return &InteropBackend{
		logger: logger,
		gl:     gl,
		yuv:    yuv,
		video:  make(map[entity.VideoSurfaceHandle]port.InteropRegistration),
	}
}

func (b *InteropBackend) Method() entity.OutputMethod {
	if b.yuv {
		return entity.OutputGLInteropYUV
	}
	return entity.OutputGLInteropRGB
}

func (b *InteropBackend) Bracketed() bool { return true }

// Prepare initializes interop and registers every output surface in RGB mode.
func (b *InteropBackend) Prepare(ctx context.Context, pics []*entity.OutputPicture) error {
	if err := b.gl.Init(ctx); err != nil {
		return fmt.Errorf("init gl interop: %w", err)
	}
	if b.yuv {
		return nil
	}
	for _, pic := range pics {
		if err := b.RegisterSurface(pic); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSurface registers the picture's surface with GL if needed.
func (b *InteropBackend) RegisterSurface(pic *entity.OutputPicture) error {
	if b.yuv {
		if pic.VideoSurface == nil {
			return fmt.Errorf("register picture %d: no video surface attached", pic.Index)
		}
		h := pic.VideoSurface.Handle
		b.mu.Lock()
		reg, ok := b.video[h]
		b.mu.Unlock()
		if !ok {
			var err error
			reg, err = b.gl.RegisterVideoSurface(h)
			if err != nil {
				return fmt.Errorf("register video surface %d: %w", h, err)
			}
			b.mu.Lock()
			b.video[h] = reg
			b.mu.Unlock()
		}
		b.apply(pic, reg)
		return nil
	}

	if pic.Bound {
		return nil
	}
	reg, err := b.gl.RegisterOutputSurface(pic.OutputSurface)
	if err != nil {
		return fmt.Errorf("register output surface of picture %d: %w", pic.Index, err)
	}
	b.apply(pic, reg)
	return nil
}

// Forget unregisters a decode surface whose handle is about to be
// destroyed. Unknown handles are ignored.
func (b *InteropBackend) Forget(h entity.VideoSurfaceHandle) {
	b.mu.Lock()
	reg, ok := b.video[h]
	delete(b.video, h)
	b.mu.Unlock()
	if !ok {
		return
	}
	if err := b.gl.Unregister(reg.Handle); err != nil {
		b.logger.Debug().Err(err).Uint32("handle", uint32(h)).Msg("unregister video surface failed")
	}
}

func (b *InteropBackend) apply(pic *entity.OutputPicture, reg port.InteropRegistration) {
	pic.Interop = reg.Handle
	pic.Textures = reg.Textures
	pic.Bound = true
}

// MapSurface hands the surface to GL. Mapping a mapped surface violates
// the interop bracket.
func (b *InteropBackend) MapSurface(pic *entity.OutputPicture) error {
	if pic.Mapped {
		return fmt.Errorf("map picture %d twice: %w", pic.Index, entity.ErrInteropBracket)
	}
	if err := b.gl.Map(pic.Interop); err != nil {
		return fmt.Errorf("map picture %d: %w", pic.Index, err)
	}
	pic.Mapped = true
	return nil
}

// UnmapSurface returns the surface to the hardware.
func (b *InteropBackend) UnmapSurface(pic *entity.OutputPicture) error {
	if !pic.Mapped {
		return fmt.Errorf("unmap of unmapped picture %d: %w", pic.Index, entity.ErrInteropBracket)
	}
	pic.Mapped = false
	if err := b.gl.Unmap(pic.Interop); err != nil {
		return fmt.Errorf("unmap picture %d: %w", pic.Index, err)
	}
	return nil
}

func (b *InteropBackend) Display(context.Context, *entity.OutputPicture) error { return nil }

func (b *InteropBackend) Acquire(pic *entity.OutputPicture) (entity.Texture, error) {
	if err := b.RegisterSurface(pic); err != nil {
		return entity.Texture{}, err
	}
	if err := b.MapSurface(pic); err != nil {
		return entity.Texture{}, err
	}
	planes := 1
	if b.yuv {
		planes = entity.MaxPlanes
	}
	return entity.Texture{Textures: pic.Textures, Planes: planes}, nil
}

func (b *InteropBackend) Release(pic *entity.OutputPicture) error {
	return b.UnmapSurface(pic)
}

// Teardown unmaps and unregisters everything and shuts interop down.
func (b *InteropBackend) Teardown(pics []*entity.OutputPicture) {
	for _, pic := range pics {
		if pic.Mapped {
			if err := b.gl.Unmap(pic.Interop); err != nil {
				b.logger.Debug().Err(err).Int("picture", pic.Index).Msg("unmap on teardown failed")
			}
			pic.Mapped = false
		}
		if !b.yuv && pic.Bound {
			if err := b.gl.Unregister(pic.Interop); err != nil {
				b.logger.Debug().Err(err).Int("picture", pic.Index).Msg("unregister on teardown failed")
			}
		}
		pic.Bound = false
		pic.Interop = 0
	}

	b.mu.Lock()
	regs := b.video
	b.video = make(map[entity.VideoSurfaceHandle]port.InteropRegistration)
	b.mu.Unlock()
	for _, reg := range regs {
		if err := b.gl.Unregister(reg.Handle); err != nil {
			b.logger.Debug().Err(err).Uint32("handle", uint32(reg.Handle)).Msg("unregister video surface failed")
		}
	}

	if err := b.gl.Fini(); err != nil {
		b.logger.Debug().Err(err).Msg("gl interop fini failed")
	}
}
