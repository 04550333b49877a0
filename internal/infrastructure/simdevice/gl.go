package simdevice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

var errUnknownHandle = errors.New("unknown handle")

type pixmapState struct {
	bound   bool
	texture entity.TextureHandle
	content uint64
}

type interopState struct {
	output entity.OutputSurfaceHandle
	video  entity.VideoSurfaceHandle
	mapped bool
}

// GL is a fake GPU texture consumer. It implements port.PixmapSurface,
// port.GLInterop and port.RendererCaps against the factory's current device.
type GL struct {
	factory *Factory

	mu       sync.Mutex
	next     uint32
	methods  map[entity.OutputMethod]bool
	width    int
	height   int
	pixmaps  map[entity.PixmapHandle]*pixmapState
	interop  map[entity.InteropHandle]*interopState
	inited   bool
	failures map[string]error
	hooks    map[string]func()
}

// NewGL creates a consumer able to register every output method, with a
// 1920x1080 render target.
func NewGL(factory *Factory) *GL {
	return &GL{
		factory: factory,
		methods: map[entity.OutputMethod]bool{
			entity.OutputPixmap:       true,
			entity.OutputGLInteropRGB: true,
			entity.OutputGLInteropYUV: true,
		},
		width:    1920,
		height:   1080,
		pixmaps:  make(map[entity.PixmapHandle]*pixmapState),
		interop:  make(map[entity.InteropHandle]*interopState),
		failures: make(map[string]error),
		hooks:    make(map[string]func()),
	}
}

// SetMethods restricts the output methods the consumer reports.
func (g *GL) SetMethods(methods ...entity.OutputMethod) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.methods = make(map[entity.OutputMethod]bool, len(methods))
	for _, m := range methods {
		g.methods[m] = true
	}
}

// SetOutputSize changes the reported render target size.
func (g *GL) SetOutputSize(width, height int) {
	g.mu.Lock()
	g.width, g.height = width, height
	g.mu.Unlock()
}

// FailOn makes the named operation return err until cleared with nil.
func (g *GL) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// OnCall runs fn at the start of the named operation, before the consumer
// takes its own lock. A nil fn clears the hook.
func (g *GL) OnCall(op string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fn == nil {
		delete(g.hooks, op)
		return
	}
	g.hooks[op] = fn
}

func (g *GL) runHook(op string) {
	g.mu.Lock()
	fn := g.hooks[op]
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (g *GL) failLocked(op string) error {
	if err := g.failures[op]; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SupportsOutputMethod implements port.RendererCaps.
func (g *GL) SupportsOutputMethod(method entity.OutputMethod) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.methods[method]
}

// OutputSize implements port.RendererCaps.
func (g *GL) OutputSize() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.width, g.height
}

// CreatePixmap implements port.PixmapSurface.
func (g *GL) CreatePixmap(width, height int) (entity.PixmapHandle, error) {
	g.runHook("create pixmap")
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failLocked("create pixmap"); err != nil {
		return 0, err
	}
	g.next++
	h := entity.PixmapHandle(g.next)
	g.pixmaps[h] = &pixmapState{}
	return h, nil
}

// DestroyPixmap implements port.PixmapSurface.
func (g *GL) DestroyPixmap(pix entity.PixmapHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pixmaps[pix]; !ok {
		return fmt.Errorf("destroy pixmap %d: %w", pix, errUnknownHandle)
	}
	delete(g.pixmaps, pix)
	return nil
}

// DisplaySurface implements port.PixmapSurface.
func (g *GL) DisplaySurface(_ context.Context, out entity.OutputSurfaceHandle, pix entity.PixmapHandle) error {
	dev := g.factory.Current()
	if dev == nil {
		return fmt.Errorf("display surface: no device")
	}
	if err := dev.Status(); err != nil {
		return fmt.Errorf("display surface: %w", err)
	}
	tag, _, ok := dev.ContentOf(out)
	if !ok {
		return fmt.Errorf("display surface %d: %w", out, errUnknownHandle)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pixmaps[pix]
	if !ok {
		return fmt.Errorf("display into pixmap %d: %w", pix, errUnknownHandle)
	}
	p.content = tag
	return nil
}

// BindTexImage implements port.PixmapSurface.
func (g *GL) BindTexImage(pix entity.PixmapHandle) (entity.TextureHandle, error) {
	g.runHook("bind tex image")
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failLocked("bind tex image"); err != nil {
		return 0, err
	}
	p, ok := g.pixmaps[pix]
	if !ok {
		return 0, fmt.Errorf("bind pixmap %d: %w", pix, errUnknownHandle)
	}
	if !p.bound {
		g.next++
		p.texture = entity.TextureHandle(g.next)
		p.bound = true
	}
	return p.texture, nil
}

// ReleaseTexImage implements port.PixmapSurface.
func (g *GL) ReleaseTexImage(pix entity.PixmapHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pixmaps[pix]
	if !ok {
		return fmt.Errorf("release pixmap %d: %w", pix, errUnknownHandle)
	}
	p.bound = false
	return nil
}

// PixmapContent returns the frame tag last displayed into a pixmap.
func (g *GL) PixmapContent(pix entity.PixmapHandle) (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pixmaps[pix]
	if !ok {
		return 0, false
	}
	return p.content, true
}

// Pixmaps returns the number of live pixmaps.
func (g *GL) Pixmaps() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pixmaps)
}

// Init implements port.GLInterop.
func (g *GL) Init(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failLocked("interop init"); err != nil {
		return err
	}
	g.inited = true
	return nil
}

// RegisterOutputSurface implements port.GLInterop.
func (g *GL) RegisterOutputSurface(h entity.OutputSurfaceHandle) (port.InteropRegistration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failLocked("register output surface"); err != nil {
		return port.InteropRegistration{}, err
	}
	return g.registerLocked(&interopState{output: h}, 1), nil
}

// RegisterVideoSurface implements port.GLInterop. A video surface exposes
// two fields with luma and chroma planes each.
func (g *GL) RegisterVideoSurface(h entity.VideoSurfaceHandle) (port.InteropRegistration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failLocked("register video surface"); err != nil {
		return port.InteropRegistration{}, err
	}
	return g.registerLocked(&interopState{video: h}, entity.MaxPlanes), nil
}

func (g *GL) registerLocked(st *interopState, planes int) port.InteropRegistration {
	g.next++
	reg := port.InteropRegistration{Handle: entity.InteropHandle(g.next), Planes: planes}
	for i := 0; i < planes; i++ {
		g.next++
		reg.Textures[i] = entity.TextureHandle(g.next)
	}
	g.interop[reg.Handle] = st
	return reg
}

// Unregister implements port.GLInterop.
func (g *GL) Unregister(h entity.InteropHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.interop[h]; !ok {
		return fmt.Errorf("unregister %d: %w", h, errUnknownHandle)
	}
	delete(g.interop, h)
	return nil
}

// Map implements port.GLInterop.
func (g *GL) Map(h entity.InteropHandle) error {
	g.runHook("map")
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failLocked("map"); err != nil {
		return err
	}
	st, ok := g.interop[h]
	if !ok {
		return fmt.Errorf("map %d: %w", h, errUnknownHandle)
	}
	if st.mapped {
		return fmt.Errorf("map %d: already mapped", h)
	}
	st.mapped = true
	return nil
}

// Unmap implements port.GLInterop.
func (g *GL) Unmap(h entity.InteropHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.interop[h]
	if !ok {
		return fmt.Errorf("unmap %d: %w", h, errUnknownHandle)
	}
	if !st.mapped {
		return fmt.Errorf("unmap %d: not mapped", h)
	}
	st.mapped = false
	return nil
}

// Fini implements port.GLInterop.
func (g *GL) Fini() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inited = false
	return nil
}

// Registrations returns the number of live interop registrations.
func (g *GL) Registrations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.interop)
}

// Mapped returns the number of registrations currently mapped.
func (g *GL) Mapped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, st := range g.interop {
		if st.mapped {
			n++
		}
	}
	return n
}
