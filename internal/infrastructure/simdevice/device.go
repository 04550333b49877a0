// Package simdevice is a software implementation of the hardware ports.
// It tracks every live handle per device instance so tests can prove that
// stale resources never reach a rebuilt device, and it can inject
// preemption and creation failures.
package simdevice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Config controls what the simulated hardware reports.
type Config struct {
	Features        map[entity.MixerFeature]bool
	Decoders        map[entity.DecoderProfile]entity.DecoderCaps
	MaxScalingLevel int

	// RenderLatency is slept inside every Render call.
	RenderLatency time.Duration
	// RenderHook runs inside Render before the frame is written. Tests use
	// it to hold a render call in flight.
	RenderHook func(ctx context.Context, req port.RenderRequest)

	// MaxOutputSurfaces limits live output surfaces; zero means unlimited.
	MaxOutputSurfaces int
}

// DefaultConfig reports a capable GPU: every feature, scaling up to level
// 9, and all decoder profiles up to 4096x4096.
func DefaultConfig() Config {
	features := make(map[entity.MixerFeature]bool)
	for _, f := range entity.AllMixerFeatures() {
		features[f] = true
	}
	caps := entity.DecoderCaps{Supported: true, MaxLevel: 51, MaxMacroblk: 65536, MaxWidth: 4096, MaxHeight: 4096}
	return Config{
		Features: features,
		Decoders: map[entity.DecoderProfile]entity.DecoderCaps{
			entity.ProfileMPEG2Main: caps,
			entity.ProfileH264High:  caps,
			entity.ProfileVC1Main:   caps,
			entity.ProfileVC1Adv:    caps,
			entity.ProfileHEVCMain:  caps,
		},
		MaxScalingLevel: entity.MaxScalingLevel,
	}
}

var (
	_ port.DeviceFactory = (*Factory)(nil)
	_ port.FrameWriter   = (*Factory)(nil)
	_ port.FaultInjector = (*Factory)(nil)
	_ port.Device        = (*Device)(nil)
)

// Factory opens simulated devices. It implements port.DeviceFactory.
type Factory struct {
	mu        sync.Mutex
	cfg       Config
	failOpens int
	devices   []*Device
}

// NewFactory creates a factory for devices configured by cfg.
func NewFactory(cfg Config) *Factory {
	return &Factory{cfg: cfg}
}

// FailNextOpens makes the next n Open calls fail.
func (f *Factory) FailNextOpens(n int) {
	f.mu.Lock()
	f.failOpens = n
	f.mu.Unlock()
}

// SetFeature changes feature support for devices opened afterwards.
func (f *Factory) SetFeature(feature entity.MixerFeature, supported bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	features := make(map[entity.MixerFeature]bool, len(f.cfg.Features))
	for k, v := range f.cfg.Features {
		features[k] = v
	}
	features[feature] = supported
	f.cfg.Features = features
}

// Open implements port.DeviceFactory.
func (f *Factory) Open(ctx context.Context) (port.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open simulated device: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOpens > 0 {
		f.failOpens--
		return nil, fmt.Errorf("open simulated device: driver unavailable: %w", entity.ErrDeviceCreationFailed)
	}
	d := newDevice(len(f.devices)+1, f.cfg)
	f.devices = append(f.devices, d)
	return d, nil
}

// Devices returns every device opened so far, oldest first.
func (f *Factory) Devices() []*Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Device(nil), f.devices...)
}

// Current returns the most recently opened device, or nil.
func (f *Factory) Current() *Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.devices) == 0 {
		return nil
	}
	return f.devices[len(f.devices)-1]
}

// WriteFrame fills s on the device that created it, standing in for the
// decode library.
func (f *Factory) WriteFrame(s *entity.VideoSurface, tag uint64) error {
	if s == nil {
		return fmt.Errorf("write frame: nil surface")
	}
	id := int(uint32(s.Handle) >> 20)
	f.mu.Lock()
	var d *Device
	if id >= 1 && id <= len(f.devices) {
		d = f.devices[id-1]
	}
	f.mu.Unlock()
	if d == nil {
		return fmt.Errorf("write frame: no device owns surface %d", s.Handle)
	}
	return d.WriteFrame(s.Handle, tag)
}

// Preempt loses the current device.
func (f *Factory) Preempt() {
	if d := f.Current(); d != nil {
		d.Preempt()
	}
}

// Violations collects handle misuse from every device.
func (f *Factory) Violations() []string {
	var out []string
	for _, d := range f.Devices() {
		out = append(out, d.Violations()...)
	}
	return out
}

type outputContent struct {
	tag   uint64
	field entity.Field
}

// Device is one simulated hardware context.
type Device struct {
	id  int
	cfg Config

	mu         sync.Mutex
	next       uint32
	video      map[entity.VideoSurfaceHandle]uint64
	output     map[entity.OutputSurfaceHandle]outputContent
	mixers     map[*Mixer]struct{}
	callback   port.PreemptionCallback
	violations []string
	closed     bool

	preempted atomic.Bool
	renders   atomic.Int64
}

func newDevice(id int, cfg Config) *Device {
	return &Device{
		id:     id,
		cfg:    cfg,
		video:  make(map[entity.VideoSurfaceHandle]uint64),
		output: make(map[entity.OutputSurfaceHandle]outputContent),
		mixers: make(map[*Mixer]struct{}),
	}
}

// handleLocked allocates a handle unique across devices so a stale handle
// can never alias a live one.
func (d *Device) handleLocked() uint32 {
	d.next++
	return uint32(d.id)<<20 | d.next
}

func (d *Device) violationLocked(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf("device %d: ", d.id)+fmt.Sprintf(format, args...))
}

func (d *Device) checkLocked(op string) error {
	if d.preempted.Load() {
		return fmt.Errorf("%s: %w", op, entity.ErrDevicePreempted)
	}
	if d.closed {
		d.violationLocked("%s after close", op)
		return fmt.Errorf("%s: %w", op, entity.ErrClosed)
	}
	return nil
}

// Name implements port.Device.
func (d *Device) Name() string { return fmt.Sprintf("simulated-gpu-%d", d.id) }

// ID returns the device's sequence number within its factory.
func (d *Device) ID() int { return d.id }

// CreateVideoSurface implements port.Device.
func (d *Device) CreateVideoSurface(_ entity.ChromaType, width, height int) (entity.VideoSurfaceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("create video surface"); err != nil {
		return 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("create video surface %dx%d: invalid size", width, height)
	}
	h := entity.VideoSurfaceHandle(d.handleLocked())
	d.video[h] = 0
	return h, nil
}

// DestroyVideoSurface implements port.Device.
func (d *Device) DestroyVideoSurface(h entity.VideoSurfaceHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.video[h]; !ok {
		d.violationLocked("destroy of unknown video surface %d", h)
		return fmt.Errorf("destroy video surface %d: unknown handle", h)
	}
	delete(d.video, h)
	return nil
}

// CreateOutputSurface implements port.Device.
func (d *Device) CreateOutputSurface(width, height int) (entity.OutputSurfaceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("create output surface"); err != nil {
		return 0, err
	}
	if d.cfg.MaxOutputSurfaces > 0 && len(d.output) >= d.cfg.MaxOutputSurfaces {
		return 0, fmt.Errorf("create output surface: limit %d reached", d.cfg.MaxOutputSurfaces)
	}
	h := entity.OutputSurfaceHandle(d.handleLocked())
	d.output[h] = outputContent{}
	return h, nil
}

// DestroyOutputSurface implements port.Device.
func (d *Device) DestroyOutputSurface(h entity.OutputSurfaceHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.output[h]; !ok {
		d.violationLocked("destroy of unknown output surface %d", h)
		return fmt.Errorf("destroy output surface %d: unknown handle", h)
	}
	delete(d.output, h)
	return nil
}

// CreateMixer implements port.Device.
func (d *Device) CreateMixer(cfg port.MixerConfig) (port.Mixer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("create mixer"); err != nil {
		return nil, err
	}
	for _, f := range cfg.Features {
		if !d.cfg.Features[f] {
			return nil, fmt.Errorf("create mixer: feature %s: %w", f, entity.ErrCapabilityUnsupported)
		}
	}
	m := &Mixer{dev: d, cfg: cfg}
	d.mixers[m] = struct{}{}
	return m, nil
}

// QueryFeatures implements port.Device.
func (d *Device) QueryFeatures(features []entity.MixerFeature) (map[entity.MixerFeature]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("query features"); err != nil {
		return nil, err
	}
	out := make(map[entity.MixerFeature]bool, len(features))
	for _, f := range features {
		out[f] = d.cfg.Features[f]
	}
	return out, nil
}

// QueryDecoder implements port.Device.
func (d *Device) QueryDecoder(profile entity.DecoderProfile) (entity.DecoderCaps, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("query decoder"); err != nil {
		return entity.DecoderCaps{}, err
	}
	return d.cfg.Decoders[profile], nil
}

// RegisterPreemption implements port.Device.
func (d *Device) RegisterPreemption(cb port.PreemptionCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = cb
	return nil
}

// Status implements port.Device.
func (d *Device) Status() error {
	if d.preempted.Load() {
		return entity.ErrDevicePreempted
	}
	return nil
}

// Close implements port.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Preempt simulates a driver reset. The callback fires on its own
// goroutine, like a driver thread, and every later call fails.
func (d *Device) Preempt() {
	if d.preempted.Swap(true) {
		return
	}
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb != nil {
		go cb()
	}
}

// WriteFrame stands in for the decode library filling a surface.
func (d *Device) WriteFrame(h entity.VideoSurfaceHandle, tag uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("write frame"); err != nil {
		return err
	}
	if _, ok := d.video[h]; !ok {
		d.violationLocked("write to unknown video surface %d", h)
		return fmt.Errorf("write frame: unknown surface %d", h)
	}
	d.video[h] = tag
	return nil
}

// ContentOf returns the tag and field last rendered into an output surface.
func (d *Device) ContentOf(h entity.OutputSurfaceHandle) (uint64, entity.Field, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.output[h]
	return c.tag, c.field, ok
}

// VideoContentOf returns the tag last written into a video surface.
func (d *Device) VideoContentOf(h entity.VideoSurfaceHandle) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tag, ok := d.video[h]
	return tag, ok
}

// Violations returns every handle misuse seen by this device.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// LiveVideoSurfaces returns the number of undestroyed video surfaces.
func (d *Device) LiveVideoSurfaces() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.video)
}

// LiveOutputSurfaces returns the number of undestroyed output surfaces.
func (d *Device) LiveOutputSurfaces() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.output)
}

// Renders returns how many Render calls succeeded.
func (d *Device) Renders() int64 { return d.renders.Load() }

// Mixer is a simulated mixer bound to one device.
type Mixer struct {
	dev *Device
	cfg port.MixerConfig

	mu      sync.Mutex
	enables map[entity.MixerFeature]bool
	attrs   entity.MixerAttributes
}

// SetFeatureEnables implements port.Mixer.
func (m *Mixer) SetFeatureEnables(enables map[entity.MixerFeature]bool) error {
	m.dev.mu.Lock()
	err := m.dev.checkLocked("set feature enables")
	m.dev.mu.Unlock()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enables = make(map[entity.MixerFeature]bool, len(enables))
	for f, on := range enables {
		if on && !m.dev.cfg.Features[f] {
			return fmt.Errorf("enable %s: %w", f, entity.ErrCapabilityUnsupported)
		}
		m.enables[f] = on
	}
	return nil
}

// SetAttributes implements port.Mixer.
func (m *Mixer) SetAttributes(attrs entity.MixerAttributes) error {
	m.mu.Lock()
	m.attrs = attrs
	m.mu.Unlock()
	return nil
}

// Enabled reports whether a feature was last enabled on this mixer.
func (m *Mixer) Enabled(f entity.MixerFeature) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enables[f]
}

// Render implements port.Mixer. Every handle must belong to this device.
func (m *Mixer) Render(ctx context.Context, req port.RenderRequest) error {
	if m.dev.cfg.RenderHook != nil {
		m.dev.cfg.RenderHook(ctx, req)
	}
	if lat := m.dev.cfg.RenderLatency; lat > 0 {
		t := time.NewTimer(lat)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	d := m.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked("render"); err != nil {
		return err
	}
	if _, ok := d.mixers[m]; !ok {
		d.violationLocked("render on destroyed mixer")
		return fmt.Errorf("render: mixer destroyed")
	}
	refs := append([]entity.VideoSurfaceHandle{req.Current}, req.Past[0], req.Past[1], req.Future[0], req.Future[1])
	for _, h := range refs {
		if h == 0 {
			continue
		}
		if _, ok := d.video[h]; !ok {
			d.violationLocked("render with foreign video surface %d", h)
			return fmt.Errorf("render: unknown video surface %d", h)
		}
	}
	if _, ok := d.output[req.Target]; !ok {
		d.violationLocked("render into foreign output surface %d", req.Target)
		return fmt.Errorf("render: unknown output surface %d", req.Target)
	}
	d.output[req.Target] = outputContent{tag: d.video[req.Current], field: req.Field}
	d.renders.Add(1)
	return nil
}

// Destroy implements port.Mixer.
func (m *Mixer) Destroy() error {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	if _, ok := m.dev.mixers[m]; !ok {
		m.dev.violationLocked("double mixer destroy")
		return fmt.Errorf("destroy mixer: already destroyed")
	}
	delete(m.dev.mixers, m)
	return nil
}
