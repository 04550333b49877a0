package entity

import "fmt"

// Handle types are opaque device-side identifiers. Zero is never a valid handle.
type (
	VideoSurfaceHandle  uint32
	OutputSurfaceHandle uint32
	PixmapHandle        uint32
	TextureHandle       uint32
	InteropHandle       uint32
)

// Generation identifies the device session a resource was created under.
type Generation uint64

// ChromaType is the chroma subsampling of a decode surface.
type ChromaType int

const (
	Chroma420 ChromaType = iota
	Chroma422
	Chroma444
)

func (c ChromaType) String() string {
	switch c {
	case Chroma420:
		return "4:2:0"
	case Chroma422:
		return "4:2:2"
	case Chroma444:
		return "4:4:4"
	default:
		return fmt.Sprintf("chroma(%d)", int(c))
	}
}

// ReferenceWindowSize is two past, one current and two future surfaces.
const ReferenceWindowSize = 5

// PictureAge holds the running distance counters handed to the decode
// library so it can tell how many frames ago a recycled surface last held
// valid content. B tracks non-reference frames, IP the two nearest
// reference frames.
type PictureAge struct {
	B  int
	IP [2]int
}

// NewPictureAge returns counters that report every surface as never used.
func NewPictureAge() PictureAge {
	return PictureAge{B: 1 << 30, IP: [2]int{1 << 30, 1 << 30}}
}

// Advance records one acquired frame and returns the age to tag it with.
func (a *PictureAge) Advance(reference bool) int {
	var age int
	if reference {
		age = a.IP[0]
		a.IP[0] = a.IP[1] + 1
		a.IP[1] = 1
		a.B++
	} else {
		age = a.B
		a.IP[0]++
		a.IP[1]++
		a.B = 1
	}
	return age
}

// VideoSurface is a hardware decode target owned by the surface pool.
//
// Two ownership bits keep it alive: UsedForReference while the decode
// library predicts from it, UsedForRender while it sits in the mixer's
// reference window. Queued counts messages waiting in the mixer input
// queue and Attached counts output pictures that display the raw surface
// (YUV interop). The surface is free only when all four are clear.
type VideoSurface struct {
	Index      int
	Handle     VideoSurfaceHandle
	Generation Generation
	Chroma     ChromaType
	Width      int
	Height     int

	UsedForReference bool
	UsedForRender    bool
	Queued           int
	Attached         int

	// Age is the frame distance reported to the decoder at acquire time.
	Age int

	// Tag is the content marker of the last decoded frame.
	Tag uint64

	// Idle counts window shifts since the surface was last freed.
	Idle int
}

// Free reports whether no one holds the surface.
func (s *VideoSurface) Free() bool {
	return !s.UsedForReference && !s.UsedForRender && s.Queued == 0 && s.Attached == 0
}

func (s *VideoSurface) String() string {
	if s == nil {
		return "surface(nil)"
	}
	return fmt.Sprintf("surface(#%d h=%d gen=%d)", s.Index, s.Handle, s.Generation)
}

// ReferenceSet is the mixer's view of the window for one render call.
// Past[0] and Future[0] are the nearest neighbors of Current.
type ReferenceSet struct {
	Past    [2]*VideoSurface
	Current *VideoSurface
	Future  [2]*VideoSurface
}

// Surfaces returns every non-nil surface in window order, oldest first.
func (r ReferenceSet) Surfaces() []*VideoSurface {
	all := []*VideoSurface{r.Past[1], r.Past[0], r.Current, r.Future[0], r.Future[1]}
	out := all[:0]
	for _, s := range all {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// StreamFormat describes the coded stream the pipeline is configured for.
type StreamFormat struct {
	Codec      Codec
	Width      int
	Height     int
	RefFrames  int
	Interlaced bool
}

// Codec is the compressed format the decode library produces surfaces for.
type Codec string

const (
	CodecMPEG2 Codec = "mpeg2"
	CodecH264  Codec = "h264"
	CodecVC1   Codec = "vc1"
	CodecWMV3  Codec = "wmv3"
	CodecHEVC  Codec = "hevc"
)

// DecoderProfile is the hardware decoder profile backing a codec.
type DecoderProfile string

const (
	ProfileMPEG2Main DecoderProfile = "mpeg2_main"
	ProfileH264High  DecoderProfile = "h264_high"
	ProfileVC1Main   DecoderProfile = "vc1_main"
	ProfileVC1Adv    DecoderProfile = "vc1_advanced"
	ProfileHEVCMain  DecoderProfile = "hevc_main"
)

// ReadFormatOf maps a codec to its decoder profile and chroma type.
func ReadFormatOf(codec Codec) (DecoderProfile, ChromaType, bool) {
	switch codec {
	case CodecMPEG2:
		return ProfileMPEG2Main, Chroma420, true
	case CodecH264:
		return ProfileH264High, Chroma420, true
	case CodecWMV3:
		return ProfileVC1Main, Chroma420, true
	case CodecVC1:
		return ProfileVC1Adv, Chroma420, true
	case CodecHEVC:
		return ProfileHEVCMain, Chroma420, true
	default:
		return "", Chroma420, false
	}
}

// DecoderCaps are the limits the hardware reports for one profile.
type DecoderCaps struct {
	Supported   bool
	MaxLevel    int
	MaxMacroblk int
	MaxWidth    int
	MaxHeight   int
}

// Fits reports whether a stream of the given size can be decoded.
func (c DecoderCaps) Fits(width, height int) bool {
	if !c.Supported {
		return false
	}
	if c.MaxWidth > 0 && width > c.MaxWidth {
		return false
	}
	if c.MaxHeight > 0 && height > c.MaxHeight {
		return false
	}
	if c.MaxMacroblk > 0 && ((width+15)/16)*((height+15)/16) > c.MaxMacroblk {
		return false
	}
	return true
}
