package entity

import (
	"fmt"
	"time"
)

// PictureState tracks an output picture through its cycle
// Free → Used → InFlip → Free. Retired is InFlip after eviction while the
// consumer still holds the texture.
type PictureState int

const (
	PictureFree PictureState = iota
	PictureUsed
	PictureInFlip
	PictureRetired
)

func (s PictureState) String() string {
	switch s {
	case PictureFree:
		return "free"
	case PictureUsed:
		return "used"
	case PictureInFlip:
		return "in_flip"
	case PictureRetired:
		return "retired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Field selects which part of an interlaced frame a picture shows.
type Field int

const (
	FieldFrame Field = iota
	FieldTop
	FieldBottom
)

// PictureInfo is the per-frame metadata passed along from the decoder.
type PictureInfo struct {
	Sequence      uint64
	PTS           time.Duration
	Interlaced    bool
	TopFieldFirst bool
	RepeatFirst   bool
	Drop          bool
}

// Fields returns the fields to render for a frame, in display order. A
// progressive frame, or any frame when fieldRate is off, yields one entry.
func (p PictureInfo) Fields(fieldRate bool) []Field {
	if !p.Interlaced {
		return []Field{FieldFrame}
	}
	first, second := FieldTop, FieldBottom
	if !p.TopFieldFirst {
		first, second = FieldBottom, FieldTop
	}
	if !fieldRate {
		return []Field{first}
	}
	return []Field{first, second}
}

// DecodeMessage is one decoded frame handed to the mixer worker.
type DecodeMessage struct {
	Picture    PictureInfo
	Surface    *VideoSurface
	DstRect    Rect
	Generation Generation
}

// MaxPlanes is the number of GL textures an output picture can expose.
// YUV interop exposes two fields with two planes each.
const MaxPlanes = 4

// OutputPicture is a presentable frame stored in the picture arena.
type OutputPicture struct {
	Index int

	OutputSurface OutputSurfaceHandle
	VideoSurface  *VideoSurface

	Pixmap   PixmapHandle
	Textures [MaxPlanes]TextureHandle
	Interop  InteropHandle

	Bound    bool
	Mapped   bool
	Reported bool

	Slot       int
	State      PictureState
	Field      Field
	Generation Generation

	Meta PictureInfo
}

func (p *OutputPicture) String() string {
	return fmt.Sprintf("picture(#%d %s slot=%d gen=%d)", p.Index, p.State, p.Slot, p.Generation)
}

// Texture is what the GPU consumer receives for an acquired flip slot.
type Texture struct {
	Slot     int
	Pixmap   PixmapHandle
	Textures [MaxPlanes]TextureHandle
	Planes   int
	Field    Field
	Meta     PictureInfo
}
