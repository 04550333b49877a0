package entity

import "math"

// ColorStandard selects the luma coefficients of the YCbCr transform.
type ColorStandard string

const (
	StandardBT601     ColorStandard = "bt601"
	StandardBT709     ColorStandard = "bt709"
	StandardSMPTE240M ColorStandard = "smpte240m"
)

// StandardForHeight picks BT.601 for SD content and BT.709 from 720 lines up.
func StandardForHeight(height int) ColorStandard {
	if height < 720 {
		return StandardBT601
	}
	return StandardBT709
}

// Procamp holds the user picture adjustments. Brightness is an offset in
// [-1, 1], contrast and saturation are gains in [0, 10], hue is in radians.
type Procamp struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Hue        float64
}

// DefaultProcamp is the identity adjustment.
func DefaultProcamp() Procamp {
	return Procamp{Contrast: 1, Saturation: 1}
}

// CSCMatrix is the 3x4 transform from limited-range YCbCr to RGB. Column 3
// is the constant offset.
type CSCMatrix [3][4]float32

// GenerateCSCMatrix computes the YCbCr to RGB matrix for a standard with the
// procamp folded in. With studio set the output keeps the 16-235 range.
func GenerateCSCMatrix(std ColorStandard, p Procamp, studio bool) CSCMatrix {
	var kr, kb float64
	switch std {
	case StandardBT709:
		kr, kb = 0.2126, 0.0722
	case StandardSMPTE240M:
		kr, kb = 0.212, 0.087
	default:
		kr, kb = 0.299, 0.114
	}
	kg := 1 - kr - kb

	// Base matrix for full-range Y and chroma centered on zero.
	base := [3][3]float64{
		{1, 0, 2 * (1 - kr)},
		{1, -2 * (1 - kb) * kb / kg, -2 * (1 - kr) * kr / kg},
		{1, 2 * (1 - kb), 0},
	}

	ys := 255.0 / 219.0
	cs := 255.0 / 224.0
	if studio {
		ys, cs = 1, 1
	}

	uvcos := p.Saturation * math.Cos(p.Hue)
	uvsin := p.Saturation * math.Sin(p.Hue)

	var m CSCMatrix
	for i := 0; i < 3; i++ {
		y := base[i][0] * p.Contrast * ys
		u := (base[i][1]*uvcos + base[i][2]*uvsin) * cs
		v := (base[i][2]*uvcos - base[i][1]*uvsin) * cs

		offset := -16.0/255.0*y - 128.0/255.0*(u+v) + p.Brightness
		if studio {
			offset += 16.0 / 255.0
		}
		m[i] = [4]float32{float32(y), float32(u), float32(v), float32(offset)}
	}
	return m
}
