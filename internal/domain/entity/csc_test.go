package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCSCMatrix_BT601(t *testing.T) {
	m := GenerateCSCMatrix(StandardBT601, DefaultProcamp(), false)

	assert.InDelta(t, 1.164, m[0][0], 1e-3)
	assert.InDelta(t, 0, m[0][1], 1e-6)
	assert.InDelta(t, 1.596, m[0][2], 1e-3)
	assert.InDelta(t, -0.392, m[1][1], 1e-3)
	assert.InDelta(t, -0.813, m[1][2], 1e-3)
	assert.InDelta(t, 2.017, m[2][1], 1e-3)
	assert.InDelta(t, -0.874, m[0][3], 1e-3)
}

func TestGenerateCSCMatrix_Brightness(t *testing.T) {
	base := GenerateCSCMatrix(StandardBT709, DefaultProcamp(), false)
	p := DefaultProcamp()
	p.Brightness = 0.25
	bright := GenerateCSCMatrix(StandardBT709, p, false)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, base[i][3]+0.25, bright[i][3], 1e-5)
		assert.Equal(t, base[i][0], bright[i][0])
	}
}

func TestGenerateCSCMatrix_StudioKeepsLumaGain(t *testing.T) {
	m := GenerateCSCMatrix(StandardBT709, DefaultProcamp(), true)
	assert.InDelta(t, 1.0, m[0][0], 1e-6)
}

func TestStandardForHeight(t *testing.T) {
	assert.Equal(t, StandardBT601, StandardForHeight(576))
	assert.Equal(t, StandardBT709, StandardForHeight(720))
	assert.Equal(t, StandardBT709, StandardForHeight(1080))
}
