// Package entity defines domain entities for the video pipeline.
package entity

// Rect is a source or destination rectangle in surface pixels.
// X1/Y1 are exclusive, matching the hardware mixer convention.
type Rect struct {
	X0, Y0 int
	X1, Y1 int
}

// NewRect returns the rectangle at the origin with the given size.
func NewRect(w, h int) Rect {
	return Rect{X1: w, Y1: h}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Center returns the center point of the rectangle.
func (r Rect) Center() (cx, cy int) {
	return r.X0 + r.Width()/2, r.Y0 + r.Height()/2
}
