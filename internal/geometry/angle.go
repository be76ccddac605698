// Package geometry provides the planar joint math used by the wave analyzer.
package geometry

import "math"

// Point represents a 2D point. Depending on context the coordinates are either
// normalized to [0,1] (as produced by a pose detector) or in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale de-normalizes a [0,1] point into pixel space for a frame of the given size.
func (p Point) Scale(width, height float64) Point {
	return Point{X: p.X * width, Y: p.Y * height}
}

// IsFinite reports whether both coordinates are real numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Angle returns the signed angle in degrees at vertex j2, swept from the ray
// j2->j3 to the ray j2->j1. The result lies in (-180, 180].
//
// Coincident points leave the direction undefined; the value returned for
// them is whatever atan2 yields and carries no meaning.
func Angle(j1, j2, j3 Point) float64 {
	rads := math.Atan2(j3.Y-j2.Y, j3.X-j2.X) - math.Atan2(j1.Y-j2.Y, j1.X-j2.X)
	deg := rads * 180.0 / math.Pi

	if deg > 180.0 {
		deg -= 360.0
	} else if deg <= -180.0 {
		deg += 360.0
	}

	return deg
}
