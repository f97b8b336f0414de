package track

import "math"

// Box is an axis-aligned rectangle in pixel coordinates with X1 < X2
// and Y1 < Y2. Detection boxes come straight from the detector; track
// boxes are smoothed copies and use float64 to keep the blend exact.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Valid reports whether the box has finite, non-inverted coordinates.
func (b Box) Valid() bool {
	for _, v := range [4]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// IoU computes intersection-over-union of two boxes, a value in [0, 1].
// Returns 0 when the boxes do not overlap on either axis, or when the
// union area is not positive (degenerate boxes), instead of dividing
// by zero. Symmetric in its arguments.
func IoU(a, b Box) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	inter := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)
	union := areaA + areaB - inter

	if union <= 0 {
		return 0
	}
	return inter / union
}
