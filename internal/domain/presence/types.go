// Package presence holds the pointer and geometry types used by the profile menu gate.
package presence

// Point is a pointer position in view coordinates.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned bounding region. Containment is half-open: [Min, Max).
type Rect struct {
	Min, Max Point
}

// Contains reports whether p lies within r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y
}

// PointerEvent is a pointer-down event delivered to global listeners.
type PointerEvent struct {
	At Point
}
