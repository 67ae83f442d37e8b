package collide

import (
	"fmt"
	"math"

	"github.com/setanarut/v"
)

// BB is an axis-aligned 2D bounding box. (left, bottom, right, top)
type BB struct {
	L, B, R, T float64
}

// NewBB is convenience constructor for BB structs.
func NewBB(l, b, r, t float64) BB {
	return BB{L: l, B: b, R: r, T: t}
}

func (bb BB) String() string {
	return fmt.Sprintf("%v %v %v %v", bb.L, bb.B, bb.R, bb.T)
}

// NewBBForExtents constructs a BB centered on a point with the given extents (half sizes).
func NewBBForExtents(c v.Vec, hw, hh float64) BB {
	return BB{
		L: c.X - hw,
		B: c.Y - hh,
		R: c.X + hw,
		T: c.Y + hh,
	}
}

// NewBBForCircle constructs a BB for a circle with the given position and radius.
func NewBBForCircle(p v.Vec, r float64) BB {
	return NewBBForExtents(p, r, r)
}

// Intersects returns true if bb and other intersect.
func (bb BB) Intersects(other BB) bool {
	return bb.L <= other.R && other.L <= bb.R && bb.B <= other.T && other.B <= bb.T
}

// Contains returns true if other lies completely within bb.
func (bb BB) Contains(other BB) bool {
	return bb.L <= other.L && bb.R >= other.R && bb.B <= other.B && bb.T >= other.T
}

// ContainsVect returns true if bb contains the point p.
func (bb BB) ContainsVect(p v.Vec) bool {
	return bb.L <= p.X && bb.R >= p.X && bb.B <= p.Y && bb.T >= p.Y
}

// Merge returns a bounding box that holds both bounding boxes.
func (bb BB) Merge(other BB) BB {
	return BB{
		math.Min(bb.L, other.L),
		math.Min(bb.B, other.B),
		math.Max(bb.R, other.R),
		math.Max(bb.T, other.T),
	}
}

// Center returns the center of the bounding box.
func (bb BB) Center() v.Vec {
	return v.Vec{X: bb.L, Y: bb.B}.Lerp(v.Vec{X: bb.R, Y: bb.T}, 0.5)
}

// Extents returns the half sizes of the bounding box.
func (bb BB) Extents() v.Vec {
	return v.Vec{X: (bb.R - bb.L) * 0.5, Y: (bb.T - bb.B) * 0.5}
}

// Area returns the area of the bounding box.
func (bb BB) Area() float64 {
	return (bb.R - bb.L) * (bb.T - bb.B)
}

// Perimeter returns the perimeter of the bounding box. The dynamic tree uses
// perimeter rather than area as its surface-area heuristic.
func (bb BB) Perimeter() float64 {
	return 2 * ((bb.R - bb.L) + (bb.T - bb.B))
}

// Fattened returns the bounding box enlarged by gap on every side.
func (bb BB) Fattened(gap float64) BB {
	return BB{bb.L - gap, bb.B - gap, bb.R + gap, bb.T + gap}
}

// Swept returns the bounding box extended along a displacement vector so that
// it covers the box at both the start and the end of the motion.
func (bb BB) Swept(d v.Vec) BB {
	swept := bb
	if d.X < 0 {
		swept.L += d.X
	} else {
		swept.R += d.X
	}
	if d.Y < 0 {
		swept.B += d.Y
	} else {
		swept.T += d.Y
	}
	return swept
}

// Offset returns a bounding box offset by d.
func (bb BB) Offset(d v.Vec) BB {
	return BB{bb.L + d.X, bb.B + d.Y, bb.R + d.X, bb.T + d.Y}
}

// SegmentQuery returns the fraction along the segment query the BB is hit.
// Returns infinity if it doesn't hit.
func (bb BB) SegmentQuery(a, b v.Vec) float64 {
	delta := b.Sub(a)
	tmin := -infinity
	tmax := infinity

	if delta.X == 0 {
		if a.X < bb.L || bb.R < a.X {
			return infinity
		}
	} else {
		t1 := (bb.L - a.X) / delta.X
		t2 := (bb.R - a.X) / delta.X
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}

	if delta.Y == 0 {
		if a.Y < bb.B || bb.T < a.Y {
			return infinity
		}
	} else {
		t1 := (bb.B - a.Y) / delta.Y
		t2 := (bb.T - a.Y) / delta.Y
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}

	if tmin <= tmax && 0 <= tmax && tmin <= 1.0 {
		return math.Max(tmin, 0.0)
	}
	return infinity
}

// IntersectsSegment returns true if the bounding box intersects the line
// segment with ends a and b.
func (bb BB) IntersectsSegment(a, b v.Vec) bool {
	return bb.SegmentQuery(a, b) != infinity
}
