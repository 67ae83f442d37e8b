package collide

import (
	"math"

	"github.com/setanarut/v"
)

// Chain is a concave open polyline geometry. Each segment between consecutive
// vertices is one convex feature; the narrow phase tests a convex shape
// against chain features whose bounds overlap it, and the per-feature ids key
// the last-frame collision history.
type Chain struct {
	verts       []v.Vec
	transformed []v.Vec
	radius      float64
	bb          BB
}

// NewChain creates a chain geometry from at least two shape-local vertices.
// radius is a thickness beveled around every segment.
func NewChain(verts []v.Vec, radius float64) *Chain {
	assert(len(verts) >= 2, "chain needs at least two vertices")
	return &Chain{
		verts:       verts,
		transformed: make([]v.Vec, len(verts)),
		radius:      radius,
	}
}

// NewChainShape creates a chain geometry attached to a fresh tracked shape.
func NewChainShape(body *Body, verts []v.Vec, radius float64) *Shape {
	shape := NewShape(NewChain(verts, radius))
	body.AttachShape(shape)
	return shape
}

func (chain *Chain) CacheData(transform Transform) BB {
	for i, vert := range chain.verts {
		chain.transformed[i] = transform.Apply(vert)
	}
	bb := NewBBForCircle(chain.transformed[0], chain.radius)
	for _, p := range chain.transformed[1:] {
		bb = bb.Merge(NewBBForCircle(p, chain.radius))
	}
	chain.bb = bb
	return bb
}

func (chain *Chain) IsConvex() bool {
	return false
}

func (chain *Chain) FeatureCount() int {
	return len(chain.verts) - 1
}

func (chain *Chain) FeatureBB(i int) BB {
	a, b := chain.Feature(i)
	return NewBBForCircle(a, chain.radius).Merge(NewBBForCircle(b, chain.radius))
}

// Feature returns the world-space endpoints of segment feature i, valid after
// the last CacheData call.
func (chain *Chain) Feature(i int) (v.Vec, v.Vec) {
	return chain.transformed[i], chain.transformed[i+1]
}

// Radius returns the thickness beveled around every segment.
func (chain *Chain) Radius() float64 {
	return chain.radius
}

func (chain *Chain) SegmentQuery(a, b v.Vec) float64 {
	t := infinity
	for i := 0; i < chain.FeatureCount(); i++ {
		p1, p2 := chain.Feature(i)
		t = math.Min(t, segmentSegmentQuery(a, b, p1, p2, chain.radius))
	}
	return t
}

// segmentSegmentQuery returns the fraction along a->b at which the segment
// p1->p2 (beveled by radius r) is first hit, or infinity for a miss.
func segmentSegmentQuery(a, b, p1, p2 v.Vec, r float64) float64 {
	d := p2.Sub(p1)
	length := d.Mag()
	if length == 0 {
		return circleSegmentQuery(p1, r, a, b)
	}
	n := v.Vec{X: d.Y / length, Y: -d.X / length}

	da := a.Sub(p1).Dot(n)
	db := b.Sub(p1).Dot(n)
	if da*db > 0 && math.Abs(da) > r && math.Abs(db) > r {
		// Both endpoints on the same side, out of reach.
		return infinity
	}

	// Hit fraction against the segment's supporting slab, shifted to the
	// surface facing the ray origin.
	t := infinity
	if da != db {
		offset := r
		if da < 0 {
			offset = -r
		}
		ta := (da - offset) / (da - db)
		if 0 <= ta && ta <= 1 {
			hit := a.Lerp(b, ta)
			proj := hit.Sub(p1).Dot(d) / (length * length)
			if 0 <= proj && proj <= 1 {
				t = ta
			}
		}
	}

	// End caps.
	t = math.Min(t, circleSegmentQuery(p1, r, a, b))
	t = math.Min(t, circleSegmentQuery(p2, r, a, b))
	return t
}
