package collide

import (
	"github.com/setanarut/v"
)

// Box is a convex rectangle geometry defined by half extents in shape-local
// coordinates. The cached world bound covers the rotated rectangle.
type Box struct {
	hw, hh    float64
	transform Transform
	inverse   Transform
	bb        BB
}

// NewBox creates a box geometry with the given full width and height.
func NewBox(width, height float64) *Box {
	return &Box{hw: width * 0.5, hh: height * 0.5}
}

// NewBoxShape creates a box geometry attached to a fresh tracked shape.
func NewBoxShape(body *Body, width, height float64) *Shape {
	shape := NewShape(NewBox(width, height))
	body.AttachShape(shape)
	return shape
}

func (box *Box) CacheData(transform Transform) BB {
	box.transform = transform
	box.inverse = NewTransformRigidInverse(transform)
	box.bb = transform.BB(NewBBForExtents(v.Vec{}, box.hw, box.hh))
	return box.bb
}

func (box *Box) IsConvex() bool {
	return true
}

func (box *Box) FeatureCount() int {
	return 1
}

func (box *Box) FeatureBB(i int) BB {
	return box.bb
}

// HalfExtents returns the half sizes of the box.
func (box *Box) HalfExtents() v.Vec {
	return v.Vec{X: box.hw, Y: box.hh}
}

// Transform returns the shape-to-world transform cached by the last CacheData call.
func (box *Box) Transform() Transform {
	return box.transform
}

// SegmentQuery maps the segment into the box's local frame, where the box is
// axis aligned, and runs the slab test there. Rigid transforms preserve the
// hit fraction.
func (box *Box) SegmentQuery(a, b v.Vec) float64 {
	la := box.inverse.Apply(a)
	lb := box.inverse.Apply(b)
	return NewBBForExtents(v.Vec{}, box.hw, box.hh).SegmentQuery(la, lb)
}
