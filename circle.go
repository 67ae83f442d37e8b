package collide

import (
	"math"

	"github.com/setanarut/v"
)

// Circle is a convex circle geometry defined by a center in shape-local
// coordinates and a radius.
type Circle struct {
	c, transformC v.Vec
	radius        float64
}

// NewCircle creates a circle geometry with the given local center and radius.
func NewCircle(center v.Vec, radius float64) *Circle {
	return &Circle{c: center, radius: radius}
}

// NewCircleShape creates a circle geometry attached to a fresh tracked shape.
func NewCircleShape(body *Body, radius float64, offset v.Vec) *Shape {
	shape := NewShape(NewCircle(offset, radius))
	body.AttachShape(shape)
	return shape
}

func (circle *Circle) CacheData(transform Transform) BB {
	circle.transformC = transform.Apply(circle.c)
	return NewBBForCircle(circle.transformC, circle.radius)
}

func (circle *Circle) IsConvex() bool {
	return true
}

func (circle *Circle) FeatureCount() int {
	return 1
}

func (circle *Circle) FeatureBB(i int) BB {
	return NewBBForCircle(circle.transformC, circle.radius)
}

// Radius returns the radius of the circle.
func (circle *Circle) Radius() float64 {
	return circle.radius
}

// TransformC returns the world-space center cached by the last CacheData call.
func (circle *Circle) TransformC() v.Vec {
	return circle.transformC
}

func (circle *Circle) SegmentQuery(a, b v.Vec) float64 {
	return circleSegmentQuery(circle.transformC, circle.radius, a, b)
}

// circleSegmentQuery returns the fraction along a->b at which a circle of
// radius r centered on center is first hit, or infinity for a miss.
func circleSegmentQuery(center v.Vec, r float64, a, b v.Vec) float64 {
	da := a.Sub(center)
	db := b.Sub(center)

	qa := da.Dot(da) - 2*da.Dot(db) + db.Dot(db)
	qb := da.Dot(db) - da.Dot(da)
	det := qb*qb - qa*(da.Dot(da)-r*r)

	if det >= 0 {
		t := (-qb - math.Sqrt(det)) / qa
		if 0 <= t && t <= 1 {
			return t
		}
	}
	return infinity
}
