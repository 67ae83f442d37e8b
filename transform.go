package collide

import (
	"math"

	"github.com/setanarut/v"
)

// Transform represents a 2D affine transformation using a 2x3 matrix.
//
// The transformation matrix is laid out as follows:
//
//	| a  b  tx |   -> X' = a * X + b * Y + tx
//	| c  d  ty |   -> Y' = c * X + d * Y + ty
type Transform struct {
	a, b, c, d, tx, ty float64
}

// NewTransformIdentity returns the identity transformation.
func NewTransformIdentity() Transform {
	return Transform{1, 0, 0, 1, 0, 0}
}

// NewTransformTranspose returns a new transformation matrix in transposed order.
func NewTransformTranspose(a, c, tx, b, d, ty float64) Transform {
	return Transform{a, b, c, d, tx, ty}
}

// NewTransformTranslate returns a new transformation matrix with translation.
func NewTransformTranslate(translate v.Vec) Transform {
	return NewTransformTranspose(
		1, 0, translate.X,
		0, 1, translate.Y,
	)
}

// NewTransformRigid creates a rigid transformation that combines translation
// and rotation. Rigid motions preserve distances and angles, which is all a
// rigid body ever does to its shapes.
func NewTransformRigid(translate v.Vec, rotation float64) Transform {
	rot := v.Vec{X: math.Cos(rotation), Y: math.Sin(rotation)}
	return NewTransformTranspose(
		rot.X, -rot.Y, translate.X,
		rot.Y, rot.X, translate.Y,
	)
}

// NewTransformRigidInverse returns the inverse of a rigid transformation.
func NewTransformRigidInverse(t Transform) Transform {
	return NewTransformTranspose(
		t.d, -t.c, t.c*t.ty-t.tx*t.d,
		-t.b, t.a, t.tx*t.b-t.a*t.ty,
	)
}

// Mult multiplies this transform and t2.
func (t Transform) Mult(t2 Transform) Transform {
	return NewTransformTranspose(
		t.a*t2.a+t.c*t2.b, t.a*t2.c+t.c*t2.d, t.a*t2.tx+t.c*t2.ty+t.tx,
		t.b*t2.a+t.d*t2.b, t.b*t2.c+t.d*t2.d, t.b*t2.tx+t.d*t2.ty+t.ty,
	)
}

// Apply applies the transformation to a point p and returns the transformed point.
func (t Transform) Apply(p v.Vec) v.Vec {
	return v.Vec{
		X: t.a*p.X + t.c*p.Y + t.tx,
		Y: t.b*p.X + t.d*p.Y + t.ty,
	}
}

// ApplyVector applies the rotational part of the transformation to a vector,
// ignoring translation.
func (t Transform) ApplyVector(vect v.Vec) v.Vec {
	return v.Vec{
		X: t.a*vect.X + t.c*vect.Y,
		Y: t.b*vect.X + t.d*vect.Y,
	}
}

// BB applies the transformation to a bounding box, returning a bounding box
// that covers the transformed corners.
func (t Transform) BB(bb BB) BB {
	hw := (bb.R - bb.L) * 0.5
	hh := (bb.T - bb.B) * 0.5

	a := t.a * hw
	b := t.c * hh
	d := t.b * hw
	e := t.d * hh
	hwMax := math.Max(math.Abs(a+b), math.Abs(a-b))
	hhMax := math.Max(math.Abs(d+e), math.Abs(d-e))
	return NewBBForExtents(t.Apply(bb.Center()), hwMax, hhMax)
}
