package collide

import (
	"fmt"

	"github.com/setanarut/v"
)

// BodyType for bodies; Dynamic, Kinematic or Static
type BodyType uint8

const (
	Dynamic   BodyType = 0
	Kinematic BodyType = 1
	Static    BodyType = 2
)

var bodyCur int = 0

// Body is the rigid body a collision shape belongs to. This package does not
// integrate bodies; it only reads their transform, velocity and activity
// state when refreshing the broad phase and classifying pairs. Velocity and
// position updates belong to the external solver/integrator.
type Body struct {
	// UserData is an object that this body is associated with.
	//
	// You can use this to get a reference to your game object from within callbacks.
	UserData any

	id              int
	Shapes          []*Shape
	bodyType        BodyType
	position        v.Vec
	angle           float64
	velocity        v.Vec
	angularVelocity float64
	transform       Transform
	sleeping        bool
	enabled         bool
}

// NewBody initializes a dynamic rigid body at the origin.
func NewBody() *Body {
	body := &Body{
		id:        bodyCur,
		transform: NewTransformIdentity(),
		enabled:   true,
	}
	bodyCur++
	return body
}

// NewStaticBody allocates and initializes a Body, and sets it as a static body.
func NewStaticBody() *Body {
	body := NewBody()
	body.bodyType = Static
	return body
}

// NewKinematicBody allocates and initializes a Body, and sets it as a kinematic body.
func NewKinematicBody() *Body {
	body := NewBody()
	body.bodyType = Kinematic
	return body
}

// String returns body id as string
func (body Body) String() string {
	return fmt.Sprint("Body ", body.id)
}

// Id returns the unique identity of the body.
func (body *Body) Id() int {
	return body.id
}

// Type returns the type of the body.
func (body *Body) Type() BodyType {
	return body.bodyType
}

// SetType sets the type of the body.
func (body *Body) SetType(bt BodyType) {
	body.bodyType = bt
}

// Position returns the position of the body.
func (body *Body) Position() v.Vec {
	return body.position
}

// Angle returns the rotation of the body in radians.
func (body *Body) Angle() float64 {
	return body.angle
}

// SetTransform sets the position and rotation of the body and recomputes the
// cached body-to-world transform. The caller is responsible for refreshing
// the body's shapes in the broad phase afterwards.
func (body *Body) SetTransform(position v.Vec, angle float64) {
	body.position = position
	body.angle = angle
	body.transform = NewTransformRigid(position, angle)
}

// Transform returns the cached body-to-world transform.
func (body *Body) Transform() Transform {
	return body.transform
}

// Velocity returns the linear velocity of the body.
func (body *Body) Velocity() v.Vec {
	return body.velocity
}

// SetVelocity sets the linear velocity of the body. The broad phase uses it
// to estimate the per-step displacement when sweeping fat bounds.
func (body *Body) SetVelocity(velocity v.Vec) {
	body.velocity = velocity
}

// AngularVelocity returns the angular velocity of the body in radians per second.
func (body *Body) AngularVelocity() float64 {
	return body.angularVelocity
}

// SetAngularVelocity sets the angular velocity of the body.
// Angular velocity does not contribute to swept bounds; the displacement
// estimate is linear only.
func (body *Body) SetAngularVelocity(w float64) {
	body.angularVelocity = w
}

// IsSleeping returns true if the body is sleeping.
func (body *Body) IsSleeping() bool {
	return body.sleeping
}

// SetSleeping marks the body asleep or awake.
func (body *Body) SetSleeping(sleeping bool) {
	body.sleeping = sleeping
}

// Enabled returns false when the body has been disabled and should generate
// no collisions.
func (body *Body) Enabled() bool {
	return body.enabled
}

// SetEnabled enables or disables the body.
func (body *Body) SetEnabled(enabled bool) {
	body.enabled = enabled
}

// isStaticOrInactive reports whether the body can never initiate a collision:
// a pair is active only when at least one member returns false here.
func (body *Body) isStaticOrInactive() bool {
	return body.bodyType == Static || body.sleeping || !body.enabled
}

// AttachShape attaches a shape to this body.
func (body *Body) AttachShape(shape *Shape) {
	body.Shapes = append(body.Shapes, shape)
	shape.Body = body
}

// ShapeAtIndex returns shape at index attached to this body
func (body *Body) ShapeAtIndex(index int) *Shape {
	return body.Shapes[index]
}
