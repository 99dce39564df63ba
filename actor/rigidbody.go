package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic
)

const (
	DefaultRestitution     = 0.2
	DefaultStaticFriction  = 0.6
	DefaultDynamicFriction = 0.4
)

type Material struct {
	Density     float64
	mass        float64
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
}

func (material Material) GetMass() float64 {
	return material.mass
}

// Force is an external force applied at a world-space point.
type Force struct {
	Position mgl64.Vec3
	Vector   mgl64.Vec3
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	PresolveVelocity mgl64.Vec3
	Velocity         mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	PresolveAngularVelocity mgl64.Vec3
	AngularVelocity         mgl64.Vec3 // rad/s

	// Inertia tensor in body space
	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	// Forces applied every substep until ClearForces is called
	Forces []Force

	// Trigger bodies report collisions but are never pushed apart
	IsTrigger bool

	// Physical properties
	Material Material
	BodyType BodyType // Dynamic or Static

	// Collision shape
	Shape ShapeInterface

	// BoundingShape is the world-space point set of Shape at the current pose.
	BoundingShape PointSet
	AABB          AABB
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored for static)
func NewRigidBody(transform Transform, shape ShapeInterface, bodyType BodyType, density float64) *RigidBody {
	if transform.Rotation == (mgl64.Quat{}) {
		transform.Rotation = mgl64.QuatIdent()
	}
	transform.InverseRotation = transform.Rotation.Inverse()

	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
		Velocity:          mgl64.Vec3{0, 0, 0},
		Material: Material{
			Restitution:     DefaultRestitution,
			StaticFriction:  DefaultStaticFriction,
			DynamicFriction: DefaultDynamicFriction,
		},
	}

	// Calculate mass data based on body type
	if bodyType == BodyTypeStatic {
		// Static bodies have infinite mass
		rb.Material.mass = math.Inf(1)
	} else {
		// Dynamic bodies compute mass from shape and density
		rb.Material.Density = density
		rb.Material.mass = shape.ComputeMass(density)
		rb.InertiaLocal = shape.ComputeInertia(rb.Material.mass)
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	}

	rb.UpdateBoundingShape()

	return rb
}

// IsStatic reports whether the body is fixed in place (infinite mass).
func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

// InverseMass is zero for static bodies.
func (rb *RigidBody) InverseMass() float64 {
	if rb.IsStatic() {
		return 0
	}
	return 1.0 / rb.Material.GetMass()
}

// UpdateBoundingShape recomputes the world-space point set and its AABB from the current pose.
func (rb *RigidBody) UpdateBoundingShape() {
	rb.BoundingShape = Transformed(rb.BoundingShape, rb.Shape.LocalPoints(), rb.Transform)
	rb.AABB = BoundPoints(rb.BoundingShape)
}

func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.IsStatic() {
		return
	}

	// Previous pose, used for velocity derivation and friction drift
	rb.PreviousTransform.Position = rb.Transform.Position
	rb.PreviousTransform.Rotation = rb.Transform.Rotation
	rb.PreviousTransform.InverseRotation = rb.Transform.InverseRotation

	invMass := rb.InverseMass()
	var force, torque mgl64.Vec3
	for _, f := range rb.Forces {
		force = force.Add(f.Vector)
		torque = torque.Add(f.Position.Sub(rb.Transform.Position).Cross(f.Vector))
	}

	// ========== LINEAR INTEGRATION ==========
	acceleration := gravity.Add(force.Mul(invMass))
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// ========== ANGULAR INTEGRATION ==========
	// Euler's equation with the inertia tensor rotated by the current orientation
	inertia := rb.GetInertiaWorld()
	gyroscopic := rb.AngularVelocity.Cross(inertia.Mul3x1(rb.AngularVelocity))
	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(torque.Sub(gyroscopic))
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))

	// ========== UPDATE QUATERNION ==========
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()

	rb.UpdateBoundingShape()
}

// Update derives velocities from the pose change of the substep.
func (rb *RigidBody) Update(dt float64) {
	if rb.IsStatic() {
		return
	}

	rb.PresolveVelocity = rb.Velocity
	rb.PresolveAngularVelocity = rb.AngularVelocity

	rb.Velocity = rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0 / dt)
	qDelta := rb.Transform.Rotation.Mul(rb.PreviousTransform.Rotation.Inverse())
	if qDelta.W >= 0.0 {
		rb.AngularVelocity = qDelta.V.Mul(2.0 / dt)
	} else {
		rb.AngularVelocity = qDelta.V.Mul(-2.0 / dt)
	}
}

// AddForce applies force at a world-space point on every substep until ClearForces.
func (rb *RigidBody) AddForce(position, force mgl64.Vec3) {
	if !rb.IsStatic() {
		rb.Forces = append(rb.Forces, Force{Position: position, Vector: force})
	}
}

// AddCentralForce applies force at the center of mass.
func (rb *RigidBody) AddCentralForce(force mgl64.Vec3) {
	rb.AddForce(rb.Transform.Position, force)
}

func (rb *RigidBody) ClearForces() {
	rb.Forces = rb.Forces[:0]
}

// SupportWorld returns the world-space vertex of the bounding shape furthest along direction.
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	return rb.BoundingShape.Support(direction)
}

// GetInertiaWorld returns R * I_local * R^T
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// GetInverseInertiaWorld returns R * I_local^(-1) * R^T, zero for static bodies
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.IsStatic() {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

// GeneralizedInverseMass is the inverse mass seen by a unit impulse along n applied at lever arm r.
func (rb *RigidBody) GeneralizedInverseMass(r, n mgl64.Vec3) float64 {
	if rb.IsStatic() {
		return 0
	}

	rn := r.Cross(n)
	return rb.InverseMass() + rn.Dot(rb.GetInverseInertiaWorld().Mul3x1(rn))
}

// ApplyPositionCorrection moves the body by a positional impulse applied at lever arm r.
func (rb *RigidBody) ApplyPositionCorrection(impulse, r mgl64.Vec3) {
	if rb.IsStatic() {
		return
	}

	rb.Transform.Position = rb.Transform.Position.Add(impulse.Mul(rb.InverseMass()))

	deltaRot := rb.GetInverseInertiaWorld().Mul3x1(r.Cross(impulse))
	qDelta := mgl64.Quat{V: deltaRot, W: 0}.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDelta).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()
}

// ApplyVelocityImpulse changes linear and angular velocity by an impulse applied at lever arm r.
func (rb *RigidBody) ApplyVelocityImpulse(impulse, r mgl64.Vec3) {
	if rb.IsStatic() {
		return
	}

	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InverseMass()))
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(r.Cross(impulse)))
}

// VelocityAt returns the world velocity of a point at lever arm r.
func (rb *RigidBody) VelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}

// PresolveVelocityAt is VelocityAt with the velocities saved before the last derivation.
func (rb *RigidBody) PresolveVelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return rb.PresolveVelocity.Add(rb.PresolveAngularVelocity.Cross(r))
}
