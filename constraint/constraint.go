package constraint

import (
	"math"

	"github.com/akmonengine/xpbd/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// CONTACT_COMPLIANCE is used by generated contact constraints: rigid contacts.
	CONTACT_COMPLIANCE = 0.0

	// Corrections below this magnitude are skipped.
	minCorrection = 1e-9
)

// Constraint is a constraint solved by the positional loop.
// The set of implementations is closed: *Positional is the only kind today.
type Constraint interface {
	SolvePosition(h float64)
	constraint()
}

// Axis selects the direction a positional constraint acts along.
type Axis int

const (
	// AxisNormal pushes penetrating points apart along the contact normal.
	AxisNormal Axis = iota
	// AxisTangent brings the two anchors back in line along the normal (static friction).
	AxisTangent
)

// Positional is an XPBD positional constraint bound to a contact.
// DeltaX is the error at generation time; the error is recomputed from the current
// poses each time the constraint is solved.
type Positional struct {
	Contact    *Contact
	Axis       Axis
	Compliance float64
	DeltaX     mgl64.Vec3
	Lambda     *float64
}

func (p *Positional) constraint() {}

// Error returns the current scalar error and the unit direction of the correction.
// A non-positive error means the constraint is satisfied.
func (p *Positional) Error() (float64, mgl64.Vec3) {
	c := p.Contact
	c.Refresh()

	switch p.Axis {
	case AxisNormal:
		return c.Depth(), c.Normal
	case AxisTangent:
		drift := c.TangentialDrift()
		length := drift.Len()
		if length < minCorrection {
			return 0, mgl64.Vec3{}
		}
		return length, drift.Mul(1.0 / length)
	}

	return 0, mgl64.Vec3{}
}

// SolvePosition applies one XPBD update: Δλ = (−c − α̃λ) / (wA + wB + α̃), α̃ = α/h².
// A receives the correction Δλ·n and B its opposite, both at their contact lever arms.
func (p *Positional) SolvePosition(h float64) {
	magnitude, direction := p.Error()
	if magnitude <= minCorrection {
		return
	}

	c := p.Contact
	wA := c.BodyA.GeneralizedInverseMass(c.WorldA, direction)
	wB := c.BodyB.GeneralizedInverseMass(c.WorldB, direction)

	alphaTilde := p.Compliance / (h * h)
	denominator := wA + wB + alphaTilde
	if denominator < 1e-12 {
		return
	}

	deltaLambda := (-magnitude - alphaTilde*(*p.Lambda)) / denominator
	*p.Lambda += deltaLambda

	correction := direction.Mul(deltaLambda)
	c.BodyA.ApplyPositionCorrection(correction, c.WorldA)
	c.BodyB.ApplyPositionCorrection(correction.Mul(-1), c.WorldB)
}

// Generate appends the constraints of contact for the current substep: the normal
// constraint to normals, the static friction constraint to frictions.
//
// The normal constraint exists while the contact penetrates. The static friction
// constraint is added when the tangential force of the previous solve stayed inside the
// friction cone. Both accumulators are then reset for the new solve.
//
// Callers solve every normal constraint before any friction constraint, so friction
// sees the pose left by all the normal corrections of the pass.
func Generate(normals, frictions []Constraint, contact *Contact) ([]Constraint, []Constraint) {
	contact.Refresh()

	depth := contact.Depth()
	if depth <= 0 {
		contact.LambdaN = 0
		contact.LambdaT = 0
		return normals, frictions
	}

	staticFriction := ComputeStaticFriction(contact.BodyA.Material, contact.BodyB.Material)
	sticking := staticFriction > 0 && math.Abs(contact.LambdaT) <= staticFriction*math.Abs(contact.LambdaN)

	contact.LambdaN = 0
	contact.LambdaT = 0

	normals = append(normals, &Positional{
		Contact:    contact,
		Axis:       AxisNormal,
		Compliance: CONTACT_COMPLIANCE,
		DeltaX:     contact.Normal.Mul(depth),
		Lambda:     &contact.LambdaN,
	})

	if sticking {
		frictions = append(frictions, &Positional{
			Contact:    contact,
			Axis:       AxisTangent,
			Compliance: CONTACT_COMPLIANCE,
			DeltaX:     contact.TangentialDrift(),
			Lambda:     &contact.LambdaT,
		})
	}

	return normals, frictions
}

// SolvePositions runs iterations Gauss-Seidel passes over constraints, in order.
func SolvePositions(constraints []Constraint, h float64, iterations int) {
	for range iterations {
		for _, c := range constraints {
			switch c := c.(type) {
			case *Positional:
				c.SolvePosition(h)
			}
		}
	}
}

func ComputeRestitution(matA, matB actor.Material) float64 {
	// Average (more realistic)
	return (matA.Restitution + matB.Restitution) / 2.0
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	// Geometric mean (standard in physics)
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}
