package constraint

import (
	"math"

	"github.com/akmonengine/xpbd/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a persistent contact point between two bodies.
//
// The point is anchored on each body in body space (LocalA, LocalB) so it follows the
// bodies between detections. WorldA and WorldB are the same lever arms expressed in world
// axes, refreshed from the current rotations. Normal points from A toward B: the contact
// penetrates while (pointA − pointB)·Normal > 0.
type Contact struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	LocalA mgl64.Vec3
	LocalB mgl64.Vec3
	WorldA mgl64.Vec3
	WorldB mgl64.Vec3

	Normal mgl64.Vec3

	// Accumulated normal and tangential Lagrange multipliers
	LambdaN float64
	LambdaT float64

	// Detection pass of the owning cache that last wrote the contact
	Pass uint64
}

// NewContact anchors the world points pointA (on a) and pointB (on b) to their bodies.
func NewContact(a, b *actor.RigidBody, pointA, pointB, normal mgl64.Vec3) *Contact {
	c := &Contact{
		BodyA:  a,
		BodyB:  b,
		LocalA: a.Transform.ToLocal(pointA),
		LocalB: b.Transform.ToLocal(pointB),
		Normal: normal,
	}
	c.Refresh()

	return c
}

// Refresh recomputes the world lever arms from the current body rotations.
func (c *Contact) Refresh() {
	c.WorldA = c.BodyA.Transform.Rotation.Rotate(c.LocalA)
	c.WorldB = c.BodyB.Transform.Rotation.Rotate(c.LocalB)
}

// PointA returns the world position of the anchor on A as of the last Refresh.
func (c *Contact) PointA() mgl64.Vec3 {
	return c.BodyA.Transform.Position.Add(c.WorldA)
}

// PointB returns the world position of the anchor on B as of the last Refresh.
func (c *Contact) PointB() mgl64.Vec3 {
	return c.BodyB.Transform.Position.Add(c.WorldB)
}

// Depth is the penetration along the normal, negative once the points have separated.
func (c *Contact) Depth() float64 {
	return c.PointA().Sub(c.PointB()).Dot(c.Normal)
}

// TangentialDrift is the lateral offset between the two anchors. Both anchors start on
// the same line along the normal, so this is the sliding accumulated since the contact
// was established.
func (c *Contact) TangentialDrift() mgl64.Vec3 {
	return tangential(c.PointA().Sub(c.PointB()), c.Normal)
}

// WorldPoints returns the anchors in world space from the current poses, without
// touching the cached lever arms.
func (c *Contact) WorldPoints() (mgl64.Vec3, mgl64.Vec3) {
	return c.BodyA.Transform.ToWorld(c.LocalA), c.BodyB.Transform.ToWorld(c.LocalB)
}

// Swap exchanges the roles of A and B, negating the normal.
func (c *Contact) Swap() {
	c.BodyA, c.BodyB = c.BodyB, c.BodyA
	c.LocalA, c.LocalB = c.LocalB, c.LocalA
	c.WorldA, c.WorldB = c.WorldB, c.WorldA
	c.Normal = c.Normal.Mul(-1)
}

// SolveVelocity applies dynamic friction and restitution at the contact.
//
// Only contacts that produced a normal correction during the last positional solve are
// handled. The tangential velocity is reduced by at most μd·|λn|/h. Restitution targets
// −e times the normal velocity before the solve, with e dropped to zero for slow
// impacts (|vn| ≤ 2|g|h) so resting bodies do not jitter. Bodies that were already
// separating before the solve keep their normal velocity.
func (c *Contact) SolveVelocity(h float64, gravity mgl64.Vec3) {
	if c.LambdaN == 0 {
		return
	}

	bodyA := c.BodyA
	bodyB := c.BodyB
	c.Refresh()

	// Velocity of B relative to A: positive normal component means separating
	relative := bodyB.VelocityAt(c.WorldB).Sub(bodyA.VelocityAt(c.WorldA))
	normalVel := relative.Dot(c.Normal)
	tangentVel := relative.Sub(c.Normal.Mul(normalVel))

	var deltaV mgl64.Vec3

	// ========== Dynamic friction ==========
	if tangentSpeed := tangentVel.Len(); tangentSpeed > 1e-9 {
		dynamicFriction := ComputeDynamicFriction(bodyA.Material, bodyB.Material)
		reduction := math.Min(dynamicFriction*math.Abs(c.LambdaN)/h, tangentSpeed)
		deltaV = deltaV.Sub(tangentVel.Mul(reduction / tangentSpeed))
	}

	// ========== Restitution ==========
	presolve := bodyB.PresolveVelocityAt(c.WorldB).Sub(bodyA.PresolveVelocityAt(c.WorldA))
	presolveNormalVel := presolve.Dot(c.Normal)

	restitution := ComputeRestitution(bodyA.Material, bodyB.Material)
	if math.Abs(normalVel) <= 2*gravity.Len()*h {
		restitution = 0
	}

	// The normal velocity is raised to the restitution target, and lowered to it when the
	// separation only comes from the positional correction.
	target := math.Max(-restitution*presolveNormalVel, 0)
	upper := math.Max(target, presolveNormalVel)
	if normalVel < target {
		deltaV = deltaV.Add(c.Normal.Mul(target - normalVel))
	} else if normalVel > upper {
		deltaV = deltaV.Add(c.Normal.Mul(upper - normalVel))
	}

	// ========== Impulse ==========
	magnitude := deltaV.Len()
	if magnitude < 1e-12 {
		return
	}
	direction := deltaV.Mul(1.0 / magnitude)

	w := bodyA.GeneralizedInverseMass(c.WorldA, direction) + bodyB.GeneralizedInverseMass(c.WorldB, direction)
	if w < 1e-12 {
		return
	}

	impulse := deltaV.Mul(1.0 / w)
	bodyB.ApplyVelocityImpulse(impulse, c.WorldB)
	bodyA.ApplyVelocityImpulse(impulse.Mul(-1), c.WorldA)

	clampSmallVelocities(bodyA)
	clampSmallVelocities(bodyB)
}

func tangential(v, normal mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(normal.Mul(v.Dot(normal)))
}
