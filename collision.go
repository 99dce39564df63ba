package xpbd

import (
	"errors"

	"github.com/akmonengine/xpbd/actor"
	"github.com/akmonengine/xpbd/constraint"
	"github.com/akmonengine/xpbd/epa"
	"github.com/akmonengine/xpbd/gjk"
)

// CollisionPair represents a pair of rigid bodies that potentially collide
type CollisionPair struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

// BroadPhase returns every unordered pair of bodies whose AABBs overlap, in body order.
// Pairs of two static bodies are skipped. This is an O(n²) scan.
func BroadPhase(bodies []*actor.RigidBody, pairs []CollisionPair) []CollisionPair {
	for i, bodyA := range bodies {
		for _, bodyB := range bodies[i+1:] {
			if bodyA.IsStatic() && bodyB.IsStatic() {
				continue
			}
			if !bodyA.AABB.Overlaps(bodyB.AABB) {
				continue
			}
			pairs = append(pairs, CollisionPair{BodyA: bodyA, BodyB: bodyB})
		}
	}

	return pairs
}

// detectCollision refills the manifold cache from the predicted poses.
func (w *World) detectCollision() {
	if w.PersistContacts {
		w.Contacts.Update()
	} else {
		w.Contacts.ClearAll()
	}

	w.pairs = BroadPhase(w.Bodies, w.pairs[:0])
	for _, pair := range w.pairs {
		w.narrowPhase(pair)
	}
}

// narrowPhase runs GJK then EPA on a pair and inserts its contact points in the cache.
// Pairs involving a trigger only record events.
func (w *World) narrowPhase(pair CollisionPair) {
	bodyA, bodyB := pair.BodyA, pair.BodyB

	intersecting, simplex := w.Intersect(bodyA.BoundingShape, bodyB.BoundingShape)
	if !intersecting {
		return
	}

	if bodyA.IsTrigger || bodyB.IsTrigger {
		w.Events.recordPair(bodyA, bodyB)
		return
	}

	result, ok := w.Penetration(bodyA.BoundingShape, bodyB.BoundingShape, &simplex)
	if !ok || result.Depth <= 0 {
		return
	}
	w.Events.recordPair(bodyA, bodyB)

	for _, point := range epa.GenerateContacts(bodyA.BoundingShape, bodyB.BoundingShape, result) {
		w.Contacts.Add(constraint.NewContact(bodyA, bodyB, point.PointA, point.PointB, result.Normal))
	}
}

// Collides reports whether two convex point sets intersect.
func (w *World) Collides(a, b actor.PointSet) bool {
	collides, _ := w.Intersect(a, b)
	return collides
}

// Intersect runs GJK and returns the final simplex, a tetrahedron enclosing the origin
// when the sets intersect. Non-convergence is logged and reported as no intersection.
func (w *World) Intersect(a, b actor.PointSet) (bool, gjk.Simplex) {
	var simplex gjk.Simplex

	collides, err := gjk.GJK(a, b, &simplex)
	if err != nil {
		w.logger().Printf("Physics: GJK: %v", err)
	}

	return collides, simplex
}

// Penetration runs EPA from a GJK simplex. When EPA does not converge the error is logged
// and its fallback result is returned. ok is false only for a simplex EPA cannot start from.
func (w *World) Penetration(a, b actor.PointSet, simplex *gjk.Simplex) (epa.Result, bool) {
	result, err := epa.EPA(a, b, simplex)
	if err != nil {
		w.logger().Printf("Physics: EPA: %v", err)
		if errors.Is(err, epa.ErrInvalidSimplex) {
			return result, false
		}
	}

	return result, true
}
