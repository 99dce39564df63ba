// Package xpbd simulates rigid bodies with Extended Position Based Dynamics.
//
// A World owns its bodies and its contact cache. Each call to Step advances the
// simulation by dt, split into Substeps substeps of:
//  1. prediction of the new poses from velocities, gravity and forces
//  2. collision detection (all pairs, GJK then EPA) filling the manifold cache
//  3. constraint generation from the cached contacts
//  4. positional solve
//  5. velocity derivation from the pose change
//  6. velocity solve (dynamic friction and restitution)
package xpbd

import (
	"iter"
	"log"

	"github.com/akmonengine/xpbd/actor"
	"github.com/akmonengine/xpbd/constraint"
	"github.com/akmonengine/xpbd/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DEFAULT_SUBSTEPS            = 10
	DEFAULT_POSITION_ITERATIONS = 1
)

// DEFAULT_GRAVITY is the standard gravity along -Y.
var DEFAULT_GRAVITY = mgl64.Vec3{0, -9.81, 0}

type World struct {
	// List of all rigid bodies in the world
	Bodies []*actor.RigidBody
	// Gravity acceleration (m/s², or N/kg)
	Gravity            mgl64.Vec3
	Substeps           int
	PositionIterations int

	// PersistContacts keeps the valid contacts of the previous substep instead of
	// clearing the cache before each detection
	PersistContacts bool
	Contacts        *manifold.Cache

	// Logger receives recoverable solver errors, log.Default() when nil
	Logger *log.Logger

	Events Events

	pairs       []CollisionPair
	constraints []constraint.Constraint
	frictions   []constraint.Constraint
}

// NewWorld returns an empty world with the default settings.
func NewWorld() *World {
	return &World{
		Gravity:            DEFAULT_GRAVITY,
		Substeps:           DEFAULT_SUBSTEPS,
		PositionIterations: DEFAULT_POSITION_ITERATIONS,
		Contacts:           manifold.NewCache(manifold.DefaultConfig()),
		Logger:             log.Default(),
		Events:             NewEvents(),
	}
}

// AddBody adds a rigid body to the world
func (w *World) AddBody(body *actor.RigidBody) {
	w.Bodies = append(w.Bodies, body)
}

// RemoveBody removes a rigid body from the world
func (w *World) RemoveBody(body *actor.RigidBody) {
	k := -1
	for i, b := range w.Bodies {
		if b == body {
			k = i
			break
		}
	}

	if k != -1 {
		w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)
	}

	if w.Contacts != nil {
		w.Contacts.Remove(body)
	}
	w.Events.forget(body)
}

// Step advances the simulation by dt seconds. It does nothing when dt <= 0.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	if w.Contacts == nil {
		w.Contacts = manifold.NewCache(manifold.DefaultConfig())
	}

	substeps := max(1, w.Substeps)
	iterations := max(1, w.PositionIterations)
	h := dt / float64(substeps)

	for range substeps {
		// Phase 1: Prediction
		w.integrate(h)

		// Phase 2: Collision detection, refills the manifold cache
		w.detectCollision()

		// Phase 3: Constraints from the cached contacts
		w.generateConstraints()

		// Phase 4: Solver, only one iteration is required thanks to substeps
		constraint.SolvePositions(w.constraints, h, iterations)

		// Phase 5: Update Velocity
		w.update(h)

		// Phase 6: Velocity
		w.solveVelocity(h)
	}

	for _, body := range w.Bodies {
		if !body.IsStatic() {
			body.UpdateBoundingShape()
		}
	}

	w.Events.flush()
}

func (w *World) integrate(h float64) {
	for _, body := range w.Bodies {
		body.Integrate(h, w.Gravity)
	}
}

// generateConstraints lists the normal constraints of every contact, then the static
// friction ones.
func (w *World) generateConstraints() {
	clear(w.constraints)
	clear(w.frictions)
	w.constraints = w.constraints[:0]
	w.frictions = w.frictions[:0]

	for contact := range w.Contacts.All() {
		w.constraints, w.frictions = constraint.Generate(w.constraints, w.frictions, contact)
	}
	w.constraints = append(w.constraints, w.frictions...)
}

func (w *World) update(h float64) {
	for _, body := range w.Bodies {
		body.Update(h)
	}
}

func (w *World) solveVelocity(h float64) {
	for contact := range w.Contacts.All() {
		contact.SolveVelocity(h, w.Gravity)
	}
}

// Close releases the contact cache.
func (w *World) Close() {
	if w.Contacts != nil {
		w.Contacts.Destroy()
		w.Contacts = nil
	}
	w.constraints = nil
	w.frictions = nil
	w.pairs = nil
}

func (w *World) logger() *log.Logger {
	if w.Logger == nil {
		return log.Default()
	}
	return w.Logger
}

// DebugContact is a read-only snapshot of a cached contact, in world space.
type DebugContact struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64
}

// DebugContacts iterates the contacts currently cached, for debug drawing. It leaves the
// cache untouched.
func (w *World) DebugContacts() iter.Seq[DebugContact] {
	return func(yield func(DebugContact) bool) {
		if w.Contacts == nil {
			return
		}

		for contact := range w.Contacts.All() {
			pointA, pointB := contact.WorldPoints()
			debug := DebugContact{
				BodyA:  contact.BodyA,
				BodyB:  contact.BodyB,
				PointA: pointA,
				PointB: pointB,
				Normal: contact.Normal,
				Depth:  pointA.Sub(pointB).Dot(contact.Normal),
			}
			if !yield(debug) {
				return
			}
		}
	}
}
