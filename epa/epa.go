// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects a collision to determine:
//   - Penetration depth (how far shapes overlap)
//   - Contact normal (direction to separate shapes)
//   - Contact points (where shapes touch)
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the origin
// in the Minkowski difference space, finding the closest face which gives us the
// Minimum Translation Vector (MTV) to separate the shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/xpbd/actor"
	"github.com/akmonengine/xpbd/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxIterations limits polytope expansion to prevent infinite loops.
	// Typical convergence: 5-15 iterations for boxes, more for sampled spheres.
	MaxIterations = 1000

	// ConvergenceTolerance defines when EPA has converged: the support point along the
	// closest face normal improves the distance by less than this threshold.
	ConvergenceTolerance = 1e-5

	// CoplanarTolerance is the plane distance below which the origin is considered
	// to lie on a face, whose orientation is then derived from the other vertices.
	CoplanarTolerance = 1e-5

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	// This helps with numerical stability and axis-aligned collisions.
	NormalSnapThreshold = 1e-6

	// FallbackDepth is the penetration reported with ErrNoConvergence.
	FallbackDepth = 1e-6

	// A face sees a point when the point is further than this in front of it.
	visibleEpsilon = 1e-10

	// Squared length of an unnormalized face normal below which the face has no area.
	degenerateFaceEpsilon = 1e-24

	polytopeInitialCapacity = 16
)

var (
	// ErrNoConvergence is returned alongside the fallback result when the iteration cap
	// is reached or the polytope degenerates.
	ErrNoConvergence = errors.New("epa: failed to converge")

	// ErrInvalidSimplex is returned when the GJK simplex is not a tetrahedron.
	ErrInvalidSimplex = errors.New("epa: simplex is not a tetrahedron")
)

// FallbackNormal is the contact normal reported with ErrNoConvergence.
var FallbackNormal = mgl64.Vec3{0, 1, 0}

// Result is the minimum translation between two intersecting shapes.
// Normal is a unit vector pointing from A toward B, Depth is non-negative.
// PointA and PointB are the deepest points on A and B along Normal.
type Result struct {
	Normal mgl64.Vec3
	Depth  float64
	PointA mgl64.Vec3
	PointB mgl64.Vec3
}

// EPA computes penetration depth and contact information for overlapping convex shapes.
//
// Algorithm overview:
//  1. Start with simplex from GJK (tetrahedron containing origin)
//  2. Build initial polytope faces from simplex
//  3. Find face closest to origin
//  4. Get support point in face normal direction
//  5. If converged (new point doesn't improve distance) → done
//  6. Otherwise, expand polytope by adding support point
//  7. Repeat from step 3
//
// On ErrNoConvergence the returned Result still holds a usable fallback
// (FallbackNormal, FallbackDepth) so the caller may log and continue.
func EPA(a, b actor.PointSet, simplex *gjk.Simplex) (Result, error) {
	if simplex.Count != 4 {
		return Result{}, fmt.Errorf("%w: %d points", ErrInvalidSimplex, simplex.Count)
	}

	polytope := NewPolytope(simplex)

	for i := 0; i < MaxIterations; i++ {
		if polytope.Closest < 0 {
			return fallback(a, b), fmt.Errorf("%w: degenerate polytope", ErrNoConvergence)
		}

		normal := polytope.Normals[polytope.Closest]
		distance := polytope.Distances[polytope.Closest]

		support := gjk.MinkowskiSupport(a, b, normal)
		if support.Point.Dot(normal)-distance < ConvergenceTolerance {
			return polytope.result(), nil
		}

		if !polytope.Expand(support) {
			// The support point is already on the hull: no face can move closer
			return polytope.result(), nil
		}
	}

	return fallback(a, b), fmt.Errorf("%w after %d iterations", ErrNoConvergence, MaxIterations)
}

func (p *Polytope) result() Result {
	pointA, pointB := p.contactPoints()

	return Result{
		Normal: snapNormalToAxis(p.Normals[p.Closest]),
		Depth:  math.Max(p.Distances[p.Closest], 0),
		PointA: pointA,
		PointB: pointB,
	}
}

func fallback(a, b actor.PointSet) Result {
	return Result{
		Normal: FallbackNormal,
		Depth:  FallbackDepth,
		PointA: a.Support(FallbackNormal),
		PointB: b.Support(FallbackNormal.Mul(-1)),
	}
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero.
//
// This improves numerical stability for axis-aligned collisions (box on ground)
// by preventing tiny floating-point errors from causing jitter in tangent directions.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	for i := range normal {
		if math.Abs(normal[i]) < NormalSnapThreshold {
			normal[i] = 0
		}
	}

	length := normal.Len()
	if length < NormalSnapThreshold {
		return FallbackNormal
	}

	return normal.Mul(1.0 / length)
}
