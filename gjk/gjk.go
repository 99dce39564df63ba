// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) algorithm for collision detection.
//
// GJK detects whether two convex point sets overlap by testing if their Minkowski difference
// contains the origin. The algorithm builds a simplex incrementally, converging toward
// the origin in typically 3-6 iterations.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"errors"
	"fmt"

	"github.com/akmonengine/xpbd/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxIterations bounds the simplex refinement loop.
	MaxIterations = 100

	// degenerateEpsilon guards squared lengths of cross products and directions.
	degenerateEpsilon = 1e-12

	// progressEpsilon is the minimal advance along the search direction, relative
	// to its length, for a new support point to count as progress.
	progressEpsilon = 1e-10
)

// ErrNoConvergence is returned when the iteration cap is reached.
// Callers treat the pair as non-intersecting.
var ErrNoConvergence = errors.New("gjk: failed to converge")

// SupportPoint is a vertex of the Minkowski difference A - B together with the
// vertices of A and B that produced it.
type SupportPoint struct {
	Point mgl64.Vec3
	A     mgl64.Vec3
	B     mgl64.Vec3
}

// Simplex represents a set of 1-4 points in the Minkowski difference space.
// The most recently added point is always Points[Count-1].
// Size progression: 1 point → 2 points (line) → 3 points (triangle) → 4 points (tetrahedron)
type Simplex struct {
	Points [4]SupportPoint
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

// Push appends p as the most recent point.
func (s *Simplex) Push(p SupportPoint) {
	if s.Count >= len(s.Points) {
		panic(fmt.Sprintf("gjk: simplex overflow (count %d)", s.Count))
	}
	s.Points[s.Count] = p
	s.Count++
}

// Last returns the most recently added point.
func (s *Simplex) Last() SupportPoint {
	return s.Points[s.Count-1]
}

// set replaces the content of the simplex; the last argument becomes the most recent point.
func (s *Simplex) set(points ...SupportPoint) {
	s.Count = copy(s.Points[:], points)
}

func (s *Simplex) contains(p mgl64.Vec3) bool {
	for i := 0; i < s.Count; i++ {
		if s.Points[i].Point == p {
			return true
		}
	}
	return false
}

// MinkowskiSupport computes a support point in the Minkowski difference (A - B).
//
// Returns:
//
//	Support point: furthestPoint(A, direction) - furthestPoint(B, -direction)
//
// This is the fundamental query that makes GJK work for any convex shape - shapes only
// need to answer support queries, not expose their full geometry.
func MinkowskiSupport(a, b actor.PointSet, direction mgl64.Vec3) SupportPoint {
	supportA := a.Support(direction)
	supportB := b.Support(direction.Mul(-1))
	return SupportPoint{
		Point: supportA.Sub(supportB),
		A:     supportA,
		B:     supportB,
	}
}

// Collides reports whether two convex point sets intersect.
func Collides(a, b actor.PointSet) bool {
	var simplex Simplex
	collision, _ := GJK(a, b, &simplex)
	return collision
}

// GJK performs collision detection between two convex point sets.
//
// Algorithm overview:
//  1. Start with initial search direction (toward B from A)
//  2. Get first support point in Minkowski difference
//  3. Iteratively refine simplex toward origin
//  4. If origin is contained → collision
//  5. If can't reach origin → no collision
//
// On collision the simplex is a tetrahedron containing the origin (possibly on its
// boundary), which EPA uses as its initial polytope.
// Shapes that only touch are reported as separated, unless the origin falls exactly on a
// simplex vertex: EPA then finds a zero depth.
func GJK(a, b actor.PointSet, simplex *Simplex) (bool, error) {
	simplex.Reset()

	seed := b.Centroid().Sub(a.Centroid())
	if seed.LenSqr() < degenerateEpsilon {
		seed = mgl64.Vec3{1, 0, 0}
	}

	simplex.Push(MinkowskiSupport(a, b, seed))

	direction := simplex.Points[0].Point.Mul(-1)
	if direction.LenSqr() < degenerateEpsilon {
		// First support point sits on the origin, keep searching the other way
		direction = seed.Mul(-1)
	}

	for i := 0; i < MaxIterations; i++ {
		newPoint := MinkowskiSupport(a, b, direction)
		projection := newPoint.Point.Dot(direction)

		// The origin lies beyond the furthest point along direction: separating axis found
		if projection < 0 {
			return false, nil
		}

		// No advance past the current simplex: the origin sits on the boundary of the
		// Minkowski difference, the shapes only touch
		if simplex.contains(newPoint.Point) || projection-maxProjection(simplex, direction) <= progressEpsilon*direction.Len() {
			return false, nil
		}

		simplex.Push(newPoint)

		if nextSimplex(simplex, &direction) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w after %d iterations", ErrNoConvergence, MaxIterations)
}

func maxProjection(simplex *Simplex, direction mgl64.Vec3) float64 {
	best := simplex.Points[0].Point.Dot(direction)
	for i := 1; i < simplex.Count; i++ {
		best = max(best, simplex.Points[i].Point.Dot(direction))
	}
	return best
}

// nextSimplex reduces the simplex to the feature closest to the origin and updates
// the search direction. It reports true when the tetrahedron contains the origin.
//
// Ties on a Voronoi boundary keep the larger feature (inclusive >= 0 toward the kept
// region), so the refinement never oscillates between two adjacent regions.
func nextSimplex(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	panic(fmt.Sprintf("gjk: invalid simplex size %d", simplex.Count))
}

// line handles the line simplex case (2 points: A and B, A most recent).
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Point.Sub(a.Point)
	ao := a.Point.Mul(-1)

	// Identical points, nothing to span
	if ab.LenSqr() < degenerateEpsilon {
		simplex.set(a)
		*direction = ao
		return false
	}

	if ab.Dot(ao) >= 0 {
		// Voronoi region of the segment
		*direction = towardOrigin(ab, ao)
		return false
	}

	// Voronoi region of A alone
	simplex.set(a)
	*direction = ao
	return false
}

// triangle handles the triangle simplex case (3 points: A, B, C, A most recent).
//
// Degenerate case: if points are collinear (flat triangle), treats as line instead.
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2]
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Point.Sub(a.Point)
	ac := c.Point.Sub(a.Point)
	ao := a.Point.Mul(-1)

	abc := ab.Cross(ac)

	if abc.LenSqr() < degenerateEpsilon {
		simplex.set(b, a)
		return line(simplex, direction)
	}

	// Outside edge AC
	if abc.Cross(ac).Dot(ao) > 0 {
		if ac.Dot(ao) >= 0 {
			simplex.set(c, a)
			*direction = towardOrigin(ac, ao)
			return false
		}
		return triangleEdgeAB(simplex, direction, a, b, ab, ao)
	}

	// Outside edge AB
	if ab.Cross(abc).Dot(ao) > 0 {
		return triangleEdgeAB(simplex, direction, a, b, ab, ao)
	}

	// Above or below the face
	if abc.Dot(ao) >= 0 {
		*direction = abc
	} else {
		// Below, reverse winding so the normal faces the origin
		simplex.set(b, c, a)
		*direction = abc.Mul(-1)
	}

	return false
}

func triangleEdgeAB(simplex *Simplex, direction *mgl64.Vec3, a, b SupportPoint, ab, ao mgl64.Vec3) bool {
	if ab.Dot(ao) >= 0 {
		simplex.set(b, a)
		*direction = towardOrigin(ab, ao)
		return false
	}

	simplex.set(a)
	*direction = ao
	return false
}

// tetrahedron handles the tetrahedron simplex case (4 points: A, B, C, D, A most recent).
//
// This is the only case that can return true (collision detected).
//
// Face normals point away from the opposite vertex. The origin is outside a face only
// when strictly in front of it; an origin lying on a face counts as contained and is
// resolved by EPA's coplanar handling.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3]
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Point.Sub(a.Point)
	ac := c.Point.Sub(a.Point)
	ad := d.Point.Sub(a.Point)
	ao := a.Point.Mul(-1)

	// Flat tetrahedron: drop D and continue from the triangle
	if volume := ab.Dot(ac.Cross(ad)); volume*volume < degenerateEpsilon*degenerateEpsilon {
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	}

	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	if abc.Dot(ao) > 0 {
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	}

	if acd.Dot(ao) > 0 {
		simplex.set(d, c, a)
		return triangle(simplex, direction)
	}

	if adb.Dot(ao) > 0 {
		simplex.set(b, d, a)
		return triangle(simplex, direction)
	}

	return true
}

// outward flips normal so it points away from the vertex reached by toOpposite.
func outward(normal, toOpposite mgl64.Vec3) mgl64.Vec3 {
	if normal.Dot(toOpposite) > 0 {
		return normal.Mul(-1)
	}
	return normal
}

// towardOrigin returns the component of ao perpendicular to edge.
// When the origin lies on the edge line, any perpendicular of edge is returned.
func towardOrigin(edge, ao mgl64.Vec3) mgl64.Vec3 {
	perp := edge.Cross(ao).Cross(edge)
	if perp.LenSqr() > degenerateEpsilon {
		return perp
	}

	tangent, _ := actor.TangentBasis(edge.Normalize())
	return tangent
}
