package epa

import (
	"math"

	"github.com/akmonengine/xpbd/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// FeatureTolerance is the distance to the support plane under which a vertex
	// still belongs to the contact feature.
	FeatureTolerance = 1e-3

	// MaxContactPoints bounds the points produced for a single pair.
	MaxContactPoints = 4

	clipTolerance = 1e-6
)

// ContactPoint is a pair of matching world points, one on each shape.
// (PointA - PointB) · normal is the penetration along the contact normal.
type ContactPoint struct {
	PointA mgl64.Vec3
	PointB mgl64.Vec3
}

// Depth returns the penetration of the point pair along normal.
func (c ContactPoint) Depth(normal mgl64.Vec3) float64 {
	return c.PointA.Sub(c.PointB).Dot(normal)
}

// GenerateContacts creates contact points for a collision using Sutherland-Hodgman clipping.
//
// A contact manifold is a set of 1-4 contact points that represent where two shapes touch.
// Multiple points provide stability (preventing rotation/jitter) and distribute forces realistically.
//
// Algorithm:
//  1. Get contact features from each shape (point, edge, or face)
//  2. Determine incident (fewer points) and reference (more points) features
//  3. Clip incident feature against reference feature's side planes
//  4. Keep points that are penetrating, paired with their projection on the reference plane
//  5. Reduce to max 4 points if needed
//
// When no point survives, the single pair found by EPA is returned.
func GenerateContacts(a, b actor.PointSet, result Result) []ContactPoint {
	normal := result.Normal
	featureA := a.Feature(normal, FeatureTolerance)
	featureB := b.Feature(normal.Mul(-1), FeatureTolerance)

	if len(featureA) == 0 || len(featureB) == 0 {
		return []ContactPoint{{PointA: result.PointA, PointB: result.PointB}}
	}

	// The reference normal points out of the reference shape, toward the incident one
	incident, reference := featureB, featureA
	refNormal := normal
	incidentIsA := false
	if len(featureB) > len(featureA) {
		incident, reference = featureA, featureB
		refNormal = normal.Mul(-1)
		incidentIsA = true
	}

	pair := func(incidentPoint, referencePoint mgl64.Vec3) ContactPoint {
		if incidentIsA {
			return ContactPoint{PointA: incidentPoint, PointB: referencePoint}
		}
		return ContactPoint{PointA: referencePoint, PointB: incidentPoint}
	}

	switch {
	case len(incident) == 1:
		// Vertex contact: the reference side of the pair sits one depth away
		return []ContactPoint{pair(incident[0], incident[0].Add(refNormal.Mul(result.Depth)))}

	case len(incident) == 2 && len(reference) == 2:
		onIncident, onReference := closestPointsSegments(incident[0], incident[1], reference[0], reference[1])
		if onReference.Sub(onIncident).Dot(refNormal) < -clipTolerance {
			break
		}
		return []ContactPoint{pair(onIncident, onReference)}

	default:
		clipped := clipIncidentAgainstReference(incident, reference, refNormal)

		offset := math.Inf(-1)
		for _, p := range reference {
			offset = math.Max(offset, p.Dot(refNormal))
		}

		var contacts []ContactPoint
		for _, p := range clipped {
			distance := p.Dot(refNormal) - offset
			if distance > clipTolerance {
				continue
			}
			contacts = append(contacts, pair(p, p.Sub(refNormal.Mul(distance))))
		}

		if len(contacts) > 0 {
			if len(contacts) > MaxContactPoints {
				contacts = reduceTo4Points(contacts, normal)
			}
			return contacts
		}
	}

	return []ContactPoint{{PointA: result.PointA, PointB: result.PointB}}
}

// clipIncidentAgainstReference performs Sutherland-Hodgman polygon clipping.
//
// Clips the incident feature (polygon) against the side planes of the reference feature.
// This finds the intersection of the two features, which gives us the contact region.
// A reference edge yields two side planes containing it, which trims the incident
// polygon to the edge line.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(reference) < 2 {
		return incident
	}

	output := incident
	center := actor.PointSet(reference).Centroid()

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		// Clipping plane normal (perpendicular to the edge, pointing inward)
		clipNormal := v2.Sub(v1).Cross(normal)
		if clipNormal.LenSqr() < 1e-18 {
			continue
		}
		clipNormal = clipNormal.Normalize()
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}

	return output
}

// clipPolygonAgainstPlane implements Sutherland-Hodgman for a single plane
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 0 {
		return polygon
	}

	output := make([]mgl64.Vec3, 0, len(polygon)+1)
	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -clipTolerance {
			output = append(output, current)

			// Next is outside → add intersection
			if nextDist < -clipTolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -clipTolerance {
			// Current is outside, next is inside → add intersection
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}

		// A two-point polygon is a segment, not a closed loop
		if len(polygon) == 2 {
			if nextDist >= -clipTolerance {
				output = append(output, next)
			}
			break
		}
	}

	return output
}

// lineIntersectPlane calculates the intersection between a line segment and a plane
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	dist := p1.Sub(planePoint).Dot(planeNormal)
	denom := dir.Dot(planeNormal)

	if math.Abs(denom) < 1e-10 {
		return p1 // Segment parallel to plane
	}

	t := -dist / denom
	t = math.Max(0, math.Min(1, t)) // Clamp to segment

	return p1.Add(dir.Mul(t))
}

// closestPointsSegments returns the closest points between segments p1q1 and p2q2.
func closestPointsSegments(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a < 1e-12 && e < 1e-12:
		return p1, p2
	case a < 1e-12:
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e < 1e-12 {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > 1e-12 {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}

	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// reduceTo4Points keeps the extreme points along two tangent axes, in a fixed order.
func reduceTo4Points(points []ContactPoint, normal mgl64.Vec3) []ContactPoint {
	tangent1, tangent2 := actor.TangentBasis(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	minXval, maxXval := math.Inf(1), math.Inf(-1)
	minYval, maxYval := math.Inf(1), math.Inf(-1)

	for i, p := range points {
		x := p.PointB.Dot(tangent1)
		y := p.PointB.Dot(tangent2)

		if x < minXval {
			minXval, minX = x, i
		}
		if x > maxXval {
			maxXval, maxX = x, i
		}
		if y < minYval {
			minYval, minY = y, i
		}
		if y > maxYval {
			maxYval, maxY = y, i
		}
	}

	result := make([]ContactPoint, 0, MaxContactPoints)
	for _, idx := range []int{minX, maxX, minY, maxY} {
		duplicate := false
		for _, kept := range result {
			if kept == points[idx] {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, points[idx])
		}
	}

	return result
}
