package actor

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// PointSet is a convex shape given by its vertices.
// Every query treats the set as the convex hull of its points.
type PointSet []mgl64.Vec3

// Support returns the vertex maximizing the dot product with direction.
// Ties keep the first vertex encountered, which makes the query deterministic
// for shapes with coplanar faces (boxes, slabs).
func (s PointSet) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if len(s) == 0 {
		return mgl64.Vec3{}
	}

	best := s[0]
	bestDot := best.Dot(direction)
	for _, p := range s[1:] {
		if d := p.Dot(direction); d > bestDot {
			best = p
			bestDot = d
		}
	}

	return best
}

// Centroid returns the average of the vertices.
func (s PointSet) Centroid() mgl64.Vec3 {
	if len(s) == 0 {
		return mgl64.Vec3{}
	}

	sum := mgl64.Vec3{}
	for _, p := range s {
		sum = sum.Add(p)
	}

	return sum.Mul(1.0 / float64(len(s)))
}

// Feature returns the vertices lying within tolerance of the support plane along
// direction: a single point, an edge, or a face polygon.
// Polygons are ordered counter-clockwise when viewed from the tip of direction,
// so consecutive points form the edges used for clipping.
func (s PointSet) Feature(direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	if len(s) == 0 {
		return nil
	}

	maxDot := s.Support(direction).Dot(direction)
	dirLen := direction.Len()
	if dirLen < 1e-12 {
		return []mgl64.Vec3{s[0]}
	}

	var feature []mgl64.Vec3
	for _, p := range s {
		if (maxDot-p.Dot(direction))/dirLen <= tolerance && !containsPoint(feature, p) {
			feature = append(feature, p)
		}
	}

	if len(feature) < 3 {
		return feature
	}

	normal := direction.Mul(1.0 / dirLen)
	tangent1, tangent2 := TangentBasis(normal)
	center := PointSet(feature).Centroid()

	slices.SortStableFunc(feature, func(a, b mgl64.Vec3) int {
		da := a.Sub(center)
		db := b.Sub(center)
		angleA := math.Atan2(da.Dot(tangent2), da.Dot(tangent1))
		angleB := math.Atan2(db.Dot(tangent2), db.Dot(tangent1))
		switch {
		case angleA < angleB:
			return -1
		case angleA > angleB:
			return 1
		}
		return 0
	})

	return feature
}

// Transformed writes the world-space image of the body-space points into dst,
// reusing its storage when large enough.
func Transformed(dst PointSet, local []mgl64.Vec3, transform Transform) PointSet {
	if cap(dst) < len(local) {
		dst = make(PointSet, len(local))
	}
	dst = dst[:len(local)]

	for i, p := range local {
		dst[i] = transform.ToWorld(p)
	}

	return dst
}

// TangentBasis returns two unit vectors orthogonal to normal and to each other.
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

func containsPoint(points []mgl64.Vec3, p mgl64.Vec3) bool {
	for _, q := range points {
		if q.Sub(p).LenSqr() < 1e-18 {
			return true
		}
	}
	return false
}
