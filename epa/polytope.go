package epa

import (
	"math"

	"github.com/akmonengine/xpbd/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Polytope is the convex hull approximation expanded by EPA.
// Faces are vertex index triples; Normals and Distances are parallel to Faces.
// Every normal points away from the interior, so every vertex lies on the
// non-positive side of every face plane.
type Polytope struct {
	Vertices  []gjk.SupportPoint
	Faces     [][3]int
	Normals   []mgl64.Vec3
	Distances []float64

	// Closest is the index of the face nearest to the origin, -1 when none is usable
	Closest int

	// Edge toggle buffer for horizon reconstruction
	edges [][2]int
}

// NewPolytope builds the initial tetrahedron from a GJK terminal simplex.
func NewPolytope(simplex *gjk.Simplex) *Polytope {
	p := &Polytope{
		Vertices:  make([]gjk.SupportPoint, 0, polytopeInitialCapacity),
		Faces:     make([][3]int, 0, polytopeInitialCapacity),
		Normals:   make([]mgl64.Vec3, 0, polytopeInitialCapacity),
		Distances: make([]float64, 0, polytopeInitialCapacity),
		Closest:   -1,
	}
	p.Vertices = append(p.Vertices, simplex.Points[:4]...)

	p.addFace(0, 1, 2)
	p.addFace(0, 2, 3)
	p.addFace(0, 3, 1)
	p.addFace(1, 3, 2)
	p.updateClosest()

	return p
}

// addFace appends the triangle (i, j, k) with its outward normal and plane distance.
//
// The raw normal comes from the winding. A clearly negative distance means it points
// toward the origin and is flipped. When the origin is (nearly) on the face plane, the
// distance sign says nothing, so the orientation is taken from the remaining vertices,
// which must lie behind the face of a convex polytope.
func (p *Polytope) addFace(i, j, k int) {
	va := p.Vertices[i].Point
	vb := p.Vertices[j].Point
	vc := p.Vertices[k].Point

	normal := vb.Sub(va).Cross(vc.Sub(va))
	if normal.LenSqr() < degenerateFaceEpsilon {
		// Zero-area triangle, kept for topology but never selected nor visible
		p.Faces = append(p.Faces, [3]int{i, j, k})
		p.Normals = append(p.Normals, mgl64.Vec3{})
		p.Distances = append(p.Distances, math.Inf(1))
		return
	}
	normal = normal.Normalize()
	distance := normal.Dot(va)

	flip := false
	if distance < -CoplanarTolerance {
		flip = true
	} else if distance < CoplanarTolerance {
		flip = p.frontSide(normal, va, i, j, k) > 0
	}

	if flip {
		normal = normal.Mul(-1)
		distance = -distance
		j, k = k, j
	}

	p.Faces = append(p.Faces, [3]int{i, j, k})
	p.Normals = append(p.Normals, normal)
	p.Distances = append(p.Distances, distance)
}

// frontSide returns the signed offset, along normal, of the vertex furthest from the
// plane through origin, ignoring the face's own vertices.
func (p *Polytope) frontSide(normal, origin mgl64.Vec3, i, j, k int) float64 {
	best := 0.0
	for v := range p.Vertices {
		if v == i || v == j || v == k {
			continue
		}
		offset := normal.Dot(p.Vertices[v].Point.Sub(origin))
		if math.Abs(offset) > math.Abs(best) {
			best = offset
		}
	}
	return best
}

func (p *Polytope) updateClosest() {
	p.Closest = -1
	minDistance := math.Inf(1)

	for i, d := range p.Distances {
		if d < minDistance {
			minDistance = d
			p.Closest = i
		}
	}
}

// Expand adds support as a new vertex: faces seeing it are removed and the horizon
// of the removed region is connected to it.
// It reports false when no face sees the point, which leaves the polytope unchanged.
func (p *Polytope) Expand(support gjk.SupportPoint) bool {
	newIndex := len(p.Vertices)
	p.edges = p.edges[:0]

	visible := 0
	for f := len(p.Faces) - 1; f >= 0; f-- {
		face := p.Faces[f]
		if p.Normals[f].Dot(support.Point.Sub(p.Vertices[face[0]].Point)) <= visibleEpsilon {
			continue
		}

		visible++
		p.toggleEdge(face[0], face[1])
		p.toggleEdge(face[1], face[2])
		p.toggleEdge(face[2], face[0])
		p.removeFace(f)
	}

	if visible == 0 {
		return false
	}

	p.Vertices = append(p.Vertices, support)
	for _, edge := range p.edges {
		p.addFace(edge[0], edge[1], newIndex)
	}
	p.updateClosest()

	return true
}

// toggleEdge adds the edge to the horizon buffer, or cancels it when the same edge
// was already contributed by another removed face. Edges shared by two removed faces
// appear twice and vanish; what is left is the horizon loop.
func (p *Polytope) toggleEdge(a, b int) {
	for i, edge := range p.edges {
		if (edge[0] == a && edge[1] == b) || (edge[0] == b && edge[1] == a) {
			last := len(p.edges) - 1
			p.edges[i] = p.edges[last]
			p.edges = p.edges[:last]
			return
		}
	}
	p.edges = append(p.edges, [2]int{a, b})
}

// removeFace deletes face f using swap-with-last on every parallel slice.
func (p *Polytope) removeFace(f int) {
	last := len(p.Faces) - 1
	p.Faces[f] = p.Faces[last]
	p.Normals[f] = p.Normals[last]
	p.Distances[f] = p.Distances[last]

	p.Faces = p.Faces[:last]
	p.Normals = p.Normals[:last]
	p.Distances = p.Distances[:last]
}

// contactPoints maps the projection of the origin on the closest face back to the
// original shapes through barycentric coordinates.
func (p *Polytope) contactPoints() (mgl64.Vec3, mgl64.Vec3) {
	face := p.Faces[p.Closest]
	a := p.Vertices[face[0]]
	b := p.Vertices[face[1]]
	c := p.Vertices[face[2]]

	projection := p.Normals[p.Closest].Mul(p.Distances[p.Closest])
	u, v, w := barycentric(projection, a.Point, b.Point, c.Point)

	pointA := a.A.Mul(u).Add(b.A.Mul(v)).Add(c.A.Mul(w))
	pointB := a.B.Mul(u).Add(b.B.Mul(v)).Add(c.B.Mul(w))
	return pointA, pointB
}

// barycentric returns the coordinates of p relative to triangle abc.
// Degenerate triangles fall back to the centroid weights.
func barycentric(p, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-18 {
		return 1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w
}
