package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
	ShapeTypeConvexHull
)

const (
	DefaultSphereRings    = 8
	DefaultSphereSegments = 16

	DefaultPlaneHalfSize  = 50.0
	DefaultPlaneThickness = 1.0
)

// ShapeInterface is the interface that all collision shapes must implement
type ShapeInterface interface {
	Type() ShapeType
	// LocalPoints returns the convex point set of the shape in body space.
	// The returned slice must not be modified.
	LocalPoints() []mgl64.Vec3
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3

	// points were built from builtFor, rebuilt when HalfExtents changes
	points   []mgl64.Vec3
	builtFor mgl64.Vec3
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) LocalPoints() []mgl64.Vec3 {
	if b.points == nil || b.builtFor != b.HalfExtents {
		b.builtFor = b.HalfExtents
		hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
		b.points = []mgl64.Vec3{
			{-hx, -hy, -hz},
			{+hx, -hy, -hz},
			{-hx, +hy, -hz},
			{+hx, +hy, -hz},
			{-hx, -hy, +hz},
			{+hx, -hy, +hz},
			{-hx, +hy, +hz},
			{+hx, +hy, +hz},
		}
	}
	return b.points
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()

	return density * volume
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(b.HalfExtents, mass)
}

// Sphere is sampled as a UV sphere: Rings latitudes between the two poles and
// Segments longitudes per latitude.
type Sphere struct {
	Radius   float64
	Rings    int
	Segments int

	points   []mgl64.Vec3
	builtFor sphereSampling
}

type sphereSampling struct {
	radius   float64
	rings    int
	segments int
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

func (s *Sphere) LocalPoints() []mgl64.Vec3 {
	sampling := sphereSampling{radius: s.Radius, rings: s.Rings, segments: s.Segments}
	if s.points != nil && s.builtFor == sampling {
		return s.points
	}

	rings := s.Rings
	if rings <= 0 {
		rings = DefaultSphereRings
	}
	segments := s.Segments
	if segments <= 0 {
		segments = DefaultSphereSegments
	}

	points := make([]mgl64.Vec3, 0, rings*segments+2)
	points = append(points, mgl64.Vec3{0, s.Radius, 0}, mgl64.Vec3{0, -s.Radius, 0})
	for i := 1; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings+1)
		y := s.Radius * math.Cos(theta)
		ringRadius := s.Radius * math.Sin(theta)
		for j := 0; j < segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			points = append(points, mgl64.Vec3{ringRadius * math.Cos(phi), y, ringRadius * math.Sin(phi)})
		}
	}

	s.points = points
	s.builtFor = sampling
	return s.points
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	// Volume of sphere = (4/3) * π * r³
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)

	return density * volume
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

// Plane represents a ground plane as a finite slab
// The plane is defined by the equation: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
// and Distance is the signed distance from the origin along the normal.
// The slab extends HalfSize along both tangents and Thickness below the plane.
type Plane struct {
	Normal    mgl64.Vec3 // Plane normal (must be normalized)
	Distance  float64    // Plane constant (signed distance from origin)
	HalfSize  float64
	Thickness float64

	points   []mgl64.Vec3
	builtFor planeSlab
}

type planeSlab struct {
	normal    mgl64.Vec3
	distance  float64
	halfSize  float64
	thickness float64
}

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

func (p *Plane) LocalPoints() []mgl64.Vec3 {
	slab := planeSlab{normal: p.Normal, distance: p.Distance, halfSize: p.HalfSize, thickness: p.Thickness}
	if p.points != nil && p.builtFor == slab {
		return p.points
	}
	p.builtFor = slab

	size := p.HalfSize
	if size <= 0 {
		size = DefaultPlaneHalfSize
	}
	thickness := p.Thickness
	if thickness <= 0 {
		thickness = DefaultPlaneThickness
	}

	tangent1, tangent2 := TangentBasis(p.Normal)
	center := p.Normal.Mul(-p.Distance)
	below := p.Normal.Mul(-thickness)

	top := []mgl64.Vec3{
		center.Add(tangent1.Mul(-size)).Add(tangent2.Mul(-size)),
		center.Add(tangent1.Mul(-size)).Add(tangent2.Mul(size)),
		center.Add(tangent1.Mul(size)).Add(tangent2.Mul(size)),
		center.Add(tangent1.Mul(size)).Add(tangent2.Mul(-size)),
	}
	p.points = make([]mgl64.Vec3, 0, 8)
	p.points = append(p.points, top...)
	for _, corner := range top {
		p.points = append(p.points, corner.Add(below))
	}

	return p.points
}

// ComputeMass calculates mass data for the plane
// Planes are always static with infinite mass
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// ConvexHull is an arbitrary convex point cloud.
// Mass properties are approximated by the bounding box of the vertices.
type ConvexHull struct {
	Vertices []mgl64.Vec3
}

func (c *ConvexHull) Type() ShapeType { return ShapeTypeConvexHull }

func (c *ConvexHull) LocalPoints() []mgl64.Vec3 {
	return c.Vertices
}

func (c *ConvexHull) ComputeMass(density float64) float64 {
	halfExtents := c.halfExtents()
	return density * 8.0 * halfExtents.X() * halfExtents.Y() * halfExtents.Z()
}

func (c *ConvexHull) ComputeInertia(mass float64) mgl64.Mat3 {
	return boxInertia(c.halfExtents(), mass)
}

func (c *ConvexHull) halfExtents() mgl64.Vec3 {
	bounds := BoundPoints(c.Vertices)
	return bounds.Max.Sub(bounds.Min).Mul(0.5)
}

func boxInertia(halfExtents mgl64.Vec3, mass float64) mgl64.Mat3 {
	x := halfExtents.X() * 2
	y := halfExtents.Y() * 2
	z := halfExtents.Z() * 2

	// I = (m/12) * (dimension1² + dimension2²)
	factor := mass / 12.0
	ix := factor * (y*y + z*z)
	iy := factor * (x*x + z*z)
	iz := factor * (x*x + y*y)

	return mgl64.Mat3{
		ix, 0, 0,
		0, iy, 0,
		0, 0, iz,
	}
}
