package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newBox(position mgl64.Vec3, bodyType BodyType) *RigidBody {
	return NewRigidBody(
		Transform{Position: position, Rotation: mgl64.QuatIdent()},
		&Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
		bodyType,
		1.0,
	)
}

func TestNewRigidBody(t *testing.T) {
	t.Run("dynamic", func(t *testing.T) {
		rb := newBox(mgl64.Vec3{0, 1, 0}, BodyTypeDynamic)

		if rb.Material.GetMass() != 1 {
			t.Errorf("mass = %v, want 1", rb.Material.GetMass())
		}
		if rb.InverseMass() != 1 {
			t.Errorf("inverse mass = %v, want 1", rb.InverseMass())
		}
		if len(rb.BoundingShape) != 8 {
			t.Fatalf("bounding shape has %d points, want 8", len(rb.BoundingShape))
		}
		if rb.AABB.Min != (mgl64.Vec3{-0.5, 0.5, -0.5}) || rb.AABB.Max != (mgl64.Vec3{0.5, 1.5, 0.5}) {
			t.Errorf("unexpected AABB %v", rb.AABB)
		}
		if rb.Material.StaticFriction != DefaultStaticFriction {
			t.Errorf("static friction = %v, want default", rb.Material.StaticFriction)
		}
	})

	t.Run("static", func(t *testing.T) {
		rb := newBox(mgl64.Vec3{}, BodyTypeStatic)

		if !rb.IsStatic() {
			t.Error("body should be static")
		}
		if !math.IsInf(rb.Material.GetMass(), 1) {
			t.Errorf("static mass = %v, want +Inf", rb.Material.GetMass())
		}
		if rb.InverseMass() != 0 {
			t.Errorf("static inverse mass = %v, want 0", rb.InverseMass())
		}
		if rb.GetInverseInertiaWorld() != (mgl64.Mat3{}) {
			t.Error("static inverse inertia should be zero")
		}
	})

	t.Run("zero rotation defaults to identity", func(t *testing.T) {
		rb := NewRigidBody(Transform{}, &Sphere{Radius: 1}, BodyTypeDynamic, 1)
		if rb.Transform.Rotation != mgl64.QuatIdent() {
			t.Errorf("rotation = %v, want identity", rb.Transform.Rotation)
		}
	})
}

func TestIntegrate_Gravity(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)
	rb.Integrate(0.1, mgl64.Vec3{0, -10, 0})

	if math.Abs(rb.Velocity.Y()+1) > 1e-12 {
		t.Errorf("velocity = %v, want {0,-1,0}", rb.Velocity)
	}
	if math.Abs(rb.Transform.Position.Y()+0.1) > 1e-12 {
		t.Errorf("position = %v, want {0,-0.1,0}", rb.Transform.Position)
	}
	if rb.PreviousTransform.Position != (mgl64.Vec3{}) {
		t.Errorf("previous position = %v, want origin", rb.PreviousTransform.Position)
	}
	if math.Abs(rb.AABB.Min.Y()+0.6) > 1e-12 {
		t.Errorf("bounding shape not refreshed: %v", rb.AABB)
	}
}

func TestIntegrate_Static(t *testing.T) {
	rb := newBox(mgl64.Vec3{1, 2, 3}, BodyTypeStatic)
	rb.Velocity = mgl64.Vec3{1, 0, 0}
	rb.Integrate(0.1, mgl64.Vec3{0, -10, 0})

	if rb.Transform.Position != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("static body moved to %v", rb.Transform.Position)
	}
}

func TestIntegrate_ForceAtOffsetCreatesTorque(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)
	rb.AddForce(mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{0, 1, 0})

	rb.Integrate(0.1, mgl64.Vec3{})

	if rb.Velocity.Y() <= 0 {
		t.Errorf("expected upward velocity, got %v", rb.Velocity)
	}
	if rb.AngularVelocity.Z() <= 0 {
		t.Errorf("expected positive spin around Z, got %v", rb.AngularVelocity)
	}

	rb.ClearForces()
	if len(rb.Forces) != 0 {
		t.Error("ClearForces should drop every force")
	}

	static := newBox(mgl64.Vec3{}, BodyTypeStatic)
	static.AddCentralForce(mgl64.Vec3{0, 1, 0})
	if len(static.Forces) != 0 {
		t.Error("static bodies should ignore forces")
	}
}

func TestIntegrate_AngularVelocity(t *testing.T) {
	rb := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeDynamic, 1)
	rb.AngularVelocity = mgl64.Vec3{0, 0, 1}

	for range 100 {
		rb.Integrate(0.01, mgl64.Vec3{})
	}

	rotated := rb.Transform.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
	want := mgl64.Vec3{math.Cos(1), math.Sin(1), 0}
	if rotated.Sub(want).Len() > 1e-2 {
		t.Errorf("rotated X axis = %v, want %v", rotated, want)
	}
	if math.Abs(rb.Transform.Rotation.Len()-1) > 1e-12 {
		t.Errorf("rotation is not normalized: %v", rb.Transform.Rotation.Len())
	}
}

func TestUpdate_DerivesVelocities(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)
	rb.Velocity = mgl64.Vec3{1, 0, 0}
	rb.AngularVelocity = mgl64.Vec3{0, 2, 0}
	h := 0.01

	rb.Integrate(h, mgl64.Vec3{})
	rb.Update(h)

	if rb.Velocity.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-9 {
		t.Errorf("derived velocity = %v, want {1,0,0}", rb.Velocity)
	}
	if rb.AngularVelocity.Sub(mgl64.Vec3{0, 2, 0}).Len() > 1e-3 {
		t.Errorf("derived angular velocity = %v, want {0,2,0}", rb.AngularVelocity)
	}
	if rb.PresolveVelocity != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("presolve velocity = %v, want the predicted velocity", rb.PresolveVelocity)
	}
}

func TestUpdate_ShortestRotationPath(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)
	h := 0.01
	// A tiny rotation stored with a negative scalar part
	small := mgl64.QuatRotate(0.01, mgl64.Vec3{0, 0, 1})
	rb.PreviousTransform.Rotation = mgl64.QuatIdent()
	rb.Transform.Rotation = small.Scale(-1)

	rb.Update(h)

	if rb.AngularVelocity.Z() <= 0 || math.Abs(rb.AngularVelocity.Z()-1) > 1e-3 {
		t.Errorf("angular velocity = %v, want ~{0,0,1}", rb.AngularVelocity)
	}
}

func TestGeneralizedInverseMass(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)
	n := mgl64.Vec3{0, 1, 0}

	if w := rb.GeneralizedInverseMass(mgl64.Vec3{0, -0.5, 0}, n); math.Abs(w-rb.InverseMass()) > 1e-12 {
		t.Errorf("lever arm parallel to n: w = %v, want %v", w, rb.InverseMass())
	}
	if w := rb.GeneralizedInverseMass(mgl64.Vec3{0.5, -0.5, 0}, n); w <= rb.InverseMass() {
		t.Errorf("lever arm off axis should add rotational inverse mass, got %v", w)
	}

	static := newBox(mgl64.Vec3{}, BodyTypeStatic)
	if w := static.GeneralizedInverseMass(mgl64.Vec3{1, 0, 0}, n); w != 0 {
		t.Errorf("static w = %v, want 0", w)
	}
}

func TestApplyPositionCorrection(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)

	rb.ApplyPositionCorrection(mgl64.Vec3{0, 0.1, 0}, mgl64.Vec3{0, -0.5, 0})
	if rb.Transform.Position.Sub(mgl64.Vec3{0, 0.1, 0}).Len() > 1e-12 {
		t.Errorf("position = %v, want {0,0.1,0}", rb.Transform.Position)
	}
	if rb.Transform.Rotation != mgl64.QuatIdent() {
		t.Errorf("central correction should not rotate, got %v", rb.Transform.Rotation)
	}

	rb.ApplyPositionCorrection(mgl64.Vec3{0, 0.1, 0}, mgl64.Vec3{0.5, 0, 0})
	if rb.Transform.Rotation.V.Z() <= 0 {
		t.Errorf("off-center correction should rotate around +Z, got %v", rb.Transform.Rotation)
	}

	static := newBox(mgl64.Vec3{}, BodyTypeStatic)
	static.ApplyPositionCorrection(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 0, 0})
	static.ApplyVelocityImpulse(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 0, 0})
	if static.Transform.Position != (mgl64.Vec3{}) || static.Velocity != (mgl64.Vec3{}) {
		t.Error("static bodies must not react to corrections")
	}
}

func TestVelocityAt(t *testing.T) {
	rb := newBox(mgl64.Vec3{}, BodyTypeDynamic)
	rb.Velocity = mgl64.Vec3{1, 0, 0}
	rb.AngularVelocity = mgl64.Vec3{0, 0, 1}

	got := rb.VelocityAt(mgl64.Vec3{1, 0, 0})
	if got.Sub(mgl64.Vec3{1, 1, 0}).Len() > 1e-12 {
		t.Errorf("VelocityAt = %v, want {1,1,0}", got)
	}
}
