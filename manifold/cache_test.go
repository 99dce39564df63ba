package manifold

import (
	"testing"

	"github.com/akmonengine/xpbd/actor"
	"github.com/akmonengine/xpbd/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

func newGround() *actor.RigidBody {
	return actor.NewRigidBody(
		actor.Transform{Position: mgl64.Vec3{0, -0.5, 0}},
		&actor.Box{HalfExtents: mgl64.Vec3{10, 0.5, 10}},
		actor.BodyTypeStatic,
		0,
	)
}

func newBox(position mgl64.Vec3) *actor.RigidBody {
	return actor.NewRigidBody(
		actor.Transform{Position: position},
		&actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
		actor.BodyTypeDynamic,
		1,
	)
}

// contactAt creates a ground/box contact at (x, z), the box sinking 0.1 into the ground.
func contactAt(ground, box *actor.RigidBody, x, z float64) *constraint.Contact {
	return constraint.NewContact(ground, box, mgl64.Vec3{x, 0, z}, mgl64.Vec3{x, -0.1, z}, mgl64.Vec3{0, 1, 0})
}

func TestMakeKey(t *testing.T) {
	a := newBox(mgl64.Vec3{0, 0.4, 0})
	b := newBox(mgl64.Vec3{2, 0.4, 0})

	if MakeKey(a, b) != MakeKey(b, a) {
		t.Error("key should not depend on the order of the bodies")
	}
	if MakeKey(a, b) == MakeKey(a, a) {
		t.Error("different pairs should have different keys")
	}
}

func TestNewCache_Defaults(t *testing.T) {
	cache := NewCache(Config{})

	if cache.Config() != DefaultConfig() {
		t.Errorf("Config() = %+v, want %+v", cache.Config(), DefaultConfig())
	}
	if cache.Config().ProximityTolerance != 0.3 || cache.Config().DriftTolerance != 0.001 || cache.Config().MaxContacts != 4 {
		t.Errorf("unexpected defaults %+v", cache.Config())
	}

	custom := NewCache(Config{ProximityTolerance: 0.1, MaxContacts: 2})
	if custom.Config().ProximityTolerance != 0.1 || custom.Config().MaxContacts != 2 || custom.Config().DriftTolerance != 0.001 {
		t.Errorf("unexpected config %+v", custom.Config())
	}
}

func TestCache_Capacity(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	points := [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {0, 0}, {0.5, -0.2}, {-0.4, 0.6}, {2, 2}}
	for i, p := range points {
		cache.Add(contactAt(ground, box, p[0], p[1]))

		m := cache.Manifold(ground, box)
		if m == nil {
			t.Fatal("manifold should exist after Add")
		}
		if len(m.Contacts) > 4 {
			t.Fatalf("after %d additions the manifold holds %d contacts", i+1, len(m.Contacts))
		}
	}

	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
	if cache.ContactCount() != 4 {
		t.Errorf("ContactCount() = %d, want 4", cache.ContactCount())
	}
}

func TestCache_ReplaceKeepsLargestArea(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	cache.Add(contactAt(ground, box, -1, -1))
	cache.Add(contactAt(ground, box, 1, -1))
	cache.Add(contactAt(ground, box, 1, 1))
	cache.Add(contactAt(ground, box, -0.5, -0.5))
	cache.Add(contactAt(ground, box, -1, 1))

	m := cache.Manifold(ground, box)
	expected := []mgl64.Vec3{{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}}
	if len(m.Contacts) != len(expected) {
		t.Fatalf("expected %d contacts, got %d", len(expected), len(m.Contacts))
	}
	for i, contact := range m.Contacts {
		if contact.PointA().Sub(expected[i]).Len() > 1e-9 {
			t.Errorf("contact %d at %v, want %v", i, contact.PointA(), expected[i])
		}
	}
}

func TestCache_ProximityOverwrite(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	cache.Add(contactAt(ground, box, 0.5, 0.5))
	cached := cache.Manifold(ground, box).Contacts[0]
	cached.LambdaN = -0.2
	cached.LambdaT = 0.05

	// Next pass: the contact is carried over, the new point replaces it
	cache.Update()
	cache.Add(contactAt(ground, box, 0.55, 0.5))

	m := cache.Manifold(ground, box)
	if len(m.Contacts) != 1 {
		t.Fatalf("a close contact should overwrite the cached one, got %d contacts", len(m.Contacts))
	}
	if m.Contacts[0] != cached {
		t.Error("the cached contact should be updated in place")
	}
	if cached.LambdaN != -0.2 || cached.LambdaT != 0.05 {
		t.Errorf("multipliers lost: %v %v", cached.LambdaN, cached.LambdaT)
	}
	if cached.PointA().Sub(mgl64.Vec3{0.55, 0, 0.5}).Len() > 1e-9 {
		t.Errorf("anchor should move to the new point, got %v", cached.PointA())
	}
}

func TestCache_SamePassKeepsDistinctContacts(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	// Corners of a small box, closer to each other than the proximity tolerance
	corners := [][2]float64{{-0.1, -0.1}, {0.1, -0.1}, {0.1, 0.1}, {-0.1, 0.1}}
	for _, p := range corners {
		cache.Add(contactAt(ground, box, p[0], p[1]))
	}

	m := cache.Manifold(ground, box)
	if len(m.Contacts) != 4 {
		t.Fatalf("contacts of one pass should not merge, got %d", len(m.Contacts))
	}
	for i, contact := range m.Contacts {
		contact.LambdaN = -float64(i + 1)
	}

	for pass := range 3 {
		cache.ClearAll()
		for _, p := range corners {
			cache.Add(contactAt(ground, box, p[0], p[1]))
		}

		m = cache.Manifold(ground, box)
		if len(m.Contacts) != 4 {
			t.Fatalf("pass %d: expected 4 contacts, got %d", pass, len(m.Contacts))
		}
		for i, contact := range m.Contacts {
			if contact.LambdaN != -float64(i+1) {
				t.Errorf("pass %d: contact %d LambdaN = %v, want %v", pass, i, contact.LambdaN, -float64(i+1))
			}
		}
	}

	// Carried over by Update, every corner still keeps its own contact
	cache.Update()
	for _, p := range corners {
		cache.Add(contactAt(ground, box, p[0], p[1]))
	}
	if count := cache.ContactCount(); count != 4 {
		t.Errorf("after Update, ContactCount() = %d, want 4", count)
	}
}

func TestCache_AnchorsCarriedWhileAligned(t *testing.T) {
	tests := []struct {
		name          string
		slide         float64
		expectedDrift mgl64.Vec3
	}{
		{
			name:          "still aligned",
			slide:         0.0005,
			expectedDrift: mgl64.Vec3{-0.0005, 0, 0},
		},
		{
			name:          "slid beyond the drift tolerance",
			slide:         0.01,
			expectedDrift: mgl64.Vec3{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ground := newGround()
			box := newBox(mgl64.Vec3{0, 0.4, 0})
			cache := NewCache(DefaultConfig())

			cache.Add(contactAt(ground, box, 0.5, 0.5))
			cache.Manifold(ground, box).Contacts[0].LambdaT = 0.02
			cache.ClearAll()

			box.Transform.Position = box.Transform.Position.Add(mgl64.Vec3{tt.slide, 0, 0})
			contact := contactAt(ground, box, 0.5+tt.slide, 0.5)
			cache.Add(contact)

			if contact.LambdaT != 0.02 {
				t.Errorf("LambdaT = %v, want 0.02", contact.LambdaT)
			}
			if drift := contact.TangentialDrift(); drift.Sub(tt.expectedDrift).Len() > 1e-12 {
				t.Errorf("TangentialDrift() = %v, want %v", drift, tt.expectedDrift)
			}
			if depth := contact.Depth(); depth < 0.1-1e-12 || depth > 0.1+1e-12 {
				t.Errorf("Depth() = %v, want 0.1", depth)
			}
		})
	}
}

func TestCache_ReserveAfterClearAll(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	cache.Add(contactAt(ground, box, 0.5, 0.5))
	cache.Manifold(ground, box).Contacts[0].LambdaN = -0.2

	cache.ClearAll()

	if cache.Len() != 0 || cache.ContactCount() != 0 {
		t.Fatalf("ClearAll should empty the cache, got %d pairs", cache.Len())
	}
	if cache.Manifold(ground, box) != nil {
		t.Error("manifold should be gone after ClearAll")
	}

	same := contactAt(ground, box, 0.5, 0.45)
	cache.Add(same)
	if same.LambdaN != -0.2 {
		t.Errorf("contact found again should get its multiplier back, got %v", same.LambdaN)
	}

	far := contactAt(ground, box, -0.5, -0.5)
	cache.Add(far)
	if far.LambdaN != 0 {
		t.Errorf("new contact should start from zero, got %v", far.LambdaN)
	}

	// A reserved contact is handed over once
	again := contactAt(ground, box, 0.5, 0.55)
	cache.Add(again)
	if again.LambdaN != 0 {
		t.Errorf("reserved multiplier given twice, got %v", again.LambdaN)
	}
}

func TestCache_SymmetricPair(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	cache.Add(contactAt(ground, box, -0.5, -0.5))
	swapped := constraint.NewContact(box, ground, mgl64.Vec3{0.5, -0.1, 0.5}, mgl64.Vec3{0.5, 0, 0.5}, mgl64.Vec3{0, -1, 0})
	cache.Add(swapped)

	if cache.Len() != 1 {
		t.Fatalf("both orders should share one manifold, got %d", cache.Len())
	}
	if cache.Manifold(box, ground) != cache.Manifold(ground, box) {
		t.Error("lookup should not depend on the order of the bodies")
	}

	m := cache.Manifold(ground, box)
	if len(m.Contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(m.Contacts))
	}
	for i, contact := range m.Contacts {
		if contact.BodyA != ground || contact.BodyB != box {
			t.Errorf("contact %d should be oriented from ground to box", i)
		}
		if contact.Normal != (mgl64.Vec3{0, 1, 0}) {
			t.Errorf("contact %d normal = %v, want {0,1,0}", i, contact.Normal)
		}
		if depth := contact.Depth(); depth < 0.1-1e-9 || depth > 0.1+1e-9 {
			t.Errorf("contact %d depth = %v, want 0.1", i, depth)
		}
	}
}

func TestCache_Validate(t *testing.T) {
	tests := []struct {
		name     string
		move     mgl64.Vec3
		expected bool
	}{
		{
			name:     "still penetrating",
			move:     mgl64.Vec3{0, 0.05, 0},
			expected: true,
		},
		{
			name:     "separated",
			move:     mgl64.Vec3{0, 0.2, 0},
			expected: false,
		},
		{
			name:     "drifted sideways",
			move:     mgl64.Vec3{0.01, 0, 0},
			expected: false,
		},
		{
			name:     "drift below tolerance",
			move:     mgl64.Vec3{0.0005, 0, 0},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ground := newGround()
			box := newBox(mgl64.Vec3{0, 0.4, 0})
			cache := NewCache(DefaultConfig())
			contact := contactAt(ground, box, 0.5, 0.5)

			box.Transform.Position = box.Transform.Position.Add(tt.move)

			if result := cache.Validate(contact); result != tt.expected {
				t.Errorf("Validate() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCache_UpdateEvictsInvalidContacts(t *testing.T) {
	ground := newGround()
	staying := newBox(mgl64.Vec3{0, 0.4, 0})
	leaving := newBox(mgl64.Vec3{3, 0.4, 0})
	cache := NewCache(DefaultConfig())

	cache.Add(contactAt(ground, staying, 0.5, 0.5))
	cache.Add(contactAt(ground, leaving, 3.5, 0.5))
	cache.Manifold(ground, leaving).Contacts[0].LambdaN = -0.3

	leaving.Transform.Position = mgl64.Vec3{3, 1, 0}
	cache.Update()

	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cache.Len())
	}
	if cache.Manifold(ground, leaving) != nil {
		t.Error("separated pair should be evicted")
	}
	if cache.Manifold(ground, staying) == nil {
		t.Error("resting pair should be kept")
	}

	// The evicted contact waits in the reserve
	leaving.Transform.Position = mgl64.Vec3{3, 0.4, 0}
	back := contactAt(ground, leaving, 3.5, 0.5)
	cache.Add(back)
	if back.LambdaN != -0.3 {
		t.Errorf("reserved multiplier = %v, want -0.3", back.LambdaN)
	}
}

func TestCache_InsertionOrder(t *testing.T) {
	ground := newGround()
	boxes := []*actor.RigidBody{
		newBox(mgl64.Vec3{4, 0.4, 0}),
		newBox(mgl64.Vec3{-4, 0.4, 0}),
		newBox(mgl64.Vec3{0, 0.4, 4}),
	}
	cache := NewCache(DefaultConfig())

	for _, box := range boxes {
		p := box.Transform.Position
		cache.Add(contactAt(ground, box, p.X()-0.5, p.Z()))
		cache.Add(contactAt(ground, box, p.X()+0.5, p.Z()))
	}

	i := 0
	for contact := range cache.All() {
		if contact.BodyB != boxes[i/2] {
			t.Errorf("contact %d belongs to the wrong pair", i)
		}
		i++
	}
	if i != 6 {
		t.Errorf("All() yielded %d contacts, want 6", i)
	}

	j := 0
	for m := range cache.Manifolds() {
		if m.BodyB != boxes[j] {
			t.Errorf("manifold %d out of insertion order", j)
		}
		j++
	}
}

func TestCache_Destroy(t *testing.T) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())
	cache.Add(contactAt(ground, box, 0, 0))

	cache.Destroy()

	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Destroy, want 0", cache.Len())
	}
	for range cache.All() {
		t.Error("destroyed cache should not yield contacts")
	}
}

func BenchmarkCache_Add(b *testing.B) {
	ground := newGround()
	box := newBox(mgl64.Vec3{0, 0.4, 0})
	cache := NewCache(DefaultConfig())

	for i := 0; b.Loop(); i++ {
		if i%16 == 0 {
			cache.ClearAll()
		}
		x := float64(i%8) * 0.4
		cache.Add(contactAt(ground, box, x-1.4, float64(i%3)*0.5))
	}
}

func TestCache_Remove(t *testing.T) {
	ground := newGround()
	removed := newBox(mgl64.Vec3{0, 0.4, 0})
	other := newBox(mgl64.Vec3{3, 0.4, 0})
	cache := NewCache(DefaultConfig())

	cache.Add(contactAt(ground, removed, 0, 0))
	cache.Add(contactAt(ground, other, 3, 0))

	cache.Remove(removed)

	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cache.Len())
	}
	if cache.Manifold(ground, removed) != nil {
		t.Error("pairs of the removed body should be dropped")
	}
	for contact := range cache.All() {
		if contact.BodyB == removed {
			t.Error("All() still yields a contact of the removed body")
		}
	}
}
