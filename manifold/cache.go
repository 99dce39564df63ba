// Package manifold keeps the contact points of every colliding body pair across substeps.
package manifold

import (
	"iter"
	"slices"
	"unsafe"

	"github.com/akmonengine/xpbd/actor"
	"github.com/akmonengine/xpbd/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultProximityTolerance = 0.3
	DefaultDriftTolerance     = 0.001
	DefaultMaxContacts        = 4
)

type Config struct {
	// Two contacts of a pair closer than this are considered the same point
	ProximityTolerance float64
	// Maximum tangential offset between the two anchors of a valid contact
	DriftTolerance float64
	MaxContacts    int
}

func DefaultConfig() Config {
	return Config{
		ProximityTolerance: DefaultProximityTolerance,
		DriftTolerance:     DefaultDriftTolerance,
		MaxContacts:        DefaultMaxContacts,
	}
}

// Key identifies an unordered body pair: MakeKey(a, b) == MakeKey(b, a).
type Key struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
}

// MakeKey creates a normalized pair key with consistent ordering
func MakeKey(bodyA, bodyB *actor.RigidBody) Key {
	ptrA := uintptr(unsafe.Pointer(bodyA))
	ptrB := uintptr(unsafe.Pointer(bodyB))

	if ptrB < ptrA {
		bodyA, bodyB = bodyB, bodyA
	}

	return Key{bodyA: bodyA, bodyB: bodyB}
}

// Bodies returns the two bodies of the pair in key order.
func (k Key) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return k.bodyA, k.bodyB
}

// Involves reports whether body is one of the pair.
func (k Key) Involves(body *actor.RigidBody) bool {
	return k.bodyA == body || k.bodyB == body
}

// Manifold holds the contacts of one body pair.
// Every contact is oriented the same way: from BodyA toward BodyB, the bodies of the
// first contact inserted for the pair.
type Manifold struct {
	Key      Key
	BodyA    *actor.RigidBody
	BodyB    *actor.RigidBody
	Contacts []*constraint.Contact
}

// Cache is the persistent manifold cache.
// Manifolds are visited in insertion order, so solving them is deterministic.
type Cache struct {
	config Config

	manifolds map[Key]*Manifold
	order     []*Manifold

	// Contacts dropped by ClearAll or Update, kept for one pass so a contact found again
	// at the same place gets its accumulated multipliers back.
	reserve map[Key][]*constraint.Contact

	// Detection pass, advanced by ClearAll and Update. Contacts stamped with an older
	// pass are the ones carried over, the only ones Add may overwrite.
	pass uint64
}

// NewCache returns an empty cache. Zero fields of config are replaced by the defaults.
func NewCache(config Config) *Cache {
	defaults := DefaultConfig()
	if config.ProximityTolerance <= 0 {
		config.ProximityTolerance = defaults.ProximityTolerance
	}
	if config.DriftTolerance <= 0 {
		config.DriftTolerance = defaults.DriftTolerance
	}
	if config.MaxContacts <= 0 {
		config.MaxContacts = defaults.MaxContacts
	}

	return &Cache{
		config:    config,
		manifolds: make(map[Key]*Manifold),
		order:     make([]*Manifold, 0, 64),
		reserve:   make(map[Key][]*constraint.Contact),
	}
}

func (c *Cache) Config() Config {
	return c.config
}

// Len returns the number of body pairs holding at least one contact.
func (c *Cache) Len() int {
	return len(c.order)
}

// ContactCount returns the number of cached contacts over all pairs.
func (c *Cache) ContactCount() int {
	n := 0
	for _, m := range c.order {
		n += len(m.Contacts)
	}
	return n
}

// Manifold returns the manifold of the pair, in either order, or nil.
func (c *Cache) Manifold(a, b *actor.RigidBody) *Manifold {
	return c.manifolds[MakeKey(a, b)]
}

// Manifolds iterates the manifolds in insertion order.
func (c *Cache) Manifolds() iter.Seq[*Manifold] {
	return func(yield func(*Manifold) bool) {
		for _, m := range c.order {
			if !yield(m) {
				return
			}
		}
	}
}

// All iterates every cached contact, pair by pair in insertion order.
func (c *Cache) All() iter.Seq[*constraint.Contact] {
	return func(yield func(*constraint.Contact) bool) {
		for _, m := range c.order {
			for _, contact := range m.Contacts {
				if !yield(contact) {
					return
				}
			}
		}
	}
}

// Validate refreshes the lever arms of contact and reports whether it is still usable:
// the anchors must not be separated along the normal, nor drifted apart tangentially by
// more than the drift tolerance.
func (c *Cache) Validate(contact *constraint.Contact) bool {
	contact.Refresh()

	if -contact.Depth() > 0 {
		return false
	}

	return contact.TangentialDrift().Len() <= c.config.DriftTolerance
}

// Update evicts the contacts failing Validate into the reserve, which is reset first.
// Pairs left without contact are removed. The contacts kept are carried over to the
// next pass.
func (c *Cache) Update() {
	c.pass++
	clear(c.reserve)

	n := 0
	for _, m := range c.order {
		kept := m.Contacts[:0]
		for _, contact := range m.Contacts {
			if c.Validate(contact) {
				kept = append(kept, contact)
			} else {
				c.reserve[m.Key] = append(c.reserve[m.Key], contact)
			}
		}
		clear(m.Contacts[len(kept):])
		m.Contacts = kept

		if len(m.Contacts) == 0 {
			delete(c.manifolds, m.Key)
			continue
		}
		c.order[n] = m
		n++
	}
	clear(c.order[n:])
	c.order = c.order[:n]
}

// Add inserts contact in the manifold of its pair.
//
// A contact carried over from the previous pass and closer than the proximity tolerance
// is overwritten in place and keeps its multipliers. Otherwise a reserved contact at the
// same place gives its multipliers to the new one, which is appended while the manifold
// has room. A full manifold replaces the contact whose removal leaves the largest area
// with the new point. Contacts added during the same pass never merge.
func (c *Cache) Add(contact *constraint.Contact) {
	key := MakeKey(contact.BodyA, contact.BodyB)

	m, ok := c.manifolds[key]
	if !ok {
		m = &Manifold{
			Key:      key,
			BodyA:    contact.BodyA,
			BodyB:    contact.BodyB,
			Contacts: make([]*constraint.Contact, 0, c.config.MaxContacts),
		}
		c.manifolds[key] = m
		c.order = append(c.order, m)
	}

	if contact.BodyA != m.BodyA {
		contact.Swap()
	}
	contact.Refresh()
	contact.Pass = c.pass
	point := contact.PointA()

	if i := c.nearest(m.Contacts, point, true); i >= 0 {
		cached := m.Contacts[i]
		c.inherit(contact, cached)
		*cached = *contact
		return
	}

	if reserved := c.reserve[key]; len(reserved) > 0 {
		if i := c.nearest(reserved, point, false); i >= 0 {
			c.inherit(contact, reserved[i])
			c.reserve[key] = slices.Delete(reserved, i, i+1)
		}
	}

	if len(m.Contacts) < c.config.MaxContacts {
		m.Contacts = append(m.Contacts, contact)
		return
	}

	m.Contacts[replacementIndex(m.Contacts, point)] = contact
}

// inherit hands the multipliers of previous to contact. While the anchors of previous
// are still within the drift tolerance of the new points, contact takes them as well, so
// static friction keeps pulling the bodies back to where they first touched.
func (c *Cache) inherit(contact, previous *constraint.Contact) {
	contact.LambdaN, contact.LambdaT = previous.LambdaN, previous.LambdaT

	localA, localB := previous.LocalA, previous.LocalB
	if previous.BodyA != contact.BodyA {
		localA, localB = localB, localA
	}
	anchorA := contact.BodyA.Transform.ToWorld(localA)
	anchorB := contact.BodyB.Transform.ToWorld(localB)

	tolerance := c.config.DriftTolerance
	if anchorA.Sub(contact.PointA()).Len() > tolerance || anchorB.Sub(contact.PointB()).Len() > tolerance {
		return
	}

	contact.LocalA, contact.LocalB = localA, localB
	contact.Refresh()
}

// nearest returns the index of the contact closest to point within the proximity
// tolerance, or -1. With carriedOnly, contacts written during the current pass are
// skipped.
func (c *Cache) nearest(contacts []*constraint.Contact, point mgl64.Vec3, carriedOnly bool) int {
	best := -1
	bestDistance := c.config.ProximityTolerance * c.config.ProximityTolerance
	for i, cached := range contacts {
		if carriedOnly && cached.Pass == c.pass {
			continue
		}
		cached.Refresh()
		if d := cached.PointA().Sub(point).LenSqr(); d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	return best
}

// replacementIndex picks the contact to drop: the one whose removal leaves the other
// points and the new one spanning the largest area. Ties keep the lowest index.
func replacementIndex(contacts []*constraint.Contact, point mgl64.Vec3) int {
	best := 0
	bestArea := -1.0
	var quad [4]mgl64.Vec3

	for i := range contacts {
		k := 0
		for j, contact := range contacts {
			if j != i {
				quad[k] = contact.PointA()
				k++
			}
		}
		quad[3] = point

		if area := quadArea(quad); area > bestArea {
			best = i
			bestArea = area
		}
	}

	return best
}

// quadArea approximates the area spanned by four points, whatever their order, as the
// largest of the diagonal cross products over the three ways of pairing them.
func quadArea(p [4]mgl64.Vec3) float64 {
	a := p[0].Sub(p[1]).Cross(p[2].Sub(p[3])).LenSqr()
	b := p[0].Sub(p[2]).Cross(p[1].Sub(p[3])).LenSqr()
	c := p[0].Sub(p[3]).Cross(p[1].Sub(p[2])).LenSqr()

	return max(a, b, c)
}

// Remove drops every manifold and reserved contact involving body.
func (c *Cache) Remove(body *actor.RigidBody) {
	n := 0
	for _, m := range c.order {
		if m.Key.Involves(body) {
			delete(c.manifolds, m.Key)
			continue
		}
		c.order[n] = m
		n++
	}
	clear(c.order[n:])
	c.order = c.order[:n]

	for key := range c.reserve {
		if key.Involves(body) {
			delete(c.reserve, key)
		}
	}
}

// ClearAll empties every manifold. The cleared contacts become the reserve.
func (c *Cache) ClearAll() {
	c.pass++
	clear(c.reserve)
	for _, m := range c.order {
		c.reserve[m.Key] = m.Contacts
	}

	clear(c.manifolds)
	clear(c.order)
	c.order = c.order[:0]
}

// Destroy releases every manifold and the reserve. The cache must not be used afterwards.
func (c *Cache) Destroy() {
	c.manifolds = nil
	c.order = nil
	c.reserve = nil
}
