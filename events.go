package xpbd

import (
	"github.com/akmonengine/xpbd/actor"
	"github.com/akmonengine/xpbd/manifold"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events
type CollisionEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

// pairSet is a set of body pairs remembering insertion order, so events are emitted in
// detection order.
type pairSet struct {
	index map[manifold.Key]struct{}
	order []manifold.Key
}

func newPairSet() pairSet {
	return pairSet{
		index: make(map[manifold.Key]struct{}),
		order: make([]manifold.Key, 0, 64),
	}
}

func (s *pairSet) add(key manifold.Key) {
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = struct{}{}
	s.order = append(s.order, key)
}

func (s *pairSet) has(key manifold.Key) bool {
	_, ok := s.index[key]
	return ok
}

func (s *pairSet) remove(body *actor.RigidBody) {
	n := 0
	for _, key := range s.order {
		if key.Involves(body) {
			delete(s.index, key)
			continue
		}
		s.order[n] = key
		n++
	}
	s.order = s.order[:n]
}

func (s *pairSet) reset() {
	clear(s.index)
	s.order = s.order[:0]
}

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs pairSet
	currentActivePairs  pairSet
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: newPairSet(),
		currentActivePairs:  newPairSet(),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		*e = NewEvents()
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordPair is called during substeps for every touching or overlapping pair
func (e *Events) recordPair(bodyA, bodyB *actor.RigidBody) {
	if e.listeners == nil {
		return
	}
	e.currentActivePairs.add(manifold.MakeKey(bodyA, bodyB))
}

// forget drops the pairs of a removed body, so no exit event is sent for them
func (e *Events) forget(body *actor.RigidBody) {
	if e.listeners == nil {
		return
	}
	e.previousActivePairs.remove(body)
	e.currentActivePairs.remove(body)
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
// Should be called after all substeps
func (e *Events) processCollisionEvents() {
	// Detect Enter and Stay events
	for _, pair := range e.currentActivePairs.order {
		bodyA, bodyB := pair.Bodies()
		isTrigger := bodyA.IsTrigger || bodyB.IsTrigger

		if e.previousActivePairs.has(pair) {
			// Pair was active before and still is, Stay
			if isTrigger {
				e.buffer = append(e.buffer, TriggerStayEvent{BodyA: bodyA, BodyB: bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionStayEvent{BodyA: bodyA, BodyB: bodyB})
			}
		} else {
			// New pair, Enter
			if isTrigger {
				e.buffer = append(e.buffer, TriggerEnterEvent{BodyA: bodyA, BodyB: bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: bodyA, BodyB: bodyB})
			}
		}
	}

	// Detect Exit events
	for _, pair := range e.previousActivePairs.order {
		if e.currentActivePairs.has(pair) {
			continue
		}

		// Pair was active but is no longer, Exit
		bodyA, bodyB := pair.Bodies()
		if bodyA.IsTrigger || bodyB.IsTrigger {
			e.buffer = append(e.buffer, TriggerExitEvent{BodyA: bodyA, BodyB: bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: bodyA, BodyB: bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	e.currentActivePairs.reset()
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	if e.listeners == nil {
		return
	}

	e.processCollisionEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
