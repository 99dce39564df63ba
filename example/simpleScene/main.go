package main

import (
	"fmt"
	"log"

	"github.com/akmonengine/xpbd"
	"github.com/akmonengine/xpbd/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupScene creates a ground slab and a tilted cube falling on it
func SetupScene() (*xpbd.World, *actor.RigidBody, *actor.RigidBody) {
	world := xpbd.NewWorld()

	// Ground slab, top face at y=0
	groundShape := &actor.Plane{
		Normal:    mgl64.Vec3{0, 1, 0},
		HalfSize:  20,
		Thickness: 1,
	}
	groundBody := actor.NewRigidBody(actor.Transform{}, groundShape, actor.BodyTypeStatic, 0.0)
	world.AddBody(groundBody)

	// Create cube with scale incorporated in half extents
	boxShape := &actor.Box{
		HalfExtents: mgl64.Vec3{1.5, 1.5, 1.5}, // scale [3.0, 3.0, 3.0]
	}

	cubeTransform := actor.Transform{
		Position: mgl64.Vec3{-5.0, 5.0, -5.0},
		Rotation: mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{0, 0, 1}),
	}

	cubeBody := actor.NewRigidBody(cubeTransform, boxShape, actor.BodyTypeDynamic, 1.0)
	cubeBody.Material.Restitution = 0.5

	world.AddBody(cubeBody)

	world.Events.Subscribe(xpbd.COLLISION_ENTER, func(event xpbd.Event) {
		log.Printf("Physics: collision enter %T", event)
	})
	world.Events.Subscribe(xpbd.COLLISION_EXIT, func(event xpbd.Event) {
		log.Printf("Physics: collision exit %T", event)
	})

	return world, groundBody, cubeBody
}

func main() {
	world, groundBody, cubeBody := SetupScene()
	defer world.Close()

	fmt.Printf("Initial setup:\n")
	fmt.Printf("  Ground: position %v\n", groundBody.Transform.Position)
	fmt.Printf("  Cube: position %v, rotation %v\n", cubeBody.Transform.Position, cubeBody.Transform.Rotation)
	fmt.Printf("  Gravity: %v, substeps: %d\n", world.Gravity, world.Substeps)
	fmt.Println()

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 200

	for step := 0; step < maxSteps; step++ {
		world.Step(dt)

		if step%10 != 0 {
			continue
		}

		fmt.Printf("--- STEP %d ---\n", step+1)
		fmt.Printf("  Position: %v\n", cubeBody.Transform.Position)
		fmt.Printf("  Velocity: %v\n", cubeBody.Velocity)
		fmt.Printf("  Angular Velocity: %v (len=%.3f)\n", cubeBody.AngularVelocity, cubeBody.AngularVelocity.Len())

		for contact := range world.DebugContacts() {
			fmt.Printf("  Contact: A=%v B=%v normal=%v depth=%.6f\n", contact.PointA, contact.PointB, contact.Normal, contact.Depth)
		}
	}

	fmt.Println("Done!")
}
