// Command contactStream runs a small scene and streams the bodies and the active
// contacts of every frame as JSON over a websocket, for an external debug viewer.
package main

import (
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/akmonengine/xpbd"
	"github.com/akmonengine/xpbd/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
)

type BodyData struct {
	Index    int        `json:"index"`
	Shape    string     `json:"shape"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Static   bool       `json:"static"`
}

type ContactData struct {
	PointA [3]float64 `json:"pointA"`
	PointB [3]float64 `json:"pointB"`
	Normal [3]float64 `json:"normal"`
	Depth  float64    `json:"depth"`
}

type FrameData struct {
	Type     string        `json:"type"`
	Frame    int           `json:"frame"`
	Time     float64       `json:"time"`
	Bodies   []BodyData    `json:"bodies"`
	Contacts []ContactData `json:"contacts"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

var clients = make(map[*websocket.Conn]*sync.Mutex)
var clientsMutex sync.RWMutex

func vec(v mgl64.Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}

func shapeName(shape actor.ShapeInterface) string {
	switch shape.(type) {
	case *actor.Box:
		return "box"
	case *actor.Sphere:
		return "sphere"
	case *actor.Plane:
		return "plane"
	default:
		return "hull"
	}
}

func setupScene() *xpbd.World {
	world := xpbd.NewWorld()
	world.AddBody(actor.NewRigidBody(
		actor.Transform{},
		&actor.Plane{Normal: mgl64.Vec3{0, 1, 0}, HalfSize: 20, Thickness: 1},
		actor.BodyTypeStatic,
		0,
	))

	for i := range 5 {
		transform := actor.Transform{
			Position: mgl64.Vec3{float64(i%2) * 0.3, 1 + float64(i)*1.2, 0},
			Rotation: mgl64.QuatRotate(float64(i)*0.2, mgl64.Vec3{0, 1, 0}),
		}
		world.AddBody(actor.NewRigidBody(transform, &actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, actor.BodyTypeDynamic, 1))
	}
	world.AddBody(actor.NewRigidBody(
		actor.Transform{Position: mgl64.Vec3{2, 4, 0}},
		&actor.Sphere{Radius: 0.5},
		actor.BodyTypeDynamic,
		1,
	))

	return world
}

func createFrameData(world *xpbd.World, frame int, dt float64) FrameData {
	data := FrameData{
		Type:     "frame",
		Frame:    frame,
		Time:     float64(frame) * dt,
		Bodies:   make([]BodyData, 0, len(world.Bodies)),
		Contacts: make([]ContactData, 0),
	}

	for i, body := range world.Bodies {
		q := body.Transform.Rotation
		data.Bodies = append(data.Bodies, BodyData{
			Index:    i,
			Shape:    shapeName(body.Shape),
			Position: vec(body.Transform.Position),
			Rotation: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
			Static:   body.IsStatic(),
		})
	}

	for contact := range world.DebugContacts() {
		data.Contacts = append(data.Contacts, ContactData{
			PointA: vec(contact.PointA),
			PointB: vec(contact.PointB),
			Normal: vec(contact.Normal),
			Depth:  contact.Depth,
		})
	}

	return data
}

func simulationLoop(world *xpbd.World, fps int) {
	dt := 1.0 / float64(fps)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	frame := 0
	for range ticker.C {
		world.Step(dt)
		frame++

		broadcastFrameData(createFrameData(world, frame, dt))
	}
}

func broadcastFrameData(data FrameData) {
	clientsMutex.RLock()
	clientsToRemove := []*websocket.Conn{}
	for client, mutex := range clients {
		mutex.Lock()
		err := client.WriteJSON(data)
		mutex.Unlock()
		if err != nil {
			log.Println("WebSocket write error:", err)
			client.Close()
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	clientsMutex.RUnlock()

	// Remove failed clients
	if len(clientsToRemove) > 0 {
		clientsMutex.Lock()
		for _, client := range clientsToRemove {
			delete(clients, client)
		}
		clientsMutex.Unlock()
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	clientsMutex.Lock()
	clients[conn] = &sync.Mutex{}
	clientsMutex.Unlock()
	defer func() {
		clientsMutex.Lock()
		delete(clients, conn)
		clientsMutex.Unlock()
	}()

	// Frames are only sent, reading detects the disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Println("WebSocket read error:", err)
			break
		}
	}
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	fps := flag.Int("fps", 60, "simulation frames per second")
	flag.Parse()

	world := setupScene()
	defer world.Close()

	go simulationLoop(world, max(1, *fps))

	http.HandleFunc("/ws", handleWebSocket)

	log.Printf("Physics: streaming contacts on ws://localhost%s/ws", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
