package websocket

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	domainEvents "github.com/AzielCF/az-blast/domains/events"
	"github.com/AzielCF/az-blast/infrastructure/valkey"
)

type client struct{}

// envelope is the wire form of a broadcast event. SenderID tags the server
// replica that originated it so the Valkey fan-out never loops.
type envelope struct {
	Type     string `json:"type"`
	Data     any    `json:"data"`
	SenderID string `json:"sender_id,omitempty"`
}

const wsChannel = "ws_broadcast"

var (
	Clients    = make(map[*websocket.Conn]client)
	Register   = make(chan *websocket.Conn)
	Broadcast  = make(chan envelope, 256)
	Unregister = make(chan *websocket.Conn)

	vkClient *valkey.Client
	localID  string
)

// SetValkeyClient enables the distributed broadcast fan-out across replicas.
func SetValkeyClient(client *valkey.Client, serverID string) {
	vkClient = client
	localID = serverID
}

// Broadcaster adapts the hub to the event emitter the dispatcher expects.
// Emit never blocks: if the hub is saturated the event is dropped, the
// database remains the source of truth for campaign state.
type Broadcaster struct{}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (Broadcaster) Emit(event domainEvents.Event) {
	select {
	case Broadcast <- envelope{Type: event.Type, Data: event.Data}:
	default:
		logrus.WithField("event", event.Type).Warn("[WS] Broadcast channel full, dropping event")
	}
}

func handleRegister(conn *websocket.Conn) {
	Clients[conn] = client{}
	logrus.Debug("[WS] Connection registered")
}

func handleUnregister(conn *websocket.Conn) {
	delete(Clients, conn)
	logrus.Debug("[WS] Connection unregistered")
}

func broadcastToLocal(message envelope) {
	marshalMessage, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range Clients {
		if err := conn.WriteMessage(websocket.TextMessage, marshalMessage); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
		}
	}
}

func publishToValkey(message envelope) {
	if vkClient == nil {
		return
	}

	message.SenderID = localID
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	if err := vkClient.Publish(context.Background(), wsChannel, data); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

// handleReplicaMessage takes a raw pub/sub payload from another replica and
// hands it to the hub; only RunHub touches the client set.
func handleReplicaMessage(payload string) {
	var message envelope
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		return
	}
	// Avoid loops: ignore messages sent by this same instance.
	if message.SenderID == localID {
		return
	}
	select {
	case Broadcast <- message:
	default:
		logrus.WithField("event", message.Type).Warn("[WS] Broadcast channel full, dropping replica event")
	}
}

func startValkeySubscriber() {
	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		if err := vkClient.Subscribe(context.Background(), wsChannel, handleReplicaMessage); err != nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(Clients, conn)
}

// RunHub owns the client set; all register/unregister/broadcast traffic is
// serialized through its channels.
func RunHub() {
	if vkClient != nil {
		startValkeySubscriber()
	}

	for {
		select {
		case conn := <-Register:
			handleRegister(conn)

		case conn := <-Unregister:
			handleUnregister(conn)

		case message := <-Broadcast:
			broadcastToLocal(message)

			// Messages that arrived from another replica already carry its
			// SenderID; republishing them would ping-pong between nodes.
			if vkClient != nil && message.SenderID == "" {
				publishToValkey(message)
			}
		}
	}
}

// RegisterRoutes mounts the observer endpoint. Dashboard connections are
// read-only: inbound frames are drained and discarded, the server pushes
// campaign events as they happen.
func RegisterRoutes(app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			Unregister <- conn
			_ = conn.Close()
		}()

		Register <- conn

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}
		}
	}))
}
