package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/models"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for everything sent over the socket
type Message struct {
	Type     string          `json:"type"`
	SourceID models.SourceID `json:"source_id,omitempty"`
	Status   string          `json:"status,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Handler pushes document events with the current status line. Clients may
// send {"type":"ping"} or {"type":"status"}.
func Handler(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			deps.Logger.Debug().Err(err).Msg("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		coord := deps.Coordinator
		out := make(chan Message, sendBuffer)
		send := func(msg Message) {
			select {
			case out <- msg:
			default:
				// slow client, drop
			}
		}

		unsubscribe := coord.Subscribe(func(ev coordinator.Event) {
			send(Message{
				Type:     string(ev.Type),
				SourceID: ev.SourceID,
				Status:   coord.Status(),
				Message:  ev.Message,
			})
		})
		defer unsubscribe()

		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			writeLoop(conn, out, done)
		}()
		defer wg.Wait()
		defer close(done)

		send(Message{Type: "status", Status: coord.Status()})

		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}

			switch msg.Type {
			case "ping":
				send(Message{Type: "pong"})
			case "status":
				send(Message{Type: "status", Status: coord.Status()})
			default:
				send(Message{Type: "error", Error: "Unknown message type"})
			}
		}
	}
}

func writeLoop(conn *websocket.Conn, out <-chan Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
