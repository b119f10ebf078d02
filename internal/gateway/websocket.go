package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/room"
)

// wsTransport frames records as WebSocket text frames, one record per frame.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// WebSocketHandler upgrades HTTP requests and runs the same session loop the
// TCP listener uses, so browser clients speak the identical protocol.
type WebSocketHandler struct {
	room     *room.Room
	manager  *Manager
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(rm *room.Room, manager *Manager) *WebSocketHandler {
	return &WebSocketHandler{
		room:    rm,
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in development - restrict in production
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and starts the session loop.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	session := NewSession(&wsTransport{conn: conn}, conn.RemoteAddr().String(), h.room, h.manager)
	go session.Run()
}
