package websocket

import (
	"fmt"
	"net/http"

	ws "github.com/coder/websocket"
)

// Accept upgrades the request to a WebSocket and returns a client of hub
// subscribed to roomID. The caller runs it with Client.Run.
func Accept(hub *Hub, w http.ResponseWriter, r *http.Request, roomID int64, originPatterns []string) (*Client, error) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket accept: %w", err)
	}
	return NewClient(hub, conn, roomID), nil
}
