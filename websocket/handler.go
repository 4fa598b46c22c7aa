package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// NewUpgrader builds an upgrader that accepts the given browser origins.
// A "*" entry accepts any origin. Requests without an Origin header are
// always accepted since they do not come from a browser.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// NewHandler returns the gin handler that upgrades a request into a relay
// connection.
func NewHandler(hub *Hub, opts ClientOptions, origins []string) gin.HandlerFunc {
	upgrader := NewUpgrader(origins)

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error response.
			slog.Warn("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
			return
		}

		client := NewClient(hub, conn, uuid.NewString(), opts)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}
		slog.Info("client connected", "conn", client.id, "remote", c.ClientIP())

		go client.writePump()
		go client.readPump()
	}
}
