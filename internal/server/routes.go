package server

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// newUpgrader configures the websocket upgrader. Browsers are held to the
// allowed origins; clients that send no Origin header (the CLI, native apps)
// are always accepted.
func newUpgrader(origins *cors.Cors) *websocket.Upgrader {
	u := &websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		Subprotocols:    signaling.Subprotocols,
	}
	if origins != nil {
		u.CheckOrigin = func(r *http.Request) bool {
			if r.Header.Get("Origin") == "" {
				return true
			}
			return origins.OriginAllowed(r)
		}
	}
	return u
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *signaling.Hub, upgrader *websocket.Upgrader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade writes the HTTP error response itself.
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("Failed to upgrade connection", "remote", r.RemoteAddr, "err", err)
			return
		}

		codec := signaling.CodecFor(conn.Subprotocol())
		client := signaling.NewClient(hub, conn, codec)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}
		logger.Info("Client connected",
			"conn_id", client.ID.String(),
			"remote", r.RemoteAddr,
			"codec", codec.Name(),
		)

		// The pumps own the connection from here on.
		go client.WritePump()
		go client.ReadPump()
	}
}

// allowsAnyOrigin reports whether the list is the "*" wildcard.
func allowsAnyOrigin(origins []string) bool {
	return slices.Contains(origins, "*")
}
