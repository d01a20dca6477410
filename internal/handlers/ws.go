// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sweetdream/tavern/internal/middleware"
	"github.com/sweetdream/tavern/internal/room"
)

// WSHandler upgrades the connection and runs the session read/write pumps.
// Each websocket gets a fresh connection id; the user behind it is resolved
// per action by the coordinator.
func WSHandler(logger *logrus.Logger, srv *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"tavern"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "tavern" {
			c.Close(BadSubprotocolError, "client must speak the tavern subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		conn := &room.Connection{
			ConnID:  uuid.NewString(),
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, 32),
		}

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, srv, logger)

		srv.HandleDisconnect(conn)
		cancel()
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// readPump decodes inbound packets and hands them to the coordinator. It
// returns when the connection closes or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, conn *room.Connection, srv *SessionServer, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("connection %s closed normally", conn.ConnID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("connection %s read error: %v", conn.ConnID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("connection %s sent non-text message type %d, ignoring", conn.ConnID, typ)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("connection %s sent invalid json: %v", conn.ConnID, err)
			conn.WriteError("invalid JSON format")
			continue
		}

		srv.HandleAction(conn, packet)
	}
}

// writePump drains the connection's OutChan onto the websocket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				// Channel closed: this connection was replaced by a reconnect.
				c.Close(websocket.StatusGoingAway, "connection replaced")
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("connection %s: failed to marshal outgoing msg: %v", conn.ConnID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("connection %s: write failed: %v", conn.ConnID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("connection %s: ping failed, assuming disconnect: %v", conn.ConnID, err)
				return
			}
		}
	}
}
