// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session endpoint. These give
// clients a more specific reason for closure than the standard codes.
const (
	BadSubprotocolError = 3000 // client connected with an unsupported subprotocol
	BadPacketError      = 3001 // client sent a frame that was not a JSON text message
)
