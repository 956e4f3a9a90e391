package main

import (
	"net/http"

	"wrench/internal/websocket"
)

// Global hub instance.
var wsHub = websocket.NewHub()

// handleWebSocket upgrades the HTTP connection to a WebSocket.
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Serve(wsHub, w, r)
}
