// Package audit writes the append-only audit trail and pushes a matching
// change event to connected clients.
package audit

import (
	"database/sql"
	"log"
	"net/http"

	"wrench/internal/websocket"
)

// Action constants.
const (
	ActionCreate  = "created"
	ActionUpdate  = "updated"
	ActionDelete  = "deleted"
	ActionApprove = "approved"
	ActionExport  = "exported"
	ActionLogin   = "login"
	ActionLogout  = "logout"
)

// SessionCookie is the auth cookie name shared with the auth handlers.
const SessionCookie = "wrench_session"

// Log records an audit entry and broadcasts the change.
func Log(db *sql.DB, hub *websocket.Hub, username, action, module, recordID, summary string) {
	if _, err := db.Exec("INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary); err != nil {
		log.Printf("audit: %v", err)
	}
	if hub != nil {
		hub.BroadcastChange(module, action, recordID)
	}
}

// Username resolves the acting user from the session cookie, falling back
// to "system" for unauthenticated internal calls.
func Username(db *sql.DB, r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "system"
	}
	var username string
	err = db.QueryRow("SELECT u.username FROM users u JOIN sessions s ON u.id = s.user_id WHERE s.token = ?", cookie.Value).Scan(&username)
	if err != nil {
		return "system"
	}
	return username
}
