package main

import (
	"net/http"

	"wrench/internal/audit"
)

// logAudit records an audit entry and broadcasts the change to clients.
func logAudit(username, action, module, recordID, summary string) {
	audit.Log(db, wsHub, username, action, module, recordID, summary)
}

// getUsername resolves the acting user from the request session.
func getUsername(r *http.Request) string {
	return audit.Username(db, r)
}
