package main

import (
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"wrench/internal/audit"
	"wrench/internal/validation"
)

type UserFull struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Role        string  `json:"role"`
	Active      bool    `json:"active"`
	LastLogin   *string `json:"lastLogin"`
	CreatedAt   string  `json:"createdAt"`
}

// requireAdmin enforces the admin role for user management endpoints.
// Returns false after writing the error response.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !requireRole(r, "admin") {
		jsonErr(w, "admin access required", 403)
		return false
	}
	return true
}

func handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	rows, err := db.Query(`SELECT id, username, COALESCE(display_name,''), role, active, last_login, created_at
		FROM users ORDER BY username`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	users := []UserFull{}
	for rows.Next() {
		var u UserFull
		var lastLogin, createdAt interface{}
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &lastLogin, &createdAt); err == nil {
			if s, ok := lastLogin.(string); ok {
				u.LastLogin = &s
			}
			if s, ok := createdAt.(string); ok {
				u.CreatedAt = s
			}
			users = append(users, u)
		}
	}
	jsonResp(w, users)
}

func handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	if req.Role == "" { req.Role = "user" }
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "username", req.Username)
	validation.ValidateEnum(ve, "role", req.Role, []string{"admin", "user"})
	if len(req.Password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	res, err := db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?,?,?,?)",
		req.Username, string(hash), req.DisplayName, req.Role)
	if err != nil {
		jsonErr(w, "username already exists", 409)
		return
	}
	id, _ := res.LastInsertId()
	logAudit(getUsername(r), audit.ActionCreate, "user", strconv.FormatInt(id, 10), "Created user "+req.Username)
	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id, "username": req.Username, "role": req.Role})
}

func handleUpdateUser(w http.ResponseWriter, r *http.Request, idStr string) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil { jsonErr(w, "invalid user id", 400); return }
	var req struct {
		DisplayName *string `json:"displayName"`
		Role        *string `json:"role"`
		Active      *bool   `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	if req.Role != nil && *req.Role != "admin" && *req.Role != "user" {
		jsonErr(w, "invalid role", 400)
		return
	}

	if req.DisplayName != nil {
		db.Exec("UPDATE users SET display_name=? WHERE id=?", *req.DisplayName, id)
	}
	if req.Role != nil {
		db.Exec("UPDATE users SET role=? WHERE id=?", *req.Role, id)
	}
	if req.Active != nil {
		db.Exec("UPDATE users SET active=? WHERE id=?", *req.Active, id)
		if !*req.Active {
			db.Exec("DELETE FROM sessions WHERE user_id=?", id)
		}
	}
	logAudit(getUsername(r), audit.ActionUpdate, "user", idStr, "Updated user "+idStr)
	jsonResp(w, map[string]string{"status": "updated"})
}

func handleDeleteUser(w http.ResponseWriter, r *http.Request, idStr string) {
	if !requireAdmin(w, r) {
		return
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE role='admin' AND active=1").Scan(&count)
	var role string
	if err := db.QueryRow("SELECT role FROM users WHERE id=?", idStr).Scan(&role); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if role == "admin" && count <= 1 {
		jsonErr(w, "cannot delete the last admin", 400)
		return
	}
	db.Exec("DELETE FROM sessions WHERE user_id=?", idStr)
	db.Exec("DELETE FROM users WHERE id=?", idStr)
	logAudit(getUsername(r), audit.ActionDelete, "user", idStr, "Deleted user "+idStr)
	jsonResp(w, map[string]string{"status": "deleted"})
}

func handleResetPassword(w http.ResponseWriter, r *http.Request, idStr string) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	if len(req.Password) < 8 {
		jsonErr(w, "password must be at least 8 characters", 400)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	res, err := db.Exec("UPDATE users SET password_hash=? WHERE id=?", string(hash), idStr)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	db.Exec("DELETE FROM sessions WHERE user_id=?", idStr)
	logAudit(getUsername(r), audit.ActionUpdate, "user", idStr, "Reset password for user "+idStr)
	jsonResp(w, map[string]string{"status": "password reset"})
}

func handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	query := "SELECT id, username, action, module, record_id, summary, timestamp FROM audit_log"
	var args []interface{}
	if mod := r.URL.Query().Get("module"); mod != "" {
		query += " WHERE module=?"
		args = append(args, mod)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.Timestamp); err == nil {
			entries = append(entries, e)
		}
	}
	jsonResp(w, entries)
}
