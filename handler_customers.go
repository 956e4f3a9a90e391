package main

import (
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/validation"
)

func validateCustomer(c *Customer) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "firstName", c.FirstName)
	validation.RequireField(ve, "lastName", c.LastName)
	validation.ValidateEmail(ve, "email", c.Email)
	validation.ValidateMaxLen(ve, "notes", c.Notes, 2000)
	return ve
}

func handleListCustomers(w http.ResponseWriter, r *http.Request) {
	where := ""
	var args []interface{}
	if search := r.URL.Query().Get("search"); search != "" {
		where = " WHERE first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?"
		term := "%" + search + "%"
		args = append(args, term, term, term, term)
	}
	limit, page, ve := pageParams(r)
	if ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	query := "SELECT id,first_name,last_name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM customers" + where + " ORDER BY last_name, first_name"
	queryArgs := args
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		queryArgs = append(append([]interface{}{}, args...), limit, (page-1)*limit)
	}
	rows, err := db.Query(query, queryArgs...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		var c Customer
		rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
		items = append(items, c)
	}
	if items == nil { items = []Customer{} }
	if limit > 0 {
		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM customers"+where, args...).Scan(&total); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		jsonRespMeta(w, items, total, page, limit)
		return
	}
	jsonResp(w, items)
}

func handleGetCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var c Customer
	err := db.QueryRow("SELECT id,first_name,last_name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM customers WHERE id=?", id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, c)
}

func handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateCustomer(&c); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	c.ID = nextID("CUS", "customers", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec("INSERT INTO customers (id,first_name,last_name,email,phone,address,notes,created_at) VALUES (?,?,?,?,?,?,?,?)",
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.Notes, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	c.CreatedAt = now
	logAudit(getUsername(r), audit.ActionCreate, "customer", c.ID, "Created customer "+c.FirstName+" "+c.LastName)
	w.WriteHeader(201)
	jsonResp(w, c)
}

func handleUpdateCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var c Customer
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateCustomer(&c); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	res, err := db.Exec("UPDATE customers SET first_name=?,last_name=?,email=?,phone=?,address=?,notes=? WHERE id=?",
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionUpdate, "customer", id, "Updated customer "+id)
	handleGetCustomer(w, r, id)
}

func handleDeleteCustomer(w http.ResponseWriter, r *http.Request, id string) {
	// Vehicles and jobs reference customers with RESTRICT; refuse with a
	// clear message instead of surfacing the constraint error.
	var refs int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM vehicles WHERE customer_id=?) + (SELECT COUNT(*) FROM jobs WHERE customer_id=?)", id, id).Scan(&refs)
	if refs > 0 {
		jsonErr(w, "customer has vehicles or jobs and cannot be deleted", 400)
		return
	}
	res, err := db.Exec("DELETE FROM customers WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionDelete, "customer", id, "Deleted customer "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
