package main

import (
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/validation"
)

const supplierCols = "id,name,COALESCE(contact_name,''),COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),status,COALESCE(notes,''),created_at"

func scanSupplier(row interface{ Scan(...interface{}) error }) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.Address, &s.Status, &s.Notes, &s.CreatedAt)
	return s, err
}

func validateSupplier(s *Supplier) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", s.Name)
	validation.ValidateEmail(ve, "email", s.Email)
	validation.ValidateEnum(ve, "status", s.Status, validation.ValidSupplierStatuses)
	return ve
}

func handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + supplierCols + " FROM suppliers"
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY name"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Supplier
	for rows.Next() {
		if s, err := scanSupplier(rows); err == nil {
			items = append(items, s)
		}
	}
	if items == nil { items = []Supplier{} }
	jsonResp(w, items)
}

func handleGetSupplier(w http.ResponseWriter, r *http.Request, id string) {
	s, err := scanSupplier(db.QueryRow("SELECT "+supplierCols+" FROM suppliers WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, s)
}

func handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var s Supplier
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }
	if s.Status == "" { s.Status = "active" }
	if ve := validateSupplier(&s); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	s.ID = nextID("SUP", "suppliers", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec("INSERT INTO suppliers (id,name,contact_name,email,phone,address,status,notes,created_at) VALUES (?,?,?,?,?,?,?,?,?)",
		s.ID, s.Name, s.ContactName, s.Email, s.Phone, s.Address, s.Status, s.Notes, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	s.CreatedAt = now
	logAudit(getUsername(r), audit.ActionCreate, "supplier", s.ID, "Created supplier "+s.Name)
	w.WriteHeader(201)
	jsonResp(w, s)
}

func handleUpdateSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s Supplier
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }
	if s.Status == "" { s.Status = "active" }
	if ve := validateSupplier(&s); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	res, err := db.Exec("UPDATE suppliers SET name=?,contact_name=?,email=?,phone=?,address=?,status=?,notes=? WHERE id=?",
		s.Name, s.ContactName, s.Email, s.Phone, s.Address, s.Status, s.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionUpdate, "supplier", id, "Updated supplier "+id)
	handleGetSupplier(w, r, id)
}

func handleDeleteSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM purchase_orders WHERE supplier_id=?) + (SELECT COUNT(*) FROM returns WHERE supplier_id=?)", id, id).Scan(&refs)
	if refs > 0 {
		jsonErr(w, "supplier has purchase orders or returns and cannot be deleted", 400)
		return
	}
	res, err := db.Exec("DELETE FROM suppliers WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionDelete, "supplier", id, "Deleted supplier "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
