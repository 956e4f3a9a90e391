package main

import (
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/validation"
)

func validateVehicle(v *Vehicle) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "customerId", v.CustomerID)
	validation.RequireField(ve, "make", v.Make)
	validation.RequireField(ve, "model", v.Model)
	validation.ValidateYear(ve, "year", v.Year)
	validation.ValidateNonNegativeInt(ve, "mileage", v.Mileage)
	return ve
}

const vehicleCols = "id,customer_id,make,model,year,COALESCE(registration,''),COALESCE(vin,''),mileage,COALESCE(notes,''),created_at"

func scanVehicle(row interface{ Scan(...interface{}) error }) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.CustomerID, &v.Make, &v.Model, &v.Year, &v.Registration, &v.VIN, &v.Mileage, &v.Notes, &v.CreatedAt)
	return v, err
}

func handleListVehicles(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + vehicleCols + " FROM vehicles"
	var args []interface{}
	if customerID := r.URL.Query().Get("customer_id"); customerID != "" {
		query += " WHERE customer_id=?"
		args = append(args, customerID)
	}
	query += " ORDER BY created_at DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	var items []Vehicle
	for rows.Next() {
		if v, err := scanVehicle(rows); err == nil {
			items = append(items, v)
		}
	}
	if items == nil { items = []Vehicle{} }
	jsonResp(w, items)
}

func handleGetVehicle(w http.ResponseWriter, r *http.Request, id string) {
	v, err := scanVehicle(db.QueryRow("SELECT "+vehicleCols+" FROM vehicles WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, v)
}

func handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v Vehicle
	if err := decodeBody(r, &v); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateVehicle(&v); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM customers WHERE id=?", v.CustomerID).Scan(&exists)
	if exists == 0 {
		jsonErr(w, "customer not found", 400)
		return
	}
	v.ID = nextID("VEH", "vehicles", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec("INSERT INTO vehicles (id,customer_id,make,model,year,registration,vin,mileage,notes,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		v.ID, v.CustomerID, v.Make, v.Model, v.Year, v.Registration, v.VIN, v.Mileage, v.Notes, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	v.CreatedAt = now
	logAudit(getUsername(r), audit.ActionCreate, "vehicle", v.ID, "Created vehicle "+v.Make+" "+v.Model)
	w.WriteHeader(201)
	jsonResp(w, v)
}

func handleUpdateVehicle(w http.ResponseWriter, r *http.Request, id string) {
	var v Vehicle
	if err := decodeBody(r, &v); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateVehicle(&v); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	res, err := db.Exec("UPDATE vehicles SET customer_id=?,make=?,model=?,year=?,registration=?,vin=?,mileage=?,notes=? WHERE id=?",
		v.CustomerID, v.Make, v.Model, v.Year, v.Registration, v.VIN, v.Mileage, v.Notes, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionUpdate, "vehicle", id, "Updated vehicle "+id)
	handleGetVehicle(w, r, id)
}

func handleDeleteVehicle(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	db.QueryRow("SELECT COUNT(*) FROM jobs WHERE vehicle_id=?", id).Scan(&refs)
	if refs > 0 {
		jsonErr(w, "vehicle has jobs and cannot be deleted", 400)
		return
	}
	res, err := db.Exec("DELETE FROM vehicles WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionDelete, "vehicle", id, "Deleted vehicle "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
