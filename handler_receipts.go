package main

import (
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/validation"
)

const receiptCols = `id,job_id,amount,method,COALESCE(paid_at,''),COALESCE(notes,''),created_at`

func scanReceipt(row interface{ Scan(...interface{}) error }) (Receipt, error) {
	var rc Receipt
	err := row.Scan(&rc.ID, &rc.JobID, &rc.Amount, &rc.Method, &rc.PaidAt, &rc.Notes, &rc.CreatedAt)
	return rc, err
}

func validateReceipt(rc *Receipt) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "jobId", rc.JobID)
	validation.ValidateEnum(ve, "method", rc.Method, validation.ValidPaymentMethods)
	validation.ValidateDate(ve, "paidAt", rc.PaidAt)
	if rc.Amount.IsNegative() {
		ve.Add("amount", "must not be negative")
	}
	return ve
}

func handleListReceipts(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + receiptCols + " FROM receipts"
	var args []interface{}
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		query += " WHERE job_id=?"
		args = append(args, jobID)
	}
	query += " ORDER BY created_at DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Receipt{}
	for rows.Next() {
		if rc, err := scanReceipt(rows); err == nil {
			items = append(items, rc)
		}
	}
	jsonResp(w, items)
}

func handleGetReceipt(w http.ResponseWriter, r *http.Request, id string) {
	rc, err := scanReceipt(db.QueryRow("SELECT "+receiptCols+" FROM receipts WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, rc)
}

func handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var rc Receipt
	if err := decodeBody(r, &rc); err != nil { jsonErr(w, "invalid body", 400); return }
	if rc.Method == "" { rc.Method = "card" }
	if rc.PaidAt == "" { rc.PaidAt = time.Now().Format("2006-01-02") }
	if ve := validateReceipt(&rc); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	var job Job
	if err := db.QueryRow("SELECT id, total_amount FROM jobs WHERE id=?", rc.JobID).Scan(&job.ID, &job.TotalAmount); err != nil {
		jsonErr(w, "job not found", 400)
		return
	}
	if rc.Amount.IsZero() {
		rc.Amount = job.TotalAmount
	}

	rc.ID = nextID("RCT", "receipts", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`INSERT INTO receipts (id,job_id,amount,method,paid_at,notes,created_at) VALUES (?,?,?,?,?,?,?)`,
		rc.ID, rc.JobID, rc.Amount, rc.Method, rc.PaidAt, rc.Notes, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionCreate, "receipt", rc.ID, "Recorded payment for "+rc.JobID)
	w.WriteHeader(201)
	handleGetReceipt(w, r, rc.ID)
}

func handleDeleteReceipt(w http.ResponseWriter, r *http.Request, id string) {
	res, err := db.Exec("DELETE FROM receipts WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionDelete, "receipt", id, "Deleted receipt "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
