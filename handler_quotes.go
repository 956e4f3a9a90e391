package main

import (
	"database/sql"
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/pricing"
	"wrench/internal/validation"
)

const quoteCols = `id,customer_id,COALESCE(vehicle_id,''),COALESCE(description,''),status,COALESCE(valid_until,''),
	labor_hours,labor_rate,parts_total,labor_total,total_amount,COALESCE(notes,''),accepted_at,COALESCE(job_id,''),created_at`

func scanQuote(row interface{ Scan(...interface{}) error }) (Quote, error) {
	var q Quote
	var aa sql.NullString
	err := row.Scan(&q.ID, &q.CustomerID, &q.VehicleID, &q.Description, &q.Status, &q.ValidUntil,
		&q.LaborHours, &q.LaborRate, &q.PartsTotal, &q.LaborTotal, &q.TotalAmount, &q.Notes, &aa, &q.JobID, &q.CreatedAt)
	q.AcceptedAt = sp(aa)
	return q, err
}

func validateQuote(q *Quote) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "customerId", q.CustomerID)
	validation.ValidateEnum(ve, "status", q.Status, validation.ValidQuoteStatuses)
	validation.ValidateDate(ve, "validUntil", q.ValidUntil)
	return ve
}

func loadQuoteParts(quoteID string) ([]LineItem, error) {
	rows, err := db.Query(`SELECT id,quote_id,COALESCE(inventory_item_id,''),part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM quote_parts WHERE quote_id=? ORDER BY id`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	parts := []LineItem{}
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.ParentID, &l.InventoryItemID, &l.PartName, &l.PartNumber, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, err
		}
		parts = append(parts, l)
	}
	return parts, rows.Err()
}

func computeQuoteTotals(q *Quote) (int, string) {
	if q.LaborRate.IsZero() && !q.LaborHours.IsZero() {
		q.LaborRate = defaultLaborRate()
	}
	clientTotal := q.TotalAmount
	totals, err := pricing.Compute(q.QuoteParts, q.LaborHours, q.LaborRate)
	if err != nil {
		return 400, err.Error()
	}
	if !pricing.Matches(clientTotal, totals.TotalAmount) {
		return 400, "totalAmount does not match computed total " + totals.TotalAmount.String()
	}
	q.PartsTotal = totals.PartsTotal
	q.LaborTotal = totals.LaborTotal
	q.TotalAmount = totals.TotalAmount
	return 0, ""
}

func handleListQuotes(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + quoteCols + " FROM quotes"
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Quote{}
	for rows.Next() {
		if q, err := scanQuote(rows); err == nil {
			items = append(items, q)
		}
	}
	jsonResp(w, items)
}

func handleGetQuote(w http.ResponseWriter, r *http.Request, id string) {
	q, err := scanQuote(db.QueryRow("SELECT "+quoteCols+" FROM quotes WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	parts, err := loadQuoteParts(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	q.QuoteParts = parts
	jsonResp(w, q)
}

func handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var q Quote
	if err := decodeBody(r, &q); err != nil { jsonErr(w, "invalid body", 400); return }
	if q.Status == "" { q.Status = "draft" }
	if ve := validateQuote(&q); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	if code, msg := computeQuoteTotals(&q); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	q.ID = nextID("QTE", "quotes", 4)
	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`INSERT INTO quotes (id,customer_id,vehicle_id,description,status,valid_until,labor_hours,labor_rate,parts_total,labor_total,total_amount,notes,created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		q.ID, q.CustomerID, q.VehicleID, q.Description, q.Status, q.ValidUntil,
		q.LaborHours, q.LaborRate, q.PartsTotal, q.LaborTotal, q.TotalAmount, q.Notes, now)
	if err == nil {
		for _, l := range q.QuoteParts {
			_, err = tx.Exec(`INSERT INTO quote_parts (quote_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
				VALUES (?,?,?,?,?,?,?)`,
				q.ID, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionCreate, "quote", q.ID, "Created quote "+q.ID)
	w.WriteHeader(201)
	handleGetQuote(w, r, q.ID)
}

func handleUpdateQuote(w http.ResponseWriter, r *http.Request, id string) {
	prev, err := scanQuote(db.QueryRow("SELECT "+quoteCols+" FROM quotes WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var q Quote
	if err := decodeBody(r, &q); err != nil { jsonErr(w, "invalid body", 400); return }
	if q.Status == "" { q.Status = prev.Status }
	if q.CustomerID == "" { q.CustomerID = prev.CustomerID }
	if ve := validateQuote(&q); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}

	replaceParts := q.QuoteParts != nil
	if !replaceParts {
		parts, err := loadQuoteParts(id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		q.QuoteParts = parts
	}
	if code, msg := computeQuoteTotals(&q); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`UPDATE quotes SET customer_id=?,vehicle_id=?,description=?,status=?,valid_until=?,
		labor_hours=?,labor_rate=?,parts_total=?,labor_total=?,total_amount=?,notes=? WHERE id=?`,
		q.CustomerID, q.VehicleID, q.Description, q.Status, q.ValidUntil,
		q.LaborHours, q.LaborRate, q.PartsTotal, q.LaborTotal, q.TotalAmount, q.Notes, id)
	if err == nil && replaceParts {
		_, err = tx.Exec("DELETE FROM quote_parts WHERE quote_id=?", id)
		if err == nil {
			for _, l := range q.QuoteParts {
				_, err = tx.Exec(`INSERT INTO quote_parts (quote_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
					VALUES (?,?,?,?,?,?,?)`,
					id, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
				if err != nil {
					break
				}
			}
		}
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionUpdate, "quote", id, "Updated quote "+id)
	handleGetQuote(w, r, id)
}

func handleDeleteQuote(w http.ResponseWriter, r *http.Request, id string) {
	res, err := db.Exec("DELETE FROM quotes WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	db.Exec("DELETE FROM quote_parts WHERE quote_id=?", id)
	logAudit(getUsername(r), audit.ActionDelete, "quote", id, "Deleted quote "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}

// handleAcceptQuote marks the quote accepted and books a scheduled job
// carrying over the parts and labor.
func handleAcceptQuote(w http.ResponseWriter, r *http.Request, id string) {
	q, err := scanQuote(db.QueryRow("SELECT "+quoteCols+" FROM quotes WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	if q.Status == "accepted" {
		jsonErr(w, "quote already accepted", 409)
		return
	}
	if q.VehicleID == "" {
		jsonErr(w, "quote has no vehicle; set one before accepting", 400)
		return
	}
	parts, err := loadQuoteParts(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	jobID := nextID("JOB", "jobs", 4)
	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`INSERT INTO jobs (id,customer_id,vehicle_id,description,status,labor_hours,labor_rate,parts_total,labor_total,total_amount,notes,created_at,updated_at)
		VALUES (?,?,?,?,'scheduled',?,?,?,?,?,?,?,?)`,
		jobID, q.CustomerID, q.VehicleID, q.Description,
		q.LaborHours, q.LaborRate, q.PartsTotal, q.LaborTotal, q.TotalAmount, q.Notes, now, now)
	if err == nil {
		for _, l := range parts {
			_, err = tx.Exec(`INSERT INTO job_parts (job_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
				VALUES (?,?,?,?,?,?,?)`,
				jobID, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
			if err != nil {
				break
			}
		}
	}
	if err == nil {
		_, err = tx.Exec("UPDATE quotes SET status='accepted',accepted_at=?,job_id=? WHERE id=?", now, jobID, id)
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionUpdate, "quote", id, "Accepted quote "+id+" as job "+jobID)
	jsonResp(w, map[string]string{"status": "accepted", "jobId": jobID})
}
