package main

import (
	"database/sql"
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/money"
	"wrench/internal/pricing"
	"wrench/internal/validation"
)

const jobCols = `id,customer_id,vehicle_id,COALESCE(description,''),status,COALESCE(scheduled_date,''),COALESCE(scheduled_time,''),COALESCE(bay,''),completed_date,
	labor_hours,labor_rate,parts_total,labor_total,total_amount,mileage,COALESCE(notes,''),created_at,updated_at`

func scanJob(row interface{ Scan(...interface{}) error }) (Job, error) {
	var j Job
	var cd sql.NullString
	err := row.Scan(&j.ID, &j.CustomerID, &j.VehicleID, &j.Description, &j.Status, &j.ScheduledDate, &j.ScheduledTime, &j.Bay, &cd,
		&j.LaborHours, &j.LaborRate, &j.PartsTotal, &j.LaborTotal, &j.TotalAmount, &j.Mileage, &j.Notes, &j.CreatedAt, &j.UpdatedAt)
	j.CompletedDate = sp(cd)
	return j, err
}

func validateJob(j *Job) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "customerId", j.CustomerID)
	validation.RequireField(ve, "vehicleId", j.VehicleID)
	validation.ValidateEnum(ve, "status", j.Status, validation.ValidJobStatuses)
	validation.ValidateDate(ve, "scheduledDate", j.ScheduledDate)
	validation.ValidateTime(ve, "scheduledTime", j.ScheduledTime)
	validation.ValidateNonNegativeInt(ve, "mileage", j.Mileage)
	return ve
}

func loadJobParts(jobID string) ([]LineItem, error) {
	rows, err := db.Query(`SELECT id,job_id,COALESCE(inventory_item_id,''),part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM job_parts WHERE job_id=? ORDER BY id`, jobID)
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

func handleListJobs(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + jobCols + " FROM jobs WHERE 1=1"
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " AND status=?"
		args = append(args, status)
	}
	if customerID := r.URL.Query().Get("customer_id"); customerID != "" {
		query += " AND customer_id=?"
		args = append(args, customerID)
	}
	if date := r.URL.Query().Get("date"); date != "" {
		query += " AND scheduled_date=?"
		args = append(args, date)
	}
	query += " ORDER BY created_at DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Job{}
	for rows.Next() {
		if j, err := scanJob(rows); err == nil {
			items = append(items, j)
		}
	}
	jsonResp(w, items)
}

func handleGetJob(w http.ResponseWriter, r *http.Request, id string) {
	j, err := scanJob(db.QueryRow("SELECT "+jobCols+" FROM jobs WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	parts, err := loadJobParts(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	j.JobParts = parts
	jsonResp(w, j)
}

// defaultLaborRate falls back to the business settings rate when a job
// arrives with hours but no rate.
func defaultLaborRate() money.Amount {
	var rate money.Amount
	db.QueryRow("SELECT default_labor_rate FROM business_settings WHERE id=1").Scan(&rate)
	return rate
}

// computeJobTotals recomputes the job's pricing server-side. Client-supplied
// totals are treated as a hint: a mismatch beyond a penny is rejected.
func computeJobTotals(j *Job) (int, string) {
	if j.LaborRate.IsZero() && !j.LaborHours.IsZero() {
		j.LaborRate = defaultLaborRate()
	}
	clientTotal := j.TotalAmount
	totals, err := pricing.Compute(j.JobParts, j.LaborHours, j.LaborRate)
	if err != nil {
		return 400, err.Error()
	}
	if !pricing.Matches(clientTotal, totals.TotalAmount) {
		return 400, "totalAmount does not match computed total " + totals.TotalAmount.String()
	}
	j.PartsTotal = totals.PartsTotal
	j.LaborTotal = totals.LaborTotal
	j.TotalAmount = totals.TotalAmount
	return 0, ""
}

func insertJobParts(tx *sql.Tx, jobID string, parts []LineItem) error {
	for _, l := range parts {
		if _, err := tx.Exec(`INSERT INTO job_parts (job_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
			VALUES (?,?,?,?,?,?,?)`,
			jobID, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice); err != nil {
			return err
		}
	}
	return nil
}

func handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var j Job
	if err := decodeBody(r, &j); err != nil { jsonErr(w, "invalid body", 400); return }
	if j.Status == "" { j.Status = "scheduled" }
	if ve := validateJob(&j); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}

	var customerCount, vehicleCount int
	db.QueryRow("SELECT COUNT(*) FROM customers WHERE id=?", j.CustomerID).Scan(&customerCount)
	db.QueryRow("SELECT COUNT(*) FROM vehicles WHERE id=?", j.VehicleID).Scan(&vehicleCount)
	if customerCount == 0 { jsonErr(w, "customer not found", 400); return }
	if vehicleCount == 0 { jsonErr(w, "vehicle not found", 400); return }

	if code, msg := computeJobTotals(&j); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	j.ID = nextID("JOB", "jobs", 4)
	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`INSERT INTO jobs (id,customer_id,vehicle_id,description,status,scheduled_date,scheduled_time,bay,labor_hours,labor_rate,parts_total,labor_total,total_amount,mileage,notes,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		j.ID, j.CustomerID, j.VehicleID, j.Description, j.Status, j.ScheduledDate, j.ScheduledTime, j.Bay,
		j.LaborHours, j.LaborRate, j.PartsTotal, j.LaborTotal, j.TotalAmount, j.Mileage, j.Notes, now, now)
	if err == nil {
		err = insertJobParts(tx, j.ID, j.JobParts)
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionCreate, "job", j.ID, "Created job "+j.ID)
	w.WriteHeader(201)
	handleGetJobByID(w, j.ID)
}

func handleUpdateJob(w http.ResponseWriter, r *http.Request, id string) {
	prev, err := scanJob(db.QueryRow("SELECT "+jobCols+" FROM jobs WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var j Job
	if err := decodeBody(r, &j); err != nil { jsonErr(w, "invalid body", 400); return }
	if j.Status == "" { j.Status = prev.Status }
	if j.CustomerID == "" { j.CustomerID = prev.CustomerID }
	if j.VehicleID == "" { j.VehicleID = prev.VehicleID }
	if ve := validateJob(&j); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}

	// When the request does not carry parts, keep the stored ones for the
	// totals computation.
	replaceParts := j.JobParts != nil
	if !replaceParts {
		parts, err := loadJobParts(id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		j.JobParts = parts
	}

	if code, msg := computeJobTotals(&j); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	var completedDate interface{}
	if prev.CompletedDate != nil {
		completedDate = *prev.CompletedDate
	}
	if j.Status == "completed" && prev.Status != "completed" {
		completedDate = now
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`UPDATE jobs SET customer_id=?,vehicle_id=?,description=?,status=?,scheduled_date=?,scheduled_time=?,bay=?,completed_date=?,
		labor_hours=?,labor_rate=?,parts_total=?,labor_total=?,total_amount=?,mileage=?,notes=?,updated_at=? WHERE id=?`,
		j.CustomerID, j.VehicleID, j.Description, j.Status, j.ScheduledDate, j.ScheduledTime, j.Bay, completedDate,
		j.LaborHours, j.LaborRate, j.PartsTotal, j.LaborTotal, j.TotalAmount, j.Mileage, j.Notes, now, id)
	if err == nil && replaceParts {
		_, err = tx.Exec("DELETE FROM job_parts WHERE job_id=?", id)
		if err == nil {
			err = insertJobParts(tx, id, j.JobParts)
		}
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionUpdate, "job", id, "Updated job "+id+": status="+j.Status)
	handleGetJobByID(w, id)
}

// handleScheduleJob moves a job to another diary slot: only the date, time
// and bay change.
func handleScheduleJob(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		ScheduledDate string `json:"scheduledDate"`
		ScheduledTime string `json:"scheduledTime"`
		Bay           string `json:"bay"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "scheduledDate", body.ScheduledDate)
	validation.ValidateDate(ve, "scheduledDate", body.ScheduledDate)
	validation.ValidateTime(ve, "scheduledTime", body.ScheduledTime)
	if ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := db.Exec("UPDATE jobs SET scheduled_date=?,scheduled_time=?,bay=?,updated_at=? WHERE id=?",
		body.ScheduledDate, body.ScheduledTime, body.Bay, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionUpdate, "job", id, "Moved job "+id+" to "+body.ScheduledDate+" "+body.ScheduledTime)
	handleGetJobByID(w, id)
}

func handleDeleteJob(w http.ResponseWriter, r *http.Request, id string) {
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM jobs WHERE id=?", id).Scan(&exists)
	if exists == 0 { jsonErr(w, "not found", 404); return }

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	// FK cascade also covers these; explicit deletes keep the intent clear
	// if the schema ever loosens.
	if _, err := tx.Exec("DELETE FROM job_parts WHERE job_id=?", id); err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec("DELETE FROM jobs WHERE id=?", id); err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionDelete, "job", id, "Deleted job "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}

// handleJobsCalendar returns the diary grid (time slots x bays) for one day.
func handleJobsCalendar(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	rows, err := db.Query("SELECT "+jobCols+" FROM jobs WHERE scheduled_date=? AND status != 'cancelled' ORDER BY scheduled_time, bay", date)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Job{}
	for rows.Next() {
		if j, err := scanJob(rows); err == nil {
			items = append(items, j)
		}
	}
	jsonResp(w, map[string]interface{}{"date": date, "jobs": items})
}

// handleGetJobByID writes the job without taking a request; used after
// mutations to echo the stored state.
func handleGetJobByID(w http.ResponseWriter, id string) {
	j, err := scanJob(db.QueryRow("SELECT "+jobCols+" FROM jobs WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	parts, err := loadJobParts(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	j.JobParts = parts
	jsonResp(w, j)
}
