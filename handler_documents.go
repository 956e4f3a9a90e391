package main

import (
	"errors"
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/documents"
	"wrench/internal/validation"
)

// handleGeneratePDF returns the flattened render payload for a document.
// Rendering itself happens client side; this endpoint only assembles the
// record, its lines, the business settings and the active template.
func handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	payload, err := documents.Assemble(db, req.Type, req.ID)
	if err != nil {
		if errors.Is(err, documents.ErrUnknownType) {
			jsonErr(w, err.Error(), 400)
			return
		}
		if errors.Is(err, documents.ErrNotFound) {
			jsonErr(w, "not found", 404)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"success": true, "data": payload})
}

func handleGetSettings(w http.ResponseWriter, r *http.Request) {
	var s BusinessSettings
	err := db.QueryRow(`SELECT company_name,address,phone,email,vat_number,default_labor_rate,vat_rate,logo_url,updated_at
		FROM business_settings WHERE id=1`).Scan(
		&s.CompanyName, &s.Address, &s.Phone, &s.Email, &s.VATNumber, &s.DefaultLaborRate, &s.VATRate, &s.LogoURL, &s.UpdatedAt)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, s)
}

func handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s BusinessSettings
	if err := decodeBody(r, &s); err != nil { jsonErr(w, "invalid body", 400); return }
	ve := &validation.ValidationErrors{}
	validation.ValidateEmail(ve, "email", s.Email)
	if s.DefaultLaborRate.IsNegative() {
		ve.Add("defaultLaborRate", "must not be negative")
	}
	if s.VATRate.IsNegative() {
		ve.Add("vatRate", "must not be negative")
	}
	if ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`UPDATE business_settings SET company_name=?,address=?,phone=?,email=?,vat_number=?,
		default_labor_rate=?,vat_rate=?,logo_url=?,updated_at=? WHERE id=1`,
		s.CompanyName, s.Address, s.Phone, s.Email, s.VATNumber, s.DefaultLaborRate, s.VATRate, s.LogoURL, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), audit.ActionUpdate, "settings", "1", "Updated business settings")
	handleGetSettings(w, r)
}

const templateCols = `id,type,name,COALESCE(header_text,''),COALESCE(footer_text,''),COALESCE(accent_color,''),is_active,created_at`

func scanTemplate(row interface{ Scan(...interface{}) error }) (CustomTemplate, error) {
	var t CustomTemplate
	err := row.Scan(&t.ID, &t.Type, &t.Name, &t.HeaderText, &t.FooterText, &t.AccentColor, &t.IsActive, &t.CreatedAt)
	return t, err
}

func handleListTemplates(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + templateCols + " FROM custom_templates"
	var args []interface{}
	if typ := r.URL.Query().Get("type"); typ != "" {
		query += " WHERE type=?"
		args = append(args, typ)
	}
	query += " ORDER BY type, created_at"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []CustomTemplate{}
	for rows.Next() {
		if t, err := scanTemplate(rows); err == nil {
			items = append(items, t)
		}
	}
	jsonResp(w, items)
}

func handleGetTemplate(w http.ResponseWriter, r *http.Request, id string) {
	t, err := scanTemplate(db.QueryRow("SELECT "+templateCols+" FROM custom_templates WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, t)
}

func validateTemplate(t *CustomTemplate) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", t.Name)
	validation.ValidateEnum(ve, "type", t.Type, validation.ValidTemplateTypes)
	return ve
}

func handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t CustomTemplate
	if err := decodeBody(r, &t); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateTemplate(&t); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	t.ID = nextID("TPL", "custom_templates", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`INSERT INTO custom_templates (id,type,name,header_text,footer_text,accent_color,is_active,created_at)
		VALUES (?,?,?,?,?,?,0,?)`,
		t.ID, t.Type, t.Name, t.HeaderText, t.FooterText, t.AccentColor, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), audit.ActionCreate, "template", t.ID, "Created template "+t.Name)
	w.WriteHeader(201)
	handleGetTemplate(w, r, t.ID)
}

func handleUpdateTemplate(w http.ResponseWriter, r *http.Request, id string) {
	prev, err := scanTemplate(db.QueryRow("SELECT "+templateCols+" FROM custom_templates WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	var t CustomTemplate
	if err := decodeBody(r, &t); err != nil { jsonErr(w, "invalid body", 400); return }
	if t.Type == "" { t.Type = prev.Type }
	if t.Name == "" { t.Name = prev.Name }
	if ve := validateTemplate(&t); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	_, err = db.Exec(`UPDATE custom_templates SET type=?,name=?,header_text=?,footer_text=?,accent_color=? WHERE id=?`,
		t.Type, t.Name, t.HeaderText, t.FooterText, t.AccentColor, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), audit.ActionUpdate, "template", id, "Updated template "+t.Name)
	handleGetTemplate(w, r, id)
}

// handleActivateTemplate makes the template the active one for its type,
// deactivating its siblings in the same transaction.
func handleActivateTemplate(w http.ResponseWriter, r *http.Request, id string) {
	t, err := scanTemplate(db.QueryRow("SELECT "+templateCols+" FROM custom_templates WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec("UPDATE custom_templates SET is_active=0 WHERE type=?", t.Type)
	if err == nil {
		_, err = tx.Exec("UPDATE custom_templates SET is_active=1 WHERE id=?", id)
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionUpdate, "template", id, "Activated template "+t.Name)
	handleGetTemplate(w, r, id)
}

func handleDeleteTemplate(w http.ResponseWriter, r *http.Request, id string) {
	t, err := scanTemplate(db.QueryRow("SELECT "+templateCols+" FROM custom_templates WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	if t.IsActive {
		jsonErr(w, "cannot delete the active template; activate another first", 400)
		return
	}
	if _, err := db.Exec("DELETE FROM custom_templates WHERE id=?", id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	logAudit(getUsername(r), audit.ActionDelete, "template", id, "Deleted template "+t.Name)
	jsonResp(w, map[string]string{"status": "deleted"})
}
