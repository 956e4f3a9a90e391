// Package documents flattens an aggregate record (job, quote, purchase
// order, return or receipt) together with its related parties, the business
// settings and the active template into a plain payload for the browser-side
// PDF renderer. Money values arrive already formatted; the renderer never
// does arithmetic.
package documents

import (
	"database/sql"
	"errors"
	"fmt"

	"wrench/internal/models"
	"wrench/internal/money"
)

var (
	ErrUnknownType = errors.New("unknown document type")
	ErrNotFound    = errors.New("document not found")
)

// Payload is the flat key-value document representation.
type Payload map[string]any

// Assemble builds the render payload for one document.
func Assemble(db *sql.DB, docType, id string) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch docType {
	case "job":
		p, err = assembleJob(db, id)
	case "quote":
		p, err = assembleQuote(db, id)
	case "purchase-order":
		p, err = assemblePurchaseOrder(db, id)
	case "return":
		p, err = assembleReturn(db, id)
	case "receipt":
		p, err = assembleReceipt(db, id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, docType)
	}
	if err != nil {
		return nil, err
	}

	attachBusiness(db, p)
	attachTemplate(db, p, templateTypeFor(docType))
	p["documentType"] = docType
	return p, nil
}

// templateTypeFor maps a document type to its template family. Jobs render
// on the invoice template.
func templateTypeFor(docType string) string {
	if docType == "job" {
		return "invoice"
	}
	return docType
}

func attachBusiness(db *sql.DB, p Payload) {
	var s models.BusinessSettings
	err := db.QueryRow(`SELECT company_name,COALESCE(address,''),COALESCE(phone,''),COALESCE(email,''),
		COALESCE(vat_number,''),default_labor_rate,vat_rate,COALESCE(logo_url,'') FROM business_settings WHERE id=1`).
		Scan(&s.CompanyName, &s.Address, &s.Phone, &s.Email, &s.VATNumber, &s.DefaultLaborRate, &s.VATRate, &s.LogoURL)
	if err != nil {
		return
	}
	p["companyName"] = s.CompanyName
	p["companyAddress"] = s.Address
	p["companyPhone"] = s.Phone
	p["companyEmail"] = s.Email
	p["companyVatNumber"] = s.VATNumber
	p["companyLogoUrl"] = s.LogoURL
}

func attachTemplate(db *sql.DB, p Payload, templateType string) {
	var t models.CustomTemplate
	err := db.QueryRow(`SELECT id,name,COALESCE(header_text,''),COALESCE(footer_text,''),COALESCE(accent_color,'')
		FROM custom_templates WHERE type=? AND is_active=1 LIMIT 1`, templateType).
		Scan(&t.ID, &t.Name, &t.HeaderText, &t.FooterText, &t.AccentColor)
	if err != nil {
		return
	}
	p["templateId"] = t.ID
	p["templateName"] = t.Name
	p["templateHeader"] = t.HeaderText
	p["templateFooter"] = t.FooterText
	p["templateAccentColor"] = t.AccentColor
}

func lineMaps(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()
	items := []map[string]any{}
	for rows.Next() {
		var name, number string
		var qty int
		var unit, total money.Amount
		if err := rows.Scan(&name, &number, &qty, &unit, &total); err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"partName":   name,
			"partNumber": number,
			"quantity":   qty,
			"unitPrice":  unit.String(),
			"totalPrice": total.String(),
		})
	}
	return items, rows.Err()
}

func customerInto(db *sql.DB, p Payload, customerID string) {
	var first, last, email, phone, address string
	err := db.QueryRow("SELECT first_name,last_name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,'') FROM customers WHERE id=?", customerID).
		Scan(&first, &last, &email, &phone, &address)
	if err != nil {
		return
	}
	p["customerName"] = first + " " + last
	p["customerEmail"] = email
	p["customerPhone"] = phone
	p["customerAddress"] = address
}

func vehicleInto(db *sql.DB, p Payload, vehicleID string) {
	var make, model, registration string
	var year int
	err := db.QueryRow("SELECT make,model,year,COALESCE(registration,'') FROM vehicles WHERE id=?", vehicleID).
		Scan(&make, &model, &year, &registration)
	if err != nil {
		return
	}
	p["vehicle"] = fmt.Sprintf("%d %s %s", year, make, model)
	p["vehicleRegistration"] = registration
}

func supplierInto(db *sql.DB, p Payload, supplierID string) {
	var name, contact, email, phone, address string
	err := db.QueryRow("SELECT name,COALESCE(contact_name,''),COALESCE(email,''),COALESCE(phone,''),COALESCE(address,'') FROM suppliers WHERE id=?", supplierID).
		Scan(&name, &contact, &email, &phone, &address)
	if err != nil {
		return
	}
	p["supplierName"] = name
	p["supplierContact"] = contact
	p["supplierEmail"] = email
	p["supplierPhone"] = phone
	p["supplierAddress"] = address
}

func assembleJob(db *sql.DB, id string) (Payload, error) {
	var j models.Job
	err := db.QueryRow(`SELECT id,customer_id,vehicle_id,COALESCE(description,''),status,COALESCE(scheduled_date,''),
		labor_hours,labor_rate,parts_total,labor_total,total_amount,COALESCE(notes,''),created_at
		FROM jobs WHERE id=?`, id).
		Scan(&j.ID, &j.CustomerID, &j.VehicleID, &j.Description, &j.Status, &j.ScheduledDate,
			&j.LaborHours, &j.LaborRate, &j.PartsTotal, &j.LaborTotal, &j.TotalAmount, &j.Notes, &j.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}

	rows, err := db.Query(`SELECT part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM job_parts WHERE job_id=? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	lines, err := lineMaps(rows)
	if err != nil {
		return nil, err
	}

	p := Payload{
		"id":            j.ID,
		"description":   j.Description,
		"status":        j.Status,
		"scheduledDate": j.ScheduledDate,
		"laborHours":    j.LaborHours.String(),
		"laborRate":     j.LaborRate.String(),
		"partsTotal":    j.PartsTotal.String(),
		"laborTotal":    j.LaborTotal.String(),
		"totalAmount":   j.TotalAmount.String(),
		"notes":         j.Notes,
		"createdAt":     j.CreatedAt,
		"items":         lines,
	}
	customerInto(db, p, j.CustomerID)
	vehicleInto(db, p, j.VehicleID)
	return p, nil
}

func assembleQuote(db *sql.DB, id string) (Payload, error) {
	var q models.Quote
	err := db.QueryRow(`SELECT id,customer_id,COALESCE(vehicle_id,''),COALESCE(description,''),status,COALESCE(valid_until,''),
		labor_hours,labor_rate,parts_total,labor_total,total_amount,COALESCE(notes,''),created_at
		FROM quotes WHERE id=?`, id).
		Scan(&q.ID, &q.CustomerID, &q.VehicleID, &q.Description, &q.Status, &q.ValidUntil,
			&q.LaborHours, &q.LaborRate, &q.PartsTotal, &q.LaborTotal, &q.TotalAmount, &q.Notes, &q.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}

	rows, err := db.Query(`SELECT part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM quote_parts WHERE quote_id=? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	lines, err := lineMaps(rows)
	if err != nil {
		return nil, err
	}

	p := Payload{
		"id":          q.ID,
		"description": q.Description,
		"status":      q.Status,
		"validUntil":  q.ValidUntil,
		"laborHours":  q.LaborHours.String(),
		"laborRate":   q.LaborRate.String(),
		"partsTotal":  q.PartsTotal.String(),
		"laborTotal":  q.LaborTotal.String(),
		"totalAmount": q.TotalAmount.String(),
		"notes":       q.Notes,
		"createdAt":   q.CreatedAt,
		"items":       lines,
	}
	customerInto(db, p, q.CustomerID)
	if q.VehicleID != "" {
		vehicleInto(db, p, q.VehicleID)
	}
	return p, nil
}

func assemblePurchaseOrder(db *sql.DB, id string) (Payload, error) {
	var o models.PurchaseOrder
	err := db.QueryRow(`SELECT id,supplier_id,status,COALESCE(order_date,''),COALESCE(expected_date,''),
		subtotal,tax,total,COALESCE(notes,''),created_at FROM purchase_orders WHERE id=?`, id).
		Scan(&o.ID, &o.SupplierID, &o.Status, &o.OrderDate, &o.ExpectedDate,
			&o.Subtotal, &o.Tax, &o.Total, &o.Notes, &o.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}

	rows, err := db.Query(`SELECT part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM purchase_order_items WHERE po_id=? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	lines, err := lineMaps(rows)
	if err != nil {
		return nil, err
	}

	p := Payload{
		"id":           o.ID,
		"status":       o.Status,
		"orderDate":    o.OrderDate,
		"expectedDate": o.ExpectedDate,
		"subtotal":     o.Subtotal.String(),
		"tax":          o.Tax.String(),
		"total":        o.Total.String(),
		"notes":        o.Notes,
		"createdAt":    o.CreatedAt,
		"items":        lines,
	}
	supplierInto(db, p, o.SupplierID)
	return p, nil
}

func assembleReturn(db *sql.DB, id string) (Payload, error) {
	var ret models.Return
	err := db.QueryRow(`SELECT id,supplier_id,COALESCE(purchase_order_id,''),status,COALESCE(reason,''),
		refund_amount,COALESCE(notes,''),created_at FROM returns WHERE id=?`, id).
		Scan(&ret.ID, &ret.SupplierID, &ret.PurchaseOrderID, &ret.Status, &ret.Reason,
			&ret.RefundAmount, &ret.Notes, &ret.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}

	rows, err := db.Query(`SELECT part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM return_items WHERE return_id=? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	lines, err := lineMaps(rows)
	if err != nil {
		return nil, err
	}

	p := Payload{
		"id":              ret.ID,
		"purchaseOrderId": ret.PurchaseOrderID,
		"status":          ret.Status,
		"reason":          ret.Reason,
		"refundAmount":    ret.RefundAmount.String(),
		"notes":           ret.Notes,
		"createdAt":       ret.CreatedAt,
		"items":           lines,
	}
	supplierInto(db, p, ret.SupplierID)
	return p, nil
}

func assembleReceipt(db *sql.DB, id string) (Payload, error) {
	var rc models.Receipt
	err := db.QueryRow(`SELECT id,job_id,amount,method,COALESCE(paid_at,''),COALESCE(notes,''),created_at
		FROM receipts WHERE id=?`, id).
		Scan(&rc.ID, &rc.JobID, &rc.Amount, &rc.Method, &rc.PaidAt, &rc.Notes, &rc.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}

	p := Payload{
		"id":        rc.ID,
		"jobId":     rc.JobID,
		"amount":    rc.Amount.String(),
		"method":    rc.Method,
		"paidAt":    rc.PaidAt,
		"notes":     rc.Notes,
		"createdAt": rc.CreatedAt,
	}

	// Pull the job's customer and vehicle onto the receipt.
	var customerID, vehicleID, totalAmount string
	if err := db.QueryRow("SELECT customer_id,vehicle_id,total_amount FROM jobs WHERE id=?", rc.JobID).
		Scan(&customerID, &vehicleID, &totalAmount); err == nil {
		p["jobTotal"] = totalAmount
		customerInto(db, p, customerID)
		vehicleInto(db, p, vehicleID)
	}
	return p, nil
}
