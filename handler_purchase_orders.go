package main

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"wrench/internal/audit"
	"wrench/internal/pricing"
	"wrench/internal/stock"
	"wrench/internal/validation"
)

const poCols = `id,supplier_id,status,COALESCE(order_date,''),COALESCE(expected_date,''),
	subtotal,tax,total,COALESCE(notes,''),approved_at,created_at`

func scanPurchaseOrder(row interface{ Scan(...interface{}) error }) (PurchaseOrder, error) {
	var po PurchaseOrder
	var aa sql.NullString
	err := row.Scan(&po.ID, &po.SupplierID, &po.Status, &po.OrderDate, &po.ExpectedDate,
		&po.Subtotal, &po.Tax, &po.Total, &po.Notes, &aa, &po.CreatedAt)
	po.ApprovedAt = sp(aa)
	return po, err
}

func validatePurchaseOrder(po *PurchaseOrder) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "supplierId", po.SupplierID)
	validation.ValidateEnum(ve, "status", po.Status, validation.ValidPOStatuses)
	validation.ValidateDate(ve, "orderDate", po.OrderDate)
	validation.ValidateDate(ve, "expectedDate", po.ExpectedDate)
	return ve
}

func loadPOItems(poID string) ([]LineItem, error) {
	rows, err := db.Query(`SELECT id,po_id,COALESCE(inventory_item_id,''),part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM purchase_order_items WHERE po_id=? ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LineItem{}
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.ParentID, &l.InventoryItemID, &l.PartName, &l.PartNumber, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func vatRate() decimal.Decimal {
	var rate decimal.Decimal
	if err := db.QueryRow("SELECT vat_rate FROM business_settings WHERE id=1").Scan(&rate); err != nil {
		return decimal.New(20, -2)
	}
	return rate
}

func computePOTotals(po *PurchaseOrder) (int, string) {
	subtotal, tax, total, err := pricing.OrderTotals(po.Items, vatRate())
	if err != nil {
		return 400, err.Error()
	}
	if !pricing.Matches(po.Total, total) {
		return 400, "total does not match computed total " + total.String()
	}
	po.Subtotal = subtotal
	po.Tax = tax
	po.Total = total
	return 0, ""
}

func handleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + poCols + " FROM purchase_orders"
	var conds []string
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		conds = append(conds, "status=?")
		args = append(args, status)
	}
	if supplier := r.URL.Query().Get("supplier_id"); supplier != "" {
		conds = append(conds, "supplier_id=?")
		args = append(args, supplier)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []PurchaseOrder{}
	for rows.Next() {
		if po, err := scanPurchaseOrder(rows); err == nil {
			items = append(items, po)
		}
	}
	jsonResp(w, items)
}

func handleGetPurchaseOrder(w http.ResponseWriter, r *http.Request, id string) {
	po, err := scanPurchaseOrder(db.QueryRow("SELECT "+poCols+" FROM purchase_orders WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	items, err := loadPOItems(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	po.Items = items
	jsonResp(w, po)
}

func handleCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var po PurchaseOrder
	if err := decodeBody(r, &po); err != nil { jsonErr(w, "invalid body", 400); return }
	if po.Status == "" { po.Status = "pending" }
	if po.Status == "approved" {
		jsonErr(w, "purchase orders must be created pending and approved separately", 400)
		return
	}
	if ve := validatePurchaseOrder(&po); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM suppliers WHERE id=?", po.SupplierID).Scan(&exists)
	if exists == 0 { jsonErr(w, "supplier not found", 400); return }
	if code, msg := computePOTotals(&po); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	po.ID = nextID("PO", "purchase_orders", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	if po.OrderDate == "" {
		po.OrderDate = time.Now().Format("2006-01-02")
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`INSERT INTO purchase_orders (id,supplier_id,status,order_date,expected_date,subtotal,tax,total,notes,created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		po.ID, po.SupplierID, po.Status, po.OrderDate, po.ExpectedDate,
		po.Subtotal, po.Tax, po.Total, po.Notes, now)
	if err == nil {
		for _, l := range po.Items {
			_, err = tx.Exec(`INSERT INTO purchase_order_items (po_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
				VALUES (?,?,?,?,?,?,?)`,
				po.ID, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
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

	logAudit(getUsername(r), audit.ActionCreate, "purchase_order", po.ID, "Created purchase order "+po.ID)
	w.WriteHeader(201)
	handleGetPurchaseOrder(w, r, po.ID)
}

// handleUpdatePurchaseOrder replaces the order fields; when the status
// moves from pending to approved the stock for every linked line is
// received inside the same transaction. Approving an already approved
// order is refused rather than applied twice.
func handleUpdatePurchaseOrder(w http.ResponseWriter, r *http.Request, id string) {
	prev, err := scanPurchaseOrder(db.QueryRow("SELECT "+poCols+" FROM purchase_orders WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var po PurchaseOrder
	if err := decodeBody(r, &po); err != nil { jsonErr(w, "invalid body", 400); return }
	if po.Status == "" { po.Status = prev.Status }
	if po.SupplierID == "" { po.SupplierID = prev.SupplierID }
	if po.OrderDate == "" { po.OrderDate = prev.OrderDate }
	if po.ExpectedDate == "" { po.ExpectedDate = prev.ExpectedDate }
	if ve := validatePurchaseOrder(&po); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}

	approving, err := stock.ApprovalEdge(prev.Status, po.Status)
	if err != nil {
		if errors.Is(err, stock.ErrAlreadyApproved) {
			jsonErr(w, "purchase order is already approved", 409)
			return
		}
		jsonErr(w, err.Error(), 409)
		return
	}

	replaceItems := po.Items != nil
	if approving && replaceItems {
		jsonErr(w, "cannot change line items while approving", 400)
		return
	}
	if !replaceItems {
		items, err := loadPOItems(id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		po.Items = items
	}
	if code, msg := computePOTotals(&po); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	approvedAt := prev.ApprovedAt
	if approving {
		ts := time.Now().Format("2006-01-02 15:04:05")
		approvedAt = &ts
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	// When approving, the status guard makes the pending->approved edge
	// atomic: a concurrent approval of the same order loses the race and
	// matches zero rows instead of receiving stock a second time.
	query := `UPDATE purchase_orders SET supplier_id=?,status=?,order_date=?,expected_date=?,
		subtotal=?,tax=?,total=?,notes=?,approved_at=? WHERE id=?`
	if approving {
		query += " AND status='pending'"
	}
	res, err := tx.Exec(query,
		po.SupplierID, po.Status, po.OrderDate, po.ExpectedDate,
		po.Subtotal, po.Tax, po.Total, po.Notes, approvedAt, id)
	if err == nil && approving {
		if n, raErr := res.RowsAffected(); raErr != nil {
			err = raErr
		} else if n == 0 {
			tx.Rollback()
			jsonErr(w, "purchase order is already approved", 409)
			return
		}
	}
	if err == nil && replaceItems {
		_, err = tx.Exec("DELETE FROM purchase_order_items WHERE po_id=?", id)
		if err == nil {
			for _, l := range po.Items {
				_, err = tx.Exec(`INSERT INTO purchase_order_items (po_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
					VALUES (?,?,?,?,?,?,?)`,
					id, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
				if err != nil {
					break
				}
			}
		}
	}
	if err == nil && approving {
		err = stock.ApplyPurchaseOrder(tx, id, po.Items)
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	if approving {
		logAudit(getUsername(r), audit.ActionApprove, "purchase_order", id, "Approved purchase order "+id)
	} else {
		logAudit(getUsername(r), audit.ActionUpdate, "purchase_order", id, "Updated purchase order "+id)
	}
	handleGetPurchaseOrder(w, r, id)
}

func handleDeletePurchaseOrder(w http.ResponseWriter, r *http.Request, id string) {
	po, err := scanPurchaseOrder(db.QueryRow("SELECT "+poCols+" FROM purchase_orders WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	if po.Status == "approved" || po.Status == "shipped" || po.Status == "delivered" {
		jsonErr(w, "cannot delete a purchase order after approval", 400)
		return
	}
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec("DELETE FROM purchase_order_items WHERE po_id=?", id)
	if err == nil {
		_, err = tx.Exec("DELETE FROM purchase_orders WHERE id=?", id)
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), audit.ActionDelete, "purchase_order", id, "Deleted purchase order "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
