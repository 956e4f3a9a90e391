package main

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/pricing"
	"wrench/internal/stock"
	"wrench/internal/validation"
)

const returnCols = `id,supplier_id,COALESCE(purchase_order_id,''),status,COALESCE(reason,''),
	refund_amount,COALESCE(notes,''),approved_at,created_at`

func scanReturn(row interface{ Scan(...interface{}) error }) (Return, error) {
	var ret Return
	var aa sql.NullString
	err := row.Scan(&ret.ID, &ret.SupplierID, &ret.PurchaseOrderID, &ret.Status, &ret.Reason,
		&ret.RefundAmount, &ret.Notes, &aa, &ret.CreatedAt)
	ret.ApprovedAt = sp(aa)
	return ret, err
}

func validateReturn(ret *Return) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "supplierId", ret.SupplierID)
	validation.ValidateEnum(ve, "status", ret.Status, validation.ValidReturnStatuses)
	return ve
}

func loadReturnItems(returnID string) ([]LineItem, error) {
	rows, err := db.Query(`SELECT id,return_id,COALESCE(inventory_item_id,''),part_name,COALESCE(part_number,''),quantity,unit_price,total_price
		FROM return_items WHERE return_id=? ORDER BY id`, returnID)
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

// computeReturnRefund recomputes each line and the refund from the lines.
// A client-supplied refundAmount is only a cross-check.
func computeReturnRefund(ret *Return) (int, string) {
	clientRefund := ret.RefundAmount
	refund, err := pricing.PartsTotal(ret.Items)
	if err != nil {
		return 400, err.Error()
	}
	if !pricing.Matches(clientRefund, refund) {
		return 400, "refundAmount does not match computed total " + refund.String()
	}
	ret.RefundAmount = refund
	return 0, ""
}

func handleListReturns(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + returnCols + " FROM returns"
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Return{}
	for rows.Next() {
		if ret, err := scanReturn(rows); err == nil {
			items = append(items, ret)
		}
	}
	jsonResp(w, items)
}

func handleGetReturn(w http.ResponseWriter, r *http.Request, id string) {
	ret, err := scanReturn(db.QueryRow("SELECT "+returnCols+" FROM returns WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	items, err := loadReturnItems(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	ret.Items = items
	jsonResp(w, ret)
}

func handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	var ret Return
	if err := decodeBody(r, &ret); err != nil { jsonErr(w, "invalid body", 400); return }
	if ret.Status == "" { ret.Status = "pending" }
	if ret.Status == "approved" {
		jsonErr(w, "returns must be created pending and approved separately", 400)
		return
	}
	if ve := validateReturn(&ret); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	var exists int
	db.QueryRow("SELECT COUNT(*) FROM suppliers WHERE id=?", ret.SupplierID).Scan(&exists)
	if exists == 0 { jsonErr(w, "supplier not found", 400); return }
	if ret.PurchaseOrderID != "" {
		db.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE id=?", ret.PurchaseOrderID).Scan(&exists)
		if exists == 0 { jsonErr(w, "purchase order not found", 400); return }
	}
	if code, msg := computeReturnRefund(&ret); code != 0 {
		jsonErr(w, msg, code)
		return
	}

	ret.ID = nextID("RET", "returns", 4)
	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec(`INSERT INTO returns (id,supplier_id,purchase_order_id,status,reason,refund_amount,notes,created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		ret.ID, ret.SupplierID, ret.PurchaseOrderID, ret.Status, ret.Reason, ret.RefundAmount, ret.Notes, now)
	if err == nil {
		for _, l := range ret.Items {
			_, err = tx.Exec(`INSERT INTO return_items (return_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
				VALUES (?,?,?,?,?,?,?)`,
				ret.ID, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
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

	logAudit(getUsername(r), audit.ActionCreate, "return", ret.ID, "Created return "+ret.ID)
	w.WriteHeader(201)
	handleGetReturn(w, r, ret.ID)
}

// handleUpdateReturn mirrors purchase order updates: the pending to
// approved edge ships the stock back out inside the same transaction,
// and a line short of stock rolls back the whole approval.
func handleUpdateReturn(w http.ResponseWriter, r *http.Request, id string) {
	prev, err := scanReturn(db.QueryRow("SELECT "+returnCols+" FROM returns WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var ret Return
	if err := decodeBody(r, &ret); err != nil { jsonErr(w, "invalid body", 400); return }
	if ret.Status == "" { ret.Status = prev.Status }
	if ret.SupplierID == "" { ret.SupplierID = prev.SupplierID }
	if ret.PurchaseOrderID == "" { ret.PurchaseOrderID = prev.PurchaseOrderID }
	if ret.Reason == "" { ret.Reason = prev.Reason }
	if ve := validateReturn(&ret); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}

	approving, err := stock.ApprovalEdge(prev.Status, ret.Status)
	if err != nil {
		if errors.Is(err, stock.ErrAlreadyApproved) {
			jsonErr(w, "return is already approved", 409)
			return
		}
		jsonErr(w, err.Error(), 409)
		return
	}

	replaceItems := ret.Items != nil
	if approving && replaceItems {
		jsonErr(w, "cannot change line items while approving", 400)
		return
	}
	if !replaceItems {
		items, err := loadReturnItems(id)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		ret.Items = items
	}
	if code, msg := computeReturnRefund(&ret); code != 0 {
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
	// Status guard keeps the pending->approved edge atomic under
	// concurrent approvals, same as purchase orders.
	query := `UPDATE returns SET supplier_id=?,purchase_order_id=?,status=?,reason=?,refund_amount=?,notes=?,approved_at=? WHERE id=?`
	if approving {
		query += " AND status='pending'"
	}
	res, err := tx.Exec(query,
		ret.SupplierID, ret.PurchaseOrderID, ret.Status, ret.Reason, ret.RefundAmount, ret.Notes, approvedAt, id)
	if err == nil && approving {
		if n, raErr := res.RowsAffected(); raErr != nil {
			err = raErr
		} else if n == 0 {
			tx.Rollback()
			jsonErr(w, "return is already approved", 409)
			return
		}
	}
	if err == nil && replaceItems {
		_, err = tx.Exec("DELETE FROM return_items WHERE return_id=?", id)
		if err == nil {
			for _, l := range ret.Items {
				_, err = tx.Exec(`INSERT INTO return_items (return_id,inventory_item_id,part_name,part_number,quantity,unit_price,total_price)
					VALUES (?,?,?,?,?,?,?)`,
					id, l.InventoryItemID, l.PartName, l.PartNumber, l.Quantity, l.UnitPrice, l.TotalPrice)
				if err != nil {
					break
				}
			}
		}
	}
	if err == nil && approving {
		err = stock.ApplyReturn(tx, id, ret.Items)
	}
	if err != nil {
		tx.Rollback()
		if errors.Is(err, stock.ErrInsufficientStock) {
			jsonErr(w, err.Error(), 400)
			return
		}
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	if approving {
		logAudit(getUsername(r), audit.ActionApprove, "return", id, "Approved return "+id)
	} else {
		logAudit(getUsername(r), audit.ActionUpdate, "return", id, "Updated return "+id)
	}
	handleGetReturn(w, r, id)
}

func handleDeleteReturn(w http.ResponseWriter, r *http.Request, id string) {
	ret, err := scanReturn(db.QueryRow("SELECT "+returnCols+" FROM returns WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	if ret.Status != "pending" {
		jsonErr(w, "only pending returns can be deleted", 400)
		return
	}
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	_, err = tx.Exec("DELETE FROM return_items WHERE return_id=?", id)
	if err == nil {
		_, err = tx.Exec("DELETE FROM returns WHERE id=?", id)
	}
	if err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }
	logAudit(getUsername(r), audit.ActionDelete, "return", id, "Deleted return "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
