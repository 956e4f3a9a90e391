package main

import (
	"net/http"
	"time"

	"wrench/internal/audit"
	"wrench/internal/stock"
	"wrench/internal/validation"
)

const inventoryCols = "id,name,COALESCE(part_number,''),COALESCE(category,''),cost_price,retail_price,quantity,low_stock_threshold,track_stock,COALESCE(location,''),COALESCE(supplier_id,''),created_at,updated_at"

func scanInventoryItem(row interface{ Scan(...interface{}) error }) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(&i.ID, &i.Name, &i.PartNumber, &i.Category, &i.CostPrice, &i.RetailPrice,
		&i.Quantity, &i.LowStockThreshold, &i.TrackStock, &i.Location, &i.SupplierID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func validateInventoryItem(i *InventoryItem) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", i.Name)
	validation.ValidateNonNegativeInt(ve, "quantity", i.Quantity)
	validation.ValidateNonNegativeInt(ve, "lowStockThreshold", i.LowStockThreshold)
	if i.CostPrice.IsNegative() {
		ve.Add("costPrice", "must be non-negative")
	}
	if i.RetailPrice.IsNegative() {
		ve.Add("retailPrice", "must be non-negative")
	}
	return ve
}

func listInventory(w http.ResponseWriter, r *http.Request) ([]InventoryItem, bool) {
	query := "SELECT " + inventoryCols + " FROM inventory_items WHERE 1=1"
	var args []interface{}
	if category := r.URL.Query().Get("category"); category != "" {
		query += " AND category=?"
		args = append(args, category)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query += " AND (name LIKE ? OR part_number LIKE ?)"
		term := "%" + search + "%"
		args = append(args, term, term)
	}
	query += " ORDER BY name"
	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return nil, false
	}
	defer rows.Close()

	level := r.URL.Query().Get("stock_level")
	items := []InventoryItem{}
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			continue
		}
		i.StockLevel = stock.Level(i)
		if level != "" && i.StockLevel != level {
			continue
		}
		items = append(items, i)
	}
	return items, true
}

func handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, ok := listInventory(w, r)
	if !ok {
		return
	}
	jsonResp(w, items)
}

func handleLowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query("SELECT " + inventoryCols + " FROM inventory_items WHERE track_stock=1 AND quantity <= low_stock_threshold ORDER BY name")
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []InventoryItem{}
	for rows.Next() {
		if i, err := scanInventoryItem(rows); err == nil {
			i.StockLevel = stock.Level(i)
			items = append(items, i)
		}
	}
	jsonResp(w, items)
}

func handleGetInventoryItem(w http.ResponseWriter, r *http.Request, id string) {
	i, err := scanInventoryItem(db.QueryRow("SELECT "+inventoryCols+" FROM inventory_items WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	i.StockLevel = stock.Level(i)
	jsonResp(w, i)
}

func handleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	i := InventoryItem{LowStockThreshold: 5, TrackStock: true}
	if err := decodeBody(r, &i); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateInventoryItem(&i); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	i.ID = nextID("INV", "inventory_items", 4)
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(`INSERT INTO inventory_items (id,name,part_number,category,cost_price,retail_price,quantity,low_stock_threshold,track_stock,location,supplier_id,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		i.ID, i.Name, i.PartNumber, i.Category, i.CostPrice, i.RetailPrice, i.Quantity, i.LowStockThreshold, i.TrackStock, i.Location, i.SupplierID, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	i.CreatedAt, i.UpdatedAt = now, now
	i.StockLevel = stock.Level(i)
	logAudit(getUsername(r), audit.ActionCreate, "inventory", i.ID, "Created item "+i.Name)
	w.WriteHeader(201)
	jsonResp(w, i)
}

func handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request, id string) {
	var i InventoryItem
	if err := decodeBody(r, &i); err != nil { jsonErr(w, "invalid body", 400); return }
	if ve := validateInventoryItem(&i); ve.HasErrors() {
		jsonValidationErr(w, ve)
		return
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := db.Exec(`UPDATE inventory_items SET name=?,part_number=?,category=?,cost_price=?,retail_price=?,quantity=?,low_stock_threshold=?,track_stock=?,location=?,supplier_id=?,updated_at=? WHERE id=?`,
		i.Name, i.PartNumber, i.Category, i.CostPrice, i.RetailPrice, i.Quantity, i.LowStockThreshold, i.TrackStock, i.Location, i.SupplierID, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionUpdate, "inventory", id, "Updated item "+id)
	handleGetInventoryItem(w, r, id)
}

func handleDeleteInventoryItem(w http.ResponseWriter, r *http.Request, id string) {
	res, err := db.Exec("DELETE FROM inventory_items WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }
	logAudit(getUsername(r), audit.ActionDelete, "inventory", id, "Deleted item "+id)
	jsonResp(w, map[string]string{"status": "deleted"})
}

// handleAdjustInventory applies a manual stock delta and records a movement.
func handleAdjustInventory(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Delta int    `json:"delta"`
		Notes string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil { jsonErr(w, "invalid body", 400); return }
	if body.Delta == 0 {
		jsonErr(w, "delta must be non-zero", 400)
		return
	}

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if err := stock.Adjust(tx, id, body.Delta, "manual", body.Notes); err != nil {
		tx.Rollback()
		jsonErr(w, err.Error(), 400)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(getUsername(r), audit.ActionUpdate, "inventory", id, "Adjusted stock by delta")
	handleGetInventoryItem(w, r, id)
}

func handleInventoryMovements(w http.ResponseWriter, r *http.Request, id string) {
	rows, err := db.Query("SELECT id,item_id,type,qty,COALESCE(reference,''),COALESCE(notes,''),created_at FROM stock_movements WHERE item_id=? ORDER BY created_at DESC", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []StockMovement{}
	for rows.Next() {
		var m StockMovement
		rows.Scan(&m.ID, &m.ItemID, &m.Type, &m.Qty, &m.Reference, &m.Notes, &m.CreatedAt)
		items = append(items, m)
	}
	jsonResp(w, items)
}
