// Package stock implements the low-stock classifier and the purchase
// order / return stock reconciler. All quantity changes happen inside a
// caller-supplied transaction as single "quantity = quantity + delta"
// statements, so concurrent approvals cannot lose updates.
package stock

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wrench/internal/models"
)

// Stock level facets.
const (
	LevelInStock    = "in_stock"
	LevelLowStock   = "low_stock"
	LevelOutOfStock = "out_of_stock"
)

// Movement types recorded in stock_movements.
const (
	MovementPurchaseOrder = "purchase_order"
	MovementReturn        = "return"
	MovementAdjustment    = "adjustment"
)

var (
	ErrAlreadyApproved   = errors.New("already approved")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// IsLow reports whether an item counts as low stock: tracking enabled and
// quantity at or below its threshold.
func IsLow(i models.InventoryItem) bool {
	return i.TrackStock && i.Quantity <= i.LowStockThreshold
}

// Level classifies an item into a stock-level facet. Items without stock
// tracking are always in_stock; out_of_stock wins over low_stock.
func Level(i models.InventoryItem) string {
	if !i.TrackStock {
		return LevelInStock
	}
	if i.Quantity == 0 {
		return LevelOutOfStock
	}
	if i.Quantity <= i.LowStockThreshold {
		return LevelLowStock
	}
	return LevelInStock
}

// ApprovalEdge reports whether a status change is the genuine
// pending -> approved transition that triggers reconciliation. Asking to
// approve an order that already left pending is an error, never a silent
// re-apply.
func ApprovalEdge(prev, next string) (bool, error) {
	if next != "approved" {
		return false, nil
	}
	if prev == "approved" {
		return false, ErrAlreadyApproved
	}
	if prev != "pending" {
		return false, fmt.Errorf("%w: %s -> approved", ErrInvalidTransition, prev)
	}
	return true, nil
}

// ApplyPurchaseOrder increments inventory by the ordered quantity for every
// line item bound to an inventory record, and writes a movement row per
// adjustment. Runs entirely within tx; the caller commits or rolls back.
func ApplyPurchaseOrder(tx *sql.Tx, orderID string, items []models.LineItem) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	for _, it := range items {
		if it.InventoryItemID == "" {
			continue
		}
		res, err := tx.Exec("UPDATE inventory_items SET quantity=quantity+?,updated_at=? WHERE id=?",
			it.Quantity, now, it.InventoryItemID)
		if err != nil {
			return fmt.Errorf("increment %s: %w", it.InventoryItemID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("inventory item %s not found", it.InventoryItemID)
		}
		if _, err := tx.Exec("INSERT INTO stock_movements (item_id,type,qty,reference,created_at) VALUES (?,?,?,?,?)",
			it.InventoryItemID, MovementPurchaseOrder, it.Quantity, orderID, now); err != nil {
			return fmt.Errorf("record movement for %s: %w", it.InventoryItemID, err)
		}
	}
	return nil
}

// ApplyReturn decrements inventory by the returned quantity for every bound
// line item. A decrement that would take an item below zero fails the whole
// transaction; nothing is partially applied.
func ApplyReturn(tx *sql.Tx, returnID string, items []models.LineItem) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	for _, it := range items {
		if it.InventoryItemID == "" {
			continue
		}
		res, err := tx.Exec("UPDATE inventory_items SET quantity=quantity-?,updated_at=? WHERE id=? AND quantity>=?",
			it.Quantity, now, it.InventoryItemID, it.Quantity)
		if err != nil {
			return fmt.Errorf("decrement %s: %w", it.InventoryItemID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists int
			if err := tx.QueryRow("SELECT COUNT(*) FROM inventory_items WHERE id=?", it.InventoryItemID).Scan(&exists); err == nil && exists == 0 {
				return fmt.Errorf("inventory item %s not found", it.InventoryItemID)
			}
			return fmt.Errorf("%w: item %s", ErrInsufficientStock, it.InventoryItemID)
		}
		if _, err := tx.Exec("INSERT INTO stock_movements (item_id,type,qty,reference,created_at) VALUES (?,?,?,?,?)",
			it.InventoryItemID, MovementReturn, -it.Quantity, returnID, now); err != nil {
			return fmt.Errorf("record movement for %s: %w", it.InventoryItemID, err)
		}
	}
	return nil
}

// Adjust applies a manual delta to one item and records the movement.
// A negative delta below available stock fails.
func Adjust(tx *sql.Tx, itemID string, delta int, reference, notes string) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := tx.Exec("UPDATE inventory_items SET quantity=quantity+?,updated_at=? WHERE id=? AND quantity+?>=0",
		delta, now, itemID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRow("SELECT COUNT(*) FROM inventory_items WHERE id=?", itemID).Scan(&exists); err == nil && exists == 0 {
			return fmt.Errorf("inventory item %s not found", itemID)
		}
		return fmt.Errorf("%w: item %s", ErrInsufficientStock, itemID)
	}
	_, err = tx.Exec("INSERT INTO stock_movements (item_id,type,qty,reference,notes,created_at) VALUES (?,?,?,?,?,?)",
		itemID, MovementAdjustment, delta, reference, notes, now)
	return err
}
