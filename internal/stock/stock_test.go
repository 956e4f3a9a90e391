package stock

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"wrench/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE inventory_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			quantity INTEGER DEFAULT 0 CHECK(quantity >= 0),
			low_stock_threshold INTEGER DEFAULT 5,
			track_stock INTEGER DEFAULT 1,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE stock_movements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			type TEXT NOT NULL,
			qty INTEGER NOT NULL,
			reference TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("create tables: %v", err)
		}
	}
	return db
}

func insertItem(t *testing.T, db *sql.DB, id string, qty int) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO inventory_items (id,name,quantity) VALUES (?,?,?)", id, "Item "+id, qty); err != nil {
		t.Fatalf("insert item: %v", err)
	}
}

func itemQty(t *testing.T, db *sql.DB, id string) int {
	t.Helper()
	var qty int
	if err := db.QueryRow("SELECT quantity FROM inventory_items WHERE id=?", id).Scan(&qty); err != nil {
		t.Fatalf("query qty: %v", err)
	}
	return qty
}

func inTx(t *testing.T, db *sql.DB, fn func(*sql.Tx) error) error {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return nil
}

func TestLevel(t *testing.T) {
	cases := []struct {
		name string
		item models.InventoryItem
		want string
	}{
		{"at threshold is low", models.InventoryItem{TrackStock: true, Quantity: 5, LowStockThreshold: 5}, LevelLowStock},
		{"above threshold", models.InventoryItem{TrackStock: true, Quantity: 6, LowStockThreshold: 5}, LevelInStock},
		{"zero is out", models.InventoryItem{TrackStock: true, Quantity: 0, LowStockThreshold: 5}, LevelOutOfStock},
		{"untracked never low", models.InventoryItem{TrackStock: false, Quantity: 0, LowStockThreshold: 5}, LevelInStock},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Level(c.item); got != c.want {
				t.Errorf("Level = %q, want %q", got, c.want)
			}
		})
	}
}

func TestIsLow(t *testing.T) {
	if !IsLow(models.InventoryItem{TrackStock: true, Quantity: 5, LowStockThreshold: 5}) {
		t.Error("qty 5 at threshold 5 should be low")
	}
	if IsLow(models.InventoryItem{TrackStock: true, Quantity: 6, LowStockThreshold: 5}) {
		t.Error("qty 6 at threshold 5 should not be low")
	}
	if IsLow(models.InventoryItem{TrackStock: false, Quantity: 0, LowStockThreshold: 5}) {
		t.Error("untracked item should never be low")
	}
}

func TestApprovalEdge(t *testing.T) {
	if ok, err := ApprovalEdge("pending", "approved"); !ok || err != nil {
		t.Errorf("pending->approved: ok=%v err=%v", ok, err)
	}
	if ok, err := ApprovalEdge("approved", "approved"); ok || !errors.Is(err, ErrAlreadyApproved) {
		t.Errorf("approved->approved: ok=%v err=%v, want ErrAlreadyApproved", ok, err)
	}
	if ok, err := ApprovalEdge("cancelled", "approved"); ok || !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancelled->approved: ok=%v err=%v, want ErrInvalidTransition", ok, err)
	}
	// Non-approval transitions never reconcile and never error here.
	if ok, err := ApprovalEdge("approved", "shipped"); ok || err != nil {
		t.Errorf("approved->shipped: ok=%v err=%v", ok, err)
	}
	if ok, err := ApprovalEdge("pending", "cancelled"); ok || err != nil {
		t.Errorf("pending->cancelled: ok=%v err=%v", ok, err)
	}
}

func TestApplyPurchaseOrderIncrements(t *testing.T) {
	db := setupDB(t)
	insertItem(t, db, "INV-2026-0001", 10)

	items := []models.LineItem{{InventoryItemID: "INV-2026-0001", Quantity: 5}}
	if err := inTx(t, db, func(tx *sql.Tx) error {
		return ApplyPurchaseOrder(tx, "PO-2026-0001", items)
	}); err != nil {
		t.Fatalf("ApplyPurchaseOrder: %v", err)
	}

	if qty := itemQty(t, db, "INV-2026-0001"); qty != 15 {
		t.Errorf("quantity = %d, want 15", qty)
	}

	var movements int
	db.QueryRow("SELECT COUNT(*) FROM stock_movements WHERE item_id=? AND type=?", "INV-2026-0001", MovementPurchaseOrder).Scan(&movements)
	if movements != 1 {
		t.Errorf("movements = %d, want 1", movements)
	}
}

func TestApplyPurchaseOrderSkipsUnboundLines(t *testing.T) {
	db := setupDB(t)
	insertItem(t, db, "INV-2026-0001", 10)

	items := []models.LineItem{
		{InventoryItemID: "", PartName: "Free-text part", Quantity: 99},
		{InventoryItemID: "INV-2026-0001", Quantity: 2},
	}
	if err := inTx(t, db, func(tx *sql.Tx) error {
		return ApplyPurchaseOrder(tx, "PO-2026-0002", items)
	}); err != nil {
		t.Fatalf("ApplyPurchaseOrder: %v", err)
	}
	if qty := itemQty(t, db, "INV-2026-0001"); qty != 12 {
		t.Errorf("quantity = %d, want 12", qty)
	}
}

func TestApplyPurchaseOrderUnknownItem(t *testing.T) {
	db := setupDB(t)
	err := inTx(t, db, func(tx *sql.Tx) error {
		return ApplyPurchaseOrder(tx, "PO-2026-0003", []models.LineItem{{InventoryItemID: "INV-MISSING", Quantity: 1}})
	})
	if err == nil {
		t.Fatal("expected error for unknown inventory item")
	}
}

func TestApplyReturnDecrements(t *testing.T) {
	db := setupDB(t)
	insertItem(t, db, "INV-2026-0001", 15)

	items := []models.LineItem{{InventoryItemID: "INV-2026-0001", Quantity: 3}}
	if err := inTx(t, db, func(tx *sql.Tx) error {
		return ApplyReturn(tx, "RET-2026-0001", items)
	}); err != nil {
		t.Fatalf("ApplyReturn: %v", err)
	}
	if qty := itemQty(t, db, "INV-2026-0001"); qty != 12 {
		t.Errorf("quantity = %d, want 12", qty)
	}
}

func TestApplyReturnInsufficientStockRollsBack(t *testing.T) {
	db := setupDB(t)
	insertItem(t, db, "INV-2026-0001", 10)
	insertItem(t, db, "INV-2026-0002", 2)

	// First line succeeds, second would go negative; neither may stick.
	items := []models.LineItem{
		{InventoryItemID: "INV-2026-0001", Quantity: 4},
		{InventoryItemID: "INV-2026-0002", Quantity: 5},
	}
	err := inTx(t, db, func(tx *sql.Tx) error {
		return ApplyReturn(tx, "RET-2026-0002", items)
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}

	if qty := itemQty(t, db, "INV-2026-0001"); qty != 10 {
		t.Errorf("first item quantity = %d, want 10 (rolled back)", qty)
	}
	if qty := itemQty(t, db, "INV-2026-0002"); qty != 2 {
		t.Errorf("second item quantity = %d, want 2 (unchanged)", qty)
	}

	var movements int
	db.QueryRow("SELECT COUNT(*) FROM stock_movements").Scan(&movements)
	if movements != 0 {
		t.Errorf("movements = %d, want 0 after rollback", movements)
	}
}

func TestAdjust(t *testing.T) {
	db := setupDB(t)
	insertItem(t, db, "INV-2026-0001", 8)

	if err := inTx(t, db, func(tx *sql.Tx) error {
		return Adjust(tx, "INV-2026-0001", -3, "stocktake", "damaged units")
	}); err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if qty := itemQty(t, db, "INV-2026-0001"); qty != 5 {
		t.Errorf("quantity = %d, want 5", qty)
	}

	err := inTx(t, db, func(tx *sql.Tx) error {
		return Adjust(tx, "INV-2026-0001", -6, "stocktake", "")
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("got %v, want ErrInsufficientStock", err)
	}
}
