package main

import (
	"net/http"
	"sync"
	"testing"

	"wrench/internal/money"
	"wrench/internal/testutil"
)

func createSupplierAndItem(t *testing.T, token string, qty int) (string, string) {
	t.Helper()
	var s Supplier
	mustCreate(t, token, "/api/suppliers", Supplier{Name: "Euro Car Parts"}, &s)
	var item InventoryItem
	mustCreate(t, token, "/api/inventory", InventoryItem{
		Name:       "Oil filter",
		PartNumber: "OF-1042",
		Quantity:   qty,
		CostPrice:  money.MustParse("3.20"),
		SupplierID: s.ID,
	}, &item)
	return s.ID, item.ID
}

func itemQuantity(t *testing.T, itemID string) int {
	t.Helper()
	var qty int
	if err := db.QueryRow("SELECT quantity FROM inventory_items WHERE id=?", itemID).Scan(&qty); err != nil {
		t.Fatalf("quantity lookup failed: %v", err)
	}
	return qty
}

func TestApprovePurchaseOrderReceivesStock(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 10)

	var po PurchaseOrder
	mustCreate(t, token, "/api/purchase-orders", PurchaseOrder{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 5, UnitPrice: money.MustParse("3.20")},
		},
	}, &po)

	if got := po.Subtotal.String(); got != "16.00" {
		t.Errorf("subtotal = %s, want 16.00", got)
	}
	if got := po.Tax.String(); got != "3.20" {
		t.Errorf("tax = %s, want 3.20", got)
	}
	if got := po.Total.String(); got != "19.20" {
		t.Errorf("total = %s, want 19.20", got)
	}
	if qty := itemQuantity(t, itemID); qty != 10 {
		t.Fatalf("stock moved before approval: %d", qty)
	}

	w := doRequest(t, token, http.MethodPut, "/api/purchase-orders/"+po.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 200)
	var approved PurchaseOrder
	testutil.DecodeEnvelope(t, w, &approved)
	if approved.ApprovedAt == nil {
		t.Error("expected approvedAt to be set")
	}
	if qty := itemQuantity(t, itemID); qty != 15 {
		t.Errorf("quantity = %d, want 15", qty)
	}

	var movements int
	db.QueryRow("SELECT COUNT(*) FROM stock_movements WHERE item_id=? AND type='purchase_order'", itemID).Scan(&movements)
	if movements != 1 {
		t.Errorf("expected 1 movement, got %d", movements)
	}
}

func TestReapprovePurchaseOrderIsRejected(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 10)

	var po PurchaseOrder
	mustCreate(t, token, "/api/purchase-orders", PurchaseOrder{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 5, UnitPrice: money.MustParse("3.20")},
		},
	}, &po)

	w := doRequest(t, token, http.MethodPut, "/api/purchase-orders/"+po.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 200)

	w = doRequest(t, token, http.MethodPut, "/api/purchase-orders/"+po.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 409)

	if qty := itemQuantity(t, itemID); qty != 15 {
		t.Errorf("quantity = %d after re-approval attempt, want 15", qty)
	}
}

func TestCreatePurchaseOrderCannotStartApproved(t *testing.T) {
	token := setupTest(t)
	supID, _ := createSupplierAndItem(t, token, 10)

	w := doRequest(t, token, http.MethodPost, "/api/purchase-orders", PurchaseOrder{
		SupplierID: supID,
		Status:     "approved",
	})
	testutil.AssertStatus(t, w, 400)
}

func TestApprovalRollsBackWhenItemMissing(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 10)

	var po PurchaseOrder
	mustCreate(t, token, "/api/purchase-orders", PurchaseOrder{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 5, UnitPrice: money.MustParse("3.20")},
			{InventoryItemID: "INV-9999", PartName: "Ghost part", Quantity: 1, UnitPrice: money.MustParse("1.00")},
		},
	}, &po)

	w := doRequest(t, token, http.MethodPut, "/api/purchase-orders/"+po.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 500)

	if qty := itemQuantity(t, itemID); qty != 10 {
		t.Errorf("quantity = %d after failed approval, want 10", qty)
	}
	var status string
	db.QueryRow("SELECT status FROM purchase_orders WHERE id=?", po.ID).Scan(&status)
	if status != "pending" {
		t.Errorf("status = %s after failed approval, want pending", status)
	}
}

func TestDeleteApprovedPurchaseOrderRefused(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 10)

	var po PurchaseOrder
	mustCreate(t, token, "/api/purchase-orders", PurchaseOrder{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 5, UnitPrice: money.MustParse("3.20")},
		},
	}, &po)
	doRequest(t, token, http.MethodPut, "/api/purchase-orders/"+po.ID, map[string]string{"status": "approved"})

	w := doRequest(t, token, http.MethodDelete, "/api/purchase-orders/"+po.ID, nil)
	testutil.AssertStatus(t, w, 400)
}

func TestConcurrentApprovalsReceiveStockOnce(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 10)

	var po PurchaseOrder
	mustCreate(t, token, "/api/purchase-orders", PurchaseOrder{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 5, UnitPrice: money.MustParse("3.20")},
		},
	}, &po)

	const racers = 4
	codes := make(chan int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doRequest(t, token, http.MethodPut, "/api/purchase-orders/"+po.ID, map[string]string{"status": "approved"})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	succeeded := 0
	for code := range codes {
		if code == 200 {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("successful approvals = %d, want 1", succeeded)
	}
	if qty := itemQuantity(t, itemID); qty != 15 {
		t.Errorf("quantity = %d, want 15", qty)
	}
	var movements int
	db.QueryRow("SELECT COUNT(*) FROM stock_movements WHERE item_id=? AND type='purchase_order'", itemID).Scan(&movements)
	if movements != 1 {
		t.Errorf("expected 1 movement, got %d", movements)
	}
}
