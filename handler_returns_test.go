package main

import (
	"net/http"
	"sync"
	"testing"

	"wrench/internal/money"
	"wrench/internal/testutil"
)

func TestApproveReturnShipsStockBack(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 15)

	var ret Return
	mustCreate(t, token, "/api/returns", Return{
		SupplierID: supID,
		Reason:     "damaged in transit",
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 3, UnitPrice: money.MustParse("3.20")},
		},
	}, &ret)

	if got := ret.RefundAmount.String(); got != "9.60" {
		t.Errorf("refundAmount = %s, want 9.60", got)
	}
	if qty := itemQuantity(t, itemID); qty != 15 {
		t.Fatalf("stock moved before approval: %d", qty)
	}

	w := doRequest(t, token, http.MethodPut, "/api/returns/"+ret.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 200)

	if qty := itemQuantity(t, itemID); qty != 12 {
		t.Errorf("quantity = %d, want 12", qty)
	}
	var movementQty int
	db.QueryRow("SELECT qty FROM stock_movements WHERE item_id=? AND type='return'", itemID).Scan(&movementQty)
	if movementQty != -3 {
		t.Errorf("movement qty = %d, want -3", movementQty)
	}
}

func TestReapproveReturnIsRejected(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 15)

	var ret Return
	mustCreate(t, token, "/api/returns", Return{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 3, UnitPrice: money.MustParse("3.20")},
		},
	}, &ret)

	w := doRequest(t, token, http.MethodPut, "/api/returns/"+ret.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 200)
	w = doRequest(t, token, http.MethodPut, "/api/returns/"+ret.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 409)

	if qty := itemQuantity(t, itemID); qty != 12 {
		t.Errorf("quantity = %d after re-approval attempt, want 12", qty)
	}
}

func TestApproveReturnInsufficientStock(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 2)

	var ret Return
	mustCreate(t, token, "/api/returns", Return{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 3, UnitPrice: money.MustParse("3.20")},
		},
	}, &ret)

	w := doRequest(t, token, http.MethodPut, "/api/returns/"+ret.ID, map[string]string{"status": "approved"})
	testutil.AssertStatus(t, w, 400)

	if qty := itemQuantity(t, itemID); qty != 2 {
		t.Errorf("quantity = %d after failed approval, want 2", qty)
	}
	var status string
	db.QueryRow("SELECT status FROM returns WHERE id=?", ret.ID).Scan(&status)
	if status != "pending" {
		t.Errorf("status = %s after failed approval, want pending", status)
	}
}

func TestDeleteNonPendingReturnRefused(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 15)

	var ret Return
	mustCreate(t, token, "/api/returns", Return{
		SupplierID: supID,
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 3, UnitPrice: money.MustParse("3.20")},
		},
	}, &ret)
	doRequest(t, token, http.MethodPut, "/api/returns/"+ret.ID, map[string]string{"status": "approved"})

	w := doRequest(t, token, http.MethodDelete, "/api/returns/"+ret.ID, nil)
	testutil.AssertStatus(t, w, 400)
}

func TestConcurrentReturnApprovalsShipStockOnce(t *testing.T) {
	token := setupTest(t)
	supID, itemID := createSupplierAndItem(t, token, 15)

	var ret Return
	mustCreate(t, token, "/api/returns", Return{
		SupplierID: supID,
		Reason:     "damaged in transit",
		Items: []LineItem{
			{InventoryItemID: itemID, PartName: "Oil filter", Quantity: 3, UnitPrice: money.MustParse("3.20")},
		},
	}, &ret)

	const racers = 4
	codes := make(chan int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doRequest(t, token, http.MethodPut, "/api/returns/"+ret.ID, map[string]string{"status": "approved"})
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
	if qty := itemQuantity(t, itemID); qty != 12 {
		t.Errorf("quantity = %d, want 12", qty)
	}
	var movements int
	db.QueryRow("SELECT COUNT(*) FROM stock_movements WHERE item_id=? AND type='return'", itemID).Scan(&movements)
	if movements != 1 {
		t.Errorf("expected 1 movement, got %d", movements)
	}
}
