package main

import (
	"net/http"
	"strings"
	"testing"

	"wrench/internal/money"
	"wrench/internal/testutil"
)

func TestExportInventoryCSV(t *testing.T) {
	token := setupTest(t)

	mustCreate(t, token, "/api/inventory", InventoryItem{
		Name:        "Brake pads",
		PartNumber:  "BP-220",
		Category:    "brakes",
		Quantity:    3,
		CostPrice:   money.MustParse("12.00"),
		RetailPrice: money.MustParse("24.00"),
	}, nil)

	w := doRequest(t, token, http.MethodGet, "/api/inventory/export?format=csv", nil)
	testutil.AssertStatus(t, w, 200)
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "csv") {
		t.Errorf("content type = %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "BP-220") || !strings.Contains(body, "12.00") {
		t.Errorf("csv missing item data: %s", body)
	}
}

func TestExportInventoryExcel(t *testing.T) {
	token := setupTest(t)

	mustCreate(t, token, "/api/inventory", InventoryItem{Name: "Brake pads", PartNumber: "BP-220"}, nil)

	w := doRequest(t, token, http.MethodGet, "/api/inventory/export?format=xlsx", nil)
	testutil.AssertStatus(t, w, 200)
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheet") {
		t.Errorf("content type = %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected xlsx bytes")
	}
}
