package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"wrench/internal/models"
	"wrench/internal/testutil"
)

func TestCustomerCRUD(t *testing.T) {
	token := setupTest(t)

	var c Customer
	mustCreate(t, token, "/api/customers", Customer{FirstName: "Sarah", LastName: "Hughes", Email: "sarah@example.com"}, &c)
	if c.ID == "" {
		t.Fatal("expected generated id")
	}

	w := doRequest(t, token, http.MethodPut, "/api/customers/"+c.ID, Customer{FirstName: "Sarah", LastName: "Hughes-Brown", Email: "sarah@example.com"})
	testutil.AssertStatus(t, w, 200)
	var updated Customer
	testutil.DecodeEnvelope(t, w, &updated)
	if updated.LastName != "Hughes-Brown" {
		t.Errorf("lastName = %s", updated.LastName)
	}

	w = doRequest(t, token, http.MethodGet, "/api/customers?search=hughes", nil)
	var found []Customer
	testutil.DecodeEnvelope(t, w, &found)
	if len(found) != 1 {
		t.Errorf("search returned %d customers", len(found))
	}

	w = doRequest(t, token, http.MethodDelete, "/api/customers/"+c.ID, nil)
	testutil.AssertStatus(t, w, 200)
	w = doRequest(t, token, http.MethodGet, "/api/customers/"+c.ID, nil)
	testutil.AssertStatus(t, w, 404)
}

func TestCustomerValidation(t *testing.T) {
	token := setupTest(t)

	w := doRequest(t, token, http.MethodPost, "/api/customers", Customer{FirstName: "NoLastName"})
	testutil.AssertStatus(t, w, 400)

	w = doRequest(t, token, http.MethodPost, "/api/customers", Customer{FirstName: "Bad", LastName: "Email", Email: "not-an-email"})
	testutil.AssertStatus(t, w, 400)
}

func TestDeleteCustomerWithVehicleRefused(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	w := doRequest(t, token, http.MethodDelete, "/api/customers/"+custID, nil)
	testutil.AssertStatus(t, w, 400)

	// Removing the vehicle frees the customer
	w = doRequest(t, token, http.MethodDelete, "/api/vehicles/"+vehID, nil)
	testutil.AssertStatus(t, w, 200)
	w = doRequest(t, token, http.MethodDelete, "/api/customers/"+custID, nil)
	testutil.AssertStatus(t, w, 200)
}

func TestDeleteVehicleWithJobsRefused(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	mustCreate(t, token, "/api/jobs", Job{CustomerID: custID, VehicleID: vehID}, nil)

	w := doRequest(t, token, http.MethodDelete, "/api/vehicles/"+vehID, nil)
	testutil.AssertStatus(t, w, 400)
}

func TestVehicleCreateUnknownCustomer(t *testing.T) {
	token := setupTest(t)

	w := doRequest(t, token, http.MethodPost, "/api/vehicles", Vehicle{CustomerID: "CUS-2026-9999", Make: "Ford", Model: "Focus"})
	testutil.AssertStatus(t, w, 400)
}

func TestSupplierStatusFilter(t *testing.T) {
	token := setupTest(t)

	mustCreate(t, token, "/api/suppliers", Supplier{Name: "Euro Car Parts", Status: "preferred"}, nil)
	mustCreate(t, token, "/api/suppliers", Supplier{Name: "GSF Car Parts"}, nil)

	w := doRequest(t, token, http.MethodGet, "/api/suppliers?status=preferred", nil)
	var suppliers []Supplier
	testutil.DecodeEnvelope(t, w, &suppliers)
	if len(suppliers) != 1 || suppliers[0].Name != "Euro Car Parts" {
		t.Errorf("status filter returned %+v", suppliers)
	}
}

func TestCustomerPagination(t *testing.T) {
	token := setupTest(t)

	names := []string{"Atkins", "Burton", "Chandra", "Dawes", "Ellis"}
	for _, n := range names {
		mustCreate(t, token, "/api/customers", Customer{FirstName: "Test", LastName: n}, nil)
	}

	w := doRequest(t, token, http.MethodGet, "/api/customers?limit=2&page=2", nil)
	testutil.AssertStatus(t, w, 200)
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta == nil {
		t.Fatal("expected pagination meta")
	}
	if resp.Meta.Total != 5 || resp.Meta.Page != 2 || resp.Meta.Limit != 2 {
		t.Errorf("meta = %+v", resp.Meta)
	}
	var page []Customer
	raw, _ := json.Marshal(resp.Data)
	json.Unmarshal(raw, &page)
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].LastName != "Chandra" || page[1].LastName != "Dawes" {
		t.Errorf("page = %s, %s", page[0].LastName, page[1].LastName)
	}

	w = doRequest(t, token, http.MethodGet, "/api/customers?limit=0", nil)
	testutil.AssertStatus(t, w, 400)
	w = doRequest(t, token, http.MethodGet, "/api/customers?limit=2&page=-1", nil)
	testutil.AssertStatus(t, w, 400)
}
