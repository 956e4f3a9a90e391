package main

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"wrench/internal/money"
	"wrench/internal/testutil"
)

func TestCreateQuoteComputesTotals(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var q Quote
	mustCreate(t, token, "/api/quotes", Quote{
		CustomerID:  custID,
		VehicleID:   vehID,
		Description: "Front brake overhaul",
		LaborHours:  decimal.NewFromFloat(1.5),
		LaborRate:   money.MustParse("47.50"),
		QuoteParts: []LineItem{
			{PartName: "Brake pads", Quantity: 1, UnitPrice: money.MustParse("35.00")},
		},
	}, &q)

	if q.Status != "draft" {
		t.Errorf("status = %s, want draft", q.Status)
	}
	if got := q.LaborTotal.String(); got != "71.25" {
		t.Errorf("laborTotal = %s, want 71.25", got)
	}
	if got := q.TotalAmount.String(); got != "106.25" {
		t.Errorf("totalAmount = %s, want 106.25", got)
	}
}

func TestAcceptQuoteCreatesJob(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var q Quote
	mustCreate(t, token, "/api/quotes", Quote{
		CustomerID: custID,
		VehicleID:  vehID,
		LaborHours: decimal.NewFromInt(2),
		LaborRate:  money.MustParse("50.00"),
		QuoteParts: []LineItem{
			{PartName: "Alternator", Quantity: 1, UnitPrice: money.MustParse("120.00")},
		},
	}, &q)

	w := doRequest(t, token, http.MethodPost, "/api/quotes/"+q.ID+"/accept", nil)
	testutil.AssertStatus(t, w, 200)
	var result map[string]string
	testutil.DecodeEnvelope(t, w, &result)
	jobID := result["jobId"]
	if jobID == "" {
		t.Fatal("expected a jobId")
	}

	w = doRequest(t, token, http.MethodGet, "/api/jobs/"+jobID, nil)
	testutil.AssertStatus(t, w, 200)
	var job Job
	testutil.DecodeEnvelope(t, w, &job)
	if got := job.TotalAmount.String(); got != "220.00" {
		t.Errorf("job total = %s, want 220.00", got)
	}
	if len(job.JobParts) != 1 {
		t.Errorf("expected parts carried over, got %d", len(job.JobParts))
	}

	w = doRequest(t, token, http.MethodGet, "/api/quotes/"+q.ID, nil)
	var accepted Quote
	testutil.DecodeEnvelope(t, w, &accepted)
	if accepted.Status != "accepted" || accepted.JobID != jobID || accepted.AcceptedAt == nil {
		t.Errorf("quote after accept = %+v", accepted)
	}

	// Accepting twice must not create a second job
	w = doRequest(t, token, http.MethodPost, "/api/quotes/"+q.ID+"/accept", nil)
	testutil.AssertStatus(t, w, 409)
	var jobCount int
	db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&jobCount)
	if jobCount != 1 {
		t.Errorf("expected 1 job, got %d", jobCount)
	}
}

func TestAcceptQuoteWithoutVehicleRejected(t *testing.T) {
	token := setupTest(t)
	custID, _ := createCustomerAndVehicle(t, token)

	var q Quote
	mustCreate(t, token, "/api/quotes", Quote{CustomerID: custID}, &q)

	w := doRequest(t, token, http.MethodPost, "/api/quotes/"+q.ID+"/accept", nil)
	testutil.AssertStatus(t, w, 400)
}
