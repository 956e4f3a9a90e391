package main

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"wrench/internal/money"
	"wrench/internal/testutil"
)

func createCustomerAndVehicle(t *testing.T, token string) (string, string) {
	t.Helper()
	var c Customer
	mustCreate(t, token, "/api/customers", Customer{FirstName: "Sarah", LastName: "Hughes", Phone: "07700900123"}, &c)
	var v Vehicle
	mustCreate(t, token, "/api/vehicles", Vehicle{CustomerID: c.ID, Make: "Ford", Model: "Focus", Year: 2018, Registration: "AB18 XYZ"}, &v)
	return c.ID, v.ID
}

func TestCreateJobComputesTotals(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{
		CustomerID:  custID,
		VehicleID:   vehID,
		Description: "Oil change",
		LaborHours:  decimal.NewFromInt(1),
		LaborRate:   money.MustParse("50.00"),
		JobParts: []LineItem{
			{PartName: "Oil filter", Quantity: 1, UnitPrice: money.MustParse("8.00")},
			{PartName: "Engine oil 5W30", Quantity: 2, UnitPrice: money.MustParse("4.00")},
		},
	}, &job)

	if got := job.PartsTotal.String(); got != "16.00" {
		t.Errorf("partsTotal = %s, want 16.00", got)
	}
	if got := job.LaborTotal.String(); got != "50.00" {
		t.Errorf("laborTotal = %s, want 50.00", got)
	}
	if got := job.TotalAmount.String(); got != "66.00" {
		t.Errorf("totalAmount = %s, want 66.00", got)
	}
	if len(job.JobParts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(job.JobParts))
	}
	if got := job.JobParts[1].TotalPrice.String(); got != "8.00" {
		t.Errorf("line total = %s, want 8.00", got)
	}
	if job.Status != "scheduled" {
		t.Errorf("status = %s, want scheduled", job.Status)
	}
}

func TestCreateJobRejectsMismatchedTotal(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	w := doRequest(t, token, http.MethodPost, "/api/jobs", Job{
		CustomerID:  custID,
		VehicleID:   vehID,
		LaborHours:  decimal.NewFromInt(1),
		LaborRate:   money.MustParse("50.00"),
		TotalAmount: money.MustParse("99.99"),
		JobParts:    []LineItem{{PartName: "Oil filter", Quantity: 1, UnitPrice: money.MustParse("8.00")}},
	})
	testutil.AssertStatus(t, w, 400)
}

func TestCreateJobRejectsNonPositiveQuantity(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	w := doRequest(t, token, http.MethodPost, "/api/jobs", Job{
		CustomerID: custID,
		VehicleID:  vehID,
		JobParts:   []LineItem{{PartName: "Oil filter", Quantity: 0, UnitPrice: money.MustParse("8.00")}},
	})
	testutil.AssertStatus(t, w, 400)
}

func TestCreateJobUsesDefaultLaborRate(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{
		CustomerID: custID,
		VehicleID:  vehID,
		LaborHours: decimal.NewFromFloat(1.5),
	}, &job)

	// Seeded default rate is 50.00
	if got := job.LaborTotal.String(); got != "75.00" {
		t.Errorf("laborTotal = %s, want 75.00", got)
	}
}

func TestUpdateJobKeepsPartsWhenOmitted(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{
		CustomerID: custID,
		VehicleID:  vehID,
		JobParts:   []LineItem{{PartName: "Brake pads", Quantity: 1, UnitPrice: money.MustParse("35.00")}},
	}, &job)

	w := doRequest(t, token, http.MethodPut, "/api/jobs/"+job.ID, map[string]interface{}{
		"description": "Front brakes",
	})
	testutil.AssertStatus(t, w, 200)
	var updated Job
	testutil.DecodeEnvelope(t, w, &updated)
	if len(updated.JobParts) != 1 {
		t.Fatalf("expected parts kept, got %d", len(updated.JobParts))
	}
	if got := updated.PartsTotal.String(); got != "35.00" {
		t.Errorf("partsTotal = %s, want 35.00", got)
	}
}

func TestUpdateJobCompletedSetsCompletedDate(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{CustomerID: custID, VehicleID: vehID}, &job)

	w := doRequest(t, token, http.MethodPut, "/api/jobs/"+job.ID, map[string]interface{}{
		"status": "completed",
	})
	testutil.AssertStatus(t, w, 200)
	var updated Job
	testutil.DecodeEnvelope(t, w, &updated)
	if updated.CompletedDate == nil || *updated.CompletedDate == "" {
		t.Error("expected completedDate to be set")
	}
}

func TestScheduleJob(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{CustomerID: custID, VehicleID: vehID}, &job)

	w := doRequest(t, token, http.MethodPut, "/api/jobs/"+job.ID+"/schedule", map[string]string{
		"scheduledDate": "2026-09-01",
		"scheduledTime": "09:30",
		"bay":           "2",
	})
	testutil.AssertStatus(t, w, 200)
	var updated Job
	testutil.DecodeEnvelope(t, w, &updated)
	if updated.ScheduledDate != "2026-09-01" || updated.ScheduledTime != "09:30" || updated.Bay != "2" {
		t.Errorf("schedule not applied: %+v", updated)
	}
}

func TestJobsCalendar(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{CustomerID: custID, VehicleID: vehID, ScheduledDate: "2026-09-01"}, &job)
	var cancelled Job
	mustCreate(t, token, "/api/jobs", Job{CustomerID: custID, VehicleID: vehID, ScheduledDate: "2026-09-01"}, &cancelled)
	doRequest(t, token, http.MethodPut, "/api/jobs/"+cancelled.ID, map[string]string{"status": "cancelled"})

	w := doRequest(t, token, http.MethodGet, "/api/jobs/calendar?date=2026-09-01", nil)
	testutil.AssertStatus(t, w, 200)
	var feed struct {
		Date string `json:"date"`
		Jobs []Job  `json:"jobs"`
	}
	testutil.DecodeEnvelope(t, w, &feed)
	if feed.Date != "2026-09-01" {
		t.Errorf("date = %s", feed.Date)
	}
	if len(feed.Jobs) != 1 {
		t.Errorf("expected cancelled job excluded, got %d jobs", len(feed.Jobs))
	}
}

func TestDeleteJobRemovesParts(t *testing.T) {
	token := setupTest(t)
	custID, vehID := createCustomerAndVehicle(t, token)

	var job Job
	mustCreate(t, token, "/api/jobs", Job{
		CustomerID: custID,
		VehicleID:  vehID,
		JobParts:   []LineItem{{PartName: "Wiper blade", Quantity: 2, UnitPrice: money.MustParse("6.50")}},
	}, &job)

	w := doRequest(t, token, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	testutil.AssertStatus(t, w, 200)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM job_parts WHERE job_id=?", job.ID).Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 orphan parts, got %d", count)
	}
	w = doRequest(t, token, http.MethodGet, "/api/jobs/"+job.ID, nil)
	testutil.AssertStatus(t, w, 404)
}
