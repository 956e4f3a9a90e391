package main

import (
	"net/http"
	"time"

	"wrench/internal/money"
)

// handleDashboardStats aggregates the workshop overview counters.
// Revenue is receipts taken this calendar month; outstanding is the
// total of completed jobs with no payment recorded.
func handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	var s DashboardStats
	today := time.Now().Format("2006-01-02")
	monthStart := time.Now().Format("2006-01") + "-01"

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&s.TotalCustomers, "SELECT COUNT(*) FROM customers", nil},
		{&s.TotalVehicles, "SELECT COUNT(*) FROM vehicles", nil},
		{&s.ActiveJobs, "SELECT COUNT(*) FROM jobs WHERE status IN ('scheduled','in_progress')", nil},
		{&s.JobsToday, "SELECT COUNT(*) FROM jobs WHERE scheduled_date=? AND status != 'cancelled'", []interface{}{today}},
		{&s.CompletedJobs, "SELECT COUNT(*) FROM jobs WHERE status='completed'", nil},
		{&s.LowStockItems, "SELECT COUNT(*) FROM inventory_items WHERE track_stock=1 AND quantity > 0 AND quantity <= low_stock_threshold", nil},
		{&s.OutOfStockItems, "SELECT COUNT(*) FROM inventory_items WHERE track_stock=1 AND quantity = 0", nil},
		{&s.PendingOrders, "SELECT COUNT(*) FROM purchase_orders WHERE status='pending'", nil},
		{&s.PendingReturns, "SELECT COUNT(*) FROM returns WHERE status='pending'", nil},
		{&s.OpenQuotes, "SELECT COUNT(*) FROM quotes WHERE status IN ('draft','sent')", nil},
	}
	for _, c := range counts {
		if err := db.QueryRow(c.query, c.args...).Scan(c.dest); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
	}

	s.RevenueThisMonth = sumAmounts("SELECT amount FROM receipts WHERE paid_at >= ?", monthStart)
	s.OutstandingTotal = sumAmounts(`SELECT total_amount FROM jobs
		WHERE status='completed' AND id NOT IN (SELECT job_id FROM receipts)`)

	jsonResp(w, s)
}

// sumAmounts totals a single money column in Go so the decimal math
// stays exact rather than going through SQLite floats.
func sumAmounts(query string, args ...interface{}) money.Amount {
	total := money.Zero
	rows, err := db.Query(query, args...)
	if err != nil {
		return total
	}
	defer rows.Close()
	for rows.Next() {
		var a money.Amount
		if err := rows.Scan(&a); err == nil {
			total = total.Add(a)
		}
	}
	return total
}
