package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"wrench/internal/response"
	"wrench/internal/validation"
)

func main() {
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "wrench.yml", "Path to config file")
	flag.Parse()

	c, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("config load failed:", err)
	}
	cfg = c
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *port != 0 {
		cfg.Port = *port
	}

	if err := initDB(cfg.DBPath); err != nil {
		log.Fatal("DB init failed:", err)
	}
	seedDB()

	log.Printf("wrench server starting on http://localhost:%d", cfg.Port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), logging(requireAuth(newMux()))))
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Static frontend, everything unknown falls through to the SPA shell
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.StaticDir+"/assets"))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, cfg.StaticDir+"/index.html")
	})

	mux.HandleFunc("/auth/login", requireMethod("POST", handleLogin))
	mux.HandleFunc("/auth/logout", requireMethod("POST", handleLogout))
	mux.HandleFunc("/auth/me", handleMe)

	mux.HandleFunc("/ws", handleWebSocket)

	mux.HandleFunc("/api/", routeAPI)

	return mux
}

// routeAPI dispatches /api/ requests on path segments. SQLite plus a
// single process keeps this simpler than pulling in a router.
func routeAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api/")
	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")

	switch {
	// Dashboard
	case path == "dashboard/stats" && r.Method == "GET":
		handleDashboardStats(w, r)

	// Customers
	case path == "customers" && r.Method == "GET":
		handleListCustomers(w, r)
	case path == "customers" && r.Method == "POST":
		handleCreateCustomer(w, r)
	case parts[0] == "customers" && len(parts) == 2 && r.Method == "GET":
		handleGetCustomer(w, r, parts[1])
	case parts[0] == "customers" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateCustomer(w, r, parts[1])
	case parts[0] == "customers" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteCustomer(w, r, parts[1])

	// Vehicles
	case path == "vehicles" && r.Method == "GET":
		handleListVehicles(w, r)
	case path == "vehicles" && r.Method == "POST":
		handleCreateVehicle(w, r)
	case parts[0] == "vehicles" && len(parts) == 2 && r.Method == "GET":
		handleGetVehicle(w, r, parts[1])
	case parts[0] == "vehicles" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateVehicle(w, r, parts[1])
	case parts[0] == "vehicles" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteVehicle(w, r, parts[1])

	// Suppliers
	case path == "suppliers" && r.Method == "GET":
		handleListSuppliers(w, r)
	case path == "suppliers" && r.Method == "POST":
		handleCreateSupplier(w, r)
	case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "GET":
		handleGetSupplier(w, r, parts[1])
	case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateSupplier(w, r, parts[1])
	case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteSupplier(w, r, parts[1])

	// Inventory
	case path == "inventory" && r.Method == "GET":
		handleListInventory(w, r)
	case path == "inventory" && r.Method == "POST":
		handleCreateInventoryItem(w, r)
	case path == "inventory/low-stock" && r.Method == "GET":
		handleLowStock(w, r)
	case path == "inventory/export" && r.Method == "GET":
		handleExportInventory(w, r)
	case parts[0] == "inventory" && len(parts) == 2 && r.Method == "GET":
		handleGetInventoryItem(w, r, parts[1])
	case parts[0] == "inventory" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateInventoryItem(w, r, parts[1])
	case parts[0] == "inventory" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteInventoryItem(w, r, parts[1])
	case parts[0] == "inventory" && len(parts) == 3 && parts[2] == "adjust" && r.Method == "POST":
		handleAdjustInventory(w, r, parts[1])
	case parts[0] == "inventory" && len(parts) == 3 && parts[2] == "movements" && r.Method == "GET":
		handleInventoryMovements(w, r, parts[1])

	// Jobs
	case path == "jobs" && r.Method == "GET":
		handleListJobs(w, r)
	case path == "jobs" && r.Method == "POST":
		handleCreateJob(w, r)
	case path == "jobs/calendar" && r.Method == "GET":
		handleJobsCalendar(w, r)
	case parts[0] == "jobs" && len(parts) == 2 && r.Method == "GET":
		handleGetJob(w, r, parts[1])
	case parts[0] == "jobs" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateJob(w, r, parts[1])
	case parts[0] == "jobs" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteJob(w, r, parts[1])
	case parts[0] == "jobs" && len(parts) == 3 && parts[2] == "schedule" && r.Method == "PUT":
		handleScheduleJob(w, r, parts[1])

	// Quotes
	case path == "quotes" && r.Method == "GET":
		handleListQuotes(w, r)
	case path == "quotes" && r.Method == "POST":
		handleCreateQuote(w, r)
	case parts[0] == "quotes" && len(parts) == 2 && r.Method == "GET":
		handleGetQuote(w, r, parts[1])
	case parts[0] == "quotes" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateQuote(w, r, parts[1])
	case parts[0] == "quotes" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteQuote(w, r, parts[1])
	case parts[0] == "quotes" && len(parts) == 3 && parts[2] == "accept" && r.Method == "POST":
		handleAcceptQuote(w, r, parts[1])

	// Purchase orders
	case path == "purchase-orders" && r.Method == "GET":
		handleListPurchaseOrders(w, r)
	case path == "purchase-orders" && r.Method == "POST":
		handleCreatePurchaseOrder(w, r)
	case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "GET":
		handleGetPurchaseOrder(w, r, parts[1])
	case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "PUT":
		handleUpdatePurchaseOrder(w, r, parts[1])
	case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "DELETE":
		handleDeletePurchaseOrder(w, r, parts[1])

	// Returns
	case path == "returns" && r.Method == "GET":
		handleListReturns(w, r)
	case path == "returns" && r.Method == "POST":
		handleCreateReturn(w, r)
	case parts[0] == "returns" && len(parts) == 2 && r.Method == "GET":
		handleGetReturn(w, r, parts[1])
	case parts[0] == "returns" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateReturn(w, r, parts[1])
	case parts[0] == "returns" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteReturn(w, r, parts[1])

	// Receipts
	case path == "receipts" && r.Method == "GET":
		handleListReceipts(w, r)
	case path == "receipts" && r.Method == "POST":
		handleCreateReceipt(w, r)
	case parts[0] == "receipts" && len(parts) == 2 && r.Method == "GET":
		handleGetReceipt(w, r, parts[1])
	case parts[0] == "receipts" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteReceipt(w, r, parts[1])

	// Documents
	case path == "generate-pdf" && r.Method == "POST":
		handleGeneratePDF(w, r)
	case path == "settings" && r.Method == "GET":
		handleGetSettings(w, r)
	case path == "settings" && r.Method == "PUT":
		handleUpdateSettings(w, r)
	case path == "templates" && r.Method == "GET":
		handleListTemplates(w, r)
	case path == "templates" && r.Method == "POST":
		handleCreateTemplate(w, r)
	case parts[0] == "templates" && len(parts) == 2 && r.Method == "GET":
		handleGetTemplate(w, r, parts[1])
	case parts[0] == "templates" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateTemplate(w, r, parts[1])
	case parts[0] == "templates" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteTemplate(w, r, parts[1])
	case parts[0] == "templates" && len(parts) == 3 && parts[2] == "activate" && r.Method == "POST":
		handleActivateTemplate(w, r, parts[1])

	// Users and audit trail
	case path == "users" && r.Method == "GET":
		handleListUsers(w, r)
	case path == "users" && r.Method == "POST":
		handleCreateUser(w, r)
	case parts[0] == "users" && len(parts) == 2 && r.Method == "PUT":
		handleUpdateUser(w, r, parts[1])
	case parts[0] == "users" && len(parts) == 2 && r.Method == "DELETE":
		handleDeleteUser(w, r, parts[1])
	case parts[0] == "users" && len(parts) == 3 && parts[2] == "password" && r.Method == "POST":
		handleResetPassword(w, r, parts[1])
	case path == "audit" && r.Method == "GET":
		handleListAudit(w, r)

	default:
		jsonErr(w, "not found", 404)
	}
}

func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", 405)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	json.NewEncoder(w).Encode(v)
}

func jsonResp(w http.ResponseWriter, data interface{}) {
	response.JSON(w, data)
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	response.JSONMeta(w, data, total, page, limit)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	response.Err(w, msg, code)
}

func jsonValidationErr(w http.ResponseWriter, ve *validation.ValidationErrors) {
	w.WriteHeader(400)
	writeJSON(w, map[string]interface{}{"error": ve.Error(), "fields": ve.Errors})
}

func decodeBody(r *http.Request, v interface{}) error {
	return response.DecodeBody(r, v)
}

// pageParams reads the optional limit/page query parameters. A zero
// limit means the caller wants the whole list; page defaults to 1.
func pageParams(r *http.Request) (limit, page int, ve *validation.ValidationErrors) {
	ve = &validation.ValidationErrors{}
	page = 1
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
		validation.ValidatePositiveInt(ve, "limit", limit)
	}
	if v := q.Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
		validation.ValidatePositiveInt(ve, "page", page)
	}
	return limit, page, ve
}
