package main

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var db *sql.DB

func initDB(path string) error {
	// Close previous connection if any (prevents goroutine leaks in tests)
	if db != nil {
		db.Close()
	}
	var err error
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err = sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Explicitly set WAL mode (some drivers don't parse connection string params correctly)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT,
			role TEXT DEFAULT 'user',
			active INTEGER DEFAULT 1,
			last_login TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			address TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			make TEXT NOT NULL,
			model TEXT NOT NULL,
			year INTEGER DEFAULT 0,
			registration TEXT DEFAULT '',
			vin TEXT DEFAULT '',
			mileage INTEGER DEFAULT 0,
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			contact_name TEXT DEFAULT '',
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			address TEXT DEFAULT '',
			status TEXT DEFAULT 'active' CHECK(status IN ('active','preferred','inactive')),
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			part_number TEXT DEFAULT '',
			category TEXT DEFAULT '',
			cost_price TEXT DEFAULT '0.00',
			retail_price TEXT DEFAULT '0.00',
			quantity INTEGER DEFAULT 0 CHECK(quantity >= 0),
			low_stock_threshold INTEGER DEFAULT 5 CHECK(low_stock_threshold >= 0),
			track_stock INTEGER DEFAULT 1,
			location TEXT DEFAULT '',
			supplier_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('purchase_order','return','adjustment')),
			qty INTEGER NOT NULL,
			reference TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES inventory_items(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			vehicle_id TEXT NOT NULL,
			description TEXT DEFAULT '',
			status TEXT DEFAULT 'scheduled' CHECK(status IN ('scheduled','in_progress','completed','cancelled')),
			scheduled_date TEXT DEFAULT '',
			scheduled_time TEXT DEFAULT '',
			bay TEXT DEFAULT '',
			completed_date DATETIME,
			labor_hours TEXT DEFAULT '0',
			labor_rate TEXT DEFAULT '0.00',
			parts_total TEXT DEFAULT '0.00',
			labor_total TEXT DEFAULT '0.00',
			total_amount TEXT DEFAULT '0.00',
			mileage INTEGER DEFAULT 0,
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT,
			FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS job_parts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL,
			inventory_item_id TEXT DEFAULT '',
			part_name TEXT NOT NULL,
			part_number TEXT DEFAULT '',
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			unit_price TEXT DEFAULT '0.00',
			total_price TEXT DEFAULT '0.00',
			FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			vehicle_id TEXT DEFAULT '',
			description TEXT DEFAULT '',
			status TEXT DEFAULT 'draft' CHECK(status IN ('draft','sent','accepted','rejected','expired')),
			valid_until TEXT DEFAULT '',
			labor_hours TEXT DEFAULT '0',
			labor_rate TEXT DEFAULT '0.00',
			parts_total TEXT DEFAULT '0.00',
			labor_total TEXT DEFAULT '0.00',
			total_amount TEXT DEFAULT '0.00',
			notes TEXT DEFAULT '',
			accepted_at DATETIME,
			job_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS quote_parts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quote_id TEXT NOT NULL,
			inventory_item_id TEXT DEFAULT '',
			part_name TEXT NOT NULL,
			part_number TEXT DEFAULT '',
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			unit_price TEXT DEFAULT '0.00',
			total_price TEXT DEFAULT '0.00',
			FOREIGN KEY (quote_id) REFERENCES quotes(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			status TEXT DEFAULT 'pending' CHECK(status IN ('pending','approved','shipped','delivered','cancelled')),
			order_date TEXT DEFAULT '',
			expected_date TEXT DEFAULT '',
			subtotal TEXT DEFAULT '0.00',
			tax TEXT DEFAULT '0.00',
			total TEXT DEFAULT '0.00',
			notes TEXT DEFAULT '',
			approved_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			po_id TEXT NOT NULL,
			inventory_item_id TEXT DEFAULT '',
			part_name TEXT NOT NULL,
			part_number TEXT DEFAULT '',
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			unit_price TEXT DEFAULT '0.00',
			total_price TEXT DEFAULT '0.00',
			FOREIGN KEY (po_id) REFERENCES purchase_orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS returns (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			purchase_order_id TEXT DEFAULT '',
			status TEXT DEFAULT 'pending' CHECK(status IN ('pending','approved','processed','completed')),
			reason TEXT DEFAULT '',
			refund_amount TEXT DEFAULT '0.00',
			notes TEXT DEFAULT '',
			approved_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS return_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			return_id TEXT NOT NULL,
			inventory_item_id TEXT DEFAULT '',
			part_name TEXT NOT NULL,
			part_number TEXT DEFAULT '',
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			unit_price TEXT DEFAULT '0.00',
			total_price TEXT DEFAULT '0.00',
			FOREIGN KEY (return_id) REFERENCES returns(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS receipts (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			amount TEXT DEFAULT '0.00',
			method TEXT DEFAULT 'card' CHECK(method IN ('cash','card','bank_transfer','other')),
			paid_at TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS business_settings (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			company_name TEXT DEFAULT '',
			address TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			email TEXT DEFAULT '',
			vat_number TEXT DEFAULT '',
			default_labor_rate TEXT DEFAULT '50.00',
			vat_rate TEXT DEFAULT '0.20',
			logo_url TEXT DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS custom_templates (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL CHECK(type IN ('invoice','quote','purchase-order','return','receipt')),
			name TEXT NOT NULL,
			header_text TEXT DEFAULT '',
			footer_text TEXT DEFAULT '',
			accent_color TEXT DEFAULT '',
			is_active INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT DEFAULT '',
			action TEXT DEFAULT '',
			module TEXT DEFAULT '',
			record_id TEXT DEFAULT '',
			summary TEXT DEFAULT '',
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_vehicles_customer ON vehicles(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_customer ON jobs(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_scheduled ON jobs(scheduled_date)`,
		`CREATE INDEX IF NOT EXISTS idx_job_parts_job ON job_parts(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_parts_quote ON quote_parts(quote_id)`,
		`CREATE INDEX IF NOT EXISTS idx_po_items_po ON purchase_order_items(po_id)`,
		`CREATE INDEX IF NOT EXISTS idx_return_items_return ON return_items(return_id)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_item ON stock_movements(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_job ON receipts(job_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index migration: %w", err)
		}
	}
	return nil
}

func seedDB() {
	// Always ensure admin user exists
	var userCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'admin'").Scan(&userCount)
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash admin password: %v", err)
		} else {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)",
				"admin", string(hash), "Administrator", "admin")
		}
	}

	// Business settings singleton
	var settingsCount int
	db.QueryRow("SELECT COUNT(*) FROM business_settings").Scan(&settingsCount)
	if settingsCount == 0 {
		db.Exec("INSERT INTO business_settings (id, company_name, email, default_labor_rate, vat_rate) VALUES (1, ?, ?, ?, ?)",
			cfg.CompanyName, cfg.CompanyEmail, cfg.DefaultLaborRate, cfg.VATRate)
	}

	// A default active template per document family
	var templateCount int
	db.QueryRow("SELECT COUNT(*) FROM custom_templates").Scan(&templateCount)
	if templateCount == 0 {
		for i, typ := range []string{"invoice", "quote", "purchase-order", "return", "receipt"} {
			db.Exec("INSERT INTO custom_templates (id, type, name, is_active) VALUES (?, ?, ?, 1)",
				fmt.Sprintf("TPL-%04d", i+1), typ, "Default "+typ)
		}
	}
}

// nextID generates sequential human-readable ids like JOB-2026-0007.
func nextID(prefix string, table string, digits int) string {
	year := time.Now().Format("2006")
	pattern := prefix + "-" + year + "-%"
	var maxID sql.NullString
	db.QueryRow("SELECT id FROM "+table+" WHERE id LIKE ? ORDER BY id DESC LIMIT 1", pattern).Scan(&maxID)

	next := 1
	if maxID.Valid {
		parts := strings.Split(maxID.String, "-")
		if len(parts) >= 3 {
			if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, year, digits, next)
}

func sp(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}
