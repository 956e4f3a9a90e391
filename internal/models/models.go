package models

import (
	"github.com/shopspring/decimal"

	"wrench/internal/money"
)

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type Customer struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"createdAt"`
}

type Vehicle struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customerId"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Registration string `json:"registration"`
	VIN          string `json:"vin"`
	Mileage      int    `json:"mileage"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"createdAt"`
}

type Supplier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
	CreatedAt   string `json:"createdAt"`
}

type InventoryItem struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	PartNumber        string       `json:"partNumber"`
	Category          string       `json:"category"`
	CostPrice         money.Amount `json:"costPrice"`
	RetailPrice       money.Amount `json:"retailPrice"`
	Quantity          int          `json:"quantity"`
	LowStockThreshold int          `json:"lowStockThreshold"`
	TrackStock        bool         `json:"trackStock"`
	Location          string       `json:"location"`
	SupplierID        string       `json:"supplierId"`
	StockLevel        string       `json:"stockLevel,omitempty"`
	CreatedAt         string       `json:"createdAt"`
	UpdatedAt         string       `json:"updatedAt"`
}

// StockMovement records every quantity change on an inventory item.
type StockMovement struct {
	ID        int    `json:"id"`
	ItemID    string `json:"itemId"`
	Type      string `json:"type"`
	Qty       int    `json:"qty"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"createdAt"`
}

// LineItem is the shared shape of a job part, quote part, purchase order
// item or return item: a quantity x unit-price record owned by its parent.
type LineItem struct {
	ID              int          `json:"id"`
	ParentID        string       `json:"parentId"`
	InventoryItemID string       `json:"inventoryItemId,omitempty"`
	PartName        string       `json:"partName"`
	PartNumber      string       `json:"partNumber"`
	Quantity        int          `json:"quantity"`
	UnitPrice       money.Amount `json:"unitPrice"`
	TotalPrice      money.Amount `json:"totalPrice"`
}

type Job struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	VehicleID     string          `json:"vehicleId"`
	Description   string          `json:"description"`
	Status        string          `json:"status"`
	ScheduledDate string          `json:"scheduledDate"`
	ScheduledTime string          `json:"scheduledTime"`
	Bay           string          `json:"bay"`
	CompletedDate *string         `json:"completedDate"`
	LaborHours    decimal.Decimal `json:"laborHours"`
	LaborRate     money.Amount    `json:"laborRate"`
	PartsTotal    money.Amount    `json:"partsTotal"`
	LaborTotal    money.Amount    `json:"laborTotal"`
	TotalAmount   money.Amount    `json:"totalAmount"`
	Mileage       int             `json:"mileage"`
	Notes         string          `json:"notes"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
	JobParts      []LineItem      `json:"jobParts,omitempty"`
}

type Quote struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	VehicleID   string          `json:"vehicleId"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	ValidUntil  string          `json:"validUntil"`
	LaborHours  decimal.Decimal `json:"laborHours"`
	LaborRate   money.Amount    `json:"laborRate"`
	PartsTotal  money.Amount    `json:"partsTotal"`
	LaborTotal  money.Amount    `json:"laborTotal"`
	TotalAmount money.Amount    `json:"totalAmount"`
	Notes       string          `json:"notes"`
	AcceptedAt  *string         `json:"acceptedAt"`
	JobID       string          `json:"jobId,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	QuoteParts  []LineItem      `json:"quoteParts,omitempty"`
}

type PurchaseOrder struct {
	ID           string       `json:"id"`
	SupplierID   string       `json:"supplierId"`
	Status       string       `json:"status"`
	OrderDate    string       `json:"orderDate"`
	ExpectedDate string       `json:"expectedDate"`
	Subtotal     money.Amount `json:"subtotal"`
	Tax          money.Amount `json:"tax"`
	Total        money.Amount `json:"total"`
	Notes        string       `json:"notes"`
	ApprovedAt   *string      `json:"approvedAt"`
	CreatedAt    string       `json:"createdAt"`
	Items        []LineItem   `json:"items,omitempty"`
}

type Return struct {
	ID              string       `json:"id"`
	SupplierID      string       `json:"supplierId"`
	PurchaseOrderID string       `json:"purchaseOrderId"`
	Status          string       `json:"status"`
	Reason          string       `json:"reason"`
	RefundAmount    money.Amount `json:"refundAmount"`
	Notes           string       `json:"notes"`
	ApprovedAt      *string      `json:"approvedAt"`
	CreatedAt       string       `json:"createdAt"`
	Items           []LineItem   `json:"items,omitempty"`
}

type Receipt struct {
	ID        string       `json:"id"`
	JobID     string       `json:"jobId"`
	Amount    money.Amount `json:"amount"`
	Method    string       `json:"method"`
	PaidAt    string       `json:"paidAt"`
	Notes     string       `json:"notes"`
	CreatedAt string       `json:"createdAt"`
}

// BusinessSettings is the singleton presentation/configuration row.
type BusinessSettings struct {
	CompanyName      string          `json:"companyName"`
	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	VATNumber        string          `json:"vatNumber"`
	DefaultLaborRate money.Amount    `json:"defaultLaborRate"`
	VATRate          decimal.Decimal `json:"vatRate"`
	LogoURL          string          `json:"logoUrl"`
	UpdatedAt        string          `json:"updatedAt"`
}

type CustomTemplate struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	HeaderText  string `json:"headerText"`
	FooterText  string `json:"footerText"`
	AccentColor string `json:"accentColor"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
}

type AuditEntry struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"recordId"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

type DashboardStats struct {
	TotalCustomers   int          `json:"totalCustomers"`
	TotalVehicles    int          `json:"totalVehicles"`
	ActiveJobs       int          `json:"activeJobs"`
	JobsToday        int          `json:"jobsToday"`
	CompletedJobs    int          `json:"completedJobs"`
	LowStockItems    int          `json:"lowStockItems"`
	OutOfStockItems  int          `json:"outOfStockItems"`
	PendingOrders    int          `json:"pendingOrders"`
	PendingReturns   int          `json:"pendingReturns"`
	OpenQuotes       int          `json:"openQuotes"`
	RevenueThisMonth money.Amount `json:"revenueThisMonth"`
	OutstandingTotal money.Amount `json:"outstandingTotal"`
}
