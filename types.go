package main

import "wrench/internal/models"

// Type aliases so handlers and tests can use the unqualified names while
// the definitions live in internal/models.

type APIResponse = models.APIResponse
type Meta = models.Meta
type Customer = models.Customer
type Vehicle = models.Vehicle
type Supplier = models.Supplier
type InventoryItem = models.InventoryItem
type StockMovement = models.StockMovement
type LineItem = models.LineItem
type Job = models.Job
type Quote = models.Quote
type PurchaseOrder = models.PurchaseOrder
type Return = models.Return
type Receipt = models.Receipt
type BusinessSettings = models.BusinessSettings
type CustomTemplate = models.CustomTemplate
type AuditEntry = models.AuditEntry
type DashboardStats = models.DashboardStats
