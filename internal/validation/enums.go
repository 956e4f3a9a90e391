package validation

// Common enum values - these MUST match DB CHECK constraints in db.go.
var (
	ValidJobStatuses      = []string{"scheduled", "in_progress", "completed", "cancelled"}
	ValidQuoteStatuses    = []string{"draft", "sent", "accepted", "rejected", "expired"}
	ValidPOStatuses       = []string{"pending", "approved", "shipped", "delivered", "cancelled"}
	ValidReturnStatuses   = []string{"pending", "approved", "processed", "completed"}
	ValidSupplierStatuses = []string{"active", "preferred", "inactive"}
	ValidPaymentMethods   = []string{"cash", "card", "bank_transfer", "other"}
	ValidTemplateTypes    = []string{"invoice", "quote", "purchase-order", "return", "receipt"}
	ValidDocumentTypes    = []string{"job", "quote", "purchase-order", "return", "receipt"}
	ValidStockLevels      = []string{"in_stock", "low_stock", "out_of_stock"}
)
