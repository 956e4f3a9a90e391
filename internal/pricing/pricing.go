// Package pricing computes line-item and document totals. It is the single
// source of truth for money arithmetic: handlers recompute totals here and
// never trust client-supplied figures.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wrench/internal/models"
	"wrench/internal/money"
)

var (
	ErrQuantityNotPositive = errors.New("quantity must be greater than zero")
	ErrNegativeUnitPrice   = errors.New("unit price must not be negative")
	ErrNegativeLabor       = errors.New("labor hours and rate must not be negative")
)

// Totals is the computed pricing summary of a job or quote.
type Totals struct {
	PartsTotal  money.Amount
	LaborTotal  money.Amount
	TotalAmount money.Amount
}

// ComputeLine validates a line item and fills in its total price
// (quantity x unit price, rounded to the penny so the in-memory value
// matches what gets persisted).
func ComputeLine(l *models.LineItem) error {
	if l.Quantity <= 0 {
		return fmt.Errorf("part %q: %w", l.PartName, ErrQuantityNotPositive)
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("part %q: %w", l.PartName, ErrNegativeUnitPrice)
	}
	l.TotalPrice = l.UnitPrice.MulInt(l.Quantity).Round()
	return nil
}

// PartsTotal computes each line's total price and sums them.
func PartsTotal(lines []models.LineItem) (money.Amount, error) {
	total := money.Zero
	for i := range lines {
		if err := ComputeLine(&lines[i]); err != nil {
			return money.Zero, err
		}
		total = total.Add(lines[i].TotalPrice)
	}
	return total, nil
}

// Compute aggregates parts and labor into the job/quote totals:
// laborTotal = laborHours x laborRate, totalAmount = laborTotal + partsTotal.
func Compute(lines []models.LineItem, laborHours decimal.Decimal, laborRate money.Amount) (Totals, error) {
	if laborHours.IsNegative() || laborRate.IsNegative() {
		return Totals{}, ErrNegativeLabor
	}
	partsTotal, err := PartsTotal(lines)
	if err != nil {
		return Totals{}, err
	}
	laborTotal := laborRate.MulDec(laborHours).Round()
	return Totals{
		PartsTotal:  partsTotal,
		LaborTotal:  laborTotal,
		TotalAmount: laborTotal.Add(partsTotal),
	}, nil
}

// OrderTotals computes a purchase order's subtotal, tax at the given VAT rate
// (e.g. 0.20) and grand total from its line items.
func OrderTotals(lines []models.LineItem, vatRate decimal.Decimal) (subtotal, tax, total money.Amount, err error) {
	subtotal, err = PartsTotal(lines)
	if err != nil {
		return money.Zero, money.Zero, money.Zero, err
	}
	tax = subtotal.MulDec(vatRate).Round()
	return subtotal, tax, subtotal.Add(tax), nil
}

// Matches reports whether a client-supplied total agrees with the computed
// one within a one penny rounding tolerance. Zero client values are treated
// as "not supplied".
func Matches(client, computed money.Amount) bool {
	if client.IsZero() {
		return true
	}
	diff := client.Sub(computed)
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	return diff.Cmp(money.FromPence(1)) <= 0
}
