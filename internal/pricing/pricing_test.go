package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"wrench/internal/models"
	"wrench/internal/money"
)

func TestComputeLine(t *testing.T) {
	l := models.LineItem{PartName: "Oil filter", Quantity: 2, UnitPrice: money.MustParse("8.00")}
	if err := ComputeLine(&l); err != nil {
		t.Fatalf("ComputeLine: %v", err)
	}
	if l.TotalPrice.String() != "16.00" {
		t.Errorf("totalPrice = %s, want 16.00", l.TotalPrice)
	}
}

func TestComputeLineRejectsBadInput(t *testing.T) {
	l := models.LineItem{PartName: "Brake pad", Quantity: 0, UnitPrice: money.MustParse("10.00")}
	if err := ComputeLine(&l); !errors.Is(err, ErrQuantityNotPositive) {
		t.Errorf("qty 0: got %v, want ErrQuantityNotPositive", err)
	}

	l = models.LineItem{PartName: "Brake pad", Quantity: -1, UnitPrice: money.MustParse("10.00")}
	if err := ComputeLine(&l); !errors.Is(err, ErrQuantityNotPositive) {
		t.Errorf("qty -1: got %v, want ErrQuantityNotPositive", err)
	}

	l = models.LineItem{PartName: "Brake pad", Quantity: 1, UnitPrice: money.MustParse("-0.01")}
	if err := ComputeLine(&l); !errors.Is(err, ErrNegativeUnitPrice) {
		t.Errorf("negative price: got %v, want ErrNegativeUnitPrice", err)
	}
}

func TestComputeOilChangeScenario(t *testing.T) {
	// One part, qty 2 at 8.00, plus 1 hour of labor at 50.00.
	lines := []models.LineItem{
		{PartName: "Oil filter", Quantity: 2, UnitPrice: money.MustParse("8.00")},
	}
	totals, err := Compute(lines, decimal.NewFromInt(1), money.MustParse("50.00"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if totals.PartsTotal.String() != "16.00" {
		t.Errorf("partsTotal = %s, want 16.00", totals.PartsTotal)
	}
	if totals.LaborTotal.String() != "50.00" {
		t.Errorf("laborTotal = %s, want 50.00", totals.LaborTotal)
	}
	if totals.TotalAmount.String() != "66.00" {
		t.Errorf("totalAmount = %s, want 66.00", totals.TotalAmount)
	}
}

func TestComputeFractionalHoursNoDrift(t *testing.T) {
	// 1.5h x 47.50 = 71.25 exactly; float arithmetic would be close but
	// the decimal path must be exact.
	lines := []models.LineItem{
		{PartName: "Coolant", Quantity: 3, UnitPrice: money.MustParse("4.10")},
		{PartName: "Hose clamp", Quantity: 10, UnitPrice: money.MustParse("0.35")},
	}
	hours, _ := decimal.NewFromString("1.5")
	totals, err := Compute(lines, hours, money.MustParse("47.50"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if totals.PartsTotal.String() != "15.80" {
		t.Errorf("partsTotal = %s, want 15.80", totals.PartsTotal)
	}
	if totals.LaborTotal.String() != "71.25" {
		t.Errorf("laborTotal = %s, want 71.25", totals.LaborTotal)
	}
	if totals.TotalAmount.String() != "87.05" {
		t.Errorf("totalAmount = %s, want 87.05", totals.TotalAmount)
	}
}

func TestComputeEmptyLines(t *testing.T) {
	totals, err := Compute(nil, decimal.Zero, money.Zero)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if totals.TotalAmount.String() != "0.00" {
		t.Errorf("totalAmount = %s, want 0.00", totals.TotalAmount)
	}
}

func TestComputeRejectsNegativeLabor(t *testing.T) {
	hours, _ := decimal.NewFromString("-1")
	if _, err := Compute(nil, hours, money.MustParse("50.00")); !errors.Is(err, ErrNegativeLabor) {
		t.Errorf("got %v, want ErrNegativeLabor", err)
	}
}

func TestOrderTotalsVAT(t *testing.T) {
	lines := []models.LineItem{
		{PartName: "Air filter", Quantity: 4, UnitPrice: money.MustParse("12.50")},
		{PartName: "Wiper blade", Quantity: 2, UnitPrice: money.MustParse("7.25")},
	}
	vat, _ := decimal.NewFromString("0.20")
	subtotal, tax, total, err := OrderTotals(lines, vat)
	if err != nil {
		t.Fatalf("OrderTotals: %v", err)
	}
	if subtotal.String() != "64.50" {
		t.Errorf("subtotal = %s, want 64.50", subtotal)
	}
	if tax.String() != "12.90" {
		t.Errorf("tax = %s, want 12.90", tax)
	}
	if total.String() != "77.40" {
		t.Errorf("total = %s, want 77.40", total)
	}
}

func TestMatches(t *testing.T) {
	computed := money.MustParse("66.00")
	if !Matches(money.Zero, computed) {
		t.Error("zero client total should always match")
	}
	if !Matches(money.MustParse("66.00"), computed) {
		t.Error("exact match rejected")
	}
	if !Matches(money.MustParse("66.01"), computed) {
		t.Error("within-tolerance mismatch rejected")
	}
	if Matches(money.MustParse("66.02"), computed) {
		t.Error("out-of-tolerance mismatch accepted")
	}
}

func TestComputeLineRoundsSubPennyPrices(t *testing.T) {
	// A unit price with more than two decimals must round per line, so
	// the in-memory total matches the 2-dp value that gets stored.
	l := models.LineItem{PartName: "Washer", Quantity: 2, UnitPrice: money.MustParse("1.005")}
	if err := ComputeLine(&l); err != nil {
		t.Fatalf("ComputeLine: %v", err)
	}
	if l.TotalPrice.String() != "2.01" {
		t.Errorf("totalPrice = %s, want 2.01", l.TotalPrice)
	}
	if !l.TotalPrice.Equal(l.TotalPrice.Round()) {
		t.Errorf("totalPrice %s carries sub-penny precision", l.TotalPrice)
	}

	lines := []models.LineItem{
		{PartName: "Washer", Quantity: 2, UnitPrice: money.MustParse("1.005")},
		{PartName: "Clip", Quantity: 3, UnitPrice: money.MustParse("0.333")},
	}
	total, err := PartsTotal(lines)
	if err != nil {
		t.Fatalf("PartsTotal: %v", err)
	}
	sum := money.Zero
	for _, line := range lines {
		sum = sum.Add(line.TotalPrice)
	}
	if !total.Equal(sum) {
		t.Errorf("partsTotal = %s, sum of line totals = %s", total, sum)
	}
}
