// Package money provides a fixed-point currency amount used for every
// monetary value in the system. Amounts travel over JSON as 2-dp decimal
// strings (e.g. "12.50") and are stored in SQLite as TEXT, so no float
// arithmetic ever touches the money path.
package money

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal currency amount.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// New wraps a raw decimal as an Amount.
func New(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// Parse parses a decimal string ("12.50", "0", "-3.2") into an Amount.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{d: d}, nil
}

// MustParse parses s and panics on error. Intended for tests and constants.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromPence builds an Amount from integer minor units.
func FromPence(p int64) Amount {
	return Amount{d: decimal.New(p, -2)}
}

func (a Amount) Add(b Amount) Amount      { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount      { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) MulInt(n int) Amount      { return Amount{d: a.d.Mul(decimal.NewFromInt(int64(n)))} }
func (a Amount) Neg() Amount              { return Amount{d: a.d.Neg()} }
func (a Amount) IsZero() bool             { return a.d.IsZero() }
func (a Amount) IsNegative() bool         { return a.d.IsNegative() }
func (a Amount) Cmp(b Amount) int         { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool      { return a.d.Equal(b.d) }
func (a Amount) Decimal() decimal.Decimal { return a.d }

// MulDec multiplies by an arbitrary decimal factor (labor hours, tax rates).
func (a Amount) MulDec(f decimal.Decimal) Amount {
	return Amount{d: a.d.Mul(f)}
}

// Round returns the amount rounded half-up to 2 decimal places.
func (a Amount) Round() Amount {
	return Amount{d: a.d.Round(2)}
}

// String formats the amount with exactly two decimal places.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a 2-dp decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*a = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the amount as a fixed 2-dp TEXT column.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads an amount back from TEXT, REAL or INTEGER columns.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case float64:
		*a = Amount{d: decimal.NewFromFloat(v).Round(2)}
		return nil
	case int64:
		*a = Amount{d: decimal.NewFromInt(v)}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
}
