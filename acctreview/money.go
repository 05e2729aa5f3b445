package acctreview

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Money is an exact decimal amount. The zero value is 0.
type Money struct {
	value apd.Decimal
}

// NewMoney parses s as an exact decimal.
func NewMoney(s string) (Money, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Money{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Money{value: d}, nil
}

// MustMoney is like NewMoney but panics on invalid input. Intended for literals.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney extracts an amount from vendor formatted text. Everything except
// digits, '-' and '.' is discarded, so currency symbols, thousands separators
// and trailing units are tolerated. Parentheses are dropped without changing
// the sign.
func ParseMoney(s string) (Money, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return Money{}, fmt.Errorf("no amount in %q", s)
	}
	return NewMoney(cleaned)
}

func (m Money) String() string {
	return m.value.Text('f')
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.value.IsZero()
}

// Cmp compares m and other, returning -1, 0 or +1.
func (m Money) Cmp(other Money) int {
	return m.value.Cmp(&other.value)
}

// Equal reports whether m and other represent the same amount.
func (m Money) Equal(other Money) bool {
	return m.Cmp(other) == 0
}

// Mul returns the product of m and other.
func (m Money) Mul(other Money) Money {
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	_, _ = ctx.Mul(&result, &m.value, &other.value)
	return Money{value: result}
}

// Float64 returns the nearest float64, for renderers that cannot hold decimals.
func (m Money) Float64() float64 {
	f, _ := m.value.Float64()
	return f
}

// MarshalJSON encodes the amount as an exact JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
