// Package money provides the fixed-point amount type used for balances,
// goal targets and contributions.
//
// Every Amount carries exactly two fractional digits. Values are rounded
// half away from zero when constructed, so arithmetic between Amounts never
// drifts the way binary floating point does.
//
// Amounts cross the MongoDB boundary as Decimal128 and the JSON boundary as
// numbers rendered with two fractional digits.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Places is the number of fractional digits every Amount carries.
const Places = 2

// ErrInvalidAmount is returned when a string cannot be parsed as an amount.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a decimal monetary value with two fractional digits.
// The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{}

// New rounds d to two fractional digits.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Places)}
}

// FromCents builds an Amount from integer minor units.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -Places)}
}

// Parse reads a decimal string such as "12.34" or "12,34". Input with
// more than two fractional digits is rejected unless the extra digits are
// zeros; amounts are never rounded on the way in.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(Places)) {
		return Amount{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, Places)
	}
	return New(d), nil
}

// MustParse is Parse for constants and tests. It panics on bad input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Cents returns the amount in integer minor units.
func (a Amount) Cents() int64 { return a.d.Shift(Places).IntPart() }

func (a Amount) Add(b Amount) Amount { return New(a.d.Add(b.d)) }
func (a Amount) Sub(b Amount) Amount { return New(a.d.Sub(b.d)) }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) IsPositive() bool { return a.d.IsPositive() }
func (a Amount) IsNegative() bool { return a.d.IsNegative() }
func (a Amount) IsZero() bool { return a.d.IsZero() }

// String renders the amount with exactly two fractional digits.
func (a Amount) String() string { return a.d.StringFixed(Places) }

// MarshalBSONValue stores the amount as Decimal128.
func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(a.String())
	if err != nil {
		return 0, nil, fmt.Errorf("encode amount %s: %w", a.String(), err)
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue decodes a Decimal128. Any other BSON type is rejected.
func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	d128, ok := bson.RawValue{Type: t, Value: data}.Decimal128OK()
	if !ok {
		return fmt.Errorf("decode amount: expected decimal128, got %s", t)
	}
	d, err := decimal.NewFromString(d128.String())
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", d128.String(), err)
	}
	*a = New(d)
	return nil
}

// MarshalJSON renders a JSON number with two fractional digits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return ErrInvalidAmount
	}
	s := strings.Trim(string(b), `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
