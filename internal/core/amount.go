package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a transaction amount as fetched. Records are not validated: an
// amount that is not a number keeps its text for display and filtering and
// counts as zero in totals.
type Amount struct {
	value decimal.Decimal
	text  string
	valid bool
}

// NewAmount returns a numeric amount displayed in its canonical form.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d, text: d.String(), valid: true}
}

// AmountFromText keeps s as the display text and parses it when it is a
// number.
func AmountFromText(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{text: s}
	}
	return Amount{value: d, text: s, valid: true}
}

// String returns the display text.
func (a Amount) String() string { return a.text }

// Valid reports whether the amount is a number.
func (a Amount) Valid() bool { return a.valid }

// Decimal returns the numeric value, or zero for an invalid amount.
func (a Amount) Decimal() decimal.Decimal {
	if !a.valid {
		return decimal.Zero
	}
	return a.value
}

// IsZero reports whether the amount adds nothing to a total.
func (a Amount) IsZero() bool { return a.Decimal().IsZero() }

// MarshalJSON writes canonical numbers as JSON numbers and everything else
// as its text.
func (a Amount) MarshalJSON() ([]byte, error) {
	switch {
	case a.valid && a.text == a.value.String():
		return []byte(a.text), nil
	case !a.valid && a.text == "":
		return []byte("null"), nil
	}
	return json.Marshal(a.text)
}

// UnmarshalJSON accepts any JSON value. Numbers and numeric strings parse;
// other values are kept as text.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*a = Amount{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		*a = AmountFromText(s)
	default:
		d, err := decimal.NewFromString(string(b))
		if err != nil {
			*a = Amount{text: string(b)}
			return nil
		}
		*a = NewAmount(d)
	}
	return nil
}
