package core

import "strings"

// Criteria holds the two filter inputs as typed by the user.
type Criteria struct {
	Name   string `json:"customer"`
	Amount string `json:"amount"`
}

// IsEmpty reports whether neither filter would exclude anything.
func (c Criteria) IsEmpty() bool {
	return c.Name == "" && strings.TrimSpace(c.Amount) == ""
}

// Match reports whether a view passes both filters. The name filter is a
// case-insensitive substring match. The amount filter is trimmed and then
// matched as a prefix of any transaction's amount text; an empty amount
// filter matches every view, including one without transactions.
func (c Criteria) Match(v CustomerView) bool {
	if !strings.Contains(strings.ToLower(v.Name), strings.ToLower(c.Name)) {
		return false
	}
	amount := strings.TrimSpace(c.Amount)
	if amount == "" {
		return true
	}
	for _, t := range v.Transactions {
		if strings.HasPrefix(t.AmountText(), amount) {
			return true
		}
	}
	return false
}

// ApplyFilter returns the views of base that pass c, in base order. The
// result is a new slice; base is never modified.
func ApplyFilter(base []CustomerView, c Criteria) []CustomerView {
	out := make([]CustomerView, 0, len(base))
	for _, v := range base {
		if c.Match(v) {
			out = append(out, v)
		}
	}
	return out
}
