package core

import "github.com/shopspring/decimal"

// DatePoint is the summed amount of one date.
type DatePoint struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// Series is an ordered list of per-date totals.
type Series []DatePoint

// AggregateByDate sums amounts per date. Dates appear in the order of their
// first occurrence in txs.
func AggregateByDate(txs []Transaction) Series {
	idx := make(map[string]int, len(txs))
	s := make(Series, 0, len(txs))
	for _, t := range txs {
		i, ok := idx[t.Date]
		if !ok {
			idx[t.Date] = len(s)
			s = append(s, DatePoint{Date: t.Date, Total: t.Amount.Decimal()})
			continue
		}
		s[i].Total = s[i].Total.Add(t.Amount.Decimal())
	}
	return s
}

// Labels returns the dates in axis order.
func (s Series) Labels() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// Values returns the totals as floats for chart libraries.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Total.InexactFloat64()
	}
	return out
}

// Max returns the largest total, or zero for an empty series.
func (s Series) Max() decimal.Decimal {
	m := decimal.Zero
	for i, p := range s {
		if i == 0 || p.Total.GreaterThan(m) {
			m = p.Total
		}
	}
	return m
}
