package dashboard

import (
	"txview/internal/core"
)

// RowRef identifies one rendered row: the raw id text of its customer, the
// position of the customer group and the position of the row inside it.
type RowRef struct {
	CustomerID string `json:"id"`
	Group      int    `json:"group"`
	Index      int    `json:"row"`
}

// Row is one transaction line of the table. Only the first row of a group
// carries the name and count cells, spanning RowSpan rows.
type Row struct {
	Ref      RowRef
	First    bool
	Name     string
	Count    int
	RowSpan  int
	Date     string
	Amount   string
	Selected bool
}

// Table is the rendered body of the transactions table.
type Table struct {
	Rows   []Row
	Groups int
}

// IsEmpty reports whether the table has no rows.
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// RenderTable builds one row per transaction, grouped by customer in view
// order. Customers without transactions produce no rows. When selected is
// non-nil, the row with that exact ref is marked.
func RenderTable(views []core.CustomerView, selected *RowRef) Table {
	var t Table
	for g, v := range views {
		if len(v.Transactions) == 0 {
			continue
		}
		t.Groups++
		for i, tx := range v.Transactions {
			ref := RowRef{CustomerID: v.ID.String(), Group: g, Index: i}
			row := Row{
				Ref:    ref,
				Date:   tx.Date,
				Amount: tx.AmountText(),
			}
			if i == 0 {
				row.First = true
				row.Name = v.Name
				row.Count = v.TransactionCount
				row.RowSpan = len(v.Transactions)
			}
			row.Selected = selected != nil && *selected == ref
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}
