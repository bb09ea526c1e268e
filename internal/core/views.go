package core

// BuildViews joins customers with their transactions. Views follow customer
// order and each view's transactions follow fetch order. Matching uses
// strict ID equality; customers sharing an ID each get their own view.
func BuildViews(d Dataset) []CustomerView {
	views := make([]CustomerView, 0, len(d.Customers))
	for _, c := range d.Customers {
		var txs []Transaction
		for _, t := range d.Transactions {
			if t.CustomerID.Equal(c.ID) {
				txs = append(txs, t)
			}
		}
		views = append(views, CustomerView{
			ID:               c.ID,
			Name:             c.Name,
			TransactionCount: len(txs),
			Transactions:     txs,
		})
	}
	return views
}

// FindView returns the first view whose ID loosely equals rawID.
func FindView(views []CustomerView, rawID string) (CustomerView, bool) {
	for _, v := range views {
		if v.ID.LooseEqual(rawID) {
			return v, true
		}
	}
	return CustomerView{}, false
}

// TotalTransactions sums TransactionCount over views.
func TotalTransactions(views []CustomerView) int {
	n := 0
	for _, v := range views {
		n += v.TransactionCount
	}
	return n
}
