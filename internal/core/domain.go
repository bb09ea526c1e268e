package core

import "errors"

type (
	// Customer is a record of the customers collection.
	Customer struct {
		ID   ID     `json:"id"`
		Name string `json:"name"`
	}

	// Transaction is a record of the transactions collection. CustomerID
	// refers to Customer.ID.
	Transaction struct {
		ID         ID     `json:"id"`
		CustomerID ID     `json:"customer_id"`
		Date       string `json:"date"`
		Amount     Amount `json:"amount"`
	}

	// Dataset is the combined result of fetching both collections.
	Dataset struct {
		Customers    []Customer    `json:"customers"`
		Transactions []Transaction `json:"transactions"`
	}

	// CustomerView joins a customer with the transactions that belong to it.
	// TransactionCount always equals len(Transactions).
	CustomerView struct {
		ID               ID            `json:"id"`
		Name             string        `json:"name"`
		TransactionCount int           `json:"transactionCount"`
		Transactions     []Transaction `json:"transactions"`
	}
)

var ErrCustomerNotFound = errors.New("customer not found")

// AmountText is the display form of the amount, also used for prefix
// matching by the amount filter.
func (t Transaction) AmountText() string {
	return t.Amount.String()
}

// Clone returns a dataset whose slices do not alias d.
func (d Dataset) Clone() Dataset {
	return Dataset{
		Customers:    append([]Customer(nil), d.Customers...),
		Transactions: append([]Transaction(nil), d.Transactions...),
	}
}
