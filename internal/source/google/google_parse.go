package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"txview/internal/core"
)

// parseCustomers converts a values matrix whose header row names "id" and
// "name" columns. Blank rows are skipped.
func parseCustomers(values [][]interface{}) ([]core.Customer, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols, err := columns(headers, "id", "name")
	if err != nil {
		return nil, err
	}

	var out []core.Customer
	for _, row := range values[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, core.Customer{
			ID:   toID(cellAt(row, cols[0])),
			Name: strings.TrimSpace(fmt.Sprint(orEmpty(cellAt(row, cols[1])))),
		})
	}
	return out, nil
}

// parseTransactions converts a values matrix whose header row names "id",
// "customer_id", "date" and "amount" columns.
func parseTransactions(values [][]interface{}) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols, err := columns(headers, "id", "customer_id", "date", "amount")
	if err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, row := range values[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, core.Transaction{
			ID:         toID(cellAt(row, cols[0])),
			CustomerID: toID(cellAt(row, cols[1])),
			Date:       strings.TrimSpace(fmt.Sprint(orEmpty(cellAt(row, cols[2])))),
			Amount:     toAmount(cellAt(row, cols[3])),
		})
	}
	return out, nil
}

func columns(headers []string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	var missing []string
	for i, name := range names {
		idx[i] = indexOf(headers, name)
		if idx[i] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	return idx, nil
}

// toID keeps the cell kind: numeric cells become numeric IDs.
func toID(v interface{}) core.ID {
	switch x := v.(type) {
	case float64:
		return core.NumericID(x)
	case int:
		return core.NumericID(float64(x))
	case nil:
		return core.ID{}
	default:
		return core.StringID(strings.TrimSpace(fmt.Sprint(x)))
	}
}

// toAmount keeps text cells as typed; a cell that is not a number is kept
// for display.
func toAmount(v interface{}) core.Amount {
	switch x := v.(type) {
	case float64:
		return core.NewAmount(decimal.NewFromFloat(x))
	case int:
		return core.NewAmount(decimal.NewFromInt(int64(x)))
	case nil:
		return core.Amount{}
	default:
		return core.AmountFromText(strings.TrimSpace(fmt.Sprint(x)))
	}
}

func cellAt(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func orEmpty(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(orEmpty(v))) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}
