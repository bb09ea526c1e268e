package core

import (
	"encoding/json"
	"testing"
)

const aliceBobJSON = `{
  "customers": [{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}],
  "transactions": [
    {"id":1,"customer_id":1,"date":"2024-01-01","amount":10},
    {"id":2,"customer_id":1,"date":"2024-01-02","amount":20},
    {"id":3,"customer_id":2,"date":"2024-01-01","amount":5}
  ]
}`

func mustDataset(t *testing.T, raw string) Dataset {
	t.Helper()
	var d Dataset
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	return d
}

func amounts(txs []Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.AmountText()
	}
	return out
}
