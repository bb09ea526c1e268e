package dashboard

import (
	"testing"

	"txview/internal/core"
)

func TestRenderTable_Grouping(t *testing.T) {
	views := core.BuildViews(mustDataset(t, `{
	  "customers": [{"id":1,"name":"Alice"},{"id":"x","name":"Empty"},{"id":2,"name":"Bob"}],
	  "transactions": [
	    {"id":1,"customer_id":1,"date":"2024-01-01","amount":10},
	    {"id":2,"customer_id":1,"date":"2024-01-02","amount":20.5},
	    {"id":3,"customer_id":2,"date":"2024-01-01","amount":5}
	  ]
	}`))

	table := RenderTable(views, nil)
	if len(table.Rows) != 3 || table.Groups != 2 {
		t.Fatalf("got %d rows in %d groups", len(table.Rows), table.Groups)
	}

	first := table.Rows[0]
	if !first.First || first.Name != "Alice" || first.Count != 2 || first.RowSpan != 2 {
		t.Errorf("first row should carry the Alice group cells: %+v", first)
	}
	second := table.Rows[1]
	if second.First || second.Name != "" || second.Amount != "20.5" || second.Date != "2024-01-02" {
		t.Errorf("second row should only carry date and amount: %+v", second)
	}
	bob := table.Rows[2]
	if !bob.First || bob.Name != "Bob" || bob.RowSpan != 1 {
		t.Errorf("unexpected Bob row: %+v", bob)
	}
	if bob.Ref != (RowRef{CustomerID: "2", Group: 2, Index: 0}) {
		t.Errorf("Bob ref = %+v", bob.Ref)
	}
	for _, r := range table.Rows {
		if r.Selected {
			t.Errorf("no row should be selected: %+v", r)
		}
	}
}

func TestRenderTable_DuplicateIDsSelectOneRow(t *testing.T) {
	views := core.BuildViews(mustDataset(t, `{
	  "customers": [{"id":1,"name":"First"},{"id":1,"name":"Second"}],
	  "transactions": [{"id":1,"customer_id":1,"date":"d","amount":1}]
	}`))

	sel := RowRef{CustomerID: "1", Group: 1, Index: 0}
	table := RenderTable(views, &sel)
	if len(table.Rows) != 2 {
		t.Fatalf("duplicate customers should both render, got %d rows", len(table.Rows))
	}
	if table.Rows[0].Selected || !table.Rows[1].Selected {
		t.Errorf("only the second group's row should be selected: %+v", table.Rows)
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if table := RenderTable(nil, nil); !table.IsEmpty() || table.Groups != 0 {
		t.Errorf("expected an empty table, got %+v", table)
	}
}
