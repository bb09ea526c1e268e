package dashboard

import (
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/metrics"
)

const (
	datasetLabel    = "Transaction Amount"
	backgroundColor = "rgba(75, 192, 192, 0.2)"
	borderColor     = "rgba(75, 192, 192, 1)"
)

var hundred = decimal.NewFromInt(100)

// Chart is one bar chart of a customer's per-date totals. Generation is
// zero for charts built outside a Board.
type Chart struct {
	Generation uint64
	Title      string
	Series     core.Series

	destroyed atomic.Bool
}

// NewChart aggregates txs by date.
func NewChart(title string, txs []core.Transaction) *Chart {
	return &Chart{Title: title, Series: core.AggregateByDate(txs)}
}

// Destroyed reports whether the chart has been replaced on its board.
func (c *Chart) Destroyed() bool {
	return c.destroyed.Load()
}

func (c *Chart) destroy() {
	c.destroyed.Store(true)
}

// Bar is the server-rendered form of one series point.
type Bar struct {
	Label string
	Value string
	Width int
}

// Bars returns one bar per date with its width as a rounded percentage of
// the largest total. Non-zero bars are at least 2% wide.
func (c *Chart) Bars() []Bar {
	maxTotal := c.Series.Max()
	bars := make([]Bar, 0, len(c.Series))
	for _, p := range c.Series {
		width := 0
		if maxTotal.IsPositive() && p.Total.IsPositive() {
			width = int(p.Total.Mul(hundred).Div(maxTotal).Round(0).IntPart())
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		bars = append(bars, Bar{Label: p.Date, Value: p.Total.String(), Width: width})
	}
	return bars
}

// Chart.js configuration, serialized as the browser library expects it.
type (
	ChartConfig struct {
		Type    string       `json:"type"`
		Data    ChartData    `json:"data"`
		Options ChartOptions `json:"options"`
	}

	ChartData struct {
		Labels   []string       `json:"labels"`
		Datasets []ChartDataset `json:"datasets"`
	}

	ChartDataset struct {
		Label           string    `json:"label"`
		Data            []float64 `json:"data"`
		BackgroundColor string    `json:"backgroundColor"`
		BorderColor     string    `json:"borderColor"`
		BorderWidth     int       `json:"borderWidth"`
	}

	ChartOptions struct {
		Scales ChartScales `json:"scales"`
	}

	ChartScales struct {
		Y ChartAxis `json:"y"`
	}

	ChartAxis struct {
		BeginAtZero bool `json:"beginAtZero"`
	}
)

// Config returns the Chart.js bar chart configuration.
func (c *Chart) Config() ChartConfig {
	return ChartConfig{
		Type: "bar",
		Data: ChartData{
			Labels: c.Series.Labels(),
			Datasets: []ChartDataset{{
				Label:           datasetLabel,
				Data:            c.Series.Values(),
				BackgroundColor: backgroundColor,
				BorderColor:     borderColor,
				BorderWidth:     1,
			}},
		},
		Options: ChartOptions{Scales: ChartScales{Y: ChartAxis{BeginAtZero: true}}},
	}
}

// Board owns the single live chart. Show destroys the previous chart
// before the new one becomes current.
type Board struct {
	mu      sync.Mutex
	current *Chart
	gen     uint64
	logger  *applog.Logger
}

func NewBoard(logger *applog.Logger) *Board {
	return &Board{logger: logger.WithComponent(applog.ComponentChart)}
}

// Show replaces the live chart with one built from txs.
func (b *Board) Show(title string, txs []core.Transaction) *Chart {
	next := NewChart(title, txs)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil {
		b.current.destroy()
		metrics.ChartReplacements.Inc()
	}
	b.gen++
	next.Generation = b.gen
	b.current = next

	b.logger.Debug("Chart replaced",
		applog.FieldGeneration, next.Generation,
		"points", len(next.Series))
	return next
}

// Current returns the live chart, or nil before the first Show.
func (b *Board) Current() *Chart {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
