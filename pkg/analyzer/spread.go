package analyzer

import "github.com/Sternrassler/eve-market-scrape/pkg/market"

// Spread is a buy-low/sell-high opportunity inside one region.
type Spread struct {
	Name    string       `json:"name"`
	Diff    float64      `json:"diff"`
	PerDiff float64      `json:"perDiff"`
	Volume  int64        `json:"volume"`
	Profit  float64      `json:"profit"`
	Buy     market.Order `json:"buy"`
	Sell    market.Order `json:"sell"`
}

// Spread ranks the rows of one region by the profit of filling one cargo
// run from the cheapest sell order into the best buy order.
func (a *Analyzer) Spread(rows []market.Row) []Spread {
	rows = a.Filter(rows)

	out := make([]Spread, 0, len(rows))
	for _, row := range rows {
		typ, _ := a.meta.Type(row.Type)
		buy, sell := row.Buy[0], row.Sell[0]

		diff := buy.Price*(1-a.opts.Tax) - sell.Price
		volume := a.maxRun(typ)

		out = append(out, Spread{
			Name:    typ.Name,
			Diff:    diff,
			PerDiff: diff / sell.Price,
			Volume:  volume,
			Profit:  float64(volume) * diff,
			Buy:     buy,
			Sell:    sell,
		})
	}

	return top(out, a.opts.Count, func(s Spread) float64 { return s.Profit })
}
