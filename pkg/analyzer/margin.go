package analyzer

import (
	"cmp"
	"slices"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
)

// BuySummary aggregates the buy side at one station.
type BuySummary struct {
	High   float64 `json:"high"`
	Avg    float64 `json:"avg"`
	Volume int64   `json:"volume"`
}

// SellSummary aggregates the sell side at one station.
type SellSummary struct {
	Low    float64 `json:"low"`
	Avg    float64 `json:"avg"`
	Volume int64   `json:"volume"`
}

// Margin is the gap between the lowest sell and the highest buy.
type Margin struct {
	Price   float64 `json:"price"`
	Percent float64 `json:"percent"`
}

// MarginReport describes the station trading margin of one type.
type MarginReport struct {
	Name   string      `json:"name"`
	Buy    BuySummary  `json:"buy"`
	Sell   SellSummary `json:"sell"`
	Margin Margin      `json:"margin"`
}

// Margin reports every type traded at station with a positive margin,
// best relative margin first. MinVolume and Count do not apply.
func (a *Analyzer) Margin(rows []market.Row, station string) []MarginReport {
	skip := func(o market.Order) bool { return o.Volume <= 0 || o.Location.Name != station }

	var out []MarginReport
	for _, row := range rows {
		typ, ok := a.meta.Type(row.Type)
		if !ok {
			continue
		}

		buy := slices.DeleteFunc(row.Buy, skip)
		sell := slices.DeleteFunc(row.Sell, skip)
		if len(buy) == 0 || len(sell) == 0 {
			continue
		}

		slices.SortStableFunc(buy, func(x, y market.Order) int { return cmp.Compare(y.Price, x.Price) })
		slices.SortStableFunc(sell, func(x, y market.Order) int { return cmp.Compare(x.Price, y.Price) })

		buyVolume, buyTotal := weigh(buy)
		sellVolume, sellTotal := weigh(sell)
		if buyVolume == 0 || sellVolume == 0 {
			continue
		}

		report := MarginReport{
			Name: typ.Name,
			Buy: BuySummary{
				High:   buy[0].Price,
				Avg:    buyTotal / float64(buyVolume),
				Volume: buyVolume,
			},
			Sell: SellSummary{
				Low:    sell[0].Price,
				Avg:    sellTotal / float64(sellVolume),
				Volume: sellVolume,
			},
		}
		blended := (buyTotal + sellTotal) / float64(buyVolume+sellVolume)
		report.Margin.Price = report.Sell.Low - report.Buy.High
		report.Margin.Percent = report.Margin.Price / blended

		if report.Margin.Price > 0 {
			out = append(out, report)
		}
	}

	return top(out, 0, func(r MarginReport) float64 { return r.Margin.Percent })
}

// weigh returns the total volume and the volume-weighted price sum.
func weigh(orders []market.Order) (int64, float64) {
	var volume int64
	var total float64
	for _, o := range orders {
		volume += o.Volume
		total += float64(o.Volume) * o.Price
	}
	return volume, total
}
