package analyzer

import (
	"cmp"
	"slices"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
)

// HaulSide is one end of a haul.
type HaulSide struct {
	Volume    int64           `json:"volume"`
	MinVolume int64           `json:"minVolume"`
	Price     float64         `json:"price"`
	Location  market.Location `json:"location"`
}

// Haul is a cross-region trade: buy from a sell order in the origin region,
// carry the goods, sell into a buy order in the destination region.
type Haul struct {
	Name       string   `json:"name"`
	Diff       float64  `json:"diff"`
	Buy        HaulSide `json:"buy"`
	Sell       HaulSide `json:"sell"`
	PerDiff    float64  `json:"perDiff"`
	Profit     float64  `json:"profit"`
	ItemVolume float64  `json:"itemVolume"`
	Volume     int64    `json:"volume"`
	BuyFor     float64  `json:"buyFor"`
}

func sideOf(o market.Order) HaulSide {
	return HaulSide{
		Volume:    o.Volume,
		MinVolume: o.MinVolume,
		Price:     o.Price,
		Location:  o.Location,
	}
}

// Haul pairs the sell orders of from with the buy orders of to, type by
// type, and returns the most profitable runs. Only positive profits are
// returned.
func (a *Analyzer) Haul(from, to []market.Row) []Haul {
	from = a.Filter(from)
	to = a.Filter(to)

	var matches []Haul
	for i, j := 0, 0; i < len(from) && j < len(to); i++ {
		origin := &from[i]
		for j < len(to) && to[j].Type.ID < origin.Type.ID {
			j++
		}
		if j == len(to) || to[j].Type.ID != origin.Type.ID {
			continue
		}
		dest := &to[j]

		typ, _ := a.meta.Type(dest.Type)
		maxRun := a.maxRun(typ)
		buyPrice := dest.Buy[0].Price

		// Best sell order for the destination's best bid, by run profit.
		slices.SortStableFunc(origin.Sell, func(x, y market.Order) int {
			px := (buyPrice - x.Price) * float64(min(maxRun, x.Volume))
			py := (buyPrice - y.Price) * float64(min(maxRun, y.Volume))
			return cmp.Compare(py, px)
		})
		sell := origin.Sell[0]

		dest.Buy = slices.DeleteFunc(dest.Buy, func(o market.Order) bool {
			return o.MinVolume > sell.Volume
		})
		if len(dest.Buy) == 0 {
			continue
		}
		buy := dest.Buy[0]

		diff := buy.Price*(1-a.opts.Tax) - sell.Price
		volume := min(buy.Volume, sell.Volume, maxRun, floorDiv(a.opts.Funds, sell.Price))

		matches = append(matches, Haul{
			Name:       typ.Name,
			Diff:       diff,
			Buy:        sideOf(buy),
			Sell:       sideOf(sell),
			PerDiff:    diff / sell.Price,
			Profit:     float64(volume) * diff,
			ItemVolume: typ.Volume,
			Volume:     volume,
			BuyFor:     float64(volume) * sell.Price,
		})
	}

	matches = top(matches, a.opts.Count, func(h Haul) float64 { return h.Profit })
	return slices.DeleteFunc(matches, func(h Haul) bool { return h.Profit <= 0 })
}
