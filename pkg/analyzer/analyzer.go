// Package analyzer finds trade opportunities in scraped order books.
//
// Every method takes ownership of the rows it is given: orders are
// consolidated and re-sorted in place. Callers that still need the original
// snapshot pass market.CloneRows(rows) instead.
package analyzer

import (
	"cmp"
	"math"
	"slices"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
)

// Analyzer runs analyses against one metadata table.
type Analyzer struct {
	meta *market.Meta
	opts Options
}

// New creates an analyzer. Options start from DefaultOptions.
func New(meta *market.Meta, opts ...Option) *Analyzer {
	a := &Analyzer{
		meta: meta,
		opts: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&a.opts)
	}
	return a
}

// Options returns the effective options.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Filter prepares rows for matching:
//
//  1. rows with an empty side, or whose type is unknown, are dropped
//  2. orders below MinVolume are dropped, then rows left with an empty side
//  3. orders are grouped by location and sorted by price within a location
//  4. the leading same-location orders are consolidated up to one cargo run
//  5. buys are ranked by run value, sells by price
//  6. rows are sorted by type id ascending
//
// The result is ordered by type id, which Haul depends on.
func (a *Analyzer) Filter(rows []market.Row) []market.Row {
	out := rows[:0]
	for _, row := range rows {
		if len(row.Buy) == 0 || len(row.Sell) == 0 {
			continue
		}
		if _, ok := a.meta.Type(row.Type); !ok {
			continue
		}

		row.Buy = a.dropSmall(row.Buy)
		if len(row.Buy) == 0 {
			continue
		}
		row.Sell = a.dropSmall(row.Sell)
		if len(row.Sell) == 0 {
			continue
		}
		out = append(out, row)
	}
	clear(rows[len(out):])

	for i := range out {
		row := &out[i]
		typ, _ := a.meta.Type(row.Type)
		maxRun := a.maxRun(typ)

		sortByLocation(row.Buy, true)
		sortByLocation(row.Sell, false)

		row.Buy = a.dropSmall(consolidate(row.Buy, maxRun))
		row.Sell = a.dropSmall(consolidate(row.Sell, maxRun))

		slices.SortStableFunc(row.Buy, func(x, y market.Order) int {
			return cmp.Compare(runValue(y, maxRun), runValue(x, maxRun))
		})
		slices.SortStableFunc(row.Sell, func(x, y market.Order) int {
			return cmp.Compare(x.Price, y.Price)
		})
	}

	slices.SortStableFunc(out, func(x, y market.Row) int {
		return cmp.Compare(x.Type.ID, y.Type.ID)
	})
	return out
}

// dropSmall removes empty orders and orders below MinVolume in place.
func (a *Analyzer) dropSmall(orders []market.Order) []market.Order {
	return slices.DeleteFunc(orders, func(o market.Order) bool {
		return o.Volume <= 0 || o.Volume < a.opts.MinVolume
	})
}

// maxRun is the number of units of typ that fit in one cargo run.
func (a *Analyzer) maxRun(typ market.TypeMeta) int64 {
	return floorDiv(a.opts.Cargo, typ.Volume)
}

// sortByLocation groups orders by location id. Within a location buys are
// sorted by descending price and sells by ascending price.
func sortByLocation(orders []market.Order, buy bool) {
	slices.SortStableFunc(orders, func(x, y market.Order) int {
		if c := cmp.Compare(x.Location.ID, y.Location.ID); c != 0 {
			return c
		}
		if buy {
			return cmp.Compare(y.Price, x.Price)
		}
		return cmp.Compare(x.Price, y.Price)
	})
}

// consolidate merges the orders that follow orders[0] at the same location
// into it until it holds maxRun units. The capacity check happens before each
// merge, so an order that already exceeds maxRun is left as is. A partially
// consumed order keeps its remainder and ends the merge.
func consolidate(orders []market.Order, maxRun int64) []market.Order {
	if len(orders) < 2 {
		return orders
	}

	current := &orders[0]
	for len(orders) > 1 {
		next := &orders[1]
		if current.Volume >= maxRun || current.Location.ID != next.Location.ID {
			break
		}

		part := min(maxRun-current.Volume, next.Volume)
		total := current.Volume + part
		current.Price = (current.Price*float64(current.Volume) + next.Price*float64(part)) / float64(total)
		current.Volume = total
		current.MinVolume = max(current.MinVolume, next.MinVolume)

		if part < next.Volume {
			next.Volume -= part
			break
		}
		orders = slices.Delete(orders, 1, 2)
	}
	return orders
}

func runValue(o market.Order, maxRun int64) float64 {
	return o.Price * float64(min(maxRun, o.Volume))
}

// floorDiv returns floor(num/den) as a unit count. A non-positive
// denominator means the quantity is unbounded.
func floorDiv(num, den float64) int64 {
	if den <= 0 {
		return math.MaxInt64
	}
	q := math.Floor(num / den)
	switch {
	case math.IsNaN(q) || q <= 0:
		return 0
	case q >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(q)
}

// top sorts by key descending and keeps at most count entries.
func top[T any](items []T, count int, key func(T) float64) []T {
	slices.SortStableFunc(items, func(x, y T) int {
		return cmp.Compare(key(y), key(x))
	})
	if count > 0 && len(items) > count {
		items = items[:count]
	}
	return items
}
