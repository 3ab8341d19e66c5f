package analyzer

import (
	"math"
	"reflect"
	"testing"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
)

var (
	loc1 = market.Location{ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant"}
	loc2 = market.Location{ID: 60008494, Name: "Amarr VIII (Oris) - Emperor Family Academy"}
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func order(price float64, volume int64, loc market.Location) market.Order {
	return market.Order{Price: price, Volume: volume, MinVolume: 1, Location: loc}
}

func row(meta *market.Meta, id int64, buy, sell []market.Order) market.Row {
	for _, typ := range meta.Types {
		if typ.ID == id {
			return market.Row{Type: market.RowType{ID: id, Index: typ.Index}, Buy: buy, Sell: sell}
		}
	}
	panic("unknown type")
}

func unitMeta(ids ...int64) *market.Meta {
	meta := &market.Meta{}
	for _, id := range ids {
		meta.Types = append(meta.Types, market.TypeMeta{ID: id, Name: "Type" + string(rune('A'+len(meta.Types))), Volume: 1})
	}
	meta.Reindex()
	return meta
}

func filterFixture(meta *market.Meta) []market.Row {
	return []market.Row{
		row(meta, 3,
			[]market.Order{order(7, 2, loc1)},
			[]market.Order{order(8, 50, loc1)}),
		row(meta, 2,
			[]market.Order{
				order(10, 60, loc1),
				order(9, 70, loc1),
				order(11, 3, loc2),
				order(12, 40, loc2),
			},
			[]market.Order{
				order(15, 95, loc1),
				order(16, 8, loc1),
				order(14, 500, loc2),
			}),
		row(meta, 1,
			nil,
			[]market.Order{order(8, 50, loc1)}),
		row(meta, 4,
			[]market.Order{order(5, 10, loc1)},
			[]market.Order{order(6, 10, loc1)}),
	}
}

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name   string
		orders []market.Order
		maxRun int64
		want   []market.Order
	}{
		{
			name:   "partial consume",
			orders: []market.Order{order(10, 50, loc1), order(12, 80, loc1)},
			maxRun: 100,
			want:   []market.Order{order(11, 100, loc1), order(12, 30, loc1)},
		},
		{
			name:   "full consume",
			orders: []market.Order{order(10, 20, loc1), order(10, 30, loc1), order(10, 10, loc1)},
			maxRun: 100,
			want:   []market.Order{order(10, 60, loc1)},
		},
		{
			name:   "stops at location change",
			orders: []market.Order{order(10, 20, loc1), order(12, 30, loc2), order(12, 30, loc2)},
			maxRun: 100,
			want:   []market.Order{order(10, 20, loc1), order(12, 30, loc2), order(12, 30, loc2)},
		},
		{
			name:   "oversized order is left alone",
			orders: []market.Order{order(10, 150, loc1), order(12, 20, loc1)},
			maxRun: 100,
			want:   []market.Order{order(10, 150, loc1), order(12, 20, loc1)},
		},
		{
			name:   "single order",
			orders: []market.Order{order(10, 5, loc1)},
			maxRun: 100,
			want:   []market.Order{order(10, 5, loc1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := consolidate(tt.orders, tt.maxRun)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d orders, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Volume != tt.want[i].Volume || !almostEqual(got[i].Price, tt.want[i].Price) {
					t.Errorf("order %d = %v@%v, want %v@%v", i, got[i].Volume, got[i].Price, tt.want[i].Volume, tt.want[i].Price)
				}
			}
		})
	}
}

func TestConsolidate_ConservesVolume(t *testing.T) {
	orders := []market.Order{order(10, 20, loc1), order(11, 30, loc1), order(12, 10, loc1)}

	var before int64
	for _, o := range orders {
		before += o.Volume
	}

	var after int64
	for _, o := range consolidate(orders, 100) {
		after += o.Volume
	}

	if before != after {
		t.Errorf("volume before = %d, after = %d", before, after)
	}
}

func TestConsolidate_RaisesMinVolume(t *testing.T) {
	a := order(10, 20, loc1)
	b := order(10, 20, loc1)
	b.MinVolume = 15

	got := consolidate([]market.Order{a, b}, 100)
	if got[0].MinVolume != 15 {
		t.Errorf("MinVolume = %d, want 15", got[0].MinVolume)
	}
}

func TestFilter(t *testing.T) {
	meta := unitMeta(1, 2, 3, 4)
	a := New(meta, WithCargo(100), WithMinVolume(5))

	got := a.Filter(filterFixture(meta))

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Type.ID != 2 || got[1].Type.ID != 4 {
		t.Fatalf("rows = [%d %d], want [2 4]", got[0].Type.ID, got[1].Type.ID)
	}

	buy := got[0].Buy
	if len(buy) != 3 {
		t.Fatalf("buy = %+v", buy)
	}
	// Ranked by price * min(run, volume): 960, 480, 270.
	if !almostEqual(buy[0].Price, 9.6) || buy[0].Volume != 100 {
		t.Errorf("buy[0] = %v@%v, want 100@9.6", buy[0].Volume, buy[0].Price)
	}
	if buy[1].Price != 12 || buy[2].Volume != 30 {
		t.Errorf("buy order = %+v", buy)
	}

	// The 3 unit sell remainder falls below MinVolume.
	sell := got[0].Sell
	if len(sell) != 2 {
		t.Fatalf("sell = %+v", sell)
	}
	if sell[0].Price != 14 || !almostEqual(sell[1].Price, 15.05) || sell[1].Volume != 100 {
		t.Errorf("sell = %+v", sell)
	}
}

func TestFilter_Properties(t *testing.T) {
	meta := unitMeta(1, 2, 3, 4)
	a := New(meta, WithCargo(100), WithMinVolume(5))

	once := a.Filter(filterFixture(meta))

	t.Run("min volume", func(t *testing.T) {
		for _, r := range once {
			if len(r.Buy) == 0 || len(r.Sell) == 0 {
				t.Errorf("row %d has an empty side", r.Type.ID)
			}
			for _, o := range append(append([]market.Order{}, r.Buy...), r.Sell...) {
				if o.Volume < 5 {
					t.Errorf("row %d keeps order of volume %d", r.Type.ID, o.Volume)
				}
			}
		}
	})

	t.Run("sorted by type id", func(t *testing.T) {
		for i := 1; i < len(once); i++ {
			if once[i-1].Type.ID >= once[i].Type.ID {
				t.Errorf("rows out of order at %d: %d >= %d", i, once[i-1].Type.ID, once[i].Type.ID)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		twice := a.Filter(market.CloneRows(once))
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("second filter changed rows:\n once: %+v\ntwice: %+v", once, twice)
		}
	})
}

func TestFilter_CloneKeepsOriginal(t *testing.T) {
	meta := unitMeta(1, 2, 3, 4)
	a := New(meta, WithCargo(100), WithMinVolume(5))

	original := filterFixture(meta)
	want := market.CloneRows(original)

	a.Filter(market.CloneRows(original))

	if !reflect.DeepEqual(original, want) {
		t.Error("filtering a clone modified the original rows")
	}
}

func TestFilter_DropsUnknownType(t *testing.T) {
	meta := unitMeta(1)
	a := New(meta, WithCargo(100))

	rows := []market.Row{{
		Type: market.RowType{ID: 99, Index: 5},
		Buy:  []market.Order{order(5, 10, loc1)},
		Sell: []market.Order{order(4, 10, loc1)},
	}}

	if got := a.Filter(rows); len(got) != 0 {
		t.Errorf("got %d rows, want 0", len(got))
	}
}

func TestFilter_DropsEmptyOrders(t *testing.T) {
	meta := unitMeta(1)
	rows := []market.Row{
		row(meta, 1,
			[]market.Order{order(12, 10, loc1)},
			[]market.Order{order(10, 0, loc1), order(11, 0, loc1), order(9, 40, loc2)}),
	}

	// Options are not validated by New, so a zero floor still reaches Filter.
	a := New(meta, WithCargo(100), WithTax(0), WithMinVolume(0))
	got := a.Spread(rows)

	if len(got) != 1 {
		t.Fatalf("got %d spreads, want 1", len(got))
	}
	s := got[0]
	if s.Sell.Price != 9 || s.Sell.Volume != 40 {
		t.Errorf("Sell = %+v, want 40@9", s.Sell)
	}
	if math.IsNaN(s.Diff) || math.IsNaN(s.PerDiff) || math.IsNaN(s.Profit) {
		t.Errorf("spread has NaN fields: %+v", s)
	}
	if !almostEqual(s.Diff, 3) || !almostEqual(s.Profit, 300) {
		t.Errorf("Diff = %v, Profit = %v, want 3 and 300", s.Diff, s.Profit)
	}
}

func TestFilter_EmptySideAfterDroppingEmptyOrders(t *testing.T) {
	meta := unitMeta(1)
	rows := []market.Row{
		row(meta, 1,
			[]market.Order{order(12, 10, loc1)},
			[]market.Order{order(10, 0, loc1), order(11, 0, loc1)}),
	}

	a := New(meta, WithCargo(100), WithMinVolume(0))
	if got := a.Filter(rows); len(got) != 0 {
		t.Errorf("got %+v, want no rows", got)
	}
}

func TestSpread(t *testing.T) {
	meta := &market.Meta{Types: []market.TypeMeta{
		{ID: 10, Name: "Alpha", Volume: 1},
		{ID: 20, Name: "Beta", Volume: 10},
	}}
	meta.Reindex()

	rows := func() []market.Row {
		return []market.Row{
			row(meta, 20,
				[]market.Order{order(50, 100, loc1)},
				[]market.Order{order(40, 100, loc1)}),
			row(meta, 10,
				[]market.Order{order(12, 500, loc1)},
				[]market.Order{order(10, 500, loc1)}),
		}
	}

	t.Run("ranked by profit", func(t *testing.T) {
		a := New(meta, WithCargo(100), WithTax(0), WithCount(10))
		got := a.Spread(rows())

		if len(got) != 2 {
			t.Fatalf("got %d spreads, want 2", len(got))
		}
		if got[0].Name != "Alpha" || got[0].Volume != 100 || !almostEqual(got[0].Profit, 200) {
			t.Errorf("first = %+v", got[0])
		}
		if !almostEqual(got[0].PerDiff, 0.2) {
			t.Errorf("PerDiff = %v, want 0.2", got[0].PerDiff)
		}
		if got[1].Name != "Beta" || got[1].Volume != 10 || !almostEqual(got[1].Profit, 100) {
			t.Errorf("second = %+v", got[1])
		}
	})

	t.Run("count", func(t *testing.T) {
		a := New(meta, WithCargo(100), WithTax(0), WithCount(1))
		if got := a.Spread(rows()); len(got) != 1 || got[0].Name != "Alpha" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("tax", func(t *testing.T) {
		a := New(meta, WithCargo(100), WithTax(0.5), WithCount(10))
		got := a.Spread(rows())
		// Beta loses 15 per unit over 10 units, Alpha 4 per unit over 100.
		if got[0].Name != "Beta" || !almostEqual(got[0].Profit, -150) {
			t.Errorf("first = %+v, want Beta at -150", got[0])
		}
		if !almostEqual(got[1].Profit, -400) {
			t.Errorf("Alpha profit = %v, want -400", got[1].Profit)
		}
	})
}

func haulMeta() *market.Meta {
	meta := &market.Meta{Types: []market.TypeMeta{
		{ID: 7, Name: "Seven", Volume: 1},
		{ID: 8, Name: "Eight", Volume: 1},
		{ID: 9, Name: "Nine", Volume: 1},
		{ID: 11, Name: "Eleven", Volume: 1},
	}}
	meta.Reindex()
	return meta
}

func haulRows(meta *market.Meta) (from, to []market.Row) {
	from = []market.Row{
		row(meta, 11,
			[]market.Order{order(1, 10, loc1)},
			[]market.Order{order(5, 100, loc1)}),
		row(meta, 7,
			[]market.Order{order(4, 10, loc1)},
			[]market.Order{order(5, 200, loc1), order(4, 10, loc2)}),
		row(meta, 9,
			[]market.Order{order(1, 10, loc1)},
			[]market.Order{order(10, 100, loc1)}),
	}

	bigLot := order(20, 100, loc2)
	bigLot.MinVolume = 300
	dest := order(8, 150, loc2)
	dest.MinVolume = 10

	to = []market.Row{
		row(meta, 7,
			[]market.Order{dest},
			[]market.Order{order(9, 10, loc2)}),
		row(meta, 8,
			[]market.Order{order(30, 10, loc2)},
			[]market.Order{order(31, 10, loc2)}),
		row(meta, 9,
			[]market.Order{order(9, 100, loc2)},
			[]market.Order{order(12, 10, loc2)}),
		row(meta, 11,
			[]market.Order{bigLot},
			[]market.Order{order(25, 10, loc2)}),
	}
	return from, to
}

func TestHaul(t *testing.T) {
	meta := haulMeta()
	a := New(meta, WithCargo(100), WithTax(0.1), WithFunds(10000), WithCount(10), WithMinVolume(1))

	from, to := haulRows(meta)
	got := a.Haul(from, to)

	if len(got) != 1 {
		t.Fatalf("got %d hauls, want 1: %+v", len(got), got)
	}

	h := got[0]
	if h.Name != "Seven" {
		t.Errorf("Name = %q, want Seven", h.Name)
	}
	if !almostEqual(h.Diff, 2.2) {
		t.Errorf("Diff = %v, want 2.2", h.Diff)
	}
	if h.Volume != 100 {
		t.Errorf("Volume = %d, want 100", h.Volume)
	}
	if !almostEqual(h.Profit, 220) {
		t.Errorf("Profit = %v, want 220", h.Profit)
	}
	if !almostEqual(h.BuyFor, 500) {
		t.Errorf("BuyFor = %v, want 500", h.BuyFor)
	}
	if !almostEqual(h.PerDiff, 0.44) {
		t.Errorf("PerDiff = %v, want 0.44", h.PerDiff)
	}
	// The larger lot at 5 beats the cheaper 10 unit lot at 4.
	if h.Sell.Price != 5 || h.Sell.Location != loc1 {
		t.Errorf("Sell = %+v", h.Sell)
	}
	if h.Buy.Price != 8 || h.Buy.MinVolume != 10 || h.Buy.Location != loc2 {
		t.Errorf("Buy = %+v", h.Buy)
	}
	if h.ItemVolume != 1 {
		t.Errorf("ItemVolume = %v, want 1", h.ItemVolume)
	}
}

func TestHaul_FundsLimitVolume(t *testing.T) {
	meta := haulMeta()
	a := New(meta, WithCargo(100), WithTax(0.1), WithFunds(300), WithCount(10), WithMinVolume(1))

	from, to := haulRows(meta)
	got := a.Haul(from, to)

	if len(got) != 1 {
		t.Fatalf("got %d hauls, want 1", len(got))
	}
	if got[0].Volume != 60 {
		t.Errorf("Volume = %d, want floor(300/5) = 60", got[0].Volume)
	}
	if !almostEqual(got[0].Profit, 132) {
		t.Errorf("Profit = %v, want 132", got[0].Profit)
	}
}

func TestHaul_NeverReturnsLosses(t *testing.T) {
	meta := haulMeta()
	a := New(meta, WithCargo(100), WithTax(0.9), WithFunds(10000), WithCount(10))

	from, to := haulRows(meta)
	for _, h := range a.Haul(from, to) {
		if h.Profit <= 0 {
			t.Errorf("haul %s has profit %v", h.Name, h.Profit)
		}
	}
}

func TestHaul_NoCommonTypes(t *testing.T) {
	meta := haulMeta()
	a := New(meta, WithCargo(100))

	from := []market.Row{row(meta, 7, []market.Order{order(1, 10, loc1)}, []market.Order{order(1, 10, loc1)})}
	to := []market.Row{row(meta, 8, []market.Order{order(9, 10, loc2)}, []market.Order{order(9, 10, loc2)})}

	if got := a.Haul(from, to); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestMargin(t *testing.T) {
	meta := unitMeta(1, 2, 3)
	a := New(meta)

	rows := []market.Row{
		row(meta, 1,
			[]market.Order{order(100, 10, loc1), order(90, 10, loc1), order(150, 10, loc2)},
			[]market.Order{order(120, 10, loc1), order(110, 10, loc2)}),
		row(meta, 2,
			[]market.Order{order(130, 10, loc1)},
			[]market.Order{order(120, 10, loc1)}),
		row(meta, 3,
			[]market.Order{order(100, 10, loc1)},
			[]market.Order{order(120, 10, loc2)}),
	}

	got := a.Margin(rows, loc1.Name)

	if len(got) != 1 {
		t.Fatalf("got %d reports, want 1: %+v", len(got), got)
	}

	r := got[0]
	if r.Buy.High != 100 || !almostEqual(r.Buy.Avg, 95) || r.Buy.Volume != 20 {
		t.Errorf("Buy = %+v", r.Buy)
	}
	if r.Sell.Low != 120 || !almostEqual(r.Sell.Avg, 120) || r.Sell.Volume != 10 {
		t.Errorf("Sell = %+v", r.Sell)
	}
	if !almostEqual(r.Margin.Price, 20) {
		t.Errorf("Margin.Price = %v, want 20", r.Margin.Price)
	}
	// Blended average: (1900 + 1200) / 30.
	if want := 20 / (3100.0 / 30); !almostEqual(r.Margin.Percent, want) {
		t.Errorf("Margin.Percent = %v, want %v", r.Margin.Percent, want)
	}
}

func TestMargin_RankedByPercent(t *testing.T) {
	meta := unitMeta(1, 2)
	a := New(meta)

	rows := []market.Row{
		row(meta, 1,
			[]market.Order{order(100, 10, loc1)},
			[]market.Order{order(105, 10, loc1)}),
		row(meta, 2,
			[]market.Order{order(10, 10, loc1)},
			[]market.Order{order(15, 10, loc1)}),
	}

	got := a.Margin(rows, loc1.Name)
	if len(got) != 2 {
		t.Fatalf("got %d reports, want 2", len(got))
	}
	if got[0].Margin.Percent < got[1].Margin.Percent {
		t.Errorf("reports not sorted by percent: %v, %v", got[0].Margin.Percent, got[1].Margin.Percent)
	}
	for _, r := range got {
		if r.Margin.Price <= 0 {
			t.Errorf("report %s has margin %v", r.Name, r.Margin.Price)
		}
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Options) {}},
		{name: "negative min volume", mutate: func(o *Options) { o.MinVolume = -1 }, wantErr: true},
		{name: "zero min volume", mutate: func(o *Options) { o.MinVolume = 0 }, wantErr: true},
		{name: "zero cargo", mutate: func(o *Options) { o.Cargo = 0 }, wantErr: true},
		{name: "tax of one", mutate: func(o *Options) { o.Tax = 1 }, wantErr: true},
		{name: "negative funds", mutate: func(o *Options) { o.Funds = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			if err := opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		num, den float64
		want     int64
	}{
		{num: 100, den: 1, want: 100},
		{num: 100, den: 3, want: 33},
		{num: 0.5, den: 1, want: 0},
		{num: 100, den: 0, want: math.MaxInt64},
		{num: 1e300, den: 1e-300, want: math.MaxInt64},
	}

	for _, tt := range tests {
		if got := floorDiv(tt.num, tt.den); got != tt.want {
			t.Errorf("floorDiv(%v, %v) = %d, want %d", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestMargin_SkipsEmptyOrders(t *testing.T) {
	meta := unitMeta(1)
	a := New(meta)

	rows := []market.Row{
		row(meta, 1,
			[]market.Order{order(200, 0, loc1), order(90, 10, loc1)},
			[]market.Order{order(50, 0, loc1), order(100, 10, loc1)}),
	}

	got := a.Margin(rows, loc1.Name)
	if len(got) != 1 {
		t.Fatalf("got %d reports, want 1", len(got))
	}
	if got[0].Buy.High != 90 || got[0].Sell.Low != 100 || !almostEqual(got[0].Margin.Price, 10) {
		t.Errorf("report = %+v, want high 90, low 100, margin 10", got[0])
	}
}
