// Package market defines the order book data model shared by the scraper,
// the analyzer and the snapshot files.
package market

// TypeMeta describes one tradeable item type.
type TypeMeta struct {
	ID int64 `json:"id"`

	// Index is the position of this type in Meta.Types. It is dense (0..N-1)
	// and is how snapshot rows resolve name and volume from a bare type id.
	Index int `json:"index"`

	Name string `json:"name"`

	// Volume is the cargo space taken by one unit of the item.
	Volume float64 `json:"volume"`

	// Href is the API reference used as the type filter for order queries.
	Href string `json:"href"`
}

// RegionMeta describes one market region.
type RegionMeta struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Href string `json:"href,omitempty"`
}

// Location is the station or structure an order rests at.
type Location struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Order is one resting buy or sell commitment.
type Order struct {
	Price     float64  `json:"price"`
	Volume    int64    `json:"volume"`
	MinVolume int64    `json:"minVolume"`
	Location  Location `json:"location"`
}

// RowType references a TypeMeta by id and index.
type RowType struct {
	ID    int64 `json:"id"`
	Index int   `json:"index"`
}

// Row holds the buy and sell orders of one type within one region.
type Row struct {
	Type RowType `json:"type"`
	Buy  []Order `json:"buy"`
	Sell []Order `json:"sell"`
}

// Snapshot is the order book of a whole region.
type Snapshot struct {
	Region RegionMeta `json:"region"`
	Rows   []Row      `json:"rows"`
}

// Meta is the reference data fetched once per run.
type Meta struct {
	Regions []RegionMeta `json:"regions"`
	Types   []TypeMeta   `json:"types"`
}

// Type resolves the type metadata for a row. The second return value is
// false when the index is out of range.
func (m *Meta) Type(t RowType) (TypeMeta, bool) {
	if t.Index < 0 || t.Index >= len(m.Types) {
		return TypeMeta{}, false
	}
	return m.Types[t.Index], true
}

// Reindex rewrites every TypeMeta.Index to its slice position.
func (m *Meta) Reindex() {
	for i := range m.Types {
		m.Types[i].Index = i
	}
}

// CloneOrders returns a copy of orders that shares no backing array.
func CloneOrders(orders []Order) []Order {
	if orders == nil {
		return nil
	}
	out := make([]Order, len(orders))
	copy(out, orders)
	return out
}

// CloneRows deep-copies rows so an analysis pass can consolidate orders
// without touching the caller's snapshot.
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = Row{
			Type: row.Type,
			Buy:  CloneOrders(row.Buy),
			Sell: CloneOrders(row.Sell),
		}
	}
	return out
}
