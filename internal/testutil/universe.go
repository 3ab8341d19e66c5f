package testutil

import (
	"fmt"
	"net/http"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
)

// Book is the buy and sell side of one type in one region.
type Book struct {
	Buy  []market.Order
	Sell []market.Order
}

// Universe is a complete fixture for the mock API: regions, market types
// with their details, and per-region order books keyed by type id.
type Universe struct {
	Regions []market.RegionMeta
	Types   []market.TypeMeta
	Books   map[int64]map[int64]Book // region id -> type id -> book

	// PerPage controls the page size of /regions/ and /market/types/.
	PerPage int
}

// TypeHref returns the reference the mock uses for a type id.
func TypeHref(typeID int64) string {
	return fmt.Sprintf("https://api.test/inventory/types/%d/", typeID)
}

// Install registers every endpoint of u on the mock.
func (m *MockAPI) Install(u Universe) {
	perPage := u.PerPage
	if perPage <= 0 {
		perPage = 2
	}

	regions := make([]any, len(u.Regions))
	for i, region := range u.Regions {
		regions[i] = map[string]any{
			"id":   region.ID,
			"name": region.Name,
			"href": fmt.Sprintf("https://api.test/regions/%d/", region.ID),
		}
	}
	m.SetPaged("/regions/", regions, perPage)

	hrefs := make(map[string]int64, len(u.Types))
	marketTypes := make([]any, len(u.Types))
	for i, typ := range u.Types {
		href := TypeHref(typ.ID)
		hrefs[href] = typ.ID
		marketTypes[i] = map[string]any{
			"type": map[string]any{
				"id":   typ.ID,
				"name": typ.Name,
				"href": href,
			},
		}
		m.SetJSON(fmt.Sprintf("/types/%d/", typ.ID), map[string]any{
			"id":     typ.ID,
			"name":   typ.Name,
			"volume": typ.Volume,
		})
	}
	m.SetPaged("/market/types/", marketTypes, perPage)

	for regionID, books := range u.Books {
		books := books
		for _, side := range []string{"buy", "sell"} {
			side := side
			path := fmt.Sprintf("/market/%d/orders/%s/", regionID, side)
			m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
				typeID, ok := hrefs[r.URL.Query().Get("type")]
				if !ok {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				book := books[typeID]
				orders := book.Buy
				if side == "sell" {
					orders = book.Sell
				}
				if orders == nil {
					orders = []market.Order{}
				}
				writeJSON(w, map[string]any{
					"items":     orders,
					"pageCount": 1,
				})
			})
		}
	}
}
