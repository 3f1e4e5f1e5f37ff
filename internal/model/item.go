// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "strings"

// Item is one purchasable product in the catalog.
//
// The same struct doubles as a cart line: when an item is added to the cart
// we store a full snapshot of it (title, price, ...) together with the chosen
// Quantity. That snapshot is NOT linked back to the live catalog. If the price
// changes later, carts and past orders keep the old price.
//
// PRICES ARE INTEGERS:
// Price is in minor units (e.g. kopiyky or cents). Never use float64 for money:
// 0.1 + 0.2 != 0.3 in binary floating point.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Price       int    `json:"price"`
	Weight      int    `json:"weight"`
	IsFavorite  bool   `json:"isFavorite"`
	Quantity    int    `json:"quantity"`
}

// LineTotal is price × quantity. A zero or negative quantity counts as one,
// matching how a freshly fetched catalog item (quantity unset) is displayed.
func (i Item) LineTotal() int {
	q := i.Quantity
	if q < 1 {
		q = 1
	}
	return i.Price * q
}

// SearchItems returns the items whose title contains query, ignoring case.
// A blank query returns items unchanged.
//
// This is a pure in-memory predicate over a catalog snapshot; the document
// store is never asked to filter.
func SearchItems(items []Item, query string) []Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	needle := strings.ToLower(query)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), needle) {
			out = append(out, it)
		}
	}
	return out
}

// FavoriteItems returns the items flagged as favorites.
func FavoriteItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.IsFavorite {
			out = append(out, it)
		}
	}
	return out
}

// MarkFavorites returns a copy of items with IsFavorite set from the liked set.
func MarkFavorites(items []Item, liked []string) []Item {
	set := make(map[string]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}

	out := make([]Item, len(items))
	for i, it := range items {
		_, ok := set[it.ID]
		it.IsFavorite = ok
		out[i] = it
	}
	return out
}
