package model

import (
	"slices"
	"time"
)

// Profile is the per-user document: liked items, the active cart and order history.
//
// One Profile exists per identity. It is created lazily: the first write for
// a user creates the document; before that, reads return an empty Profile.
//
// WHY A SLICE FOR A SET?
// LikedItems is semantically a set, but we store it as a slice so the JSON
// document stays a plain array (and keeps the user's insertion order).
// The methods below maintain uniqueness.
type Profile struct {
	LikedItems []string `json:"likedItems"`
	Cart       []Item   `json:"cart"`
	Orders     []Order  `json:"orders"`
}

// Order is an immutable snapshot of the cart at the moment of purchase.
// There is no cancellation or modification path.
type Order struct {
	ID       string    `json:"id"`
	Items    []Item    `json:"items"`
	PlacedAt time.Time `json:"placedAt"`
}

// Total is the sum of price × quantity over the order's lines.
func (o Order) Total() int {
	total := 0
	for _, it := range o.Items {
		total += it.LineTotal()
	}
	return total
}

// NewProfile returns an empty profile with non-nil slices, so it encodes as
// {"likedItems":[],"cart":[],"orders":[]} rather than nulls.
func NewProfile() *Profile {
	return &Profile{
		LikedItems: []string{},
		Cart:       []Item{},
		Orders:     []Order{},
	}
}

// Normalize replaces nil slices with empty ones and drops repeated liked
// IDs, keeping the first occurrence. Documents written by older clients (or
// by hand) may omit fields or list an item twice.
func (p *Profile) Normalize() {
	if p.LikedItems == nil {
		p.LikedItems = []string{}
	}
	seen := make(map[string]struct{}, len(p.LikedItems))
	p.LikedItems = slices.DeleteFunc(p.LikedItems, func(id string) bool {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
		return false
	})
	if p.Cart == nil {
		p.Cart = []Item{}
	}
	if p.Orders == nil {
		p.Orders = []Order{}
	}
}

// Clone returns a deep copy. Services mutate clones and only replace the
// cached profile once the remote write succeeded.
func (p *Profile) Clone() *Profile {
	c := &Profile{
		LikedItems: slices.Clone(p.LikedItems),
		Cart:       slices.Clone(p.Cart),
		Orders:     make([]Order, len(p.Orders)),
	}
	for i, o := range p.Orders {
		o.Items = slices.Clone(o.Items)
		c.Orders[i] = o
	}
	c.Normalize()
	return c
}

// IsLiked reports whether itemID is in the liked set.
func (p *Profile) IsLiked(itemID string) bool {
	return slices.Contains(p.LikedItems, itemID)
}

// ToggleLiked flips itemID's membership in the liked set and reports the new state.
func (p *Profile) ToggleLiked(itemID string) bool {
	if p.IsLiked(itemID) {
		p.LikedItems = slices.DeleteFunc(p.LikedItems, func(id string) bool { return id == itemID })
		return false
	}
	p.LikedItems = append(p.LikedItems, itemID)
	return true
}

// CartIndex returns the position of the first cart line for itemID, or -1.
func (p *Profile) CartIndex(itemID string) int {
	return slices.IndexFunc(p.Cart, func(it Item) bool { return it.ID == itemID })
}

// CartTotal is the sum of price × quantity over the cart.
func (p *Profile) CartTotal() int {
	total := 0
	for _, it := range p.Cart {
		total += it.LineTotal()
	}
	return total
}

// OrdersNewestFirst returns order history in reverse chronological order.
// The stored slice is append-only (oldest first) and is left untouched.
func (p *Profile) OrdersNewestFirst() []Order {
	out := slices.Clone(p.Orders)
	slices.Reverse(out)
	if out == nil {
		out = []Order{}
	}
	return out
}
