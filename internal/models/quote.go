package models

import (
	"errors"
	"time"
)

// CityQuote is a point-in-time reading of the order book for one item in one
// city. A zero price means there is no active order on that side.
type CityQuote struct {
	BuyMax      int64     `json:"buy_max"`  // highest active buy order
	SellMin     int64     `json:"sell_min"` // lowest active sell order
	BuyMaxDate  time.Time `json:"buy_max_date,omitempty"`
	SellMinDate time.Time `json:"sell_min_date,omitempty"`
}

// Validate checks that prices are non-negative.
func (q *CityQuote) Validate() error {
	if q.BuyMax < 0 {
		return errors.New("buy max must not be negative")
	}
	if q.SellMin < 0 {
		return errors.New("sell min must not be negative")
	}
	return nil
}

// PriceBook is a per-request snapshot of quotes keyed by city, then item ID.
//
// A city is present only once a quote has been added for it. A missing
// (city, item) entry means "no data", which is distinct from a quote whose
// prices are zero. The city order given at construction is the enumeration
// order used for tie breaking; cities outside it follow in insertion order.
//
// A PriceBook is built by one goroutine and must not be mutated after it is
// handed to a reader. All read methods are safe on a nil receiver.
type PriceBook struct {
	order  []string
	known  map[string]bool
	quotes map[string]map[string]CityQuote
}

// NewPriceBook creates an empty book with the given city enumeration order.
func NewPriceBook(cityOrder []string) *PriceBook {
	b := &PriceBook{
		known:  make(map[string]bool, len(cityOrder)),
		quotes: make(map[string]map[string]CityQuote),
	}
	for _, city := range cityOrder {
		if city == "" || b.known[city] {
			continue
		}
		b.known[city] = true
		b.order = append(b.order, city)
	}
	return b
}

// Add records a quote, replacing any previous quote for the same city and item.
func (b *PriceBook) Add(city, itemID string, q CityQuote) {
	if city == "" || itemID == "" {
		return
	}
	if !b.known[city] {
		b.known[city] = true
		b.order = append(b.order, city)
	}
	items, ok := b.quotes[city]
	if !ok {
		items = make(map[string]CityQuote)
		b.quotes[city] = items
	}
	items[itemID] = q
}

// Quote returns the quote for a city and item, and whether one exists.
func (b *PriceBook) Quote(city, itemID string) (CityQuote, bool) {
	if b == nil {
		return CityQuote{}, false
	}
	q, ok := b.quotes[city][itemID]
	return q, ok
}

// Cities returns the cities that carry at least one quote, in enumeration order.
func (b *PriceBook) Cities() []string {
	if b == nil {
		return nil
	}
	cities := make([]string, 0, len(b.quotes))
	for _, city := range b.order {
		if _, ok := b.quotes[city]; ok {
			cities = append(cities, city)
		}
	}
	return cities
}

// CityOrder returns the full enumeration order, including cities without quotes.
func (b *PriceBook) CityOrder() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.order...)
}

// Items returns the quotes recorded for one city.
func (b *PriceBook) Items(city string) map[string]CityQuote {
	if b == nil {
		return nil
	}
	return b.quotes[city]
}

// HasItem reports whether any city carries a quote for the item.
func (b *PriceBook) HasItem(itemID string) bool {
	if b == nil {
		return false
	}
	for _, items := range b.quotes {
		if _, ok := items[itemID]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of (city, item) entries.
func (b *PriceBook) Len() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, items := range b.quotes {
		n += len(items)
	}
	return n
}

// IsEmpty reports whether the book holds no quotes.
func (b *PriceBook) IsEmpty() bool {
	return b.Len() == 0
}

// Merge copies every quote of other into b. Quotes in other win.
func (b *PriceBook) Merge(other *PriceBook) {
	if other == nil {
		return
	}
	for _, city := range other.order {
		for itemID, q := range other.quotes[city] {
			b.Add(city, itemID, q)
		}
	}
}
