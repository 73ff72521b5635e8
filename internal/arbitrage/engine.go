// Package arbitrage computes single-hop buy/sell opportunities from a PriceBook.
//
// For every item the buy side is the city with the lowest positive sell order;
// the item is bought there from sellers. The sell side is any other city whose
// highest buy order pays more than that price; the item is sold there to buyers.
//
//	profit         = buy_max(sell city) - sell_min(buy city)
//	profit_percent = 100 × profit / sell_min(buy city)
//
// Ties are broken by the book's city enumeration order. Missing entries and
// zero prices are treated as absent orders; the engine never fails on them.
//
// Two policies are available: ModeTopSells reports up to N profitable sell
// cities per item and ranks items by their best profit; ModeBestSingle reports
// the single highest-paying sell city per item in input order.
package arbitrage

import (
	"fmt"
	"sort"

	"github.com/rewired-gh/silverroute/internal/models"
)

// Mode selects the arbitrage policy.
type Mode string

const (
	// ModeTopSells keeps the most profitable sell cities per item.
	ModeTopSells Mode = "top_sells"
	// ModeBestSingle keeps only the highest-paying sell city per item.
	ModeBestSingle Mode = "best_single"
)

// DefaultTopSells is the number of sell cities kept per item in ModeTopSells.
const DefaultTopSells = 3

// ParseMode validates a mode name. An empty name selects ModeTopSells.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTopSells:
		return ModeTopSells, nil
	case ModeBestSingle:
		return ModeBestSingle, nil
	default:
		return "", fmt.Errorf("unknown arbitrage mode %q (want %s or %s)", s, ModeTopSells, ModeBestSingle)
	}
}

// NameResolver turns item IDs into display names.
type NameResolver interface {
	ItemName(id string) string
}

// Engine evaluates items against a PriceBook. It holds no per-request state
// and is safe for concurrent use.
type Engine struct {
	names    NameResolver
	mode     Mode
	topSells int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the arbitrage policy.
func WithMode(m Mode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithTopSells sets how many sell cities ModeTopSells keeps per item.
func WithTopSells(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topSells = n
		}
	}
}

// New creates an Engine. names may be nil, in which case item IDs are used as names.
func New(names NameResolver, opts ...Option) *Engine {
	e := &Engine{
		names:    names,
		mode:     ModeTopSells,
		topSells: DefaultTopSells,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured policy.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Result is the full outcome of an evaluation: the opportunities found and
// the items that produced none, with the reason.
type Result struct {
	Opportunities []models.Opportunity
	Skipped       []models.Skipped
}

// Compute returns the opportunities for itemIDs using the engine's mode.
func (e *Engine) Compute(itemIDs []string, book *models.PriceBook) []models.Opportunity {
	return e.Evaluate(itemIDs, book).Opportunities
}

// Evaluate computes opportunities and records why every other item was dropped.
func (e *Engine) Evaluate(itemIDs []string, book *models.PriceBook) Result {
	return e.EvaluateWithMode(e.mode, itemIDs, book)
}

// EvaluateWithMode is Evaluate with an explicit policy for this call.
func (e *Engine) EvaluateWithMode(mode Mode, itemIDs []string, book *models.PriceBook) Result {
	res := Result{Opportunities: make([]models.Opportunity, 0)}
	cities := book.Cities()

	for _, itemID := range itemIDs {
		buy, ok := cheapestBuy(itemID, cities, book)
		if !ok {
			res.Skipped = append(res.Skipped, models.Skipped{ItemID: itemID, Reason: models.OutcomeNoBuySide})
			continue
		}

		var sells []models.SellOpportunity
		if mode == ModeBestSingle {
			sells = bestSingleSell(itemID, buy, cities, book)
		} else {
			sells = topSells(itemID, buy, cities, book, e.topSells)
		}
		if len(sells) == 0 {
			res.Skipped = append(res.Skipped, models.Skipped{ItemID: itemID, Reason: models.OutcomeNoProfitableSell})
			continue
		}

		res.Opportunities = append(res.Opportunities, models.Opportunity{
			ItemID:            itemID,
			ItemName:          e.itemName(itemID),
			BuyLocation:       buy,
			SellOpportunities: sells,
		})
	}

	if mode != ModeBestSingle {
		sort.SliceStable(res.Opportunities, func(i, j int) bool {
			return res.Opportunities[i].BestProfit() > res.Opportunities[j].BestProfit()
		})
	}
	return res
}

func (e *Engine) itemName(id string) string {
	if e.names == nil {
		return id
	}
	return e.names.ItemName(id)
}

// cheapestBuy picks the city with the minimum strictly positive sell order.
// The first city in enumeration order wins a tie.
func cheapestBuy(itemID string, cities []string, book *models.PriceBook) (models.Location, bool) {
	var best models.Location
	found := false
	for _, city := range cities {
		q, ok := book.Quote(city, itemID)
		if !ok || q.SellMin <= 0 {
			continue
		}
		if !found || q.SellMin < best.Price {
			best = models.Location{City: city, Price: q.SellMin}
			found = true
		}
	}
	return best, found
}

// topSells collects every other city whose buy order beats the buy price,
// ordered by descending profit, keeping at most n.
func topSells(itemID string, buy models.Location, cities []string, book *models.PriceBook, n int) []models.SellOpportunity {
	var sells []models.SellOpportunity
	for _, city := range cities {
		if city == buy.City {
			continue
		}
		q, ok := book.Quote(city, itemID)
		if !ok || q.BuyMax <= 0 {
			continue
		}
		if s, ok := sellAt(city, q.BuyMax, buy.Price); ok {
			sells = append(sells, s)
		}
	}

	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].Profit > sells[j].Profit
	})
	if len(sells) > n {
		sells = sells[:n]
	}
	return sells
}

// bestSingleSell picks the other city with the strictly highest buy order,
// first in enumeration order on a tie, and keeps it only if it is profitable.
func bestSingleSell(itemID string, buy models.Location, cities []string, book *models.PriceBook) []models.SellOpportunity {
	bestCity := ""
	var bestPrice int64
	for _, city := range cities {
		if city == buy.City {
			continue
		}
		q, ok := book.Quote(city, itemID)
		if !ok {
			continue
		}
		if q.BuyMax > bestPrice {
			bestCity = city
			bestPrice = q.BuyMax
		}
	}
	if bestCity == "" {
		return nil
	}
	s, ok := sellAt(bestCity, bestPrice, buy.Price)
	if !ok {
		return nil
	}
	return []models.SellOpportunity{s}
}

// sellAt prices a sale; buyPrice is strictly positive by construction.
func sellAt(city string, price, buyPrice int64) (models.SellOpportunity, bool) {
	profit := float64(price - buyPrice)
	if profit <= 0 {
		return models.SellOpportunity{}, false
	}
	return models.SellOpportunity{
		City:          city,
		Price:         price,
		Profit:        profit,
		ProfitPercent: 100 * profit / float64(buyPrice),
	}, true
}
