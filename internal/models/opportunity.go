package models

import (
	"errors"
	"fmt"
)

// Location is a city together with the price paid there.
type Location struct {
	City  string `json:"city"`
	Price int64  `json:"price"`
}

// SellOpportunity is a city where the bought item can be sold at a profit.
type SellOpportunity struct {
	City          string  `json:"city"`
	Price         int64   `json:"price"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_percent"`
}

// Opportunity is a profitable buy-in-one-city, sell-in-another pairing for one
// item variant. SellOpportunities is ordered by descending profit.
type Opportunity struct {
	ItemID            string            `json:"item_id"`
	ItemName          string            `json:"item_name"`
	BuyLocation       Location          `json:"buy_location"`
	SellOpportunities []SellOpportunity `json:"sell_opportunities"`
}

// BestProfit returns the profit of the first sell entry, or 0 when there is none.
func (o *Opportunity) BestProfit() float64 {
	if len(o.SellOpportunities) == 0 {
		return 0
	}
	return o.SellOpportunities[0].Profit
}

// Validate checks the opportunity invariants: a strictly positive buy price,
// profitable sells that exclude the buy city, ordered by descending profit.
func (o *Opportunity) Validate() error {
	if o.ItemID == "" {
		return errors.New("item ID must not be empty")
	}
	if o.BuyLocation.City == "" {
		return errors.New("buy city must not be empty")
	}
	if o.BuyLocation.Price <= 0 {
		return errors.New("buy price must be positive")
	}
	if len(o.SellOpportunities) == 0 {
		return errors.New("at least one sell opportunity is required")
	}
	for i, s := range o.SellOpportunities {
		if s.City == o.BuyLocation.City {
			return fmt.Errorf("sell opportunity %d uses the buy city %s", i, s.City)
		}
		if s.Profit <= 0 {
			return fmt.Errorf("sell opportunity %d must have positive profit", i)
		}
		if s.Price < o.BuyLocation.Price {
			return fmt.Errorf("sell opportunity %d price is below the buy price", i)
		}
		if i > 0 && s.Profit > o.SellOpportunities[i-1].Profit {
			return errors.New("sell opportunities must be ordered by descending profit")
		}
	}
	return nil
}

// Outcome classifies why a query or item produced no result. None of these are
// errors; they describe an absence in the result collection.
type Outcome string

const (
	// OutcomeOK means the item or query produced a result.
	OutcomeOK Outcome = "ok"
	// OutcomeNoMatch means the search term matched no catalog item.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeNoVariants means matches existed but no tier/enchantment family
	// could be built from them.
	OutcomeNoVariants Outcome = "no_variants"
	// OutcomeNoBuySide means no city has a positive sell order for the item.
	OutcomeNoBuySide Outcome = "no_buy_side"
	// OutcomeNoProfitableSell means a buy side exists but no other city pays more.
	OutcomeNoProfitableSell Outcome = "no_profitable_sell"
)

// Skipped records an item that produced no opportunity and why.
type Skipped struct {
	ItemID string  `json:"item_id"`
	Reason Outcome `json:"reason"`
}
