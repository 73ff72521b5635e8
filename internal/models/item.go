// Package models defines the domain values shared by the silverroute packages.
// These cover catalog items, per-city market quotes and computed arbitrage
// opportunities. Values carry their own validation where integrity matters.
//
// Terminology (matching the Albion Online data dump):
//   - Item ID: the UniqueName token, e.g. "T4_BAG" or "T6_2H_BOW@2".
//   - Tier: the "T<n>_" prefix of an item ID.
//   - Enchantment: the "@<n>" suffix of an item ID.
package models

import "errors"

// Item is a tradable catalog entry. Immutable once loaded.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Validate checks that the item can be stored in a catalog.
func (i *Item) Validate() error {
	if i.ID == "" {
		return errors.New("item ID must not be empty")
	}
	if i.Name == "" {
		return errors.New("item name must not be empty")
	}
	return nil
}

// VariantFamily groups every tier/enchantment variant sharing one base ID.
// Variants are ordered by ascending tier, then ascending enchantment, with the
// unenchanted item first at each tier.
type VariantFamily struct {
	BaseID   string   `json:"base_id"`
	BaseName string   `json:"base_name"`
	Variants []string `json:"variants"`
}
