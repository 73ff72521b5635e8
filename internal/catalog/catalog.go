// Package catalog holds the tradable item set and resolves free-text queries
// into tier/enchantment variant families.
//
// Item IDs follow the "T<tier>_<base>[@<enchantment>]" convention. A family is
// every ID in the catalog that shares one base, ordered by tier and then by
// enchantment level. Items without a tier prefix never form a family.
//
// A Catalog is read-only after construction and safe for concurrent use.
package catalog

import (
	"strconv"
	"strings"

	"github.com/rewired-gh/silverroute/internal/models"
	"github.com/rewired-gh/silverroute/internal/textnorm"
)

const (
	// MaxTier is the highest tier probed when expanding a family.
	MaxTier = 8
	// MaxEnchantment is the highest enchantment level probed per tier.
	MaxEnchantment = 3

	// DefaultLocale is the preferred language for names and descriptions.
	DefaultLocale = "PT-BR"
	// DefaultFallback is used when an entry lacks the preferred language.
	DefaultFallback = "EN-US"
)

const (
	tierMarker       = "T"
	enchantDelimiter = "@"
	baseDelimiter    = "_"
)

// Record is one entry of the item dump as handed over by the loader.
// Any field may be missing.
type Record struct {
	UniqueName            string            `json:"UniqueName"`
	LocalizedNames        map[string]string `json:"LocalizedNames"`
	LocalizedDescriptions map[string]string `json:"LocalizedDescriptions"`
}

// Options selects which localized strings become display text.
type Options struct {
	Locale         string
	FallbackLocale string
}

// Catalog maps item IDs to items and keeps their load order for scanning.
type Catalog struct {
	items     map[string]models.Item
	haystacks map[string]string // normalized "name description"
	order     []string
}

// New builds a catalog from records. Records without an ID are skipped. A
// record without a name in either locale uses its ID as its name. A repeated
// ID replaces the earlier item but keeps the earlier scan position.
func New(records []Record, opts Options) *Catalog {
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.FallbackLocale == "" {
		opts.FallbackLocale = DefaultFallback
	}

	c := &Catalog{
		items:     make(map[string]models.Item, len(records)),
		haystacks: make(map[string]string, len(records)),
		order:     make([]string, 0, len(records)),
	}
	for _, r := range records {
		id := strings.TrimSpace(r.UniqueName)
		if id == "" {
			continue
		}
		name := localized(r.LocalizedNames, opts)
		if name == "" {
			name = id
		}
		item := models.Item{
			ID:          id,
			Name:        name,
			Description: localized(r.LocalizedDescriptions, opts),
		}
		c.add(item)
	}
	return c
}

// FromItems builds a catalog directly from items, in the given order.
func FromItems(items []models.Item) *Catalog {
	c := &Catalog{
		items:     make(map[string]models.Item, len(items)),
		haystacks: make(map[string]string, len(items)),
	}
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if item.Name == "" {
			item.Name = item.ID
		}
		c.add(item)
	}
	return c
}

func (c *Catalog) add(item models.Item) {
	if _, exists := c.items[item.ID]; !exists {
		c.order = append(c.order, item.ID)
	}
	c.items[item.ID] = item
	c.haystacks[item.ID] = textnorm.Normalize(item.Name + " " + item.Description)
}

func localized(values map[string]string, opts Options) string {
	if v := values[opts.Locale]; v != "" {
		return v
	}
	return values[opts.FallbackLocale]
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item returns the item with the given ID.
func (c *Catalog) Item(id string) (models.Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// Has reports whether the ID is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.items[id]
	return ok
}

// ItemName returns the display name of an item, or the ID itself if unknown.
func (c *Catalog) ItemName(id string) string {
	if item, ok := c.items[id]; ok {
		return item.Name
	}
	return id
}

// Search returns one variant family per distinct base among the items whose
// name or description contains term, ignoring case and accents. Families come
// in the order their base was first matched while scanning the catalog.
// A term that matches nothing, or normalizes to nothing, yields an empty slice.
func (c *Catalog) Search(term string) []models.VariantFamily {
	needle := strings.TrimSpace(textnorm.Normalize(term))
	if needle == "" {
		return make([]models.VariantFamily, 0)
	}

	var matches []string
	for _, id := range c.order {
		if strings.Contains(c.haystacks[id], needle) {
			matches = append(matches, id)
		}
	}

	results := make([]models.VariantFamily, 0)
	processed := make(map[string]bool)
	for _, id := range matches {
		baseID := ExtractBaseID(id)
		if processed[baseID] {
			continue
		}
		processed[baseID] = true

		variants := c.FindAllVariants(baseID)
		if len(variants) == 0 {
			continue
		}
		baseName := baseID
		if item, ok := c.items[variants[0]]; ok {
			baseName = item.Name
		}
		results = append(results, models.VariantFamily{
			BaseID:   baseID,
			BaseName: baseName,
			Variants: variants,
		})
	}
	return results
}

// SearchOutcome classifies a search that produced no family.
func (c *Catalog) SearchOutcome(term string, families []models.VariantFamily) models.Outcome {
	if len(families) > 0 {
		return models.OutcomeOK
	}
	needle := strings.TrimSpace(textnorm.Normalize(term))
	if needle == "" {
		return models.OutcomeNoMatch
	}
	for _, id := range c.order {
		if strings.Contains(c.haystacks[id], needle) {
			return models.OutcomeNoVariants
		}
	}
	return models.OutcomeNoMatch
}

// FindAllVariants returns every catalog ID of the form T<n>_<baseID> and
// T<n>_<baseID>@<e>, for n in 1..MaxTier and e in 1..MaxEnchantment, ordered
// by tier and then enchantment.
func (c *Catalog) FindAllVariants(baseID string) []string {
	var variants []string
	for tier := 1; tier <= MaxTier; tier++ {
		tierID := TierID(tier, baseID)
		if c.Has(tierID) {
			variants = append(variants, tierID)
		}
		for enchant := 1; enchant <= MaxEnchantment; enchant++ {
			enchantedID := EnchantedID(tierID, enchant)
			if c.Has(enchantedID) {
				variants = append(variants, enchantedID)
			}
		}
	}
	return variants
}

// TierID builds "T<tier>_<baseID>".
func TierID(tier int, baseID string) string {
	return tierMarker + strconv.Itoa(tier) + baseDelimiter + baseID
}

// EnchantedID builds "<id>@<level>".
func EnchantedID(id string, level int) string {
	return id + enchantDelimiter + strconv.Itoa(level)
}

// ExtractBaseID strips the enchantment suffix ("@<digits>") and then the tier
// prefix ("T<digits>_"). IDs that do not carry a tier prefix are returned with
// only the enchantment removed.
//
//	ExtractBaseID("T4_BAG@1")       == "BAG"
//	ExtractBaseID("T6_2H_BOW")      == "2H_BOW"
//	ExtractBaseID("UNIQUE_HIDEOUT") == "UNIQUE_HIDEOUT"
func ExtractBaseID(itemID string) string {
	base := itemID
	if i := strings.Index(base, enchantDelimiter); i >= 0 && isDigits(base[i+1:]) {
		base = base[:i]
	}

	if !strings.HasPrefix(base, tierMarker) {
		return base
	}
	marker, rest, found := strings.Cut(base, baseDelimiter)
	if !found || !isDigits(marker[len(tierMarker):]) {
		return base
	}
	return rest
}

// Tier returns the tier encoded in an ID, or 0 if it has none.
func Tier(itemID string) int {
	base, _, _ := strings.Cut(itemID, enchantDelimiter)
	marker, _, found := strings.Cut(base, baseDelimiter)
	if !found || !strings.HasPrefix(marker, tierMarker) || !isDigits(marker[len(tierMarker):]) {
		return 0
	}
	tier, _ := strconv.Atoi(marker[len(tierMarker):])
	return tier
}

// Enchantment returns the enchantment level encoded in an ID, or 0 if it has none.
func Enchantment(itemID string) int {
	_, level, found := strings.Cut(itemID, enchantDelimiter)
	if !found || !isDigits(level) {
		return 0
	}
	n, _ := strconv.Atoi(level)
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
