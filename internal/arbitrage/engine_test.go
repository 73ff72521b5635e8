package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/silverroute/internal/catalog"
	"github.com/rewired-gh/silverroute/internal/models"
)

var cities = []string{"Martlock", "Bridgewatch", "Fort Sterling", "Lymhurst", "Thetford", "Caerleon"}

func bagCatalog() *catalog.Catalog {
	return catalog.FromItems([]models.Item{
		{ID: "T4_BAG", Name: "Bag T4"},
		{ID: "T4_BAG@1", Name: "Bag T4 ench1"},
	})
}

func TestCompute_BestSingleScenario(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 150})

	e := New(bagCatalog(), WithMode(ModeBestSingle))
	opps := e.Compute([]string{"T4_BAG"}, book)

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.Equal(t, "T4_BAG", opp.ItemID)
	assert.Equal(t, "Bag T4", opp.ItemName)
	assert.Equal(t, models.Location{City: "Martlock", Price: 100}, opp.BuyLocation)
	require.Len(t, opp.SellOpportunities, 1)
	sell := opp.SellOpportunities[0]
	assert.Equal(t, "Caerleon", sell.City)
	assert.Equal(t, int64(150), sell.Price)
	assert.InDelta(t, 50.0, sell.Profit, 1e-9)
	assert.InDelta(t, 50.0, sell.ProfitPercent, 1e-9)
}

func TestCompute_NoBuySide(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{BuyMax: 300})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 500})

	for _, mode := range []Mode{ModeTopSells, ModeBestSingle} {
		e := New(bagCatalog(), WithMode(mode))
		res := e.Evaluate([]string{"T4_BAG"}, book)
		assert.Empty(t, res.Opportunities, "mode %s", mode)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, models.OutcomeNoBuySide, res.Skipped[0].Reason)
	}
}

func TestCompute_NoProfitableSell(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100, BuyMax: 400})
	book.Add("Lymhurst", "T4_BAG", models.CityQuote{SellMin: 200, BuyMax: 100})
	book.Add("Thetford", "T4_BAG", models.CityQuote{BuyMax: 90})

	for _, mode := range []Mode{ModeTopSells, ModeBestSingle} {
		e := New(bagCatalog(), WithMode(mode))
		res := e.Evaluate([]string{"T4_BAG"}, book)
		assert.Empty(t, res.Opportunities, "mode %s", mode)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, models.OutcomeNoProfitableSell, res.Skipped[0].Reason, "mode %s", mode)
	}
}

func TestCompute_ItemsMissingFromBookAreExcluded(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 150})

	e := New(bagCatalog())
	opps := e.Compute([]string{"T4_BAG@1", "T4_BAG", "T8_UNKNOWN"}, book)

	require.Len(t, opps, 1)
	assert.Equal(t, "T4_BAG", opps[0].ItemID)
}

func TestCompute_EmptyAndNilBook(t *testing.T) {
	e := New(bagCatalog())
	assert.Empty(t, e.Compute([]string{"T4_BAG"}, nil))
	assert.Empty(t, e.Compute([]string{"T4_BAG"}, models.NewPriceBook(cities)))
	assert.Empty(t, e.Compute(nil, models.NewPriceBook(cities)))
}

func TestTopSells_KeepsThreeByDescendingProfit(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 1000})
	book.Add("Bridgewatch", "T4_BAG", models.CityQuote{BuyMax: 1100})
	book.Add("Fort Sterling", "T4_BAG", models.CityQuote{BuyMax: 1500})
	book.Add("Lymhurst", "T4_BAG", models.CityQuote{BuyMax: 1300})
	book.Add("Thetford", "T4_BAG", models.CityQuote{BuyMax: 1200})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 900})

	opps := New(bagCatalog()).Compute([]string{"T4_BAG"}, book)
	require.Len(t, opps, 1)

	sells := opps[0].SellOpportunities
	require.Len(t, sells, 3)
	assert.Equal(t, "Fort Sterling", sells[0].City)
	assert.Equal(t, "Lymhurst", sells[1].City)
	assert.Equal(t, "Thetford", sells[2].City)
	assert.InDelta(t, 50.0, sells[0].ProfitPercent, 1e-9)
	assert.NoError(t, opps[0].Validate())
}

func TestTopSells_CustomCount(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Bridgewatch", "T4_BAG", models.CityQuote{BuyMax: 110})
	book.Add("Lymhurst", "T4_BAG", models.CityQuote{BuyMax: 120})

	opps := New(bagCatalog(), WithTopSells(1)).Compute([]string{"T4_BAG"}, book)
	require.Len(t, opps, 1)
	require.Len(t, opps[0].SellOpportunities, 1)
	assert.Equal(t, "Lymhurst", opps[0].SellOpportunities[0].City)
}

func TestBuySelection_TieUsesEnumerationOrder(t *testing.T) {
	book := models.NewPriceBook(cities)
	// Insert out of enumeration order; Bridgewatch comes before Lymhurst.
	book.Add("Lymhurst", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Bridgewatch", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 130})

	opps := New(bagCatalog()).Compute([]string{"T4_BAG"}, book)
	require.Len(t, opps, 1)
	assert.Equal(t, "Bridgewatch", opps[0].BuyLocation.City)
}

func TestBestSingle_TieUsesEnumerationOrder(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 150})
	book.Add("Fort Sterling", "T4_BAG", models.CityQuote{BuyMax: 150})

	opps := New(bagCatalog(), WithMode(ModeBestSingle)).Compute([]string{"T4_BAG"}, book)
	require.Len(t, opps, 1)
	assert.Equal(t, "Fort Sterling", opps[0].SellOpportunities[0].City)
}

func TestBestSingle_ExcludesBuyCity(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100, BuyMax: 900})
	book.Add("Lymhurst", "T4_BAG", models.CityQuote{SellMin: 300, BuyMax: 120})

	opps := New(bagCatalog(), WithMode(ModeBestSingle)).Compute([]string{"T4_BAG"}, book)
	require.Len(t, opps, 1)
	require.Len(t, opps[0].SellOpportunities, 1)
	assert.Equal(t, "Lymhurst", opps[0].SellOpportunities[0].City)
	assert.InDelta(t, 20.0, opps[0].SellOpportunities[0].Profit, 1e-9)
}

func TestBestSingle_HighestBuyerNotProfitable(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 200})
	book.Add("Lymhurst", "T4_BAG", models.CityQuote{BuyMax: 200})

	opps := New(bagCatalog(), WithMode(ModeBestSingle)).Compute([]string{"T4_BAG"}, book)
	assert.Empty(t, opps)
}

func TestOrdering_TopSellsRanksByBestProfit(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 110})
	book.Add("Martlock", "T4_BAG@1", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG@1", models.CityQuote{BuyMax: 300})

	ids := []string{"T4_BAG", "T4_BAG@1"}

	top := New(bagCatalog()).Compute(ids, book)
	require.Len(t, top, 2)
	assert.Equal(t, "T4_BAG@1", top[0].ItemID)
	assert.Equal(t, "T4_BAG", top[1].ItemID)

	single := New(bagCatalog(), WithMode(ModeBestSingle)).Compute(ids, book)
	require.Len(t, single, 2)
	assert.Equal(t, "T4_BAG", single[0].ItemID, "best single keeps input order")
}

func TestInvariants_BuyBelowEverySell(t *testing.T) {
	book := models.NewPriceBook(cities)
	prices := map[string]models.CityQuote{
		"Martlock":      {SellMin: 520, BuyMax: 480},
		"Bridgewatch":   {SellMin: 450, BuyMax: 700},
		"Fort Sterling": {SellMin: 0, BuyMax: 610},
		"Lymhurst":      {SellMin: 610, BuyMax: 0},
		"Thetford":      {SellMin: 470, BuyMax: 455},
		"Caerleon":      {SellMin: 900, BuyMax: 880},
	}
	for city, q := range prices {
		book.Add(city, "T4_BAG", q)
	}

	for _, mode := range []Mode{ModeTopSells, ModeBestSingle} {
		opps := New(bagCatalog(), WithMode(mode)).Compute([]string{"T4_BAG"}, book)
		require.Len(t, opps, 1)
		opp := opps[0]
		assert.Equal(t, "Bridgewatch", opp.BuyLocation.City)
		assert.NoError(t, opp.Validate(), "mode %s", mode)
		for i, s := range opp.SellOpportunities {
			assert.LessOrEqual(t, opp.BuyLocation.Price, s.Price)
			if i > 0 {
				assert.Greater(t, opp.SellOpportunities[i-1].Profit, s.Profit)
			}
		}
	}
}

func TestNew_NilNames(t *testing.T) {
	book := models.NewPriceBook(cities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 150})

	opps := New(nil).Compute([]string{"T4_BAG"}, book)
	require.Len(t, opps, 1)
	assert.Equal(t, "T4_BAG", opps[0].ItemName)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeTopSells, m)

	m, err = ParseMode("best_single")
	require.NoError(t, err)
	assert.Equal(t, ModeBestSingle, m)

	_, err = ParseMode("multi_hop")
	assert.Error(t, err)
}
