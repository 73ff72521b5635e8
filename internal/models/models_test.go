package models

import (
	"testing"
)

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{
			name:    "valid item",
			item:    Item{ID: "T4_BAG", Name: "Bolsa do Adepto"},
			wantErr: false,
		},
		{
			name:    "empty ID",
			item:    Item{Name: "Bolsa do Adepto"},
			wantErr: true,
		},
		{
			name:    "empty name",
			item:    Item{ID: "T4_BAG"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Item.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCityQuoteValidate(t *testing.T) {
	valid := CityQuote{BuyMax: 120, SellMin: 100}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	negative := CityQuote{BuyMax: -1}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative buy max")
	}
}

func TestOpportunityValidate(t *testing.T) {
	tests := []struct {
		name    string
		opp     Opportunity
		wantErr bool
	}{
		{
			name: "valid opportunity",
			opp: Opportunity{
				ItemID:      "T4_BAG",
				BuyLocation: Location{City: "Martlock", Price: 100},
				SellOpportunities: []SellOpportunity{
					{City: "Caerleon", Price: 150, Profit: 50, ProfitPercent: 50},
					{City: "Lymhurst", Price: 120, Profit: 20, ProfitPercent: 20},
				},
			},
			wantErr: false,
		},
		{
			name: "zero buy price",
			opp: Opportunity{
				ItemID:            "T4_BAG",
				BuyLocation:       Location{City: "Martlock"},
				SellOpportunities: []SellOpportunity{{City: "Caerleon", Price: 150, Profit: 150}},
			},
			wantErr: true,
		},
		{
			name: "sell in buy city",
			opp: Opportunity{
				ItemID:            "T4_BAG",
				BuyLocation:       Location{City: "Martlock", Price: 100},
				SellOpportunities: []SellOpportunity{{City: "Martlock", Price: 150, Profit: 50}},
			},
			wantErr: true,
		},
		{
			name: "unordered sells",
			opp: Opportunity{
				ItemID:      "T4_BAG",
				BuyLocation: Location{City: "Martlock", Price: 100},
				SellOpportunities: []SellOpportunity{
					{City: "Lymhurst", Price: 120, Profit: 20},
					{City: "Caerleon", Price: 150, Profit: 50},
				},
			},
			wantErr: true,
		},
		{
			name: "no sells",
			opp: Opportunity{
				ItemID:      "T4_BAG",
				BuyLocation: Location{City: "Martlock", Price: 100},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opp.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Opportunity.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriceBook_CitiesFollowEnumerationOrder(t *testing.T) {
	b := NewPriceBook([]string{"Martlock", "Bridgewatch", "Caerleon"})
	b.Add("Caerleon", "T4_BAG", CityQuote{BuyMax: 150})
	b.Add("Brecilien", "T4_BAG", CityQuote{SellMin: 90})
	b.Add("Martlock", "T4_BAG", CityQuote{SellMin: 100})

	cities := b.Cities()
	expected := []string{"Martlock", "Caerleon", "Brecilien"}
	if len(cities) != len(expected) {
		t.Fatalf("Expected %d cities, got %d (%v)", len(expected), len(cities), cities)
	}
	for i, city := range expected {
		if cities[i] != city {
			t.Errorf("Cities()[%d] = %s, expected %s", i, cities[i], city)
		}
	}
}

func TestPriceBook_MissingVersusZero(t *testing.T) {
	b := NewPriceBook(nil)
	b.Add("Martlock", "T4_BAG", CityQuote{})

	if _, ok := b.Quote("Martlock", "T4_BAG"); !ok {
		t.Error("zero-valued quote should still be present")
	}
	if _, ok := b.Quote("Martlock", "T5_BAG"); ok {
		t.Error("unknown item should be absent")
	}
	if _, ok := b.Quote("Thetford", "T4_BAG"); ok {
		t.Error("unknown city should be absent")
	}
	if !b.HasItem("T4_BAG") || b.HasItem("T5_BAG") {
		t.Error("HasItem reported wrong presence")
	}
}

func TestPriceBook_NilSafe(t *testing.T) {
	var b *PriceBook
	if !b.IsEmpty() {
		t.Error("nil book should be empty")
	}
	if len(b.Cities()) != 0 {
		t.Error("nil book should have no cities")
	}
	if _, ok := b.Quote("Martlock", "T4_BAG"); ok {
		t.Error("nil book should have no quotes")
	}
}

func TestPriceBook_Merge(t *testing.T) {
	a := NewPriceBook([]string{"Martlock", "Lymhurst"})
	a.Add("Martlock", "T4_BAG", CityQuote{SellMin: 100})

	b := NewPriceBook([]string{"Martlock", "Lymhurst"})
	b.Add("Martlock", "T4_BAG", CityQuote{SellMin: 90})
	b.Add("Lymhurst", "T5_BAG", CityQuote{BuyMax: 300})

	a.Merge(b)

	if a.Len() != 2 {
		t.Errorf("Expected 2 entries after merge, got %d", a.Len())
	}
	q, _ := a.Quote("Martlock", "T4_BAG")
	if q.SellMin != 90 {
		t.Errorf("Expected merged quote to win, got sell_min %d", q.SellMin)
	}
}
