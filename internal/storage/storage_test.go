package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/silverroute/internal/models"
)

var testCities = []string{"Martlock", "Lymhurst", "Caerleon"}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "quotes.db"), testCities)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_StoreAndLookup(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	book := models.NewPriceBook(testCities)
	book.Add("Caerleon", "T4_BAG", models.CityQuote{BuyMax: 150, BuyMaxDate: now.Add(-time.Minute).Truncate(time.Second).UTC()})
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})

	if err := s.Store(ctx, []string{"T4_BAG", "T5_BAG"}, book, now); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cached, missing, err := s.Lookup(ctx, []string{"T4_BAG", "T5_BAG", "T6_BAG"}, time.Minute, now)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if len(missing) != 1 || missing[0] != "T6_BAG" {
		t.Errorf("Expected only T6_BAG missing, got %v", missing)
	}
	if cached.Len() != 2 {
		t.Errorf("Expected 2 cached quotes, got %d", cached.Len())
	}
	q, ok := cached.Quote("Caerleon", "T4_BAG")
	if !ok || q.BuyMax != 150 {
		t.Errorf("Unexpected cached quote: %+v (present=%v)", q, ok)
	}
	if q.BuyMaxDate.IsZero() {
		t.Error("Expected buy date to round-trip")
	}

	// Cities come back in enumeration order
	cities := cached.Cities()
	if len(cities) != 2 || cities[0] != "Martlock" || cities[1] != "Caerleon" {
		t.Errorf("Unexpected city order: %v", cities)
	}

	// A fetched item without quotes stays cached as "no data"
	if cached.HasItem("T5_BAG") {
		t.Error("T5_BAG should have no quotes")
	}
}

func TestStorage_LookupExpired(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	fetchedAt := time.Now().Add(-10 * time.Minute)

	book := models.NewPriceBook(testCities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	if err := s.Store(ctx, []string{"T4_BAG"}, book, fetchedAt); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cached, missing, err := s.Lookup(ctx, []string{"T4_BAG"}, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !cached.IsEmpty() {
		t.Error("Expired quotes should not be returned")
	}
	if len(missing) != 1 {
		t.Errorf("Expected expired item to be missing, got %v", missing)
	}
}

func TestStorage_StoreReplacesQuotes(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	first := models.NewPriceBook(testCities)
	first.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	first.Add("Lymhurst", "T4_BAG", models.CityQuote{SellMin: 120})
	if err := s.Store(ctx, []string{"T4_BAG"}, first, now); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	second := models.NewPriceBook(testCities)
	second.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 90})
	if err := s.Store(ctx, []string{"T4_BAG"}, second, now); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cached, _, err := s.Lookup(ctx, []string{"T4_BAG"}, time.Minute, now)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if cached.Len() != 1 {
		t.Errorf("Expected old quotes to be replaced, got %d entries", cached.Len())
	}
	if q, _ := cached.Quote("Martlock", "T4_BAG"); q.SellMin != 90 {
		t.Errorf("Expected sell_min 90, got %d", q.SellMin)
	}
}

func TestStorage_StoreRejectsNegativePrices(t *testing.T) {
	s := newTestStorage(t)

	book := models.NewPriceBook(testCities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: -5})
	if err := s.Store(context.Background(), []string{"T4_BAG"}, book, time.Now()); err == nil {
		t.Error("Expected validation error")
	}

	items, _, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if items != 0 {
		t.Errorf("Failed store should roll back, got %d items", items)
	}
}

func TestStorage_Prune(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	book := models.NewPriceBook(testCities)
	book.Add("Martlock", "T4_BAG", models.CityQuote{SellMin: 100})
	book.Add("Martlock", "T5_BAG", models.CityQuote{SellMin: 200})

	if err := s.Store(ctx, []string{"T4_BAG"}, book, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Store(ctx, []string{"T5_BAG"}, book, now); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	removed, err := s.Prune(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 item pruned, got %d", removed)
	}

	items, quotes, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if items != 1 || quotes != 1 {
		t.Errorf("Expected 1 item and 1 quote after prune, got %d and %d", items, quotes)
	}
}

func TestStorage_EmptyPathUsesTmpDir(t *testing.T) {
	s, err := New("", testCities)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	// Store with no IDs is a no-op
	if err := s.Store(context.Background(), nil, nil, time.Now()); err != nil {
		t.Errorf("Store with no IDs failed: %v", err)
	}
}

func TestInClause(t *testing.T) {
	placeholders, args := inClause([]string{"a", "b", "c"})
	if placeholders != "?,?,?" {
		t.Errorf("Unexpected placeholders: %s", placeholders)
	}
	if len(args) != 3 || !strings.EqualFold(args[0].(string), "a") {
		t.Errorf("Unexpected args: %v", args)
	}
}
