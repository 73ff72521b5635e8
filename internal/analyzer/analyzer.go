// Package analyzer runs the query flow end to end: it turns user input into a
// search term, resolves the term to variant families, gathers quotes from the
// cache and the price source, and evaluates arbitrage opportunities.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/rewired-gh/silverroute/internal/albiondata"
	"github.com/rewired-gh/silverroute/internal/arbitrage"
	"github.com/rewired-gh/silverroute/internal/assistant"
	"github.com/rewired-gh/silverroute/internal/catalog"
	"github.com/rewired-gh/silverroute/internal/logger"
	"github.com/rewired-gh/silverroute/internal/models"
)

// ErrInvalidGroup is returned when a selection names a family that does not exist.
var ErrInvalidGroup = errors.New("invalid group")

// PriceSource supplies current quotes for a set of items.
type PriceSource interface {
	FetchPrices(ctx context.Context, itemIDs []string) (*models.PriceBook, error)
}

// QuoteCache stores raw quotes between queries.
type QuoteCache interface {
	Lookup(ctx context.Context, itemIDs []string, ttl time.Duration, now time.Time) (*models.PriceBook, []string, error)
	Store(ctx context.Context, itemIDs []string, book *models.PriceBook, fetchedAt time.Time) error
}

// Config holds the service's tunables.
type Config struct {
	// Cities is the enumeration order used to break price ties.
	Cities    []string
	QuoteTTL  time.Duration
	SearchTTL time.Duration
}

// Service answers search and arbitrage queries.
type Service struct {
	catalog   *catalog.Catalog
	prices    PriceSource
	quotes    QuoteCache
	engine    *arbitrage.Engine
	extractor assistant.TermExtractor
	searches  *gocache.Cache
	cities    []string
	quoteTTL  time.Duration
	now       func() time.Time
}

// New creates a Service. quotes may be nil to disable quote caching and
// extractor may be nil to search with the raw input.
func New(cat *catalog.Catalog, prices PriceSource, quotes QuoteCache, engine *arbitrage.Engine, extractor assistant.TermExtractor, cfg Config) *Service {
	if extractor == nil {
		extractor = assistant.Passthrough{}
	}
	searchTTL, cleanup := cfg.SearchTTL, 2*cfg.SearchTTL
	if searchTTL <= 0 {
		searchTTL, cleanup = gocache.NoExpiration, 0
	}
	return &Service{
		catalog:   cat,
		prices:    prices,
		quotes:    quotes,
		engine:    engine,
		extractor: extractor,
		searches:  gocache.New(searchTTL, cleanup),
		cities:    append([]string(nil), cfg.Cities...),
		quoteTTL:  cfg.QuoteTTL,
		now:       time.Now,
	}
}

// SearchReport is the result of resolving user input to variant families.
type SearchReport struct {
	Query    string                 `json:"query"`
	Term     string                 `json:"term"`
	Families []models.VariantFamily `json:"families"`
	Outcome  models.Outcome         `json:"outcome"`
}

// Report is the result of one arbitrage evaluation.
type Report struct {
	ID            uuid.UUID            `json:"id"`
	Mode          arbitrage.Mode       `json:"mode"`
	ItemIDs       []string             `json:"item_ids"`
	Opportunities []models.Opportunity `json:"opportunities"`
	Skipped       []models.Skipped     `json:"skipped,omitempty"`
	CachedItems   int                  `json:"cached_items"`
	FetchedItems  int                  `json:"fetched_items"`
	FetchError    string               `json:"fetch_error,omitempty"`
	FetchedAt     time.Time            `json:"fetched_at"`
	Duration      time.Duration        `json:"duration"`
}

// Selection picks which families of a search to analyze. Group is 1-based;
// zero selects the first family. All overrides Group. An empty Mode uses the
// engine's mode.
type Selection struct {
	Group int
	All   bool
	Mode  arbitrage.Mode
}

// FamilyReport pairs a family with its evaluation.
type FamilyReport struct {
	Family models.VariantFamily `json:"family"`
	Report Report               `json:"report"`
}

// QueryReport is the combined result of a search and its analysis.
type QueryReport struct {
	Search  SearchReport   `json:"search"`
	Results []FamilyReport `json:"results"`
}

// ItemName returns the display name of an item, or its ID when unknown.
func (s *Service) ItemName(id string) string {
	return s.catalog.ItemName(id)
}

// Search extracts a term from query and resolves it to variant families.
// Results are memoized per term.
func (s *Service) Search(ctx context.Context, query string) SearchReport {
	query = strings.TrimSpace(query)
	term := strings.TrimSpace(s.extractor.ExtractTerm(ctx, query))
	if term == "" {
		term = query
	}

	key := strings.ToLower(term)
	if cached, ok := s.searches.Get(key); ok {
		report := cached.(SearchReport)
		report.Query = query
		return report
	}

	families := s.catalog.Search(term)
	report := SearchReport{
		Query:    query,
		Term:     term,
		Families: families,
		Outcome:  s.catalog.SearchOutcome(term, families),
	}
	s.searches.SetDefault(key, report)
	logger.Debug("Search %q matched %d families (%s)", term, len(families), report.Outcome)
	return report
}

// Analyze evaluates itemIDs with the engine's configured mode.
func (s *Service) Analyze(ctx context.Context, itemIDs []string) (Report, error) {
	return s.AnalyzeWithMode(ctx, s.engine.Mode(), itemIDs)
}

// AnalyzeWithMode gathers quotes for itemIDs and evaluates them under mode.
// Fresh cached quotes are reused; the rest are fetched and cached. A failed
// fetch is recorded in the report and the quotes that did arrive are used.
// Only context cancellation aborts the analysis.
func (s *Service) AnalyzeWithMode(ctx context.Context, mode arbitrage.Mode, itemIDs []string) (Report, error) {
	start := s.now()
	ids := dedup(itemIDs)
	report := Report{
		ID:            uuid.New(),
		Mode:          mode,
		ItemIDs:       ids,
		Opportunities: make([]models.Opportunity, 0),
		FetchedAt:     start,
	}
	if len(ids) == 0 {
		return report, nil
	}
	logger.Info("Starting analysis %s of %d items", report.ID, len(ids))

	book, missing := s.cached(ctx, ids, start)
	report.CachedItems = len(ids) - len(missing)

	if len(missing) > 0 {
		fetched, err := s.prices.FetchPrices(ctx, missing)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			logger.Warn("Price fetch incomplete: %v", err)
			report.FetchError = err.Error()
		}
		report.FetchedItems = len(missing)
		book.Merge(fetched)
		s.store(ctx, storable(missing, err), fetched, start)
	}

	result := s.engine.EvaluateWithMode(mode, ids, book)
	report.Opportunities = result.Opportunities
	report.Skipped = result.Skipped
	report.Duration = s.now().Sub(start)

	logger.Info("Analysis %s found %d opportunities (%d cached, %d fetched, %v)",
		report.ID, len(report.Opportunities), report.CachedItems, report.FetchedItems, report.Duration)
	return report, nil
}

// AnalyzeFamilies evaluates the selected families of a search independently.
func (s *Service) AnalyzeFamilies(ctx context.Context, families []models.VariantFamily, sel Selection) ([]FamilyReport, error) {
	chosen, err := Select(families, sel)
	if err != nil {
		return nil, err
	}

	mode := sel.Mode
	if mode == "" {
		mode = s.engine.Mode()
	}

	results := make([]FamilyReport, 0, len(chosen))
	for _, family := range chosen {
		logger.Info("Analyzing %d variants of %s", len(family.Variants), family.BaseName)
		report, err := s.AnalyzeWithMode(ctx, mode, family.Variants)
		if err != nil {
			return results, err
		}
		results = append(results, FamilyReport{Family: family, Report: report})
	}
	return results, nil
}

// Query searches for input and analyzes the selected families.
func (s *Service) Query(ctx context.Context, input string, sel Selection) (QueryReport, error) {
	search := s.Search(ctx, input)
	out := QueryReport{Search: search, Results: make([]FamilyReport, 0)}
	if search.Outcome != models.OutcomeOK {
		return out, nil
	}
	results, err := s.AnalyzeFamilies(ctx, search.Families, sel)
	out.Results = results
	return out, err
}

// Select returns the families named by sel.
func Select(families []models.VariantFamily, sel Selection) ([]models.VariantFamily, error) {
	if len(families) == 0 {
		return nil, nil
	}
	if sel.All {
		return families, nil
	}
	group := sel.Group
	if group == 0 {
		group = 1
	}
	if group < 1 || group > len(families) {
		return nil, fmt.Errorf("%w: %d (choose 1-%d)", ErrInvalidGroup, group, len(families))
	}
	return families[group-1 : group], nil
}

func (s *Service) cached(ctx context.Context, ids []string, now time.Time) (*models.PriceBook, []string) {
	if s.quotes == nil || s.quoteTTL <= 0 {
		return models.NewPriceBook(s.cities), ids
	}
	book, missing, err := s.quotes.Lookup(ctx, ids, s.quoteTTL, now)
	if err != nil {
		logger.Warn("Quote cache lookup failed: %v", err)
		return models.NewPriceBook(s.cities), ids
	}
	return book, missing
}

func (s *Service) store(ctx context.Context, ids []string, book *models.PriceBook, at time.Time) {
	if s.quotes == nil || s.quoteTTL <= 0 || len(ids) == 0 || book == nil {
		return
	}
	if err := s.quotes.Store(ctx, ids, book, at); err != nil {
		logger.Warn("Failed to cache quotes: %v", err)
	}
}

// storable drops the IDs whose batch failed so they are fetched again next time.
func storable(ids []string, err error) []string {
	if err == nil {
		return ids
	}
	var batchErr *albiondata.BatchError
	if !errors.As(err, &batchErr) {
		return nil
	}
	failed := make(map[string]bool)
	for _, batch := range batchErr.Failed {
		for _, id := range batch {
			failed[id] = true
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !failed[id] {
			out = append(out, id)
		}
	}
	return out
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
