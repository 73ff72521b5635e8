// Package albiondata fetches current market quotes from the Albion Online Data
// Project API and turns them into a models.PriceBook.
//
// Requests are split into batches to keep URLs short, paced by a shared rate
// limiter and retried on transport errors, 429 and 5xx responses. A failed
// batch does not discard the others: FetchPrices returns the partial book
// together with a *BatchError.
package albiondata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/silverroute/internal/logger"
	"github.com/rewired-gh/silverroute/internal/models"
)

const (
	pricesPath = "/api/v2/stats/prices/"
	dateLayout = "2006-01-02T15:04:05"
)

// PriceRow is one (item, city, quality) entry of the prices endpoint.
type PriceRow struct {
	ItemID           string `json:"item_id"`
	City             string `json:"city"`
	Quality          int    `json:"quality"`
	SellPriceMin     int64  `json:"sell_price_min"`
	SellPriceMinDate string `json:"sell_price_min_date"`
	SellPriceMax     int64  `json:"sell_price_max"`
	SellPriceMaxDate string `json:"sell_price_max_date"`
	BuyPriceMin      int64  `json:"buy_price_min"`
	BuyPriceMinDate  string `json:"buy_price_min_date"`
	BuyPriceMax      int64  `json:"buy_price_max"`
	BuyPriceMaxDate  string `json:"buy_price_max_date"`
}

// ClientConfig holds tunables for the client. Zero values select defaults.
type ClientConfig struct {
	Quality           int
	MaxRetries        int
	RetryDelayBase    time.Duration
	BatchSize         int
	RequestsPerMinute int
	MaxQuoteAge       time.Duration
}

// Client provides access to the Albion Online Data prices endpoint
type Client struct {
	http        *resty.Client
	limiter     *rate.Limiter
	cities      []string
	quality     int
	batchSize   int
	maxQuoteAge time.Duration
	now         func() time.Time
}

// NewClient creates a new Albion data client for the given city enumeration.
func NewClient(apiBaseURL string, cities []string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.Quality <= 0 {
		cfg.Quality = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 180
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(apiBaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelayBase).
		SetRetryMaxWaitTime(cfg.RetryDelayBase * time.Duration(cfg.MaxRetries+1)).
		SetRetryAfter(linearBackoff(cfg.RetryDelayBase)).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{
		http:        httpClient,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		cities:      append([]string(nil), cities...),
		quality:     cfg.Quality,
		batchSize:   cfg.BatchSize,
		maxQuoteAge: cfg.MaxQuoteAge,
		now:         time.Now,
	}
}

// linearBackoff waits base times the attempt number between retries.
func linearBackoff(base time.Duration) resty.RetryAfterFunc {
	return func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
		attempt := 1
		if resp != nil && resp.Request != nil && resp.Request.Attempt > 0 {
			attempt = resp.Request.Attempt
		}
		return base * time.Duration(attempt), nil
	}
}

// Cities returns the city enumeration the client queries.
func (c *Client) Cities() []string {
	return append([]string(nil), c.cities...)
}

// BatchError reports the batches that could not be fetched.
type BatchError struct {
	Failed [][]string
	Errs   []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d price batch(es) failed: %s", len(e.Errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual batch errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return e.Errs
}

// FetchPrices retrieves quotes for itemIDs in every configured city.
// Blank and duplicate IDs are dropped; no request is made when none remain.
func (c *Client) FetchPrices(ctx context.Context, itemIDs []string) (*models.PriceBook, error) {
	book := models.NewPriceBook(c.cities)
	ids := cleanIDs(itemIDs)
	if len(ids) == 0 {
		return book, nil
	}

	batchErr := &BatchError{}
	for _, batch := range chunk(ids, c.batchSize) {
		rows, err := c.fetchBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return book, err
			}
			logger.Warn("Failed to fetch prices for %d items: %v", len(batch), err)
			batchErr.Failed = append(batchErr.Failed, batch)
			batchErr.Errs = append(batchErr.Errs, err)
			continue
		}
		c.addRows(book, rows)
	}

	logger.Debug("Fetched %d quotes for %d items", book.Len(), len(ids))
	if len(batchErr.Errs) > 0 {
		return book, batchErr
	}
	return book, nil
}

func (c *Client) fetchBatch(ctx context.Context, ids []string) ([]PriceRow, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}

	logger.Debug("Querying prices for %d items", len(ids))
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("locations", strings.Join(c.cities, ",")).
		SetQueryParam("qualities", strconv.Itoa(c.quality)).
		Get(pricesPath + strings.Join(escaped, ","))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	var rows []PriceRow
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode prices: %w", err)
	}
	return rows, nil
}

// addRows converts rows into quotes. A later row for the same city and item
// replaces an earlier one.
func (c *Client) addRows(book *models.PriceBook, rows []PriceRow) {
	var cutoff time.Time
	if c.maxQuoteAge > 0 {
		cutoff = c.now().Add(-c.maxQuoteAge)
	}

	for _, row := range rows {
		if row.City == "" || row.ItemID == "" {
			continue
		}
		q := models.CityQuote{
			BuyMax:      nonNegative(row.BuyPriceMax),
			SellMin:     nonNegative(row.SellPriceMin),
			BuyMaxDate:  parseDate(row.BuyPriceMaxDate),
			SellMinDate: parseDate(row.SellPriceMinDate),
		}
		if !cutoff.IsZero() {
			if q.BuyMax > 0 && q.BuyMaxDate.Before(cutoff) {
				q.BuyMax = 0
			}
			if q.SellMin > 0 && q.SellMinDate.Before(cutoff) {
				q.SellMin = 0
			}
		}
		book.Add(row.City, row.ItemID, q)
	}
}

// parseDate reads the API's zone-less UTC timestamps. Unparseable or
// placeholder dates become the zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return time.Time{}
		}
	}
	if t.Year() <= 1 {
		return time.Time{}
	}
	return t
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func cleanIDs(ids []string) []string {
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

func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
