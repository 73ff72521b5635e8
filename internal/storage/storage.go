// Package storage provides a SQLite-backed cache of recently fetched market quotes.
// It records which items were fetched and when, so a repeated query within the
// TTL can be answered without calling the price API again.
//
// Only raw quotes are stored. An item counts as cached once it has been
// fetched, even when no city returned data for it; that absence is preserved.
// Old entries are removed by Prune.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/silverroute/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS fetches (
	item_id    TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS quotes (
	city          TEXT NOT NULL,
	item_id       TEXT NOT NULL,
	buy_max       INTEGER NOT NULL,
	sell_min      INTEGER NOT NULL,
	buy_max_date  INTEGER NOT NULL DEFAULT 0,
	sell_min_date INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (city, item_id)
);
CREATE INDEX IF NOT EXISTS idx_quotes_item ON quotes(item_id);
`

// Storage is a quote cache backed by a single SQLite database file.
// It is safe for concurrent use.
type Storage struct {
	db     *sql.DB
	cities []string
}

// New opens (creating if needed) the cache database at dbPath. cities is the
// enumeration order given to the PriceBooks built from cached data.
// If dbPath is empty, an OS-appropriate tmp location is used.
func New(dbPath string, cities []string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "silverroute", "quotes.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{db: db, cities: append([]string(nil), cities...)}, nil
}

// Close releases the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Lookup returns a PriceBook with the cached quotes of every item fetched
// within ttl of now, and the IDs that must be fetched again.
func (s *Storage) Lookup(ctx context.Context, itemIDs []string, ttl time.Duration, now time.Time) (*models.PriceBook, []string, error) {
	book := models.NewPriceBook(s.cities)
	if len(itemIDs) == 0 {
		return book, nil, nil
	}

	fresh := make(map[string]bool, len(itemIDs))
	cutoff := now.Add(-ttl).UnixNano()

	placeholders, args := inClause(itemIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, fetched_at FROM fetches WHERE item_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	for rows.Next() {
		var id string
		var fetchedAt int64
		if err := rows.Scan(&id, &fetchedAt); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		if fetchedAt >= cutoff {
			fresh[id] = true
		}
	}
	if err := rows.Close(); err != nil {
		return nil, nil, err
	}

	var missing, hits []string
	for _, id := range itemIDs {
		if fresh[id] {
			hits = append(hits, id)
		} else {
			missing = append(missing, id)
		}
	}
	if len(hits) == 0 {
		return book, missing, nil
	}

	placeholders, args = inClause(hits)
	rows, err = s.db.QueryContext(ctx,
		`SELECT city, item_id, buy_max, sell_min, buy_max_date, sell_min_date
		 FROM quotes WHERE item_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var city, id string
		var q models.CityQuote
		var buyDate, sellDate int64
		if err := rows.Scan(&city, &id, &q.BuyMax, &q.SellMin, &buyDate, &sellDate); err != nil {
			return nil, nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		q.BuyMaxDate = fromUnix(buyDate)
		q.SellMinDate = fromUnix(sellDate)
		book.Add(city, id, q)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return book, missing, nil
}

// Store replaces the cached quotes of itemIDs with those in book and marks the
// items as fetched at the given time.
func (s *Storage) Store(ctx context.Context, itemIDs []string, book *models.PriceBook, fetchedAt time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range itemIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear quotes for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fetches (item_id, fetched_at) VALUES (?, ?)
			 ON CONFLICT(item_id) DO UPDATE SET fetched_at = excluded.fetched_at`,
			id, fetchedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to record fetch for %s: %w", id, err)
		}
		for _, city := range book.Cities() {
			q, ok := book.Quote(city, id)
			if !ok {
				continue
			}
			if err := q.Validate(); err != nil {
				return fmt.Errorf("invalid quote for %s in %s: %w", id, city, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quotes (city, item_id, buy_max, sell_min, buy_max_date, sell_min_date)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				city, id, q.BuyMax, q.SellMin, toUnix(q.BuyMaxDate), toUnix(q.SellMinDate)); err != nil {
				return fmt.Errorf("failed to insert quote for %s in %s: %w", id, city, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotes: %w", err)
	}
	return nil
}

// Prune removes every item fetched before cutoff along with its quotes and
// returns how many items were removed.
func (s *Storage) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := cutoff.UnixNano()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM quotes WHERE item_id IN (SELECT item_id FROM fetches WHERE fetched_at < ?)`, ts); err != nil {
		return 0, fmt.Errorf("failed to prune quotes: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM fetches WHERE fetched_at < ?`, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to prune fetches: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return int(n), nil
}

// Stats reports how many items and quotes are cached.
func (s *Storage) Stats(ctx context.Context) (items, quotes int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetches`).Scan(&items); err != nil {
		return 0, 0, fmt.Errorf("failed to count fetches: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&quotes); err != nil {
		return 0, 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return items, quotes, nil
}

func inClause(ids []string) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
