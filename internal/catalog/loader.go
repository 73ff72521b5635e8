package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rewired-gh/silverroute/internal/logger"
)

// ErrNoItems is returned when a catalog source yields no usable item.
var ErrNoItems = errors.New("catalog contains no items")

// DecodeRecords reads a JSON array of item records. Array entries that are not
// objects, or whose fields have the wrong shape, are skipped and counted.
func DecodeRecords(r io.Reader) ([]Record, int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode item list: %w", err)
	}

	records := make([]Record, 0, len(raw))
	skipped := 0
	for idx, entry := range raw {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			logger.Debug("Skipping malformed item entry at position %d: %v", idx, err)
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Load reads an item dump from path and builds a catalog from it.
func Load(path string, opts Options) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open item file: %w", err)
	}
	defer f.Close()

	records, skipped, err := DecodeRecords(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("Skipped %d malformed entries in %s", skipped, path)
	}

	c := New(records, opts)
	if c.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoItems)
	}
	logger.Info("Loaded %d items from %s", c.Len(), path)
	return c, nil
}
