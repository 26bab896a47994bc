package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
)

const factTablesCacheVersion = 1

type factTablesCache struct {
	Version int          `json:"version"`
	Top     string       `json:"top"`
	Tables  facts.Tables `json:"tables"`
}

func factTablesDir(dir string) string {
	return filepath.Join(dir, "facts")
}

// factTablesPath keeps one snapshot per top-level VLNV.
func factTablesPath(dir, top string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(top)
	return filepath.Join(factTablesDir(dir), name+".json")
}

func loadFactTablesCache(dir, top string) (facts.Tables, bool, error) {
	data, err := os.ReadFile(factTablesPath(dir, top))
	if err != nil {
		if os.IsNotExist(err) {
			return facts.Tables{}, false, nil
		}
		return facts.Tables{}, false, fmt.Errorf("read fact tables cache: %w", err)
	}
	var cache factTablesCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return facts.Tables{}, false, fmt.Errorf("parse fact tables cache: %w", err)
	}
	if cache.Version != factTablesCacheVersion || cache.Top != top {
		return facts.Tables{}, false, nil
	}
	return cache.Tables, true, nil
}

func saveFactTablesCache(dir, top string, tables facts.Tables) error {
	cache := factTablesCache{
		Version: factTablesCacheVersion,
		Top:     top,
		Tables:  tables,
	}
	if err := writeJSONAtomic(factTablesPath(dir, top), cache); err != nil {
		return fmt.Errorf("write fact tables cache: %w", err)
	}
	return nil
}
