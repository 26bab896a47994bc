package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash   string      `json:"content_hash"`
	ReaderVersion string      `json:"reader_version"`
	Summary       FileSummary `json:"summary"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// summaryCache maps file paths to the summary of their last seen content.
type summaryCache struct {
	dir           string
	readerVersion string
	mu            sync.Mutex
	index         cacheIndex
}

func newSummaryCache(dir, readerVersion string) *summaryCache {
	return &summaryCache{
		dir:           dir,
		readerVersion: readerVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *summaryCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *summaryCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *summaryCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

func (c *summaryCache) Get(filePath, contentHash string) (FileSummary, bool) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.ReaderVersion != c.readerVersion {
		return FileSummary{}, false
	}
	return entry.Summary, true
}

func (c *summaryCache) Put(filePath, contentHash string, summary FileSummary) {
	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash:   contentHash,
		ReaderVersion: c.readerVersion,
		Summary:       summary,
	}
	c.mu.Unlock()
}

// prune drops entries for files that are no longer part of the scan.
func (c *summaryCache) prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for f := range c.index.Entries {
		if !keep[f] {
			delete(c.index.Entries, f)
		}
	}
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
