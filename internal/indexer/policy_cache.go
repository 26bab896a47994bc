package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/policy"
)

const policyCacheVersion = 1

type policyCacheEntry struct {
	Version    int           `json:"version"`
	ConfigHash string        `json:"config_hash"`
	Top        string        `json:"top"`
	TablesHash string        `json:"tables_hash"`
	Result     policy.Result `json:"result"`
}

func loadPolicyCache(dir string) (*policyCacheEntry, error) {
	data, err := os.ReadFile(policyCachePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entry policyCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parse policy cache: %w", err)
	}
	return &entry, nil
}

func savePolicyCache(dir string, entry policyCacheEntry) error {
	if err := writeJSONAtomic(policyCachePath(dir), entry); err != nil {
		return fmt.Errorf("write policy cache: %w", err)
	}
	return nil
}

func policyCachePath(dir string) string {
	return filepath.Join(dir, "policy_cache.json")
}

// ClearLintCache drops the cached lint result and the fact table snapshots
// under the cache directory of rootPath, so the next lint evaluates every
// rule from scratch. The summary cache is kept. It returns the directory.
func ClearLintCache(rootPath string, cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("clear lint cache: config is nil")
	}
	dir := resolveCacheDir(rootPath, cfg)
	if err := os.Remove(policyCachePath(dir)); err != nil && !os.IsNotExist(err) {
		return dir, fmt.Errorf("remove policy cache: %w", err)
	}
	if err := os.RemoveAll(factTablesDir(dir)); err != nil {
		return dir, fmt.Errorf("remove fact table snapshots: %w", err)
	}
	return dir, nil
}

func policyCacheValid(entry *policyCacheEntry, configHash, top, tablesHash string) bool {
	if entry == nil {
		return false
	}
	return entry.Version == policyCacheVersion &&
		entry.ConfigHash == configHash &&
		entry.Top == top &&
		entry.TablesHash == tablesHash
}

// policyConfigHash covers everything besides the facts that changes a lint
// result: rule severities and the rule sources themselves.
func policyConfigHash(cfg *config.Config, policyDirs []string) (string, error) {
	rulesHash, err := policy.Fingerprint(policyDirs...)
	if err != nil {
		return "", err
	}
	payload := struct {
		Rules         map[string]string `json:"rules"`
		PolicyVersion string            `json:"policy_version"`
	}{
		Rules:         cfg.Lint.Rules,
		PolicyVersion: rulesHash,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal policy config hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func tablesHash(tables facts.Tables) (string, error) {
	data, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("marshal fact tables hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
