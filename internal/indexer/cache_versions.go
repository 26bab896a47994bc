package indexer

import (
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
)

func cacheEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.CacheEnabled()
}

func resolveCacheDir(rootPath string, cfg *config.Config) string {
	baseDir := rootPath
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		baseDir = filepath.Dir(rootPath)
	}
	cacheDir := cfg.Analysis.Cache.Dir
	if cacheDir == "" {
		cacheDir = ".ipxact_meta_cache"
	}
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(baseDir, cacheDir)
	}
	return cacheDir
}

// computeReaderVersion identifies the document reader that produced cached
// summaries: the module version, or the VCS revision of a development build.
func computeReaderVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	version := info.Main.Version
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			version += "+" + s.Value
		case "vcs.modified":
			if s.Value == "true" {
				version += "-dirty"
			}
		}
	}
	if version == "" {
		return "unknown"
	}
	return version
}
