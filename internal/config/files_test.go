package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveLibrariesWithExplicitFiles(t *testing.T) {
	root := t.TempDir()
	core := filepath.Join(root, "ip", "core.1.0.xml")
	design := filepath.Join(root, "ip", "nested", "soc.design.1.0.xml")
	vendor := filepath.Join(root, "vendor", "phy.1.0.xml")
	writeFile(t, core, "<component/>")
	writeFile(t, design, "<design/>")
	writeFile(t, vendor, "<component/>")
	writeFile(t, filepath.Join(root, "ip", "notes.txt"), "ignored")

	cfg := Config{
		Libraries: map[string]LibraryConfig{
			"work": {Files: []string{"ip/**/*.xml"}},
		},
		Files: []FileEntry{
			{File: "vendor/phy.1.0.xml", Library: "vendor", IsThirdParty: true},
			{File: "vendor/readme.md", Library: "vendor"},
		},
	}

	libs, err := cfg.ResolveLibraries(root)
	if err != nil {
		t.Fatalf("ResolveLibraries: %v", err)
	}
	if len(libs) != 2 || libs[0].Name != "vendor" || libs[1].Name != "work" {
		t.Fatalf("expected libraries [vendor work], got %+v", libs)
	}

	workFiles := findLibFiles(t, libs, "work")
	if !containsPath(workFiles, core) || !containsPath(workFiles, design) {
		t.Fatalf("expected work lib to include %s and %s, got %v", core, design, workFiles)
	}
	if len(workFiles) != 2 {
		t.Fatalf("expected only xml documents in work, got %v", workFiles)
	}

	vendorFiles := findLibFiles(t, libs, "vendor")
	if len(vendorFiles) != 1 || !containsPath(vendorFiles, vendor) {
		t.Fatalf("expected vendor lib to hold %s only, got %v", vendor, vendorFiles)
	}
	if !libs[0].IsThirdParty {
		t.Fatalf("expected vendor library to be third-party")
	}
}

func TestResolveLibrariesExcludeAndIgnore(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.xml")
	writeFile(t, keep, "<component/>")
	writeFile(t, filepath.Join(root, "old", "stale.xml"), "<component/>")
	writeFile(t, filepath.Join(root, "scratch.xml"), "<component/>")

	cfg := Config{
		Libraries: map[string]LibraryConfig{
			"work": {Files: []string{"**/*.xml"}, Exclude: []string{"old/*.xml"}},
		},
		Lint: LintConfig{IgnorePatterns: []string{"scratch*"}},
	}
	files, err := cfg.GetAllFiles(root)
	if err != nil {
		t.Fatalf("GetAllFiles: %v", err)
	}
	if len(files) != 1 || !containsPath(files, keep) {
		t.Fatalf("expected only %s, got %v", keep, files)
	}
}

func TestGetFileLibraryWithExplicitFiles(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "sim", "tb.1.0.xml")
	writeFile(t, doc, "<component/>")

	cfg := Config{
		Files: []FileEntry{
			{File: "sim/tb.1.0.xml", Library: "sim", IsThirdParty: true},
		},
	}

	info := cfg.GetFileLibrary(doc, root)
	if info.LibraryName != "sim" {
		t.Fatalf("expected library sim, got %q", info.LibraryName)
	}
	if !info.IsThirdParty {
		t.Fatalf("expected IsThirdParty true")
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ipxact_meta.yaml")
	writeFile(t, path, `author: ada
resolve:
  maxDepth: 4
lint:
  rules:
    unconnected_input: "off"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Author != "ada" || cfg.Import.Vendor != "ada" {
		t.Fatalf("expected author and vendor ada, got %q / %q", cfg.Author, cfg.Import.Vendor)
	}
	if cfg.Resolve.MaxDepth != 4 {
		t.Fatalf("expected max depth 4, got %d", cfg.Resolve.MaxDepth)
	}
	if cfg.IsRuleEnabled("unconnected_input") {
		t.Fatalf("expected unconnected_input to be off")
	}
	if _, ok := cfg.Libraries["work"]; !ok {
		t.Fatalf("expected default work library, got %+v", cfg.Libraries)
	}
	if !cfg.CacheEnabled() || cfg.Analysis.Cache.Dir != defaultCacheDir {
		t.Fatalf("expected cache defaults, got %+v", cfg.Analysis.Cache)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cfg.json", "cfg.yml"} {
		cfg := DefaultConfig()
		cfg.Author = "grace"
		cfg.Lint.Rules["width_mismatch"] = "error"
		path := filepath.Join(dir, name)
		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile %s: %v", name, err)
		}
		if loaded.Author != "grace" || loaded.GetRuleSeverity("width_mismatch", "warning") != "error" {
			t.Fatalf("%s: round trip lost values: %+v", name, loaded)
		}
	}
}

func findLibFiles(t *testing.T, libs []ResolvedLibrary, name string) []string {
	t.Helper()
	for _, lib := range libs {
		if lib.Name == name {
			return lib.Files
		}
	}
	t.Fatalf("library %s not found", name)
	return nil
}

func containsPath(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}
