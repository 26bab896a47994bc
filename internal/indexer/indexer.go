package indexer

// The indexer sits between the document library on disk and resolution. Its
// job is to:
// 1. Summarize every configured document (identity plus outgoing references)
// 2. Build the VLNV symbol table across libraries
// 3. Track which documents depend on which, so a change can be traced
// 4. Load exactly the closure of a top component for resolution and lint
//
// It does not repair documents. A reference that cannot be found is reported,
// and schema failures from internal/validator stop the run.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs/url"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ctxlog"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/library"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/meta"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/policy"
)

// Indexer is the cross-file linker that builds the symbol table
// and resolves references between IP-XACT documents.
type Indexer struct {
	// Config holds library roots, cache and rule settings
	Config *config.Config

	// Symbols maps VLNV keys to the document defining them
	Symbols *SymbolTable

	// Summaries holds the summary of every indexed file
	Summaries map[string]FileSummary

	// FileLibraries maps file paths to their library info
	FileLibraries map[string]config.FileLibraryInfo

	// ThirdPartyFiles tracks which files are from third-party libraries
	ThirdPartyFiles map[string]bool

	// Changed lists the files that were (re)read instead of taken from cache
	Changed []string

	// Missing maps a file to the references no indexed document defines
	Missing map[string][]string

	// Verbose enables detailed output
	Verbose bool

	// Progress prints one line per summarized file
	Progress bool

	// JSONOutput suppresses human readable reports
	JSONOutput bool

	// Timing writes a JSONL trace of stages and files
	Timing     bool
	TimingPath string

	// Out receives human readable reports, os.Stdout when nil
	Out io.Writer

	root     string
	trace    *tracer
	cacheDir string

	summarizerFactory     func() Summarizer
	readerVersionOverride string
}

// SymbolTable maps VLNV keys to their defining documents.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols map[string]Symbol
}

// Symbol is one document known to the index.
type Symbol struct {
	Name string // VLNV key: vendor:library:name:version
	Kind string // document type
	File string // source file path
}

// Resolution is one resolved top-level component.
type Resolution struct {
	Top    ipxact.VLNV         `json:"top"`
	View   string              `json:"view"`
	Files  []string            `json:"files"`
	Report *library.LoadReport `json:"report"`
	Levels []*meta.Design      `json:"-"`
	Tables facts.Tables        `json:"tables"`
}

// LintResult is the output of Lint.
type LintResult struct {
	Top        string              `json:"top"`
	Violations []policy.Violation  `json:"violations"`
	Summary    policy.Summary      `json:"summary"`
	Missing    map[string][]string `json:"missing,omitempty"`
	Cached     bool                `json:"cached,omitempty"`
	Delta      bool                `json:"delta,omitempty"`
}

// HasErrors reports whether the lint run found an error severity violation.
func (r *LintResult) HasErrors() bool {
	return r.Summary.Errors > 0
}

// New creates an indexer with the default configuration.
func New() *Indexer {
	return &Indexer{
		Config:          config.DefaultConfig(),
		Symbols:         newSymbolTable(),
		Summaries:       make(map[string]FileSummary),
		FileLibraries:   make(map[string]config.FileLibraryInfo),
		ThirdPartyFiles: make(map[string]bool),
		Missing:         make(map[string][]string),
	}
}

// NewWithConfig creates a new Indexer with the given configuration
func NewWithConfig(cfg *config.Config) *Indexer {
	idx := New()
	idx.Config = cfg
	return idx
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]Symbol)}
}

func (idx *Indexer) newSummarizer() Summarizer {
	if idx.summarizerFactory != nil {
		return idx.summarizerFactory()
	}
	return documentSummarizer{}
}

func (idx *Indexer) readerVersion() string {
	if idx.readerVersionOverride != "" {
		return idx.readerVersionOverride
	}
	return computeReaderVersion()
}

func (idx *Indexer) out() io.Writer {
	if idx.Out != nil {
		return idx.Out
	}
	return os.Stdout
}

func (idx *Indexer) printf(format string, args ...any) {
	if idx.JSONOutput {
		return
	}
	fmt.Fprintf(idx.out(), format, args...)
}

// Close flushes the trace of the last run.
func (idx *Indexer) Close() {
	idx.trace.close()
	idx.trace = nil
}

// Run indexes every document under rootPath. It may be called again after
// documents changed; unchanged files are taken from the cache.
func (idx *Indexer) Run(ctx context.Context, rootPath string) error {
	log := ctxlog.FromContext(ctx)
	runStart := time.Now()
	var pipelineErrs []error

	if idx.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		idx.Config = cfg
	}

	if abs, err := filepath.Abs(rootPath); err == nil {
		rootPath = abs
	}

	idx.Close()
	trace, err := newTracer(runStart, idx.tracePath(rootPath))
	if err != nil {
		pipelineErrs = append(pipelineErrs, fmt.Errorf("trace disabled: %w", err))
	}
	idx.trace = trace

	// Reset per-run state
	idx.root = rootPath
	idx.Symbols = newSymbolTable()
	idx.Summaries = make(map[string]FileSummary)
	idx.FileLibraries = make(map[string]config.FileLibraryInfo)
	idx.ThirdPartyFiles = make(map[string]bool)
	idx.Missing = make(map[string][]string)
	idx.Changed = nil

	// 1. Find documents
	stepStart := time.Now()
	files, err := idx.scan(rootPath)
	if err != nil {
		return err
	}
	idx.printf("Found %d IP-XACT documents\n", len(files))
	idx.trace.stage(StageScan, stepStart)

	// 2. Summarize in parallel, with optional cache
	stepStart = time.Now()
	var cache *summaryCache
	idx.cacheDir = ""
	if cacheEnabled(idx.Config) {
		idx.cacheDir = resolveCacheDir(rootPath, idx.Config)
		cache = newSummaryCache(idx.cacheDir, idx.readerVersion())
		if err := cache.Load(); err != nil {
			pipelineErrs = append(pipelineErrs, fmt.Errorf("cache disabled: %w", err))
			cache = nil
		}
	}

	summarizer := idx.newSummarizer()
	progressEnabled := (idx.Verbose || idx.Progress) && !idx.JSONOutput
	if progressEnabled {
		idx.printf("\n=== Index Progress ===\n")
	}

	type outcome struct {
		summary FileSummary
		changed bool
		err     error
	}
	results := make(chan outcome, len(files))
	var wg sync.WaitGroup
	var progressMu sync.Mutex
	progress := 0

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()
			fileStart := time.Now()
			report := func(status string) {
				d := time.Since(fileStart)
				idx.trace.document(f, status, fileStart, d)
				if progressEnabled {
					progressMu.Lock()
					progress++
					idx.printf("[%d/%d] %s (%s, %s)\n", progress, len(files), f, status, formatDuration(d))
					progressMu.Unlock()
				}
			}

			var contentHash string
			if cache != nil {
				h, err := hashFile(f)
				if err != nil {
					results <- outcome{err: fmt.Errorf("%s: %w", f, err)}
					return
				}
				contentHash = h
				if s, ok := cache.Get(f, contentHash); ok {
					report(outcomeCacheHit)
					results <- outcome{summary: s}
					return
				}
			}

			s, err := summarizer.Summarize(f)
			if err != nil {
				report(outcomeError)
				results <- outcome{err: fmt.Errorf("%s: %w", f, err)}
				return
			}
			if cache != nil {
				cache.Put(f, contentHash, s)
			}
			report(outcomeSummarized)
			results <- outcome{summary: s, changed: true}
		}(file)
	}
	wg.Wait()
	close(results)

	var readErrs []error
	for r := range results {
		if r.err != nil {
			readErrs = append(readErrs, r.err)
			continue
		}
		idx.Summaries[r.summary.File] = r.summary
		if r.changed {
			idx.Changed = append(idx.Changed, r.summary.File)
		}
	}
	sort.Strings(idx.Changed)
	for _, err := range readErrs {
		log.Warn("document not indexed", "error", err)
	}

	if cache != nil {
		keep := make(map[string]bool, len(files))
		for _, f := range files {
			keep[f] = true
		}
		cache.prune(keep)
		if err := cache.Save(); err != nil {
			pipelineErrs = append(pipelineErrs, fmt.Errorf("cache save failed: %w", err))
		}
	}
	idx.trace.stage(StageSummarize, stepStart)

	// 3. Symbol table and references
	stepStart = time.Now()
	idx.registerSymbols(log)
	idx.findMissing()
	idx.trace.stage(StageLink, stepStart)

	if progressEnabled && cache != nil && len(idx.Changed) > 0 {
		idx.printf("\n=== Change Impact ===\n")
		dependents := buildDependentsGraph(idx.Summaries, idx.Symbols)
		for _, f := range idx.Changed {
			idx.printf("%s", formatImpactReport(computeImpact(f, dependents)))
		}
	}

	if idx.Verbose && len(idx.Missing) > 0 {
		idx.printf("\n=== Unresolved References ===\n")
		for _, f := range sortedKeys(idx.Missing) {
			idx.printf("  %s: %s\n", f, strings.Join(idx.Missing[f], ", "))
		}
	}

	total := idx.trace.stage(StageIndex, runStart)
	if idx.Verbose && !idx.JSONOutput {
		idx.printf("\n=== Timing Summary ===\n")
		for _, st := range idx.trace.summary() {
			if st.Stage != StageIndex {
				idx.printf("  %-10s %s\n", st.Stage+":", formatDuration(st.Duration))
			}
		}
		idx.printf("  %-10s %s\n", "total:", formatDuration(total))
	}

	log.Debug("index built", "files", len(files), "symbols", idx.Symbols.Len(),
		"changed", len(idx.Changed), "unreadable", len(readErrs))

	if len(pipelineErrs) > 0 {
		return fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(pipelineErrs))
	}
	return nil
}

// scan lists the documents to index, recording library membership.
func (idx *Indexer) scan(rootPath string) ([]string, error) {
	var files []string
	if len(idx.Config.Libraries) > 0 || len(idx.Config.Files) > 0 {
		libs, err := idx.Config.ResolveLibraries(rootPath)
		if err != nil {
			return nil, fmt.Errorf("resolve libraries: %w", err)
		}
		seen := make(map[string]bool)
		for _, lib := range libs {
			for _, f := range lib.Files {
				if seen[f] {
					continue
				}
				seen[f] = true
				files = append(files, f)
				idx.FileLibraries[f] = config.FileLibraryInfo{
					LibraryName:  lib.Name,
					IsThirdParty: lib.IsThirdParty,
				}
				if lib.IsThirdParty {
					idx.ThirdPartyFiles[f] = true
				}
			}
		}

		if idx.Verbose {
			idx.printf("Loaded configuration with %d libraries\n", len(libs))
			for _, lib := range libs {
				thirdParty := ""
				if lib.IsThirdParty {
					thirdParty = " (third-party)"
				}
				idx.printf("  %s: %d files%s\n", lib.Name, len(lib.Files), thirdParty)
			}
		}
	}

	// Fallback to directory scan if no files from config
	if len(files) == 0 {
		found, err := findDocuments(rootPath)
		if err != nil {
			return nil, fmt.Errorf("scanning files: %w", err)
		}
		files = found
	}

	filtered := files[:0]
	for _, f := range files {
		if !idx.Config.ShouldIgnoreFile(f) {
			filtered = append(filtered, f)
		}
	}
	sort.Strings(filtered)
	return filtered, nil
}

func findDocuments(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (idx *Indexer) registerSymbols(log *slog.Logger) {
	for _, f := range sortedKeys(idx.Summaries) {
		s := idx.Summaries[f]
		if prev, ok := idx.Symbols.Get(s.VLNV); ok && prev.File != f {
			log.Warn("duplicate VLNV, keeping first", "vlnv", s.VLNV, "file", f, "first", prev.File)
			continue
		}
		idx.Symbols.Add(Symbol{Name: s.VLNV, Kind: s.Kind, File: f})
	}
}

func (idx *Indexer) findMissing() {
	for f, s := range idx.Summaries {
		for _, ref := range s.References {
			if !idx.Symbols.Has(ref) {
				idx.Missing[f] = append(idx.Missing[f], ref)
			}
		}
	}
}

// Impact lists, level by level, the files affected by a change to file.
func (idx *Indexer) Impact(file string) [][]string {
	return computeImpact(file, buildDependentsGraph(idx.Summaries, idx.Symbols)).Levels
}

// Closure lists the files needed to resolve top.
func (idx *Indexer) Closure(top ipxact.VLNV) ([]string, error) {
	key := top.Key().String()
	sym, ok := idx.Symbols.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the index", ipxact.ErrDanglingReference, key)
	}
	if sym.Kind != string(ipxact.TypeComponent) {
		return nil, fmt.Errorf("%s is a %s, not a component", key, sym.Kind)
	}
	return closure(key, idx.Summaries, idx.Symbols), nil
}

// Resolve loads the closure of top and builds its fact tables. viewName
// selects the hierarchical view; empty picks the only one.
func (idx *Indexer) Resolve(ctx context.Context, top ipxact.VLNV, viewName string) (*Resolution, error) {
	log := ctxlog.FromContext(ctx)
	stepStart := time.Now()

	files, err := idx.Closure(top)
	if err != nil {
		return nil, err
	}

	lib := library.New()
	loader := library.NewLoader()
	loader.Strict = idx.Config.Resolve.Strict
	report, err := loader.LoadFiles(ctx, lib, files)
	if err != nil {
		return nil, fmt.Errorf("load closure of %s: %w", top, err)
	}

	c, err := lib.Component(top)
	if err != nil {
		return nil, err
	}
	view, err := meta.HierarchicalView(c, viewName)
	if err != nil {
		return nil, err
	}

	opts := []meta.Option{meta.WithLogger(log)}
	if idx.Config.Resolve.MaxDepth > 0 {
		opts = append(opts, meta.WithMaxDepth(idx.Config.Resolve.MaxDepth))
	}
	levels, err := meta.ParseHierarchy(ctx, lib, c, view, opts...)
	if err != nil {
		return nil, err
	}

	docs := facts.DocumentRows(lib, idx.libraryOf)
	tables := facts.BuildTables(levels, docs)

	idx.trace.design(StageResolve, top.Key().String(), "", len(levels), stepStart)
	log.Debug("resolved", "top", top.String(), "view", view.Name, "levels", len(levels),
		"documents", len(docs))

	return &Resolution{
		Top:    c.VLNV,
		View:   view.Name,
		Files:  files,
		Report: report,
		Levels: levels,
		Tables: tables,
	}, nil
}

// libraryOf maps a loaded document URL back to its configured library.
func (idx *Indexer) libraryOf(file string) (string, bool) {
	p := url.Path(file)
	if info, ok := idx.FileLibraries[p]; ok && info.LibraryName != "" {
		return info.LibraryName, info.IsThirdParty
	}
	info := idx.Config.GetFileLibrary(p, idx.root)
	return info.LibraryName, info.IsThirdParty
}

// Lint resolves top and evaluates the policies over its fact tables. With
// the cache enabled an unchanged resolution reuses the last result, and a
// changed one is evaluated as a delta against the previous snapshot.
func (idx *Indexer) Lint(ctx context.Context, top ipxact.VLNV, viewName string) (*LintResult, error) {
	log := ctxlog.FromContext(ctx)
	res, err := idx.Resolve(ctx, top, viewName)
	if err != nil {
		return nil, err
	}

	stepStart := time.Now()
	topKey := top.Key().String()
	lint := &LintResult{Top: topKey, Missing: idx.missingIn(res.Files)}

	policyDirs := make([]string, 0, len(idx.Config.Lint.PolicyDirs))
	for _, d := range idx.Config.Lint.PolicyDirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(idx.root, d)
		}
		policyDirs = append(policyDirs, d)
	}

	useCache := idx.cacheDir != ""
	var configHash, factsHash string
	if useCache {
		configHash, err = policyConfigHash(idx.Config, policyDirs)
		if err == nil {
			factsHash, err = tablesHash(res.Tables)
		}
		if err != nil {
			log.Warn("policy cache disabled", "error", err)
			useCache = false
		}
	}
	if useCache {
		entry, err := loadPolicyCache(idx.cacheDir)
		if err != nil {
			log.Warn("policy cache load failed", "error", err)
		} else if policyCacheValid(entry, configHash, topKey, factsHash) {
			applyPolicyResult(lint, &entry.Result)
			lint.Cached = true
			idx.trace.design(StageLint, topKey, outcomeCached, len(lint.Violations), stepStart)
			return lint, nil
		}
	}

	engine, err := policy.New(ctx, policy.WithRules(idx.Config), policy.WithPolicyDirs(policyDirs...))
	if err != nil {
		return nil, fmt.Errorf("initialize policy engine: %w", err)
	}
	session := policy.NewSession(engine)

	var result *policy.Result
	if useCache {
		if prev, ok, err := loadFactTablesCache(idx.cacheDir, topKey); err != nil {
			log.Warn("fact tables cache load failed", "error", err)
		} else if ok {
			if _, err := session.Init(ctx, prev); err != nil {
				log.Debug("previous snapshot rejected, linting from scratch", "error", err)
			} else {
				delta := facts.ComputeDelta(prev, res.Tables)
				result, err = session.Delta(ctx, delta)
				if err != nil {
					return nil, fmt.Errorf("policy evaluation failed: %w", err)
				}
				lint.Delta = true
			}
		}
	}
	if result == nil {
		result, err = session.Init(ctx, res.Tables)
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
	}
	applyPolicyResult(lint, result)

	if useCache {
		if err := saveFactTablesCache(idx.cacheDir, topKey, res.Tables); err != nil {
			log.Warn("fact tables cache save failed", "error", err)
		}
		if err := savePolicyCache(idx.cacheDir, policyCacheEntry{
			Version:    policyCacheVersion,
			ConfigHash: configHash,
			Top:        topKey,
			TablesHash: factsHash,
			Result:     *result,
		}); err != nil {
			log.Warn("policy cache save failed", "error", err)
		}
	}

	outcome := outcomeFull
	if lint.Delta {
		outcome = outcomeDelta
	}
	idx.trace.design(StageLint, topKey, outcome, len(lint.Violations), stepStart)
	return lint, nil
}

func (idx *Indexer) missingIn(files []string) map[string][]string {
	out := make(map[string][]string)
	for _, f := range files {
		if refs := idx.Missing[f]; len(refs) > 0 {
			out[f] = append([]string(nil), refs...)
			sort.Strings(out[f])
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func applyPolicyResult(lint *LintResult, result *policy.Result) {
	if lint == nil || result == nil {
		return
	}
	lint.Violations = result.Violations
	lint.Summary = result.Summary
}

// WriteLintResult prints a lint result as JSON or as a text report.
func (idx *Indexer) WriteLintResult(lint *LintResult) error {
	if idx.JSONOutput {
		enc := json.NewEncoder(idx.out())
		enc.SetIndent("", "  ")
		if err := enc.Encode(lint); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	w := idx.out()
	if len(lint.Violations) > 0 {
		fmt.Fprintf(w, "\n=== Policy Violations ===\n")
		for _, v := range lint.Violations {
			icon := "ℹ"
			if v.Severity == "error" {
				icon = "✗"
			} else if v.Severity == "warning" {
				icon = "⚠"
			}
			where := v.Design
			if v.Instance != "" {
				where += "/" + v.Instance
			}
			if v.Target != "" {
				where += "." + v.Target
			}
			fmt.Fprintf(w, "%s [%s] %s - %s\n", icon, v.Rule, where, v.Message)
		}
	}
	if len(lint.Missing) > 0 {
		fmt.Fprintf(w, "\n=== Unresolved References ===\n")
		for _, f := range sortedKeys(lint.Missing) {
			fmt.Fprintf(w, "  %s: %s\n", f, strings.Join(lint.Missing[f], ", "))
		}
	}

	label := ""
	if lint.Cached {
		label = " (cached)"
	} else if lint.Delta {
		label = " (delta)"
	}
	fmt.Fprintf(w, "\n=== Policy Summary%s ===\n", label)
	fmt.Fprintf(w, "  Errors:   %d\n", lint.Summary.Errors)
	fmt.Fprintf(w, "  Warnings: %d\n", lint.Summary.Warnings)
	fmt.Fprintf(w, "  Info:     %d\n", lint.Summary.Info)
	return nil
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func envBool(key string) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "on"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SymbolTable methods

func (st *SymbolTable) Add(sym Symbol) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.symbols[sym.Name] = sym
}

func (st *SymbolTable) Has(name string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.symbols[name]
	return ok
}

func (st *SymbolTable) Get(name string) (Symbol, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sym, ok := st.symbols[name]
	return sym, ok
}

func (st *SymbolTable) All() map[string]Symbol {
	st.mu.RLock()
	defer st.mu.RUnlock()
	// Return a copy
	result := make(map[string]Symbol, len(st.symbols))
	for k, v := range st.symbols {
		result[k] = v
	}
	return result
}

func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.symbols)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.2fm", d.Minutes())
	default:
		return fmt.Sprintf("%.2fh", d.Hours())
	}
}
