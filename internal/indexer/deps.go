package indexer

import (
	"fmt"
	"sort"
	"strings"
)

// dependentsGraph maps a file to the files that refer to a VLNV it defines.
type dependentsGraph map[string]map[string]bool

func buildDependentsGraph(summaries map[string]FileSummary, symbols *SymbolTable) dependentsGraph {
	graph := make(dependentsGraph)
	for file, s := range summaries {
		for _, depFile := range resolveDependencies(s, symbols) {
			if depFile == "" || depFile == file {
				continue
			}
			if graph[depFile] == nil {
				graph[depFile] = make(map[string]bool)
			}
			graph[depFile][file] = true
		}
	}
	return graph
}

func resolveDependencies(s FileSummary, symbols *SymbolTable) []string {
	var deps []string
	for _, ref := range s.References {
		if sym, ok := symbols.Get(ref); ok {
			deps = append(deps, sym.File)
		}
	}
	return deps
}

// closure returns the files holding root and everything it refers to,
// transitively. References missing from the symbol table are skipped.
func closure(root string, summaries map[string]FileSummary, symbols *SymbolTable) []string {
	sym, ok := symbols.Get(root)
	if !ok {
		return nil
	}
	visited := map[string]bool{sym.File: true}
	queue := []string{sym.File}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, dep := range resolveDependencies(summaries[f], symbols) {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	files := make([]string, 0, len(visited))
	for f := range visited {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

type impactReport struct {
	Root   string     `json:"root"`
	Levels [][]string `json:"levels"`
}

func computeImpact(root string, dependents dependentsGraph) impactReport {
	visited := map[string]bool{root: true}
	frontier := []string{root}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for dep := range dependents[f] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return impactReport{Root: root, Levels: levels}
}

func formatImpactReport(report impactReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", report.Root))
	for i, level := range report.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
