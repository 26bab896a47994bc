package expr

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

var (
	identifier = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	// id-a, bus-width-max
	hyphenated = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:-[A-Za-z_][A-Za-z0-9_]*)+`)
)

// Formatter rewrites parameter ids in expression text into parameter names.
type Formatter struct {
	finder Finder
}

// NewFormatter returns a formatter over f.
func NewFormatter(f Finder) *Formatter {
	return &Formatter{finder: f}
}

// Format replaces every identifier that is a known value id with the name
// of its parameter. Everything else is left untouched.
func (f *Formatter) Format(text string) string {
	if f.finder == nil || text == "" {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range identifierSpans(text) {
		b.WriteString(text[last:loc[0]])
		word := text[loc[0]:loc[1]]
		if p, ok := f.finder.Find(word); ok && p.ValueID == word && p.Name != "" {
			word = p.Name
		}
		b.WriteString(word)
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// identifierSpans finds identifiers outside string literals, skipping the
// radix letters of based literals such as 8'hFF.
func identifierSpans(text string) [][]int {
	var spans [][]int
	for _, loc := range identifier.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			prev := text[loc[0]-1]
			if prev == '\'' || prev == '$' || (prev >= '0' && prev <= '9') {
				continue
			}
		}
		if strings.Count(text[:loc[0]], `"`)%2 == 1 {
			continue
		}
		spans = append(spans, loc)
	}
	return spans
}

// References lists the identifiers text refers to, sorted and unique.
// Function names are not references. A hyphenated word is listed both whole
// and split, since it may name a single parameter.
func References(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, word := range hyphenated.FindAllString(text, -1) {
		segs := strings.Split(word, "-")
		for k := 2; k <= len(segs); k++ {
			seen[strings.Join(segs[:k], "-")] = struct{}{}
		}
	}
	if e, _, err := parse(text, nil); err == nil {
		for _, t := range e.Variables() {
			seen[t.RootName()] = struct{}{}
		}
	} else {
		// unparseable text may still name parameters
		for _, loc := range identifierSpans(text) {
			word := text[loc[0]:loc[1]]
			if _, isFunc := functions[word]; isFunc {
				continue
			}
			seen[word] = struct{}{}
		}
	}
	delete(seen, "true")
	delete(seen, "false")
	delete(seen, "null")

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ReferencesAny reports whether text refers to any of the given ids.
func ReferencesAny(text string, ids map[string]bool) bool {
	for _, ref := range References(text) {
		if ids[ref] {
			return true
		}
	}
	return false
}

// CalledFunctions lists the system functions text calls.
func CalledFunctions(text string) []string {
	e, _, err := parse(text, nil)
	if err != nil {
		return nil
	}
	found := make(map[string]struct{})
	walkForFunctions(e, found)
	out := make([]string, 0, len(found))
	for f := range found {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func walkForFunctions(e hclsyntax.Expression, found map[string]struct{}) {
	switch e := e.(type) {
	case *hclsyntax.FunctionCallExpr:
		found[e.Name] = struct{}{}
		for _, a := range e.Args {
			walkForFunctions(a, found)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, found)
		walkForFunctions(e.RHS, found)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, found)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, found)
		walkForFunctions(e.TrueResult, found)
		walkForFunctions(e.FalseResult, found)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, found)
	}
}
