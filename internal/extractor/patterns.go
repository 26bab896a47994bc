package extractor

import (
	"regexp"
	"strings"
)

var (
	// Pattern: entity <name> is
	entityPattern = regexp.MustCompile(`(?i)\bentity\s+(\w+)\s+is\b`)

	// Pattern: end [entity] [<name>] ;
	entityEndPattern = regexp.MustCompile(`(?i)\bend(?:\s+entity)?(?:\s+\w+)?\s*;`)

	// Pattern: architecture <name> of <entity> is
	archPattern = regexp.MustCompile(`(?i)\barchitecture\s+(\w+)\s+of\s+(\w+)\s+is\b`)

	// Pattern: generic (
	genericPattern = regexp.MustCompile(`(?i)\bgeneric\s*\(`)

	// Pattern: port (
	portPattern = regexp.MustCompile(`(?i)\bport\s*\(`)

	// Pattern: [mode] <type> where the mode is optional
	modePattern = regexp.MustCompile(`(?i)^(in|out|inout|buffer|linkage)\s+(.*)$`)

	// Pattern: <type_mark> ( <left> downto|to <right> )
	rangePattern = regexp.MustCompile(`(?is)^[\w.]+\s*\((.+)\s+(downto|to)\s+(.+)\)$`)

	// Pattern: 'x' character literal
	charLiteralPattern = regexp.MustCompile(`^'(.)'$`)
)

// parseEntities finds every entity header in text. Lines are 1-based from
// the start of text.
func parseEntities(text string) []Entity {
	text = stripComments(text)
	var out []Entity
	for _, m := range entityPattern.FindAllStringSubmatchIndex(text, -1) {
		ent := Entity{Name: text[m[2]:m[3]], Line: lineOf(text, m[0])}
		body := text[m[1]:]
		end := entityEndIndex(body)
		if end < 0 {
			continue
		}
		body = body[:end]

		if g := genericPattern.FindStringIndex(body); g != nil {
			if clause, ok := balanced(body[g[1]:]); ok {
				ent.Generics = parseGenerics(clause)
			}
		}
		if p := portPattern.FindStringIndex(body); p != nil {
			if clause, ok := balanced(body[p[1]:]); ok {
				ent.Ports = parsePorts(clause)
			}
		}
		out = append(out, ent)
	}
	return out
}

// entityEndIndex finds the "end" closing an entity header, skipping any
// "end" inside the generic and port clauses.
func entityEndIndex(body string) int {
	depth := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && (i == 0 || !isWordByte(body[i-1])) {
				if loc := entityEndPattern.FindStringIndex(body[i:]); loc != nil && loc[0] == 0 {
					return i
				}
			}
		}
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// balanced returns the text up to the parenthesis closing an already opened one.
func balanced(s string) (string, bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], true
			}
		}
	}
	return "", false
}

// splitTop splits on sep outside of parentheses.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// declaration splits "a, b : rest := default".
func declaration(decl string) (names []string, rest, def string, ok bool) {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return nil, "", "", false
	}
	colon := strings.Index(decl, ":")
	if colon < 0 {
		return nil, "", "", false
	}
	for _, n := range strings.Split(decl[:colon], ",") {
		n = strings.TrimSpace(n)
		// interface class keywords
		for _, kw := range []string{"signal ", "constant "} {
			if len(n) > len(kw) && strings.EqualFold(n[:len(kw)], kw) {
				n = strings.TrimSpace(n[len(kw):])
			}
		}
		if n != "" {
			names = append(names, n)
		}
	}
	rest = decl[colon+1:]
	if i := strings.Index(rest, ":="); i >= 0 {
		def = strings.TrimSpace(rest[i+2:])
		rest = rest[:i]
	}
	return names, collapseSpace(rest), collapseSpace(def), len(names) > 0
}

func parseGenerics(clause string) []Generic {
	var out []Generic
	for _, decl := range splitTop(clause, ';') {
		names, typ, def, ok := declaration(decl)
		if !ok {
			continue
		}
		for _, n := range names {
			out = append(out, Generic{Name: n, Type: typ, Default: def})
		}
	}
	return out
}

func parsePorts(clause string) []Port {
	var out []Port
	for _, decl := range splitTop(clause, ';') {
		names, rest, def, ok := declaration(decl)
		if !ok {
			continue
		}
		dir, typ := "in", rest
		if m := modePattern.FindStringSubmatch(rest); m != nil {
			dir, typ = strings.ToLower(m[1]), strings.TrimSpace(m[2])
		}
		left, right := vectorBounds(typ)
		for _, n := range names {
			out = append(out, Port{
				Name:      n,
				Direction: dir,
				Type:      typ,
				Left:      left,
				Right:     right,
				Default:   def,
			})
		}
	}
	return out
}

// vectorBounds returns the range of an array type such as
// std_logic_vector(7 downto 0).
func vectorBounds(typ string) (string, string) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(typ))
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[3])
}

func stripComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if j := strings.Index(l, "--"); j >= 0 {
			lines[i] = l[:j]
		}
	}
	return strings.Join(lines, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
