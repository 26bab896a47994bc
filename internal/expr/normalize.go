package expr

import (
	"math/big"
	"regexp"
	"strings"
)

var (
	// 8'hFF, 'b101, 4'sd3, 4'bxx01
	basedLiteral = regexp.MustCompile(`(?:\b\d+\s*)?'[sS]?([bBoOdDhH])\s*([0-9a-fA-FxXzZ_]+)`)
	systemCall   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

var literalBases = map[byte]int{'b': 2, 'o': 8, 'd': 10, 'h': 16}

// infix is a binary operator hclsyntax lacks, rewritten into a call of fn.
type infix struct {
	op, fn string
	// primary operands bind tighter than any other operator
	primary bool
}

// Rewritten in order, tightest binding first.
var infixOperators = []infix{
	{op: "**", fn: "pow", primary: true},
	{op: "<<", fn: "shiftleft"},
	{op: ">>", fn: "shiftright"},
}

// normalize rewrites SystemVerilog spellings into something hclsyntax
// parses: based literals become decimal (or an undefined value when they
// hold x or z digits), system calls lose their '$', infix operators HCL
// does not know become function calls and minus signs are separated from
// identifiers. isName decides whether a hyphenated word is one name; a nil
// isName splits every hyphen.
func normalize(text string, isName func(string) bool) string {
	text = basedLiteral.ReplaceAllStringFunc(text, func(lit string) string {
		m := basedLiteral.FindStringSubmatch(lit)
		digits := strings.ReplaceAll(m[2], "_", "")
		if strings.ContainsAny(digits, "xXzZ") {
			return "undefined()"
		}
		base := literalBases[strings.ToLower(m[1])[0]]
		n, ok := new(big.Int).SetString(digits, base)
		if !ok {
			return lit
		}
		return n.String()
	})
	text = systemCall.ReplaceAllString(text, "${1}(")
	text = spaceMinus(text, isName)
	for _, in := range infixOperators {
		text = in.rewrite(text)
	}
	return text
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// isOperandByte reports whether text[i] belongs to a number or name. After
// spaceMinus a '-' with no space on either side is part of a joined name.
func isOperandByte(text string, i int) bool {
	switch c := text[i]; {
	case isIdentByte(c), c == '.':
		return true
	case c == '-':
		return i > 0 && i+1 < len(text) && isIdentByte(text[i-1]) && isIdentByte(text[i+1])
	}
	return false
}

// spaceMinus puts spaces around every '-' outside string literals, except
// those inside a hyphenated word isName accepts. Words are joined greedily:
// in "id-a-1" a known "id-a" keeps its hyphen and the second one is spaced.
func spaceMinus(text string, isName func(string) bool) string {
	if !strings.Contains(text, "-") {
		return text
	}
	var b strings.Builder
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"' && (i == 0 || text[i-1] != '\\'):
			inString = !inString
			b.WriteByte(c)
		case inString:
			b.WriteByte(c)
		case c == '-':
			b.WriteString(" - ")
		case isIdentStart(c) && (i == 0 || !isIdentByte(text[i-1])):
			end := i
			for end < len(text) && (isIdentByte(text[end]) || (text[end] == '-' && end+1 < len(text) && isIdentByte(text[end+1]))) {
				end++
			}
			b.WriteString(joinWords(strings.Split(text[i:end], "-"), isName))
			i = end - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func joinWords(segs []string, isName func(string) bool) string {
	var parts []string
	for len(segs) > 0 {
		k := len(segs)
		for ; k > 1; k-- {
			if isName != nil && isName(strings.Join(segs[:k], "-")) {
				break
			}
		}
		parts = append(parts, strings.Join(segs[:k], "-"))
		segs = segs[k:]
	}
	return strings.Join(parts, " - ")
}

// rewrite replaces every "lhs op rhs" with "fn(lhs, rhs)", left to right.
// Text where an operand is missing is left for the parser to reject.
func (in infix) rewrite(text string) string {
	from := 0
	for {
		i := in.find(text, from)
		if i < 0 {
			return text
		}
		start, end := in.left(text, i), in.right(text, i+len(in.op))
		lhs := strings.TrimSpace(text[start:i])
		rhs := strings.TrimSpace(text[i+len(in.op) : end])
		if lhs == "" || rhs == "" {
			from = i + len(in.op)
			continue
		}
		call := in.fn + "(" + lhs + ", " + rhs + ")"
		text = text[:start] + call + text[end:]
		// a parenthesised operand may itself hold op
		from = start
	}
}

// find returns the index of the next op at or after from outside string
// literals, skipping runs such as "<<<".
func (in infix) find(text string, from int) int {
	inString := false
	for i := 0; i < len(text); i++ {
		if text[i] == '"' && (i == 0 || text[i-1] != '\\') {
			inString = !inString
			continue
		}
		if inString || i < from || !strings.HasPrefix(text[i:], in.op) {
			continue
		}
		if !in.primary {
			c := in.op[0]
			if (i > 0 && text[i-1] == c) || (i+2 < len(text) && text[i+2] == c) {
				i += 2
				continue
			}
		}
		return i
	}
	return -1
}

// shiftStop ends a shift operand: comparisons and everything binding
// looser than them.
func shiftStop(text string, i int) bool {
	switch text[i] {
	case '<', '>', '=', '&', '|', '^', '?', ':', ',':
		return true
	case '!':
		return i+1 < len(text) && text[i+1] == '='
	}
	return false
}

func (in infix) left(text string, i int) int {
	if in.primary {
		j := i
		for j > 0 && text[j-1] == ' ' {
			j--
		}
		if j > 0 && text[j-1] == ')' {
			open := matchingOpen(text, j-1)
			if open < 0 {
				return i
			}
			j = open
		}
		for j > 0 && isOperandByte(text, j-1) {
			j--
		}
		return j
	}
	depth := 0
	for j := i - 1; j >= 0; j-- {
		switch c := text[j]; {
		case c == ')':
			depth++
		case c == '(' && depth == 0:
			return j + 1
		case c == '(':
			depth--
		case depth == 0 && shiftStop(text, j):
			return j + 1
		}
	}
	return 0
}

func (in infix) right(text string, i int) int {
	if in.primary {
		j := i
		for j < len(text) && text[j] == ' ' {
			j++
		}
		if j < len(text) && text[j] == '-' {
			j++
			for j < len(text) && text[j] == ' ' {
				j++
			}
		}
		for j < len(text) && isOperandByte(text, j) {
			j++
		}
		if j < len(text) && text[j] == '(' {
			if end := matchingClose(text, j); end >= 0 {
				j = end + 1
			}
		}
		return j
	}
	depth := 0
	for j := i; j < len(text); j++ {
		switch c := text[j]; {
		case c == '(':
			depth++
		case c == ')' && depth == 0:
			return j
		case c == ')':
			depth--
		case depth == 0 && shiftStop(text, j):
			return j
		}
	}
	return len(text)
}

func matchingOpen(text string, end int) int {
	depth := 0
	for j := end; j >= 0; j-- {
		switch text[j] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func matchingClose(text string, open int) int {
	depth := 0
	for j := open; j < len(text); j++ {
		switch text[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
