package expr

import (
	"bytes"
	"math/big"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// errUnresolved marks text that is not an expression we can evaluate. It
// never leaves the package: Evaluate returns such text unchanged.
var errUnresolved = errors.New("unresolved expression")

// Resolver evaluates expression text against the parameters a Finder exposes.
type Resolver struct {
	finder Finder
}

// NewResolver returns a resolver over f. A nil finder resolves no references.
func NewResolver(f Finder) *Resolver {
	return &Resolver{finder: f}
}

// Evaluate reduces text to a literal. Text that does not parse, or that
// references unknown parameters, comes back unchanged with a nil error.
// Operations SystemVerilog leaves undefined, such as a division by zero,
// give "x". A reference cycle fails with ipxact.ErrCircularReference.
func (r *Resolver) Evaluate(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	v, err := r.eval(text, nil)
	if err != nil {
		if errors.Is(err, ipxact.ErrCircularReference) {
			return text, err
		}
		return text, nil
	}
	return formatValue(v.val), nil
}

// EvaluateOrText is Evaluate for callers that treat a cycle like any other
// unresolvable text.
func (r *Resolver) EvaluateOrText(text string) string {
	out, err := r.Evaluate(text)
	if err != nil {
		return text
	}
	return out
}

// IsResolvable reports whether text evaluates to a literal.
func (r *Resolver) IsResolvable(text string) bool {
	_, err := r.eval(text, nil)
	return err == nil
}

// undefined is SystemVerilog's x.
var undefined = cty.UnknownVal(cty.Number)

// term is an evaluated value. real records whether a literal it was
// computed from was written with a decimal point, which decides whether
// '/' truncates.
type term struct {
	val  cty.Value
	real bool
}

func (t term) known() bool { return t.val.IsKnown() }

func parse(text string, isName func(string) bool) (hclsyntax.Expression, []byte, error) {
	src := []byte(normalize(text, isName))
	e, diags := hclsyntax.ParseExpression(src, "expr", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, nil, errUnresolved
	}
	return e, src, nil
}

func (r *Resolver) isName(word string) bool {
	if r.finder == nil {
		return false
	}
	_, ok := r.finder.Find(word)
	return ok
}

func (r *Resolver) eval(text string, stack []string) (term, error) {
	e, src, err := parse(text, r.isName)
	if err != nil {
		return term{}, err
	}
	return r.walk(e, src, stack)
}

func (r *Resolver) walk(e hclsyntax.Expression, src []byte, stack []string) (term, error) {
	switch e := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		rng := e.SrcRange
		isReal := e.Val.Type() == cty.Number && bytes.ContainsRune(src[rng.Start.Byte:rng.End.Byte], '.')
		return term{val: e.Val, real: isReal}, nil

	case *hclsyntax.TemplateExpr:
		if !e.IsStringLiteral() {
			return term{}, errUnresolved
		}
		v, diags := e.Value(nil)
		if diags.HasErrors() {
			return term{}, errUnresolved
		}
		return term{val: v}, nil

	case *hclsyntax.ParenthesesExpr:
		return r.walk(e.Expression, src, stack)

	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) != 1 {
			return term{}, errUnresolved
		}
		return r.reference(e.Traversal.RootName(), stack)

	case *hclsyntax.UnaryOpExpr:
		v, err := r.walk(e.Val, src, stack)
		if err != nil || !v.known() {
			return v, err
		}
		out, err := call(e.Op.Impl.Call([]cty.Value{v.val}))
		return term{val: out, real: v.real}, err

	case *hclsyntax.BinaryOpExpr:
		lhs, err := r.walk(e.LHS, src, stack)
		if err != nil {
			return term{}, err
		}
		rhs, err := r.walk(e.RHS, src, stack)
		if err != nil {
			return term{}, err
		}
		if !lhs.known() || !rhs.known() {
			return term{val: undefined}, nil
		}
		return binary(e.Op, lhs, rhs)

	case *hclsyntax.ConditionalExpr:
		cond, err := r.walk(e.Condition, src, stack)
		if err != nil {
			return term{}, err
		}
		if !cond.known() {
			return term{val: undefined}, nil
		}
		truth, ok := truthy(cond.val)
		if !ok {
			return term{}, errUnresolved
		}
		if truth {
			return r.walk(e.TrueResult, src, stack)
		}
		return r.walk(e.FalseResult, src, stack)

	case *hclsyntax.FunctionCallExpr:
		fn, ok := functions[e.Name]
		if !ok {
			return term{}, errUnresolved
		}
		args := make([]term, 0, len(e.Args))
		for _, a := range e.Args {
			v, err := r.walk(a, src, stack)
			if err != nil {
				return term{}, err
			}
			if !v.known() {
				return term{val: undefined}, nil
			}
			args = append(args, v)
		}
		out, err := fn(args)
		if err != nil || (out.known() && out.val.IsNull()) {
			return term{}, errUnresolved
		}
		return out, nil
	}
	return term{}, errUnresolved
}

// binary applies op. '/' truncates unless an operand is real, '%' is
// integer only and both are x for a zero divisor.
func binary(op *hclsyntax.Operation, lhs, rhs term) (term, error) {
	isReal := lhs.real || rhs.real
	switch op {
	case hclsyntax.OpDivide:
		if isZero(rhs.val) {
			return term{val: undefined}, nil
		}
		q, err := call(stdlib.Divide(lhs.val, rhs.val))
		if err != nil || isReal {
			return term{val: q, real: isReal}, err
		}
		q, err = call(stdlib.Int(q))
		return term{val: q}, err

	case hclsyntax.OpModulo:
		x, y, ok := integers(lhs, rhs)
		if !ok || y.Sign() == 0 {
			return term{val: undefined}, nil
		}
		return term{val: cty.NumberVal(new(big.Float).SetInt(new(big.Int).Rem(x, y)))}, nil
	}
	v, err := call(op.Impl.Call([]cty.Value{lhs.val, rhs.val}))
	if err != nil {
		return term{}, err
	}
	return term{val: v, real: isReal && v.Type() == cty.Number}, nil
}

func (r *Resolver) reference(ref string, stack []string) (term, error) {
	if r.finder == nil {
		return term{}, errUnresolved
	}
	p, ok := r.finder.Find(ref)
	if !ok {
		return term{}, errUnresolved
	}
	key := p.ValueID
	if key == "" {
		key = p.Name
	}
	for _, s := range stack {
		if s == key {
			return term{}, errors.Wrapf(ipxact.ErrCircularReference, "%s -> %s",
				strings.Join(stack, " -> "), key)
		}
	}
	return r.eval(p.Value, append(stack[:len(stack):len(stack)], key))
}

func call(v cty.Value, err error) (cty.Value, error) {
	if err != nil || !v.IsKnown() || v.IsNull() {
		return cty.NilVal, errUnresolved
	}
	return v, nil
}

func isZero(v cty.Value) bool {
	f, ok := numberArg(v)
	return ok && f.Sign() == 0
}

func truthy(v cty.Value) (bool, bool) {
	switch v.Type() {
	case cty.Bool:
		return v.True(), true
	case cty.Number:
		return v.AsBigFloat().Sign() != 0, true
	}
	return false, false
}

// formatValue renders integers without a fraction and reals in their
// shortest form.
func formatValue(v cty.Value) string {
	if !v.IsKnown() {
		return "x"
	}
	switch v.Type() {
	case cty.Number:
		f := v.AsBigFloat()
		if f.IsInt() {
			i, _ := f.Int(nil)
			return i.String()
		}
		x, _ := f.Float64()
		return strconv.FormatFloat(x, 'f', -1, 64)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case cty.String:
		return v.AsString()
	}
	return ""
}

func numberArg(v cty.Value) (*big.Float, bool) {
	if v.Type() != cty.Number || !v.IsKnown() || v.IsNull() {
		return nil, false
	}
	return v.AsBigFloat(), true
}
