package expr

import (
	"math/big"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

type builtin func(args []term) (term, error)

// functions are the SystemVerilog system functions accepted in expressions,
// named without their '$', plus the calls normalize rewrites infix
// operators into.
var functions = map[string]builtin{
	"clog2": unary(clog2),
	"pow":   binaryFunc(pow),
	"sqrt": unary(func(v term) (term, error) {
		if f, ok := numberArg(v.val); ok && f.Sign() < 0 {
			return term{val: undefined}, nil
		}
		return numeric(stdlib.Pow(v.val, cty.NumberFloatVal(0.5)))(v.real)
	}),
	"ceil":  unary(lift(stdlib.Ceil)),
	"floor": unary(lift(stdlib.Floor)),
	"abs":   unary(lift(stdlib.Absolute)),
	"max": func(args []term) (term, error) {
		return numeric(stdlib.Max(values(args)...))(anyReal(args))
	},
	"min": func(args []term) (term, error) {
		return numeric(stdlib.Min(values(args)...))(anyReal(args))
	},
	"shiftleft": binaryFunc(func(l, r term) (term, error) {
		return shift(l, r, (*big.Int).Lsh)
	}),
	"shiftright": binaryFunc(func(l, r term) (term, error) {
		return shift(l, r, (*big.Int).Rsh)
	}),
	"undefined": func(args []term) (term, error) {
		return term{val: undefined}, nil
	},
}

func unary(fn func(term) (term, error)) builtin {
	return func(args []term) (term, error) {
		if len(args) != 1 {
			return term{}, errors.Errorf("want 1 argument, got %d", len(args))
		}
		return fn(args[0])
	}
}

func binaryFunc(fn func(l, r term) (term, error)) builtin {
	return func(args []term) (term, error) {
		if len(args) != 2 {
			return term{}, errors.Errorf("want 2 arguments, got %d", len(args))
		}
		return fn(args[0], args[1])
	}
}

func lift(fn func(cty.Value) (cty.Value, error)) func(term) (term, error) {
	return func(v term) (term, error) {
		return numeric(fn(v.val))(v.real)
	}
}

// numeric wraps a cty result as a term, real when isReal is set or the
// result has a fraction.
func numeric(v cty.Value, err error) func(isReal bool) (term, error) {
	return func(isReal bool) (term, error) {
		if err != nil {
			return term{}, err
		}
		if f, ok := numberArg(v); ok && !f.IsInt() {
			isReal = true
		}
		return term{val: v, real: isReal}, nil
	}
}

func values(args []term) []cty.Value {
	out := make([]cty.Value, len(args))
	for i, a := range args {
		out[i] = a.val
	}
	return out
}

func anyReal(args []term) bool {
	for _, a := range args {
		if a.real {
			return true
		}
	}
	return false
}

// clog2 is the ceiling of log2, with clog2(0) == clog2(1) == 0 and x for
// negative numbers.
func clog2(v term) (term, error) {
	f, ok := numberArg(v.val)
	if !ok {
		return term{}, errors.New("clog2 needs a number")
	}
	if f.Sign() < 0 {
		return term{val: undefined}, nil
	}
	n, _ := f.Uint64()
	if n <= 1 {
		return term{val: cty.NumberIntVal(0)}, nil
	}
	return term{val: cty.NumberIntVal(int64(bits.Len64(n - 1)))}, nil
}

// pow is both $pow and '**'. Zero to a negative power is x, and an integer
// base raised to a negative power truncates toward zero.
func pow(base, exp term) (term, error) {
	b, okB := numberArg(base.val)
	e, okE := numberArg(exp.val)
	if !okB || !okE {
		return term{}, errors.New("pow needs numbers")
	}
	if b.Sign() == 0 && e.Sign() < 0 {
		return term{val: undefined}, nil
	}
	v, err := stdlib.Pow(base.val, exp.val)
	if err != nil {
		return term{}, err
	}
	if !base.real && e.Sign() < 0 {
		v, err = stdlib.Int(v)
		return term{val: v}, err
	}
	return numeric(v, nil)(base.real || exp.real)
}

// shift applies an integer shift. Real operands and counts outside 0..63
// are x.
func shift(l, r term, op func(z, x *big.Int, n uint) *big.Int) (term, error) {
	x, n, ok := integers(l, r)
	if !ok || !n.IsInt64() || n.Int64() < 0 || n.Int64() > 63 {
		return term{val: undefined}, nil
	}
	return term{val: cty.NumberVal(new(big.Float).SetInt(op(new(big.Int), x, uint(n.Int64()))))}, nil
}

// integers returns both operands as integers, failing for reals.
func integers(l, r term) (*big.Int, *big.Int, bool) {
	if l.real || r.real {
		return nil, nil, false
	}
	a, okA := numberArg(l.val)
	b, okB := numberArg(r.val)
	if !okA || !okB || !a.IsInt() || !b.IsInt() {
		return nil, nil, false
	}
	x, _ := a.Int(nil)
	y, _ := b.Int(nil)
	return x, y, true
}
