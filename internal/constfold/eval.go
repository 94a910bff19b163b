package constfold

import (
	"errors"
	"fmt"
	"math"

	"github.com/dop251/goja/ast"

	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/scope"
)

// The evaluator is a typed recursive interpreter over the expression nodes
// themselves. It never builds source text and never hands anything to a
// script engine: the only inputs are literals, scope bindings, operators,
// and the fixed math table below, so attacker-shaped source cannot reach
// ambient names, timers, or IO.

// maxEvalDepth bounds recursion on attacker-shaped expression trees.
const maxEvalDepth = 64

var errUnsupported = errors.New("unsupported expression")

func eval(expr ast.Expression, sc scope.Scope, depth int) (scope.Value, error) {
	if depth > maxEvalDepth {
		return scope.Value{}, errors.New("expression too deep")
	}

	switch e := expr.(type) {
	case *ast.NumberLiteral:
		n, ok := jsparse.NumberOf(e)
		if !ok {
			return scope.Value{}, errUnsupported
		}
		return scope.NumberValue(n), nil
	case *ast.StringLiteral:
		return scope.StringValue(e.Value.String()), nil
	case *ast.BooleanLiteral:
		return scope.BoolValue(e.Value), nil
	case *ast.Identifier:
		b, ok := sc[e.Name.String()]
		if !ok || b.Kind != scope.KindLiteral {
			return scope.Value{}, fmt.Errorf("unresolved identifier %s", e.Name.String())
		}
		return b.Const, nil
	case *ast.UnaryExpression:
		return evalUnary(e, sc, depth)
	case *ast.BinaryExpression:
		return evalBinary(e, sc, depth)
	case *ast.CallExpression:
		return evalCall(e, sc, depth)
	case *ast.DotExpression:
		if obj, prop, ok := jsparse.MemberCallee(e); ok && obj == mathNamespace {
			if c, ok := mathConstants[prop]; ok {
				return scope.NumberValue(c), nil
			}
		}
		return scope.Value{}, errUnsupported
	}
	return scope.Value{}, errUnsupported
}

func evalUnary(e *ast.UnaryExpression, sc scope.Scope, depth int) (scope.Value, error) {
	if e.Postfix {
		return scope.Value{}, errUnsupported
	}
	v, err := eval(e.Operand, sc, depth+1)
	if err != nil {
		return scope.Value{}, err
	}
	switch e.Operator.String() {
	case "!":
		return scope.BoolValue(!v.Truthy()), nil
	case "-":
		if v.Kind != scope.Number {
			return scope.Value{}, errUnsupported
		}
		return scope.NumberValue(-v.Num), nil
	case "+":
		if v.Kind != scope.Number {
			return scope.Value{}, errUnsupported
		}
		return scope.NumberValue(v.Num), nil
	case "~":
		if v.Kind != scope.Number {
			return scope.Value{}, errUnsupported
		}
		return scope.NumberValue(float64(^toInt32(v.Num))), nil
	}
	return scope.Value{}, errUnsupported
}

func evalBinary(e *ast.BinaryExpression, sc scope.Scope, depth int) (scope.Value, error) {
	l, err := eval(e.Left, sc, depth+1)
	if err != nil {
		return scope.Value{}, err
	}

	// Logical operators keep script semantics: the selected operand is the
	// result, not a coerced boolean.
	switch e.Operator.String() {
	case "&&":
		if !l.Truthy() {
			return l, nil
		}
		return eval(e.Right, sc, depth+1)
	case "||":
		if l.Truthy() {
			return l, nil
		}
		return eval(e.Right, sc, depth+1)
	}

	r, err := eval(e.Right, sc, depth+1)
	if err != nil {
		return scope.Value{}, err
	}

	op := e.Operator.String()
	if l.Kind == scope.Number && r.Kind == scope.Number {
		return evalNumericBinary(op, l.Num, r.Num)
	}
	if l.Kind == scope.String && r.Kind == scope.String {
		return evalStringBinary(op, l.Str, r.Str)
	}
	if l.Kind == scope.Bool && r.Kind == scope.Bool {
		switch op {
		case "==", "===":
			return scope.BoolValue(l.Flag == r.Flag), nil
		case "!=", "!==":
			return scope.BoolValue(l.Flag != r.Flag), nil
		}
		return scope.Value{}, errUnsupported
	}
	// Mixed kinds: strict (in)equality is decidable, coercing forms are not
	// modeled.
	switch op {
	case "===":
		return scope.BoolValue(false), nil
	case "!==":
		return scope.BoolValue(true), nil
	}
	return scope.Value{}, errUnsupported
}

func evalNumericBinary(op string, l, r float64) (scope.Value, error) {
	switch op {
	case "+":
		return scope.NumberValue(l + r), nil
	case "-":
		return scope.NumberValue(l - r), nil
	case "*":
		return scope.NumberValue(l * r), nil
	case "/":
		return scope.NumberValue(l / r), nil
	case "%":
		return scope.NumberValue(math.Mod(l, r)), nil
	case ">":
		return scope.BoolValue(l > r), nil
	case ">=":
		return scope.BoolValue(l >= r), nil
	case "<":
		return scope.BoolValue(l < r), nil
	case "<=":
		return scope.BoolValue(l <= r), nil
	case "==", "===":
		return scope.BoolValue(l == r), nil
	case "!=", "!==":
		return scope.BoolValue(l != r), nil
	case "&":
		return scope.NumberValue(float64(toInt32(l) & toInt32(r))), nil
	case "|":
		return scope.NumberValue(float64(toInt32(l) | toInt32(r))), nil
	case "^":
		return scope.NumberValue(float64(toInt32(l) ^ toInt32(r))), nil
	case "<<":
		return scope.NumberValue(float64(toInt32(l) << (toUint32(r) & 31))), nil
	case ">>":
		return scope.NumberValue(float64(toInt32(l) >> (toUint32(r) & 31))), nil
	case ">>>":
		return scope.NumberValue(float64(toUint32(l) >> (toUint32(r) & 31))), nil
	}
	return scope.Value{}, errUnsupported
}

func evalStringBinary(op, l, r string) (scope.Value, error) {
	switch op {
	case "+":
		return scope.StringValue(l + r), nil
	case "==", "===":
		return scope.BoolValue(l == r), nil
	case "!=", "!==":
		return scope.BoolValue(l != r), nil
	case ">":
		return scope.BoolValue(l > r), nil
	case ">=":
		return scope.BoolValue(l >= r), nil
	case "<":
		return scope.BoolValue(l < r), nil
	case "<=":
		return scope.BoolValue(l <= r), nil
	}
	return scope.Value{}, errUnsupported
}

// evalCall resolves calls through MathRef bindings or direct Math.<fn>
// member callees. Anything else is unresolved.
func evalCall(e *ast.CallExpression, sc scope.Scope, depth int) (scope.Value, error) {
	var fn string
	switch callee := e.Callee.(type) {
	case *ast.Identifier:
		b, ok := sc[callee.Name.String()]
		if !ok || b.Kind != scope.KindMathRef {
			return scope.Value{}, fmt.Errorf("unresolved callee %s", callee.Name.String())
		}
		fn = b.MathFn
	case *ast.DotExpression:
		obj, prop, ok := jsparse.MemberCallee(callee)
		if !ok || obj != mathNamespace {
			return scope.Value{}, errUnsupported
		}
		fn = mathNamespace + "." + prop
	default:
		return scope.Value{}, errUnsupported
	}

	args := make([]float64, 0, len(e.ArgumentList))
	for _, arg := range e.ArgumentList {
		v, err := eval(arg, sc, depth+1)
		if err != nil {
			return scope.Value{}, err
		}
		if v.Kind != scope.Number {
			return scope.Value{}, errUnsupported
		}
		args = append(args, v.Num)
	}
	return mathCall(fn, args)
}

var mathConstants = map[string]float64{
	"PI":      math.Pi,
	"E":       math.E,
	"LN2":     math.Ln2,
	"LN10":    math.Log(10),
	"SQRT2":   math.Sqrt2,
	"LOG2E":   math.Log2E,
	"LOG10E":  math.Log10E,
	"SQRT1_2": 1 / math.Sqrt2,
}

func mathCall(fn string, args []float64) (scope.Value, error) {
	unary := func(impl func(float64) float64) (scope.Value, error) {
		if len(args) != 1 {
			return scope.Value{}, fmt.Errorf("%s expects 1 argument, got %d", fn, len(args))
		}
		return scope.NumberValue(impl(args[0])), nil
	}
	binary := func(impl func(x, y float64) float64) (scope.Value, error) {
		if len(args) != 2 {
			return scope.Value{}, fmt.Errorf("%s expects 2 arguments, got %d", fn, len(args))
		}
		return scope.NumberValue(impl(args[0], args[1])), nil
	}

	switch fn {
	case "Math.abs":
		return unary(math.Abs)
	case "Math.floor":
		return unary(math.Floor)
	case "Math.ceil":
		return unary(math.Ceil)
	case "Math.round":
		return unary(math.Round)
	case "Math.trunc":
		return unary(math.Trunc)
	case "Math.sqrt":
		return unary(math.Sqrt)
	case "Math.cbrt":
		return unary(math.Cbrt)
	case "Math.exp":
		return unary(math.Exp)
	case "Math.log":
		return unary(math.Log)
	case "Math.log2":
		return unary(math.Log2)
	case "Math.log10":
		return unary(math.Log10)
	case "Math.sin":
		return unary(math.Sin)
	case "Math.cos":
		return unary(math.Cos)
	case "Math.tan":
		return unary(math.Tan)
	case "Math.asin":
		return unary(math.Asin)
	case "Math.acos":
		return unary(math.Acos)
	case "Math.atan":
		return unary(math.Atan)
	case "Math.sign":
		return unary(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return x
		})
	case "Math.pow":
		return binary(math.Pow)
	case "Math.atan2":
		return binary(math.Atan2)
	case "Math.hypot":
		return binary(math.Hypot)
	case "Math.min":
		if len(args) == 0 {
			return scope.Value{}, errUnsupported
		}
		out := args[0]
		for _, a := range args[1:] {
			out = math.Min(out, a)
		}
		return scope.NumberValue(out), nil
	case "Math.max":
		if len(args) == 0 {
			return scope.Value{}, errUnsupported
		}
		out := args[0]
		for _, a := range args[1:] {
			out = math.Max(out, a)
		}
		return scope.NumberValue(out), nil
	}
	return scope.Value{}, fmt.Errorf("unknown math function %s", fn)
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(int64(f))
}

func toUint32(f float64) uint32 {
	return uint32(toInt32(f))
}
