// Package constfold resolves statically decidable branch conditions and
// replaces their tests with literal truth values. Conditions are only ever
// replaced when every sub-expression resolves; a partially resolved test is
// left untouched, never guessed at.
package constfold

import (
	"github.com/dop251/goja/ast"

	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/rewrite"
	"github.com/imaxct/unbundle/internal/scope"
)

// mathNamespace is the global object whose member accesses are tracked as
// symbolic references instead of opaque identifiers.
const mathNamespace = "Math"

// Fold traverses the snapshot with one flat scope per traversal and returns
// a replacement for every branch test that evaluates to a constant. The
// scope is cloned, not shared, on descent into function bodies.
func Fold(snap *jsparse.Snapshot, report func(format string, args ...interface{})) []rewrite.Replacement {
	f := &folder{snap: snap, report: report}
	return f.statements(snap.Body(), scope.New(), nil)
}

type folder struct {
	snap   *jsparse.Snapshot
	report func(format string, args ...interface{})
}

func (f *folder) say(format string, args ...interface{}) {
	if f.report != nil {
		f.report(format, args...)
	}
}

// statements threads the replacement accumulator through a recursive visit
// of a statement list, sharing one scope across the whole list.
func (f *folder) statements(stmts []ast.Statement, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	for _, stmt := range stmts {
		reps = f.statement(stmt, sc, reps)
	}
	return reps
}

func (f *folder) statement(stmt ast.Statement, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	switch s := stmt.(type) {
	case *ast.VariableStatement:
		for _, b := range s.List {
			reps = f.binding(b, sc, reps)
		}
	case *ast.LexicalDeclaration:
		for _, b := range s.List {
			reps = f.binding(b, sc, reps)
		}
	case *ast.FunctionDeclaration:
		if s.Function != nil && s.Function.Body != nil {
			reps = f.statements(s.Function.Body.List, sc.Clone(), reps)
		}
	case *ast.IfStatement:
		reps = f.foldTest(s.Test, sc, reps)
		reps = f.statement(s.Consequent, sc, reps)
		if s.Alternate != nil {
			reps = f.statement(s.Alternate, sc, reps)
		}
	case *ast.BlockStatement:
		reps = f.statements(s.List, sc, reps)
	case *ast.ExpressionStatement:
		reps = f.expression(s.Expression, sc, reps)
	case *ast.ForStatement:
		reps = f.statement(s.Body, sc, reps)
	case *ast.ForInStatement:
		reps = f.statement(s.Body, sc, reps)
	case *ast.ForOfStatement:
		reps = f.statement(s.Body, sc, reps)
	case *ast.WhileStatement:
		reps = f.statement(s.Body, sc, reps)
	case *ast.DoWhileStatement:
		reps = f.statement(s.Body, sc, reps)
	case *ast.SwitchStatement:
		for _, c := range s.Body {
			reps = f.statements(c.Consequent, sc, reps)
		}
	case *ast.TryStatement:
		reps = f.statement(s.Body, sc, reps)
		if s.Catch != nil {
			reps = f.statement(s.Catch.Body, sc, reps)
		}
		if s.Finally != nil {
			reps = f.statement(s.Finally, sc, reps)
		}
	case *ast.LabelledStatement:
		reps = f.statement(s.Statement, sc, reps)
	case *ast.ReturnStatement:
		if s.Argument != nil {
			reps = f.expression(s.Argument, sc, reps)
		}
	}
	return reps
}

// binding records statically known initializers and still descends into
// function-literal initializers so nested branches are visited.
func (f *folder) binding(b *ast.Binding, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	name, ok := jsparse.BindingIdent(b)
	if !ok || b.Initializer == nil {
		return reps
	}

	switch init := b.Initializer.(type) {
	case *ast.StringLiteral:
		sc[name] = scope.Binding{Kind: scope.KindLiteral, Const: scope.StringValue(init.Value.String())}
	case *ast.BooleanLiteral:
		sc[name] = scope.Binding{Kind: scope.KindLiteral, Const: scope.BoolValue(init.Value)}
	case *ast.NumberLiteral, *ast.UnaryExpression:
		if n, ok := jsparse.NumberOf(init); ok {
			sc[name] = scope.Binding{Kind: scope.KindLiteral, Const: scope.NumberValue(n)}
		} else {
			delete(sc, name)
		}
	case *ast.DotExpression:
		if obj, prop, ok := jsparse.MemberCallee(init); ok && obj == mathNamespace {
			sc[name] = scope.Binding{Kind: scope.KindMathRef, MathFn: mathNamespace + "." + prop}
		} else {
			delete(sc, name)
		}
	case *ast.FunctionLiteral:
		delete(sc, name)
		if init.Body != nil {
			reps = f.statements(init.Body.List, sc.Clone(), reps)
		}
	default:
		// Re-binding to anything unresolvable invalidates the name for the
		// rest of the traversal.
		delete(sc, name)
		reps = f.expression(b.Initializer, sc, reps)
	}
	return reps
}

// expression only exists to reach function bodies hiding inside
// expressions (IIFEs, registration factories, callbacks); no evaluation
// happens here.
func (f *folder) expression(expr ast.Expression, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	switch e := expr.(type) {
	case *ast.CallExpression:
		reps = f.expression(e.Callee, sc, reps)
		for _, arg := range e.ArgumentList {
			reps = f.expression(arg, sc, reps)
		}
	case *ast.NewExpression:
		for _, arg := range e.ArgumentList {
			reps = f.expression(arg, sc, reps)
		}
	case *ast.AssignExpression:
		reps = f.expression(e.Right, sc, reps)
	case *ast.BinaryExpression:
		reps = f.expression(e.Left, sc, reps)
		reps = f.expression(e.Right, sc, reps)
	case *ast.UnaryExpression:
		reps = f.expression(e.Operand, sc, reps)
	case *ast.ConditionalExpression:
		reps = f.expression(e.Consequent, sc, reps)
		reps = f.expression(e.Alternate, sc, reps)
	case *ast.SequenceExpression:
		for _, sub := range e.Sequence {
			reps = f.expression(sub, sc, reps)
		}
	case *ast.ArrayLiteral:
		for _, v := range e.Value {
			if v != nil {
				reps = f.expression(v, sc, reps)
			}
		}
	case *ast.ObjectLiteral:
		for _, p := range e.Value {
			if kv, ok := p.(*ast.PropertyKeyed); ok {
				reps = f.expression(kv.Value, sc, reps)
			}
		}
	case *ast.FunctionLiteral:
		if e.Body != nil {
			reps = f.statements(e.Body.List, sc.Clone(), reps)
		}
	case *ast.ArrowFunctionLiteral:
		switch body := e.Body.(type) {
		case *ast.BlockStatement:
			reps = f.statements(body.List, sc.Clone(), reps)
		case *ast.ExpressionBody:
			reps = f.expression(body.Expression, sc, reps)
		}
	}
	return reps
}

// foldTest evaluates one branch test. A boolean result is used directly; a
// numeric result counts as true only when strictly greater than zero; any
// other outcome cancels the replacement.
func (f *folder) foldTest(test ast.Expression, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	if test == nil {
		return reps
	}
	v, err := eval(test, sc, 0)
	if err != nil {
		return reps
	}

	var truth bool
	switch v.Kind {
	case scope.Bool:
		truth = v.Flag
	case scope.Number:
		truth = v.Num > 0
	default:
		return reps
	}

	start, end := f.snap.Span(test)
	if start < 0 || end > len(f.snap.Text) || start > end {
		return reps
	}
	text := "false"
	if truth {
		text = "true"
	}
	if f.snap.Text[start:end] == text {
		// Already a literal, typically from an earlier folding round.
		return reps
	}
	f.say("Info: condition at offset %d resolves to %s\n", start, text)
	return append(reps, rewrite.Replacement{Start: start, End: end, Text: text})
}
