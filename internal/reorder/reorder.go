// Package reorder recovers the true execution order of switch dispatch
// loops whose case order was scrambled through array-swap mutations. The
// swaps are replayed against a modeled copy of the array at analysis time;
// the resulting permutation drives the emitted case order. Case bodies are
// reproduced as verbatim byte spans, so nothing inside them is reformatted.
package reorder

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/rewrite"
	"github.com/imaxct/unbundle/internal/scope"
)

// Reorder walks the snapshot and returns one replacement per recovered
// dispatch loop. A loop is recovered only when its array, every swap
// applied to it, and its keyed switch are all fully statically determined;
// anything less leaves the loop untouched.
func Reorder(snap *jsparse.Snapshot, report func(format string, args ...interface{})) []rewrite.Replacement {
	r := &reorderer{snap: snap, report: report}
	return r.statements(snap.Body(), scope.New(), nil)
}

type reorderer struct {
	snap   *jsparse.Snapshot
	report func(format string, args ...interface{})
}

func (r *reorderer) say(format string, args ...interface{}) {
	if r.report != nil {
		r.report(format, args...)
	}
}

func (r *reorderer) statements(stmts []ast.Statement, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	for _, stmt := range stmts {
		reps = r.statement(stmt, sc, reps)
	}
	return reps
}

func (r *reorderer) statement(stmt ast.Statement, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	switch s := stmt.(type) {
	case *ast.VariableStatement:
		for _, b := range s.List {
			reps = r.binding(b, sc, reps)
		}
	case *ast.LexicalDeclaration:
		for _, b := range s.List {
			reps = r.binding(b, sc, reps)
		}
	case *ast.FunctionDeclaration:
		if s.Function == nil {
			break
		}
		if s.Function.Name != nil && isSwapFunction(s.Function) {
			sc[s.Function.Name.Name.String()] = scope.Binding{Kind: scope.KindSwapFunc}
			break
		}
		if s.Function.Body != nil {
			reps = r.statements(s.Function.Body.List, sc.Clone(), reps)
		}
	case *ast.ExpressionStatement:
		reps = r.expression(s.Expression, sc, reps)
	case *ast.BlockStatement:
		reps = r.statements(s.List, sc, reps)
	case *ast.IfStatement:
		reps = r.statement(s.Consequent, sc, reps)
		if s.Alternate != nil {
			reps = r.statement(s.Alternate, sc, reps)
		}
	case *ast.ForOfStatement:
		reps = r.dispatchLoop(s, sc, reps)
	case *ast.ForInStatement:
		// for-in iterates indices, not values, so it can never express
		// the modeled dispatch order.
		reps = r.statement(s.Body, sc, reps)
	case *ast.ForStatement:
		reps = r.statement(s.Body, sc, reps)
	case *ast.WhileStatement:
		reps = r.statement(s.Body, sc, reps)
	case *ast.DoWhileStatement:
		reps = r.statement(s.Body, sc, reps)
	case *ast.SwitchStatement:
		for _, c := range s.Body {
			reps = r.statements(c.Consequent, sc, reps)
		}
	case *ast.TryStatement:
		reps = r.statement(s.Body, sc, reps)
		if s.Catch != nil {
			reps = r.statement(s.Catch.Body, sc, reps)
		}
		if s.Finally != nil {
			reps = r.statement(s.Finally, sc, reps)
		}
	case *ast.LabelledStatement:
		reps = r.statement(s.Statement, sc, reps)
	case *ast.ReturnStatement:
		if s.Argument != nil {
			reps = r.expression(s.Argument, sc, reps)
		}
	}
	return reps
}

func (r *reorderer) binding(b *ast.Binding, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	name, ok := jsparse.BindingIdent(b)
	if !ok || b.Initializer == nil {
		return reps
	}
	switch init := b.Initializer.(type) {
	case *ast.ArrayLiteral:
		if seq, ok := intSequence(init); ok {
			sc[name] = scope.Binding{Kind: scope.KindArray, Array: seq}
		} else {
			delete(sc, name)
		}
	case *ast.FunctionLiteral:
		if isSwapFunction(init) {
			sc[name] = scope.Binding{Kind: scope.KindSwapFunc}
			return reps
		}
		delete(sc, name)
		if init.Body != nil {
			reps = r.statements(init.Body.List, sc.Clone(), reps)
		}
	case *ast.NumberLiteral, *ast.UnaryExpression:
		if n, ok := jsparse.NumberOf(init); ok {
			sc[name] = scope.Binding{Kind: scope.KindLiteral, Const: scope.NumberValue(n)}
		} else {
			delete(sc, name)
		}
	default:
		delete(sc, name)
		reps = r.expression(b.Initializer, sc, reps)
	}
	return reps
}

// expression descends into function bodies hiding inside expressions and
// replays recognized swap calls as they are encountered, in call order.
func (r *reorderer) expression(expr ast.Expression, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	switch e := expr.(type) {
	case *ast.CallExpression:
		if r.applySwap(e, sc) {
			return reps
		}
		reps = r.expression(e.Callee, sc, reps)
		for _, arg := range e.ArgumentList {
			reps = r.expression(arg, sc, reps)
		}
	case *ast.AssignExpression:
		if name, ok := jsparse.IdentifierName(e.Left); ok {
			if fn, isFn := e.Right.(*ast.FunctionLiteral); isFn && isSwapFunction(fn) {
				sc[name] = scope.Binding{Kind: scope.KindSwapFunc}
				return reps
			}
		}
		reps = r.expression(e.Right, sc, reps)
	case *ast.SequenceExpression:
		for _, sub := range e.Sequence {
			reps = r.expression(sub, sc, reps)
		}
	case *ast.FunctionLiteral:
		if e.Body != nil {
			reps = r.statements(e.Body.List, sc.Clone(), reps)
		}
	case *ast.ArrowFunctionLiteral:
		switch body := e.Body.(type) {
		case *ast.BlockStatement:
			reps = r.statements(body.List, sc.Clone(), reps)
		case *ast.ExpressionBody:
			reps = r.expression(body.Expression, sc, reps)
		}
	}
	return reps
}

// applySwap replays a call to a recognized swap function against the
// modeled sequence. A swap whose indices cannot be resolved, or fall
// outside the sequence, poisons the array binding: an incomplete
// permutation model must never drive a reorder.
func (r *reorderer) applySwap(call *ast.CallExpression, sc scope.Scope) bool {
	calleeName, ok := jsparse.IdentifierName(call.Callee)
	if !ok {
		return false
	}
	if b, ok := sc[calleeName]; !ok || b.Kind != scope.KindSwapFunc {
		return false
	}
	if len(call.ArgumentList) != 3 {
		return false
	}
	arrName, ok := jsparse.IdentifierName(call.ArgumentList[0])
	if !ok {
		return false
	}
	arr, ok := sc[arrName]
	if !ok || arr.Kind != scope.KindArray {
		return false
	}

	i, iOK := r.constIndex(call.ArgumentList[1], sc)
	j, jOK := r.constIndex(call.ArgumentList[2], sc)
	if !iOK || !jOK || i < 0 || j < 0 || i >= len(arr.Array) || j >= len(arr.Array) {
		r.say("Warning: swap on %q with undecidable or out-of-range index, dropping the array from tracking\n", arrName)
		delete(sc, arrName)
		return true
	}
	arr.Array[i], arr.Array[j] = arr.Array[j], arr.Array[i]
	return true
}

func (r *reorderer) constIndex(e ast.Expression, sc scope.Scope) (int, bool) {
	if n, ok := jsparse.IntOf(e); ok {
		return n, true
	}
	if name, ok := jsparse.IdentifierName(e); ok {
		if b, ok := sc[name]; ok && b.Kind == scope.KindLiteral && b.Const.Kind == scope.Number {
			n := b.Const.Num
			if n == float64(int(n)) {
				return int(n), true
			}
		}
	}
	return 0, false
}

// dispatchLoop matches a for-of over a tracked array whose body holds a
// switch keyed by the loop variable, and replaces the whole loop with the
// case bodies in recovered order.
func (r *reorderer) dispatchLoop(loop *ast.ForOfStatement, sc scope.Scope, reps []rewrite.Replacement) []rewrite.Replacement {
	arrName, ok := jsparse.IdentifierName(loop.Source)
	if !ok {
		return r.statement(loop.Body, sc, reps)
	}
	arr, tracked := sc[arrName]
	if !tracked || arr.Kind != scope.KindArray {
		return r.statement(loop.Body, sc, reps)
	}
	loopVar, ok := jsparse.LoopVariable(loop.Into)
	if !ok {
		return r.statement(loop.Body, sc, reps)
	}
	sw := findKeyedSwitch(loop.Body, loopVar)
	if sw == nil {
		return r.statement(loop.Body, sc, reps)
	}

	cases := make(map[int]*ast.CaseStatement, len(sw.Body))
	for _, c := range sw.Body {
		if c.Test == nil {
			continue // the default arm is never reproduced
		}
		if v, ok := jsparse.IntOf(c.Test); ok {
			cases[v] = c
		}
	}

	text, ok := r.renderCases(arr.Array, cases)
	if !ok {
		// A case body that cannot be reproduced verbatim means the whole
		// loop stays untouched; emitting a partial body would corrupt it.
		r.say("Warning: dispatch loop over %q has a case body with no recoverable source span, leaving it untouched\n", arrName)
		return r.statement(loop.Body, sc, reps)
	}
	start, end := r.snap.Span(loop)
	r.say("Info: dispatch loop over %q at offset %d reordered to %s\n", arrName, start, orderString(arr.Array))
	return append(reps, rewrite.Replacement{Start: start, End: end, Text: text})
}

// renderCases concatenates the verbatim case bodies in permuted order,
// dropping exactly one trailing unlabeled break per case when it is the
// last statement. Values with no matching case are skipped. A statement
// whose source span cannot be recovered aborts the whole rendering.
func (r *reorderer) renderCases(order []int, cases map[int]*ast.CaseStatement) (string, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "/* recovered dispatch order: %s */\n", orderString(order))
	for _, v := range order {
		c, ok := cases[v]
		if !ok {
			continue
		}
		stmts := c.Consequent
		if n := len(stmts); n > 0 {
			if br, isBranch := stmts[n-1].(*ast.BranchStatement); isBranch &&
				br.Token == token.BREAK && br.Label == nil {
				stmts = stmts[:n-1]
			}
		}
		fmt.Fprintf(&b, "// case %d\n", v)
		for _, stmt := range stmts {
			text, ok := r.snap.Slice(stmt)
			if !ok {
				return "", false
			}
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), true
}

func orderString(order []int) string {
	parts := make([]string, len(order))
	for i, v := range order {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

// findKeyedSwitch locates a switch on the loop variable in the loop body,
// either directly or one block level deep.
func findKeyedSwitch(body ast.Statement, loopVar string) *ast.SwitchStatement {
	if sw := keyedSwitch(body, loopVar); sw != nil {
		return sw
	}
	block, ok := body.(*ast.BlockStatement)
	if !ok {
		return nil
	}
	for _, stmt := range block.List {
		if sw := keyedSwitch(stmt, loopVar); sw != nil {
			return sw
		}
		if inner, ok := stmt.(*ast.BlockStatement); ok {
			for _, st := range inner.List {
				if sw := keyedSwitch(st, loopVar); sw != nil {
					return sw
				}
			}
		}
	}
	return nil
}

func keyedSwitch(stmt ast.Statement, loopVar string) *ast.SwitchStatement {
	sw, ok := stmt.(*ast.SwitchStatement)
	if !ok {
		return nil
	}
	if name, ok := jsparse.IdentifierName(sw.Discriminant); ok && name == loopVar {
		return sw
	}
	return nil
}

// isSwapFunction matches the structural swap shape: exactly three
// parameters, at least one local declaration initialized from an indexed
// member access (the temp capture), and at least two assignments whose
// left-hand side is an indexed member access.
func isSwapFunction(fn *ast.FunctionLiteral) bool {
	if fn == nil || fn.ParameterList == nil || len(fn.ParameterList.List) != 3 || fn.Body == nil {
		return false
	}
	temps, stores := 0, 0
	for _, stmt := range fn.Body.List {
		switch s := stmt.(type) {
		case *ast.VariableStatement:
			temps += indexedCaptures(s.List)
		case *ast.LexicalDeclaration:
			temps += indexedCaptures(s.List)
		case *ast.ExpressionStatement:
			if assign, ok := s.Expression.(*ast.AssignExpression); ok && assign.Operator.String() == "=" {
				if _, indexed := assign.Left.(*ast.BracketExpression); indexed {
					stores++
				}
			}
		}
	}
	return temps >= 1 && stores >= 2
}

func indexedCaptures(list []*ast.Binding) int {
	n := 0
	for _, b := range list {
		if b.Initializer == nil {
			continue
		}
		if _, ok := b.Initializer.(*ast.BracketExpression); ok {
			n++
		}
	}
	return n
}

func intSequence(lit *ast.ArrayLiteral) ([]int, bool) {
	if len(lit.Value) == 0 {
		return nil, false
	}
	seq := make([]int, 0, len(lit.Value))
	for _, v := range lit.Value {
		if v == nil {
			return nil, false
		}
		n, ok := jsparse.IntOf(v)
		if !ok {
			return nil, false
		}
		seq = append(seq, n)
	}
	return seq, true
}
