// Package extractor locates module-registration call sites in a packed
// bundle and slices each one into a standalone module artifact plus a
// call-site replacement. The captured call body is preserved verbatim: the
// artifact embeds the exact byte span of the call, never a re-printed form.
package extractor

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/rewrite"
)

// Artifact is one generated module unit. It is created exactly once per
// matched registration call and never mutated afterward.
type Artifact struct {
	FileName string // sanitized base + fixed extension
	Symbol   string // derived entry-point name
	Module   string // original module path literal, quotes stripped
	Content  string // provenance comment + wrapper function + export binding
}

// Options selects the registration marker and naming scheme.
type Options struct {
	Object       string // callee object identifier, e.g. "System"
	Property     string // callee property identifier, e.g. "register"
	SymbolPrefix string // prefix for derived symbols, e.g. "Register"
	Extension    string // artifact extension without the dot, e.g. "js"

	// Report receives human-readable skip diagnostics. May be nil.
	Report func(format string, args ...interface{})
}

// Result carries the artifacts and call-site replacements of one pass.
type Result struct {
	Artifacts    []Artifact
	Replacements []rewrite.Replacement
	Skipped      int
}

func (o Options) report(format string, args ...interface{}) {
	if o.Report != nil {
		o.Report(format, args...)
	}
}

// Extract walks the snapshot collecting every call whose callee is the
// two-part member access `Object.Property`. Each match is consumed whole:
// either an artifact and its replacement are both emitted, or the call is
// skipped with a diagnostic and the batch continues.
func Extract(snap *jsparse.Snapshot, opts Options) Result {
	w := &walker{snap: snap, opts: opts}
	for _, stmt := range snap.Body() {
		w.statement(stmt)
	}
	return w.result
}

type walker struct {
	snap   *jsparse.Snapshot
	opts   Options
	result Result
}

// consume handles one matched registration call. Matches are never
// partially processed: a call that cannot yield both names yields nothing.
func (w *walker) consume(call *ast.CallExpression) {
	start, end := w.snap.Span(call)

	if len(call.ArgumentList) == 0 {
		w.opts.report("Warning: registration call at offset %d has no arguments, skipping\n", start)
		w.result.Skipped++
		return
	}
	lit, ok := call.ArgumentList[0].(*ast.StringLiteral)
	if !ok {
		w.opts.report("Warning: registration call at offset %d has a non-literal module path, skipping\n", start)
		w.result.Skipped++
		return
	}

	module := lit.Value.String()
	name, ok := deriveFileName(lit.Literal)
	if !ok {
		w.opts.report("Warning: no file name derivable from module path %q, skipping\n", module)
		w.result.Skipped++
		return
	}
	base, ok := sanitizeBase(name)
	if !ok {
		w.opts.report("Warning: module path %q sanitizes to nothing, skipping\n", module)
		w.result.Skipped++
		return
	}
	symbol := symbolName(base, w.opts.SymbolPrefix)

	artifact := Artifact{
		FileName: base + "." + w.opts.Extension,
		Symbol:   symbol,
		Module:   module,
		Content:  artifactContent(module, symbol, w.snap.Text[start:end]),
	}
	w.result.Artifacts = append(w.result.Artifacts, artifact)
	w.result.Replacements = append(w.result.Replacements, rewrite.Replacement{
		Start: start,
		End:   end,
		Text:  symbol + "()",
	})
}

// artifactContent wraps the verbatim call span behind a named entry point.
// The span is embedded untouched so the original body survives byte for
// byte.
func artifactContent(module, symbol, span string) string {
	return fmt.Sprintf("// Module %s\n// Extracted from a packed bundle; the registration body is preserved verbatim.\nfunction %s() {\n    return %s;\n}\n\nmodule.exports.%s = %s;\n",
		module, symbol, span, symbol, symbol)
}

func (w *walker) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		for _, st := range s.List {
			w.statement(st)
		}
	case *ast.ExpressionStatement:
		w.expression(s.Expression)
	case *ast.VariableStatement:
		for _, b := range s.List {
			if b.Initializer != nil {
				w.expression(b.Initializer)
			}
		}
	case *ast.LexicalDeclaration:
		for _, b := range s.List {
			if b.Initializer != nil {
				w.expression(b.Initializer)
			}
		}
	case *ast.FunctionDeclaration:
		if s.Function != nil && s.Function.Body != nil {
			w.statement(s.Function.Body)
		}
	case *ast.IfStatement:
		w.expression(s.Test)
		w.statement(s.Consequent)
		if s.Alternate != nil {
			w.statement(s.Alternate)
		}
	case *ast.ForStatement:
		if s.Test != nil {
			w.expression(s.Test)
		}
		if s.Update != nil {
			w.expression(s.Update)
		}
		w.statement(s.Body)
	case *ast.ForInStatement:
		w.expression(s.Source)
		w.statement(s.Body)
	case *ast.ForOfStatement:
		w.expression(s.Source)
		w.statement(s.Body)
	case *ast.WhileStatement:
		w.expression(s.Test)
		w.statement(s.Body)
	case *ast.DoWhileStatement:
		w.expression(s.Test)
		w.statement(s.Body)
	case *ast.SwitchStatement:
		w.expression(s.Discriminant)
		for _, c := range s.Body {
			for _, st := range c.Consequent {
				w.statement(st)
			}
		}
	case *ast.TryStatement:
		w.statement(s.Body)
		if s.Catch != nil {
			w.statement(s.Catch.Body)
		}
		if s.Finally != nil {
			w.statement(s.Finally)
		}
	case *ast.LabelledStatement:
		w.statement(s.Statement)
	case *ast.ReturnStatement:
		if s.Argument != nil {
			w.expression(s.Argument)
		}
	case *ast.ThrowStatement:
		w.expression(s.Argument)
	}
}

func (w *walker) expression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.CallExpression:
		if obj, prop, ok := jsparse.MemberCallee(e.Callee); ok &&
			obj == w.opts.Object && prop == w.opts.Property {
			// A matched call is consumed whole; its arguments are part of
			// the captured span and are not searched for nested matches.
			w.consume(e)
			return
		}
		w.expression(e.Callee)
		for _, arg := range e.ArgumentList {
			w.expression(arg)
		}
	case *ast.NewExpression:
		w.expression(e.Callee)
		for _, arg := range e.ArgumentList {
			w.expression(arg)
		}
	case *ast.AssignExpression:
		w.expression(e.Left)
		w.expression(e.Right)
	case *ast.BinaryExpression:
		w.expression(e.Left)
		w.expression(e.Right)
	case *ast.UnaryExpression:
		w.expression(e.Operand)
	case *ast.ConditionalExpression:
		w.expression(e.Test)
		w.expression(e.Consequent)
		w.expression(e.Alternate)
	case *ast.SequenceExpression:
		for _, sub := range e.Sequence {
			w.expression(sub)
		}
	case *ast.DotExpression:
		w.expression(e.Left)
	case *ast.BracketExpression:
		w.expression(e.Left)
		w.expression(e.Member)
	case *ast.ArrayLiteral:
		for _, v := range e.Value {
			if v != nil {
				w.expression(v)
			}
		}
	case *ast.ObjectLiteral:
		for _, p := range e.Value {
			if kv, ok := p.(*ast.PropertyKeyed); ok {
				w.expression(kv.Value)
			}
		}
	case *ast.FunctionLiteral:
		if e.Body != nil {
			w.statement(e.Body)
		}
	case *ast.ArrowFunctionLiteral:
		switch body := e.Body.(type) {
		case *ast.BlockStatement:
			w.statement(body)
		case *ast.ExpressionBody:
			w.expression(body.Expression)
		}
	case *ast.TemplateLiteral:
		for _, sub := range e.Expressions {
			w.expression(sub)
		}
	}
}
