// Package jsparse wraps the external JavaScript parser behind the narrow
// contract the analysis passes rely on: typed AST nodes carrying byte-offset
// spans, valid against exactly one immutable source snapshot.
package jsparse

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// Packed bundles frequently carry script-level `return` statements the
// grammar rejects. When a direct parse fails, the source is retried inside a
// synthetic function body and every span is corrected by the prefix length.
const (
	scriptWrapPrefix = "function __unbundle__() {\n"
	scriptWrapSuffix = "\n}"
)

// Snapshot pairs one immutable source text with the AST parsed from it.
// Spans handed out by a Snapshot are meaningless against any other text;
// after a rewrite the caller must parse again and work from the fresh
// Snapshot.
type Snapshot struct {
	Text    string
	Program *ast.Program
	shift   int // span correction when the wrapped fallback parse was used
}

// Parse parses source text into a Snapshot. On a direct parse failure it
// retries once with the source wrapped in a function body; if that fails
// too, the original positioned error is returned.
func Parse(text string) (*Snapshot, error) {
	prog, err := parser.ParseFile(nil, "input.js", text, 0)
	if err == nil {
		return &Snapshot{Text: text, Program: prog}, nil
	}

	wrapped := scriptWrapPrefix + text + scriptWrapSuffix
	if prog, retryErr := parser.ParseFile(nil, "input.js", wrapped, 0); retryErr == nil {
		return &Snapshot{Text: text, Program: prog, shift: len(scriptWrapPrefix)}, nil
	}
	return nil, fmt.Errorf("parse error: %w", err)
}

// Body returns the top-level statement list, unwrapping the synthetic
// function introduced by the fallback parse.
func (s *Snapshot) Body() []ast.Statement {
	if s.shift == 0 {
		return s.Program.Body
	}
	if len(s.Program.Body) == 1 {
		if fd, ok := s.Program.Body[0].(*ast.FunctionDeclaration); ok &&
			fd.Function != nil && fd.Function.Body != nil {
			return fd.Function.Body.List
		}
	}
	return s.Program.Body
}

// Span returns the 0-based [start, end) byte span of n within Text. The
// upstream parser leaves the keyword index of if statements unset, so
// their start offset is recovered from the test expression instead of
// Idx0; a span that could not be recovered has a negative start.
func (s *Snapshot) Span(n ast.Node) (int, int) {
	if ifs, ok := n.(*ast.IfStatement); ok {
		return s.ifSpan(ifs)
	}
	return int(n.Idx0()) - 1 - s.shift, int(n.Idx1()) - 1 - s.shift
}

// ifSpan scans backwards from the test expression over the opening
// parenthesis and whitespace to the `if` keyword.
func (s *Snapshot) ifSpan(ifs *ast.IfStatement) (int, int) {
	end := int(ifs.Idx1()) - 1 - s.shift
	if ifs.Test == nil {
		return -1, end
	}
	i := int(ifs.Test.Idx0()) - 1 - s.shift
	if i < 0 || i > len(s.Text) {
		return -1, end
	}
	for i > 0 {
		c := s.Text[i-1]
		if c != '(' && c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			break
		}
		i--
	}
	if i >= 2 && s.Text[i-2:i] == "if" {
		return i - 2, end
	}
	return -1, end
}

// Slice returns the verbatim source text of n and whether the node's
// span falls inside the snapshot. Callers that reproduce source bytes
// must not treat a false result as empty text.
func (s *Snapshot) Slice(n ast.Node) (string, bool) {
	start, end := s.Span(n)
	if start < 0 || end > len(s.Text) || start > end {
		return "", false
	}
	return s.Text[start:end], true
}

// IdentifierName unwraps a plain identifier expression.
func IdentifierName(e ast.Expression) (string, bool) {
	if id, ok := e.(*ast.Identifier); ok {
		return id.Name.String(), true
	}
	return "", false
}

// BindingIdent returns the declared name of a binding when its target is a
// plain identifier (destructuring patterns are not modeled).
func BindingIdent(b *ast.Binding) (string, bool) {
	if b == nil {
		return "", false
	}
	if id, ok := b.Target.(*ast.Identifier); ok {
		return id.Name.String(), true
	}
	return "", false
}

// NumberOf evaluates a numeric literal, including a unary +/- prefix.
func NumberOf(e ast.Expression) (float64, bool) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		switch v := n.Value.(type) {
		case int64:
			return float64(v), true
		case float64:
			return v, true
		}
	case *ast.UnaryExpression:
		v, ok := NumberOf(n.Operand)
		if !ok {
			return 0, false
		}
		switch n.Operator.String() {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	}
	return 0, false
}

// IntOf evaluates an integral numeric literal.
func IntOf(e ast.Expression) (int, bool) {
	v, ok := NumberOf(e)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// LoopVariable returns the iteration variable name of a for-in/for-of
// target, covering declaration and bare-identifier forms.
func LoopVariable(into ast.ForInto) (string, bool) {
	switch t := into.(type) {
	case *ast.ForIntoVar:
		return BindingIdent(t.Binding)
	case *ast.ForDeclaration:
		if id, ok := t.Target.(*ast.Identifier); ok {
			return id.Name.String(), true
		}
	case *ast.ForIntoExpression:
		return IdentifierName(t.Expression)
	}
	return "", false
}

// MemberCallee matches a two-part member-access callee `object.property`
// with both sides plain identifiers.
func MemberCallee(e ast.Expression) (object, property string, ok bool) {
	dot, isDot := e.(*ast.DotExpression)
	if !isDot {
		return "", "", false
	}
	obj, isIdent := dot.Left.(*ast.Identifier)
	if !isIdent {
		return "", "", false
	}
	return obj.Name.String(), dot.Identifier.Name.String(), true
}
