// Package scope tracks statically known identifier bindings during one
// analysis traversal. A Scope is deliberately flat: redeclaration simply
// overwrites the previous binding, and recursive descent into nested
// function bodies works on an independent copy.
package scope

// Kind discriminates the closed set of binding variants the analysis
// passes track.
type Kind int

const (
	// KindLiteral binds an identifier to a statically known literal value.
	KindLiteral Kind = iota
	// KindMathRef binds an identifier to a math-namespace function or
	// constant, recorded by its symbolic "namespace.name" form.
	KindMathRef
	// KindArray binds an identifier to a modeled integer sequence whose
	// mutations are replayed at analysis time.
	KindArray
	// KindSwapFunc marks an identifier as a recognized two-element swap
	// function.
	KindSwapFunc
)

// ValueKind discriminates literal value variants.
type ValueKind int

const (
	Number ValueKind = iota
	Bool
	String
)

// Value is a statically known literal value produced by binding collection
// or constant evaluation.
type Value struct {
	Kind ValueKind
	Num  float64
	Flag bool
	Str  string
}

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{Kind: Number, Num: n} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: Bool, Flag: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: String, Str: s} }

// Truthy reports the value's script-language truthiness. This is the
// truthiness used while evaluating logical operators; the interpretation of
// a pass's final numeric result is the caller's concern.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Bool:
		return v.Flag
	case Number:
		return v.Num != 0
	case String:
		return v.Str != ""
	}
	return false
}

// Binding associates an identifier with one of the tracked variants. Only
// the field selected by Kind is meaningful.
type Binding struct {
	Kind   Kind
	Const  Value  // KindLiteral
	MathFn string // KindMathRef
	Array  []int  // KindArray
}

// Scope maps identifier names to bindings. One flat scope per pass.
type Scope map[string]Binding

// New returns an empty scope.
func New() Scope { return make(Scope) }

// Clone returns an independent copy for recursive descent. Modeled array
// sequences are copied as well so mutations in a nested body never leak
// into the enclosing traversal.
func (s Scope) Clone() Scope {
	out := make(Scope, len(s))
	for name, b := range s {
		if b.Kind == KindArray {
			b.Array = append([]int(nil), b.Array...)
		}
		out[name] = b
	}
	return out
}
