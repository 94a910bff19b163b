package constfold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/rewrite"
)

func foldSource(t *testing.T, src string) string {
	t.Helper()
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)
	out, err := rewrite.Apply(src, Fold(snap, nil))
	require.NoError(t, err)
	return out
}

func TestFoldArithmeticComparison(t *testing.T) {
	out := foldSource(t, `if (2 + 2 > 3) { run(); }`)
	assert.Equal(t, `if (true) { run(); }`, out)
}

func TestFoldFalseBranch(t *testing.T) {
	out := foldSource(t, `if (1 > 2) { run(); }`)
	assert.Equal(t, `if (false) { run(); }`, out)
}

func TestUnboundIdentifierCancels(t *testing.T) {
	src := `if (x > 3) { run(); }`
	assert.Equal(t, src, foldSource(t, src))
}

func TestBoundLiteralResolves(t *testing.T) {
	out := foldSource(t, `var limit = 10;
if (limit > 3) { run(); }`)
	assert.Contains(t, out, "if (true)")
}

func TestReboundNameInvalidates(t *testing.T) {
	src := `var limit = 10;
var limit = unknown();
if (limit > 3) { run(); }`
	out := foldSource(t, src)
	assert.Contains(t, out, "if (limit > 3)")
}

func TestNumericResultStrictlyPositiveRule(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"positive number is true", `if (3 - 1) { run(); }`, "if (true)"},
		{"zero is false", `if (5 - 5) { run(); }`, "if (false)"},
		{"negative is false", `if (1 - 4) { run(); }`, "if (false)"},
		{"fraction is true", `if (0.5) { run(); }`, "if (true)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, foldSource(t, tt.src), tt.want)
		})
	}
}

func TestStringResultCancels(t *testing.T) {
	src := `if ("a" + "b") { run(); }`
	assert.Equal(t, src, foldSource(t, src))
}

func TestAlreadyLiteralConditionUntouched(t *testing.T) {
	// Conditions that are already the literal they resolve to, typically
	// left by an earlier folding round, must not be counted again.
	for _, src := range []string{
		`if (true) { run(); }`,
		`if (false) { run(); }`,
	} {
		snap, err := jsparse.Parse(src)
		require.NoError(t, err)
		assert.Empty(t, Fold(snap, nil), src)
	}
}

func TestMathReferenceThroughBinding(t *testing.T) {
	out := foldSource(t, `var a = Math.log;
if (a(100) > a(1)) { run(); }`)
	assert.Contains(t, out, "if (true)")
}

func TestDirectMathCall(t *testing.T) {
	out := foldSource(t, `if (Math.max(1, 5) === 5) { run(); }`)
	assert.Contains(t, out, "if (true)")
}

func TestLogicalOperatorsKeepScriptSemantics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"and picks right", `if (1 && 2) { run(); }`, "if (true)"},
		{"and short-circuits", `if (0 && unknown()) { run(); }`, "if (false)"},
		{"or short-circuits", `if (3 || unknown()) { run(); }`, "if (true)"},
		{"empty string is falsy", `if ("" || 0) { run(); }`, "if (false)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, foldSource(t, tt.src), tt.want)
		})
	}
}

func TestPartiallyResolvedShortCircuitCancels(t *testing.T) {
	// The left side resolves truthy, so && needs the right side too.
	src := `if (1 && unknown()) { run(); }`
	assert.Equal(t, src, foldSource(t, src))
}

func TestNestedFunctionsGetClonedScope(t *testing.T) {
	out := foldSource(t, `var flag = 1;
function inner() {
    var flag = 0;
    if (flag) { a(); }
}
if (flag) { b(); }`)
	assert.Contains(t, out, "if (false) { a(); }")
	assert.Contains(t, out, "if (true) { b(); }")
}

func TestFoldInsideRegistrationFactory(t *testing.T) {
	out := foldSource(t, `System.register("m", function () {
    if (2 > 1) { run(); }
});`)
	assert.Contains(t, out, "if (true)")
}

func TestElseBranchVisited(t *testing.T) {
	out := foldSource(t, `if (x) { a(); } else { if (1 < 2) { b(); } }`)
	assert.Contains(t, out, "if (true) { b(); }")
	assert.Contains(t, out, "if (x)")
}

func TestReportReceivesDiagnostics(t *testing.T) {
	snap, err := jsparse.Parse(`if (1 > 0) { run(); }`)
	require.NoError(t, err)
	var count int
	Fold(snap, func(format string, args ...interface{}) { count++ })
	assert.Equal(t, 1, count)
}
