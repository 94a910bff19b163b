package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/rewrite"
)

func defaultOptions() Options {
	return Options{
		Object:       "System",
		Property:     "register",
		SymbolPrefix: "Register",
		Extension:    "js",
	}
}

func TestExtractSingleRegistration(t *testing.T) {
	src := `System.register("chunks:///_virtual/util.js", function (exports) {
    return { execute: function () { exports("x", 1); } };
});`
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)

	res := Extract(snap, defaultOptions())
	require.Len(t, res.Artifacts, 1)
	require.Len(t, res.Replacements, 1)
	assert.Zero(t, res.Skipped)

	a := res.Artifacts[0]
	assert.Equal(t, "util.js", a.FileName)
	assert.Equal(t, "RegisterUtil", a.Symbol)
	assert.Equal(t, "chunks:///_virtual/util.js", a.Module)

	// The registration body survives byte for byte inside the wrapper.
	start, end := res.Replacements[0].Start, res.Replacements[0].End
	assert.Contains(t, a.Content, src[start:end])
	assert.Contains(t, a.Content, "function RegisterUtil() {")
	assert.Contains(t, a.Content, "module.exports.RegisterUtil = RegisterUtil;")
	assert.Equal(t, "RegisterUtil()", res.Replacements[0].Text)
}

func TestExtractPreservesDiscoveryOrder(t *testing.T) {
	src := `System.register("chunks:///_virtual/b.js", function () {});
System.register("chunks:///_virtual/a.js", function () {});
System.register("chunks:///_virtual/c.js", function () {});`
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)

	res := Extract(snap, defaultOptions())
	require.Len(t, res.Artifacts, 3)
	assert.Equal(t, "b.js", res.Artifacts[0].FileName)
	assert.Equal(t, "a.js", res.Artifacts[1].FileName)
	assert.Equal(t, "c.js", res.Artifacts[2].FileName)
}

func TestExtractSkipsWithoutHalting(t *testing.T) {
	src := `System.register(moduleName, function () {});
System.register("chunks:///_virtual/good.js", function () {});
System.register();`
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)

	var diags []string
	opts := defaultOptions()
	opts.Report = func(format string, args ...interface{}) {
		diags = append(diags, format)
	}

	res := Extract(snap, opts)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "good.js", res.Artifacts[0].FileName)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, diags, 2)
}

func TestExtractFindsNestedCalls(t *testing.T) {
	src := `(function () {
    if (loaded) {
        System.register("chunks:///_virtual/inner.js", function () {});
    }
})();`
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)

	res := Extract(snap, defaultOptions())
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "inner.js", res.Artifacts[0].FileName)
}

func TestExtractIgnoresOtherCallees(t *testing.T) {
	src := `System.import("x");
define("y", function () {});
register("z");`
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)

	res := Extract(snap, defaultOptions())
	assert.Empty(t, res.Artifacts)
	assert.Empty(t, res.Replacements)
	assert.Zero(t, res.Skipped)
}

func TestExtractReplacementRoundTrip(t *testing.T) {
	src := `before();
System.register("chunks:///_virtual/mod.js", function (exports) { exports("v", 1); });
after();`
	snap, err := jsparse.Parse(src)
	require.NoError(t, err)

	res := Extract(snap, defaultOptions())
	require.Len(t, res.Replacements, 1)

	out, err := rewrite.Apply(src, res.Replacements)
	require.NoError(t, err)
	assert.Contains(t, out, "RegisterMod()")
	assert.NotContains(t, out, "System.register")
	assert.True(t, strings.HasPrefix(out, "before();"))
	assert.True(t, strings.HasSuffix(out, "after();"))
}
