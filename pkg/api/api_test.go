package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaxct/unbundle/internal/config"
)

func TestMain(m *testing.M) {
	config.Testing = true
	os.Exit(m.Run())
}

const sampleBundle = `System.register("chunks:///_virtual/util.js", function (exports) {
    return { execute: function () { exports("x", 1); } };
});
if (2 > 1) { boot(); }`

func TestNewUnpackerDefaults(t *testing.T) {
	up, err := NewUnpacker(Options{Silent: true})
	require.NoError(t, err)
	assert.Equal(t, "System", up.Config.Registration.Object)
	assert.Equal(t, "register", up.Config.Registration.Property)
	assert.True(t, up.Config.Passes.Extract.Enabled)
	assert.True(t, up.Config.Silent)
}

func TestNewUnpackerMissingExplicitConfig(t *testing.T) {
	_, err := NewUnpacker(Options{ConfigPath: "no/such/file.yaml"})
	assert.Error(t, err)
}

func TestUnpackCode(t *testing.T) {
	up, err := NewUnpacker(Options{Silent: true})
	require.NoError(t, err)

	res, err := up.UnpackCode(sampleBundle)
	require.NoError(t, err)

	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "util.js", res.Artifacts[0].FileName)
	assert.Equal(t, "RegisterUtil", res.Artifacts[0].Symbol)
	assert.Equal(t, "bundle_modified.js", res.MainName)
	assert.Contains(t, res.MainContent, "RegisterUtil()")
	assert.Contains(t, res.MainContent, "if (true) { boot(); }")
	assert.Equal(t, 1, res.FoldedConditions)
}

func TestUnpackFileWritesBesideInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bundle.js")
	require.NoError(t, os.WriteFile(input, []byte(sampleBundle), 0644))

	up, err := NewUnpacker(Options{Silent: true})
	require.NoError(t, err)

	res, err := up.UnpackFile(input)
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)

	assert.FileExists(t, filepath.Join(dir, "util.js"))
	assert.FileExists(t, filepath.Join(dir, "bundle_modified.js"))
}

func TestUnpackFileHonorsOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bundle.js")
	require.NoError(t, os.WriteFile(input, []byte(sampleBundle), 0644))

	up, err := NewUnpacker(Options{Silent: true})
	require.NoError(t, err)
	outDir := filepath.Join(dir, "unpacked")
	up.Config.OutputDir = outDir

	_, err = up.UnpackFile(input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "util.js"))
	assert.FileExists(t, filepath.Join(outDir, "bundle_modified.js"))
	assert.NoFileExists(t, filepath.Join(dir, "util.js"))
}

func TestUnpackCodeParseError(t *testing.T) {
	up, err := NewUnpacker(Options{Silent: true})
	require.NoError(t, err)
	_, err = up.UnpackCode("var = ;")
	assert.Error(t, err)
}
