package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Load("")
	assert.Equal(t, Default(), p)
	assert.True(t, p.ShowDone)
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "perch")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs.toml"),
		[]byte("show_done = false\nlast_filter = \"  groceries \"\n"), 0o644))

	p := Load("")
	assert.False(t, p.ShowDone)
	assert.Equal(t, "groceries", p.LastFilter)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("last_filter = \"x\"\n"), 0o644))

	p := Load(path)
	assert.True(t, p.ShowDone)
	assert.Equal(t, "x", p.LastFilter)
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml {{{\n"), 0o644))

	assert.Equal(t, Default(), Load(path))
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	want := Prefs{ShowDone: false, LastFilter: "work"}
	require.NoError(t, Save(path, want))
	assert.Equal(t, want, Load(path))
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	_, err := expandPath("   ")
	assert.Error(t, err)
}
