package usd

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestWritePackagePrimaryFirstAndStored(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"tex.png":  "png-bytes",
		"a.usdc":   "usd-bytes",
		"notes.md": "n",
	})

	out := filepath.Join(t.TempDir(), "out.usdz")
	require.NoError(t, WritePackage(src, out))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 3)
	assert.Equal(t, "a.usdc", zr.File[0].Name)
	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method, "member %s must be stored", f.Name)
	}
}

func TestWritePackageOrdering(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"z.usda":            "scene",
		"b.usdc":            "scene",
		"textures/wall.jpg": "jpg",
		"axis.txt":          "t",
	})

	out := filepath.Join(t.TempDir(), "out.usdz")
	require.NoError(t, WritePackage(src, out))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	// Primaries sorted, then the rest sorted.
	assert.Equal(t, []string{"b.usdc", "z.usda", "axis.txt", "textures/wall.jpg"}, names)
}

func TestWritePackageNoPrimaryFails(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"tex.png": "png"})

	err := WritePackage(src, filepath.Join(t.TempDir(), "out.usdz"))
	assert.Error(t, err)
}

func TestZipTreeRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"raw/roomplan.zip":       "inner",
		"export/model.usdz":      "model",
		"export/model_arch.usdz": "arch",
	})

	out := filepath.Join(t.TempDir(), "tree.zip")
	require.NoError(t, ZipTree(src, out))

	dest := t.TempDir()
	require.NoError(t, Extract(out, dest))

	for rel, want := range map[string]string{
		"raw/roomplan.zip":       "inner",
		"export/model.usdz":      "model",
		"export/model_arch.usdz": "arch",
	} {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	evil := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(evil)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../outside.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	err = Extract(evil, t.TempDir())
	assert.Error(t, err)
}
