package usd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFileNamedNested(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "export", "models")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(deep, "roomplan_parametric.usdz"), []byte("zip"), 0o644))

	path, err := FindFileNamed(root, "roomplan_parametric.usdz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(deep, "roomplan_parametric.usdz"), path)
}

func TestFindFileNamedMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.usdz"), []byte("zip"), 0o644))

	_, err := FindFileNamed(root, "roomplan_parametric.usdz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
}

func TestFindFileNamedExactNameOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "roomplan_parametric.usdz.bak"), []byte("x"), 0o644))

	_, err := FindFileNamed(root, "roomplan_parametric.usdz")
	assert.True(t, errors.Is(err, ErrModelNotFound))
}
