package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadQueryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "fondos para pymes en Chile\n\n# comentario\n  becas de postgrado  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	queries, err := readQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fondos para pymes en Chile", "becas de postgrado"}, queries)
}

func TestReadQueryFile_Missing(t *testing.T) {
	_, err := readQueryFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestReadQueryFile_OnlyComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("# a\n# b\n"), 0o644))

	queries, err := readQueryFile(path)
	require.NoError(t, err)
	assert.Empty(t, queries)
}
