package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0700))
	for _, name := range []string{"a.hcl", "b.yml", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "d.yaml"), nil, 0600))

	files, err := FindFilesByExtensions(dir, ".hcl", ".yml", ".yaml")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	// A direct file path is returned as-is.
	single, err := FindFilesByExtensions(filepath.Join(dir, "c.txt"), ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "c.txt")}, single)

	_, err = FindFilesByExtensions(filepath.Join(dir, "missing"), ".hcl")
	assert.Error(t, err)
}
