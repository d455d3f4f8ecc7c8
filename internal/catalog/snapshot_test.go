package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAndRestore(t *testing.T) {
	root := t.TempDir()
	catalogPath := filepath.Join(root, "data", "catalog.json")
	outputDir := filepath.Join(root, "site", "blogs")
	backupDir := filepath.Join(root, "backups")

	c, err := Load(catalogPath, true)
	require.NoError(t, err)
	_, _, err = c.UpsertBySource(derivedEntry("tacos-blog", "Tacos", "tacos.pdf"))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "tacos-blog.html"), []byte("<html>tacos</html>"), 0o644))

	info, err := Snapshot(backupDir, catalogPath, outputDir)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.FileExists(t, filepath.Join(info.Dir, "catalog.json"))
	assert.FileExists(t, filepath.Join(info.Dir, "tacos-blog.html"))

	// Wipe everything, then restore.
	require.NoError(t, c.Clear())
	require.NoError(t, os.Remove(filepath.Join(outputDir, "tacos-blog.html")))

	require.NoError(t, Restore(backupDir, info.ID, catalogPath, outputDir))

	restored, err := Load(catalogPath, true)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())
	assert.FileExists(t, filepath.Join(outputDir, "tacos-blog.html"))
}

func TestListSnapshots(t *testing.T) {
	root := t.TempDir()
	catalogPath := filepath.Join(root, "catalog.json")
	outputDir := filepath.Join(root, "blogs")
	backupDir := filepath.Join(root, "backups")

	got, err := ListSnapshots(backupDir)
	require.NoError(t, err)
	assert.Empty(t, got)

	first, err := Snapshot(backupDir, catalogPath, outputDir)
	require.NoError(t, err)
	second, err := Snapshot(backupDir, catalogPath, outputDir)
	require.NoError(t, err)

	// A stray non-ULID directory must be ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(backupDir, "not-a-snapshot"), 0o755))

	got, err = ListSnapshots(backupDir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Same-millisecond ULIDs have no defined order, so compare as a set.
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{got[0].ID, got[1].ID})
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	root := t.TempDir()
	err := Restore(filepath.Join(root, "backups"), "01J0000000000000000000000", filepath.Join(root, "catalog.json"), root)
	assert.Error(t, err)
}
