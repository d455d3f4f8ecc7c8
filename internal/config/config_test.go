package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default("/work")

	assert.Equal(t, "Mantooth", cfg.SiteName)
	assert.Equal(t, filepath.Join("/work", "raw-blogs"), cfg.InputDir)
	assert.Equal(t, filepath.Join("/work", "site", "blogs"), cfg.OutputDir)
	assert.Equal(t, filepath.Join("/work", "data", "catalog.json"), cfg.CatalogPath)
	assert.Equal(t, "blogs/", cfg.PostURLPrefix)
	assert.Equal(t, 200, cfg.MaxExcerptLength)
	assert.Equal(t, 50, cfg.MinParagraphLength)
	assert.True(t, cfg.AutoExcerpts)
	assert.True(t, cfg.UpdateListing)
	assert.True(t, cfg.DisambiguateSlugs)
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(dir), cfg)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `siteName: Elsewhere
inputDir: drafts
maxExcerptLength: 120
updateBlogsPage: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", cfg.SiteName)
	assert.Equal(t, "drafts", cfg.InputDir)
	assert.Equal(t, 120, cfg.MaxExcerptLength)
	assert.False(t, cfg.UpdateListing)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, filepath.Join(dir, "site", "blogs"), cfg.OutputDir)
	assert.True(t, cfg.AutoExcerpts)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("siteName: [unclosed"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BLOGSMITH_SITE_NAME", "EnvSite")
	t.Setenv("BLOGSMITH_CATALOG", "/elsewhere/catalog.json")
	t.Setenv("BLOGSMITH_MAX_EXCERPT", "90")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "EnvSite", cfg.SiteName)
	assert.Equal(t, "/elsewhere/catalog.json", cfg.CatalogPath)
	assert.Equal(t, 90, cfg.MaxExcerptLength)
}

func TestEnvOverrideIgnoresBadNumber(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BLOGSMITH_MAX_EXCERPT", "not-a-number")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.MaxExcerptLength)
}
