// Package config loads the workspace configuration from blogsmith.yaml,
// falling back to the conventional directory layout when no file exists.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the workspace root.
const DefaultFileName = "blogsmith.yaml"

// Config is the workspace layout and processing tuning. Zero thresholds mean
// "use the built-in default" downstream.
type Config struct {
	SiteName string `yaml:"siteName"`

	InputDir    string `yaml:"inputDir"`    // PDFs to discover
	ImagesDir   string `yaml:"imagesDir"`   // featured images, flat
	OutputDir   string `yaml:"outputDir"`   // one HTML file per post
	SiteDir     string `yaml:"siteDir"`     // listing page + blog-data.json
	BackupDir   string `yaml:"backupDir"`   // snapshots
	CatalogPath string `yaml:"catalogPath"` // the catalog JSON document

	// PostURLPrefix is the listing-relative path to OutputDir, used in the
	// listing cards' data-url attributes.
	PostURLPrefix string `yaml:"postUrlPrefix"`

	MaxExcerptLength   int  `yaml:"maxExcerptLength"`
	MinParagraphLength int  `yaml:"minParagraphLength"`
	TagCap             int  `yaml:"tagCap"`
	AutoExcerpts       bool `yaml:"autoExcerpts"`
	UpdateListing      bool `yaml:"updateBlogsPage"`
	DisambiguateSlugs  bool `yaml:"disambiguateSlugs"`
}

// Default returns the conventional workspace layout rooted at dir.
func Default(dir string) Config {
	return Config{
		SiteName:           "Mantooth",
		InputDir:           filepath.Join(dir, "raw-blogs"),
		ImagesDir:          filepath.Join(dir, "site", "images"),
		OutputDir:          filepath.Join(dir, "site", "blogs"),
		SiteDir:            filepath.Join(dir, "site"),
		BackupDir:          filepath.Join(dir, "backups"),
		CatalogPath:        filepath.Join(dir, "data", "catalog.json"),
		PostURLPrefix:      "blogs/",
		MaxExcerptLength:   200,
		MinParagraphLength: 50,
		TagCap:             6,
		AutoExcerpts:       true,
		UpdateListing:      true,
		DisambiguateSlugs:  true,
	}
}

// Load reads blogsmith.yaml from dir when present, then applies BLOGSMITH_*
// environment overrides. A .env file in the working directory is honored
// first.
func Load(dir string) (Config, error) {
	_ = godotenv.Load() // best effort; absence is normal

	cfg := Default(dir)

	f, err := os.Open(filepath.Join(dir, DefaultFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	if err == nil {
		defer f.Close()
		cfg, err = fromReader(f, cfg)
		if err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// fromReader decodes YAML over the given base config, so absent keys keep
// their defaults.
func fromReader(r io.Reader, base Config) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}
	return base, nil
}

func applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set("BLOGSMITH_SITE_NAME", &cfg.SiteName)
	set("BLOGSMITH_INPUT_DIR", &cfg.InputDir)
	set("BLOGSMITH_IMAGES_DIR", &cfg.ImagesDir)
	set("BLOGSMITH_OUTPUT_DIR", &cfg.OutputDir)
	set("BLOGSMITH_SITE_DIR", &cfg.SiteDir)
	set("BLOGSMITH_BACKUP_DIR", &cfg.BackupDir)
	set("BLOGSMITH_CATALOG", &cfg.CatalogPath)

	if v := os.Getenv("BLOGSMITH_MAX_EXCERPT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxExcerptLength = n
		}
	}
}
