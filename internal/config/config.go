// Package config loads the optional dvdchapters configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the chapter display settings.
type Config struct {
	// NameTemplate renders chapter names; it must contain exactly one
	// integer verb for the running chapter number.
	NameTemplate string `yaml:"name_template"`
	// Language is the ChapterLanguage value (ISO 639-2).
	Language string `yaml:"language"`
	// LanguageIETF is the ChapLanguageIETF value (BCP 47).
	LanguageIETF string `yaml:"language_ietf"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		NameTemplate: "Chapter %02d",
		Language:     "und",
		LanguageIETF: "und",
	}
}

// Load reads configuration with priority: explicit path > standard
// locations > defaults. A missing file is not an error unless the path
// was explicit.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FindConfigFile()
	}
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches the standard locations. Returns empty string
// if none exists (non-fatal).
func FindConfigFile() string {
	locations := []string{
		"./dvdchapters.yaml",
		"./dvdchapters.yml",
		filepath.Join(os.Getenv("HOME"), ".dvdchapters", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".dvdchapters", "config.yml"),
		"/etc/dvdchapters/config.yaml",
	}
	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks that the loaded settings can actually render a
// chapter display entry.
func (c *Config) Validate() error {
	if c.NameTemplate == "" {
		return fmt.Errorf("name_template must not be empty")
	}
	if rendered := fmt.Sprintf(c.NameTemplate, 1); strings.Contains(rendered, "%!") {
		return fmt.Errorf("name_template %q must contain exactly one integer verb", c.NameTemplate)
	}
	if c.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	if c.LanguageIETF == "" {
		return fmt.Errorf("language_ietf must not be empty")
	}
	return nil
}
