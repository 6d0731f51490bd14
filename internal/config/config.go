// Package config handles the global sulu configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/2lenet/sulu/internal/store"
)

// ErrWebspaceNotFound is returned for a webspace missing from a config that
// declares its webspaces.
var ErrWebspaceNotFound = errors.New("webspace not found")

// FallbackLocale is used when neither flags nor config name a locale.
const FallbackLocale = "en"

// Config represents the global sulu configuration.
type Config struct {
	// Database is the path of the SQLite content database.
	Database string `toml:"database"`

	// DefaultWebspace is queried when no --webspace flag is given.
	DefaultWebspace string `toml:"default_webspace"`

	// DefaultLocales apply to webspaces without their own locales.
	DefaultLocales []string `toml:"default_locales"`

	// CacheSize is the number of nodes a session keeps cached.
	CacheSize int `toml:"cache_size"`

	Store     StoreConfig               `toml:"store"`
	Webspaces map[string]WebspaceConfig `toml:"webspaces"`
	UI        UIConfig                  `toml:"ui"`
}

// StoreConfig sets the layout of the node tree.
type StoreConfig struct {
	// Root is the top-level node name ("cms").
	Root string `toml:"root"`
	// Contents is the content root name below each webspace ("contents").
	Contents string `toml:"contents"`
}

// WebspaceConfig holds per-webspace settings.
type WebspaceConfig struct {
	Locales []string `toml:"locales"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`
}

// StoreOptions returns the store options described by the config.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Root:      c.Store.Root,
		Contents:  c.Store.Contents,
		CacheSize: c.CacheSize,
	}
}

// Webspace resolves the webspace to query. An empty key selects the
// default webspace. When the config declares webspaces, the key must be
// one of them.
func (c *Config) Webspace(key string) (string, error) {
	if key == "" {
		key = c.DefaultWebspace
	}
	if key == "" {
		return "", fmt.Errorf("no webspace given and no default_webspace configured")
	}
	if len(c.Webspaces) > 0 {
		if _, ok := c.Webspaces[key]; !ok {
			return "", fmt.Errorf("%w: %s", ErrWebspaceNotFound, key)
		}
	}
	return key, nil
}

// Locales resolves the locales to query for a webspace: explicit locales
// win, then the webspace's locales, then default_locales, then "en".
func (c *Config) Locales(webspace string, explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if ws, ok := c.Webspaces[webspace]; ok && len(ws.Locales) > 0 {
		return slices.Clone(ws.Locales)
	}
	if len(c.DefaultLocales) > 0 {
		return slices.Clone(c.DefaultLocales)
	}
	return []string{FallbackLocale}
}

// DatabasePath returns the configured database path with "~" expanded, or
// content.db next to the default config file.
func (c *Config) DatabasePath() string {
	p := strings.TrimSpace(c.Database)
	if p == "" {
		return filepath.Join(filepath.Dir(DefaultPath()), "content.db")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if config.CacheSize < 0 {
		return nil, fmt.Errorf("cache_size must not be negative in %s", path)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/sulu/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if xdgPath, err := XDGPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "sulu", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/sulu/config.toml).
func XDGPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sulu", "config.toml"), nil
}

const defaultConfig = `# sulu configuration

# SQLite content database (defaults to content.db next to this file)
# database = "~/.local/share/sulu/content.db"

# Webspace and locales used when no flags are given
# default_webspace = "io"
# default_locales = ["en"]

# Nodes kept in each session's cache
# cache_size = 1024

# Node tree layout: /<root>/<webspace>/<contents>
# [store]
# root = "cms"
# contents = "contents"

# Per-webspace locales
# [webspaces.io]
# locales = ["en", "de"]

# Optional UI accent color (ANSI 0-255 or #RRGGBB)
# [ui]
# accent = "39"
`

// CreateDefault creates a commented config file at path unless one exists.
func CreateDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
