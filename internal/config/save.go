package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/2lenet/sulu/internal/atomicfile"
)

type persistedConfig struct {
	Database        *string                   `toml:"database,omitempty"`
	DefaultWebspace *string                   `toml:"default_webspace,omitempty"`
	DefaultLocales  []string                  `toml:"default_locales,omitempty"`
	CacheSize       int                       `toml:"cache_size,omitempty"`
	Store           *persistedStore           `toml:"store,omitempty"`
	Webspaces       map[string]WebspaceConfig `toml:"webspaces,omitempty"`
	UI              *UIConfig                 `toml:"ui,omitempty"`
}

type persistedStore struct {
	Root     *string `toml:"root,omitempty"`
	Contents *string `toml:"contents,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the config to a specific path atomically. Empty settings
// are left out.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		Database:        nonEmptyPtr(cfg.Database),
		DefaultWebspace: nonEmptyPtr(cfg.DefaultWebspace),
		DefaultLocales:  cfg.DefaultLocales,
		CacheSize:       cfg.CacheSize,
	}
	if len(cfg.Webspaces) > 0 {
		out.Webspaces = cfg.Webspaces
	}

	root := nonEmptyPtr(cfg.Store.Root)
	contents := nonEmptyPtr(cfg.Store.Contents)
	if root != nil || contents != nil {
		out.Store = &persistedStore{Root: root, Contents: contents}
	}
	if accent := strings.TrimSpace(cfg.UI.Accent); accent != "" {
		out.UI = &UIConfig{Accent: accent}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
