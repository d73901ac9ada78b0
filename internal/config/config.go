// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the per-project configuration from
// .normalize/project.yaml and resolves the per-project data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/normalize/pkg/normerr"
)

const (
	defaultConfigDir  = ".normalize"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"

	// DataDirEnv overrides the per-project data directory: an absolute
	// value is used as-is, a relative one is placed under the platform
	// data home joined with "normalize".
	DataDirEnv = "NORMALIZE_INDEX_DIR"
)

// Config is the .normalize/project.yaml document.
type Config struct {
	Version  string         `yaml:"version"`
	Indexing IndexingConfig `yaml:"indexing"`
	Rules    RulesConfig    `yaml:"rules,omitempty"`
	Grammars GrammarsConfig `yaml:"grammars,omitempty"`
}

// IndexingConfig tunes update_tree behaviour.
type IndexingConfig struct {
	Exclude     []string `yaml:"exclude"`       // glob patterns appended to the defaults
	MaxFileSize int64    `yaml:"max_file_size"` // bytes, 0 = unbounded
}

// RulesConfig locates user rule files and bounds their evaluation.
type RulesConfig struct {
	Paths       []string `yaml:"paths"`        // .dl files or directories
	Packs       []string `yaml:"packs"`        // compiled rule-pack shared libraries
	TupleBudget int      `yaml:"tuple_budget"` // 0 = engine default
}

// GrammarsConfig supplements the grammar search path from project config.
type GrammarsConfig struct {
	SearchPaths []string `yaml:"search_paths"`
}

// Default returns the configuration written by `normalize init`.
func Default() *Config {
	return &Config{Version: configVersion}
}

// Load reads .normalize/project.yaml under root. A missing file returns the
// defaults; a malformed one is a configuration error.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, defaultConfigDir, defaultConfigFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", normerr.ErrConfiguration, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", normerr.ErrConfiguration, path, err)
	}
	if cfg.Version == "" {
		cfg.Version = configVersion
	}
	return &cfg, nil
}

// Save writes the configuration to .normalize/project.yaml under root,
// creating the directory if needed.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, defaultConfigDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %v", normerr.ErrConfiguration, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, defaultConfigFile), data, 0o640)
}

// DataDir resolves the per-project data directory:
//  1. DataDirEnv absolute -> used as-is.
//  2. DataDirEnv relative -> <data-home>/normalize/<relative>.
//  3. unset -> <root>/.normalize.
func DataDir(root string) string {
	if v := os.Getenv(DataDirEnv); v != "" {
		if filepath.IsAbs(v) {
			return filepath.Clean(v)
		}
		return filepath.Join(dataHome(), "normalize", v)
	}
	return filepath.Join(root, defaultConfigDir)
}

// dataHome returns XDG_DATA_HOME or its platform fallback.
func dataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// IndexPath returns the sqlite index location inside the data directory.
func IndexPath(root string) string {
	return filepath.Join(DataDir(root), "index.sqlite")
}
