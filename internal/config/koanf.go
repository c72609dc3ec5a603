// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order of
// priority. The first file found is used.
var DefaultConfigPaths = []string{
	"tilekiln.yaml",
	"tilekiln.yml",
	"/etc/tilekiln/tilekiln.yaml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "TILEKILN_CONFIG_PATH"

// envPrefix is stripped from environment variable names before they are
// transformed into koanf paths, so TILEKILN_BASE_ZOOM maps to base_zoom.
const envPrefix = "TILEKILN_"

// Load builds a Config from three layered sources, in increasing priority:
//  1. defaultConfig()
//  2. an optional YAML config file
//  3. TILEKILN_-prefixed environment variables
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("tilekiln: loading config defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("tilekiln: loading config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("tilekiln: loading environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("tilekiln: unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("tilekiln: config validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps TILEKILN_-prefixed environment variable names to
// koanf dotted paths, e.g. TILEKILN_BASE_ZOOM -> base_zoom,
// TILEKILN_LOGGING_LEVEL -> logging.level.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	mappings := map[string]string{
		"compact_node_store":  "compact_node_store",
		"init_nodes_millions": "init_nodes_millions",
		"init_ways_millions":  "init_ways_millions",
		"base_zoom":           "base_zoom",
		"start_zoom":          "start_zoom",
		"end_zoom":            "end_zoom",
		"threads":             "threads",
		"index_file_path":     "index_file_path",
		"store_file_path":     "store_file_path",
		"clipping_box":        "clipping_box",
		"logging_level":       "logging.level",
		"logging_format":      "logging.format",
		"logging_caller":      "logging.caller",
		"metrics_enabled":     "metrics.enabled",
		"metrics_addr":        "metrics.addr",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
