// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the tile pyramid build configuration
// from defaults, an optional YAML file, and environment variable overrides.
package config

// Config holds every option in the build configuration table.
type Config struct {
	// CompactNodeStore selects the dense-array node store (true) over the
	// hash-map node store (false). Compact mode requires a node ID range
	// known in advance and is substantially smaller for extracts with dense,
	// low-valued node IDs (spec.md §4.2).
	CompactNodeStore bool `koanf:"compact_node_store"`

	// InitNodesMillions and InitWaysMillions size the initial arena
	// reservation for the node and way stores, in millions of entries.
	InitNodesMillions float64 `koanf:"init_nodes_millions" validate:"gt=0"`
	InitWaysMillions  float64 `koanf:"init_ways_millions" validate:"gt=0"`

	// BaseZoom is the zoom level the tile index is built at; StartZoom and
	// EndZoom bound the zoom range emitted during the emit phase.
	BaseZoom  int `koanf:"base_zoom" validate:"gte=0,lte=24"`
	StartZoom int `koanf:"start_zoom" validate:"gte=0,lte=24"`
	EndZoom   int `koanf:"end_zoom" validate:"gte=0,lte=24,gtefield=StartZoom"`

	// Threads bounds the emit-phase worker pool. Zero means
	// runtime.GOMAXPROCS(0).
	Threads int `koanf:"threads" validate:"gte=0"`

	// IndexFilePath, when set, enables the PBF replay log so a later run can
	// rebuild the tile index without re-parsing the source PBF. The DuckDB
	// attribute store is not controlled by this option.
	IndexFilePath string `koanf:"index_file_path"`

	// StoreFilePath selects the file-backed arena mode. Empty means the
	// heap-backed arena is used instead.
	StoreFilePath string `koanf:"store_file_path"`

	// ClippingBox restricts emit to tiles intersecting this bound, given as
	// "minLon,minLat,maxLon,maxLat". Empty means no clipping.
	ClippingBox string `koanf:"clipping_box"`

	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// LoggingConfig mirrors internal/logging.Config, separated so koanf/env
// sources can populate it without importing the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// defaultConfig returns a Config populated with sensible defaults, applied
// before the config file and environment layers.
func defaultConfig() *Config {
	return &Config{
		CompactNodeStore:  false,
		InitNodesMillions: 1.1,
		InitWaysMillions:  0.13,
		BaseZoom:          14,
		StartZoom:         0,
		EndZoom:           14,
		Threads:           0,
		IndexFilePath:     "",
		StoreFilePath:     "",
		ClippingBox:       "",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
	}
}
