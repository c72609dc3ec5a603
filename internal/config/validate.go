// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct-tag constraints via go-playground/validator and a
// handful of cross-field and domain rules that validator tags cannot express
// (clipping box syntax, metrics address host:port syntax).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("struct validation: %w", err)
	}

	if cfg.ClippingBox != "" {
		if _, err := parseClippingBox(cfg.ClippingBox); err != nil {
			return fmt.Errorf("clipping_box: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr: %w", err)
		}
	}

	return nil
}

// Bound is a geographic bounding box in WGS84 longitude/latitude degrees.
type Bound struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// parseClippingBox parses the "minLon,minLat,maxLon,maxLat" clipping_box
// option.
func parseClippingBox(s string) (Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bound{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bound{}, fmt.Errorf("value %q is not a float: %w", p, err)
		}
		vals[i] = v
	}
	b := Bound{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return Bound{}, fmt.Errorf("min must be less than max in both dimensions, got %+v", b)
	}
	return b, nil
}

// ClippingBound returns the parsed clipping bound, or ok=false if none was
// configured.
func (c *Config) ClippingBound() (bound Bound, ok bool, err error) {
	if c.ClippingBox == "" {
		return Bound{}, false, nil
	}
	b, err := parseClippingBox(c.ClippingBox)
	if err != nil {
		return Bound{}, false, err
	}
	return b, true, nil
}
