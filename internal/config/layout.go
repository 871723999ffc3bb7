package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"parking-grid/internal/logging"
	"parking-grid/internal/parking"
)

// Layout returns the lot layout: the YAML file named by LAYOUT_FILE, or the
// default layout resized to LOT_WIDTH x LOT_HEIGHT.
func (c *Config) Layout(ctx context.Context) (parking.Layout, error) {
	if c.LayoutFile != "" {
		return LoadLayout(ctx, c.LayoutFile)
	}

	layout := parking.DefaultLayout()
	layout.Width = c.LotWidth
	layout.Height = c.LotHeight
	if err := layout.Validate(); err != nil {
		return parking.Layout{}, err
	}
	warnIgnored(ctx, layout)
	return layout, nil
}

// LoadLayout reads a lot layout from a YAML file such as:
//
//	width: 12
//	height: 8
//	entrance: {x: 0, y: 0}
//	obstacles:
//	  - {x: 2, y: 2}
//	paths:
//	  - {x: 1, y: 0}
func LoadLayout(ctx context.Context, path string) (parking.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parking.Layout{}, fmt.Errorf("failed to read layout file: %w", err)
	}
	return ParseLayout(ctx, data)
}

func ParseLayout(ctx context.Context, data []byte) (parking.Layout, error) {
	var layout parking.Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return parking.Layout{}, fmt.Errorf("failed to parse layout YAML: %w", err)
	}

	if err := layout.Validate(); err != nil {
		return parking.Layout{}, err
	}

	warnIgnored(ctx, layout)
	return layout, nil
}

func warnIgnored(ctx context.Context, layout parking.Layout) {
	for _, c := range layout.Ignored() {
		logging.ForSpot(ctx, c.X, c.Y).WarnContext(ctx, "layout entry ignored",
			"width", layout.Width,
			"height", layout.Height,
		)
	}
}
