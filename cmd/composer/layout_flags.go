package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"split-compositor/internal/layout"
)

type layoutFlags struct {
	file string
	cfg  layout.Config
	// orientation is bound separately because layout.Orientation is not a flag type.
	orientation string
}

func addLayoutFlags(cmd *cobra.Command) *layoutFlags {
	f := &layoutFlags{}
	fs := cmd.Flags()
	fs.StringVar(&f.file, "layout", "", "JSON file with a layout_config object; flags override its fields")
	fs.StringVar(&f.orientation, "orientation", string(layout.Vertical), "vertical or horizontal")
	fs.Float64Var(&f.cfg.TopRatio, "top-ratio", layout.DefaultRatio, "Share of the canvas for the first region (0-100)")
	fs.Float64Var(&f.cfg.BottomRatio, "bottom-ratio", layout.DefaultRatio, "Share of the canvas for the second region (0-100)")
	fs.IntVar(&f.cfg.Gap, "gap", 0, "Pixels between the regions")
	fs.StringVar(&f.cfg.BackgroundColor, "background", layout.DefaultBackgroundColor, "Background colour")
	fs.IntVar(&f.cfg.CornerRadius, "corner-radius", 0, "Corner radius (recorded, not rendered)")
	fs.BoolVar(&f.cfg.SwapVideos, "swap", false, "Put the secondary video in the first region")
	fs.Float64Var(&f.cfg.WebcamZoom, "webcam-zoom", layout.DefaultZoom, "Zoom factor of the primary video")
	fs.Float64Var(&f.cfg.GameplayZoom, "gameplay-zoom", layout.DefaultZoom, "Zoom factor of the secondary video")
	return f
}

// resolve returns the layout config: the --layout file first, then every
// flag the user set explicitly.
func (f *layoutFlags) resolve(cmd *cobra.Command) (layout.Config, error) {
	cfg := layout.Config{}
	if f.file != "" {
		raw, err := os.ReadFile(f.file)
		if err != nil {
			return layout.Config{}, fmt.Errorf("read layout file: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return layout.Config{}, fmt.Errorf("parse layout file %s: %w", f.file, err)
		}
	} else {
		cfg = f.cfg
		cfg.Orientation = layout.Orientation(f.orientation)
	}

	changed := cmd.Flags().Changed
	if changed("orientation") {
		cfg.Orientation = layout.Orientation(f.orientation)
	}
	if changed("top-ratio") {
		cfg.TopRatio = f.cfg.TopRatio
	}
	if changed("bottom-ratio") {
		cfg.BottomRatio = f.cfg.BottomRatio
	}
	if changed("gap") {
		cfg.Gap = f.cfg.Gap
	}
	if changed("background") {
		cfg.BackgroundColor = f.cfg.BackgroundColor
	}
	if changed("corner-radius") {
		cfg.CornerRadius = f.cfg.CornerRadius
	}
	if changed("swap") {
		cfg.SwapVideos = f.cfg.SwapVideos
	}
	if changed("webcam-zoom") {
		cfg.WebcamZoom = f.cfg.WebcamZoom
	}
	if changed("gameplay-zoom") {
		cfg.GameplayZoom = f.cfg.GameplayZoom
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return layout.Config{}, err
	}
	return cfg, nil
}
