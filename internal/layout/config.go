package layout

import (
	"errors"
	"fmt"
	"strings"
)

// Orientation is the axis the two regions are stacked along.
type Orientation string

const (
	// Vertical stacks regions top to bottom; ratios split the canvas height.
	Vertical Orientation = "vertical"
	// Horizontal places regions side by side; ratios split the canvas width.
	Horizontal Orientation = "horizontal"
)

// Default values applied by Config.WithDefaults.
const (
	DefaultRatio           = 50.0
	DefaultBackgroundColor = "black"
	DefaultZoom            = 1.0
)

// ErrInvalidConfig is returned by Config.Validate for values no layout can be computed from.
var ErrInvalidConfig = errors.New("invalid layout config")

// Config describes the desired appearance of the composite.
// It matches the layout_config object of a composition job payload.
type Config struct {
	Orientation     Orientation `json:"orientation"`
	TopRatio        float64     `json:"top_ratio"`
	BottomRatio     float64     `json:"bottom_ratio"`
	Gap             int         `json:"gap"`
	BackgroundColor string      `json:"background_color"`
	CornerRadius    int         `json:"corner_radius"`
	SwapVideos      bool        `json:"swap_videos"`
	WebcamZoom      float64     `json:"webcam_zoom"`
	GameplayZoom    float64     `json:"gameplay_zoom"`
}

// WithDefaults returns a copy of c with unset fields filled in.
// Both ratios being zero is treated as unset and becomes an even split.
func (c Config) WithDefaults() Config {
	if c.Orientation == "" {
		c.Orientation = Vertical
	}
	c.Orientation = Orientation(strings.ToLower(string(c.Orientation)))
	if c.TopRatio == 0 && c.BottomRatio == 0 {
		c.TopRatio = DefaultRatio
		c.BottomRatio = DefaultRatio
	}
	if strings.TrimSpace(c.BackgroundColor) == "" {
		c.BackgroundColor = DefaultBackgroundColor
	}
	if c.WebcamZoom == 0 {
		c.WebcamZoom = DefaultZoom
	}
	if c.GameplayZoom == 0 {
		c.GameplayZoom = DefaultZoom
	}
	return c
}

// Validate reports the first field that cannot produce a layout.
func (c Config) Validate() error {
	switch c.Orientation {
	case Vertical, Horizontal:
	default:
		return fmt.Errorf("%w: unknown orientation %q", ErrInvalidConfig, c.Orientation)
	}
	if c.TopRatio < 0 || c.TopRatio > 100 {
		return fmt.Errorf("%w: top_ratio %.2f outside 0-100", ErrInvalidConfig, c.TopRatio)
	}
	if c.BottomRatio < 0 || c.BottomRatio > 100 {
		return fmt.Errorf("%w: bottom_ratio %.2f outside 0-100", ErrInvalidConfig, c.BottomRatio)
	}
	if c.Gap < 0 {
		return fmt.Errorf("%w: negative gap %d", ErrInvalidConfig, c.Gap)
	}
	if c.CornerRadius < 0 {
		return fmt.Errorf("%w: negative corner_radius %d", ErrInvalidConfig, c.CornerRadius)
	}
	if c.WebcamZoom <= 0 {
		return fmt.Errorf("%w: webcam_zoom must be positive", ErrInvalidConfig)
	}
	if c.GameplayZoom <= 0 {
		return fmt.Errorf("%w: gameplay_zoom must be positive", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.BackgroundColor, ":;,[]'") {
		return fmt.Errorf("%w: background_color %q", ErrInvalidConfig, c.BackgroundColor)
	}
	return nil
}

// Zoom returns the zoom factor configured for the given source.
func (c Config) Zoom(src Source) float64 {
	if src == Primary {
		return c.WebcamZoom
	}
	return c.GameplayZoom
}
