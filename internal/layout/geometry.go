package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCanvas is returned when the output canvas has no area.
var ErrInvalidCanvas = errors.New("invalid canvas dimensions")

// Source identifies one of the two input videos by its logical role.
type Source int

const (
	// Primary is the webcam feed.
	Primary Source = iota
	// Secondary is the gameplay feed.
	Secondary
)

func (s Source) String() string {
	if s == Primary {
		return "primary"
	}
	return "secondary"
}

// Other returns the opposite source.
func (s Source) Other() Source {
	if s == Primary {
		return Secondary
	}
	return Primary
}

// Region is a rectangle of the output canvas in pixels.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Geometry is the swap-independent split of a canvas into two regions.
// Regions[0] is the top (vertical) or left (horizontal) region.
type Geometry struct {
	CanvasWidth  int
	CanvasHeight int
	Regions      [2]Region
}

// Placement binds a source to a region together with the size it is rendered at.
// RenderWidth and RenderHeight may exceed the region; the origin stays at the
// region's top-left corner so a zoomed source overflows rather than re-centres.
type Placement struct {
	Source       Source
	Region       Region
	RenderWidth  int
	RenderHeight int
}

// ComputeGeometry splits a canvas of width x height according to cfg.
// It does not look at SwapVideos or the zoom factors.
func ComputeGeometry(cfg Config, width, height int) (Geometry, error) {
	if width <= 0 || height <= 0 {
		return Geometry{}, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}

	g := Geometry{CanvasWidth: width, CanvasHeight: height}
	halfGap := cfg.Gap / 2

	switch cfg.Orientation {
	case Horizontal:
		// Ratios only split the width; both regions keep the full canvas height.
		first := clampExtent(splitExtent(width, cfg.TopRatio) - halfGap)
		second := clampExtent(splitExtent(width, cfg.BottomRatio) - halfGap)
		g.Regions[0] = Region{X: 0, Y: 0, Width: first, Height: height}
		g.Regions[1] = Region{X: clampOrigin(first+cfg.Gap, width), Y: 0, Width: second, Height: height}
	default:
		top := clampExtent(splitExtent(height, cfg.TopRatio) - halfGap)
		bottom := clampExtent(splitExtent(height, cfg.BottomRatio) - halfGap)
		g.Regions[0] = Region{X: 0, Y: 0, Width: width, Height: top}
		g.Regions[1] = Region{X: 0, Y: clampOrigin(top+cfg.Gap, height), Width: width, Height: bottom}
	}
	return g, nil
}

// Place assigns sources to the two regions and applies per-source zoom.
// Without SwapVideos the primary source takes Regions[0].
func (g Geometry) Place(cfg Config) [2]Placement {
	first := Primary
	if cfg.SwapVideos {
		first = Secondary
	}
	var out [2]Placement
	for i, src := range [2]Source{first, first.Other()} {
		region := g.Regions[i]
		zoom := cfg.Zoom(src)
		out[i] = Placement{
			Source:       src,
			Region:       region,
			RenderWidth:  clampExtent(int(math.Round(float64(region.Width) * zoom))),
			RenderHeight: clampExtent(int(math.Round(float64(region.Height) * zoom))),
		}
	}
	return out
}

func splitExtent(total int, ratio float64) int {
	return int(math.Floor(float64(total) * ratio / 100))
}

func clampExtent(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func clampOrigin(v, limit int) int {
	if v > limit-1 {
		return limit - 1
	}
	if v < 0 {
		return 0
	}
	return v
}
