package layout

import (
	"errors"
	"testing"
)

func verticalConfig() Config {
	return Config{Orientation: Vertical, TopRatio: 50, BottomRatio: 50, Gap: 4}.WithDefaults()
}

func TestComputeGeometry_vertical_even_split(t *testing.T) {
	g, err := ComputeGeometry(verticalConfig(), 1080, 1920)
	if err != nil {
		t.Fatalf("ComputeGeometry: %v", err)
	}
	top, bottom := g.Regions[0], g.Regions[1]
	if top.Height != 958 || bottom.Height != 958 {
		t.Errorf("heights = %d, %d, want 958, 958", top.Height, bottom.Height)
	}
	if top.Width != 1080 || bottom.Width != 1080 {
		t.Errorf("widths = %d, %d, want full canvas width", top.Width, bottom.Width)
	}
	if top.Y != 0 || bottom.Y != 962 {
		t.Errorf("origins y = %d, %d, want 0, 962", top.Y, bottom.Y)
	}
}

func TestComputeGeometry_uneven_ratios(t *testing.T) {
	cfg := Config{Orientation: Vertical, TopRatio: 30, BottomRatio: 70}.WithDefaults()
	g, err := ComputeGeometry(cfg, 1080, 1920)
	if err != nil {
		t.Fatalf("ComputeGeometry: %v", err)
	}
	if g.Regions[0].Height != 576 || g.Regions[1].Height != 1344 {
		t.Errorf("heights = %d, %d, want 576, 1344", g.Regions[0].Height, g.Regions[1].Height)
	}
	if g.Regions[1].Y != 576 {
		t.Errorf("bottom y = %d, want 576", g.Regions[1].Y)
	}
}

func TestComputeGeometry_gap_larger_than_canvas_clamps(t *testing.T) {
	for _, gap := range []int{1921, 4000, 100000} {
		cfg := Config{Orientation: Vertical, TopRatio: 10, BottomRatio: 5, Gap: gap}.WithDefaults()
		g, err := ComputeGeometry(cfg, 1080, 1920)
		if err != nil {
			t.Fatalf("gap %d: %v", gap, err)
		}
		for i, r := range g.Regions {
			if r.Height < 1 || r.Width < 1 {
				t.Errorf("gap %d region %d = %+v, want extents >= 1", gap, i, r)
			}
			if r.Y < 0 || r.Y >= 1920 {
				t.Errorf("gap %d region %d origin y = %d outside canvas", gap, i, r.Y)
			}
		}
	}
}

// Horizontal layouts ignore the ratios for height: both regions span the full
// canvas height while vertical layouts split it. Kept as observed behaviour.
func TestComputeGeometry_horizontal_keeps_full_height(t *testing.T) {
	cfg := Config{Orientation: Horizontal, TopRatio: 30, BottomRatio: 70, Gap: 10}.WithDefaults()
	g, err := ComputeGeometry(cfg, 1920, 1080)
	if err != nil {
		t.Fatalf("ComputeGeometry: %v", err)
	}
	left, right := g.Regions[0], g.Regions[1]
	if left.Height != 1080 || right.Height != 1080 {
		t.Errorf("heights = %d, %d, want full canvas height 1080", left.Height, right.Height)
	}
	if left.Width != 571 || right.Width != 1339 {
		t.Errorf("widths = %d, %d, want 571, 1339", left.Width, right.Width)
	}
	if right.X != 581 {
		t.Errorf("right x = %d, want 581", right.X)
	}
}

func TestComputeGeometry_invalid_canvas(t *testing.T) {
	_, err := ComputeGeometry(verticalConfig(), 0, 1920)
	if !errors.Is(err, ErrInvalidCanvas) {
		t.Errorf("expected ErrInvalidCanvas, got %v", err)
	}
}

func TestComputeGeometry_ignores_swap(t *testing.T) {
	cfg := verticalConfig()
	swapped := cfg
	swapped.SwapVideos = true

	a, _ := ComputeGeometry(cfg, 1080, 1920)
	b, _ := ComputeGeometry(swapped, 1080, 1920)
	if a != b {
		t.Errorf("geometry changed with swap: %+v vs %+v", a, b)
	}
}

func TestPlace_swap_reverses_assignment(t *testing.T) {
	cfg := verticalConfig()
	g, _ := ComputeGeometry(cfg, 1080, 1920)

	p := g.Place(cfg)
	if p[0].Source != Primary || p[1].Source != Secondary {
		t.Errorf("unswapped sources = %v, %v", p[0].Source, p[1].Source)
	}

	cfg.SwapVideos = true
	s := g.Place(cfg)
	if s[0].Source != Secondary || s[1].Source != Primary {
		t.Errorf("swapped sources = %v, %v", s[0].Source, s[1].Source)
	}
	if s[0].Region != p[0].Region || s[1].Region != p[1].Region {
		t.Error("swap should not move regions")
	}
}

func TestPlace_zoom_overflows_from_region_origin(t *testing.T) {
	cfg := verticalConfig()
	cfg.WebcamZoom = 2.0
	g, _ := ComputeGeometry(cfg, 1080, 1920)

	p := g.Place(cfg)
	webcam := p[0]
	if webcam.RenderWidth != 2*webcam.Region.Width || webcam.RenderHeight != 2*webcam.Region.Height {
		t.Errorf("render = %dx%d, want exactly 2x %dx%d",
			webcam.RenderWidth, webcam.RenderHeight, webcam.Region.Width, webcam.Region.Height)
	}
	if webcam.Region.X != 0 || webcam.Region.Y != 0 {
		t.Errorf("zoomed origin moved to %d,%d", webcam.Region.X, webcam.Region.Y)
	}
	gameplay := p[1]
	if gameplay.RenderWidth != gameplay.Region.Width || gameplay.RenderHeight != gameplay.Region.Height {
		t.Error("gameplay zoom 1.0 should render at region size")
	}
}

func TestPlace_zoom_follows_source_when_swapped(t *testing.T) {
	cfg := verticalConfig()
	cfg.GameplayZoom = 1.5
	cfg.SwapVideos = true
	g, _ := ComputeGeometry(cfg, 1080, 1920)

	p := g.Place(cfg)
	if p[0].Source != Secondary {
		t.Fatalf("first region source = %v, want secondary", p[0].Source)
	}
	if p[0].RenderWidth != 1620 || p[0].RenderHeight != 1437 {
		t.Errorf("gameplay render = %dx%d, want 1620x1437", p[0].RenderWidth, p[0].RenderHeight)
	}
}
