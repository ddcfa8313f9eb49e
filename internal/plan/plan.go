package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"split-compositor/internal/layout"
	"split-compositor/internal/media/probe"
)

// ErrInvalidPlan marks geometry or timing the transcoder must not be invoked with.
var ErrInvalidPlan = errors.New("invalid composition plan")

// Encoding holds the output encoder settings.
type Encoding struct {
	VideoCodec   string
	Preset       string
	CRF          int
	PixelFormat  string
	FrameRate    int
	AudioCodec   string
	AudioBitrate string
	Container    string
	ContentType  string
}

// DefaultEncoding is an H.264/AAC MP4 tuned for upload-sized renders.
func DefaultEncoding() Encoding {
	return Encoding{
		VideoCodec:   "libx264",
		Preset:       "veryfast",
		CRF:          23,
		PixelFormat:  "yuv420p",
		FrameRate:    30,
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		Container:    "mp4",
		ContentType:  "video/mp4",
	}
}

// Plan is the fully resolved instruction set for one composite render.
type Plan struct {
	OutputWidth           int
	OutputHeight          int
	OutputDurationSeconds float64
	// Placements is indexed by region: [0] top/left, [1] bottom/right.
	Placements [2]layout.Placement
	// AudioSource is the only source whose audio track is kept.
	AudioSource layout.Source
	// Inputs holds local paths indexed by layout.Source.
	Inputs          [2]string
	SourceDurations [2]float64
	BackgroundColor string
	CornerRadius    int
	FilterGraph     string
	Encoding        Encoding
}

// Degenerate reports whether the plan has no known output duration.
func (p Plan) Degenerate() bool {
	return p.OutputDurationSeconds <= 0
}

// AudioSourceIndex returns the ffmpeg input index carrying the kept audio.
func (p Plan) AudioSourceIndex() int {
	return int(p.AudioSource)
}

// Build turns computed geometry and probed sources into a Plan.
// Zero durations still produce a plan; only impossible geometry is rejected.
func Build(geom layout.Geometry, primary, secondary probe.Media, cfg layout.Config, enc Encoding) (Plan, error) {
	if geom.CanvasWidth <= 0 || geom.CanvasHeight <= 0 {
		return Plan{}, fmt.Errorf("%w: canvas %dx%d", ErrInvalidPlan, geom.CanvasWidth, geom.CanvasHeight)
	}
	if strings.TrimSpace(primary.Path) == "" || strings.TrimSpace(secondary.Path) == "" {
		return Plan{}, fmt.Errorf("%w: missing input path", ErrInvalidPlan)
	}

	placements := geom.Place(cfg)
	for i, pl := range placements {
		if pl.Region.Width < 1 || pl.Region.Height < 1 || pl.RenderWidth < 1 || pl.RenderHeight < 1 {
			return Plan{}, fmt.Errorf("%w: region %d has no area", ErrInvalidPlan, i)
		}
	}

	durations := [2]float64{nonNegative(primary.DurationSeconds), nonNegative(secondary.DurationSeconds)}
	audio := layout.Primary
	if durations[layout.Secondary] > durations[layout.Primary] {
		audio = layout.Secondary
	}

	p := Plan{
		OutputWidth:           geom.CanvasWidth,
		OutputHeight:          geom.CanvasHeight,
		OutputDurationSeconds: durations[audio],
		Placements:            placements,
		AudioSource:           audio,
		Inputs:                [2]string{primary.Path, secondary.Path},
		SourceDurations:       durations,
		BackgroundColor:       cfg.BackgroundColor,
		CornerRadius:          cfg.CornerRadius,
		Encoding:              enc,
	}
	if p.BackgroundColor == "" {
		p.BackgroundColor = layout.DefaultBackgroundColor
	}
	p.FilterGraph = filterGraph(p)
	return p, nil
}

// filterGraph builds the ffmpeg filter_complex: a background canvas for the
// whole output, each source scaled to its rendered size and overlaid only
// while that source is still playing.
func filterGraph(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "color=c=%s:s=%dx%d:r=%d", p.BackgroundColor, p.OutputWidth, p.OutputHeight, frameRate(p.Encoding))
	if !p.Degenerate() {
		fmt.Fprintf(&b, ":d=%s", seconds(p.OutputDurationSeconds))
	}
	b.WriteString("[bg];")

	for i, pl := range p.Placements {
		fmt.Fprintf(&b, "[%d:v]scale=%d:%d,setsar=1[r%d];", int(pl.Source), pl.RenderWidth, pl.RenderHeight, i)
	}

	base := "bg"
	for i, pl := range p.Placements {
		out := "o" + strconv.Itoa(i)
		if i == len(p.Placements)-1 {
			out = "vout"
		}
		fmt.Fprintf(&b, "[%s][r%d]overlay=x=%d:y=%d:eof_action=pass", base, i, pl.Region.X, pl.Region.Y)
		if d := p.SourceDurations[pl.Source]; d > 0 {
			fmt.Fprintf(&b, ":enable='between(t,0,%s)'", seconds(d))
		}
		fmt.Fprintf(&b, "[%s]", out)
		if out != "vout" {
			b.WriteString(";")
		}
		base = out
	}
	return b.String()
}

// Args returns the ffmpeg arguments (without the binary) rendering p into outputPath.
func (p Plan) Args(outputPath string) []string {
	enc := p.Encoding
	args := []string{
		"-y", "-hide_banner", "-nostdin", "-stats",
		"-i", p.Inputs[layout.Primary],
		"-i", p.Inputs[layout.Secondary],
		"-filter_complex", p.FilterGraph,
		"-map", "[vout]",
		"-map", fmt.Sprintf("%d:a?", p.AudioSourceIndex()),
	}
	if enc.VideoCodec != "" {
		args = append(args, "-c:v", enc.VideoCodec)
	}
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	if enc.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(enc.CRF))
	}
	if enc.PixelFormat != "" {
		args = append(args, "-pix_fmt", enc.PixelFormat)
	}
	args = append(args, "-r", strconv.Itoa(frameRate(enc)))
	if enc.AudioCodec != "" {
		args = append(args, "-c:a", enc.AudioCodec)
	}
	if enc.AudioBitrate != "" {
		args = append(args, "-b:a", enc.AudioBitrate)
	}
	if enc.Container == "" || enc.Container == "mp4" || enc.Container == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	if !p.Degenerate() {
		args = append(args, "-t", seconds(p.OutputDurationSeconds))
	}
	return append(args, outputPath)
}

// OutputFileName is the name of the rendered file inside a workspace.
func (p Plan) OutputFileName() string {
	ext := p.Encoding.Container
	if ext == "" {
		ext = "mp4"
	}
	return "output." + ext
}

func frameRate(enc Encoding) int {
	if enc.FrameRate <= 0 {
		return 30
	}
	return enc.FrameRate
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
