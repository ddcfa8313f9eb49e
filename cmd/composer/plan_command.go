package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"split-compositor/internal/plan"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var out string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <primary-file> <secondary-file>",
		Short: "Print the ffmpeg invocation for two local files without rendering",
		Long: `Probe two local video files and print the ffmpeg command that would
render their composite. Nothing is executed besides ffprobe.

Example:
  composer plan webcam.mp4 gameplay.mp4 --orientation horizontal --gap 8`,
		Args: cobra.ExactArgs(2),
	}
	layoutFlags := addLayoutFlags(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "output.mp4", "Output path used in the printed command")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := layoutFlags.resolve(cmd)
		if err != nil {
			return err
		}
		components, err := ctx.ensure(cmd)
		if err != nil {
			return err
		}
		p, err := components.Engine.Plan(cmd.Context(), args[0], args[1], cfg)
		if err != nil {
			return err
		}
		if asJSON {
			return writePlanJSON(cmd.OutOrStdout(), p, out)
		}
		printPlan(cmd.OutOrStdout(), p, out)
		return nil
	}
	return cmd
}

func printPlan(w io.Writer, p plan.Plan, out string) {
	fmt.Fprintf(w, "Canvas: %dx%d\n", p.OutputWidth, p.OutputHeight)
	fmt.Fprintf(w, "Duration: %.3fs\n", p.OutputDurationSeconds)
	fmt.Fprintln(w, placementTable(p.Placements))
	fmt.Fprintf(w, "Audio: %s\n", p.AudioSource)
	if p.Degenerate() {
		fmt.Fprintln(w, "Warning: both durations are unknown; rendering would be rejected")
	}
	fmt.Fprintf(w, "\nffmpeg %s\n", shellJoin(p.Args(out)))
}

type planJSON struct {
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Duration    float64      `json:"duration_seconds"`
	AudioSource string       `json:"audio_source"`
	FilterGraph string       `json:"filter_graph"`
	Args        []string     `json:"args"`
	Regions     []planRegion `json:"regions"`
}

type planRegion struct {
	Source       string `json:"source"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	RenderWidth  int    `json:"render_width"`
	RenderHeight int    `json:"render_height"`
}

func writePlanJSON(w io.Writer, p plan.Plan, out string) error {
	doc := planJSON{
		Width:       p.OutputWidth,
		Height:      p.OutputHeight,
		Duration:    p.OutputDurationSeconds,
		AudioSource: p.AudioSource.String(),
		FilterGraph: p.FilterGraph,
		Args:        p.Args(out),
	}
	for _, pl := range p.Placements {
		doc.Regions = append(doc.Regions, planRegion{
			Source:       pl.Source.String(),
			X:            pl.Region.X,
			Y:            pl.Region.Y,
			RenderWidth:  pl.RenderWidth,
			RenderHeight: pl.RenderHeight,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// shellJoin quotes arguments containing shell metacharacters with single quotes.
func shellJoin(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a != "" && !strings.ContainsAny(a, " \t\n'\"\\$`;&|<>()[]*?!{}=,") {
			parts[i] = a
			continue
		}
		parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(parts, " ")
}
