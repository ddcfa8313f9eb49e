package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"split-compositor/internal/layout"
)

func newLayoutCommand() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the region geometry for a layout config",
		Args:  cobra.NoArgs,
	}
	layoutFlags := addLayoutFlags(cmd)
	cmd.Flags().IntVar(&width, "width", 1080, "Canvas width")
	cmd.Flags().IntVar(&height, "height", 1920, "Canvas height")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := layoutFlags.resolve(cmd)
		if err != nil {
			return err
		}
		geom, err := layout.ComputeGeometry(cfg, width, height)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Canvas: %dx%d %s gap=%d\n", geom.CanvasWidth, geom.CanvasHeight, cfg.Orientation, cfg.Gap)
		fmt.Fprintln(out, placementTable(geom.Place(cfg)))
		return nil
	}
	return cmd
}

func placementTable(placements [2]layout.Placement) string {
	rows := make([][]string, 0, len(placements))
	for i, pl := range placements {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			pl.Source.String(),
			fmt.Sprintf("%d,%d", pl.Region.X, pl.Region.Y),
			fmt.Sprintf("%dx%d", pl.Region.Width, pl.Region.Height),
			fmt.Sprintf("%dx%d", pl.RenderWidth, pl.RenderHeight),
		})
	}
	return renderTable(
		[]string{"Region", "Source", "Origin", "Size", "Rendered"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}
