package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"split-compositor/internal/composition"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var primary, secondary, out, outputKey, runID string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a split-screen composite from two stored videos",
		Long: `Render a split-screen composite from two stored videos.

Asset keys are resolved against the configured store (STORAGE_BACKEND, or the
filesystem root given by --store-root). The result is written to --out, and
to the store under --output-key when set.

Example:
  composer render --store-root ./data --primary clips/webcam.mp4 \
    --secondary clips/gameplay.mp4 --top-ratio 35 --bottom-ratio 65 --out split.mp4`,
		Args: cobra.NoArgs,
	}
	layoutFlags := addLayoutFlags(cmd)

	cmd.Flags().StringVar(&primary, "primary", "", "Asset key of the primary (webcam) video")
	cmd.Flags().StringVar(&secondary, "secondary", "", "Asset key of the secondary (gameplay) video")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Local path for the rendered file")
	cmd.Flags().StringVar(&outputKey, "output-key", "", "Store key for the rendered file")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id (generated when empty)")
	_ = cmd.MarkFlagRequired("primary")
	_ = cmd.MarkFlagRequired("secondary")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(out) == "" && strings.TrimSpace(outputKey) == "" {
			return errors.New("one of --out or --output-key is required")
		}
		cfg, err := layoutFlags.resolve(cmd)
		if err != nil {
			return err
		}
		components, err := ctx.ensure(cmd)
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		interactive := isTerminal(stderr)
		start := time.Now()
		res, err := components.Engine.Compose(cmd.Context(), composition.Request{
			RunID:        runID,
			PrimaryKey:   primary,
			SecondaryKey: secondary,
			Layout:       cfg,
		}, func(stage composition.Stage, pct int) {
			if interactive {
				fmt.Fprintf(stderr, "\r%-10s %3d%%", stage, pct)
				return
			}
			fmt.Fprintf(stderr, "%-10s %3d%%\n", stage, pct)
		})
		if interactive {
			fmt.Fprintln(stderr)
		}
		if err != nil {
			return fmt.Errorf("render failed (%s): %w", composition.Classify(err), err)
		}

		w := cmd.OutOrStdout()
		if out != "" {
			if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(w, "Wrote %s (%d bytes)\n", out, res.SizeInBytes)
		}
		if outputKey != "" {
			key, err := components.Store.Store(cmd.Context(), outputKey, res.Bytes, res.ContentType)
			if err != nil {
				return fmt.Errorf("store output: %w", err)
			}
			fmt.Fprintf(w, "Stored %s (%d bytes)\n", key, res.SizeInBytes)
		}
		fmt.Fprintf(w, "Duration: %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	}
	return cmd
}
