package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/ecocycle/internal/detector"
	"github.com/sakif/ecocycle/internal/detector/docker"
	"github.com/sakif/ecocycle/internal/model"
)

func detectCmd(a *app) *cobra.Command {
	var (
		imagePath string
		dir       string
		interval  time.Duration
		duration  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the containerised detector on an image or a frame directory",
		Long: `Run object detection with the configured detector image.

--image detects once and prints every detection as JSON.
--dir samples the directory's images in name order every --interval and
logs the best relevant detection of each frame until interrupted (or until
--duration has passed). Frames that arrive while a detection is still
running are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (imagePath == "") == (dir == "") {
				return errors.New("pass exactly one of --image or --dir")
			}

			d, err := docker.New(a.cfg.Detector.Config, a.logger)
			if err != nil {
				return fmt.Errorf("starting detector: %w", err)
			}
			defer d.Close()

			if imagePath != "" {
				img, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				detections, err := d.Detect(cmd.Context(), img)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detections)
			}

			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Detector.FrameInterval
			}
			src, err := detector.NewDirSource(dir)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			loop := detector.NewLoop(d, src, interval, a.logger, func(det model.Detection) {
				fmt.Fprintf(out, "%s\t%.2f\n", det.Class, det.Score)
			})
			err = loop.Run(ctx)
			a.logger.Info("detection finished", slog.Int64("skipped", loop.Skipped()))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a single JPEG or PNG")
	cmd.Flags().StringVar(&dir, "dir", "", "directory of frames to sample")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "sampling interval for --dir (default: detector.frame_interval)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop the --dir loop after this long (0 runs until interrupted)")
	return cmd
}
