package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/ecocycle/internal/classifier"
	"github.com/sakif/ecocycle/internal/detector"
	"github.com/sakif/ecocycle/internal/detector/docker"
	"github.com/sakif/ecocycle/internal/model"
)

func classifyCmd(a *app) *cobra.Command {
	var (
		label         string
		score         float64
		width, height int
		imagePath     string
		detect        bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one item from a label, dimensions or an image",
		Long: `Classify one item and print the result as JSON.

With --label the detector label and score are mapped to a device type.
With --width/--height the bounding box aspect ratio is scored.
With --image the picture's dimensions are used, or the containerised
detector when --detect is given. With no input a demo result is returned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := classifier.New(a.cfg.Classifier, nil)

			var result model.ClassificationResult
			switch {
			case imagePath != "":
				img, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				result, err = a.classifyImage(cmd, c, img, detect)
				if err != nil {
					return err
				}
			case label != "":
				if score < 0 || score > 1 {
					return errors.New("--score must be between 0 and 1")
				}
				result = c.ClassifyLabel(label, score)
			case width > 0 && height > 0:
				result = c.ClassifyDimensions(width, height)
			default:
				result = c.ClassifyDemo()
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "detector label, e.g. \"cell phone\"")
	cmd.Flags().Float64Var(&score, "score", 0.9, "detector score in [0,1]")
	cmd.Flags().IntVar(&width, "width", 0, "bounding box width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "bounding box height in pixels")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a JPEG or PNG")
	cmd.Flags().BoolVar(&detect, "detect", false, "run the containerised detector on --image")
	return cmd
}

func (a *app) classifyImage(cmd *cobra.Command, c *classifier.Classifier, img []byte, detect bool) (model.ClassificationResult, error) {
	if detect {
		d, err := docker.New(a.cfg.Detector.Config, a.logger)
		if err != nil {
			return model.ClassificationResult{}, fmt.Errorf("starting detector: %w", err)
		}
		defer d.Close()

		detections, err := d.Detect(cmd.Context(), img)
		if err != nil {
			return model.ClassificationResult{}, fmt.Errorf("detecting: %w", err)
		}
		if best, ok := detector.Best(detections); ok {
			return c.ClassifyLabel(best.Class, best.Score), nil
		}
		a.logger.Info("no relevant object detected, using image dimensions")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		a.logger.Warn("image not decodable, using demo classification", slog.String("error", err.Error()))
		return c.ClassifyDemo(), nil
	}
	return c.ClassifyDimensions(cfg.Width, cfg.Height), nil
}
