// Package detector defines the object-detection port used by the scan
// pipeline and the helpers that sit on top of it.
//
// A Detector takes one encoded image and returns (label, score) pairs from a
// general-purpose pretrained model. The only production implementation runs
// the model inside a pool of Docker containers (see detector/docker); tests
// use an in-memory fake.
package detector

import (
	"context"
	"slices"

	"github.com/sakif/ecocycle/internal/model"
)

// Detector runs object detection on an encoded image (JPEG or PNG).
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]model.Detection, error)
}

// Func adapts an ordinary function to the Detector interface.
type Func func(ctx context.Context, image []byte) ([]model.Detection, error)

func (f Func) Detect(ctx context.Context, image []byte) ([]model.Detection, error) {
	return f(ctx, image)
}

// MinScore is the score a detection must exceed to be considered.
const MinScore = 0.5

// relevantLabels are the COCO classes that can plausibly be e-waste.
var relevantLabels = []string{
	"cell phone",
	"laptop",
	"tv",
	"remote",
	"keyboard",
	"mouse",
	"monitor",
}

// Relevant reports whether a label is one we know how to classify.
func Relevant(label string) bool {
	return slices.Contains(relevantLabels, label)
}

// Best returns the highest-scoring relevant detection above MinScore.
// ok is false when nothing qualifies.
func Best(detections []model.Detection) (best model.Detection, ok bool) {
	for _, d := range detections {
		if d.Score <= MinScore || !Relevant(d.Class) {
			continue
		}
		if !ok || d.Score > best.Score {
			best, ok = d, true
		}
	}
	return best, ok
}
