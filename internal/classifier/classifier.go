// Package classifier turns detector output, raw image dimensions or nothing
// at all into a ClassificationResult.
//
// There are three entry points and none of them can fail:
//
//	ClassifyLabel      → label + score from an object-detection model
//	ClassifyDimensions → aspect-ratio / pixel-count heuristic fallback
//	ClassifyDemo       → uniformly random result for demos
//
// All three share the same confidence bands and the same per-device weight
// and base value tables. Weights carry a ±10% random variance; the random
// source is injected so tests can pin it.
package classifier

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/sakif/ecocycle/internal/model"
)

// Bands partitions integer confidence into the three handling modes.
//
//	confidence >  AutoAccept              → auto-accept
//	Confirm <= confidence <= AutoAccept   → needs confirmation
//	confidence <  Confirm                 → manual selection
type Bands struct {
	AutoAccept int `mapstructure:"auto_accept"`
	Confirm    int `mapstructure:"confirm"`
}

// DefaultBands returns the stock 85/70 thresholds.
func DefaultBands() Bands {
	return Bands{AutoAccept: 85, Confirm: 70}
}

// Apply returns the two result flags for a confidence value.
func (b Bands) Apply(confidence int) (autoAccept, needsConfirmation bool) {
	autoAccept = confidence > b.AutoAccept
	needsConfirmation = confidence >= b.Confirm && confidence <= b.AutoAccept
	return autoAccept, needsConfirmation
}

// Config holds the tunable tables.
type Config struct {
	Bands      Bands                        `mapstructure:"bands"`
	BaseValues map[model.DeviceType]float64 `mapstructure:"base_values"`
	Weights    map[model.DeviceType]float64 `mapstructure:"weights"` // kg
}

// DefaultConfig returns the stock tables.
func DefaultConfig() Config {
	return Config{
		Bands: DefaultBands(),
		BaseValues: map[model.DeviceType]float64{
			model.DeviceSmartphone: 125,
			model.DeviceLaptop:     450,
			model.DeviceTablet:     250,
			model.DeviceBattery:    35,
			model.DeviceCharger:    50,
			model.DeviceCable:      15,
			model.DeviceUnknown:    10,
		},
		Weights: map[model.DeviceType]float64{
			model.DeviceSmartphone: 0.18,
			model.DeviceLaptop:     2.1,
			model.DeviceTablet:     0.45,
			model.DeviceBattery:    0.05,
			model.DeviceCharger:    0.15,
			model.DeviceCable:      0.08,
			model.DeviceUnknown:    0.30,
		},
	}
}

// Classifier produces ClassificationResults. It is safe for concurrent use
// as long as the injected random source is.
type Classifier struct {
	cfg  Config
	rand func() float64 // uniform in [0,1)
}

// New creates a Classifier. If random is nil the global math/rand/v2 source
// is used.
func New(cfg Config, random func() float64) *Classifier {
	def := DefaultConfig()
	if cfg.Bands == (Bands{}) {
		cfg.Bands = def.Bands
	}
	if cfg.BaseValues == nil {
		cfg.BaseValues = def.BaseValues
	}
	if cfg.Weights == nil {
		cfg.Weights = def.Weights
	}
	if random == nil {
		random = rand.Float64
	}
	return &Classifier{cfg: cfg, rand: random}
}

// Bands returns the confidence bands in use.
func (c *Classifier) Bands() Bands {
	return c.cfg.Bands
}

// keyword table, scanned in order; first substring match wins.
var keywords = []struct {
	keyword string
	device  model.DeviceType
}{
	{"cellular telephone", model.DeviceSmartphone},
	{"mobile phone", model.DeviceSmartphone},
	{"smart phone", model.DeviceSmartphone},
	{"iphone", model.DeviceSmartphone},
	{"android", model.DeviceSmartphone},
	{"laptop", model.DeviceLaptop},
	{"notebook", model.DeviceLaptop},
	{"computer", model.DeviceLaptop},
	{"tablet", model.DeviceTablet},
	{"ipad", model.DeviceTablet},
	{"battery", model.DeviceBattery},
	{"charger", model.DeviceCharger},
	{"adapter", model.DeviceCharger},
	{"cable", model.DeviceCable},
	{"wire", model.DeviceCable},
}

// COCO-style labels that need an exact mapping. These take precedence over
// the keyword scan.
var exactLabels = map[string]model.DeviceType{
	"cell phone": model.DeviceSmartphone,
	"remote":     model.DeviceSmartphone,
	"tv":         model.DeviceLaptop,
	"monitor":    model.DeviceLaptop,
	"keyboard":   model.DeviceLaptop,
	"mouse":      model.DeviceLaptop,
}

// DeviceForLabel maps a detector label to a device type. Unrecognised labels
// map to DeviceUnknown.
func DeviceForLabel(label string) model.DeviceType {
	l := strings.ToLower(strings.TrimSpace(label))

	if d, ok := exactLabels[l]; ok {
		return d
	}
	for _, k := range keywords {
		if strings.Contains(l, k.keyword) {
			return k.device
		}
	}
	return model.DeviceUnknown
}

// ClassifyLabel classifies a detector label with a score in [0,1].
func (c *Classifier) ClassifyLabel(label string, score float64) model.ClassificationResult {
	return c.result(DeviceForLabel(label), int(math.Round(score*100)))
}

// ClassifyDimensions guesses the device type from image dimensions alone.
// Confidence never exceeds 75, so the result always needs at least
// confirmation under the default bands.
func (c *Classifier) ClassifyDimensions(width, height int) model.ClassificationResult {
	device, conf := scoreDimensions(width, height)
	return c.result(device, int(math.Round(conf*100)))
}

func scoreDimensions(width, height int) (model.DeviceType, float64) {
	scores := make(map[model.DeviceType]float64, len(model.DeviceTypes))
	scores[model.DeviceUnknown] = 0.1

	if width > 0 && height > 0 {
		aspect := float64(width) / float64(height)
		switch {
		case aspect > 1.6:
			scores[model.DeviceLaptop] += 0.4
		case aspect > 1.3:
			scores[model.DeviceTablet] += 0.3
		case aspect > 0.5 && aspect < 0.7:
			scores[model.DeviceSmartphone] += 0.5
		case aspect > 1.0 && aspect < 1.3:
			scores[model.DeviceCharger] += 0.3
		}

		pixels := width * height
		if pixels < 500_000 {
			scores[model.DeviceBattery] += 0.3
		}
		if pixels > 2_000_000 {
			scores[model.DeviceLaptop] += 0.2
		}
	}

	best, top := model.DeviceUnknown, -1.0
	for _, d := range model.DeviceTypes {
		if scores[d] > top {
			best, top = d, scores[d]
		}
	}
	return best, math.Min(0.75, top+0.2)
}

// demoDevices are the device types ClassifyDemo picks from.
var demoDevices = []model.DeviceType{
	model.DeviceSmartphone,
	model.DeviceLaptop,
	model.DeviceTablet,
	model.DeviceBattery,
	model.DeviceCharger,
}

// ClassifyDemo returns a random but plausible result with confidence
// in [45,97].
func (c *Classifier) ClassifyDemo() model.ClassificationResult {
	device := demoDevices[int(c.rand()*float64(len(demoDevices)))]
	confidence := 45 + int(math.Floor(c.rand()*53))
	return c.result(device, confidence)
}

func (c *Classifier) result(device model.DeviceType, confidence int) model.ClassificationResult {
	auto, confirm := c.cfg.Bands.Apply(confidence)
	return model.ClassificationResult{
		DeviceType:        device,
		Confidence:        confidence,
		SuggestedCategory: device.Category(),
		EstimatedWeight:   c.estimateWeight(device),
		BaseValue:         c.cfg.BaseValues[device],
		IsAutoAccept:      auto,
		NeedsConfirmation: confirm,
	}
}

func (c *Classifier) estimateWeight(device model.DeviceType) float64 {
	return c.cfg.Weights[device] * (0.9 + c.rand()*0.2)
}
