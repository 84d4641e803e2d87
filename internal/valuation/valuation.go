// Package valuation turns a classified device into money, points and CO2.
//
// Everything here is pure arithmetic over lookup tables. The tables are
// demo tuning values rather than real market data, so they live in a Tables
// value that config can override instead of being hard-coded constants.
//
// THE FORMULAS:
//
//	baseValue           = basePrice(category) × weight
//	conditionMultiplier = 0.3 + 0.7 × condition        (0.3 broken … 1.0 like new)
//	finalValue          = baseValue × rarity(device) × conditionMultiplier
//	points              = floor(weight × 100 × materialBonus(category))
//	co2Saved            = weight × co2Factor(device)
package valuation

import (
	"math"

	"github.com/sakif/ecocycle/internal/model"
)

// Tables holds every tunable lookup used by the calculator.
// The YAML keys match the enum values so a config file can override
// single entries, e.g. `rarity: {battery: 1.6}`.
type Tables struct {
	BasePrice     map[model.MaterialCategory]float64 `mapstructure:"base_price"`
	MaterialBonus map[model.MaterialCategory]float64 `mapstructure:"material_bonus"`
	Rarity        map[model.DeviceType]float64       `mapstructure:"rarity"`
	CO2Factor     map[model.DeviceType]float64       `mapstructure:"co2_factor"`
}

// DefaultTables returns the stock tables. A fresh copy is returned each call
// so callers may mutate it freely.
func DefaultTables() Tables {
	return Tables{
		BasePrice: map[model.MaterialCategory]float64{
			model.MaterialPreciousMetals:   450,
			model.MaterialBaseMetals:       25,
			model.MaterialBatteryMaterials: 80,
			model.MaterialPlastics:         3,
		},
		MaterialBonus: map[model.MaterialCategory]float64{
			model.MaterialPreciousMetals:   1.5,
			model.MaterialBatteryMaterials: 1.3,
			model.MaterialBaseMetals:       1.1,
			model.MaterialPlastics:         1.0,
		},
		Rarity: map[model.DeviceType]float64{
			model.DeviceSmartphone: 1.4,
			model.DeviceLaptop:     1.2,
			model.DeviceTablet:     1.1,
			model.DeviceBattery:    1.5,
			model.DeviceCharger:    0.9,
			model.DeviceCable:      0.8,
			model.DeviceUnknown:    1.0,
		},
		// kg CO2 avoided per kg recycled
		CO2Factor: map[model.DeviceType]float64{
			model.DeviceSmartphone: 45,
			model.DeviceLaptop:     55,
			model.DeviceTablet:     50,
			model.DeviceBattery:    25,
			model.DeviceCharger:    15,
			model.DeviceCable:      10,
			model.DeviceUnknown:    20,
		},
	}
}

// Merge returns t with every entry of override laid on top.
// Missing keys in override keep the value from t.
func (t Tables) Merge(override Tables) Tables {
	out := DefaultTables()
	copyCat(out.BasePrice, t.BasePrice, override.BasePrice)
	copyCat(out.MaterialBonus, t.MaterialBonus, override.MaterialBonus)
	copyDev(out.Rarity, t.Rarity, override.Rarity)
	copyDev(out.CO2Factor, t.CO2Factor, override.CO2Factor)
	return out
}

func copyCat(dst map[model.MaterialCategory]float64, srcs ...map[model.MaterialCategory]float64) {
	for _, src := range srcs {
		for k, v := range src {
			dst[k] = v
		}
	}
}

func copyDev(dst map[model.DeviceType]float64, srcs ...map[model.DeviceType]float64) {
	for _, src := range srcs {
		for k, v := range src {
			dst[k] = v
		}
	}
}

// Calculator applies a set of Tables. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	tables Tables
}

// New creates a Calculator over the given tables.
func New(tables Tables) *Calculator {
	return &Calculator{tables: tables}
}

// Tables returns the tables the calculator was built with.
func (c *Calculator) Tables() Tables {
	return c.tables
}

// ConditionMultiplier maps a condition in [0,1] to [0.3,1.0].
func ConditionMultiplier(condition float64) float64 {
	return 0.3 + condition*0.7
}

// CalculateValue computes the estimated resale value of a device and the
// factors that produced it. FinalValue, BaseValue and ConditionMultiplier
// are rounded to cents; the other factors are reported as configured.
func (c *Calculator) CalculateValue(device model.DeviceType, category model.MaterialCategory, weight, condition float64) model.ValueBreakdown {
	rarity := c.tables.Rarity[device]
	condMult := ConditionMultiplier(condition)

	baseValue := c.tables.BasePrice[category] * weight
	finalValue := baseValue * rarity * condMult

	return model.ValueBreakdown{
		BaseValue:           Round2(baseValue),
		MaterialBonus:       c.tables.MaterialBonus[category],
		RarityMultiplier:    rarity,
		ConditionMultiplier: Round2(condMult),
		FinalValue:          Round2(finalValue),
	}
}

// CalculatePoints returns floor(weight × 100 × materialBonus). Negative
// weights yield 0.
func (c *Calculator) CalculatePoints(weight float64, category model.MaterialCategory) int {
	p := math.Floor(weight * 100 * c.tables.MaterialBonus[category])
	if p < 0 {
		return 0
	}
	return int(p)
}

// EstimateCO2Saved returns the kg of CO2 avoided by recycling weight kg of
// the given device, rounded to 2 decimals.
func (c *Calculator) EstimateCO2Saved(weight float64, device model.DeviceType) float64 {
	return Round2(weight * c.tables.CO2Factor[device])
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
