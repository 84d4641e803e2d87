package valuation

import (
	"math"
	"slices"
	"testing"

	"github.com/sakif/ecocycle/internal/model"
)

func TestConditionMultiplier(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 100; i++ {
		c := float64(i) / 100
		got := ConditionMultiplier(c)
		if got < 0.3-1e-9 || got > 1.0+1e-9 {
			t.Fatalf("ConditionMultiplier(%v) = %v, out of [0.3,1.0]", c, got)
		}
		if got <= prev {
			t.Fatalf("ConditionMultiplier not strictly increasing at %v", c)
		}
		if want := 0.3 + 0.7*c; math.Abs(got-want) > 1e-12 {
			t.Fatalf("ConditionMultiplier(%v) = %v, want %v", c, got, want)
		}
		prev = got
	}
}

func TestCalculateValue(t *testing.T) {
	calc := New(DefaultTables())

	tests := []struct {
		name      string
		device    model.DeviceType
		category  model.MaterialCategory
		weight    float64
		condition float64
		want      model.ValueBreakdown
	}{
		{
			name:      "smartphone in good condition",
			device:    model.DeviceSmartphone,
			category:  model.MaterialPreciousMetals,
			weight:    0.18,
			condition: 0.8,
			want: model.ValueBreakdown{
				BaseValue:           81,
				MaterialBonus:       1.5,
				RarityMultiplier:    1.4,
				ConditionMultiplier: 0.86,
				FinalValue:          97.52,
			},
		},
		{
			name:      "broken battery",
			device:    model.DeviceBattery,
			category:  model.MaterialBatteryMaterials,
			weight:    0.05,
			condition: 0,
			want: model.ValueBreakdown{
				BaseValue:           4,
				MaterialBonus:       1.3,
				RarityMultiplier:    1.5,
				ConditionMultiplier: 0.3,
				FinalValue:          1.8,
			},
		},
		{
			name:      "like-new cable",
			device:    model.DeviceCable,
			category:  model.MaterialBaseMetals,
			weight:    0.08,
			condition: 1,
			want: model.ValueBreakdown{
				BaseValue:           2,
				MaterialBonus:       1.1,
				RarityMultiplier:    0.8,
				ConditionMultiplier: 1,
				FinalValue:          1.6,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.CalculateValue(tt.device, tt.category, tt.weight, tt.condition)
			if got != tt.want {
				t.Errorf("CalculateValue() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculatePoints(t *testing.T) {
	calc := New(DefaultTables())

	tests := []struct {
		weight   float64
		category model.MaterialCategory
		want     int
	}{
		{0.18, model.MaterialPreciousMetals, 27},
		{2.1, model.MaterialPreciousMetals, 315},
		{0.05, model.MaterialBatteryMaterials, 6},
		{0.15, model.MaterialBaseMetals, 16},
		{0.30, model.MaterialPlastics, 30},
		{0, model.MaterialPlastics, 0},
		{-1, model.MaterialPlastics, 0},
	}

	for _, tt := range tests {
		got := calc.CalculatePoints(tt.weight, tt.category)
		if got != tt.want {
			t.Errorf("CalculatePoints(%v, %s) = %d, want %d", tt.weight, tt.category, got, tt.want)
		}
	}
}

func TestEstimateCO2Saved(t *testing.T) {
	calc := New(DefaultTables())

	if got := calc.EstimateCO2Saved(0.18, model.DeviceSmartphone); got != 8.1 {
		t.Errorf("smartphone CO2 = %v, want 8.1", got)
	}
	if got := calc.EstimateCO2Saved(0.333, model.DeviceCable); got != 3.33 {
		t.Errorf("cable CO2 = %v, want 3.33", got)
	}
}

func TestMerge(t *testing.T) {
	base := DefaultTables()
	merged := base.Merge(Tables{
		Rarity: map[model.DeviceType]float64{model.DeviceBattery: 2},
	})

	if merged.Rarity[model.DeviceBattery] != 2 {
		t.Errorf("battery rarity = %v, want 2", merged.Rarity[model.DeviceBattery])
	}
	if merged.Rarity[model.DeviceLaptop] != 1.2 {
		t.Errorf("laptop rarity = %v, want untouched 1.2", merged.Rarity[model.DeviceLaptop])
	}
	if base.Rarity[model.DeviceBattery] != 1.5 {
		t.Error("Merge mutated its receiver")
	}
}

// === Badges ===

func records(n int, device model.DeviceType) []model.RecycleRecord {
	out := make([]model.RecycleRecord, n)
	for i := range out {
		out[i] = model.RecycleRecord{ItemType: device}
	}
	return out
}

func TestCheckBadges(t *testing.T) {
	tests := []struct {
		name    string
		points  int
		history []model.RecycleRecord
		current model.DeviceType
		held    []string
		want    []string
	}{
		{
			name:    "nothing yet",
			points:  27,
			current: model.DeviceSmartphone,
			want:    nil,
		},
		{
			name:    "point thresholds in order",
			points:  1200,
			current: model.DeviceLaptop,
			want:    []string{"Eco Starter", "Recycler", "Green Champion"},
		},
		{
			name:    "already held are skipped",
			points:  1200,
			current: model.DeviceLaptop,
			held:    []string{"Recycler"},
			want:    []string{"Eco Starter", "Green Champion"},
		},
		{
			name:    "fifth item counts the current deposit",
			points:  50,
			history: records(4, model.DeviceCable),
			current: model.DeviceCable,
			want:    []string{"First Five"},
		},
		{
			name:    "fifth phone",
			points:  50,
			history: records(4, model.DeviceSmartphone),
			current: model.DeviceSmartphone,
			want:    []string{"First Five", "Phone Recycler"},
		},
		{
			name:    "four phones plus a cable is not a phone badge",
			points:  50,
			history: records(4, model.DeviceSmartphone),
			current: model.DeviceCable,
			want:    []string{"First Five"},
		},
		{
			name:    "tenth battery",
			points:  10,
			history: records(9, model.DeviceBattery),
			current: model.DeviceBattery,
			want:    []string{"First Five", "Double Digits", "Battery Specialist"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckBadges(tt.points, tt.history, tt.current, tt.held)
			if !slices.Equal(got, tt.want) {
				t.Errorf("CheckBadges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckBadgesIdempotent(t *testing.T) {
	history := records(24, model.DeviceSmartphone)
	first := CheckBadges(12000, history, model.DeviceSmartphone, nil)
	if len(first) == 0 {
		t.Fatal("expected badges on first call")
	}

	second := CheckBadges(12000, history, model.DeviceSmartphone, first)
	if len(second) != 0 {
		t.Errorf("second call returned %v, want none", second)
	}
}

func TestBadgeInfo(t *testing.T) {
	desc, icon := BadgeInfo("Green Champion")
	if desc != "Reached 1,000 points" || icon != "trophy" {
		t.Errorf("BadgeInfo(Green Champion) = %q, %q", desc, icon)
	}

	desc, icon = BadgeInfo("Mystery")
	if desc != "Achievement unlocked!" || icon != "award" {
		t.Errorf("BadgeInfo(unknown) = %q, %q", desc, icon)
	}
}
