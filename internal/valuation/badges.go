package valuation

import (
	"slices"

	"github.com/sakif/ecocycle/internal/model"
)

type threshold struct {
	name string
	min  int
}

// Badge thresholds, checked in order. The order is also the order in which
// newly earned badges are reported.
var (
	pointBadges = []threshold{
		{"Eco Starter", 100},
		{"Recycler", 500},
		{"Green Champion", 1000},
		{"Eco Warrior", 2500},
		{"Planet Guardian", 5000},
		{"Sustainability Hero", 10000},
	}
	countBadges = []threshold{
		{"First Five", 5},
		{"Double Digits", 10},
		{"Quarter Century", 25},
	}
	typeBadges = []struct {
		threshold
		device model.DeviceType
	}{
		{threshold{"Phone Recycler", 5}, model.DeviceSmartphone},
		{threshold{"Battery Specialist", 10}, model.DeviceBattery},
	}
)

type badgeInfo struct {
	description string
	icon        string
}

var catalog = map[string]badgeInfo{
	"Eco Starter":         {"Earned your first 100 points", "leaf"},
	"Recycler":            {"Reached 500 points", "recycle"},
	"Green Champion":      {"Reached 1,000 points", "trophy"},
	"Eco Warrior":         {"Reached 2,500 points", "shield"},
	"Planet Guardian":     {"Reached 5,000 points", "globe"},
	"Sustainability Hero": {"Reached 10,000 points", "star"},
	"First Five":          {"Recycled 5 items", "check-circle"},
	"Double Digits":       {"Recycled 10 items", "award"},
	"Quarter Century":     {"Recycled 25 items", "medal"},
	"Phone Recycler":      {"Recycled 5 phones", "smartphone"},
	"Battery Specialist":  {"Recycled 10 batteries", "battery"},
}

// BadgeInfo returns the description and icon shown for a badge name.
// Unknown names get a generic entry.
func BadgeInfo(name string) (description, icon string) {
	if info, ok := catalog[name]; ok {
		return info.description, info.icon
	}
	return "Achievement unlocked!", "award"
}

// CheckBadges returns the names of badges earned by a deposit of current
// that brings the user to totalPoints, excluding any name in held.
//
// history is the user's existing records, not including the deposit being
// evaluated; the counts add one for it. Calling CheckBadges again with the
// returned names appended to held yields nothing new.
func CheckBadges(totalPoints int, history []model.RecycleRecord, current model.DeviceType, held []string) []string {
	var earned []string
	award := func(name string, ok bool) {
		if ok && !slices.Contains(held, name) {
			earned = append(earned, name)
		}
	}

	for _, b := range pointBadges {
		award(b.name, totalPoints >= b.min)
	}

	items := len(history) + 1
	for _, b := range countBadges {
		award(b.name, items >= b.min)
	}

	for _, b := range typeBadges {
		n := 0
		for _, r := range history {
			if r.ItemType == b.device {
				n++
			}
		}
		if current == b.device {
			n++
		}
		award(b.name, n >= b.min)
	}

	return earned
}
