// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Enumerations are plain string
// types with a fixed set of constants, which keeps them readable in JSON and
// in the database without any custom marshalling.
package model

// DeviceType is the coarse category of a scanned electronic item.
type DeviceType string

const (
	DeviceSmartphone DeviceType = "smartphone"
	DeviceLaptop     DeviceType = "laptop"
	DeviceTablet     DeviceType = "tablet"
	DeviceBattery    DeviceType = "battery"
	DeviceCharger    DeviceType = "charger"
	DeviceCable      DeviceType = "cable"
	DeviceUnknown    DeviceType = "unknown"
)

// DeviceTypes lists every device type in declaration order.
// Several heuristics break ties by this order, so do not reorder it.
var DeviceTypes = []DeviceType{
	DeviceSmartphone,
	DeviceLaptop,
	DeviceTablet,
	DeviceBattery,
	DeviceCharger,
	DeviceCable,
	DeviceUnknown,
}

// Valid reports whether d is one of the known device types.
func (d DeviceType) Valid() bool {
	for _, t := range DeviceTypes {
		if t == d {
			return true
		}
	}
	return false
}

// MaterialCategory groups device types by recoverable-material class.
// It drives pricing and the gamification bonus.
type MaterialCategory string

const (
	MaterialPreciousMetals   MaterialCategory = "precious_metals"   // gold, silver, palladium
	MaterialBaseMetals       MaterialCategory = "base_metals"       // copper, aluminium
	MaterialBatteryMaterials MaterialCategory = "battery_materials" // lithium, cobalt
	MaterialPlastics         MaterialCategory = "plastics"
)

// MaterialCategories lists every material category.
var MaterialCategories = []MaterialCategory{
	MaterialPreciousMetals,
	MaterialBaseMetals,
	MaterialBatteryMaterials,
	MaterialPlastics,
}

// Category returns the material category a device type belongs to.
// The mapping is fixed; unknown devices are treated as plastics.
func (d DeviceType) Category() MaterialCategory {
	switch d {
	case DeviceSmartphone, DeviceLaptop, DeviceTablet:
		return MaterialPreciousMetals
	case DeviceBattery:
		return MaterialBatteryMaterials
	case DeviceCharger, DeviceCable:
		return MaterialBaseMetals
	default:
		return MaterialPlastics
	}
}
