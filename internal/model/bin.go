package model

// BinStatus is the operational state of a collection bin.
type BinStatus string

const (
	BinOperational BinStatus = "operational"
	BinFull        BinStatus = "full"
	BinMaintenance BinStatus = "maintenance"
	BinOffline     BinStatus = "offline"
)

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bin is a collection point shown on the map.
type Bin struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	FillLevel     int       `json:"fillLevel"` // percent
	Status        BinStatus `json:"status"`
	AcceptedTypes []string  `json:"acceptedTypes"`
	Location      LatLng    `json:"location"`
}

// NearbyBin is a Bin annotated with its distance from the caller.
type NearbyBin struct {
	Bin
	DistanceKm float64 `json:"distanceKm"`
	FillClass  string  `json:"fillClass"` // low, medium, high
}

// TurnInstruction is one synthetic navigation step.
type TurnInstruction struct {
	Type        string `json:"type"` // straight, left, right, arrive
	Instruction string `json:"instruction"`
	Distance    string `json:"distance"`
	Point       LatLng `json:"point"`
}

// Route is a mock walking route to a bin.
type Route struct {
	BinID        string            `json:"binId"`
	Points       []LatLng          `json:"points"`
	Instructions []TurnInstruction `json:"instructions"`
	DistanceKm   float64           `json:"distanceKm"`
	ETAMinutes   int               `json:"etaMinutes"`
}
