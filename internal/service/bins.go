package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/valuation"
)

// DefaultLocation is used when the caller does not send a position.
var DefaultLocation = model.LatLng{Lat: 12.9550, Lng: 77.6200}

// Bins is the fixed list of collection points.
var Bins = []model.Bin{
	{
		ID:            "BIN-001",
		Name:          "MG Road E-Waste Bin",
		Address:       "123 MG Road, Near Metro Station",
		FillLevel:     45,
		Status:        model.BinOperational,
		AcceptedTypes: []string{"Phones", "Batteries", "Chargers"},
		Location:      model.LatLng{Lat: 12.9756, Lng: 77.6080},
	},
	{
		ID:            "BIN-002",
		Name:          "Indiranagar Collection Point",
		Address:       "456 12th Main, Indiranagar",
		FillLevel:     72,
		Status:        model.BinOperational,
		AcceptedTypes: []string{"Phones", "Laptops", "Tablets"},
		Location:      model.LatLng{Lat: 12.9784, Lng: 77.6408},
	},
	{
		ID:            "BIN-003",
		Name:          "Koramangala Drop-off",
		Address:       "789 80 Feet Road, Koramangala",
		FillLevel:     89,
		Status:        model.BinFull,
		AcceptedTypes: []string{"All E-Waste"},
		Location:      model.LatLng{Lat: 12.9352, Lng: 77.6245},
	},
	{
		ID:            "BIN-004",
		Name:          "HSR Layout Bin",
		Address:       "27th Main, HSR Layout",
		FillLevel:     23,
		Status:        model.BinOperational,
		AcceptedTypes: []string{"Phones", "Batteries", "Cables"},
		Location:      model.LatLng{Lat: 12.9121, Lng: 77.6446},
	},
}

const (
	kmPerDegree  = 111.0
	routeSteps   = 20
	routeCurve   = 0.003
	minutesPerKm = 3
)

// DistanceKm is an equirectangular approximation, good enough at city scale.
func DistanceKm(from, to model.LatLng) float64 {
	dLat := (to.Lat - from.Lat) * kmPerDegree
	dLng := (to.Lng - from.Lng) * kmPerDegree * math.Cos(from.Lat*math.Pi/180)
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// FillClass buckets a fill percentage for map markers.
func FillClass(level int) string {
	switch {
	case level >= 80:
		return "high"
	case level >= 50:
		return "medium"
	}
	return "low"
}

// NearbyBins returns every bin sorted by distance from loc, nearest first.
func NearbyBins(loc model.LatLng) []model.NearbyBin {
	out := make([]model.NearbyBin, 0, len(Bins))
	for _, b := range Bins {
		out = append(out, model.NearbyBin{
			Bin:        b,
			DistanceKm: valuation.Round2(DistanceKm(loc, b.Location)),
			FillClass:  FillClass(b.FillLevel),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// FindBin looks a bin up by ID.
func FindBin(id string) (model.Bin, error) {
	for _, b := range Bins {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Bin{}, apperror.NotFound("bin", id)
}

// RoutePoints interpolates routeSteps+1 points from start to end, bowed
// sideways by a sine curve so the line does not look straight.
func RoutePoints(start, end model.LatLng) []model.LatLng {
	points := make([]model.LatLng, 0, routeSteps+1)
	for i := 0; i <= routeSteps; i++ {
		t := float64(i) / routeSteps
		curve := math.Sin(t*math.Pi) * routeCurve
		points = append(points, model.LatLng{
			Lat: start.Lat + (end.Lat-start.Lat)*t + curve*0.5,
			Lng: start.Lng + (end.Lng-start.Lng)*t + curve,
		})
	}
	return points
}

// RouteTo builds a mock walking route from loc to the bin.
func RouteTo(binID string, loc model.LatLng) (*model.Route, error) {
	bin, err := FindBin(binID)
	if err != nil {
		return nil, err
	}

	points := RoutePoints(loc, bin.Location)
	dist := DistanceKm(loc, bin.Location)
	at := func(frac float64) model.LatLng {
		return points[int(math.Floor(float64(len(points))*frac))]
	}
	km := func(frac float64) string {
		return fmt.Sprintf("%.1f km", dist*frac)
	}

	rounded := valuation.Round1(dist)
	return &model.Route{
		BinID:  bin.ID,
		Points: points,
		Instructions: []model.TurnInstruction{
			{Type: "straight", Instruction: "Head northeast on Main Road", Distance: km(0.3), Point: at(0.1)},
			{Type: "right", Instruction: "Turn right onto 12th Cross", Distance: km(0.25), Point: at(0.35)},
			{Type: "left", Instruction: "Turn left onto Service Road", Distance: km(0.3), Point: at(0.6)},
			{Type: "straight", Instruction: "Continue straight", Distance: km(0.15), Point: at(0.85)},
			{Type: "arrive", Instruction: "Arrive at destination", Distance: "0 m", Point: bin.Location},
		},
		DistanceKm: rounded,
		ETAMinutes: int(math.Ceil(rounded * minutesPerKm)),
	}, nil
}
