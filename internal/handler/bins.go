package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/service"
)

// HandleBins lists collection bins nearest first.
//
// HTTP: GET /api/bins?lat=12.97&lng=77.59
func HandleBins(w http.ResponseWriter, r *http.Request) {
	loc, err := location(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NearbyBins(loc))
}

// HandleRoute returns a mock walking route to one bin.
//
// HTTP: GET /api/bins/{id}/route?lat=12.97&lng=77.59
func HandleRoute(w http.ResponseWriter, r *http.Request) {
	loc, err := location(r)
	if err != nil {
		writeError(w, err)
		return
	}
	route, err := service.RouteTo(chi.URLParam(r, "id"), loc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// location reads lat/lng from the query. Both absent means DefaultLocation;
// one without the other is an error.
func location(r *http.Request) (model.LatLng, error) {
	q := r.URL.Query()
	rawLat, rawLng := q.Get("lat"), q.Get("lng")
	if rawLat == "" && rawLng == "" {
		return service.DefaultLocation, nil
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return model.LatLng{}, apperror.ValidationFailed("lat", "lat must be a number between -90 and 90")
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil || math.IsNaN(lng) || lng < -180 || lng > 180 {
		return model.LatLng{}, apperror.ValidationFailed("lng", "lng must be a number between -180 and 180")
	}
	return model.LatLng{Lat: lat, Lng: lng}, nil
}
