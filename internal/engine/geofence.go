// Package engine implements the attendance monitoring core: idle tracking,
// geofence validation, status classification, behavioral flags, statistics
// and notification decisions. Everything here is computed from explicit
// inputs; persistence and delivery live in the service layer.
package engine

import (
	"fmt"
	"math"

	"attendance-engine/internal/model"
)

// Mean earth radius in meters for the haversine great-circle distance.
const earthRadiusMeters = 6371000.0

// GeofenceResult is the outcome of validating one position sample. When the
// sample is outside every office radius, NearestLocation and DistanceMeters
// describe the closest office for diagnostics and flagging.
type GeofenceResult struct {
	IsValid         bool
	NearestLocation *model.OfficeLocation
	DistanceMeters  float64
}

// GeofenceValidator checks position samples against the registered office
// geofences. The office table is a snapshot; refresh it by constructing a
// new validator.
type GeofenceValidator struct {
	locations []model.OfficeLocation
}

// NewGeofenceValidator builds a validator over the given office table.
// An empty table is a configuration error when geofencing is in play.
func NewGeofenceValidator(locations []model.OfficeLocation) (*GeofenceValidator, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("geofence: no office locations registered")
	}
	for _, loc := range locations {
		if loc.RadiusMeters <= 0 {
			return nil, fmt.Errorf("geofence: office %q has non-positive radius %v", loc.Name, loc.RadiusMeters)
		}
	}
	return &GeofenceValidator{locations: locations}, nil
}

// Validate computes the haversine distance from the sample to every office
// and passes if the sample sits within at least one office radius (boundary
// inclusive). Malformed coordinates fail closed, never panic. Reported GPS
// accuracy does not widen the boundary; the raw distance is compared to the
// radius as-is.
func (v *GeofenceValidator) Validate(lat, lon float64) GeofenceResult {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return GeofenceResult{IsValid: false, DistanceMeters: math.Inf(1)}
	}

	result := GeofenceResult{DistanceMeters: math.Inf(1)}
	for i := range v.locations {
		loc := &v.locations[i]
		d := haversineMeters(lat, lon, loc.Latitude, loc.Longitude)
		if d < result.DistanceMeters {
			result.DistanceMeters = d
			result.NearestLocation = loc
		}
		if d <= loc.RadiusMeters {
			return GeofenceResult{IsValid: true, NearestLocation: loc, DistanceMeters: d}
		}
	}
	return result
}

// ValidatePoint validates a position sample, failing closed on a nil sample.
func (v *GeofenceValidator) ValidatePoint(p *model.GeoPoint) GeofenceResult {
	if p == nil {
		return GeofenceResult{IsValid: false, DistanceMeters: math.Inf(1)}
	}
	return v.Validate(p.Latitude, p.Longitude)
}

// haversineMeters is the great-circle distance on a spherical earth.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
