package engine

import (
	"math"
	"testing"
	"time"

	"attendance-engine/internal/model"
)

func testOffices() []model.OfficeLocation {
	return []model.OfficeLocation{
		{Name: "HQ", Latitude: 0, Longitude: 0, RadiusMeters: 100},
		{Name: "Branch", Latitude: 10, Longitude: 10, RadiusMeters: 200},
	}
}

func TestNewGeofenceValidator(t *testing.T) {
	if _, err := NewGeofenceValidator(nil); err == nil {
		t.Error("expected error for empty office table")
	}
	if _, err := NewGeofenceValidator([]model.OfficeLocation{{Name: "X", RadiusMeters: 0}}); err == nil {
		t.Error("expected error for non-positive radius")
	}
	if _, err := NewGeofenceValidator(testOffices()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGeofenceValidate(t *testing.T) {
	v, err := NewGeofenceValidator(testOffices())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		lat, lon     float64
		wantValid    bool
		wantDistance float64 // -1 to skip the distance check
		wantNearest  string
	}{
		{
			name:         "exactly at office center",
			lat:          0, lon: 0,
			wantValid:    true,
			wantDistance: 0,
			wantNearest:  "HQ",
		},
		{
			// 0.001 deg of longitude at the equator is ~111 m, outside a 100 m radius
			name:         "just past the radius",
			lat:          0, lon: 0.001,
			wantValid:    false,
			wantDistance: 111,
			wantNearest:  "HQ",
		},
		{
			name:         "well inside the radius",
			lat:          0, lon: 0.0005,
			wantValid:    true,
			wantDistance: 55.6,
			wantNearest:  "HQ",
		},
		{
			name:        "nearest office reported when invalid",
			lat:         9.9, lon: 9.9,
			wantValid:   false,
			wantDistance: -1,
			wantNearest: "Branch",
		},
		{
			name:         "NaN latitude fails closed",
			lat:          math.NaN(), lon: 0,
			wantValid:    false,
			wantDistance: -1,
		},
		{
			name:         "infinite longitude fails closed",
			lat:          0, lon: math.Inf(1),
			wantValid:    false,
			wantDistance: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.lat, tt.lon)
			if got.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v", got.IsValid, tt.wantValid)
			}
			if tt.wantDistance >= 0 && math.Abs(got.DistanceMeters-tt.wantDistance) > 1 {
				t.Errorf("DistanceMeters = %.1f, want ~%.1f", got.DistanceMeters, tt.wantDistance)
			}
			if tt.wantNearest != "" {
				if got.NearestLocation == nil {
					t.Fatalf("NearestLocation = nil, want %q", tt.wantNearest)
				}
				if got.NearestLocation.Name != tt.wantNearest {
					t.Errorf("NearestLocation = %q, want %q", got.NearestLocation.Name, tt.wantNearest)
				}
			}
		})
	}
}

func TestGeofenceValidatePoint(t *testing.T) {
	v, err := NewGeofenceValidator(testOffices())
	if err != nil {
		t.Fatal(err)
	}

	if got := v.ValidatePoint(nil); got.IsValid {
		t.Error("nil sample should fail closed")
	}
	got := v.ValidatePoint(&model.GeoPoint{Latitude: 0, Longitude: 0, Timestamp: time.Now()})
	if !got.IsValid {
		t.Error("sample at center should validate")
	}
}

func TestHaversineSymmetry(t *testing.T) {
	d1 := haversineMeters(0, 0, 0.5, 0.5)
	d2 := haversineMeters(0.5, 0.5, 0, 0)
	if math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
	if d1 <= 0 {
		t.Errorf("distance should be positive, got %v", d1)
	}
}
