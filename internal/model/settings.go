package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// WorkingHours is a daily envelope in "HH:MM" 24h format.
type WorkingHours struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// At anchors the working-hours boundary on a concrete calendar day.
func (w WorkingHours) At(day time.Time, boundary string) (time.Time, error) {
	t, err := time.Parse("15:04", boundary)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse working hours %q: %w", boundary, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// StartAt returns the working-day start on the given day.
func (w WorkingHours) StartAt(day time.Time) (time.Time, error) { return w.At(day, w.Start) }

// EndAt returns the working-day end on the given day.
func (w WorkingHours) EndAt(day time.Time) (time.Time, error) { return w.At(day, w.End) }

// AttendanceSettings is the process-wide evaluation configuration. It is
// loaded as a snapshot at the start of each tracking session or report and
// passed explicitly; nothing in the engine reads it from ambient state.
type AttendanceSettings struct {
	WorkingHours                WorkingHours   `bson:"working_hours" json:"working_hours"`
	IdleThresholdMinutes        int            `bson:"idle_threshold_minutes" json:"idle_threshold_minutes"`
	MaxIdlePeriods              int            `bson:"max_idle_periods" json:"max_idle_periods"`
	AllowedLateMinutes          int            `bson:"allowed_late_minutes" json:"allowed_late_minutes"`
	LocationRadiusMeters        float64        `bson:"location_radius_meters" json:"location_radius_meters"`
	RequiredCheckInDays         []time.Weekday `bson:"required_check_in_days" json:"required_check_in_days"`
	RequireManagerApproval      bool           `bson:"require_manager_approval" json:"require_manager_approval"`
	AutoApproveThresholdMinutes int            `bson:"auto_approve_threshold_minutes" json:"auto_approve_threshold_minutes"`
}

// DefaultSettings seeds the settings document when none exists yet.
func DefaultSettings() AttendanceSettings {
	return AttendanceSettings{
		WorkingHours:                WorkingHours{Start: "09:00", End: "18:00"},
		IdleThresholdMinutes:        15,
		MaxIdlePeriods:              3,
		AllowedLateMinutes:          15,
		LocationRadiusMeters:        100,
		RequiredCheckInDays:         []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		RequireManagerApproval:      true,
		AutoApproveThresholdMinutes: 30,
	}
}

// Validate fails fast on configuration errors. The engine never silently
// defaults a broken setting.
func (s AttendanceSettings) Validate() error {
	if s.IdleThresholdMinutes <= 0 {
		return fmt.Errorf("idle threshold must be positive, got %d", s.IdleThresholdMinutes)
	}
	if s.MaxIdlePeriods <= 0 {
		return fmt.Errorf("max idle periods must be positive, got %d", s.MaxIdlePeriods)
	}
	if s.AllowedLateMinutes < 0 {
		return fmt.Errorf("allowed late minutes must not be negative, got %d", s.AllowedLateMinutes)
	}
	if s.LocationRadiusMeters <= 0 {
		return fmt.Errorf("location radius must be positive, got %v", s.LocationRadiusMeters)
	}
	if s.AutoApproveThresholdMinutes < 0 {
		return fmt.Errorf("auto approve threshold must not be negative, got %d", s.AutoApproveThresholdMinutes)
	}
	if _, err := time.Parse("15:04", s.WorkingHours.Start); err != nil {
		return fmt.Errorf("working hours start %q: %w", s.WorkingHours.Start, err)
	}
	if _, err := time.Parse("15:04", s.WorkingHours.End); err != nil {
		return fmt.Errorf("working hours end %q: %w", s.WorkingHours.End, err)
	}
	return nil
}

// IdleThreshold returns the idle threshold as a duration.
func (s AttendanceSettings) IdleThreshold() time.Duration {
	return time.Duration(s.IdleThresholdMinutes) * time.Minute
}

// RequiresCheckIn reports whether the given weekday is a required check-in day.
// An empty list means every day requires check-in.
func (s AttendanceSettings) RequiresCheckIn(day time.Weekday) bool {
	if len(s.RequiredCheckInDays) == 0 {
		return true
	}
	for _, d := range s.RequiredCheckInDays {
		if d == day {
			return true
		}
	}
	return false
}

// OfficeLocation is one circular geofence consulted on check-in/out.
type OfficeLocation struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Latitude     float64       `bson:"latitude" json:"latitude"`
	Longitude    float64       `bson:"longitude" json:"longitude"`
	RadiusMeters float64       `bson:"radius_meters" json:"radius_meters"`
	WorkingHours WorkingHours  `bson:"working_hours" json:"working_hours"`
}
