package engine

import (
	"strings"
	"testing"
	"time"

	"attendance-engine/internal/model"
)

func flagSettings() model.AttendanceSettings {
	s := model.DefaultSettings()
	s.WorkingHours = model.WorkingHours{Start: "09:00", End: "18:00"}
	s.IdleThresholdMinutes = 15
	s.MaxIdlePeriods = 3
	s.AllowedLateMinutes = 15
	return s
}

func idlePeriods(date string, startClock string, count int, minutes int) []model.IdlePeriod {
	periods := make([]model.IdlePeriod, 0, count)
	start := mustClock(date, startClock)
	for i := 0; i < count; i++ {
		end := start.Add(time.Duration(minutes) * time.Minute)
		e := end
		periods = append(periods, model.IdlePeriod{
			Start:           start,
			End:             &e,
			DurationMinutes: float64(minutes),
		})
		start = end.Add(10 * time.Minute)
	}
	return periods
}

func findFlag(flags []model.Flag, t model.FlagType) *model.Flag {
	for i := range flags {
		if flags[i].Type == t {
			return &flags[i]
		}
	}
	return nil
}

// Idle budget is threshold x max periods (45 min here); the flag fires only
// when the total strictly exceeds it.
func TestIdleBudgetFlag(t *testing.T) {
	settings := flagSettings()

	tests := []struct {
		name     string
		periods  int
		minutes  int
		wantFlag bool
	}{
		{"three 10 minute periods stay inside the budget", 3, 10, false},
		{"four periods at 40 total still inside", 4, 10, false},
		{"five periods at 50 total exceed 45", 5, 10, true},
		{"exactly at the budget does not fire", 3, 15, false},
		{"one long period over budget fires", 1, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := dayRecord("09:00", "17:30")
			r.IdlePeriods = idlePeriods(r.Date, "10:00", tt.periods, tt.minutes)

			flags := EvaluateFlags(r, settings, nil)
			got := findFlag(flags, model.FlagMultipleIdlePeriods)
			if (got != nil) != tt.wantFlag {
				t.Fatalf("multiple_idle_periods flag = %v, want %v", got != nil, tt.wantFlag)
			}
			if got != nil && got.Severity != model.SeverityHigh {
				t.Errorf("severity = %v, want high", got.Severity)
			}
		})
	}
}

func TestLocationMismatchFlag(t *testing.T) {
	settings := flagSettings()
	geo, err := NewGeofenceValidator([]model.OfficeLocation{
		{Name: "HQ", Latitude: 0, Longitude: 0, RadiusMeters: 100},
	})
	if err != nil {
		t.Fatal(err)
	}

	r := dayRecord("09:00", "17:30")
	r.CheckOut.Location = &model.GeoPoint{Latitude: 0, Longitude: 0.01, AccuracyMeters: 20, Timestamp: r.CheckOut.Time}

	flags := EvaluateFlags(r, settings, geo)
	got := findFlag(flags, model.FlagLocationMismatch)
	if got == nil {
		t.Fatal("expected location_mismatch flag")
	}
	if got.Severity != model.SeverityHigh {
		t.Errorf("severity = %v, want high", got.Severity)
	}
	if !strings.Contains(got.Description, "HQ") {
		t.Errorf("description should name the nearest office, got %q", got.Description)
	}

	// inside the fence: no flag
	r.CheckOut.Location = &model.GeoPoint{Latitude: 0, Longitude: 0, Timestamp: r.CheckOut.Time}
	if f := findFlag(EvaluateFlags(r, settings, geo), model.FlagLocationMismatch); f != nil {
		t.Errorf("unexpected flag inside the geofence: %+v", f)
	}

	// no position evidence: no flag
	r.CheckOut.Location = nil
	if f := findFlag(EvaluateFlags(r, settings, geo), model.FlagLocationMismatch); f != nil {
		t.Errorf("unexpected flag without position evidence: %+v", f)
	}

	// no validator configured: rule disabled
	r.CheckOut.Location = &model.GeoPoint{Latitude: 50, Longitude: 50}
	if f := findFlag(EvaluateFlags(r, settings, nil), model.FlagLocationMismatch); f != nil {
		t.Errorf("unexpected flag with nil validator: %+v", f)
	}
}

func TestDeviceChangeFlag(t *testing.T) {
	settings := flagSettings()

	r := dayRecord("09:00", "17:30")
	r.CheckIn.Device = &model.DeviceInfo{UserAgent: "Mozilla/5.0", Platform: "MacIntel"}
	r.CheckOut.Device = &model.DeviceInfo{UserAgent: "Mozilla/5.0", Platform: "Win32"}

	got := findFlag(EvaluateFlags(r, settings, nil), model.FlagDeviceChange)
	if got == nil {
		t.Fatal("expected device_change flag")
	}
	if got.Severity != model.SeverityMedium {
		t.Errorf("severity = %v, want medium", got.Severity)
	}

	// identical fingerprints: no flag
	r.CheckOut.Device = &model.DeviceInfo{UserAgent: "Mozilla/5.0", Platform: "MacIntel"}
	if f := findFlag(EvaluateFlags(r, settings, nil), model.FlagDeviceChange); f != nil {
		t.Errorf("unexpected flag for identical devices: %+v", f)
	}

	// missing fingerprint is no evidence
	r.CheckOut.Device = nil
	if f := findFlag(EvaluateFlags(r, settings, nil), model.FlagDeviceChange); f != nil {
		t.Errorf("unexpected flag for missing fingerprint: %+v", f)
	}
}

func TestIrregularHoursFlag(t *testing.T) {
	settings := flagSettings()

	tests := []struct {
		name         string
		checkIn      string
		checkOut     string
		wantFlag     bool
		wantSeverity model.FlagSeverity
	}{
		{"inside the envelope", "09:05", "18:05", false, ""},
		{"slightly early check-in", "08:30", "18:00", true, model.SeverityLow},
		{"very early check-in", "06:00", "18:00", true, model.SeverityMedium},
		{"abnormally early check-out", "09:00", "14:00", true, model.SeverityMedium},
		{"late check-out within grace", "09:00", "18:10", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := dayRecord(tt.checkIn, tt.checkOut)
			got := findFlag(EvaluateFlags(r, settings, nil), model.FlagIrregularHours)
			if (got != nil) != tt.wantFlag {
				t.Fatalf("irregular_hours flag = %v, want %v", got != nil, tt.wantFlag)
			}
			if got != nil && got.Severity != tt.wantSeverity {
				t.Errorf("severity = %v, want %v", got.Severity, tt.wantSeverity)
			}
		})
	}
}

// A record can classify present and still carry an irregular_hours flag.
func TestIrregularHoursIndependentOfStatus(t *testing.T) {
	settings := flagSettings()
	r := dayRecord("07:00", "16:00") // 9 worked hours, arrival well before the envelope

	if got := Classify(r, settings); got != model.StatusPresent {
		t.Fatalf("status = %v, want present", got)
	}
	if f := findFlag(EvaluateFlags(r, settings, nil), model.FlagIrregularHours); f == nil {
		t.Error("expected irregular_hours flag on a present record")
	}
}

func TestMergeFlagsAdditive(t *testing.T) {
	r := dayRecord("09:00", "17:30")
	r.Flags = []model.Flag{{Type: model.FlagDeviceChange, Severity: model.SeverityMedium}}

	r.MergeFlags([]model.Flag{
		{Type: model.FlagDeviceChange, Severity: model.SeverityMedium},
		{Type: model.FlagIrregularHours, Severity: model.SeverityLow},
	})

	if len(r.Flags) != 2 {
		t.Fatalf("len(Flags) = %d, want 2", len(r.Flags))
	}
	if !r.HasFlag(model.FlagIrregularHours) {
		t.Error("new flag type should be merged in")
	}
}
