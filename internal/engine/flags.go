package engine

import (
	"fmt"
	"time"

	"attendance-engine/internal/model"
)

// Check-in/out this far outside the working envelope escalates the
// irregular_hours flag from low to medium.
const irregularEscalation = time.Hour

// EvaluateFlags inspects a record against the flag rules and returns zero or
// more severity-tagged flags. It is pure and additive: the caller merges the
// result into the record and previously raised flags are never removed.
// Flags are advisory; they drive notifications and manager review, never
// block check-in/out.
//
// geo may be nil when no office table is configured, which disables the
// location_mismatch rule (no evidence, no flag).
func EvaluateFlags(record *model.AttendanceRecord, settings model.AttendanceSettings, geo *GeofenceValidator) []model.Flag {
	var flags []model.Flag

	if f := idleBudgetFlag(record, settings); f != nil {
		flags = append(flags, *f)
	}
	if geo != nil {
		if f := locationFlag(record, geo); f != nil {
			flags = append(flags, *f)
		}
	}
	if f := deviceChangeFlag(record); f != nil {
		flags = append(flags, *f)
	}
	flags = append(flags, irregularHoursFlags(record, settings)...)

	return flags
}

// idleBudgetFlag fires when total idle minutes exceed the day's idle budget
// of idleThreshold x maxIdlePeriods. The comparison is strict: a total equal
// to the budget is still within it.
func idleBudgetFlag(record *model.AttendanceRecord, settings model.AttendanceSettings) *model.Flag {
	budget := float64(settings.IdleThresholdMinutes * settings.MaxIdlePeriods)
	total := record.TotalIdleMinutes()
	if total <= budget {
		return nil
	}
	return &model.Flag{
		Type:        model.FlagMultipleIdlePeriods,
		Description: fmt.Sprintf("total idle time %.0f min exceeds budget of %.0f min across %d periods", total, budget, len(record.IdlePeriods)),
		Severity:    model.SeverityHigh,
		Timestamp:   flagTime(record),
	}
}

// locationFlag fires when the latest position sample on the record fails the
// geofence. A record with no position evidence raises nothing.
func locationFlag(record *model.AttendanceRecord, geo *GeofenceValidator) *model.Flag {
	sample := record.LatestLocation()
	if sample == nil {
		return nil
	}
	result := geo.ValidatePoint(sample)
	if result.IsValid {
		return nil
	}
	desc := "position sample outside all office geofences"
	if result.NearestLocation != nil {
		desc = fmt.Sprintf("position sample %.0f m from nearest office %q (radius %.0f m)",
			result.DistanceMeters, result.NearestLocation.Name, result.NearestLocation.RadiusMeters)
	}
	if sample.AccuracyMeters > 0 {
		desc += fmt.Sprintf(", reported accuracy %.0f m", sample.AccuracyMeters)
	}
	return &model.Flag{
		Type:        model.FlagLocationMismatch,
		Description: desc,
		Severity:    model.SeverityHigh,
		Timestamp:   sample.Timestamp,
	}
}

// deviceChangeFlag fires when the check-out device fingerprint differs from
// the check-in one. Missing fingerprints are no evidence.
func deviceChangeFlag(record *model.AttendanceRecord) *model.Flag {
	if record.CheckIn == nil || record.CheckOut == nil {
		return nil
	}
	in, out := record.CheckIn.Device, record.CheckOut.Device
	if in == nil || out == nil {
		return nil
	}
	if in.UserAgent == out.UserAgent && in.Platform == out.Platform {
		return nil
	}
	return &model.Flag{
		Type:        model.FlagDeviceChange,
		Description: fmt.Sprintf("device changed between check-in (%s/%s) and check-out (%s/%s)", in.Platform, in.UserAgent, out.Platform, out.UserAgent),
		Severity:    model.SeverityMedium,
		Timestamp:   record.CheckOut.Time,
	}
}

// irregularHoursFlags fires when check-in or check-out fall outside the
// working-hours envelope beyond the lateness grace, independent of the late
// status rule. A record can classify present and still be flagged here.
func irregularHoursFlags(record *model.AttendanceRecord, settings model.AttendanceSettings) []model.Flag {
	if record.CheckIn == nil {
		return nil
	}
	day := record.Day()
	if day.IsZero() {
		return nil
	}
	start, err := settings.WorkingHours.StartAt(day)
	if err != nil {
		return nil
	}
	end, err := settings.WorkingHours.EndAt(day)
	if err != nil {
		return nil
	}
	grace := time.Duration(settings.AllowedLateMinutes) * time.Minute

	var flags []model.Flag
	if off := envelopeOffset(record.CheckIn.Time, start, grace); off > 0 {
		flags = append(flags, model.Flag{
			Type:        model.FlagIrregularHours,
			Description: fmt.Sprintf("check-in %s outside working hours envelope by %s", record.CheckIn.Time.Format("15:04"), off.Round(time.Minute)),
			Severity:    irregularSeverity(off),
			Timestamp:   record.CheckIn.Time,
		})
	}
	if record.CheckOut != nil {
		if off := envelopeOffset(record.CheckOut.Time, end, grace); off > 0 {
			flags = append(flags, model.Flag{
				Type:        model.FlagIrregularHours,
				Description: fmt.Sprintf("check-out %s outside working hours envelope by %s", record.CheckOut.Time.Format("15:04"), off.Round(time.Minute)),
				Severity:    irregularSeverity(off),
				Timestamp:   record.CheckOut.Time,
			})
		}
	}
	return flags
}

// envelopeOffset returns how far t sits from the boundary once the grace is
// applied on both sides, or 0 when within tolerance.
func envelopeOffset(t, boundary time.Time, grace time.Duration) time.Duration {
	if t.After(boundary.Add(grace)) {
		return t.Sub(boundary.Add(grace))
	}
	if t.Before(boundary.Add(-grace)) {
		return boundary.Add(-grace).Sub(t)
	}
	return 0
}

func irregularSeverity(off time.Duration) model.FlagSeverity {
	if off > irregularEscalation {
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// flagTime picks a deterministic timestamp for a flag from evidence already
// on the record, keeping evaluation free of clock reads.
func flagTime(record *model.AttendanceRecord) time.Time {
	if record.CheckOut != nil {
		return record.CheckOut.Time
	}
	if n := len(record.IdlePeriods); n > 0 {
		last := record.IdlePeriods[n-1]
		if last.End != nil {
			return *last.End
		}
		return last.Start
	}
	if record.CheckIn != nil {
		return record.CheckIn.Time
	}
	return time.Time{}
}
