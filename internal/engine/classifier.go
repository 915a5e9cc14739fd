package engine

import (
	"time"

	"attendance-engine/internal/model"
)

// Worked-hours thresholds for duration-based classification.
const (
	halfDayMaxHours = 4.0
	fullDayHours    = 8.0
)

// Classify maps a day's check-in/check-out data to an attendance status.
// It is a pure function of the record and settings; no clock reads, so
// recomputation after late idle updates is idempotent.
//
// Decision order, first match wins:
//  1. no check-in on a required check-in day -> absent; on an off day the
//     missing check-in is expected and the record reads present
//  2. check-out present and worked < 4h -> half_day; worked < 8h -> early_leave
//  3. check-in later than working start + allowed late minutes -> late
//  4. otherwise -> present
//
// Duration-based classification deliberately takes precedence over lateness:
// a short day is reported by its duration, not its arrival time.
func Classify(record *model.AttendanceRecord, settings model.AttendanceSettings) model.AttendanceStatus {
	if record.CheckIn == nil {
		day := record.Day()
		// an unparseable date gives no evidence the day was off
		if day.IsZero() || settings.RequiresCheckIn(day.Weekday()) {
			return model.StatusAbsent
		}
		return model.StatusPresent
	}

	if hours, ok := record.WorkedHours(); ok {
		if hours < halfDayMaxHours {
			return model.StatusHalfDay
		}
		if hours < fullDayHours {
			return model.StatusEarlyLeave
		}
	}

	if isLate(record.CheckIn.Time, record.Day(), settings) {
		return model.StatusLate
	}
	return model.StatusPresent
}

// isLate reports whether the check-in time falls past the working start plus
// the lateness grace. Malformed working hours mean no lateness evidence.
func isLate(checkIn time.Time, day time.Time, settings model.AttendanceSettings) bool {
	if day.IsZero() {
		return false
	}
	start, err := settings.WorkingHours.StartAt(day)
	if err != nil {
		return false
	}
	grace := time.Duration(settings.AllowedLateMinutes) * time.Minute
	return checkIn.After(start.Add(grace))
}
